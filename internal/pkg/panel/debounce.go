package panel

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of work per key on the trailing edge: only the
// most recently scheduled func runs when the window elapses. A window of
// zero runs synchronously.
type debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	fn    func()
}

func (d *debouncer) schedule(window time.Duration, fn func()) {
	d.mu.Lock()
	d.fn = fn
	if d.timer == nil {
		d.timer = time.AfterFunc(window, d.fire)
	} else {
		d.timer.Reset(window)
	}
	d.mu.Unlock()
}

func (d *debouncer) fire() {
	d.mu.Lock()
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Service) debounce(key string, fn func()) {
	if s.window <= 0 {
		fn()
		return
	}
	s.mu.Lock()
	d, exists := s.debouncers[key]
	if !exists {
		d = &debouncer{}
		s.debouncers[key] = d
	}
	s.mu.Unlock()
	d.schedule(s.window, fn)
}
