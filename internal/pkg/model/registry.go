package model

import (
	"sync"

	"github.com/samber/lo"
)

// Registry holds every configured panel. It is an explicit object passed to
// the engine's entry points; lifecycle is tied to Add/Remove, not ambient
// globals. The registry guards its own map; the panels themselves are owned
// by their panel services.
type Registry struct {
	mu     sync.RWMutex
	panels map[string]*Panel
}

func NewRegistry() *Registry {
	return &Registry{
		panels: make(map[string]*Panel),
	}
}

func (r *Registry) Add(p *Panel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.panels[p.NodeName]; exists {
		return ErrPanelExists
	}
	r.panels[p.NodeName] = p
	return nil
}

// Remove deletes the panel from the registry. The caller must have stopped
// the panel's service (and with it every subscription) beforehand.
func (r *Registry) Remove(nodeName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.panels[nodeName]; !exists {
		return ErrPanelNotFound
	}
	delete(r.panels, nodeName)
	return nil
}

func (r *Registry) Panel(nodeName string) (*Panel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, exists := r.panels[nodeName]
	if !exists {
		return nil, ErrPanelNotFound
	}
	return p, nil
}

func (r *Registry) Panels() []*Panel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.panels)
}
