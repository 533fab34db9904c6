package panel

import "go.uber.org/zap"

// ConnState is the panel's observed liveness.
type ConnState int

const (
	StateUnknown ConnState = iota
	StateOnline
	StateOffline
)

// alivePayload is the liveness announcement the firmware publishes when it
// (re)connects; anything else on the topic means offline.
const alivePayload = "online"

// handleLWT reacts to the panel's liveness announcements. The device wipes
// its UI state across reboots, so every offline->online transition gets
// exactly one full publish; partial updates suppressed while offline are
// superseded by it, never replayed.
func (s *Service) handleLWT(_ string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	prev := s.state
	if string(payload) != alivePayload {
		s.state = StateOffline
		s.pub.SetOnline(s.panel.NodeName, false)
		if prev != StateOffline {
			s.logger.Warn("panel went offline")
		}
		return
	}
	s.state = StateOnline
	s.pub.SetOnline(s.panel.NodeName, true)
	if prev == StateOnline {
		return
	}
	s.logger.Info("panel online, pushing full layout", zap.Int("pages", len(s.panel.Pages())))
	s.sendIfErr(s.pub.PublishAll(s.panel))
}
