package publisher

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/anicoll/dash480-integration/internal/pkg/layout"
	"github.com/anicoll/dash480-integration/internal/pkg/model"
)

type transport interface {
	Publish(topic, payload string) error
}

// Topic builders for the panel's node-scoped topic tree. The node name is
// resolved per call so renaming a panel affects subsequent messages only.
func CommandTopic(node, suffix string) string {
	return fmt.Sprintf("hasp/%s/command/%s", node, suffix)
}

func LWTTopic(node string) string {
	return fmt.Sprintf("hasp/%s/LWT", node)
}

func StateTopic(node string) string {
	return fmt.Sprintf("hasp/%s/state/#", node)
}

// Service turns declarative object sequences into ordered transport
// messages, one object per message. It tracks per-panel connectivity (fed
// by the connectivity monitor) and the last payload sent per object so
// no-op property updates are suppressed.
type Service struct {
	tr     transport
	logger *zap.Logger

	mu       sync.Mutex
	online   map[string]bool
	lastSent map[string]map[string]string
}

func New(tr transport) *Service {
	return &Service{
		tr:       tr,
		logger:   zap.L(),
		online:   make(map[string]bool),
		lastSent: make(map[string]map[string]string),
	}
}

// SetOnline records the panel's connectivity; partial publish paths are
// dropped while offline since the device loses its state across reboots
// anyway and a full publish follows the next online transition.
func (s *Service) SetOnline(node string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online[node] = online
}

func (s *Service) Online(node string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online[node]
}

// PublishAll emits the clear directive followed by the panel's full object
// sequence and resets the render bookkeeping for every object. Offline
// panels are skipped like every other path; the connectivity monitor marks
// the panel online before requesting the reconnect publish.
func (s *Service) PublishAll(p *model.Panel) error {
	if !s.Online(p.NodeName) {
		s.logger.Warn("panel offline, dropping publish", zap.String("node", p.NodeName))
		return nil
	}
	s.logger.Info("publishing full layout", zap.String("node", p.NodeName))
	if err := s.tr.Publish(CommandTopic(p.NodeName, "clearpage"), "all"); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastSent[p.NodeName] = make(map[string]string)
	s.mu.Unlock()
	return s.emit(p.NodeName, layout.Serialize(p))
}

// PublishPanel emits the header/footer/home-relay region only.
func (s *Service) PublishPanel(p *model.Panel) error {
	if !s.Online(p.NodeName) {
		s.logger.Warn("panel offline, dropping publish", zap.String("node", p.NodeName))
		return nil
	}
	return s.emit(p.NodeName, layout.HomeObjects(p))
}

// PublishPage emits every page belonging to the panel, plus the popup
// templates they reference. Republishing all pages on any slot change keeps
// popup references and prev/next links consistent.
func (s *Service) PublishPage(p *model.Panel) error {
	if !s.Online(p.NodeName) {
		s.logger.Warn("panel offline, dropping publish", zap.String("node", p.NodeName))
		return nil
	}
	objects := layout.PopupObjects(p)
	for _, page := range p.Pages() {
		objects = append(objects, layout.PageObjects(p, page)...)
	}
	return s.emit(p.NodeName, objects)
}

// PublishProperty updates a single property of an already-published object,
// e.g. ref "p2b32", property "text_color". Unchanged values are skipped.
func (s *Service) PublishProperty(p *model.Panel, ref, property, value string) error {
	if !s.Online(p.NodeName) {
		s.logger.Warn("panel offline, dropping update", zap.String("node", p.NodeName), zap.String("ref", ref))
		return nil
	}
	key := ref + "." + property
	s.mu.Lock()
	sent, exists := s.lastSent[p.NodeName]
	if !exists {
		sent = make(map[string]string)
		s.lastSent[p.NodeName] = sent
	}
	if prev, ok := sent[key]; ok && prev == value {
		s.mu.Unlock()
		return nil
	}
	sent[key] = value
	s.mu.Unlock()
	return s.tr.Publish(CommandTopic(p.NodeName, key), value)
}

// PublishCommand sends a raw device command (page jumps, relay outputs).
func (s *Service) PublishCommand(p *model.Panel, suffix, payload string) error {
	if !s.Online(p.NodeName) {
		s.logger.Warn("panel offline, dropping command", zap.String("node", p.NodeName), zap.String("command", suffix))
		return nil
	}
	return s.tr.Publish(CommandTopic(p.NodeName, suffix), payload)
}

func (s *Service) emit(node string, objects []layout.Object) error {
	topic := CommandTopic(node, "jsonl")
	for _, obj := range objects {
		line, err := obj.JSONL()
		if err != nil {
			return err
		}
		if err := s.tr.Publish(topic, line); err != nil {
			return err
		}
		s.mu.Lock()
		sent, exists := s.lastSent[node]
		if !exists {
			sent = make(map[string]string)
			s.lastSent[node] = sent
		}
		sent[obj.Ref()] = line
		s.mu.Unlock()
	}
	s.logger.Debug("published objects", zap.String("node", node), zap.Int("count", len(objects)))
	return nil
}
