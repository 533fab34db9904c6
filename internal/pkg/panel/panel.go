package panel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/dash480-integration/internal/pkg/ha"
	"github.com/anicoll/dash480-integration/internal/pkg/layout"
	"github.com/anicoll/dash480-integration/internal/pkg/model"
	"github.com/anicoll/dash480-integration/internal/pkg/publisher"
)

type publisherIface interface {
	PublishAll(p *model.Panel) error
	PublishPanel(p *model.Panel) error
	PublishPage(p *model.Panel) error
	PublishProperty(p *model.Panel, ref, property, value string) error
	PublishCommand(p *model.Panel, suffix, payload string) error
	SetOnline(node string, online bool)
}

type subscriber interface {
	Subscribe(topic string, handler func(topic string, payload []byte)) (func(), error)
}

type commander interface {
	Toggle(ctx context.Context, entityID string) error
	TurnOff(ctx context.Context, entityID string) error
	SetFanPercentage(ctx context.Context, entityID string, pct int) error
	TurnOnLight(ctx context.Context, entityID string, rgb []int, kelvin int) error
	Resolve(entityID string) (ha.Entity, bool)
	OnStateChange(entityID string, fn func(ha.Entity)) func()
}

// Service is the single coordination point for one panel: every model
// mutation, render-cache update and publish for the panel goes through its
// mutex. Services for distinct panels are fully independent.
type Service struct {
	panel   *model.Panel
	pub     publisherIface
	mqtt    subscriber
	cmdr    commander
	logger  *zap.Logger
	errChan chan error
	window  time.Duration

	mu         sync.Mutex
	state      ConnState
	popup      *popupSession
	entitySubs map[string]func()
	unsubs     []func()
	debouncers map[string]*debouncer
	closed     bool
}

// popupSession binds an open popup back to the tile that triggered it so
// the next selection event can be resolved to an entity command.
type popupSession struct {
	entityID   string
	class      model.Class
	page       *model.Page
	slotIndex  int
	originPage int
}

func New(p *model.Panel, pub publisherIface, mqttSvc subscriber, cmdr commander, window time.Duration, errChan chan error) *Service {
	return &Service{
		panel:      p,
		pub:        pub,
		mqtt:       mqttSvc,
		cmdr:       cmdr,
		logger:     zap.L().With(zap.String("node", p.NodeName)),
		errChan:    errChan,
		window:     window,
		entitySubs: make(map[string]func()),
		debouncers: make(map[string]*debouncer),
	}
}

// Start wires the liveness, device-event and entity-state subscriptions.
func (s *Service) Start() error {
	node := s.panel.NodeName
	unsubLWT, err := s.mqtt.Subscribe(publisher.LWTTopic(node), s.handleLWT)
	if err != nil {
		return err
	}
	s.unsubs = append(s.unsubs, unsubLWT)

	unsubEvents, err := s.mqtt.Subscribe(publisher.StateTopic(node), s.handleStateEvent)
	if err != nil {
		return err
	}
	s.unsubs = append(s.unsubs, unsubEvents)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.panel.EntityRefs() {
		s.trackEntityLocked(id)
	}
	return nil
}

// Close synchronously severs every subscription before the panel's model
// entries may be released.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	subs := s.unsubs
	s.unsubs = nil
	for _, unsub := range s.entitySubs {
		subs = append(subs, unsub)
	}
	s.entitySubs = make(map[string]func())
	s.mu.Unlock()
	for _, unsub := range subs {
		unsub()
	}
}

func (s *Service) trackEntityLocked(entityID string) {
	if _, tracked := s.entitySubs[entityID]; tracked {
		return
	}
	id := entityID
	s.entitySubs[id] = s.cmdr.OnStateChange(id, func(ha.Entity) {
		s.debounce(id, func() { s.syncEntity(id) })
	})
}

// dropStaleSubsLocked unsubscribes entities no longer bound anywhere.
func (s *Service) dropStaleSubsLocked() {
	bound := make(map[string]struct{})
	for _, id := range s.panel.EntityRefs() {
		bound[id] = struct{}{}
	}
	for id, unsub := range s.entitySubs {
		if _, ok := bound[id]; !ok {
			unsub()
			delete(s.entitySubs, id)
		}
	}
}

func (s *Service) sendIfErr(err error) {
	if err != nil {
		s.errChan <- err
	}
}

// dispatch issues an entity command without holding the panel lock;
// handlers must not block on the host platform round trip.
func (s *Service) dispatch(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.sendIfErr(fn(ctx))
	}()
}

// Configuration entry points. External config flows call these; each one
// mutates the model under the panel lock and republishes at the matching
// granularity.

// BindEntity classifies the entity from the host registry, binds it to the
// slot and republishes the panel's pages.
func (s *Service) BindEntity(order, slotIndex int, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, _ := s.cmdr.Resolve(entityID)
	entity.EntityID = entityID
	ref := model.EntityRef{ID: entityID, Class: ha.Classify(entity)}
	if err := s.panel.BindEntity(order, slotIndex, ref); err != nil {
		return err
	}
	s.primeSlotLocked(order, slotIndex, entity)
	s.trackEntityLocked(entityID)
	s.dropStaleSubsLocked()
	return s.pub.PublishPage(s.panel)
}

func (s *Service) ClearSlot(order, slotIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.panel.ClearSlot(order, slotIndex); err != nil {
		return err
	}
	s.dropStaleSubsLocked()
	return s.pub.PublishPage(s.panel)
}

func (s *Service) FirstEmptySlot(order int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panel.FirstEmptySlot(order)
}

func (s *Service) AddPage(order int, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.panel.AddPage(order, title); err != nil {
		return err
	}
	return s.pub.PublishAll(s.panel)
}

// RemovePage drops the page and republishes from a clean screen so the
// removed page's objects disappear from the device.
func (s *Service) RemovePage(order int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.panel.RemovePage(order) {
		return model.ErrPageNotFound
	}
	s.dropStaleSubsLocked()
	return s.pub.PublishAll(s.panel)
}

// SetNodeName renames the panel's transport identity and rebinds the
// liveness and device-event subscriptions to the new topic prefix. Only
// messages sent after the rename use it; the panel's connectivity is
// treated as unknown until the renamed device announces itself.
func (s *Service) SetNodeName(name string) error {
	s.mu.Lock()
	old := s.unsubs
	s.unsubs = nil
	s.panel.SetNodeName(name)
	s.state = StateUnknown
	s.logger = zap.L().With(zap.String("node", s.panel.NodeName))
	started := len(old) > 0
	s.mu.Unlock()
	for _, unsub := range old {
		unsub()
	}
	if !started {
		return nil
	}

	node := s.panel.NodeName
	unsubLWT, err := s.mqtt.Subscribe(publisher.LWTTopic(node), s.handleLWT)
	if err != nil {
		return err
	}
	unsubEvents, err := s.mqtt.Subscribe(publisher.StateTopic(node), s.handleStateEvent)
	if err != nil {
		unsubLWT()
		return err
	}
	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsubLWT, unsubEvents)
	s.mu.Unlock()
	return nil
}

// SetRelayEntity binds or clears the entity behind one of the home page's
// relay buttons and reconciles the entity subscriptions.
func (s *Service) SetRelayEntity(index int, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.panel.SetRelayEntity(index, entityID); err != nil {
		return err
	}
	if entityID != "" {
		if entity, ok := s.cmdr.Resolve(entityID); ok && entity.Known() {
			ref := btnRef(layout.HomePage, layout.RelayButton1+10*index)
			s.sendIfErr(s.pub.PublishProperty(s.panel, ref, "val", boolVal(entity.IsOn())))
		}
		s.trackEntityLocked(entityID)
	}
	s.dropStaleSubsLocked()
	return nil
}

func (s *Service) SetHomeTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panel.HomeTitle = title
	return s.pub.PublishProperty(s.panel, headerRef(layout.HeaderTitleID), "text", title)
}

func (s *Service) SetTempEntity(entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panel.TempEntity = entityID
	s.panel.TempValue = ""
	if entityID != "" {
		if entity, ok := s.cmdr.Resolve(entityID); ok && entity.Known() {
			s.panel.TempValue = entity.State
		}
		s.trackEntityLocked(entityID)
	}
	s.dropStaleSubsLocked()
	value := s.panel.TempValue
	if value == "" {
		value = "--"
	}
	return s.pub.PublishProperty(s.panel, headerRef(layout.HeaderTempID), "text", value)
}

// primeSlotLocked seeds a fresh binding's render cache from the current
// entity state so the first serialize shows real values.
func (s *Service) primeSlotLocked(order, slotIndex int, entity ha.Entity) {
	page, found := s.panel.Page(order)
	if !found {
		return
	}
	slot := &page.Slots[slotIndex]
	if entity.Attributes.FriendlyName != "" {
		slot.Render.Label = entity.Attributes.FriendlyName
	}
	if !entity.Known() {
		return
	}
	slot.Render.On = entity.IsOn()
	slot.Render.Value = entity.State
	slot.Render.Percentage = entity.FanPercentage()
}
