package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/anicoll/dash480-integration/internal/pkg/layout"
	"github.com/anicoll/dash480-integration/internal/pkg/model"
)

// deviceEvent is the payload of a touch event on the inbound state channel.
type deviceEvent struct {
	Event string `json:"event"`
	Val   int    `json:"val"`
}

// relay buttons publish directly to the firmware output channels; the
// third relay sits on output 40 in this hardware revision.
var relayOutputs = map[int]string{
	layout.RelayButton1: "output1",
	layout.RelayButton2: "output2",
	layout.RelayButton3: "output40",
}

// handleStateEvent routes one inbound device event: tile presses, popup
// selections, relay presses and page changes. Unrecognized or stale
// references are dropped, never fatal.
func (s *Service) handleStateEvent(topic string, payload []byte) {
	tail := topic[strings.LastIndex(topic, "/")+1:]
	if tail == "page" {
		s.handlePageChange(string(payload))
		return
	}

	pageNum, kind, id, ok := parseRef(tail)
	if !ok {
		return
	}
	var event deviceEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Debug("undecodable device event", zap.String("topic", topic))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	switch {
	case kind == 'b' && event.Event == "long" && pageNum == layout.HeaderPage && id == layout.HeaderTitleID:
		// Long press on the header title force-rebuilds the layout.
		s.sendIfErr(s.pub.PublishAll(s.panel))
	case kind == 'b' && event.Event == "up":
		s.handleButtonLocked(pageNum, id, event.Val)
	case kind == 'm' && (event.Event == "up" || event.Event == "changed"):
		s.handleSelectionLocked(pageNum, id, event.Val)
	}
}

func (s *Service) handleButtonLocked(pageNum, id, val int) {
	switch pageNum {
	case layout.HeaderPage:
		return // navigation handled on-device
	case layout.HomePage:
		if output, ok := relayOutputs[id]; ok {
			s.handleRelayLocked(id, output, val)
		}
		return
	case layout.FanPopupPage, layout.ColorPopupPage:
		if id == layout.PopupCloseID {
			s.closePopupLocked()
		}
		return
	}

	page, found := s.panel.Page(pageNum)
	if !found {
		s.logger.Debug("stale tile reference dropped", zap.Int("page", pageNum), zap.Int("id", id))
		return
	}
	slotIndex, ok := layout.SlotForObjectID(id)
	if !ok {
		return
	}
	slot := &page.Slots[slotIndex]
	if slot.Entity == nil {
		s.logger.Debug("stale tile reference dropped", zap.Int("page", pageNum), zap.Int("id", id))
		return
	}

	entityID := slot.Entity.ID
	switch slot.Entity.Class {
	case model.ClassSwitch, model.ClassLight:
		s.dispatch(func(ctx context.Context) error {
			return s.cmdr.Toggle(ctx, entityID)
		})
	case model.ClassFan:
		s.openPopupLocked(layout.FanPopupPage, page, slotIndex, pageNum)
	case model.ClassColorLight:
		s.openPopupLocked(layout.ColorPopupPage, page, slotIndex, pageNum)
	case model.ClassSensor:
		// read-only tile
	}
}

func (s *Service) handleRelayLocked(id int, output string, val int) {
	state := "off"
	if val == 1 {
		state = "on"
	}
	s.sendIfErr(s.pub.PublishCommand(s.panel, output, fmt.Sprintf(`{"state":"%s"}`, state)))

	relayIndex := (id - layout.RelayButton1) / 10
	if relayIndex >= 0 && relayIndex < len(s.panel.RelayEntities) {
		if entityID := s.panel.RelayEntities[relayIndex]; entityID != "" {
			s.dispatch(func(ctx context.Context) error {
				return s.cmdr.Toggle(ctx, entityID)
			})
		}
	}
}

// openPopupLocked shows the shared popup template bound to the pressed
// tile: title and current selection are updated in place, then the device
// is navigated to the popup page.
func (s *Service) openPopupLocked(popupPage int, page *model.Page, slotIndex, originPage int) {
	slot := &page.Slots[slotIndex]
	s.popup = &popupSession{
		entityID:   slot.Entity.ID,
		class:      slot.Entity.Class,
		page:       page,
		slotIndex:  slotIndex,
		originPage: originPage,
	}

	title := slot.Render.Label
	if title == "" {
		title = slot.Entity.ID
	}
	selection := 0
	if slot.Entity.Class == model.ClassFan {
		if slot.Render.On {
			selection = fanSelectionIndex(slot.Render.Percentage)
		}
	} else if slot.Render.On {
		if idx := colorSelectionIndex(slot.Render.Color); idx > 0 {
			selection = idx
		}
	}

	s.sendIfErr(s.pub.PublishProperty(s.panel, labelRef(popupPage, layout.PopupTitleID), "text", title))
	s.sendIfErr(s.pub.PublishProperty(s.panel, fmt.Sprintf("p%dm%d", popupPage, layout.PopupMatrixID), "val", strconv.Itoa(selection)))
	s.sendIfErr(s.pub.PublishCommand(s.panel, "page", strconv.Itoa(popupPage)))
}

func (s *Service) closePopupLocked() {
	returnPage := layout.HomePage
	if s.popup != nil {
		returnPage = s.popup.originPage
		s.popup = nil
	}
	s.sendIfErr(s.pub.PublishCommand(s.panel, "page", strconv.Itoa(returnPage)))
}

// handleSelectionLocked resolves a popup matrix selection back to the
// entity captured when the popup was opened.
func (s *Service) handleSelectionLocked(pageNum, id, val int) {
	if (pageNum != layout.FanPopupPage && pageNum != layout.ColorPopupPage) || id != layout.PopupMatrixID {
		return
	}
	session := s.popup
	if session == nil {
		s.logger.Debug("popup selection without open popup dropped", zap.Int("page", pageNum))
		return
	}
	if _, found := s.panel.Page(session.page.Order); !found {
		s.logger.Debug("stale tile reference dropped", zap.Int("page", session.page.Order))
		s.popup = nil
		return
	}
	slot := &session.page.Slots[session.slotIndex]
	if slot.Entity == nil || slot.Entity.ID != session.entityID {
		s.logger.Debug("stale tile reference dropped", zap.String("entity", session.entityID))
		s.popup = nil
		return
	}

	switch {
	case pageNum == layout.FanPopupPage && session.class == model.ClassFan:
		s.applyFanSelectionLocked(session, slot, val)
	case pageNum == layout.ColorPopupPage && session.class == model.ClassColorLight:
		s.applyColorSelectionLocked(session, slot, val)
	default:
		return
	}
	s.closePopupLocked()
}

func (s *Service) applyFanSelectionLocked(session *popupSession, slot *model.Slot, val int) {
	pct, ok := layout.FanPercentage(val)
	if !ok {
		return
	}
	entityID := session.entityID
	if pct == 0 {
		s.dispatch(func(ctx context.Context) error {
			return s.cmdr.TurnOff(ctx, entityID)
		})
	} else {
		s.dispatch(func(ctx context.Context) error {
			return s.cmdr.SetFanPercentage(ctx, entityID, pct)
		})
	}

	// Optimistic cache update; the entity-state bridge corrects it if the
	// command is rejected upstream.
	slot.Render.Percentage = pct
	slot.Render.On = pct > 0
	base := layout.TileBase(session.slotIndex)
	bucket := "Off"
	if pct > 0 {
		bucket = layout.FanBucket(pct)
	}
	s.sendIfErr(s.pub.PublishProperty(s.panel, btnRef(session.page.Order, base+2), "val", boolVal(pct > 0)))
	s.sendIfErr(s.pub.PublishProperty(s.panel, labelRef(session.page.Order, base+3), "text", bucket))
}

func (s *Service) applyColorSelectionLocked(session *popupSession, slot *model.Slot, val int) {
	color, ok := layout.ColorByIndex(val)
	if !ok {
		return
	}
	entityID := session.entityID
	if color == layout.ColorOff {
		s.dispatch(func(ctx context.Context) error {
			return s.cmdr.TurnOff(ctx, entityID)
		})
		slot.Render.On = false
		slot.Render.Color = layout.ColorOff
	} else {
		rgb, kelvin, _ := layout.ColorCommand(color)
		s.dispatch(func(ctx context.Context) error {
			return s.cmdr.TurnOnLight(ctx, entityID, rgb, kelvin)
		})
		slot.Render.On = true
		slot.Render.Color = color
	}

	base := layout.TileBase(session.slotIndex)
	s.sendIfErr(s.pub.PublishProperty(s.panel, btnRef(session.page.Order, base+2), "val", boolVal(slot.Render.On)))
	s.sendIfErr(s.pub.PublishProperty(s.panel, btnRef(session.page.Order, base+2), "text_color", layout.Tint(slot.Render.Color, slot.Render.On)))
}

// handlePageChange keeps the header title in sync with the visible page.
func (s *Service) handlePageChange(payload string) {
	pageNum, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	title := s.panel.HomeTitle
	switch pageNum {
	case layout.HomePage:
	case layout.FanPopupPage:
		title = "Fan Speed"
	case layout.ColorPopupPage:
		title = "Light Color"
	default:
		if page, found := s.panel.Page(pageNum); found {
			title = page.Title
			if title == "" {
				title = fmt.Sprintf("Page %d", pageNum)
			}
		}
	}
	s.sendIfErr(s.pub.PublishProperty(s.panel, headerRef(layout.HeaderTitleID), "text", title))
}

// parseRef decodes a stable object reference like "p2b32" into its page
// number, object kind and id.
func parseRef(tail string) (page int, kind byte, id int, ok bool) {
	if len(tail) < 4 || tail[0] != 'p' {
		return 0, 0, 0, false
	}
	rest := tail[1:]
	split := strings.IndexAny(rest, "blmo")
	if split <= 0 || split == len(rest)-1 {
		return 0, 0, 0, false
	}
	page, err := strconv.Atoi(rest[:split])
	if err != nil {
		return 0, 0, 0, false
	}
	id, err = strconv.Atoi(rest[split+1:])
	if err != nil {
		return 0, 0, 0, false
	}
	return page, rest[split], id, true
}

func fanSelectionIndex(pct int) int {
	switch layout.FanBucket(pct) {
	case "Low":
		return 1
	case "Med":
		return 2
	case "High":
		return 3
	}
	return 0
}

func colorSelectionIndex(color string) int {
	for idx := range layout.ColorOptions {
		if name, _ := layout.ColorByIndex(idx); name == color {
			return idx
		}
	}
	return 0
}
