package panel

import (
	"fmt"

	"github.com/anicoll/dash480-integration/internal/pkg/ha"
	"github.com/anicoll/dash480-integration/internal/pkg/layout"
	"github.com/anicoll/dash480-integration/internal/pkg/model"
)

func headerRef(id int) string {
	return fmt.Sprintf("p%db%d", layout.HeaderPage, id)
}

func btnRef(page, id int) string {
	return fmt.Sprintf("p%db%d", page, id)
}

func labelRef(page, id int) string {
	return fmt.Sprintf("p%dl%d", page, id)
}

// syncEntity recomputes the rendering of every tile and header field bound
// to the entity and publishes only what changed. Each bound slot keeps its
// own cache; one notification never cross-writes another slot's state.
func (s *Service) syncEntity(entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	// Messages would be lost while offline; the full publish on the next
	// online transition supersedes anything skipped here.
	if s.state != StateOnline {
		return
	}
	entity, resolved := s.cmdr.Resolve(entityID)
	known := resolved && entity.Known()

	if s.panel.TempEntity == entityID {
		value := "--"
		if known {
			value = entity.State
		}
		if s.panel.TempValue != value {
			s.panel.TempValue = value
			s.sendIfErr(s.pub.PublishProperty(s.panel, headerRef(layout.HeaderTempID), "text", value))
		}
	}

	for i, relay := range s.panel.RelayEntities {
		if relay != entityID {
			continue
		}
		on := known && entity.IsOn()
		ref := btnRef(layout.HomePage, layout.RelayButton1+10*i)
		s.sendIfErr(s.pub.PublishProperty(s.panel, ref, "val", boolVal(on)))
	}

	for _, ref := range s.panel.SlotsFor(entityID) {
		s.syncSlotLocked(ref, entity, known)
	}
}

func (s *Service) syncSlotLocked(ref model.SlotRef, entity ha.Entity, known bool) {
	slot := &ref.Page.Slots[ref.Index]
	base := layout.TileBase(ref.Index)
	pageNum := ref.Page.Order

	switch slot.Entity.Class {
	case model.ClassSensor:
		value := "--"
		if known {
			value = entity.State
		}
		if slot.Render.Value != value {
			slot.Render.Value = value
			s.sendIfErr(s.pub.PublishProperty(s.panel, btnRef(pageNum, base+2), "text", value))
		}

	case model.ClassSwitch, model.ClassLight:
		on := known && entity.IsOn()
		if slot.Render.On != on {
			slot.Render.On = on
			s.sendIfErr(s.pub.PublishProperty(s.panel, btnRef(pageNum, base+2), "val", boolVal(on)))
		}

	case model.ClassColorLight:
		on := known && entity.IsOn()
		color := colorNameFromState(entity, slot.Render.Color)
		if slot.Render.On != on || slot.Render.Color != color {
			slot.Render.On = on
			slot.Render.Color = color
			s.sendIfErr(s.pub.PublishProperty(s.panel, btnRef(pageNum, base+2), "val", boolVal(on)))
			s.sendIfErr(s.pub.PublishProperty(s.panel, btnRef(pageNum, base+2), "text_color", layout.Tint(color, on)))
		}

	case model.ClassFan:
		on := known && entity.IsOn()
		pct := entity.FanPercentage()
		if slot.Render.On != on || slot.Render.Percentage != pct {
			slot.Render.On = on
			slot.Render.Percentage = pct
			bucket := "Off"
			if on {
				bucket = layout.FanBucket(pct)
			}
			s.sendIfErr(s.pub.PublishProperty(s.panel, btnRef(pageNum, base+2), "val", boolVal(on)))
			s.sendIfErr(s.pub.PublishProperty(s.panel, labelRef(pageNum, base+3), "text", bucket))
		}
	}
}

// colorNameFromState maps the entity's reported color back onto the closest
// recognized color name; unrecognized colors keep the cached name so the
// optimistic tint is only corrected when the device reports something we
// can express.
func colorNameFromState(entity ha.Entity, cached string) string {
	if rgb := entity.Attributes.RGBColor; len(rgb) == 3 {
		switch {
		case rgb[0] == 255 && rgb[1] == 0 && rgb[2] == 0:
			return layout.ColorRed
		case rgb[0] == 0 && rgb[1] == 255 && rgb[2] == 0:
			return layout.ColorGreen
		case rgb[0] == 0 && rgb[1] == 0 && rgb[2] == 255:
			return layout.ColorBlue
		}
		return cached
	}
	if k := entity.Attributes.ColorTempKelvin; k != nil {
		if *k <= 3500 {
			return layout.ColorWarm
		}
		return layout.ColorCool
	}
	return cached
}

func boolVal(on bool) string {
	if on {
		return "1"
	}
	return "0"
}
