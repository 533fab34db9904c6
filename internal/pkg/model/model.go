package model

import (
	"github.com/gosimple/slug"
	"github.com/samber/lo"
)

// PageCapacity is the fixed number of tile slots on a page.
const PageCapacity = 8

// Configurable page orders. Orders 0 and 1 belong to the header overlay
// and the home page, orders 50 and up to the popup templates; user pages
// must stay inside this range or their objects collide on the device.
const (
	MinPageOrder = 2
	MaxPageOrder = 9
)

// Class is an entity's capability classification, resolved once at bind
// time. A capability change on the underlying entity requires an explicit
// rebind; slots are never silently reclassified.
type Class string

const (
	ClassSwitch     Class = "switch"
	ClassLight      Class = "light"
	ClassColorLight Class = "color_light"
	ClassFan        Class = "fan"
	ClassSensor     Class = "sensor"
)

// EntityRef points at an external entity together with the classification
// captured when it was bound.
type EntityRef struct {
	ID    string `json:"entity_id"`
	Class Class  `json:"class"`
}

// RenderState caches the last rendering pushed for a slot so no-op updates
// can be skipped. The entity-state bridge and the interaction handler's
// optimistic updates are the only writers.
type RenderState struct {
	Label      string
	Value      string
	On         bool
	Color      string // last chosen color name for color lights
	Percentage int    // last known fan percentage
}

type Slot struct {
	Entity *EntityRef
	Render RenderState
}

// Page is one screen on a panel. Order is positive and unique per panel.
type Page struct {
	Order int
	Title string
	Slots [PageCapacity]Slot
}

// Panel models one physical display. NodeName doubles as the transport
// topic prefix; renaming it affects subsequent messages only.
//
// A panel is plain data: all access is serialized through the owning
// panel service, one coordination point per panel.
type Panel struct {
	NodeName      string
	HomeTitle     string
	TempEntity    string
	TempValue     string // cached header temperature text
	RelayEntities [3]string
	pages         []*Page
}

func NewPanel(nodeName string) *Panel {
	node := slug.Make(nodeName)
	return &Panel{
		NodeName:  node,
		HomeTitle: nodeName,
	}
}

// SetNodeName renames the panel's transport identity. Only messages sent
// after the rename use the new prefix; nothing already published is
// re-addressed.
func (p *Panel) SetNodeName(nodeName string) {
	p.NodeName = slug.Make(nodeName)
}

// SetRelayEntity binds or clears one of the three fixed relay references.
func (p *Panel) SetRelayEntity(index int, entityID string) error {
	if index < 0 || index >= len(p.RelayEntities) {
		return ErrSlotOutOfRange
	}
	p.RelayEntities[index] = entityID
	return nil
}

// AddPage registers a new page. The caller is responsible for republishing.
func (p *Panel) AddPage(order int, title string) (*Page, error) {
	if order < MinPageOrder || order > MaxPageOrder {
		return nil, ErrInvalidPageOrder
	}
	if _, found := p.Page(order); found {
		return nil, ErrPageExists
	}
	page := &Page{Order: order, Title: title}
	p.pages = append(p.pages, page)
	return page, nil
}

// RemovePage drops the page with the given order. Idempotent; reports
// whether a page was removed.
func (p *Panel) RemovePage(order int) bool {
	before := len(p.pages)
	p.pages = lo.Reject(p.pages, func(pg *Page, _ int) bool {
		return pg.Order == order
	})
	return len(p.pages) != before
}

func (p *Panel) Page(order int) (*Page, bool) {
	return lo.Find(p.pages, func(pg *Page) bool {
		return pg.Order == order
	})
}

// Pages returns the panel's pages in ascending order.
func (p *Panel) Pages() []*Page {
	pages := make([]*Page, len(p.pages))
	copy(pages, p.pages)
	for i := 1; i < len(pages); i++ {
		for j := i; j > 0 && pages[j-1].Order > pages[j].Order; j-- {
			pages[j-1], pages[j] = pages[j], pages[j-1]
		}
	}
	return pages
}

// BindEntity attaches ref to the given slot, overwriting any prior binding
// and resetting the slot's render cache.
func (p *Panel) BindEntity(order, slotIndex int, ref EntityRef) error {
	page, found := p.Page(order)
	if !found {
		return ErrPageNotFound
	}
	if slotIndex < 0 || slotIndex >= PageCapacity {
		return ErrSlotOutOfRange
	}
	page.Slots[slotIndex] = Slot{Entity: &ref}
	return nil
}

// ClearSlot unbinds the given slot. Clearing an empty slot is a no-op.
func (p *Panel) ClearSlot(order, slotIndex int) error {
	page, found := p.Page(order)
	if !found {
		return ErrPageNotFound
	}
	if slotIndex < 0 || slotIndex >= PageCapacity {
		return ErrSlotOutOfRange
	}
	page.Slots[slotIndex] = Slot{}
	return nil
}

// FirstEmptySlot returns the lowest unbound slot index on the page.
func (p *Panel) FirstEmptySlot(order int) (int, error) {
	page, found := p.Page(order)
	if !found {
		return 0, ErrPageNotFound
	}
	for i := range page.Slots {
		if page.Slots[i].Entity == nil {
			return i, nil
		}
	}
	return 0, ErrNoEmptySlot
}

// EntityRefs returns the distinct ids of every entity bound anywhere on the
// panel: slots, the temperature source and the relay references.
func (p *Panel) EntityRefs() []string {
	ids := []string{}
	if p.TempEntity != "" {
		ids = append(ids, p.TempEntity)
	}
	for _, relay := range p.RelayEntities {
		if relay != "" {
			ids = append(ids, relay)
		}
	}
	for _, page := range p.pages {
		for i := range page.Slots {
			if e := page.Slots[i].Entity; e != nil {
				ids = append(ids, e.ID)
			}
		}
	}
	return lo.Uniq(ids)
}

// SlotsFor returns every (page, slot index) pair the entity is bound to.
// One entity may back several tiles; each keeps its own render cache.
func (p *Panel) SlotsFor(entityID string) []SlotRef {
	refs := []SlotRef{}
	for _, page := range p.pages {
		for i := range page.Slots {
			if e := page.Slots[i].Entity; e != nil && e.ID == entityID {
				refs = append(refs, SlotRef{Page: page, Index: i})
			}
		}
	}
	return refs
}

// SlotRef addresses one bound slot on a concrete page.
type SlotRef struct {
	Page  *Page
	Index int
}
