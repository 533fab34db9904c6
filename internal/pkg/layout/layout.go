package layout

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/anicoll/dash480-integration/internal/pkg/model"
)

// Page numbers with fixed meaning on the device. Page 0 carries the
// header/footer overlay visible on every page, page 1 is the home page with
// the relay row. Popup templates live on their own pages, one pair per
// panel, referenced from every fan/color tile.
const (
	HeaderPage     = 0
	HomePage       = 1
	FanPopupPage   = 50
	ColorPopupPage = 51
)

// Fixed object ids within the header/home/popup regions.
const (
	HeaderTitleID = 2
	HeaderTempID  = 3
	PopupTitleID  = 11
	PopupMatrixID = 60
	PopupCloseID  = 190
	RelayButton1  = 112
	RelayButton2  = 122
	RelayButton3  = 132
)

// TileBase returns the object-id base for a slot; a tile occupies
// base..base+3 (label, card, icon button, hint label).
func TileBase(slotIndex int) int {
	return (slotIndex + 1) * 10
}

// SlotForObjectID maps a tile-region object id back to its slot index.
func SlotForObjectID(id int) (int, bool) {
	if id < 10 || id >= (model.PageCapacity+1)*10 || id%10 > 3 {
		return 0, false
	}
	return id/10 - 1, true
}

// Serialize emits the full declarative object sequence for a panel
// snapshot: header/footer/home, both popup templates, then every page in
// ascending order. It is a pure function of the snapshot; serializing the
// same snapshot twice yields identical output. The popup templates precede
// every tile that references them.
func Serialize(p *model.Panel) []Object {
	objects := HomeObjects(p)
	objects = append(objects, PopupObjects(p)...)
	for _, page := range p.Pages() {
		objects = append(objects, PageObjects(p, page)...)
	}
	return objects
}

// HomeObjects builds the header bar, footer navigation and the home page
// with its three fixed relay buttons.
func HomeObjects(p *model.Panel) []Object {
	objects := []Object{
		{Page: HeaderPage, ID: 0, Obj: objPage},
	}
	objects = append(objects, homePageObject(p))

	// Header bar (page 0 overlays every page).
	objects = append(objects,
		Object{Page: HeaderPage, ID: 10, Obj: objContainer, X: iptr(0), Y: iptr(0), W: iptr(480), H: iptr(56), BgColor: "#1F2937", BgOpa: iptr(255), Radius: iptr(0), BorderWidth: iptr(0), BgGradDir: "none", OutlineWidth: iptr(0), ShadowWidth: iptr(0)},
		Object{Page: HeaderPage, ID: 1, Obj: objLabel, X: iptr(12), Y: iptr(8), W: iptr(120), H: iptr(40), Text: sptr("--"), Template: "%b %d", TextFont: 35, Align: "left", TextColor: "#E5E7EB", BgOpa: iptr(0)},
		Object{Page: HeaderPage, ID: HeaderTitleID, Obj: objButton, X: iptr(140), Y: iptr(8), W: iptr(200), H: iptr(40), Text: sptr(p.HomeTitle), TextFont: 35, TextColor: "#FFFFFF", BgOpa: iptr(0), BorderWidth: iptr(0), Radius: iptr(0), OutlineWidth: iptr(0), ShadowWidth: iptr(0), Toggle: bptr(false)},
		Object{Page: HeaderPage, ID: HeaderTempID, Obj: objButton, X: iptr(320), Y: iptr(8), W: iptr(148), H: iptr(40), Text: sptr(textOrPlaceholder(p.TempValue)), TextFont: 24, Align: "right", TextColor: "#E5E7EB", BgOpa: iptr(0), BorderWidth: iptr(0), Radius: iptr(0), OutlineWidth: iptr(0), ShadowWidth: iptr(0), Toggle: bptr(false)},
	)

	// Footer navigation, full width in three 160px buttons.
	navButton := func(id, x int, action, glyph string) Object {
		return Object{Page: HeaderPage, ID: id, Obj: objButton, Action: map[string]string{"down": action}, X: iptr(x), Y: iptr(430), W: iptr(160), H: iptr(50), BgColor: "#2C3E50", Text: sptr(glyph), TextColor: "#FFFFFF", Radius: iptr(0), BorderSide: iptr(0), BorderWidth: iptr(0), BgGradDir: "none", OutlineWidth: iptr(0), ShadowWidth: iptr(0), TextFont: 48}
	}
	objects = append(objects,
		navButton(90, 0, "page prev", ""),
		navButton(91, 160, "page 1", ""),
		navButton(92, 320, "page next", ""),
	)

	// Home page body: background, large clock, relay row.
	objects = append(objects,
		Object{Page: HomePage, ID: 180, Obj: objContainer, X: iptr(0), Y: iptr(0), W: iptr(480), H: iptr(480), BgColor: "#0B1220", BgOpa: iptr(255), Click: bptr(false)},
		Object{Page: HomePage, ID: 100, Obj: objLabel, X: iptr(0), Y: iptr(72), W: iptr(480), H: iptr(96), Text: sptr("00:00"), Template: "%H:%M", TextFont: 96, Align: "center", TextColor: "#E5E7EB", BgOpa: iptr(0)},
	)
	relayIDs := []int{RelayButton1, RelayButton2, RelayButton3}
	for i, id := range relayIDs {
		objects = append(objects, Object{Page: HomePage, ID: id, Obj: objButton, X: iptr(25 + i*150), Y: iptr(300), W: iptr(120), H: iptr(60), Text: sptr(fmt.Sprintf("Relay %d", i+1)), TextFont: 26, Toggle: bptr(true), GroupID: i + 1, Radius: iptr(8), BgColor: "#374151", TextColor: "#FFFFFF", BorderWidth: iptr(0)})
	}
	return objects
}

// PopupObjects builds the two per-panel popup template pages. They are
// emitted once per panel and shared by every fan and color tile.
func PopupObjects(p *model.Panel) []Object {
	popup := func(page int, title string, options []string) []Object {
		return []Object{
			{Page: page, ID: 0, Obj: objPage, Prev: iptr(HomePage), Next: iptr(HomePage)},
			{Page: page, ID: 10, Obj: objContainer, X: iptr(0), Y: iptr(0), W: iptr(480), H: iptr(480), BgColor: "#0B1220", BgOpa: iptr(255), Click: bptr(false)},
			{Page: page, ID: PopupTitleID, Obj: objLabel, X: iptr(24), Y: iptr(24), W: iptr(432), H: iptr(48), Text: sptr(title), TextFont: 36, Align: "center", TextColor: "#E5E7EB", BgOpa: iptr(0)},
			{Page: page, ID: PopupCloseID, Obj: objButton, X: iptr(360), Y: iptr(24), W: iptr(96), H: iptr(48), Text: sptr("Close"), TextFont: 24, Radius: iptr(12), BgColor: "#1F2937", TextColor: "#FFFFFF", BorderWidth: iptr(0)},
			{Page: page, ID: PopupMatrixID, Obj: objMatrix, X: iptr(72), Y: iptr(168), W: iptr(336), H: iptr(144), TextFont: 32, Options: options, Toggle: bptr(true), OneCheck: iptr(1), Val: iptr(0), Radius: iptr(16)},
		}
	}
	objects := popup(FanPopupPage, "Fan Speed", FanOptions)
	return append(objects, popup(ColorPopupPage, "Light Color", ColorOptions)...)
}

// PageObjects builds one page: the page container with its navigation
// links, the background, then one tile per bound slot in ascending index.
func PageObjects(p *model.Panel, page *model.Page) []Object {
	objects := []Object{
		{Page: page.Order, ID: 0, Obj: objPage, Prev: iptr(ringPrev(p, page.Order)), Next: iptr(ringNext(p, page.Order))},
		{Page: page.Order, ID: 180, Obj: objContainer, X: iptr(0), Y: iptr(0), W: iptr(480), H: iptr(480), BgColor: "#0B1220", BgOpa: iptr(255), Click: bptr(false)},
	}
	for i := range page.Slots {
		slot := &page.Slots[i]
		if slot.Entity == nil {
			continue
		}
		objects = append(objects, tileObjects(page.Order, i, slot)...)
	}
	return objects
}

const (
	tileW   = 128
	tileH   = 100
	gridX   = 24
	gridY   = 80
	colStep = tileW + 24
	rowStep = tileH + 10
)

func tileObjects(pageNum, slotIndex int, slot *model.Slot) []Object {
	base := TileBase(slotIndex)
	x := gridX + (slotIndex%3)*colStep
	y := gridY + (slotIndex/3)*rowStep
	label := slot.Render.Label
	if label == "" {
		label = slot.Entity.ID
	}

	objects := []Object{
		{Page: pageNum, ID: base + 1, Obj: objContainer, X: iptr(x), Y: iptr(y), W: iptr(tileW), H: iptr(tileH), Radius: iptr(14), BgColor: "#1E293B", BgOpa: iptr(255), Click: bptr(false)},
		{Page: pageNum, ID: base, Obj: objLabel, X: iptr(x + 8), Y: iptr(y + 6), W: iptr(tileW - 16), H: iptr(24), Text: sptr(label), TextFont: 18, TextColor: "#9CA3AF", BgOpa: iptr(0)},
	}

	switch slot.Entity.Class {
	case model.ClassSwitch, model.ClassLight, model.ClassColorLight, model.ClassFan:
		icon := ""
		if slot.Entity.Class == model.ClassFan {
			icon = ""
		}
		tint := DefaultTint
		if slot.Entity.Class == model.ClassColorLight {
			tint = Tint(slot.Render.Color, slot.Render.On)
		}
		objects = append(objects, Object{Page: pageNum, ID: base + 2, Obj: objButton, X: iptr(x + 16), Y: iptr(y + 30), W: iptr(96), H: iptr(44), Text: sptr(icon), TextFont: 40, Toggle: bptr(true), Val: iptr(lo.Ternary(slot.Render.On, 1, 0)), Radius: iptr(14), BgColor: "#1E293B", BgOpa: iptr(255), TextColor: tint, BorderWidth: iptr(0)})

		switch slot.Entity.Class {
		case model.ClassFan:
			bucket := "Off"
			if slot.Render.On {
				bucket = FanBucket(slot.Render.Percentage)
			}
			objects = append(objects, hintLabel(pageNum, base, x, y, bucket))
		case model.ClassColorLight:
			objects = append(objects, hintLabel(pageNum, base, x, y, "Tap for color"))
		}
	default: // sensor, read-only
		objects = append(objects, Object{Page: pageNum, ID: base + 2, Obj: objButton, X: iptr(x + 20), Y: iptr(y + 36), W: iptr(88), H: iptr(48), Text: sptr(textOrPlaceholder(slot.Render.Value)), TextFont: 20, Toggle: bptr(false), BgOpa: iptr(0), BorderWidth: iptr(0), Radius: iptr(0)})
	}
	return objects
}

func hintLabel(pageNum, base, x, y int, text string) Object {
	return Object{Page: pageNum, ID: base + 3, Obj: objLabel, X: iptr(x + 8), Y: iptr(y + tileH - 26), W: iptr(tileW - 16), H: iptr(22), Text: sptr(text), TextFont: 16, Align: "center", TextColor: "#9CA3AF", BgOpa: iptr(0), Click: bptr(false)}
}

func textOrPlaceholder(v string) string {
	if v == "" {
		return "--"
	}
	return v
}

func homePageObject(p *model.Panel) Object {
	obj := Object{Page: HomePage, ID: 0, Obj: objPage}
	pages := p.Pages()
	if len(pages) > 0 {
		obj.Prev = iptr(pages[len(pages)-1].Order)
		obj.Next = iptr(pages[0].Order)
	}
	return obj
}

// The navigation ring is the home page followed by the configured pages in
// ascending order; prev/next wrap around it.
func navRing(p *model.Panel) []int {
	ring := []int{HomePage}
	for _, page := range p.Pages() {
		ring = append(ring, page.Order)
	}
	return ring
}

func ringPrev(p *model.Panel, order int) int {
	ring := navRing(p)
	idx := lo.IndexOf(ring, order)
	if idx < 0 {
		return HomePage
	}
	return ring[(idx-1+len(ring))%len(ring)]
}

func ringNext(p *model.Panel, order int) int {
	ring := navRing(p)
	idx := lo.IndexOf(ring, order)
	if idx < 0 {
		return HomePage
	}
	return ring[(idx+1)%len(ring)]
}
