package layout

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/dash480-integration/internal/pkg/model"
)

func testPanel(t *testing.T) *model.Panel {
	t.Helper()
	p := model.NewPanel("test")
	p.TempValue = "21.5"
	_, err := p.AddPage(2, "Lights")
	require.NoError(t, err)
	_, err = p.AddPage(3, "Climate")
	require.NoError(t, err)
	require.NoError(t, p.BindEntity(2, 0, model.EntityRef{ID: "light.hall", Class: model.ClassLight}))
	require.NoError(t, p.BindEntity(2, 1, model.EntityRef{ID: "fan.ceiling", Class: model.ClassFan}))
	require.NoError(t, p.BindEntity(2, 2, model.EntityRef{ID: "light.strip", Class: model.ClassColorLight}))
	require.NoError(t, p.BindEntity(3, 0, model.EntityRef{ID: "sensor.temp", Class: model.ClassSensor}))
	return p
}

func TestSerializeDeterministic(t *testing.T) {
	p := testPanel(t)

	first := Serialize(p)
	second := Serialize(p)
	require.Equal(t, len(first), len(second))
	for i := range first {
		a, err := first[i].JSONL()
		require.NoError(t, err)
		b, err := second[i].JSONL()
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestSerializeOrdering(t *testing.T) {
	p := testPanel(t)
	objects := Serialize(p)

	indexOf := func(ref string) int {
		for i, obj := range objects {
			if obj.Ref() == ref {
				return i
			}
		}
		t.Fatalf("object %s not emitted", ref)
		return -1
	}

	header := indexOf(fmt.Sprintf("p%d", HeaderPage))
	home := indexOf(fmt.Sprintf("p%d", HomePage))
	fanPopup := indexOf(fmt.Sprintf("p%d", FanPopupPage))
	colorPopup := indexOf(fmt.Sprintf("p%d", ColorPopupPage))
	page2 := indexOf("p2")
	page3 := indexOf("p3")
	fanTileButton := indexOf(fmt.Sprintf("p2b%d", TileBase(1)+2))

	assert.Less(t, header, home)
	assert.Less(t, home, fanPopup)
	assert.Less(t, fanPopup, colorPopup)
	// the popup templates must exist on the device before any tile that
	// navigates to them
	assert.Less(t, colorPopup, page2)
	assert.Less(t, colorPopup, fanTileButton)
	assert.Less(t, page2, page3)
}

func TestPageObjectsSkipsEmptySlots(t *testing.T) {
	p := model.NewPanel("test")
	page, err := p.AddPage(2, "Lights")
	require.NoError(t, err)
	require.NoError(t, p.BindEntity(2, 4, model.EntityRef{ID: "light.hall", Class: model.ClassLight}))

	objects := PageObjects(p, page)
	// page + background + tile card, label and button for the single binding
	require.Len(t, objects, 5)
	for _, obj := range objects {
		if slot, ok := SlotForObjectID(obj.ID); ok {
			assert.Equal(t, 4, slot)
		}
	}
}

func TestTileBaseRoundTrip(t *testing.T) {
	for slot := 0; slot < model.PageCapacity; slot++ {
		base := TileBase(slot)
		for offset := 0; offset <= 3; offset++ {
			got, ok := SlotForObjectID(base + offset)
			require.True(t, ok)
			assert.Equal(t, slot, got)
		}
	}

	for _, id := range []int{0, 5, 9, 14, 19, 90, 100, 112} {
		_, ok := SlotForObjectID(id)
		assert.False(t, ok, "id %d must not map to a slot", id)
	}
}

func TestFanTileHintShowsBucket(t *testing.T) {
	p := model.NewPanel("test")
	page, err := p.AddPage(2, "")
	require.NoError(t, err)
	require.NoError(t, p.BindEntity(2, 0, model.EntityRef{ID: "fan.ceiling", Class: model.ClassFan}))
	page.Slots[0].Render.On = true
	page.Slots[0].Render.Percentage = 66

	objects := PageObjects(p, page)
	hint, found := findObject(objects, 2, TileBase(0)+3)
	require.True(t, found)
	assert.Equal(t, "Med", *hint.Text)

	page.Slots[0].Render.On = false
	objects = PageObjects(p, page)
	hint, found = findObject(objects, 2, TileBase(0)+3)
	require.True(t, found)
	assert.Equal(t, "Off", *hint.Text)
}

func TestColorTileTintReflectsCache(t *testing.T) {
	p := model.NewPanel("test")
	page, err := p.AddPage(2, "")
	require.NoError(t, err)
	require.NoError(t, p.BindEntity(2, 0, model.EntityRef{ID: "light.strip", Class: model.ClassColorLight}))
	page.Slots[0].Render.On = true
	page.Slots[0].Render.Color = ColorRed

	objects := PageObjects(p, page)
	btn, found := findObject(objects, 2, TileBase(0)+2)
	require.True(t, found)
	assert.Equal(t, "#FF0000", btn.TextColor)
	assert.Equal(t, 1, *btn.Val)

	// off lights render the default tint regardless of cached color
	page.Slots[0].Render.On = false
	objects = PageObjects(p, page)
	btn, found = findObject(objects, 2, TileBase(0)+2)
	require.True(t, found)
	assert.Equal(t, DefaultTint, btn.TextColor)
	assert.Equal(t, 0, *btn.Val)
}

func TestSensorTilePlaceholder(t *testing.T) {
	p := model.NewPanel("test")
	page, err := p.AddPage(2, "")
	require.NoError(t, err)
	require.NoError(t, p.BindEntity(2, 0, model.EntityRef{ID: "sensor.temp", Class: model.ClassSensor}))

	objects := PageObjects(p, page)
	btn, found := findObject(objects, 2, TileBase(0)+2)
	require.True(t, found)
	assert.Equal(t, "--", *btn.Text)
	assert.False(t, *btn.Toggle)

	page.Slots[0].Render.Value = "21.5"
	objects = PageObjects(p, page)
	btn, found = findObject(objects, 2, TileBase(0)+2)
	require.True(t, found)
	assert.Equal(t, "21.5", *btn.Text)
}

func TestNavigationRingWraps(t *testing.T) {
	p := model.NewPanel("test")
	_, err := p.AddPage(2, "")
	require.NoError(t, err)
	_, err = p.AddPage(5, "")
	require.NoError(t, err)

	// ring is home, 2, 5
	assert.Equal(t, HomePage, ringPrev(p, 2))
	assert.Equal(t, 5, ringNext(p, 2))
	assert.Equal(t, 2, ringPrev(p, 5))
	assert.Equal(t, HomePage, ringNext(p, 5))

	objects := HomeObjects(p)
	home, found := findObject(objects, HomePage, 0)
	require.True(t, found)
	assert.Equal(t, 5, *home.Prev)
	assert.Equal(t, 2, *home.Next)
}

func TestObjectRef(t *testing.T) {
	assert.Equal(t, "p2", Object{Page: 2, ID: 0, Obj: "page"}.Ref())
	assert.Equal(t, "p2b32", Object{Page: 2, ID: 32, Obj: "btn"}.Ref())
	assert.Equal(t, "p2l33", Object{Page: 2, ID: 33, Obj: "label"}.Ref())
	assert.Equal(t, "p50m60", Object{Page: 50, ID: 60, Obj: "btnmatrix"}.Ref())
	assert.Equal(t, "p2o80", Object{Page: 2, ID: 80, Obj: "obj"}.Ref())
}

func findObject(objects []Object, page, id int) (Object, bool) {
	for _, obj := range objects {
		if obj.Page == page && obj.ID == id {
			return obj, true
		}
	}
	return Object{}, false
}
