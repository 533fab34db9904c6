package ha

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/dash480-integration/internal/pkg/model"
)

func TestEntityDomain(t *testing.T) {
	assert.Equal(t, "light", Entity{EntityID: "light.hall"}.Domain())
	assert.Equal(t, "sensor", Entity{EntityID: "sensor.outdoor_temp"}.Domain())
	assert.Equal(t, "oddball", Entity{EntityID: "oddball"}.Domain())
}

func TestEntityIsOn(t *testing.T) {
	assert.True(t, Entity{State: "on"}.IsOn())
	assert.True(t, Entity{State: "ON"}.IsOn())
	assert.False(t, Entity{State: "off"}.IsOn())
	assert.False(t, Entity{State: "unavailable"}.IsOn())
}

func TestEntityKnown(t *testing.T) {
	assert.True(t, Entity{State: "22.5"}.Known())
	assert.True(t, Entity{State: "off"}.Known())
	assert.False(t, Entity{State: ""}.Known())
	assert.False(t, Entity{State: "unknown"}.Known())
	assert.False(t, Entity{State: "unavailable"}.Known())
}

func TestEntityFanPercentage(t *testing.T) {
	pct := 66.0
	assert.Equal(t, 66, Entity{Attributes: Attributes{Percentage: &pct}}.FanPercentage())
	assert.Equal(t, 0, Entity{}.FanPercentage())
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		entity Entity
		want   model.Class
	}{
		{
			name:   "switch",
			entity: Entity{EntityID: "switch.relay"},
			want:   model.ClassSwitch,
		},
		{
			name:   "fan",
			entity: Entity{EntityID: "fan.ceiling"},
			want:   model.ClassFan,
		},
		{
			name:   "plain light",
			entity: Entity{EntityID: "light.hall", Attributes: Attributes{SupportedColorModes: []string{"brightness"}}},
			want:   model.ClassLight,
		},
		{
			name:   "color light via rgb",
			entity: Entity{EntityID: "light.strip", Attributes: Attributes{SupportedColorModes: []string{"color_temp", "rgb"}}},
			want:   model.ClassColorLight,
		},
		{
			name:   "color light via hs uppercase",
			entity: Entity{EntityID: "light.strip", Attributes: Attributes{SupportedColorModes: []string{"HS"}}},
			want:   model.ClassColorLight,
		},
		{
			name:   "temp-only light stays plain",
			entity: Entity{EntityID: "light.bedroom", Attributes: Attributes{SupportedColorModes: []string{"color_temp"}}},
			want:   model.ClassLight,
		},
		{
			name:   "anything else is a sensor",
			entity: Entity{EntityID: "sensor.outdoor"},
			want:   model.ClassSensor,
		},
		{
			name:   "binary sensor is read-only",
			entity: Entity{EntityID: "binary_sensor.door"},
			want:   model.ClassSensor,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.entity))
		})
	}
}

func TestServerMessageDecoding(t *testing.T) {
	raw := []byte(`{
		"id": 5,
		"type": "event",
		"event": {
			"event_type": "state_changed",
			"data": {
				"entity_id": "light.hall",
				"new_state": {
					"entity_id": "light.hall",
					"state": "on",
					"attributes": {
						"friendly_name": "Hall Light",
						"rgb_color": [255, 0, 0],
						"supported_color_modes": ["rgb"]
					}
				}
			}
		}
	}`)

	var msg serverMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	require.NotNil(t, msg.Event)
	assert.Equal(t, "state_changed", msg.Event.EventType)
	require.NotNil(t, msg.Event.Data.NewState)
	assert.Equal(t, "light.hall", msg.Event.Data.NewState.EntityID)
	assert.True(t, msg.Event.Data.NewState.IsOn())
	assert.Equal(t, "Hall Light", msg.Event.Data.NewState.Attributes.FriendlyName)
	assert.Equal(t, []int{255, 0, 0}, msg.Event.Data.NewState.Attributes.RGBColor)
}

func TestHandleEventDispatchesToSubscribers(t *testing.T) {
	c := New(nil, make(chan error, 1))

	var got []Entity
	unsub := c.OnStateChange("light.hall", func(e Entity) {
		got = append(got, e)
	})

	c.handleEvent(&eventMessage{
		EventType: "state_changed",
		Data: stateChangeData{
			EntityID: "light.hall",
			NewState: &Entity{EntityID: "light.hall", State: "on"},
		},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "on", got[0].State)

	// the cache is primed for later Resolve calls
	cached, ok := c.Resolve("light.hall")
	require.True(t, ok)
	assert.Equal(t, "on", cached.State)

	// other entities do not trigger the handler
	c.handleEvent(&eventMessage{
		EventType: "state_changed",
		Data: stateChangeData{
			EntityID: "light.other",
			NewState: &Entity{EntityID: "light.other", State: "off"},
		},
	})
	assert.Len(t, got, 1)

	unsub()
	c.handleEvent(&eventMessage{
		EventType: "state_changed",
		Data: stateChangeData{
			EntityID: "light.hall",
			NewState: &Entity{EntityID: "light.hall", State: "off"},
		},
	})
	assert.Len(t, got, 1)
}

func TestHandleEventIgnoresRemovals(t *testing.T) {
	c := New(nil, make(chan error, 1))
	called := false
	c.OnStateChange("light.hall", func(Entity) { called = true })

	c.handleEvent(nil)
	c.handleEvent(&eventMessage{EventType: "state_changed", Data: stateChangeData{EntityID: "light.hall"}})
	c.handleEvent(&eventMessage{EventType: "other_event"})
	assert.False(t, called)
}
