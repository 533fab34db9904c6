package ha

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/anicoll/dash480-integration/internal/pkg/model"
)

// Attributes carries the subset of entity attributes the engine renders or
// classifies on.
type Attributes struct {
	FriendlyName        string   `json:"friendly_name"`
	Percentage          *float64 `json:"percentage"`
	RGBColor            []int    `json:"rgb_color"`
	ColorTempKelvin     *int     `json:"color_temp_kelvin"`
	SupportedColorModes []string `json:"supported_color_modes"`
	UnitOfMeasurement   string   `json:"unit_of_measurement"`
}

type Entity struct {
	EntityID   string     `json:"entity_id"`
	State      string     `json:"state"`
	Attributes Attributes `json:"attributes"`
}

func (e Entity) Domain() string {
	domain, _, _ := strings.Cut(e.EntityID, ".")
	return domain
}

func (e Entity) IsOn() bool {
	return strings.EqualFold(e.State, "on")
}

// Known reports whether the state is usable for rendering.
func (e Entity) Known() bool {
	switch e.State {
	case "", "unknown", "unavailable":
		return false
	}
	return true
}

func (e Entity) FanPercentage() int {
	if e.Attributes.Percentage == nil {
		return 0
	}
	return int(*e.Attributes.Percentage)
}

// Classify resolves an entity's capability classification. It is called
// once at bind time; the result is immutable for the slot's lifetime.
func Classify(e Entity) model.Class {
	switch e.Domain() {
	case "switch":
		return model.ClassSwitch
	case "fan":
		return model.ClassFan
	case "light":
		colorModes := []string{"hs", "rgb", "rgbw", "rgbww"}
		hasColor := lo.SomeBy(e.Attributes.SupportedColorModes, func(mode string) bool {
			return lo.Contains(colorModes, strings.ToLower(mode))
		})
		if hasColor {
			return model.ClassColorLight
		}
		return model.ClassLight
	default:
		return model.ClassSensor
	}
}

// Websocket envelope types for the host platform's API.

type serverMessage struct {
	ID      int64           `json:"id"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Event   *eventMessage   `json:"event"`
	Message string          `json:"message"`
}

type eventMessage struct {
	EventType string          `json:"event_type"`
	Data      stateChangeData `json:"data"`
}

type stateChangeData struct {
	EntityID string  `json:"entity_id"`
	NewState *Entity `json:"new_state"`
}

type authMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token,omitempty"`
}

type commandMessage struct {
	ID          int64          `json:"id"`
	Type        string         `json:"type"`
	EventType   string         `json:"event_type,omitempty"`
	Domain      string         `json:"domain,omitempty"`
	Service     string         `json:"service,omitempty"`
	ServiceData map[string]any `json:"service_data,omitempty"`
}
