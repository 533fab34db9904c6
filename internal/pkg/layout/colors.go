package layout

// Recognized color names for color-capable light tiles. Anything else
// renders the default tint.
const (
	ColorOff   = "off"
	ColorRed   = "red"
	ColorGreen = "green"
	ColorBlue  = "blue"
	ColorWarm  = "warm"
	ColorCool  = "cool"
)

// DefaultTint is used while a light is off or its color is unknown.
const DefaultTint = "#FFFFFF"

var tintByColor = map[string]string{
	ColorRed:   "#FF0000",
	ColorGreen: "#00FF00",
	ColorBlue:  "#0000FF",
	ColorWarm:  "#FFD8A8",
	ColorCool:  "#D0E1FF",
}

// Tint maps a cached on/off + color-name pair to the tile icon tint.
func Tint(color string, on bool) string {
	if !on {
		return DefaultTint
	}
	if tint, ok := tintByColor[color]; ok {
		return tint
	}
	return DefaultTint
}

// ColorCommand resolves a color name into the service-call payload for an
// on-with-color command: either an RGB triple or a color temperature in
// kelvin. ok is false for ColorOff and unrecognized names.
func ColorCommand(color string) (rgb []int, kelvin int, ok bool) {
	switch color {
	case ColorRed:
		return []int{255, 0, 0}, 0, true
	case ColorGreen:
		return []int{0, 255, 0}, 0, true
	case ColorBlue:
		return []int{0, 0, 255}, 0, true
	case ColorWarm:
		return nil, 2700, true
	case ColorCool:
		return nil, 6500, true
	}
	return nil, 0, false
}

// ColorOptions are the color popup matrix entries, in selection-index order.
var ColorOptions = []string{"Off", "Red", "Green", "Blue", "Warm", "Cool"}

// ColorByIndex maps a popup selection index back to a color name.
func ColorByIndex(idx int) (string, bool) {
	names := []string{ColorOff, ColorRed, ColorGreen, ColorBlue, ColorWarm, ColorCool}
	if idx < 0 || idx >= len(names) {
		return "", false
	}
	return names[idx], true
}

// FanOptions are the fan popup matrix entries, in selection-index order.
var FanOptions = []string{"Off", "Low", "Med", "High"}

// FanBucket thresholds a fan percentage into its display label:
// 0 => Off, (0,33] => Low, (33,66] => Med, (66,100] => High.
func FanBucket(pct int) string {
	switch {
	case pct <= 0:
		return "Off"
	case pct <= 33:
		return "Low"
	case pct <= 66:
		return "Med"
	default:
		return "High"
	}
}

// FanPercentage maps a fan popup selection index to the commanded speed.
func FanPercentage(idx int) (int, bool) {
	pcts := []int{0, 33, 66, 100}
	if idx < 0 || idx >= len(pcts) {
		return 0, false
	}
	return pcts[idx], true
}
