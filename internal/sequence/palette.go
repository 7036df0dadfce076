package sequence

import (
	"maps"
	"slices"
	"strings"

	"github.com/nerrad567/lightshow-core/internal/device"
)

// Palette colours for RGB fixtures.
var palette = map[string]device.Values{
	"BLACK":   rgb(0, 0, 0),
	"WHITE":   rgb(1, 1, 1),
	"RED":     rgb(1, 0, 0),
	"GREEN":   rgb(0, 1, 0),
	"BLUE":    rgb(0, 0, 1),
	"YELLOW":  rgb(1, 1, 0),
	"CYAN":    rgb(0, 1, 1),
	"MAGENTA": rgb(1, 0, 1),
	"ORANGE":  rgb(1, 0.5, 0),
	"PURPLE":  rgb(0.5, 0, 1),
}

func rgb(r, g, b float64) device.Values {
	return device.Values{"red": r, "green": g, "blue": b}
}

// Color returns a copy of the named palette colour. Names are case-insensitive.
func Color(name string) (device.Values, bool) {
	v, ok := palette[strings.ToUpper(name)]
	if !ok {
		return nil, false
	}
	return v.Merge(nil), true
}

// ColorNames returns the palette names in sorted order.
func ColorNames() []string {
	return slices.Sorted(maps.Keys(palette))
}

// colorDevices returns the devices in dc that carry red, green and blue.
func colorDevices(dc DeviceCollection) []*device.Device {
	var out []*device.Device
	for _, d := range dc.Devices() {
		if hasAttributes(d, "red", "green", "blue") {
			out = append(out, d)
		}
	}
	return out
}

func hasAttributes(d *device.Device, names ...string) bool {
	for _, n := range names {
		if _, _, ok := d.Attribute(n); !ok {
			return false
		}
	}
	return true
}
