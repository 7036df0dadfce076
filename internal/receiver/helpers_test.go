package receiver

import (
	"testing"

	"github.com/nerrad567/lightshow-core/internal/device"
)

// testRegistry lays out par1 (0..2), par2 (3..5) and a mover with a
// two-byte pan and an enum gobo (6..8).
func testRegistry(t *testing.T) *device.Registry {
	t.Helper()
	reg := device.NewRegistry(0)
	for _, name := range []string{"par1", "par2"} {
		if _, err := reg.RegisterFixture(name, "rgb", device.RGB()); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}
	mover := []device.AttributeSchema{
		{Name: "pan", Encoding: device.EncodingTwoByte},
		{Name: "gobo", Encoding: device.EncodingEnum, Labels: []string{"open", "stars", "rings"}},
	}
	if _, err := reg.RegisterFixture("mover", "mover", mover); err != nil {
		t.Fatalf("Register(mover) error = %v", err)
	}
	return reg
}

func testDecoder(t *testing.T, policy Policy) *Decoder {
	t.Helper()
	layout := testRegistry(t).Layout()
	dec, err := NewDecoder(layout.Devices, layout.Width, policy)
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}
	return dec
}
