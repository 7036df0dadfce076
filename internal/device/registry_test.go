package device

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry_AssignsContiguousOffsets(t *testing.T) {
	reg := NewRegistry(MaxUniverseSize)

	schemas := [][]AttributeSchema{
		RGB(),
		RGBW(),
		{{Name: "pan", Encoding: EncodingTwoByte}, {Name: "globo", Encoding: EncodingEnum, Labels: []string{"open"}}},
		RGB(),
	}
	wantOffsets := []int{0, 3, 7, 10}
	wantWidths := []int{3, 4, 3, 3}

	for i, s := range schemas {
		d, err := reg.Register(string(rune('a'+i)), s)
		if err != nil {
			t.Fatalf("Register(%d) error = %v", i, err)
		}
		if d.Offset != wantOffsets[i] || d.Width != wantWidths[i] {
			t.Errorf("device %d at %d+%d, want %d+%d", i, d.Offset, d.Width, wantOffsets[i], wantWidths[i])
		}
	}

	if reg.Width() != 13 {
		t.Errorf("Width() = %d, want 13", reg.Width())
	}

	devices := reg.Devices()
	for i := 1; i < len(devices); i++ {
		if devices[i].Offset != devices[i-1].End() {
			t.Errorf("device %q does not start where %q ends", devices[i].Name, devices[i-1].Name)
		}
	}
}

func TestRegistry_AddressSpaceExhausted(t *testing.T) {
	reg := NewRegistry(MaxUniverseSize)

	// 170 RGB lights = 510 channels, one more would need 513.
	for i := range 170 {
		if _, err := reg.Register(name(i), RGB()); err != nil {
			t.Fatalf("Register(%d) error = %v", i, err)
		}
	}
	if _, err := reg.Register("overflow", RGB()); !errors.Is(err, ErrAddressSpaceExhausted) {
		t.Fatalf("Register() error = %v, want ErrAddressSpaceExhausted", err)
	}
	// A 2-channel device still fits exactly.
	if _, err := reg.Register("last", RGB()[:2]); err != nil {
		t.Fatalf("Register(last) error = %v", err)
	}
	if reg.Width() != MaxUniverseSize {
		t.Errorf("Width() = %d, want %d", reg.Width(), MaxUniverseSize)
	}
	if reg.Len() != 171 {
		t.Errorf("Len() = %d, want 171", reg.Len())
	}
}

func TestRegistry_SmallCapacity(t *testing.T) {
	reg := NewRegistry(4)
	if _, err := reg.Register("a", RGB()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := reg.Register("b", RGB()); !errors.Is(err, ErrAddressSpaceExhausted) {
		t.Errorf("Register() error = %v, want ErrAddressSpaceExhausted", err)
	}
	if got := NewRegistry(0).Capacity(); got != MaxUniverseSize {
		t.Errorf("NewRegistry(0).Capacity() = %d, want %d", got, MaxUniverseSize)
	}
	if got := NewRegistry(9000).Capacity(); got != MaxUniverseSize {
		t.Errorf("NewRegistry(9000).Capacity() = %d, want %d", got, MaxUniverseSize)
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		devName string
		schemas []AttributeSchema
		wantErr error
	}{
		{"empty name", "", RGB(), ErrInvalidDevice},
		{"no attributes", "x", nil, ErrInvalidDevice},
		{"unknown encoding", "x", []AttributeSchema{{Name: "a", Encoding: "threebyte"}}, ErrInvalidDevice},
		{"enum without labels", "x", []AttributeSchema{{Name: "a", Encoding: EncodingEnum}}, ErrInvalidDevice},
		{"duplicate attribute", "x", []AttributeSchema{{Name: "a", Encoding: EncodingOneByte}, {Name: "a", Encoding: EncodingOneByte}}, ErrInvalidDevice},
		{"attribute without name", "x", []AttributeSchema{{Encoding: EncodingOneByte}}, ErrInvalidDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(MaxUniverseSize)
			if _, err := reg.Register(tt.devName, tt.schemas); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
			if reg.Width() != 0 {
				t.Errorf("failed registration consumed %d channels", reg.Width())
			}
		})
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	reg := NewRegistry(MaxUniverseSize)
	if _, err := reg.Register("par1", RGB()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := reg.Register("par1", RGB()); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Register() error = %v, want ErrDeviceExists", err)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry(MaxUniverseSize)
	_, _ = reg.RegisterFixture("par1", "rgb", RGB())
	_, _ = reg.RegisterFixture("fx1", "effect", RGBW())
	_, _ = reg.RegisterFixture("par2", "rgb", RGB())

	d, err := reg.Device("fx1")
	if err != nil {
		t.Fatalf("Device() error = %v", err)
	}
	if d.Offset != 3 {
		t.Errorf("fx1 offset = %d, want 3", d.Offset)
	}

	if _, err := reg.Device("ghost"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("Device(ghost) error = %v, want ErrUnknownDevice", err)
	}

	sel, err := reg.Select("par2", "par1")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel[0].Name != "par2" || sel[1].Name != "par1" {
		t.Errorf("Select() order = %v", sel)
	}
	if _, err := reg.Select("par1", "ghost"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("Select() error = %v, want ErrUnknownDevice", err)
	}

	rgb := reg.ByFixture("rgb")
	if len(rgb) != 2 || rgb[0].Name != "par1" || rgb[1].Name != "par2" {
		t.Errorf("ByFixture(rgb) = %v", rgb)
	}

	layout := reg.Layout()
	if layout.Width != reg.Width() || len(layout.Devices) != 3 {
		t.Errorf("Layout() = %+v", layout)
	}
}

func TestRegistry_DevicesIsCopy(t *testing.T) {
	reg := NewRegistry(MaxUniverseSize)
	_, _ = reg.Register("par1", RGB())

	devices := reg.Devices()
	devices[0] = nil

	if reg.Devices()[0] == nil {
		t.Error("Devices() returned the internal slice")
	}
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	reg := NewRegistry(MaxUniverseSize)
	for i := range 10 {
		_, _ = reg.Register(name(i), RGB())
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 10 {
				if _, err := reg.Device(name(i)); err != nil {
					t.Errorf("Device() error = %v", err)
				}
				_ = reg.Width()
			}
		}()
	}
	wg.Wait()
}

func TestDevice_Slice(t *testing.T) {
	reg := NewRegistry(MaxUniverseSize)
	_, _ = reg.Register("a", RGB())
	b, _ := reg.Register("b", RGB())

	universe := []byte{1, 2, 3, 4, 5, 6}
	if got := b.Slice(universe); len(got) != 3 || got[0] != 4 {
		t.Errorf("Slice() = %v, want [4 5 6]", got)
	}
	if got := b.Slice(universe[:5]); got != nil {
		t.Errorf("Slice() of short universe = %v, want nil", got)
	}
	if b.String() != "b@3+3" {
		t.Errorf("String() = %q", b.String())
	}
}

func name(i int) string {
	return "light" + string(rune('A'+i/26)) + string(rune('a'+i%26))
}
