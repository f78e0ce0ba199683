package coords

import (
	"testing"

	"Tapflow/pkg/types"
)

var phone = types.DeviceInfo{Width: 1080, Height: 2400, Orientation: types.OrientationPortrait}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		x, y   int
		nx, ny float64
	}{
		{"origin", 0, 0, 0, 0},
		{"centre", 540, 1200, 0.5, 0.5},
		{"far corner", 1080, 2400, 1, 1},
		{"negative clamps", -10, -5, 0, 0},
		{"overflow clamps", 5000, 9000, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nx, ny := Normalize(tt.x, tt.y, phone)
			if nx != tt.nx || ny != tt.ny {
				t.Errorf("Normalize(%d,%d) = (%v,%v), want (%v,%v)", tt.x, tt.y, nx, ny, tt.nx, tt.ny)
			}
		})
	}
}

func TestNormalizeZeroFrame(t *testing.T) {
	nx, ny := Normalize(10, 10, types.DeviceInfo{})
	if nx != 0 || ny != 0 {
		t.Errorf("Expected (0,0) for empty frame, got (%v,%v)", nx, ny)
	}
}

func TestRoundTripSameDevice(t *testing.T) {
	for x := 0; x <= phone.Width; x += 37 {
		for y := 0; y <= phone.Height; y += 53 {
			nx, ny := Normalize(x, y, phone)
			gx, gy := Denormalize(nx, ny, phone)
			if abs(gx-x) > 1 || abs(gy-y) > 1 {
				t.Fatalf("round trip (%d,%d) -> (%d,%d)", x, y, gx, gy)
			}
		}
	}
}

func TestRescaleAcrossDevices(t *testing.T) {
	tablet := types.DeviceInfo{Width: 2160, Height: 4800}
	c := NewCoordinate(540, 600, phone)

	x, y := Rescale(c, tablet)
	if x != 1080 || y != 1200 {
		t.Errorf("Rescale = (%d,%d), want (1080,1200)", x, y)
	}
}

func TestScaleRaw(t *testing.T) {
	// Panel reports 0..4095 for a 1080 px wide display
	if got := ScaleRaw(4095, 0, 4095, 1080); got != 1080 {
		t.Errorf("ScaleRaw max = %d, want 1080", got)
	}
	if got := ScaleRaw(2048, 0, 4095, 1080); got != 540 {
		t.Errorf("ScaleRaw mid = %d, want 540", got)
	}
	if got := ScaleRaw(123, 0, 0, 1080); got != 123 {
		t.Errorf("ScaleRaw degenerate = %d, want 123", got)
	}
}

func TestParseResolution(t *testing.T) {
	d, ok := ParseResolution("Physical size: 2400x1080")
	if !ok {
		t.Fatal("expected resolution to parse")
	}
	if d.Width != 2400 || d.Height != 1080 || d.Orientation != types.OrientationLandscape {
		t.Errorf("unexpected %+v", d)
	}

	if _, ok := ParseResolution("no size here"); ok {
		t.Error("expected parse failure")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
