// Package coords maps touch positions between raw device pixels and
// resolution independent [0,1] coordinates.
package coords

import (
	"math"
	"regexp"
	"strconv"

	"Tapflow/pkg/types"
)

// Normalize maps a pixel point onto [0,1]x[0,1] relative to device.
// Points outside the screen are clamped; a zero dimension yields 0.
func Normalize(x, y int, device types.DeviceInfo) (float64, float64) {
	return normalizeAxis(x, device.Width), normalizeAxis(y, device.Height)
}

func normalizeAxis(v, size int) float64 {
	if size <= 0 {
		return 0
	}
	return clamp(float64(v)/float64(size), 0, 1)
}

// Denormalize maps a normalized point back to pixels on device
func Denormalize(nx, ny float64, device types.DeviceInfo) (int, int) {
	x := int(math.Round(clamp(nx, 0, 1) * float64(device.Width)))
	y := int(math.Round(clamp(ny, 0, 1) * float64(device.Height)))
	return x, y
}

// NewCoordinate builds a Coordinate holding both representations
func NewCoordinate(x, y int, device types.DeviceInfo) types.Coordinate {
	nx, ny := Normalize(x, y, device)
	return types.Coordinate{X: x, Y: y, NormalizedX: nx, NormalizedY: ny}
}

// Rescale converts a coordinate captured on one device into pixels on target
func Rescale(c types.Coordinate, target types.DeviceInfo) (int, int) {
	return Denormalize(c.NormalizedX, c.NormalizedY, target)
}

// ScaleRaw maps a touch panel axis value in [min, max] onto [0, screen).
// Panels often report a wider range than the display resolution, so the
// value is scaled by the inclusive range width. A degenerate range returns
// raw unchanged.
func ScaleRaw(raw, min, max, screen int) int {
	if max <= min || screen <= 0 {
		return raw
	}
	width := float64(max - min + 1)
	return int(float64(raw-min)*float64(screen)/width + 0.5)
}

var resolutionRe = regexp.MustCompile(`(\d+)x(\d+)`)

// ParseResolution extracts "WxH" from strings such as "Physical size: 1080x2400"
func ParseResolution(s string) (types.DeviceInfo, bool) {
	m := resolutionRe.FindStringSubmatch(s)
	if len(m) < 3 {
		return types.DeviceInfo{}, false
	}
	w, err1 := strconv.Atoi(m[1])
	h, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return types.DeviceInfo{}, false
	}
	return types.DeviceInfo{Width: w, Height: h, Orientation: types.OrientationFor(w, h)}, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
