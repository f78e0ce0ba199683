package types

// Orientation of the device screen when a session was captured
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// Valid reports whether o is one of the known orientations
func (o Orientation) Valid() bool {
	return o == OrientationPortrait || o == OrientationLandscape
}

// OrientationFor derives the orientation from screen dimensions
func OrientationFor(width, height int) Orientation {
	if width > height {
		return OrientationLandscape
	}
	return OrientationPortrait
}

// DeviceInfo is the normalization frame of a recording session.
// It is fixed once a session starts.
type DeviceInfo struct {
	Width       int         `json:"width" yaml:"width"`
	Height      int         `json:"height" yaml:"height"`
	Orientation Orientation `json:"orientation" yaml:"orientation"`
}

// Valid reports whether the frame has usable dimensions
func (d DeviceInfo) Valid() bool {
	return d.Width > 0 && d.Height > 0
}
