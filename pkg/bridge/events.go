// Package bridge models the message channel between the automation host and
// the engine. Payloads are concrete types keyed by event name; the engine
// never sees the transport.
package bridge

import (
	"Tapflow/pkg/types"
)

// EventName identifies a payload type on the channel
type EventName string

const (
	EventTouch       EventName = "touch"
	EventDeviceInfo  EventName = "device_info"
	EventScreenTexts EventName = "screen_texts"
)

// Event is implemented by every payload type
type Event interface {
	EventName() EventName
}

// TouchKind is the phase of a raw touch reported by the host
type TouchKind string

const (
	TouchDown TouchKind = "down"
	TouchMove TouchKind = "move"
	TouchUp   TouchKind = "up"
	TouchTap  TouchKind = "tap"
)

// TouchEvent is a raw touch in device pixels
type TouchEvent struct {
	Type        TouchKind `json:"type"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	Timestamp   int64     `json:"timestamp"` // ms
	Pressure    *float64  `json:"pressure,omitempty"`
	PointerType string    `json:"pointerType,omitempty"`
	VelocityX   *float64  `json:"velocityX,omitempty"`
	VelocityY   *float64  `json:"velocityY,omitempty"`
}

func (TouchEvent) EventName() EventName { return EventTouch }

// DeviceInfoEvent announces the current screen frame
type DeviceInfoEvent struct {
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Orientation types.Orientation `json:"orientation"`
}

func (DeviceInfoEvent) EventName() EventName { return EventDeviceInfo }

// DeviceInfo converts the payload to the shared model, deriving the
// orientation when the host left it out
func (e DeviceInfoEvent) DeviceInfo() types.DeviceInfo {
	o := e.Orientation
	if !o.Valid() {
		o = types.OrientationFor(e.Width, e.Height)
	}
	return types.DeviceInfo{Width: e.Width, Height: e.Height, Orientation: o}
}

// ScreenTextsEvent pushes a fresh snapshot of on-screen text
type ScreenTextsEvent struct {
	Elements []types.ScreenTextElement `json:"elements"`
}

func (ScreenTextsEvent) EventName() EventName { return EventScreenTexts }
