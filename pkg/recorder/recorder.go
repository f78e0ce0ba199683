// Package recorder captures touch gestures into recording sessions whose
// coordinates are normalized against the device frame at capture time.
package recorder

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"Tapflow/pkg/bridge"
	"Tapflow/pkg/coords"
	"Tapflow/pkg/logger"
	"Tapflow/pkg/types"
)

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNoActiveSession  = errors.New("no active recording session")
	ErrEmptySession     = errors.New("recording session captured no actions")
	ErrNoDeviceInfo     = errors.New("no device info received")
	ErrInvalidDevice    = errors.New("device dimensions must be positive")
)

// Recorder holds at most one open session. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	current *types.RecordingSession
	pending *types.DeviceInfo // last device_info seen while idle
	now     func() time.Time
}

// New creates an idle recorder
func New() *Recorder {
	return &Recorder{now: time.Now}
}

// StartRecording opens a new session with the given frame
func (r *Recorder) StartRecording(width, height int, orientation types.Orientation) error {
	if width <= 0 || height <= 0 {
		logger.LogWarn("recorder").Int("width", width).Int("height", height).Msg("Rejecting recording with invalid frame")
		return ErrInvalidDevice
	}
	if !orientation.Valid() {
		orientation = types.OrientationFor(width, height)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		logger.LogWarn("recorder").Str("session", r.current.ID).Msg("Recording already in progress")
		return ErrAlreadyRecording
	}

	r.current = &types.RecordingSession{
		ID:        uuid.New().String(),
		StartTime: r.now(),
		DeviceInfo: types.DeviceInfo{
			Width:       width,
			Height:      height,
			Orientation: orientation,
		},
		Actions: []types.ActionRecord{},
	}

	logger.LogInfo("recorder").
		Str("session", r.current.ID).
		Int("width", width).
		Int("height", height).
		Str("orientation", string(orientation)).
		Msg("Recording started")
	return nil
}

// StartWithDevice opens a session using the last device_info event received
// through Attach
func (r *Recorder) StartWithDevice() error {
	r.mu.Lock()
	pending := r.pending
	r.mu.Unlock()

	if pending == nil {
		return ErrNoDeviceInfo
	}
	return r.StartRecording(pending.Width, pending.Height, pending.Orientation)
}

// RecordTouch appends action to the open session. The normalized coordinates
// are recomputed from the raw ones against the session frame, and a timestamp
// older than the previous action is raised to it.
func (r *Recorder) RecordTouch(action types.ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		logger.LogWarn("recorder").Str("type", string(action.Type)).Msg("Touch received with no active session")
		return ErrNoActiveSession
	}

	action.Coordinates = coords.NewCoordinate(action.Coordinates.X, action.Coordinates.Y, r.current.DeviceInfo)

	if n := len(r.current.Actions); n > 0 {
		if last := r.current.Actions[n-1].Timestamp; action.Timestamp < last {
			action.Timestamp = last
		}
	}
	if action.Meta != nil {
		meta := *action.Meta
		action.Meta = &meta
	}

	r.current.Actions = append(r.current.Actions, action)
	return nil
}

// StopRecording seals the open session and hands it to the caller. A session
// without actions is still returned, together with ErrEmptySession.
func (r *Recorder) StopRecording() (*types.RecordingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		logger.LogWarn("recorder").Msg("Stop requested with no active session")
		return nil, ErrNoActiveSession
	}

	end := r.now()
	r.current.EndTime = &end
	session := r.current.Clone()
	r.current = nil

	logger.LogInfo("recorder").
		Str("session", session.ID).
		Int("actions", len(session.Actions)).
		Dur("duration", session.Duration()).
		Msg("Recording stopped")

	if len(session.Actions) == 0 {
		return session, ErrEmptySession
	}
	return session, nil
}

// IsCurrentlyRecording reports whether a session is open
func (r *Recorder) IsCurrentlyRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// CurrentSession returns a copy of the open session, or nil
func (r *Recorder) CurrentSession() *types.RecordingSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Clone()
}

// HandleTouch converts a host touch event and records it
func (r *Recorder) HandleTouch(ev bridge.TouchEvent) error {
	var kind types.ActionType
	switch ev.Type {
	case bridge.TouchDown:
		kind = types.ActionSwipeStart
	case bridge.TouchMove:
		kind = types.ActionSwipeMove
	case bridge.TouchUp:
		kind = types.ActionSwipeEnd
	case bridge.TouchTap:
		kind = types.ActionTap
	default:
		logger.LogDebug("recorder").Str("type", string(ev.Type)).Msg("Ignoring unknown touch kind")
		return nil
	}

	action := types.ActionRecord{
		Type:        kind,
		Timestamp:   ev.Timestamp,
		Coordinates: types.Coordinate{X: ev.X, Y: ev.Y},
	}
	if meta := touchMeta(ev); meta != nil {
		action.Meta = meta
	}
	return r.RecordTouch(action)
}

func touchMeta(ev bridge.TouchEvent) *types.TouchMeta {
	if ev.Pressure == nil && ev.PointerType == "" && ev.VelocityX == nil && ev.VelocityY == nil {
		return nil
	}
	meta := &types.TouchMeta{PointerType: ev.PointerType}
	if ev.Pressure != nil {
		meta.Pressure = *ev.Pressure
	}
	if ev.VelocityX != nil {
		meta.VelocityX = *ev.VelocityX
	}
	if ev.VelocityY != nil {
		meta.VelocityY = *ev.VelocityY
	}
	return meta
}

// Attach feeds touch and device_info events from ch into the recorder.
// Device info seen while idle becomes the frame for StartWithDevice; the
// frame of an open session never changes.
func (r *Recorder) Attach(ch bridge.Channel) func() {
	offTouch := ch.Subscribe(bridge.EventTouch, func(ev bridge.Event) {
		if touch, ok := ev.(bridge.TouchEvent); ok {
			_ = r.HandleTouch(touch)
		}
	})
	offDevice := ch.Subscribe(bridge.EventDeviceInfo, func(ev bridge.Event) {
		info, ok := ev.(bridge.DeviceInfoEvent)
		if !ok {
			return
		}
		device := info.DeviceInfo()
		if !device.Valid() {
			return
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		r.pending = &device
		if r.current != nil {
			logger.LogDebug("recorder").
				Int("width", device.Width).
				Int("height", device.Height).
				Msg("Device changed during recording, keeping session frame")
		}
	})

	return func() {
		offTouch()
		offDevice()
	}
}
