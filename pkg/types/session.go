package types

import "time"

// ActionType is the kind of a recorded touch action
type ActionType string

const (
	ActionTap        ActionType = "tap"
	ActionSwipeStart ActionType = "swipe_start"
	ActionSwipeMove  ActionType = "swipe_move"
	ActionSwipeEnd   ActionType = "swipe_end"
)

// Coordinate stores a touch position both in raw pixels and as a fraction of
// the session's screen size. Replay on another resolution uses the normalized
// values.
type Coordinate struct {
	X           int     `json:"x"`
	Y           int     `json:"y"`
	NormalizedX float64 `json:"normalizedX"`
	NormalizedY float64 `json:"normalizedY"`
}

// TouchMeta carries optional informational data about a touch
type TouchMeta struct {
	PointerType string  `json:"pointerType,omitempty"`
	Pressure    float64 `json:"pressure,omitempty"`
	VelocityX   float64 `json:"velocityX,omitempty"`
	VelocityY   float64 `json:"velocityY,omitempty"`
}

// ActionRecord is a single captured touch action
type ActionRecord struct {
	Type        ActionType `json:"type"`
	Timestamp   int64      `json:"timestamp"` // ms, non-decreasing within a session
	Coordinates Coordinate `json:"coordinates"`
	Meta        *TouchMeta `json:"meta,omitempty"`
}

// RecordingSession is one bounded recording of touch gestures plus the device
// frame needed to replay it elsewhere
type RecordingSession struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	StartTime  time.Time      `json:"startTime"`
	EndTime    *time.Time     `json:"endTime,omitempty"`
	DeviceInfo DeviceInfo     `json:"deviceInfo"`
	Actions    []ActionRecord `json:"actions"`
}

// IsOpen reports whether the session has not been sealed yet
func (s *RecordingSession) IsOpen() bool {
	return s.EndTime == nil
}

// Duration returns the wall time between start and end, zero while open
func (s *RecordingSession) Duration() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Clone returns a deep copy that shares no memory with s
func (s *RecordingSession) Clone() *RecordingSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	c.Actions = make([]ActionRecord, len(s.Actions))
	for i, a := range s.Actions {
		if a.Meta != nil {
			meta := *a.Meta
			a.Meta = &meta
		}
		c.Actions[i] = a
	}
	return &c
}
