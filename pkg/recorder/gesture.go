package recorder

import (
	"Tapflow/pkg/types"
)

// GestureType is a replayable unit built from recorded actions
type GestureType string

const (
	GestureTap       GestureType = "tap"
	GestureLongPress GestureType = "long_press"
	GestureSwipe     GestureType = "swipe"
)

// Gesture thresholds
const (
	LongPressMinDuration = 500 // ms
	TapMaxTravel         = 50  // px
)

// Gesture is a folded touch sequence. Offset is relative to the first action
// of the session.
type Gesture struct {
	Type     GestureType      `json:"type"`
	Start    types.Coordinate `json:"start"`
	End      types.Coordinate `json:"end"`
	Offset   int64            `json:"offset"`   // ms
	Duration int64            `json:"duration"` // ms
}

// Compact folds swipe_start/move/end runs into gestures. A held touch that
// barely moves becomes a long press, a short one a tap, anything that
// travels a swipe. A run left open at the end of the session is closed at its
// last point.
func Compact(session *types.RecordingSession) []Gesture {
	if session == nil || len(session.Actions) == 0 {
		return nil
	}

	base := session.Actions[0].Timestamp
	var (
		gestures []Gesture
		start    *types.ActionRecord
		last     types.ActionRecord
	)

	finish := func(end types.ActionRecord) {
		gestures = append(gestures, classify(*start, end, base))
		start = nil
	}

	for i := range session.Actions {
		a := session.Actions[i]
		switch a.Type {
		case types.ActionTap:
			if start != nil {
				finish(last)
			}
			gestures = append(gestures, Gesture{
				Type:   GestureTap,
				Start:  a.Coordinates,
				End:    a.Coordinates,
				Offset: a.Timestamp - base,
			})
		case types.ActionSwipeStart:
			if start != nil {
				finish(last)
			}
			start = &a
			last = a
		case types.ActionSwipeMove:
			if start == nil {
				start = &a
			}
			last = a
		case types.ActionSwipeEnd:
			if start == nil {
				start = &a
			}
			finish(a)
		}
	}
	if start != nil {
		finish(last)
	}
	return gestures
}

func classify(start, end types.ActionRecord, base int64) Gesture {
	g := Gesture{
		Start:    start.Coordinates,
		End:      end.Coordinates,
		Offset:   start.Timestamp - base,
		Duration: end.Timestamp - start.Timestamp,
	}

	dx := end.Coordinates.X - start.Coordinates.X
	dy := end.Coordinates.Y - start.Coordinates.Y
	still := dx*dx+dy*dy < TapMaxTravel*TapMaxTravel

	switch {
	case still && g.Duration >= LongPressMinDuration:
		g.Type = GestureLongPress
		g.End = g.Start
	case still:
		g.Type = GestureTap
		g.End = g.Start
		g.Duration = 0
	default:
		g.Type = GestureSwipe
	}
	return g
}
