// Package replay plays recorded sessions back on a device, rescaling the
// normalized coordinates to the target screen
package replay

import (
	"context"
	"errors"
	"time"

	"Tapflow/pkg/coords"
	"Tapflow/pkg/logger"
	"Tapflow/pkg/recorder"
	"Tapflow/pkg/types"
)

// Host injects gestures on the target device
type Host interface {
	PerformTap(ctx context.Context, x, y int) error
	LongPress(ctx context.Context, x, y, durationMs int) error
	Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error
}

const minSwipeMillis = 50

// Options tunes playback
type Options struct {
	Speed      float64 // 2 plays twice as fast; default 1
	OnProgress func(current, total int)
}

// Result counts what was played
type Result struct {
	Gestures int `json:"gestures"`
	Played   int `json:"played"`
	Failed   int `json:"failed"`
}

var ErrNothingToReplay = errors.New("session has no gestures")

// Play replays session on host. Gestures are issued at their recorded offset
// divided by Speed; a failed gesture is logged and playback continues. An
// invalid target frame falls back to the session's own frame.
func Play(ctx context.Context, host Host, session *types.RecordingSession, target types.DeviceInfo, opts Options) (Result, error) {
	gestures := recorder.Compact(session)
	res := Result{Gestures: len(gestures)}
	if len(gestures) == 0 {
		return res, ErrNothingToReplay
	}

	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if !target.Valid() {
		target = session.DeviceInfo
	}

	timer := logger.StartOperation("replay", "play_session").
		AddDetail("session", session.ID).
		AddDetail("gestures", len(gestures)).
		AddDetail("speed", opts.Speed)

	logger.LogDebug("replay").
		Int("sourceW", session.DeviceInfo.Width).
		Int("sourceH", session.DeviceInfo.Height).
		Int("targetW", target.Width).
		Int("targetH", target.Height).
		Msg("Replay frame")

	start := time.Now()
	for i, g := range gestures {
		due := time.Duration(float64(g.Offset)/opts.Speed) * time.Millisecond
		if wait := due - time.Since(start); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				timer.EndWithError(ctx.Err())
				return res, ctx.Err()
			case <-t.C:
			}
		} else if ctx.Err() != nil {
			timer.EndWithError(ctx.Err())
			return res, ctx.Err()
		}

		if err := playGesture(ctx, host, g, target); err != nil {
			res.Failed++
			logger.LogWarn("replay").Err(err).Int("index", i).Str("type", string(g.Type)).Msg("Gesture failed")
		} else {
			res.Played++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(gestures))
		}
	}

	timer.AddDetail("played", res.Played).AddDetail("failed", res.Failed).End()
	return res, nil
}

func playGesture(ctx context.Context, host Host, g recorder.Gesture, target types.DeviceInfo) error {
	x1, y1 := coords.Rescale(g.Start, target)

	switch g.Type {
	case recorder.GestureLongPress:
		duration := int(g.Duration)
		if duration < recorder.LongPressMinDuration {
			duration = recorder.LongPressMinDuration
		}
		return host.LongPress(ctx, x1, y1, duration)
	case recorder.GestureSwipe:
		x2, y2 := coords.Rescale(g.End, target)
		return host.Swipe(ctx, x1, y1, x2, y2, max(int(g.Duration), minSwipeMillis))
	default:
		return host.PerformTap(ctx, x1, y1)
	}
}
