package executor

import (
	"context"

	"Tapflow/pkg/types"
)

// Host is what the executor needs from the automation host. A nil element
// with a nil error means the text is not on screen.
type Host interface {
	FindTextOnScreen(ctx context.Context, text string, mode types.MatchMode) (*types.ScreenTextElement, error)
	AutoClickByText(ctx context.Context, text string, mode types.MatchMode) (*types.ScreenTextElement, error)
}

// GestureHost is implemented by hosts that can inject long presses and swipes.
// Without it those steps fall back to a tap.
type GestureHost interface {
	LongPress(ctx context.Context, x, y, durationMs int) error
	Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error
}
