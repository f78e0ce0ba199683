package adb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"Tapflow/pkg/coords"
	"Tapflow/pkg/executor"
	"Tapflow/pkg/logger"
	"Tapflow/pkg/matcher"
	"Tapflow/pkg/replay"
	"Tapflow/pkg/types"
)

// Min time between two uiautomator dumps
const dumpMinInterval = 500 * time.Millisecond

// Host is the automation host backed by one adb device
type Host struct {
	client  *Client
	limiter *rate.Limiter
}

var (
	_ executor.Host        = (*Host)(nil)
	_ executor.GestureHost = (*Host)(nil)
	_ matcher.ScreenSource = (*Host)(nil)
	_ matcher.Tapper       = (*Host)(nil)
	_ replay.Host          = (*Host)(nil)
)

// NewHost wraps client
func NewHost(client *Client) *Host {
	return &Host{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(dumpMinInterval), 1),
	}
}

// Client returns the underlying adb client
func (h *Host) Client() *Client {
	return h.client
}

// ScreenTexts dumps the UI and returns its text elements
func (h *Host) ScreenTexts(ctx context.Context) ([]types.ScreenTextElement, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	hierarchy, err := h.client.DumpHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	elements := hierarchy.TextElements()

	logger.LogDebug("adb").
		Int("elements", len(elements)).
		Dur("elapsed", time.Since(start)).
		Msg("Screen texts captured")
	return elements, nil
}

// FindTextOnScreen returns the first element matching text, nil when absent
func (h *Host) FindTextOnScreen(ctx context.Context, text string, mode types.MatchMode) (*types.ScreenTextElement, error) {
	elements, err := h.ScreenTexts(ctx)
	if err != nil {
		return nil, err
	}
	return matcher.FindText(elements, text, mode).Element, nil
}

// AutoClickByText finds text on screen and taps its centre
func (h *Host) AutoClickByText(ctx context.Context, text string, mode types.MatchMode) (*types.ScreenTextElement, error) {
	el, err := h.FindTextOnScreen(ctx, text, mode)
	if err != nil || el == nil {
		return nil, err
	}
	x, y := el.Center()
	if err := h.PerformTap(ctx, x, y); err != nil {
		return nil, err
	}
	return el, nil
}

// PerformTap taps at device pixels
func (h *Host) PerformTap(ctx context.Context, x, y int) error {
	logger.LogDebug("adb").Int("x", x).Int("y", y).Msg("Executing TAP")
	_, err := h.client.Shell(ctx, fmt.Sprintf("input tap %d %d", x, y))
	return err
}

// LongPress holds a point by swiping onto itself
func (h *Host) LongPress(ctx context.Context, x, y, durationMs int) error {
	logger.LogDebug("adb").Int("x", x).Int("y", y).Int("duration", durationMs).Msg("Executing LONG_PRESS")
	_, err := h.client.Shell(ctx, fmt.Sprintf("input swipe %d %d %d %d %d", x, y, x, y, durationMs))
	return err
}

// Swipe drags from (x1, y1) to (x2, y2)
func (h *Host) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	logger.LogDebug("adb").Int("x1", x1).Int("y1", y1).Int("x2", x2).Int("y2", y2).Msg("Executing SWIPE")
	_, err := h.client.Shell(ctx, fmt.Sprintf("input swipe %d %d %d %d %d", x1, y1, x2, y2, durationMs))
	return err
}

// DeviceInfo reads the screen size from `wm size`, preferring an override
// over the physical size
func (h *Host) DeviceInfo(ctx context.Context) (types.DeviceInfo, error) {
	output, err := h.client.Shell(ctx, "wm size")
	if err != nil {
		return types.DeviceInfo{}, err
	}

	line := output
	for _, l := range strings.Split(output, "\n") {
		if strings.Contains(l, "Override size") {
			line = l
			break
		}
	}
	info, ok := coords.ParseResolution(line)
	if !ok {
		return types.DeviceInfo{}, fmt.Errorf("unexpected wm size output: %q", output)
	}
	return info, nil
}
