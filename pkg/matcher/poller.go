package matcher

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"Tapflow/pkg/logger"
	"Tapflow/pkg/types"
)

// ScreenSource supplies fresh text snapshots
type ScreenSource interface {
	ScreenTexts(ctx context.Context) ([]types.ScreenTextElement, error)
}

// Tapper performs a tap at device pixels
type Tapper interface {
	PerformTap(ctx context.Context, x, y int) error
}

// Hit is reported each time a target is found
type Hit struct {
	Target  types.TextMatchTarget   `json:"target"`
	Element types.ScreenTextElement `json:"element"`
	Clicked bool                    `json:"clicked"`
	At      time.Time               `json:"at"`
}

// PollerConfig tunes a Poller. Zero values select the defaults.
type PollerConfig struct {
	Interval        time.Duration // default 500ms
	DelayAfterClick time.Duration // default 1s, per-target value wins
	OnHit           func(Hit)
}

const (
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultDelayAfterClick = 1000 * time.Millisecond
)

// Poller repeatedly matches a set of targets against the screen
type Poller struct {
	source  ScreenSource
	tapper  Tapper
	targets []types.TextMatchTarget
	config  PollerConfig
	limiter *rate.Limiter

	ticks atomic.Int64
	hits  atomic.Int64
}

// NewPoller creates a poller. tapper may be nil when no target auto clicks.
func NewPoller(source ScreenSource, tapper Tapper, targets []types.TextMatchTarget, config PollerConfig) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultPollInterval
	}
	if config.DelayAfterClick <= 0 {
		config.DelayAfterClick = DefaultDelayAfterClick
	}
	t := make([]types.TextMatchTarget, len(targets))
	copy(t, targets)

	return &Poller{
		source:  source,
		tapper:  tapper,
		targets: t,
		config:  config,
		limiter: rate.NewLimiter(rate.Every(config.Interval), 1),
	}
}

// Run polls until ctx is done. It returns nil on cancellation.
func (p *Poller) Run(ctx context.Context) error {
	logger.LogInfo("matcher").Int("targets", len(p.targets)).Dur("interval", p.config.Interval).Msg("Target watch started")
	defer func() {
		logger.LogInfo("matcher").Int64("ticks", p.ticks.Load()).Int64("hits", p.hits.Load()).Msg("Target watch stopped")
	}()

	for {
		if err := p.limiter.Wait(ctx); err != nil {
			// Wait also fails early when the next slot lies past the deadline
			<-ctx.Done()
			return nil
		}
		p.ticks.Add(1)

		hit, ok := p.tick(ctx)
		if !ok {
			continue
		}
		p.hits.Add(1)
		if p.config.OnHit != nil {
			p.config.OnHit(hit)
		}

		if hit.Clicked {
			delay := p.config.DelayAfterClick
			if hit.Target.DelayAfterClick > 0 {
				delay = time.Duration(hit.Target.DelayAfterClick) * time.Millisecond
			}
			if !sleepCtx(ctx, delay) {
				return nil
			}
		}
	}
}

func (p *Poller) tick(ctx context.Context) (Hit, bool) {
	elements, err := p.source.ScreenTexts(ctx)
	if err != nil {
		logger.LogDebug("matcher").Err(err).Msg("Screen snapshot failed, treating as empty")
		elements = nil
	}

	target, element, ok := MatchByPriority(p.targets, elements)
	if !ok {
		return Hit{}, false
	}

	hit := Hit{Target: target, Element: element, At: time.Now()}
	logger.LogDebug("matcher").Str("target", target.ID).Str("text", element.Text).Msg("Target found")

	if target.AutoClick && p.tapper != nil {
		x, y := element.Center()
		if err := p.tapper.PerformTap(ctx, x, y); err != nil {
			logger.LogWarn("matcher").Err(err).Str("target", target.ID).Msg("Auto click failed")
		} else {
			hit.Clicked = true
		}
	}
	return hit, true
}

// Stats returns the number of ticks and hits so far
func (p *Poller) Stats() (ticks, hits int64) {
	return p.ticks.Load(), p.hits.Load()
}

// sleepCtx waits d or until ctx is done, reporting whether the full wait
// elapsed
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
