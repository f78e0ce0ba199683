// Package executor runs scripts of "wait for text, then act" steps against a
// host, polling the screen with timeouts and supporting cancellation.
package executor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"Tapflow/pkg/logger"
	"Tapflow/pkg/types"
)

const (
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultLongPressMillis = 1000
)

// Options tunes an Executor
type Options struct {
	PollInterval  time.Duration // default 500ms
	OnStateChange func(types.ScriptExecutionState)
	OnStep        func(StepResult)
}

// StepResult describes one completed step
type StepResult struct {
	Index    int                      `json:"index"`
	StepID   string                   `json:"stepId"`
	Attempts int                      `json:"attempts"`
	Element  *types.ScreenTextElement `json:"element,omitempty"`
	Action   types.StepAction         `json:"action"`
	Fallback bool                     `json:"fallback,omitempty"` // gesture replaced by a tap
	Duration time.Duration            `json:"duration"`
}

// Result is the outcome of one execution
type Result struct {
	RunID         string               `json:"runId"`
	Success       bool                 `json:"success"`
	ExecutedSteps int                  `json:"executedSteps"`
	Phase         types.ExecutionPhase `json:"phase"`
	Steps         []StepResult         `json:"steps"`
	Err           error                `json:"-"`
	Duration      time.Duration        `json:"duration"`
}

// Executor runs one script at a time
type Executor struct {
	host Host
	opts Options

	mu     sync.Mutex
	state  types.ScriptExecutionState
	cancel context.CancelFunc
	runID  string
	done   chan struct{}
}

// New creates an idle executor driving host
func New(host Host, opts Options) *Executor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Executor{
		host:  host,
		opts:  opts,
		state: types.ScriptExecutionState{Phase: types.PhaseIdle},
	}
}

// State returns a snapshot of the executor state
func (e *Executor) State() types.ScriptExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsRunning reports whether an execution is in progress
func (e *Executor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.IsRunning
}

// Execute runs steps and blocks until the script ends. The returned error is
// a rejection (ErrAlreadyRunning, ErrNoSteps) or the step failure also held
// in Result.Err; a cancelled run returns a nil error.
func (e *Executor) Execute(ctx context.Context, steps []types.ScriptStep) (Result, error) {
	h, err := e.begin(ctx, steps)
	if err != nil {
		return Result{}, err
	}
	defer close(h.done)
	defer h.cancel()

	res := e.run(h, steps)
	return res, res.Err
}

// Start runs steps in a background goroutine. onComplete, when set, receives
// the success flag and the executed step count once the script ends.
func (e *Executor) Start(ctx context.Context, steps []types.ScriptStep, onComplete func(success bool, executed int)) error {
	h, err := e.begin(ctx, steps)
	if err != nil {
		return err
	}

	go func() {
		defer close(h.done)
		defer h.cancel()
		res := e.run(h, steps)
		if onComplete != nil {
			onComplete(res.Success, res.ExecutedSteps)
		}
	}()
	return nil
}

// Stop cancels the running script. It reports whether one was running.
func (e *Executor) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.IsRunning || e.cancel == nil {
		return false
	}
	logger.LogInfo("executor").Str("run", e.runID).Msg("Stop requested")
	e.cancel()
	return true
}

// Wait blocks until the current execution, if any, has finished
func (e *Executor) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// runHandle is owned by a single execution
type runHandle struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (e *Executor) begin(parent context.Context, steps []types.ScriptStep) (*runHandle, error) {
	e.mu.Lock()

	if e.state.IsRunning {
		e.mu.Unlock()
		logger.LogWarn("executor").Str("run", e.runID).Msg("Script already running")
		return nil, ErrAlreadyRunning
	}
	if len(steps) == 0 {
		e.mu.Unlock()
		logger.LogWarn("executor").Msg("Refusing to run empty script")
		return nil, ErrNoSteps
	}

	ctx, cancel := context.WithCancel(parent)
	e.cancel = cancel
	e.runID = uuid.New().String()
	e.done = make(chan struct{})
	e.state = types.ScriptExecutionState{
		Phase:      types.PhaseRunning,
		IsRunning:  true,
		TotalSteps: len(steps),
		StartTime:  time.Now(),
	}
	h := &runHandle{id: e.runID, ctx: ctx, cancel: cancel, done: e.done}
	snapshot := e.state
	e.mu.Unlock()

	e.notify(snapshot)
	return h, nil
}

func (e *Executor) run(h *runHandle, steps []types.ScriptStep) Result {
	ctx, runID := h.ctx, h.id

	timer := logger.StartOperation("executor", "run_script").
		AddDetail("run", runID).
		AddDetail("steps", len(steps))
	started := time.Now()

	res := Result{RunID: runID}
	finish := func(phase types.ExecutionPhase, executed int, err error) Result {
		res.Phase = phase
		res.Success = phase == types.PhaseCompleted
		res.ExecutedSteps = executed
		res.Err = err
		res.Duration = time.Since(started)
		e.finish(h, phase, executed, err)

		timer.AddDetail("phase", string(phase)).AddDetail("executed", executed)
		if err != nil {
			timer.EndWithError(err)
		} else {
			timer.End()
		}
		return res
	}

	for i, raw := range steps {
		step := raw.WithDefaults()
		e.update(func(s *types.ScriptExecutionState) { s.CurrentStepIndex = i })

		// A step whose action went through counts even if Stop arrived
		// meanwhile; cancellation is then observed at the following wait.
		sr, err := e.runStep(ctx, i, step)
		if err != nil && ctx.Err() != nil {
			return finish(types.PhaseCancelled, i, nil)
		}
		if err != nil {
			logger.LogWarn("executor").Err(err).Int("step", i).Msg("Step failed")
			return finish(types.PhaseFailed, i+1, err)
		}

		res.Steps = append(res.Steps, sr)
		if e.opts.OnStep != nil {
			e.opts.OnStep(sr)
		}
		e.update(func(s *types.ScriptExecutionState) {
			s.ExecutedSteps = i + 1
			s.Progress = float64(i+1) / float64(len(steps))
		})

		if !sleepCtx(ctx, millis(step.WaitAfterAction)) || !sleepCtx(ctx, millis(step.NextStepDelay)) {
			return finish(types.PhaseCancelled, i+1, nil)
		}
	}

	return finish(types.PhaseCompleted, len(steps), nil)
}

func (e *Executor) runStep(ctx context.Context, index int, step types.ScriptStep) (StepResult, error) {
	started := time.Now()
	sr := StepResult{Index: index, StepID: step.ID, Action: step.Action}

	attempts := int(math.Ceil(float64(millis(step.Timeout)) / float64(e.opts.PollInterval)))
	if attempts < 1 {
		attempts = 1
	}

	logger.LogDebug("executor").
		Int("step", index).
		Str("text", step.TargetText).
		Str("mode", string(step.MatchMode)).
		Int("attempts", attempts).
		Msg("Waiting for text")

	var element *types.ScreenTextElement
	for attempt := 1; attempt <= attempts; attempt++ {
		sr.Attempts = attempt

		el, err := e.host.FindTextOnScreen(ctx, step.TargetText, step.MatchMode)
		if ctx.Err() != nil {
			return sr, ctx.Err()
		}
		if err != nil {
			logger.LogDebug("executor").Err(err).Int("attempt", attempt).Msg("Screen query failed")
		} else if el != nil {
			element = el
			break
		}

		if attempt < attempts && !sleepCtx(ctx, e.opts.PollInterval) {
			return sr, ctx.Err()
		}
	}

	if element == nil {
		return sr, &MatchTimeoutError{Index: index, Description: step.Label(), Attempts: sr.Attempts}
	}
	sr.Element = element

	if err := e.act(ctx, &sr, step, element); err != nil {
		if ctx.Err() != nil {
			return sr, ctx.Err()
		}
		return sr, &ActionFailureError{Index: index, Description: step.Label(), Cause: err}
	}

	sr.Duration = time.Since(started)
	logger.LogInfo("executor").
		Int("step", index).
		Str("action", string(step.Action)).
		Bool("fallback", sr.Fallback).
		Int("attempts", sr.Attempts).
		Msg("Step completed")
	return sr, nil
}

func (e *Executor) act(ctx context.Context, sr *StepResult, step types.ScriptStep, element *types.ScreenTextElement) error {
	gestures, canGesture := e.host.(GestureHost)

	switch step.Action {
	case types.StepLongPress:
		if canGesture {
			x, y := element.Center()
			return gestures.LongPress(ctx, x, y, DefaultLongPressMillis)
		}
	case types.StepSwipe:
		if canGesture {
			params := types.SwipeParams{Direction: "up"}
			if step.SwipeParams != nil {
				params = *step.SwipeParams
			}
			params = normalizeSwipe(params)
			x1, y1 := element.Center()
			x2, y2 := swipeEnd(x1, y1, params)
			return gestures.Swipe(ctx, x1, y1, x2, y2, params.Duration)
		}
	}

	if step.Action != types.StepTap {
		logger.LogWarn("executor").
			Str("action", string(step.Action)).
			Msg("Host has no gesture support, falling back to tap")
		sr.Fallback = true
		sr.Action = types.StepTap
	}

	clicked, err := e.host.AutoClickByText(ctx, step.TargetText, step.MatchMode)
	if err != nil {
		return err
	}
	if clicked == nil {
		return ErrElementGone
	}
	sr.Element = clicked
	return nil
}

func normalizeSwipe(p types.SwipeParams) types.SwipeParams {
	if p.Direction == "" {
		p.Direction = "up"
	}
	if p.Distance <= 0 {
		p.Distance = types.DefaultSwipeDistance
	}
	if p.Duration <= 0 {
		p.Duration = types.DefaultSwipeDuration
	}
	return p
}

// swipeEnd keeps the end point on non-negative coordinates. The executor does
// not know the screen size, so the far edges are left to the device, which
// clips injected swipes to the panel.
func swipeEnd(x, y int, p types.SwipeParams) (int, int) {
	switch p.Direction {
	case "down":
		return x, y + p.Distance
	case "left":
		return max(0, x-p.Distance), y
	case "right":
		return x + p.Distance, y
	default:
		return x, max(0, y-p.Distance)
	}
}

func (e *Executor) update(fn func(*types.ScriptExecutionState)) {
	e.mu.Lock()
	fn(&e.state)
	snapshot := e.state
	e.mu.Unlock()
	e.notify(snapshot)
}

func (e *Executor) finish(h *runHandle, phase types.ExecutionPhase, executed int, err error) {
	e.update(func(s *types.ScriptExecutionState) {
		if e.runID == h.id {
			e.cancel = nil
		}
		s.Phase = phase
		s.IsRunning = false
		s.ExecutedSteps = executed
		if phase == types.PhaseCompleted {
			s.Progress = 1
		}
		if err != nil {
			s.Error = err.Error()
		}
	})

	h.cancel()

	logger.LogInfo("executor").
		Str("run", h.id).
		Str("phase", string(phase)).
		Int("executed", executed).
		Msg("Script finished")
}

func (e *Executor) notify(state types.ScriptExecutionState) {
	if e.opts.OnStateChange != nil {
		e.opts.OnStateChange(state)
	}
}

func millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

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
