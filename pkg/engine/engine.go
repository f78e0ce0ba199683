// Package engine wires the recorder, matcher, executor and session store
// around one automation host. Callers construct and own the instance.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Tapflow/pkg/bridge"
	"Tapflow/pkg/executor"
	"Tapflow/pkg/logger"
	"Tapflow/pkg/matcher"
	"Tapflow/pkg/recorder"
	"Tapflow/pkg/replay"
	"Tapflow/pkg/scriptfile"
	"Tapflow/pkg/store"
	"Tapflow/pkg/types"
)

// Host is everything the engine needs from the device side
type Host interface {
	executor.Host
	matcher.ScreenSource
	replay.Host
	DeviceInfo(ctx context.Context) (types.DeviceInfo, error)
}

var (
	ErrUnknownScript = errors.New("script not found")
	ErrNoTargets     = errors.New("no targets to watch")
	ErrNoLibrary     = errors.New("no script library configured")
)

const maxRecentHits = 50

// Options configures an Engine. Store defaults to an in-memory KV and Channel
// to a fresh bus.
type Options struct {
	Host          Host
	Store         store.KV
	Channel       bridge.Channel
	Scripts       *scriptfile.Library
	PollInterval  time.Duration
	WatchInterval time.Duration
	MinScore      float64
	ReplaySpeed   float64
}

// Engine is one automation instance
type Engine struct {
	host     Host
	channel  bridge.Channel
	scripts  *scriptfile.Library
	recorder *recorder.Recorder
	executor *executor.Executor
	sessions *store.Sessions
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	detach func()

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
	watchTarget []types.TextMatchTarget
	hits        []matcher.Hit
	lastResult  *ScriptOutcome
}

// ScriptOutcome is the completion report of the last script
type ScriptOutcome struct {
	Success       bool      `json:"success"`
	ExecutedSteps int       `json:"executedSteps"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// New creates an engine
func New(opts Options) (*Engine, error) {
	if opts.Host == nil {
		return nil, errors.New("engine requires a host")
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Channel == nil {
		opts.Channel = bridge.NewBus()
	}
	if opts.MinScore <= 0 {
		opts.MinScore = types.DefaultMinScore
	}
	if opts.ReplaySpeed <= 0 {
		opts.ReplaySpeed = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		host:     opts.Host,
		channel:  opts.Channel,
		scripts:  opts.Scripts,
		recorder: recorder.New(),
		sessions: store.NewSessions(opts.Store),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
	e.executor = executor.New(opts.Host, executor.Options{
		PollInterval: opts.PollInterval,
		OnStateChange: func(s types.ScriptExecutionState) {
			logger.LogDebug("engine").
				Str("phase", string(s.Phase)).
				Int("step", s.CurrentStepIndex).
				Float64("progress", s.Progress).
				Msg("Script state changed")
		},
	})
	e.detach = e.recorder.Attach(opts.Channel)
	return e, nil
}

// Channel returns the event channel feeding the recorder
func (e *Engine) Channel() bridge.Channel {
	return e.channel
}

// Close stops any running script, watcher and capture subscriptions
func (e *Engine) Close() {
	e.StopScript()
	e.executor.Wait()
	e.StopWatching()
	e.detach()
	e.cancel()
}

// ========================================
// Recording
// ========================================

// RecordingStatus describes the open session
type RecordingStatus struct {
	Recording bool              `json:"recording"`
	SessionID string            `json:"sessionId,omitempty"`
	Actions   int               `json:"actions"`
	Device    *types.DeviceInfo `json:"device,omitempty"`
}

// StartRecording opens a session framed by the host's current screen
func (e *Engine) StartRecording(ctx context.Context) error {
	device, err := e.host.DeviceInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to read device info: %w", err)
	}
	return e.StartRecordingWith(device)
}

// StartRecordingWith opens a session with an explicit frame
func (e *Engine) StartRecordingWith(device types.DeviceInfo) error {
	return e.recorder.StartRecording(device.Width, device.Height, device.Orientation)
}

// RecordTouch appends a touch to the open session
func (e *Engine) RecordTouch(action types.ActionRecord) error {
	return e.recorder.RecordTouch(action)
}

// StopRecording seals the session and persists it when it has actions
func (e *Engine) StopRecording() (*types.RecordingSession, error) {
	session, err := e.recorder.StopRecording()
	if err != nil {
		return session, err
	}
	if err := e.sessions.Save(session); err != nil {
		return session, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// RecordingStatus reports the open session, if any
func (e *Engine) RecordingStatus() RecordingStatus {
	current := e.recorder.CurrentSession()
	if current == nil {
		return RecordingStatus{}
	}
	return RecordingStatus{
		Recording: true,
		SessionID: current.ID,
		Actions:   len(current.Actions),
		Device:    &current.DeviceInfo,
	}
}

// ========================================
// Sessions
// ========================================

// ListSessions returns session summaries, newest last
func (e *Engine) ListSessions() ([]store.SessionSummary, error) {
	return e.sessions.Summaries()
}

// GetSession loads one session
func (e *Engine) GetSession(id string) (*types.RecordingSession, error) {
	return e.sessions.Load(id)
}

// RenameSession sets a session's name
func (e *Engine) RenameSession(id, name string) (*types.RecordingSession, error) {
	return e.sessions.Rename(id, name)
}

// DeleteSession removes a session
func (e *Engine) DeleteSession(id string) error {
	return e.sessions.Delete(id)
}

// ReplaySession plays a stored session on the host's current screen
func (e *Engine) ReplaySession(ctx context.Context, id string, speed float64, onProgress func(int, int)) (replay.Result, error) {
	session, err := e.sessions.Load(id)
	if err != nil {
		return replay.Result{}, err
	}

	target, err := e.host.DeviceInfo(ctx)
	if err != nil {
		logger.LogWarn("engine").Err(err).Msg("Device info unavailable, replaying in the recorded frame")
		target = session.DeviceInfo
	}
	if speed <= 0 {
		speed = e.opts.ReplaySpeed
	}
	return replay.Play(ctx, e.host, session, target, replay.Options{Speed: speed, OnProgress: onProgress})
}

// ========================================
// Text
// ========================================

// ScreenTexts returns the current text snapshot
func (e *Engine) ScreenTexts(ctx context.Context) ([]types.ScreenTextElement, error) {
	return e.host.ScreenTexts(ctx)
}

// FindText searches the current screen. With a region or several candidates
// the contextual search applies, using the configured minimum score unless
// mctx sets one.
func (e *Engine) FindText(ctx context.Context, text string, mode types.MatchMode, mctx *types.MatchContext) (types.MatchResult, error) {
	elements, err := e.host.ScreenTexts(ctx)
	if err != nil {
		return types.MatchResult{}, err
	}
	if mctx != nil && mctx.MinScore <= 0 {
		c := *mctx
		c.MinScore = e.opts.MinScore
		mctx = &c
	}
	return matcher.FindWithContext(elements, text, mode, mctx), nil
}

// ========================================
// Scripts
// ========================================

// Scripts returns the configured library, nil when none
func (e *Engine) Scripts() *scriptfile.Library {
	return e.scripts
}

// Script looks a script up by name
func (e *Engine) Script(name string) (*scriptfile.Script, error) {
	if e.scripts == nil {
		return nil, ErrNoLibrary
	}
	s, ok := e.scripts.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, name)
	}
	return s, nil
}

// RunScript starts steps in the background, stopping the target watcher
// first. onComplete may be nil.
func (e *Engine) RunScript(steps []types.ScriptStep, onComplete func(success bool, executed int)) error {
	e.StopWatching()

	return e.executor.Start(e.ctx, steps, func(success bool, executed int) {
		e.mu.Lock()
		e.lastResult = &ScriptOutcome{Success: success, ExecutedSteps: executed, FinishedAt: time.Now()}
		e.mu.Unlock()

		logger.LogInfo("engine").Bool("success", success).Int("executed", executed).Msg("Script completed")
		if onComplete != nil {
			onComplete(success, executed)
		}
	})
}

// RunScriptByName runs a script from the library
func (e *Engine) RunScriptByName(name string, onComplete func(success bool, executed int)) error {
	s, err := e.Script(name)
	if err != nil {
		return err
	}
	return e.RunScript(s.Steps, onComplete)
}

// ExecuteScript runs steps and blocks until they finish
func (e *Engine) ExecuteScript(ctx context.Context, steps []types.ScriptStep) (executor.Result, error) {
	e.StopWatching()
	return e.executor.Execute(ctx, steps)
}

// StopScript cancels the running script
func (e *Engine) StopScript() bool {
	return e.executor.Stop()
}

// ScriptState returns the executor snapshot
func (e *Engine) ScriptState() types.ScriptExecutionState {
	return e.executor.State()
}

// LastScriptOutcome returns the completion report of the last async run
func (e *Engine) LastScriptOutcome() *ScriptOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastResult == nil {
		return nil
	}
	out := *e.lastResult
	return &out
}

// ========================================
// Target watching
// ========================================

// StartWatching polls for targets until StopWatching, stopping any running
// script first. A running watcher is replaced.
func (e *Engine) StartWatching(targets []types.TextMatchTarget) error {
	if len(targets) == 0 {
		return ErrNoTargets
	}
	if e.executor.Stop() {
		e.executor.Wait()
	}

	poller := matcher.NewPoller(e.host, e.host, targets, matcher.PollerConfig{
		Interval: e.opts.WatchInterval,
		OnHit:    e.recordHit,
	})

	ctx, cancel := context.WithCancel(e.ctx)
	done := make(chan struct{})

	e.mu.Lock()
	prevCancel, prevDone := e.watchCancel, e.watchDone
	e.watchCancel = cancel
	e.watchDone = done
	e.watchTarget = append([]types.TextMatchTarget(nil), targets...)
	e.hits = nil
	go func() {
		defer close(done)
		// the replaced poller must be gone before this one clicks
		if prevDone != nil {
			<-prevDone
		}
		poller.Run(ctx)
	}()
	e.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}
	return nil
}

// StopWatching stops the target watcher and waits for it to exit. It
// reports whether one was running.
func (e *Engine) StopWatching() bool {
	e.mu.Lock()
	cancel, done := e.watchCancel, e.watchDone
	e.watchCancel, e.watchDone = nil, nil
	e.watchTarget = nil
	e.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

// WatchStatus describes the target watcher
type WatchStatus struct {
	Watching bool                    `json:"watching"`
	Targets  []types.TextMatchTarget `json:"targets,omitempty"`
	Hits     []matcher.Hit           `json:"hits,omitempty"`
}

// WatchStatus returns the watcher state and recent hits
func (e *Engine) WatchStatus() WatchStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return WatchStatus{
		Watching: e.watchCancel != nil,
		Targets:  append([]types.TextMatchTarget(nil), e.watchTarget...),
		Hits:     append([]matcher.Hit(nil), e.hits...),
	}
}

func (e *Engine) recordHit(h matcher.Hit) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hits = append(e.hits, h)
	if len(e.hits) > maxRecentHits {
		e.hits = e.hits[len(e.hits)-maxRecentHits:]
	}
	logger.LogInfo("engine").Str("target", h.Target.ID).Str("text", h.Element.Text).Bool("clicked", h.Clicked).Msg("Target hit")
}

// ListScripts returns the library scripts sorted by name, empty without a
// library
func (e *Engine) ListScripts() []*scriptfile.Script {
	if e.scripts == nil {
		return nil
	}
	return e.scripts.List()
}

// DeviceInfo returns the host's current screen frame
func (e *Engine) DeviceInfo(ctx context.Context) (types.DeviceInfo, error) {
	return e.host.DeviceInfo(ctx)
}
