package mcp

import (
	"context"
	"errors"
	"sync"

	"Tapflow/pkg/store"
	"Tapflow/pkg/types"
)

// MockCall records a method call for verification
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockTapflowApp is a mock implementation of TapflowApp for testing
type MockTapflowApp struct {
	mu    sync.Mutex
	Calls []MockCall

	// Device
	DeviceInfoResult DeviceInfo
	DeviceInfoError  error

	// Recording
	StartRecordingError  error
	StopRecordingResult  *RecordingSession
	StopRecordingError   error
	RecordingStatusValue RecordingStatus

	// Sessions
	Sessions          map[string]*RecordingSession
	SessionOrder      []string
	ListSessionsError error
	ReplayResult      ReplayResult
	ReplayError       error

	// Screen text
	ScreenTextsResult []ScreenTextElement
	ScreenTextsError  error
	FindTextResult    MatchResult
	FindTextError     error

	// Scripts
	Scripts          []*Script
	RunScriptError   error
	Running          bool
	ScriptStateValue ScriptExecutionState
	LastOutcome      *ScriptOutcome

	// Watching
	StartWatchingError error
	WatchStatusValue   WatchStatus
}

// NewMockTapflowApp creates a new mock app with default values
func NewMockTapflowApp() *MockTapflowApp {
	return &MockTapflowApp{
		Calls:            make([]MockCall, 0),
		DeviceInfoResult: DeviceInfo{Width: 1080, Height: 1920, Orientation: types.OrientationPortrait},
		Sessions:         make(map[string]*RecordingSession),
		ScriptStateValue: ScriptExecutionState{Phase: types.PhaseIdle},
	}
}

// recordCall records a method call
func (m *MockTapflowApp) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCalls returns all recorded calls
func (m *MockTapflowApp) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.Calls...)
}

// GetLastCall returns the last recorded call
func (m *MockTapflowApp) GetLastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	return &m.Calls[len(m.Calls)-1]
}

// WasMethodCalled checks if a method was called
func (m *MockTapflowApp) WasMethodCalled(method string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.Calls {
		if call.Method == method {
			return true
		}
	}
	return false
}

// GetLastCallByMethod returns the last call to a specific method
func (m *MockTapflowApp) GetLastCallByMethod(method string) *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == method {
			return &m.Calls[i]
		}
	}
	return nil
}

// AddSession stores a session for the session tools
func (m *MockTapflowApp) AddSession(session *RecordingSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Sessions[session.ID]; !ok {
		m.SessionOrder = append(m.SessionOrder, session.ID)
	}
	m.Sessions[session.ID] = session
}

// SampleSession builds a stored session with n taps
func SampleSession(id string, n int) *RecordingSession {
	s := &RecordingSession{
		ID:         id,
		DeviceInfo: DeviceInfo{Width: 1080, Height: 1920, Orientation: types.OrientationPortrait},
	}
	for i := 0; i < n; i++ {
		s.Actions = append(s.Actions, types.ActionRecord{
			Type:        types.ActionTap,
			Timestamp:   int64(i * 100),
			Coordinates: types.Coordinate{X: 540, Y: 960, NormalizedX: 0.5, NormalizedY: 0.5},
		})
	}
	return s
}

// === Device ===

func (m *MockTapflowApp) DeviceInfo(ctx context.Context) (DeviceInfo, error) {
	m.recordCall("DeviceInfo")
	return m.DeviceInfoResult, m.DeviceInfoError
}

// === Recording ===

func (m *MockTapflowApp) StartRecording(ctx context.Context) error {
	m.recordCall("StartRecording")
	return m.StartRecordingError
}

func (m *MockTapflowApp) StopRecording() (*RecordingSession, error) {
	m.recordCall("StopRecording")
	return m.StopRecordingResult, m.StopRecordingError
}

func (m *MockTapflowApp) RecordingStatus() RecordingStatus {
	m.recordCall("RecordingStatus")
	return m.RecordingStatusValue
}

// === Sessions ===

func (m *MockTapflowApp) ListSessions() ([]SessionSummary, error) {
	m.recordCall("ListSessions")
	if m.ListSessionsError != nil {
		return nil, m.ListSessionsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionSummary, 0, len(m.SessionOrder))
	for _, id := range m.SessionOrder {
		out = append(out, store.Summarize(m.Sessions[id]))
	}
	return out, nil
}

func (m *MockTapflowApp) GetSession(id string) (*RecordingSession, error) {
	m.recordCall("GetSession", id)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (m *MockTapflowApp) RenameSession(id, name string) (*RecordingSession, error) {
	m.recordCall("RenameSession", id, name)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.Name = name
	return s, nil
}

func (m *MockTapflowApp) DeleteSession(id string) error {
	m.recordCall("DeleteSession", id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.Sessions, id)
	for i, sid := range m.SessionOrder {
		if sid == id {
			m.SessionOrder = append(m.SessionOrder[:i], m.SessionOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockTapflowApp) ReplaySession(ctx context.Context, id string, speed float64, onProgress func(int, int)) (ReplayResult, error) {
	m.recordCall("ReplaySession", id, speed)
	m.mu.Lock()
	_, ok := m.Sessions[id]
	m.mu.Unlock()
	if !ok {
		return ReplayResult{}, store.ErrNotFound
	}
	return m.ReplayResult, m.ReplayError
}

// === Screen text ===

func (m *MockTapflowApp) ScreenTexts(ctx context.Context) ([]ScreenTextElement, error) {
	m.recordCall("ScreenTexts")
	return m.ScreenTextsResult, m.ScreenTextsError
}

func (m *MockTapflowApp) FindText(ctx context.Context, text string, mode MatchMode, mctx *MatchContext) (MatchResult, error) {
	m.recordCall("FindText", text, mode, mctx)
	return m.FindTextResult, m.FindTextError
}

// === Scripts ===

func (m *MockTapflowApp) ListScripts() []*Script {
	m.recordCall("ListScripts")
	return m.Scripts
}

func (m *MockTapflowApp) RunScript(steps []ScriptStep, onComplete func(success bool, executed int)) error {
	m.recordCall("RunScript", steps)
	if m.RunScriptError != nil {
		return m.RunScriptError
	}
	m.Running = true
	return nil
}

func (m *MockTapflowApp) RunScriptByName(name string, onComplete func(success bool, executed int)) error {
	m.recordCall("RunScriptByName", name)
	if m.RunScriptError != nil {
		return m.RunScriptError
	}
	for _, s := range m.Scripts {
		if s.Name == name {
			m.Running = true
			return nil
		}
	}
	return errors.New("script not found: " + name)
}

func (m *MockTapflowApp) StopScript() bool {
	m.recordCall("StopScript")
	was := m.Running
	m.Running = false
	return was
}

func (m *MockTapflowApp) ScriptState() ScriptExecutionState {
	m.recordCall("ScriptState")
	return m.ScriptStateValue
}

func (m *MockTapflowApp) LastScriptOutcome() *ScriptOutcome {
	m.recordCall("LastScriptOutcome")
	return m.LastOutcome
}

// === Watching ===

func (m *MockTapflowApp) StartWatching(targets []TextMatchTarget) error {
	m.recordCall("StartWatching", targets)
	if m.StartWatchingError != nil {
		return m.StartWatchingError
	}
	m.WatchStatusValue = WatchStatus{Watching: true, Targets: targets}
	return nil
}

func (m *MockTapflowApp) StopWatching() bool {
	m.recordCall("StopWatching")
	was := m.WatchStatusValue.Watching
	m.WatchStatusValue.Watching = false
	return was
}

func (m *MockTapflowApp) WatchStatus() WatchStatus {
	m.recordCall("WatchStatus")
	return m.WatchStatusValue
}
