package types

import "time"

// StepAction is what a script step does once its text is found
type StepAction string

const (
	StepTap       StepAction = "tap"
	StepLongPress StepAction = "longPress"
	StepSwipe     StepAction = "swipe"
)

// Step defaults in milliseconds
const (
	DefaultStepTimeout     = 30000
	DefaultWaitAfterAction = 1000
	DefaultNextStepDelay   = 500
)

// SwipeParams describes the gesture of a swipe step, starting at the matched
// element's centre
type SwipeParams struct {
	Direction string `json:"direction" yaml:"direction"` // up, down, left, right
	Distance  int    `json:"distance,omitempty" yaml:"distance,omitempty"`
	Duration  int    `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ScriptStep is one "wait for text, then act" unit
type ScriptStep struct {
	ID              string       `json:"id" yaml:"id"`
	Description     string       `json:"description,omitempty" yaml:"description,omitempty"`
	TargetText      string       `json:"targetText" yaml:"targetText"`
	MatchMode       MatchMode    `json:"matchMode" yaml:"matchMode"`
	Action          StepAction   `json:"action" yaml:"action"`
	Timeout         int          `json:"timeout,omitempty" yaml:"timeout,omitempty"`                 // ms
	WaitAfterAction int          `json:"waitAfterAction,omitempty" yaml:"waitAfterAction,omitempty"` // ms
	NextStepDelay   int          `json:"nextStepDelay,omitempty" yaml:"nextStepDelay,omitempty"`     // ms
	SwipeParams     *SwipeParams `json:"swipeParams,omitempty" yaml:"swipeParams,omitempty"`
}

// Label returns the description, falling back to the target text
func (s ScriptStep) Label() string {
	if s.Description != "" {
		return s.Description
	}
	return s.TargetText
}

// ExecutionPhase is the state of the script executor
type ExecutionPhase string

const (
	PhaseIdle      ExecutionPhase = "idle"
	PhaseRunning   ExecutionPhase = "running"
	PhaseCompleted ExecutionPhase = "completed"
	PhaseFailed    ExecutionPhase = "failed"
	PhaseCancelled ExecutionPhase = "cancelled"
)

// Terminal reports whether the phase ends an execution
func (p ExecutionPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// ScriptExecutionState is a snapshot of the executor, returned by value
type ScriptExecutionState struct {
	Phase            ExecutionPhase `json:"phase"`
	IsRunning        bool           `json:"isRunning"`
	CurrentStepIndex int            `json:"currentStepIndex"`
	ExecutedSteps    int            `json:"executedSteps"`
	TotalSteps       int            `json:"totalSteps"`
	Progress         float64        `json:"progress"`
	StartTime        time.Time      `json:"startTime"`
	Error            string         `json:"error,omitempty"`
}

// Swipe defaults
const (
	DefaultSwipeDistance = 300 // px
	DefaultSwipeDuration = 300 // ms
)

// WithDefaults fills unset fields. Zero timings take the defaults; a negative
// wait or delay disables it.
func (s ScriptStep) WithDefaults() ScriptStep {
	if s.MatchMode == "" {
		s.MatchMode = MatchContains
	}
	if s.Action == "" {
		s.Action = StepTap
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultStepTimeout
	}
	if s.WaitAfterAction == 0 {
		s.WaitAfterAction = DefaultWaitAfterAction
	}
	if s.NextStepDelay == 0 {
		s.NextStepDelay = DefaultNextStepDelay
	}
	if s.SwipeParams != nil {
		p := *s.SwipeParams
		if p.Direction == "" {
			p.Direction = "up"
		}
		if p.Distance <= 0 {
			p.Distance = DefaultSwipeDistance
		}
		if p.Duration <= 0 {
			p.Duration = DefaultSwipeDuration
		}
		s.SwipeParams = &p
	}
	return s
}
