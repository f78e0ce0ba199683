// Package mcp provides the MCP (Model Context Protocol) server for Tapflow.
// It lets external AI clients record, replay and script touch automation on
// the connected device.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"Tapflow/pkg/engine"
	"Tapflow/pkg/logger"
	"Tapflow/pkg/replay"
	"Tapflow/pkg/scriptfile"
	"Tapflow/pkg/store"
	"Tapflow/pkg/types"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Type aliases from shared packages
type (
	DeviceInfo           = types.DeviceInfo
	RecordingSession     = types.RecordingSession
	ScreenTextElement    = types.ScreenTextElement
	MatchMode            = types.MatchMode
	MatchContext         = types.MatchContext
	MatchResult          = types.MatchResult
	ScriptStep           = types.ScriptStep
	ScriptExecutionState = types.ScriptExecutionState
	TextMatchTarget      = types.TextMatchTarget
	SessionSummary       = store.SessionSummary
	ReplayResult         = replay.Result
	Script               = scriptfile.Script
	RecordingStatus      = engine.RecordingStatus
	ScriptOutcome        = engine.ScriptOutcome
	WatchStatus          = engine.WatchStatus
)

// TapflowApp defines what the MCP server needs from the automation engine.
// *engine.Engine satisfies it.
type TapflowApp interface {
	// Device
	DeviceInfo(ctx context.Context) (DeviceInfo, error)

	// Recording
	StartRecording(ctx context.Context) error
	StopRecording() (*RecordingSession, error)
	RecordingStatus() RecordingStatus

	// Sessions
	ListSessions() ([]SessionSummary, error)
	GetSession(id string) (*RecordingSession, error)
	RenameSession(id, name string) (*RecordingSession, error)
	DeleteSession(id string) error
	ReplaySession(ctx context.Context, id string, speed float64, onProgress func(int, int)) (ReplayResult, error)

	// Screen text
	ScreenTexts(ctx context.Context) ([]ScreenTextElement, error)
	FindText(ctx context.Context, text string, mode MatchMode, mctx *MatchContext) (MatchResult, error)

	// Scripts
	ListScripts() []*Script
	RunScript(steps []ScriptStep, onComplete func(success bool, executed int)) error
	RunScriptByName(name string, onComplete func(success bool, executed int)) error
	StopScript() bool
	ScriptState() ScriptExecutionState
	LastScriptOutcome() *ScriptOutcome

	// Target watching
	StartWatching(targets []TextMatchTarget) error
	StopWatching() bool
	WatchStatus() WatchStatus
}

var _ TapflowApp = (*engine.Engine)(nil)

// MCPServer wraps the MCP server
type MCPServer struct {
	app       TapflowApp
	server    *server.MCPServer
	stdio     *server.StdioServer
	mu        sync.Mutex
	isRunning bool
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app TapflowApp, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		"tapflow",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)

	s := &MCPServer{
		app:    app,
		server: mcpServer,
	}

	s.registerTools()
	s.registerResources()

	return s
}

// registerTools registers all MCP tools
func (s *MCPServer) registerTools() {
	// Device
	s.registerDeviceTools()

	// Touch recording
	s.registerRecordingTools()

	// Stored sessions and replay
	s.registerSessionTools()

	// Screen text
	s.registerScreenTools()

	// Scripts and target watching
	s.registerAutomationTools()
}

// registerResources registers all MCP resources
func (s *MCPServer) registerResources() {
	s.server.AddResource(
		mcp.NewResource(
			"tapflow://sessions",
			"Recorded touch sessions",
			mcp.WithMIMEType("application/json"),
		),
		s.handleSessionsResource,
	)

	s.server.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"tapflow://sessions/{sessionId}",
			"Recorded session with all actions",
		),
		s.handleSessionResource,
	)

	s.server.AddResource(
		mcp.NewResource(
			"tapflow://scripts",
			"Scripts in the script library",
			mcp.WithMIMEType("application/json"),
		),
		s.handleScriptsResource,
	)
}

// Start starts the MCP server on stdio and blocks until it shuts down
func (s *MCPServer) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("MCP server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	return s.run()
}

func (s *MCPServer) run() error {
	s.stdio = server.NewStdioServer(s.server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.LogInfo("mcp").Msg("Tapflow MCP server started")
	err := s.stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && ctx.Err() == nil {
		logger.LogError("mcp").Err(err).Msg("Server error")
	}

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()

	if ctx.Err() != nil {
		return nil
	}
	return err
}

// IsRunning returns whether the MCP server is running
func (s *MCPServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// ========================================
// Result helpers
// ========================================

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent("Error: " + fmt.Sprintf(format, args...))},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

func jsonResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to serialize result: %v", err)
	}
	return textResult(string(data))
}
