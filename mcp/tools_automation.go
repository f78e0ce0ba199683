package mcp

import (
	"context"
	"fmt"

	"Tapflow/pkg/scriptfile"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerAutomationTools registers script execution and target watching tools
func (s *MCPServer) registerAutomationTools() {
	// script_run
	s.server.AddTool(
		mcp.NewTool("script_run",
			mcp.WithDescription(`Run a script in the background.

Give either script_name (a script from the library) or script (inline JSON
or YAML). Each step waits for its target text, then taps, long presses or
swipes on it. The run stops at the first step whose text never appears.

Running a script stops any active target watch. Use script_status to follow
progress and script_stop to cancel.

INLINE EXAMPLE (JSON):
  [{"targetText": "Login", "action": "tap"},
   {"targetText": "^Welcome", "matchMode": "regex", "timeout": 10000}]`),
			mcp.WithString("script_name",
				mcp.Description("Name of a script in the library"),
			),
			mcp.WithString("script",
				mcp.Description("Inline script: a step list or {name, steps} object, JSON or YAML"),
			),
		),
		s.handleScriptRun,
	)

	// script_stop
	s.server.AddTool(
		mcp.NewTool("script_stop",
			mcp.WithDescription(`Cancel the running script. The current step is abandoned at its next wait.`),
		),
		s.handleScriptStop,
	)

	// script_status
	s.server.AddTool(
		mcp.NewTool("script_status",
			mcp.WithDescription(`Get the script execution state: phase, current step, progress and the
outcome of the last completed run.`),
		),
		s.handleScriptStatus,
	)

	// targets_watch_start
	s.server.AddTool(
		mcp.NewTool("targets_watch_start",
			mcp.WithDescription(`Continuously watch the screen for target texts.

Each poll picks the highest priority target that is on screen (lower number
wins, unset is lowest). Targets with autoClick are tapped at their center.
Watching stops any running script and replaces a previous watch.

EXAMPLE:
  targets: [{"id": "allow", "text": "Allow", "matchMode": "exact", "priority": 1, "autoClick": true},
            {"id": "skip", "text": "Skip", "autoClick": true, "delayAfterClick": 2000}]`),
			mcp.WithString("targets",
				mcp.Required(),
				mcp.Description("JSON or YAML list of targets"),
			),
		),
		s.handleTargetsWatchStart,
	)

	// targets_watch_stop
	s.server.AddTool(
		mcp.NewTool("targets_watch_stop",
			mcp.WithDescription(`Stop watching targets. Returns the recent hits.`),
		),
		s.handleTargetsWatchStop,
	)
}

func (s *MCPServer) handleScriptRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	name, _ := args["script_name"].(string)
	inline, _ := args["script"].(string)

	switch {
	case name != "" && inline != "":
		return errorResult("give either script_name or script, not both"), nil
	case name != "":
		if err := s.app.RunScriptByName(name, nil); err != nil {
			return errorResult("%v", err), nil
		}
		return textResult(fmt.Sprintf("Script '%s' started", name)), nil
	case inline != "":
		script, err := scriptfile.Parse([]byte(inline), "")
		if err != nil {
			return errorResult("invalid script: %v", err), nil
		}
		if err := script.Validate(); err != nil {
			return errorResult("invalid script: %v", err), nil
		}
		if len(script.Steps) == 0 {
			return errorResult("script has no steps"), nil
		}
		if err := s.app.RunScript(script.Steps, nil); err != nil {
			return errorResult("%v", err), nil
		}
		return textResult(fmt.Sprintf("Script started (%d steps)", len(script.Steps))), nil
	default:
		return errorResult("script_name or script is required"), nil
	}
}

func (s *MCPServer) handleScriptStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.app.StopScript() {
		return textResult("No script is running."), nil
	}
	return textResult("Script stop requested."), nil
}

func (s *MCPServer) handleScriptStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := map[string]interface{}{
		"state": s.app.ScriptState(),
	}
	if last := s.app.LastScriptOutcome(); last != nil {
		result["lastRun"] = last
	}
	return jsonResult(result), nil
}

func (s *MCPServer) handleTargetsWatchStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	raw, _ := args["targets"].(string)
	if raw == "" {
		return errorResult("targets is required"), nil
	}

	targets, err := scriptfile.ParseTargets([]byte(raw))
	if err != nil {
		return errorResult("invalid targets: %v", err), nil
	}

	if err := s.app.StartWatching(targets); err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(fmt.Sprintf("Watching %d targets", len(targets))), nil
}

func (s *MCPServer) handleTargetsWatchStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := s.app.WatchStatus()
	if !s.app.StopWatching() {
		return textResult("No target watch is running."), nil
	}
	return jsonResult(map[string]interface{}{
		"stopped": true,
		"hits":    status.Hits,
	}), nil
}
