package mcp

import (
	"context"
	"errors"
	"fmt"

	"Tapflow/pkg/replay"
	"Tapflow/pkg/store"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerSessionTools registers tools for stored recordings
func (s *MCPServer) registerSessionTools() {
	// session_list
	s.server.AddTool(
		mcp.NewTool("session_list",
			mcp.WithDescription(`List recorded sessions in the order they were saved.

Each entry has the session id, name, start and end time, screen frame and
action count. Use session_get for the full action list.`),
		),
		s.handleSessionList,
	)

	// session_get
	s.server.AddTool(
		mcp.NewTool("session_get",
			mcp.WithDescription(`Get a recorded session with all of its actions.`),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session ID"),
			),
		),
		s.handleSessionGet,
	)

	// session_rename
	s.server.AddTool(
		mcp.NewTool("session_rename",
			mcp.WithDescription(`Set the display name of a recorded session.`),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session ID"),
			),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("New name"),
			),
		),
		s.handleSessionRename,
	)

	// session_delete
	s.server.AddTool(
		mcp.NewTool("session_delete",
			mcp.WithDescription(`Delete a recorded session permanently.`),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session ID"),
			),
		),
		s.handleSessionDelete,
	)

	// session_replay
	s.server.AddTool(
		mcp.NewTool("session_replay",
			mcp.WithDescription(`Replay a recorded session on the device.

Touches are folded into taps, long presses and swipes and played at their
recorded timing. Coordinates are rescaled from the recorded frame to the
device's current frame.

EXAMPLE:
  session_id: "6f1c..."
  speed: 2   (twice as fast)`),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session ID"),
			),
			mcp.WithNumber("speed",
				mcp.Description("Playback speed multiplier (default: 1.0)"),
			),
		),
		s.handleSessionReplay,
	)
}

func (s *MCPServer) handleSessionList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.app.ListSessions()
	if err != nil {
		return errorResult("failed to list sessions: %v", err), nil
	}
	if len(sessions) == 0 {
		return textResult("No recorded sessions."), nil
	}
	return jsonResult(sessions), nil
}

func (s *MCPServer) handleSessionGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return errorResult("session_id is required"), nil
	}

	session, err := s.app.GetSession(sessionID)
	if err != nil {
		return sessionError(sessionID, err), nil
	}
	return jsonResult(session), nil
}

func (s *MCPServer) handleSessionRename(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	name, _ := args["name"].(string)
	if sessionID == "" || name == "" {
		return errorResult("session_id and name are required"), nil
	}

	session, err := s.app.RenameSession(sessionID, name)
	if err != nil {
		return sessionError(sessionID, err), nil
	}
	return textResult(fmt.Sprintf("Session %s renamed to %q", session.ID, session.Name)), nil
}

func (s *MCPServer) handleSessionDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return errorResult("session_id is required"), nil
	}

	if err := s.app.DeleteSession(sessionID); err != nil {
		return sessionError(sessionID, err), nil
	}
	return textResult(fmt.Sprintf("Session %s deleted", sessionID)), nil
}

func (s *MCPServer) handleSessionReplay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return errorResult("session_id is required"), nil
	}

	speed := 0.0
	if v, ok := args["speed"].(float64); ok {
		if v <= 0 {
			return errorResult("speed must be positive, got %v", v), nil
		}
		speed = v
	}

	res, err := s.app.ReplaySession(ctx, sessionID, speed, nil)
	if errors.Is(err, replay.ErrNothingToReplay) {
		return errorResult("session %s has no gestures to replay", sessionID), nil
	}
	if err != nil {
		return sessionError(sessionID, err), nil
	}
	return jsonResult(res), nil
}

func sessionError(sessionID string, err error) *mcp.CallToolResult {
	if errors.Is(err, store.ErrNotFound) {
		return errorResult("session '%s' not found", sessionID)
	}
	return errorResult("%v", err)
}
