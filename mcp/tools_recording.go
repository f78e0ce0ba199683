package mcp

import (
	"context"
	"errors"
	"fmt"

	"Tapflow/pkg/recorder"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *MCPServer) registerRecordingTools() {
	// record_start
	s.server.AddTool(
		mcp.NewTool("record_start",
			mcp.WithDescription(`Start recording touches on the device.

The session is framed by the device's current screen size and orientation.
Every touch is stored with raw pixel coordinates and coordinates normalized
to [0,1], so the recording can be replayed on other resolutions.

Only one recording can be open at a time. The recording runs until
record_stop is called.`),
		),
		s.handleRecordStart,
	)

	// record_stop
	s.server.AddTool(
		mcp.NewTool("record_stop",
			mcp.WithDescription(`Stop the open recording and save it.

Returns the sealed session with all recorded actions. Sessions without any
action are returned but not saved.`),
		),
		s.handleRecordStop,
	)

	// record_status
	s.server.AddTool(
		mcp.NewTool("record_status",
			mcp.WithDescription(`Check whether a recording is open and how many actions it holds.`),
		),
		s.handleRecordStatus,
	)
}

func (s *MCPServer) handleRecordStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.app.StartRecording(ctx); err != nil {
		return errorResult("%v", err), nil
	}

	status := s.app.RecordingStatus()
	return textResult(fmt.Sprintf("Recording started (session %s). Call record_stop to finish.", status.SessionID)), nil
}

func (s *MCPServer) handleRecordStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.app.StopRecording()
	if errors.Is(err, recorder.ErrEmptySession) && session != nil {
		return textResult(fmt.Sprintf("Recording %s stopped without any touches; nothing was saved.", session.ID)), nil
	}
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(session), nil
}

func (s *MCPServer) handleRecordStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.app.RecordingStatus()), nil
}
