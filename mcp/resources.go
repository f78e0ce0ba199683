package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleSessionsResource handles the tapflow://sessions resource
func (s *MCPServer) handleSessionsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sessions, err := s.app.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}
	if sessions == nil {
		sessions = []SessionSummary{}
	}
	return jsonResource(request.Params.URI, sessions)
}

// handleSessionResource handles the tapflow://sessions/{sessionId} resource template
func (s *MCPServer) handleSessionResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	sessionID := strings.TrimPrefix(uri, "tapflow://sessions/")
	if sessionID == "" || sessionID == uri || strings.Contains(sessionID, "/") {
		return nil, fmt.Errorf("invalid session URI format: %s", uri)
	}

	session, err := s.app.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return jsonResource(uri, session)
}

// handleScriptsResource handles the tapflow://scripts resource
func (s *MCPServer) handleScriptsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	scripts := s.app.ListScripts()
	if scripts == nil {
		scripts = []*Script{}
	}
	return jsonResource(request.Params.URI, scripts)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize resource: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
