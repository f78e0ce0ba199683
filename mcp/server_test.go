package mcp

import (
	"testing"
)

// TestNewMCPServer tests server creation
func TestNewMCPServer(t *testing.T) {
	mock := NewMockTapflowApp()
	server := NewMCPServer(mock, "1.0.0-test")

	if server == nil {
		t.Fatal("NewMCPServer should not return nil")
	}
	if server.app == nil {
		t.Error("server.app should not be nil")
	}
	if server.server == nil {
		t.Error("server.server (underlying MCP server) should not be nil")
	}

	// Registration must not touch the app
	if len(mock.GetCalls()) != 0 {
		t.Errorf("Expected no app calls during creation, got %v", mock.GetCalls())
	}
}

// TestMCPServer_IsRunning tests the IsRunning method
func TestMCPServer_IsRunning(t *testing.T) {
	server := NewMCPServer(NewMockTapflowApp(), "test")

	if server.IsRunning() {
		t.Error("Server should not be running initially")
	}
}

// TestMockTapflowApp_Interface verifies MockTapflowApp implements TapflowApp
func TestMockTapflowApp_Interface(t *testing.T) {
	var _ TapflowApp = (*MockTapflowApp)(nil)
}

// TestMockTapflowApp_RecordsCalls tests call recording
func TestMockTapflowApp_RecordsCalls(t *testing.T) {
	mock := NewMockTapflowApp()

	mock.RecordingStatus()
	mock.GetSession("s1")
	mock.StopScript()

	calls := mock.GetCalls()
	if len(calls) != 3 {
		t.Fatalf("Expected 3 calls, got %d", len(calls))
	}
	if calls[0].Method != "RecordingStatus" {
		t.Errorf("Expected first call to be RecordingStatus, got %s", calls[0].Method)
	}
	if calls[1].Method != "GetSession" || calls[1].Args[0] != "s1" {
		t.Errorf("Expected GetSession(s1), got %s %v", calls[1].Method, calls[1].Args)
	}
	if mock.GetLastCallByMethod("StopScript") == nil {
		t.Error("Expected StopScript call")
	}
}

func TestErrorResult(t *testing.T) {
	result := errorResult("session '%s' not found", "abc")
	if !result.IsError {
		t.Error("Expected IsError")
	}
	if got := getTextContent(result); got != "Error: session 'abc' not found" {
		t.Errorf("Unexpected text %q", got)
	}
}
