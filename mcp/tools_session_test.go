package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"Tapflow/pkg/replay"
)

// ==================== session_list ====================

func TestHandleSessionList_Success(t *testing.T) {
	mock := NewMockTapflowApp()
	mock.AddSession(SampleSession("a", 2))
	mock.AddSession(SampleSession("b", 1))
	server := NewMCPServer(mock, "test")

	result, err := server.handleSessionList(context.Background(), makeToolRequest(nil))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var sessions []SessionSummary
	if err := json.Unmarshal([]byte(getTextContent(result)), &sessions); err != nil {
		t.Fatalf("Result should be valid JSON: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "a" || sessions[1].ID != "b" {
		t.Errorf("Expected sessions in save order, got %+v", sessions)
	}
}

func TestHandleSessionList_Empty(t *testing.T) {
	server := NewMCPServer(NewMockTapflowApp(), "test")

	result, _ := server.handleSessionList(context.Background(), makeToolRequest(nil))
	if result.IsError {
		t.Error("Empty list is not an error")
	}
	if !strings.Contains(getTextContent(result), "No recorded sessions") {
		t.Errorf("Unexpected text %q", getTextContent(result))
	}
}

// ==================== session_get ====================

func TestHandleSessionGet(t *testing.T) {
	mock := NewMockTapflowApp()
	mock.AddSession(SampleSession("a", 2))
	server := NewMCPServer(mock, "test")

	tests := []struct {
		name    string
		args    map[string]interface{}
		isError bool
		want    string
	}{
		{"found", map[string]interface{}{"session_id": "a"}, false, `"id": "a"`},
		{"missing id", nil, true, "session_id is required"},
		{"unknown", map[string]interface{}{"session_id": "zzz"}, true, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleSessionGet(context.Background(), makeToolRequest(tt.args))
			if err != nil {
				t.Fatalf("Handler must not return Go errors, got %v", err)
			}
			if result.IsError != tt.isError {
				t.Errorf("IsError = %v, want %v", result.IsError, tt.isError)
			}
			if !strings.Contains(getTextContent(result), tt.want) {
				t.Errorf("Expected %q in %q", tt.want, getTextContent(result))
			}
		})
	}
}

// ==================== session_rename ====================

func TestHandleSessionRename_Success(t *testing.T) {
	mock := NewMockTapflowApp()
	mock.AddSession(SampleSession("a", 1))
	server := NewMCPServer(mock, "test")

	result, _ := server.handleSessionRename(context.Background(), makeToolRequest(map[string]interface{}{
		"session_id": "a",
		"name":       "Login flow",
	}))
	if result.IsError {
		t.Fatalf("Unexpected error: %s", getTextContent(result))
	}

	lastCall := mock.GetLastCallByMethod("RenameSession")
	if lastCall.Args[0] != "a" || lastCall.Args[1] != "Login flow" {
		t.Errorf("Unexpected args %v", lastCall.Args)
	}
	if mock.Sessions["a"].Name != "Login flow" {
		t.Error("Session should be renamed")
	}
}

func TestHandleSessionRename_MissingName(t *testing.T) {
	mock := NewMockTapflowApp()
	server := NewMCPServer(mock, "test")

	result, _ := server.handleSessionRename(context.Background(), makeToolRequest(map[string]interface{}{
		"session_id": "a",
	}))
	if !result.IsError {
		t.Error("Expected error result")
	}
	if mock.WasMethodCalled("RenameSession") {
		t.Error("RenameSession should not be called without a name")
	}
}

// ==================== session_delete ====================

func TestHandleSessionDelete(t *testing.T) {
	mock := NewMockTapflowApp()
	mock.AddSession(SampleSession("a", 1))
	server := NewMCPServer(mock, "test")

	result, _ := server.handleSessionDelete(context.Background(), makeToolRequest(map[string]interface{}{
		"session_id": "a",
	}))
	if result.IsError {
		t.Fatalf("Unexpected error: %s", getTextContent(result))
	}
	if _, ok := mock.Sessions["a"]; ok {
		t.Error("Session should be deleted")
	}

	result, _ = server.handleSessionDelete(context.Background(), makeToolRequest(map[string]interface{}{
		"session_id": "a",
	}))
	if !result.IsError || !strings.Contains(getTextContent(result), "not found") {
		t.Errorf("Expected not found on second delete, got %q", getTextContent(result))
	}
}

// ==================== session_replay ====================

func TestHandleSessionReplay_Success(t *testing.T) {
	mock := NewMockTapflowApp()
	mock.AddSession(SampleSession("a", 2))
	mock.ReplayResult = replay.Result{Gestures: 2, Played: 2}
	server := NewMCPServer(mock, "test")

	result, _ := server.handleSessionReplay(context.Background(), makeToolRequest(map[string]interface{}{
		"session_id": "a",
		"speed":      2.0,
	}))
	if result.IsError {
		t.Fatalf("Unexpected error: %s", getTextContent(result))
	}

	var res ReplayResult
	if err := json.Unmarshal([]byte(getTextContent(result)), &res); err != nil {
		t.Fatalf("Result should be valid JSON: %v", err)
	}
	if res.Played != 2 {
		t.Errorf("Expected 2 played, got %+v", res)
	}
	if lastCall := mock.GetLastCallByMethod("ReplaySession"); lastCall.Args[1] != 2.0 {
		t.Errorf("Expected speed 2, got %v", lastCall.Args[1])
	}
}

func TestHandleSessionReplay_InvalidSpeed(t *testing.T) {
	mock := NewMockTapflowApp()
	server := NewMCPServer(mock, "test")

	result, _ := server.handleSessionReplay(context.Background(), makeToolRequest(map[string]interface{}{
		"session_id": "a",
		"speed":      -1.0,
	}))
	if !result.IsError {
		t.Error("Expected error result")
	}
	if mock.WasMethodCalled("ReplaySession") {
		t.Error("ReplaySession should not be called")
	}
}

func TestHandleSessionReplay_NothingToReplay(t *testing.T) {
	mock := NewMockTapflowApp()
	mock.AddSession(SampleSession("a", 0))
	mock.ReplayError = replay.ErrNothingToReplay
	server := NewMCPServer(mock, "test")

	result, _ := server.handleSessionReplay(context.Background(), makeToolRequest(map[string]interface{}{
		"session_id": "a",
	}))
	if !result.IsError || !strings.Contains(getTextContent(result), "no gestures") {
		t.Errorf("Unexpected result %q", getTextContent(result))
	}
}
