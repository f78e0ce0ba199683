package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"Tapflow/pkg/types"
)

// ==================== screen_texts ====================

func TestHandleScreenTexts_Success(t *testing.T) {
	mock := NewMockTapflowApp()
	mock.ScreenTextsResult = []ScreenTextElement{
		{Text: "Settings", X: 0, Y: 0, Width: 100, Height: 40},
		{Text: "Wi-Fi", X: 0, Y: 60, Width: 100, Height: 40},
	}
	server := NewMCPServer(mock, "test")

	result, err := server.handleScreenTexts(context.Background(), makeToolRequest(nil))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	text := getTextContent(result)
	if !strings.Contains(text, "Settings") || !strings.Contains(text, "Wi-Fi") {
		t.Errorf("Expected both elements, got %s", text)
	}
}

func TestHandleScreenTexts_Error(t *testing.T) {
	mock := NewMockTapflowApp()
	mock.ScreenTextsError = errors.New("dump failed")
	server := NewMCPServer(mock, "test")

	result, err := server.handleScreenTexts(context.Background(), makeToolRequest(nil))
	if err != nil {
		t.Fatalf("Handler must not return Go errors, got %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result")
	}
}

// ==================== text_find ====================

func TestHandleTextFind_DefaultMode(t *testing.T) {
	mock := NewMockTapflowApp()
	el := ScreenTextElement{Text: "Confirm", X: 10, Y: 20, Width: 100, Height: 40}
	mock.FindTextResult = MatchResult{Matched: true, Element: &el}
	server := NewMCPServer(mock, "test")

	result, _ := server.handleTextFind(context.Background(), makeToolRequest(map[string]interface{}{
		"text": "confirm",
	}))
	if result.IsError {
		t.Fatalf("Unexpected error: %s", getTextContent(result))
	}
	if !strings.Contains(getTextContent(result), `"matched": true`) {
		t.Errorf("Unexpected text %s", getTextContent(result))
	}

	lastCall := mock.GetLastCallByMethod("FindText")
	if lastCall.Args[1] != types.MatchContains {
		t.Errorf("Expected default mode contains, got %v", lastCall.Args[1])
	}
	if lastCall.Args[2].(*MatchContext) != nil {
		t.Error("Expected no match context without region or min_score")
	}
}

func TestHandleTextFind_NoMatch(t *testing.T) {
	server := NewMCPServer(NewMockTapflowApp(), "test")

	result, _ := server.handleTextFind(context.Background(), makeToolRequest(map[string]interface{}{
		"text": "Logout",
		"mode": "exact",
	}))
	if result.IsError {
		t.Error("No match is not an error")
	}
	if !strings.Contains(getTextContent(result), "No element matching") {
		t.Errorf("Unexpected text %q", getTextContent(result))
	}
}

func TestHandleTextFind_Region(t *testing.T) {
	mock := NewMockTapflowApp()
	server := NewMCPServer(mock, "test")

	server.handleTextFind(context.Background(), makeToolRequest(map[string]interface{}{
		"text":          "OK",
		"mode":          "starts_with",
		"region_x":      0.0,
		"region_y":      1200.0,
		"region_width":  1080.0,
		"region_height": 720.0,
		"min_score":     0.6,
	}))

	lastCall := mock.GetLastCallByMethod("FindText")
	if lastCall == nil {
		t.Fatal("FindText should be called")
	}
	if lastCall.Args[1] != types.MatchStartsWith {
		t.Errorf("Expected starts_with, got %v", lastCall.Args[1])
	}
	mctx := lastCall.Args[2].(*MatchContext)
	if mctx == nil || mctx.Region == nil {
		t.Fatal("Expected a region context")
	}
	if *mctx.Region != (types.Region{X: 0, Y: 1200, Width: 1080, Height: 720}) || mctx.MinScore != 0.6 {
		t.Errorf("Unexpected context %+v %+v", mctx, *mctx.Region)
	}
}

func TestHandleTextFind_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing text", nil, "text is required"},
		{"bad mode", map[string]interface{}{"text": "a", "mode": "fuzzy"}, "unknown match mode"},
		{"partial region", map[string]interface{}{"text": "a", "region_x": 1.0}, "region needs"},
		{"bad score", map[string]interface{}{"text": "a", "min_score": 1.5}, "min_score"},
		{"empty region", map[string]interface{}{"text": "a", "region_x": 0.0, "region_y": 0.0, "region_width": 0.0, "region_height": 10.0}, "positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockTapflowApp()
			server := NewMCPServer(mock, "test")

			result, err := server.handleTextFind(context.Background(), makeToolRequest(tt.args))
			if err != nil {
				t.Fatalf("Handler must not return Go errors, got %v", err)
			}
			if !result.IsError || !strings.Contains(getTextContent(result), tt.want) {
				t.Errorf("Expected error containing %q, got %q", tt.want, getTextContent(result))
			}
			if mock.WasMethodCalled("FindText") {
				t.Error("FindText should not be called with invalid arguments")
			}
		})
	}
}
