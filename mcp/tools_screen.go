package mcp

import (
	"context"
	"fmt"

	"Tapflow/pkg/types"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerScreenTools registers screen text tools
func (s *MCPServer) registerScreenTools() {
	// screen_texts - Snapshot of on-screen text
	s.server.AddTool(
		mcp.NewTool("screen_texts",
			mcp.WithDescription(`List the text elements currently on screen.

Each element has its text and bounding box (x, y, width, height) in screen
pixels. Elements without text fall back to their content description.`),
		),
		s.handleScreenTexts,
	)

	// text_find - Find one text element
	s.server.AddTool(
		mcp.NewTool("text_find",
			mcp.WithDescription(`Find a text element on screen.

MATCH MODES:
- exact: case-sensitive equality
- contains (default), starts_with, ends_with: case-insensitive
- regex: case-insensitive regular expression

With a region or min_score the search becomes contextual: candidates must
start inside the region, and when several remain the one most similar to the
text wins if its similarity reaches min_score (default 0.8).

EXAMPLE:
  text: "Confirm"
  mode: "contains"
  region_x: 0, region_y: 1200, region_width: 1080, region_height: 720`),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Text or pattern to find"),
			),
			mcp.WithString("mode",
				mcp.Description("Match mode: exact, contains, starts_with, ends_with, regex (default: contains)"),
			),
			mcp.WithNumber("region_x", mcp.Description("Region left edge in pixels")),
			mcp.WithNumber("region_y", mcp.Description("Region top edge in pixels")),
			mcp.WithNumber("region_width", mcp.Description("Region width in pixels")),
			mcp.WithNumber("region_height", mcp.Description("Region height in pixels")),
			mcp.WithNumber("min_score",
				mcp.Description("Similarity needed to accept one of several candidates, 0..1"),
			),
		),
		s.handleTextFind,
	)
}

func (s *MCPServer) handleScreenTexts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	elements, err := s.app.ScreenTexts(ctx)
	if err != nil {
		return errorResult("failed to read screen: %v", err), nil
	}
	if len(elements) == 0 {
		return textResult("No text elements on screen."), nil
	}
	return jsonResult(elements), nil
}

func (s *MCPServer) handleTextFind(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text, _ := args["text"].(string)
	if text == "" {
		return errorResult("text is required"), nil
	}

	mode := types.MatchContains
	if m, ok := args["mode"].(string); ok && m != "" {
		parsed, ok := types.ParseMatchMode(m)
		if !ok {
			return errorResult("unknown match mode %q", m), nil
		}
		mode = parsed
	}

	mctx, err := matchContextFromArgs(args)
	if err != nil {
		return errorResult("%v", err), nil
	}

	res, err := s.app.FindText(ctx, text, mode, mctx)
	if err != nil {
		return errorResult("failed to read screen: %v", err), nil
	}
	if !res.Matched {
		return textResult(fmt.Sprintf("No element matching %q (%s)", text, mode)), nil
	}
	return jsonResult(res), nil
}

// matchContextFromArgs builds a context when any region field or min_score is
// given. A region needs all four fields.
func matchContextFromArgs(args map[string]interface{}) (*types.MatchContext, error) {
	keys := []string{"region_x", "region_y", "region_width", "region_height"}
	var vals [4]int
	present := 0
	for i, k := range keys {
		if v, ok := args[k].(float64); ok {
			vals[i] = int(v)
			present++
		}
	}
	minScore, hasScore := args["min_score"].(float64)

	if present == 0 && !hasScore {
		return nil, nil
	}
	if present != 0 && present != len(keys) {
		return nil, fmt.Errorf("region needs region_x, region_y, region_width and region_height")
	}
	if hasScore && (minScore < 0 || minScore > 1) {
		return nil, fmt.Errorf("min_score must be in [0,1], got %v", minScore)
	}

	mctx := &types.MatchContext{MinScore: minScore}
	if present == len(keys) {
		if vals[2] <= 0 || vals[3] <= 0 {
			return nil, fmt.Errorf("region width and height must be positive")
		}
		mctx.Region = &types.Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	}
	return mctx, nil
}
