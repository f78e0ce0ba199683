package matcher

import (
	"math"
	"testing"

	"Tapflow/pkg/types"
)

func TestIsMatched(t *testing.T) {
	tests := []struct {
		text     string
		target   string
		mode     types.MatchMode
		expected bool
	}{
		{"Confirm Order", "firm", types.MatchContains, true},
		{"Confirm Order", "FIRM", types.MatchContains, true},
		{"Confirm Order", "Confirm", types.MatchStartsWith, true},
		{"Confirm Order", "order", types.MatchStartsWith, false},
		{"Confirm Order", "Order", types.MatchEndsWith, true},
		{"Confirm Order", "Confirm Order", types.MatchExact, true},
		{"Confirm Order", "confirm order", types.MatchExact, false},
		{"Confirm Order", "^Conf.*r$", types.MatchRegex, true},
		{"Confirm Order", "^conf.*R$", types.MatchRegex, true},
		{"Confirm Order", "[unclosed", types.MatchRegex, false},
		{"Confirm Order", "Confirm", types.MatchMode("fuzzy"), false},
		{"", "", types.MatchContains, true},
	}

	for _, tt := range tests {
		if got := IsMatched(tt.text, tt.target, tt.mode); got != tt.expected {
			t.Errorf("IsMatched(%q, %q, %s) = %v, want %v", tt.text, tt.target, tt.mode, got, tt.expected)
		}
	}
}

func TestRegexCacheReuse(t *testing.T) {
	a := compile("^abc$")
	b := compile("^abc$")
	if a == nil || a != b {
		t.Error("Expected cached pattern to be reused")
	}
	if compile("(") != nil {
		t.Error("Expected nil for invalid pattern")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b     string
		expected float64
	}{
		{"kitten", "sitting", 4.0 / 7.0},
		{"", "", 1},
		{"abc", "abc", 1},
		{"abc", "", 0},
		{"确认订单", "确认", 0.5},
	}

	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
		}
	}
}

func TestEditDistance(t *testing.T) {
	if d := EditDistance("kitten", "sitting"); d != 3 {
		t.Errorf("Expected 3, got %d", d)
	}
	if d := EditDistance("flaw", "lawn"); d != 2 {
		t.Errorf("Expected 2, got %d", d)
	}
}

var screen = []types.ScreenTextElement{
	{Text: "Settings", X: 5, Y: 5, Width: 100, Height: 40},
	{Text: "Confirm", X: 50, Y: 50, Width: 120, Height: 40},
	{Text: "Confirm Order", X: 50, Y: 400, Width: 200, Height: 40},
	{Text: "Cancel", X: 300, Y: 400, Width: 100, Height: 40},
}

func TestFindText(t *testing.T) {
	res := FindText(screen, "confirm", types.MatchContains)
	if !res.Matched || res.Element.Text != "Confirm" {
		t.Fatalf("Expected first match 'Confirm', got %+v", res)
	}
	if res.Score != nil {
		t.Error("FindText should not score")
	}

	if res := FindText(screen, "Missing", types.MatchContains); res.Matched || res.Element != nil {
		t.Errorf("Expected no match, got %+v", res)
	}
}

func TestFindAllText(t *testing.T) {
	all := FindAllText(screen, "confirm", types.MatchContains)
	if len(all) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(all))
	}
	if all[0].Text != "Confirm" || all[1].Text != "Confirm Order" {
		t.Errorf("Unexpected order %v", all)
	}
}

func TestFindWithContextRegion(t *testing.T) {
	elements := []types.ScreenTextElement{
		{Text: "OK", X: 5, Y: 5},
		{Text: "OK", X: 50, Y: 50},
	}
	ctx := &types.MatchContext{Region: &types.Region{X: 0, Y: 0, Width: 10, Height: 10}}

	res := FindWithContext(elements, "OK", types.MatchExact, ctx)
	if !res.Matched || res.Element.X != 5 {
		t.Fatalf("Expected element at (5,5), got %+v", res)
	}
	if res.Score == nil || *res.Score != 1.0 {
		t.Errorf("Expected score 1.0 for single candidate")
	}

	ctx.Region = &types.Region{X: 100, Y: 100, Width: 10, Height: 10}
	if res := FindWithContext(elements, "OK", types.MatchExact, ctx); res.Matched {
		t.Errorf("Expected no match outside region, got %+v", res)
	}
}

func TestFindWithContextScoring(t *testing.T) {
	res := FindWithContext(screen, "Confirm", types.MatchContains, &types.MatchContext{})
	if !res.Matched || res.Element.Text != "Confirm" {
		t.Fatalf("Expected exact-text candidate to win, got %+v", res)
	}
	if *res.Score != 1.0 {
		t.Errorf("Score = %v", *res.Score)
	}

	// Only "Confirm Order" starts with the target
	res = FindWithContext(screen, "Confirm Or", types.MatchStartsWith, &types.MatchContext{})
	if !res.Matched {
		t.Fatalf("Expected single candidate match, got %+v", res)
	}

	res = FindWithContext(screen, "firm", types.MatchContains, &types.MatchContext{})
	if res.Matched {
		t.Errorf("Expected rejection under default min score, got %+v", res)
	}

	res = FindWithContext(screen, "firm", types.MatchContains, &types.MatchContext{MinScore: 0.5})
	if !res.Matched || res.Element.Text != "Confirm" {
		t.Errorf("Expected 'Confirm' accepted at 0.5, got %+v", res)
	}
}

func TestFindWithContextNil(t *testing.T) {
	res := FindWithContext(screen, "Cancel", types.MatchExact, nil)
	if !res.Matched || res.Score != nil {
		t.Errorf("Expected plain FindText result, got %+v", res)
	}
}

func intPtr(v int) *int { return &v }

func TestMatchByPriority(t *testing.T) {
	targets := []types.TextMatchTarget{
		{ID: "A", Text: "Confirm", MatchMode: types.MatchContains, Priority: intPtr(2)},
		{ID: "B", Text: "Cancel", MatchMode: types.MatchExact, Priority: intPtr(1)},
	}
	target, el, ok := MatchByPriority(targets, screen)
	if !ok || target.ID != "B" || el.Text != "Cancel" {
		t.Errorf("Expected B/Cancel, got %s/%s ok=%v", target.ID, el.Text, ok)
	}
}

func TestMatchByPriorityTiesAndDefaults(t *testing.T) {
	targets := []types.TextMatchTarget{
		{ID: "unset", Text: "Settings"},
		{ID: "first", Text: "Confirm", Priority: intPtr(5)},
		{ID: "second", Text: "Cancel", Priority: intPtr(5)},
	}
	target, _, ok := MatchByPriority(targets, screen)
	if !ok || target.ID != "first" {
		t.Errorf("Expected 'first', got %q", target.ID)
	}

	target, _, ok = MatchByPriority(targets[:1], screen)
	if !ok || target.ID != "unset" {
		t.Errorf("Expected unset priority target to match, got %q", target.ID)
	}

	if _, _, ok := MatchByPriority(targets, nil); ok {
		t.Error("Expected no match on empty screen")
	}
}
