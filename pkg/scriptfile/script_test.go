package scriptfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Tapflow/pkg/types"
)

const yamlScript = `
name: checkout
description: place an order
steps:
  - targetText: Add to cart
  - targetText: "^Confirm"
    matchMode: regex
    action: longPress
    timeout: 5000
  - targetText: Items
    action: swipe
    swipeParams:
      direction: down
targets:
  - text: Skip
    autoClick: true
    priority: 1
`

func TestParseYAML(t *testing.T) {
	s, err := Parse([]byte(yamlScript), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Name != "checkout" || len(s.Steps) != 3 || len(s.Targets) != 1 {
		t.Fatalf("Unexpected script %+v", s)
	}

	first := s.Steps[0]
	if first.Timeout != types.DefaultStepTimeout || first.WaitAfterAction != types.DefaultWaitAfterAction || first.NextStepDelay != types.DefaultNextStepDelay {
		t.Errorf("Defaults not applied: %+v", first)
	}
	if first.MatchMode != types.MatchContains || first.Action != types.StepTap || first.ID == "" {
		t.Errorf("Defaults not applied: %+v", first)
	}

	second := s.Steps[1]
	if second.MatchMode != types.MatchRegex || second.Action != types.StepLongPress || second.Timeout != 5000 {
		t.Errorf("Unexpected second step %+v", second)
	}

	third := s.Steps[2]
	if third.SwipeParams == nil || third.SwipeParams.Distance != types.DefaultSwipeDistance {
		t.Errorf("Swipe defaults not applied: %+v", third.SwipeParams)
	}

	if s.Targets[0].EffectivePriority() != 1 || !s.Targets[0].AutoClick {
		t.Errorf("Unexpected target %+v", s.Targets[0])
	}

	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseBareList(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{"yaml", "- targetText: OK\n- targetText: Next\n", ".yml"},
		{"json", `[{"targetText":"OK"},{"targetText":"Next"}]`, ".json"},
		{"sniffed json", `[{"targetText":"OK"},{"targetText":"Next"}]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.data), tt.ext)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(s.Steps) != 2 || s.Steps[1].TargetText != "Next" {
				t.Errorf("Unexpected steps %+v", s.Steps)
			}
		})
	}
}

func TestParseJSONObject(t *testing.T) {
	data := `{"name":"login","steps":[{"targetText":"Sign in","matchMode":"exact","waitAfterAction":-1}]}`
	s, err := Parse([]byte(data), ".json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Name != "login" || s.Steps[0].MatchMode != types.MatchExact {
		t.Errorf("Unexpected script %+v", s)
	}
	if s.Steps[0].WaitAfterAction != -1 {
		t.Errorf("Negative wait should be kept, got %d", s.Steps[0].WaitAfterAction)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte("{not json"), ".json"); err == nil {
		t.Error("Expected JSON error")
	}
	if _, err := Parse([]byte("steps: [unclosed"), ".yaml"); err == nil {
		t.Error("Expected YAML error")
	}
	if _, err := Parse([]byte(""), ".yaml"); err == nil {
		t.Error("Expected error for empty document")
	}
}

func TestValidate(t *testing.T) {
	s := &Script{
		Steps: []types.ScriptStep{
			{TargetText: "", MatchMode: types.MatchContains, Action: types.StepTap},
			{TargetText: "(", MatchMode: types.MatchRegex, Action: types.StepTap},
			{TargetText: "x", MatchMode: "fuzzy", Action: "doubleTap"},
		},
	}

	err := s.Validate()
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	for _, want := range []string{"targetText is empty", "invalid regex", "unknown match mode", "unknown action"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}

	if err := (&Script{}).Validate(); err == nil {
		t.Error("Expected error for empty script")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	s, err := Parse([]byte(yamlScript), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	data, err := s.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(data, ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	if again.Steps[1].ID != s.Steps[1].ID || again.Steps[1].TargetText != "^Confirm" {
		t.Errorf("Round trip lost data: %+v", again.Steps[1])
	}
}

func TestLibrary(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "checkout.yaml"), []byte(yamlScript), 0644)
	os.WriteFile(filepath.Join(dir, "quick.json"), []byte(`[{"targetText":"OK"}]`), 0644)
	os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("steps: [unclosed"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	lib := NewLibrary(dir)
	if err := lib.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	list := lib.List()
	if len(list) != 2 || list[0].Name != "checkout" || list[1].Name != "quick" {
		t.Fatalf("Unexpected library contents %v", list)
	}
	if s, ok := lib.Get("quick"); !ok || s.Path != filepath.Join(dir, "quick.json") {
		t.Errorf("Get(quick) = %+v, %v", s, ok)
	}
	if _, ok := lib.Get("broken"); ok {
		t.Error("Broken script should be skipped")
	}
}

func TestLibraryMissingDir(t *testing.T) {
	lib := NewLibrary(filepath.Join(t.TempDir(), "absent"))
	if err := lib.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(lib.List()) != 0 {
		t.Error("Expected empty library")
	}
}

func TestLibraryWatch(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(dir)
	if err := lib.Load(); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 4)
	if err := lib.Watch(func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer lib.Close()

	if err := os.WriteFile(filepath.Join(dir, "new.yaml"), []byte("- targetText: Hello\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("No reload after file write")
	}
	if _, ok := lib.Get("new"); !ok {
		t.Error("Expected new script after reload")
	}
}

func TestParseTargets(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr string
	}{
		{"json", `[{"text": "Allow", "autoClick": true}, {"id": "skip", "text": "Skip", "priority": 2}]`, 2, ""},
		{"yaml", "- text: Allow\n  matchMode: exact\n", 1, ""},
		{"empty", "[]", 0, "empty"},
		{"bad regex", `[{"text": "(", "matchMode": "regex"}]`, 0, "invalid regex"},
		{"blank text", `[{"text": " "}]`, 0, "text is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := ParseTargets([]byte(tt.data))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTargets failed: %v", err)
			}
			if len(targets) != tt.want {
				t.Fatalf("Expected %d targets, got %d", tt.want, len(targets))
			}
			for _, target := range targets {
				if target.ID == "" || target.MatchMode == "" {
					t.Errorf("Expected defaults applied, got %+v", target)
				}
			}
		})
	}
}
