// Package scriptfile loads script step files written in YAML or JSON
package scriptfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"Tapflow/pkg/matcher"
	"Tapflow/pkg/types"
)

// Script is a named list of steps, optionally with targets for continuous
// watching
type Script struct {
	Name        string                  `json:"name" yaml:"name"`
	Description string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []types.ScriptStep      `json:"steps" yaml:"steps"`
	Targets     []types.TextMatchTarget `json:"targets,omitempty" yaml:"targets,omitempty"`
	Path        string                  `json:"path,omitempty" yaml:"-"`
}

// Parse decodes a script. ext selects the format (".json", ".yaml", ".yml");
// anything else is sniffed. A bare step list is accepted as well.
func Parse(data []byte, ext string) (*Script, error) {
	format := strings.ToLower(ext)
	if format != ".json" && format != ".yaml" && format != ".yml" {
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			format = ".json"
		} else {
			format = ".yaml"
		}
	}

	var script Script
	if format == ".json" {
		if !gjson.ValidBytes(data) {
			return nil, errors.New("invalid JSON")
		}
		if gjson.ParseBytes(data).IsArray() {
			if err := json.Unmarshal(data, &script.Steps); err != nil {
				return nil, fmt.Errorf("decode steps: %w", err)
			}
		} else if err := json.Unmarshal(data, &script); err != nil {
			return nil, fmt.Errorf("decode script: %w", err)
		}
	} else {
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
		if len(node.Content) == 0 {
			return nil, errors.New("empty script")
		}
		root := node.Content[0]
		var err error
		if root.Kind == yaml.SequenceNode {
			err = root.Decode(&script.Steps)
		} else {
			err = root.Decode(&script)
		}
		if err != nil {
			return nil, fmt.Errorf("decode script: %w", err)
		}
	}

	script.ApplyDefaults()
	return &script, nil
}

// LoadFile reads and parses path. The file name stands in for a missing name.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	script, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if script.Name == "" {
		script.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	script.Path = path
	return script, nil
}

// ApplyDefaults fills step timings, modes, actions and ids
func (s *Script) ApplyDefaults() {
	for i := range s.Steps {
		s.Steps[i] = s.Steps[i].WithDefaults()
		if s.Steps[i].ID == "" {
			s.Steps[i].ID = uuid.New().String()
		}
	}
	for i := range s.Targets {
		if s.Targets[i].MatchMode == "" {
			s.Targets[i].MatchMode = types.MatchContains
		}
		if s.Targets[i].ID == "" {
			s.Targets[i].ID = uuid.New().String()
		}
	}
}

// Validate reports every problem found in the script
func (s *Script) Validate() error {
	var errs []error
	if len(s.Steps) == 0 && len(s.Targets) == 0 {
		errs = append(errs, errors.New("script has no steps or targets"))
	}

	for i, step := range s.Steps {
		where := fmt.Sprintf("step %d", i+1)
		if strings.TrimSpace(step.TargetText) == "" {
			errs = append(errs, fmt.Errorf("%s: targetText is empty", where))
		}
		if err := validateMode(step.MatchMode, step.TargetText); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
		switch step.Action {
		case types.StepTap, types.StepLongPress:
		case types.StepSwipe:
			if p := step.SwipeParams; p != nil {
				switch p.Direction {
				case "up", "down", "left", "right":
				default:
					errs = append(errs, fmt.Errorf("%s: unknown swipe direction %q", where, p.Direction))
				}
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown action %q", where, step.Action))
		}
	}

	for i, target := range s.Targets {
		where := fmt.Sprintf("target %d", i+1)
		if strings.TrimSpace(target.Text) == "" {
			errs = append(errs, fmt.Errorf("%s: text is empty", where))
		}
		if err := validateMode(target.MatchMode, target.Text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
	}
	return errors.Join(errs...)
}

func validateMode(mode types.MatchMode, text string) error {
	switch mode {
	case types.MatchExact, types.MatchContains, types.MatchStartsWith, types.MatchEndsWith:
		return nil
	case types.MatchRegex:
		if err := matcher.ValidPattern(text); err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown match mode %q", mode)
	}
}

// Marshal encodes the script as YAML
func (s *Script) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// ParseTargets decodes a bare target list, JSON or YAML, applies defaults and
// validates it
func ParseTargets(data []byte) ([]types.TextMatchTarget, error) {
	var targets []types.TextMatchTarget
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' && gjson.ValidBytes(trimmed) {
		if err := json.Unmarshal(trimmed, &targets); err != nil {
			return nil, fmt.Errorf("decode targets: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("decode targets: %w", err)
	}
	if len(targets) == 0 {
		return nil, errors.New("targets list is empty")
	}

	s := &Script{Targets: targets}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s.Targets, nil
}
