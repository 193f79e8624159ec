// Package catalog describes provisioning steps declaratively and compiles
// them into a step registry backed by the provision collaborators.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Definition is an ordered list of provisioning steps.
type Definition struct {
	Version int       `yaml:"version"`
	Steps   []StepDef `yaml:"steps"`
}

// StepDef declares one provisioning step.
type StepDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Check is a command line; when it exits zero the step is already satisfied.
	Check    string        `yaml:"check,omitempty"`
	Attempts int           `yaml:"attempts,omitempty"`
	Backoff  time.Duration `yaml:"backoff,omitempty"`
	Actions  []Action      `yaml:"actions"`
}

// Action is a single side effect. Exactly one field must be set.
type Action struct {
	Run    string       `yaml:"run,omitempty"`
	Clone  *CloneAction `yaml:"clone,omitempty"`
	Copy   *CopyAction  `yaml:"copy,omitempty"`
	Remove string       `yaml:"remove,omitempty"`
	Mkdir  string       `yaml:"mkdir,omitempty"`
}

// CloneAction clones a git repository.
type CloneAction struct {
	Repository string `yaml:"repository"`
	Dest       string `yaml:"dest"`
	Depth      int    `yaml:"depth,omitempty"`
}

// CopyAction copies one file between directories.
type CopyAction struct {
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	File       string `yaml:"file"`
	CreateDest bool   `yaml:"create_dest,omitempty"`
}

// Kind names the action type.
func (a Action) Kind() string {
	switch {
	case a.Run != "":
		return "run"
	case a.Clone != nil:
		return "clone"
	case a.Copy != nil:
		return "copy"
	case a.Remove != "":
		return "remove"
	case a.Mkdir != "":
		return "mkdir"
	default:
		return ""
	}
}

func (a Action) validate() error {
	set := 0
	for _, ok := range []bool{a.Run != "", a.Clone != nil, a.Copy != nil, a.Remove != "", a.Mkdir != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of run, clone, copy, remove, mkdir is required (got %d)", set)
	}
	if a.Clone != nil {
		if strings.TrimSpace(a.Clone.Repository) == "" || strings.TrimSpace(a.Clone.Dest) == "" {
			return fmt.Errorf("clone: repository and dest are required")
		}
		if a.Clone.Depth < 0 {
			return fmt.Errorf("clone: depth must be >= 0")
		}
	}
	if a.Copy != nil {
		if a.Copy.From == "" || a.Copy.To == "" || a.Copy.File == "" {
			return fmt.Errorf("copy: from, to and file are required")
		}
	}
	return nil
}

// Validate ensures the definition can be compiled.
func (def Definition) Validate() error {
	if len(def.Steps) == 0 {
		return fmt.Errorf("catalog: at least one step is required")
	}
	for idx, s := range def.Steps {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("catalog: step[%d]: name is required", idx)
		}
		if len(s.Actions) == 0 {
			return fmt.Errorf("catalog: step[%d] %s: at least one action is required", idx, s.Name)
		}
		if s.Attempts < 0 {
			return fmt.Errorf("catalog: step[%d] %s: attempts must be >= 0", idx, s.Name)
		}
		if s.Backoff < 0 {
			return fmt.Errorf("catalog: step[%d] %s: backoff must be >= 0", idx, s.Name)
		}
		for aidx, action := range s.Actions {
			if err := action.validate(); err != nil {
				return fmt.Errorf("catalog: step[%d] %s action[%d]: %w", idx, s.Name, aidx, err)
			}
		}
	}
	return nil
}

// Names returns step names in declaration order.
func (def Definition) Names() []string {
	names := make([]string, 0, len(def.Steps))
	for _, s := range def.Steps {
		names = append(names, s.Name)
	}
	return names
}
