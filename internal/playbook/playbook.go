// Package playbook provides reusable bulk-operation sequences defined in
// TOML or YAML files. A playbook names a selector and an ordered action
// list; running one still goes through the normal handle resolution and
// dispatch path.
package playbook

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/lasso/internal/action"
	"github.com/steveyegge/lasso/internal/types"
)

// Playbook is a named bulk-operation recipe.
type Playbook struct {
	Name        string `toml:"name" yaml:"name"`
	Description string `toml:"description" yaml:"description"`

	// Execution options. Zero values defer to the runner's defaults.
	StopOnError   bool `toml:"stop_on_error" yaml:"stop_on_error"`
	DryRun        bool `toml:"dry_run" yaml:"dry_run"`
	MaxConcurrent int  `toml:"max_concurrent" yaml:"max_concurrent"`

	Selector SelectorSpec `toml:"selector" yaml:"selector"`
	Actions  []ActionSpec `toml:"actions" yaml:"actions"`
}

// SelectorSpec is the file shape of an item selector.
type SelectorSpec struct {
	Kind string `toml:"kind" yaml:"kind"` // "all", "index", "criteria"

	Indices []int `toml:"indices" yaml:"indices"`

	States          []string `toml:"states" yaml:"states"`
	Tags            []string `toml:"tags" yaml:"tags"`
	TitleContains   string   `toml:"title_contains" yaml:"title_contains"`
	DaysInactiveMin *int     `toml:"days_inactive_min" yaml:"days_inactive_min"`
	DaysInactiveMax *int     `toml:"days_inactive_max" yaml:"days_inactive_max"`
}

// Compile converts the declarative form into a runtime selector.
func (s SelectorSpec) Compile() (types.Selector, error) {
	switch s.Kind {
	case "", "all":
		return types.SelectAll{}, nil
	case "index":
		return types.SelectByIndex{Indices: s.Indices}, nil
	case "criteria":
		return types.SelectByCriteria{
			States:          s.States,
			Tags:            s.Tags,
			TitleContains:   s.TitleContains,
			DaysInactiveMin: s.DaysInactiveMin,
			DaysInactiveMax: s.DaysInactiveMax,
		}, nil
	default:
		return nil, fmt.Errorf("unknown selector kind: %q", s.Kind)
	}
}

// ActionSpec is the file shape of one bulk action. Only the fields for the
// declared kind are read; the rest stay zero.
type ActionSpec struct {
	Kind string `toml:"kind" yaml:"kind"`

	Text          string                 `toml:"text" yaml:"text"`
	Ops           []types.PatchOperation `toml:"ops" yaml:"ops"`
	Assignee      string                 `toml:"assignee" yaml:"assignee"`
	Reason        string                 `toml:"reason" yaml:"reason"`
	Tags          []string               `toml:"tags" yaml:"tags"`
	State         string                 `toml:"state" yaml:"state"`
	IterationPath string                 `toml:"iteration_path" yaml:"iteration_path"`
	NewType       string                 `toml:"new_type" yaml:"new_type"`

	// Enhance options.
	Enhance string `toml:"enhance" yaml:"enhance"` // description, acceptance_criteria, estimate
	Format  string `toml:"format" yaml:"format"`
	Notes   string `toml:"notes" yaml:"notes"`
}

// Compile converts the declarative form into a runtime action and
// validates it structurally.
func (a ActionSpec) Compile() (types.BulkAction, error) {
	kind, err := types.ParseActionKind(a.Kind)
	if err != nil {
		return nil, err
	}

	var act types.BulkAction
	switch kind {
	case types.ActionComment:
		act = types.CommentAction{Text: a.Text}
	case types.ActionFieldUpdate:
		act = types.FieldUpdateAction{Ops: a.Ops}
	case types.ActionAssign:
		act = types.AssignAction{Assignee: a.Assignee}
	case types.ActionRemove:
		act = types.RemoveAction{Reason: a.Reason}
	case types.ActionAddTag:
		act = types.AddTagAction{Tags: a.Tags}
	case types.ActionRemoveTag:
		act = types.RemoveTagAction{Tags: a.Tags}
	case types.ActionTransition:
		act = types.TransitionAction{State: a.State, Reason: a.Reason}
	case types.ActionMove:
		act = types.MoveIterationAction{Path: a.IterationPath}
	case types.ActionChangeType:
		act = types.ChangeTypeAction{NewType: a.NewType}
	case types.ActionEnhance:
		enhKind, err := types.ParseEnhanceKind(a.Enhance)
		if err != nil {
			return nil, err
		}
		act = types.EnhanceAction{
			EnhanceKind: enhKind,
			Style:       types.EnhanceStyle{Format: a.Format, Notes: a.Notes},
		}
	default:
		return nil, fmt.Errorf("unknown action kind: %q", a.Kind)
	}

	if err := action.Validate(act); err != nil {
		return nil, err
	}
	return act, nil
}

// Compile resolves the whole playbook into runtime types.
func (p *Playbook) Compile() (types.Selector, []types.BulkAction, error) {
	sel, err := p.Selector.Compile()
	if err != nil {
		return nil, nil, fmt.Errorf("playbook %s: %w", p.Name, err)
	}

	if len(p.Actions) == 0 {
		return nil, nil, fmt.Errorf("playbook %s: no actions", p.Name)
	}
	actions := make([]types.BulkAction, len(p.Actions))
	for i, spec := range p.Actions {
		act, err := spec.Compile()
		if err != nil {
			return nil, nil, fmt.Errorf("playbook %s: action %d: %w", p.Name, i, err)
		}
		actions[i] = act
	}

	return sel, actions, nil
}

// Builtin contains playbooks compiled into the binary.
var Builtin = map[string]Playbook{
	"nudge-stale": {
		Name:        "nudge-stale",
		Description: "Comment on items untouched for 60+ days and tag them for triage",
		Selector: SelectorSpec{
			Kind:            "criteria",
			DaysInactiveMin: intPtr(60),
		},
		Actions: []ActionSpec{
			{Kind: "comment", Text: "This item has been inactive for over 60 days. Is it still relevant?"},
			{Kind: "add_tag", Tags: []string{"needs-triage"}},
		},
	},
	"close-abandoned": {
		Name:        "close-abandoned",
		Description: "Close items untouched for 180+ days with an explanatory comment",
		StopOnError: true,
		Selector: SelectorSpec{
			Kind:            "criteria",
			DaysInactiveMin: intPtr(180),
		},
		Actions: []ActionSpec{
			{Kind: "comment", Text: "Closing due to 180+ days of inactivity. Reopen if still needed."},
			{Kind: "transition_state", State: "Closed"},
			{Kind: "add_tag", Tags: []string{"auto-closed"}},
		},
	},
}

func intPtr(v int) *int { return &v }

// fileExts are the recognized playbook file extensions, in lookup order.
var fileExts = []string{".toml", ".yaml", ".yml"}

// Load reads and decodes a playbook file. The format follows the file
// extension; anything that is not .yaml or .yml parses as TOML.
func Load(path string) (*Playbook, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read playbook: %w", err)
	}

	var p Playbook
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		err = toml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("parse playbook %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &p, nil
}

// Get resolves a playbook reference: a path to a playbook file, a name in
// playbookDir, or a built-in. User files shadow built-ins of the same name.
func Get(ref, playbookDir string) (*Playbook, error) {
	if strings.ContainsRune(ref, os.PathSeparator) || hasPlaybookExt(ref) {
		return Load(ref)
	}

	name := strings.ToLower(strings.TrimSpace(ref))
	if playbookDir != "" {
		for _, ext := range fileExts {
			path := filepath.Join(playbookDir, name+ext)
			if _, err := os.Stat(path); err == nil {
				return Load(path)
			}
		}
	}

	if p, ok := Builtin[name]; ok {
		return &p, nil
	}
	return nil, fmt.Errorf("unknown playbook: %s", ref)
}

func hasPlaybookExt(ref string) bool {
	for _, ext := range fileExts {
		if strings.HasSuffix(ref, ext) {
			return true
		}
	}
	return false
}

// InDir reports whether playbookDir contains a file for the given name.
func InDir(name, playbookDir string) bool {
	if playbookDir == "" {
		return false
	}
	for _, ext := range fileExts {
		if _, err := os.Stat(filepath.Join(playbookDir, name+ext)); err == nil {
			return true
		}
	}
	return false
}

// Names returns the sorted names of all available playbooks: built-ins plus
// any playbook files in playbookDir.
func Names(playbookDir string) ([]string, error) {
	seen := make(map[string]bool, len(Builtin))
	for name := range Builtin {
		seen[name] = true
	}

	if playbookDir != "" {
		entries, err := os.ReadDir(playbookDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read playbook dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !hasPlaybookExt(e.Name()) {
				continue
			}
			seen[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// IsBuiltin reports whether the name refers to a compiled-in playbook.
func IsBuiltin(name string) bool {
	_, ok := Builtin[name]
	return ok
}
