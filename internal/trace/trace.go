// Package trace replays a scripted sequence of render passes and
// configuration changes against a keep-alive boundary.
//
// A trace is a YAML document:
//
//	boundary:
//	  include: [home, about]   # list, comma string, {regexp: ...} or {glob: ...}
//	  max: 2
//	types:
//	  - local: home
//	  - local: about
//	    definition: pages      # locals sharing a definition share a type ID
//	steps:
//	  - {op: render, type: home}
//	  - {op: exclude, pattern: home}
//	  - {op: max, value: 1}
//	  - {op: close}
package trace

import (
	"fmt"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"

	"github.com/IvanBrykalov/keepalive/pattern"
)

// Step ops.
const (
	OpRender  = "render"
	OpInclude = "include"
	OpExclude = "exclude"
	OpMax     = "max"
	OpClose   = "close"
)

// Trace is a parsed trace file.
type Trace struct {
	Boundary BoundarySpec `yaml:"boundary"`
	Types    []TypeSpec   `yaml:"types"`
	Steps    []Step       `yaml:"steps"`
}

// BoundarySpec is the initial boundary configuration.
type BoundarySpec struct {
	Include *PatternSpec `yaml:"include"`
	Exclude *PatternSpec `yaml:"exclude"`
	Max     any          `yaml:"max"`
	Strict  bool         `yaml:"strict"`
}

// TypeSpec registers a local type name.
type TypeSpec struct {
	Local string `yaml:"local"`
	// Definition groups locals onto one definition; defaults to Local.
	Definition string `yaml:"definition"`
	// Name is the definition's display name; defaults to the first local name.
	Name string `yaml:"name"`
}

// Step is one trace action.
type Step struct {
	Op string `yaml:"op"`

	// render
	Type    string `yaml:"type"`
	Tag     string `yaml:"tag"`
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	Discard bool   `yaml:"discard"`

	// include / exclude
	Pattern *PatternSpec `yaml:"pattern"`

	// max
	Value any `yaml:"value"`
}

// PatternSpec decodes every pattern shape a boundary accepts.
type PatternSpec struct {
	p pattern.Pattern
}

// UnmarshalYAML implements yaml.InterfaceUnmarshaler.
func (s *PatternSpec) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		s.p = nil
	case string:
		s.p = v
	case []any:
		names := make([]string, 0, len(v))
		for i, item := range v {
			name, ok := item.(string)
			if !ok {
				return fmt.Errorf("list item %d is %T: %w", i, item, ErrInvalidPattern)
			}
			names = append(names, name)
		}
		s.p = names
	case map[string]any:
		if expr, ok := v["regexp"].(string); ok {
			re, err := regexp.Compile(expr)
			if err != nil {
				return fmt.Errorf("regexp %q: %w", expr, err)
			}
			s.p = re
			return nil
		}
		if glob, ok := v["glob"].(string); ok {
			s.p = pattern.Glob(glob)
			return nil
		}
		return fmt.Errorf("mapping needs a regexp or glob key: %w", ErrInvalidPattern)
	default:
		return fmt.Errorf("unsupported %T: %w", raw, ErrInvalidPattern)
	}
	return nil
}

// Pattern returns the decoded pattern; a nil receiver yields nil (absent).
func (s *PatternSpec) Pattern() pattern.Pattern {
	if s == nil {
		return nil
	}
	return s.p
}

// Load reads and parses a trace file.
func Load(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a trace document.
func Parse(data []byte) (*Trace, error) {
	var t Trace
	if err := yaml.UnmarshalWithOptions(data, &t, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse trace: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks ops and type references.
func (t *Trace) Validate() error {
	locals := make(map[string]bool, len(t.Types))
	for i, ts := range t.Types {
		if ts.Local == "" {
			return fmt.Errorf("type %d: empty local name", i)
		}
		locals[ts.Local] = true
	}
	for i, s := range t.Steps {
		switch s.Op {
		case OpRender:
			if s.Type != "" && !locals[s.Type] {
				return fmt.Errorf("step %d: %q: %w", i, s.Type, ErrUnknownType)
			}
		case OpInclude, OpExclude, OpMax, OpClose:
		default:
			return fmt.Errorf("step %d: %q: %w", i, s.Op, ErrUnknownOp)
		}
	}
	return nil
}
