// Package prompts renders the system and user prompts for each generation tool.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTool is returned by Build when the tool identifier is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Inputs are the free-form parameters sent with a generate request.
type Inputs map[string]any

// Text returns the input rendered as prompt text, or def when the key is
// absent or null. Numbers keep their literal JSON form, booleans render as
// True or False, and lists and objects render as compact JSON.
func (in Inputs) Text(key, def string) string {
	v, ok := in[key]
	if !ok || v == nil {
		return def
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "True"
		}
		return "False"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// Field is a named input with the default substituted when it is omitted.
type Field struct {
	Name    string
	Default string
}

// ToolSpec is the immutable prompt contract of one tool.
type ToolSpec struct {
	Name         string
	SystemPrompt string
	Fields       []Field
	Temperature  float64
	MaxTokens    int

	// render builds the user prompt from resolved field values.
	render func(v map[string]string) string
}

// Resolve returns each declared field's value, falling back to its default.
func (s *ToolSpec) Resolve(in Inputs) map[string]string {
	vals := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		vals[f.Name] = in.Text(f.Name, f.Default)
	}
	return vals
}

// UserPrompt renders the user prompt for the given inputs.
func (s *ToolSpec) UserPrompt(in Inputs) string {
	return s.render(s.Resolve(in))
}

// Prompt is everything the completion client needs for one request.
type Prompt struct {
	Tool        string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Registry maps tool identifiers to their specs. It is read-only after construction.
type Registry struct {
	specs map[string]*ToolSpec
	order []string
}

// NewRegistry builds a registry from specs. Later specs replace earlier ones with the same name.
func NewRegistry(specs ...*ToolSpec) *Registry {
	r := &Registry{specs: make(map[string]*ToolSpec, len(specs))}
	for _, s := range specs {
		if _, dup := r.specs[s.Name]; !dup {
			r.order = append(r.order, s.Name)
		}
		r.specs[s.Name] = s
	}
	return r
}

// Build renders the prompt for tool.
func (r *Registry) Build(tool string, in Inputs) (Prompt, error) {
	s, ok := r.specs[tool]
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}
	return Prompt{
		Tool:        s.Name,
		System:      s.SystemPrompt,
		User:        s.UserPrompt(in),
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}, nil
}

// Spec returns the spec for tool.
func (r *Registry) Spec(tool string) (*ToolSpec, bool) {
	s, ok := r.specs[tool]
	return s, ok
}

// Tools returns the registered identifiers in registration order.
func (r *Registry) Tools() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
