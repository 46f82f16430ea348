package intent

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeEnum   ParamType = "enum"
	TypeURL    ParamType = "url"
)

// ParamSpec describes one parameter of an action. When Clamp is set,
// out-of-range int values are pulled into [Min, Max] instead of rejected.
type ParamSpec struct {
	Name     string    `yaml:"name"`
	Type     ParamType `yaml:"type"`
	Required bool      `yaml:"required"`
	Default  string    `yaml:"default,omitempty"`
	Enum     []string  `yaml:"enum,omitempty"`
	Min      int       `yaml:"min,omitempty"`
	Max      int       `yaml:"max,omitempty"`
	Clamp    bool      `yaml:"clamp,omitempty"`
}

type ActionSpec struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Params      []ParamSpec `yaml:"params,omitempty"`
}

// Schema is the closed set of actions the assistant can execute. It is built
// once at boot and read-only afterwards; both the NLU prompt and the
// validator derive from the same instance.
type Schema struct {
	actions []ActionSpec
	byName  map[string]*ActionSpec
}

func NewSchema(actions []ActionSpec) (*Schema, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("schema has no actions")
	}

	s := &Schema{
		actions: append([]ActionSpec(nil), actions...),
		byName:  make(map[string]*ActionSpec, len(actions)),
	}

	for i := range s.actions {
		a := &s.actions[i]
		if a.Name == "" {
			return nil, fmt.Errorf("action %d has empty name", i)
		}
		if _, dup := s.byName[a.Name]; dup {
			return nil, fmt.Errorf("duplicate action %q", a.Name)
		}
		for _, p := range a.Params {
			switch p.Type {
			case TypeString, TypeInt, TypeEnum, TypeURL:
			default:
				return nil, fmt.Errorf("action %q param %q: unknown type %q", a.Name, p.Name, p.Type)
			}
			if p.Type == TypeEnum && len(p.Enum) == 0 {
				return nil, fmt.Errorf("action %q param %q: enum without values", a.Name, p.Name)
			}
			if p.Clamp && p.Min >= p.Max {
				return nil, fmt.Errorf("action %q param %q: clamp range [%d,%d]", a.Name, p.Name, p.Min, p.Max)
			}
		}
		s.byName[a.Name] = a
	}

	return s, nil
}

// LoadFile replaces the built-in catalogue with one read from a YAML file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	var doc struct {
		Actions []ActionSpec `yaml:"actions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	return NewSchema(doc.Actions)
}

func (s *Schema) Actions() []ActionSpec {
	return s.actions
}

func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.actions))
	for _, a := range s.actions {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}

func (s *Schema) Lookup(name string) (*ActionSpec, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// Description renders the action catalogue as the numbered list embedded in
// the classifier's system prompt, so the service's answer space is limited to
// actions this process can actually execute.
func (s *Schema) Description() string {
	var b strings.Builder
	for i, a := range s.actions {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, a.Name, a.Description)
		for _, p := range a.Params {
			b.WriteString("   - ")
			b.WriteString(p.Name)
			b.WriteString(": ")
			b.WriteString(paramHint(p))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func paramHint(p ParamSpec) string {
	var parts []string
	switch p.Type {
	case TypeEnum:
		parts = append(parts, "one of "+strings.Join(p.Enum, "|"))
	case TypeInt:
		if p.Clamp || p.Max > p.Min {
			parts = append(parts, fmt.Sprintf("integer %d-%d", p.Min, p.Max))
		} else {
			parts = append(parts, "integer")
		}
	case TypeURL:
		parts = append(parts, "URL")
	default:
		parts = append(parts, "string")
	}
	if p.Required {
		parts = append(parts, "required")
	} else if p.Default != "" {
		parts = append(parts, fmt.Sprintf("optional, default %q", p.Default))
	} else {
		parts = append(parts, "optional")
	}
	return strings.Join(parts, ", ")
}

// Default is the built-in catalogue, mirroring what the action registry
// implements. Keep the two in sync; the dispatcher refuses to start when they
// drift apart.
func Default() *Schema {
	s, err := NewSchema([]ActionSpec{
		{
			Name:        "reply",
			Description: `answer a knowledge question directly (e.g. "what is a computer")`,
			Params: []ParamSpec{
				{Name: "answer", Type: TypeString, Required: true},
			},
		},
		{
			Name:        "open_website",
			Description: `open a website (e.g. "open youtube", "go to facebook"); site is a short name or a URL`,
			Params: []ParamSpec{
				{Name: "site", Type: TypeString, Required: true},
			},
		},
		{
			Name:        "open_application",
			Description: `launch a desktop application (e.g. "start VS Code")`,
			Params: []ParamSpec{
				{Name: "app_name", Type: TypeString, Required: true},
			},
		},
		{
			Name:        "close_application",
			Description: `close a running application (e.g. "quit spotify")`,
			Params: []ParamSpec{
				{Name: "app_name", Type: TypeString, Required: true},
			},
		},
		{
			Name:        "youtube_search",
			Description: `search YouTube (e.g. "search for coding tips on youtube")`,
			Params: []ParamSpec{
				{Name: "query", Type: TypeString, Required: true},
			},
		},
		{
			Name:        "youtube_play",
			Description: `play a song or video on YouTube (e.g. "play bohemian rhapsody by queen")`,
			Params: []ParamSpec{
				{Name: "song_name", Type: TypeString, Required: true},
				{Name: "artist", Type: TypeString},
			},
		},
		{
			Name:        "web_search",
			Description: `search the web (e.g. "google the weather")`,
			Params: []ParamSpec{
				{Name: "query", Type: TypeString, Required: true},
				{Name: "engine", Type: TypeEnum, Enum: []string{"google", "duckduckgo", "bing"}},
			},
		},
		{
			Name:        "set_volume",
			Description: `set the system volume to an absolute level (e.g. "set volume to 50")`,
			Params: []ParamSpec{
				{Name: "level", Type: TypeInt, Required: true, Min: 0, Max: 100, Clamp: true},
			},
		},
		{
			Name:        "volume_control",
			Description: `adjust the system volume relatively (e.g. "turn it up", "mute")`,
			Params: []ParamSpec{
				{Name: "operation", Type: TypeEnum, Required: true, Enum: []string{"increase", "decrease", "mute", "unmute"}},
			},
		},
		{
			Name:        "system_control",
			Description: `power/session control (e.g. "lock screen", "shutdown computer")`,
			Params: []ParamSpec{
				{Name: "command", Type: TypeEnum, Required: true, Enum: []string{"shutdown", "restart", "sleep", "lock"}},
			},
		},
		{
			Name:        "window_control",
			Description: `minimize or maximize the active window`,
			Params: []ParamSpec{
				{Name: "command", Type: TypeEnum, Required: true, Enum: []string{"minimize", "maximize"}},
			},
		},
		{
			Name:        "file_io",
			Description: `notes and lists: create, append, read, delete a note or list a directory; use append when adding to an existing list`,
			Params: []ParamSpec{
				{Name: "operation", Type: TypeEnum, Required: true, Enum: []string{"create", "append", "read", "delete", "list"}},
				{Name: "file_name", Type: TypeString, Required: true},
				{Name: "content", Type: TypeString},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return s
}
