package intent

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Raw is the classifier's answer for one utterance, untrusted until it passes
// Validate. Parameters are kept as strings; coercion happens during
// validation against the schema's declared types.
type Raw struct {
	Action     string
	Parameters map[string]string
	Confidence float64
	// RawText is the original service payload, retained for diagnostics.
	RawText string
}

type ValidationKind int

const (
	UnknownAction ValidationKind = iota
	MissingParameter
	TypeMismatch
)

func (k ValidationKind) String() string {
	switch k {
	case UnknownAction:
		return "unknown_action"
	case MissingParameter:
		return "missing_parameter"
	case TypeMismatch:
		return "type_mismatch"
	}
	return "invalid"
}

type ValidationError struct {
	Kind   ValidationKind
	Action string
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case UnknownAction:
		return fmt.Sprintf("unknown action %q", e.Action)
	case MissingParameter:
		return fmt.Sprintf("action %q: missing required parameter %q", e.Action, e.Param)
	default:
		return fmt.Sprintf("action %q: parameter %q: %s", e.Action, e.Param, e.Reason)
	}
}

// Value is a parameter coerced to its declared semantic type.
type Value struct {
	Type ParamType
	Str  string
	Int  int
}

// Intent is a Raw that survived validation: the action exists in the schema,
// every required parameter is present and every value is typed. Only
// Validate constructs one; nothing else may.
type Intent struct {
	action string
	params map[string]Value
}

func (in *Intent) Action() string { return in.action }

func (in *Intent) String(name string) string { return in.params[name].Str }

func (in *Intent) Int(name string) int { return in.params[name].Int }

func (in *Intent) Has(name string) bool {
	_, ok := in.params[name]
	return ok
}

// Validate checks raw against the schema. It is pure: no I/O, no side
// effects, identical results for identical inputs. Parameters the schema does
// not declare are dropped, so they can never reach a handler.
func Validate(raw Raw, schema *Schema) (*Intent, error) {
	spec, ok := schema.Lookup(raw.Action)
	if !ok {
		return nil, &ValidationError{Kind: UnknownAction, Action: raw.Action}
	}

	params := make(map[string]Value, len(spec.Params))

	for _, p := range spec.Params {
		got, present := raw.Parameters[p.Name]
		if !present || strings.TrimSpace(got) == "" {
			if p.Required {
				return nil, &ValidationError{Kind: MissingParameter, Action: raw.Action, Param: p.Name}
			}
			got = p.Default
		}

		v, err := coerce(p, got)
		if err != nil {
			return nil, &ValidationError{
				Kind:   TypeMismatch,
				Action: raw.Action,
				Param:  p.Name,
				Reason: err.Error(),
			}
		}
		params[p.Name] = v
	}

	return &Intent{action: spec.Name, params: params}, nil
}

func coerce(p ParamSpec, got string) (Value, error) {
	switch p.Type {
	case TypeString:
		return Value{Type: TypeString, Str: got}, nil

	case TypeInt:
		n, err := strconv.Atoi(strings.TrimSpace(got))
		if err != nil {
			return Value{}, fmt.Errorf("%q is not an integer", got)
		}
		if p.Clamp {
			if n < p.Min {
				n = p.Min
			}
			if n > p.Max {
				n = p.Max
			}
		} else if p.Max > p.Min && (n < p.Min || n > p.Max) {
			return Value{}, fmt.Errorf("%d outside [%d,%d]", n, p.Min, p.Max)
		}
		return Value{Type: TypeInt, Int: n, Str: strconv.Itoa(n)}, nil

	case TypeEnum:
		got = strings.ToLower(strings.TrimSpace(got))
		for _, allowed := range p.Enum {
			if got == allowed {
				return Value{Type: TypeEnum, Str: got}, nil
			}
		}
		return Value{}, fmt.Errorf("%q not in {%s}", got, strings.Join(p.Enum, ","))

	case TypeURL:
		s := strings.TrimSpace(got)
		if s == "" {
			return Value{Type: TypeURL, Str: ""}, nil
		}
		if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			s = "https://" + strings.TrimPrefix(s, "www.")
		}
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return Value{}, fmt.Errorf("%q is not a URL", got)
		}
		return Value{Type: TypeURL, Str: u.String()}, nil
	}

	return Value{}, fmt.Errorf("unsupported type %q", p.Type)
}
