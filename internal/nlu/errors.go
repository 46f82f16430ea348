package nlu

import "fmt"

type Kind int

const (
	// Unreachable: the service did not answer within the window, or the
	// transport failed even after the single retry.
	Unreachable Kind = iota
	// AuthFailed: credentials rejected; retrying cannot help.
	AuthFailed
	// MalformedResponse: the service answered, but not in the contracted
	// structured shape.
	MalformedResponse
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case AuthFailed:
		return "auth_failed"
	case MalformedResponse:
		return "malformed_response"
	}
	return "unknown"
}

type ClassifyError struct {
	Kind Kind
	Err  error
}

func (e *ClassifyError) Error() string {
	return fmt.Sprintf("classify: %s: %v", e.Kind, e.Err)
}

func (e *ClassifyError) Unwrap() error { return e.Err }
