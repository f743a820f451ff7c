package compiler

import (
	"fmt"

	"v2desk/internal/profile"
)

type DiagnosticKind string

const (
	// CoercionFailure means an input value was unusable and its default was used.
	CoercionFailure DiagnosticKind = "coercion"
	// UnknownTransport means no transport sub-object could be emitted.
	UnknownTransport DiagnosticKind = "unknown-transport"
)

// Diagnostic is a problem the compiler recovered from.
type Diagnostic struct {
	Kind    DiagnosticKind
	Field   string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Kind, d.Field, d.Message)
}

func issueDiagnostics(issues []profile.Issue) []Diagnostic {
	if len(issues) == 0 {
		return nil
	}
	out := make([]Diagnostic, 0, len(issues))
	for _, i := range issues {
		out = append(out, Diagnostic{
			Kind:    CoercionFailure,
			Field:   i.Field,
			Message: fmt.Sprintf("%v: %s", i.Value, i.Reason),
		})
	}
	return out
}
