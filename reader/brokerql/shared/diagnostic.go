package shared

import (
	"errors"
	"fmt"
)

type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// DiagnosticKind classifies where a diagnostic originated.
type DiagnosticKind uint8

const (
	KindSyntax DiagnosticKind = iota
	KindLex
	KindSemantic
)

func (k DiagnosticKind) String() string {
	switch k {
	case KindLex:
		return "lex"
	case KindSemantic:
		return "semantic"
	}
	return "syntax"
}

// Diagnostic is a span-anchored error or warning about a query.
// Messages are phrased in query-language terms and are safe to show to users.
type Diagnostic struct {
	Message  string
	Span     Span
	Severity Severity
	Kind     DiagnosticKind
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s at %s: %s", d.Severity, d.Span, d.Message)
}

func Errorf(kind DiagnosticKind, span Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
		Severity: SeverityError,
		Kind:     kind,
	}
}

func Warningf(span Span, format string, args ...any) Diagnostic {
	return Diagnostic{
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
		Severity: SeverityWarning,
		Kind:     KindSemantic,
	}
}

// AsDiagnostic extracts a *Diagnostic from an error chain.
func AsDiagnostic(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
