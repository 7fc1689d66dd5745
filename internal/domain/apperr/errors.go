// Package apperr holds the error taxonomy shared by the domain packages and
// mapped to HTTP responses by the transport layer.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPermission        = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")
)

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every missing or invalid field of a rejected input.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the sorted, de-duplicated field names.
func (e *ValidationError) Fields() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, issue := range e.Issues {
		if _, ok := seen[issue.Field]; ok {
			continue
		}
		seen[issue.Field] = struct{}{}
		out = append(out, issue.Field)
	}
	sort.Strings(out)
	return out
}

// Validation accumulates field issues; Err returns nil when nothing was added.
type Validation struct {
	issues []FieldIssue
}

func (v *Validation) Add(field, reason string) {
	v.issues = append(v.issues, FieldIssue{Field: field, Reason: reason})
}

func (v *Validation) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
	}
}

func (v *Validation) Err() error {
	if len(v.issues) == 0 {
		return nil
	}
	out := make([]FieldIssue, len(v.issues))
	copy(out, v.issues)
	return &ValidationError{Issues: out}
}

// ExternalServiceError wraps a failure of the generative-text or messaging
// collaborator. Callers may retry the same operation later.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func (e *ExternalServiceError) Retryable() bool {
	return true
}

func External(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}

func IsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

func IsExternal(err error) (*ExternalServiceError, bool) {
	var e *ExternalServiceError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
