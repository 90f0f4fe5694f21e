package store

import (
	"sort"
	"strings"
)

// CommitError reports per-field failures from an approve call. Field names
// match the draft fields (title, slug, tags) so callers can surface them as
// inline validation errors.
type CommitError struct {
	Fields map[string]string
}

func (e *CommitError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "commit failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "commit failed: " + strings.Join(parts, "; ")
}

func commitError(field, message string) *CommitError {
	return &CommitError{Fields: map[string]string{field: message}}
}
