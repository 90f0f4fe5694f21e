package review

import (
	"errors"
	"fmt"
)

// ErrSubmitInFlight rejects a second batch submission while one is running.
var ErrSubmitInFlight = errors.New("batch submission already in flight")

// ErrUnknownFile reports an operation against a file id the session has not
// been seeded with.
var ErrUnknownFile = errors.New("unknown pending file")

// ErrAlreadyMarked guards the decision state machine: approve and reject
// never transition into each other directly, only through unmark.
var ErrAlreadyMarked = errors.New("file already marked; unmark it first")

// ErrDraftEdited withholds an approval whose slug was edited while the final
// server round trip was in flight; the server validated stale input.
var ErrDraftEdited = errors.New("draft edited during approval; approve again")

// ValidationFailedError blocks marking a file for approval.
type ValidationFailedError struct {
	FileID string
	Fields FieldErrors
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed for %s (%d field(s))", e.FileID, len(e.Fields))
}

// SlugRenamedError signals the re-confirmation gate: the server resolved the
// slug to a different value, so the decision was withheld until the operator
// reviews the rename and re-invokes approval.
type SlugRenamedError struct {
	FileID       string
	OriginalSlug string
	ResolvedSlug string
}

func (e *SlugRenamedError) Error() string {
	return fmt.Sprintf("slug for %s renamed from %q to %q, approval withheld", e.FileID, e.OriginalSlug, e.ResolvedSlug)
}

// BulkValidationError aborts a bulk approve before any file is marked.
type BulkValidationError struct {
	Failures map[string]FieldErrors
}

func (e *BulkValidationError) Error() string {
	return fmt.Sprintf("bulk approve aborted, %d file(s) failed validation", len(e.Failures))
}

// EmptyBulkError rejects applying an empty bulk-tag buffer or an empty
// selection.
type EmptyBulkError struct {
	Reason string
}

func (e *EmptyBulkError) Error() string {
	return e.Reason
}
