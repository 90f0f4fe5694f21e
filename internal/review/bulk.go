package review

import (
	"context"
	"fmt"
	"strings"

	"curator/api/internal/util"
)

// ToggleSelection flips a file's membership in the selection set. Files that
// already carry a decision cannot be selected.
func (s *Session) ToggleSelection(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[fileID]; !ok {
		return ErrUnknownFile
	}
	if _, marked := s.decisions[fileID]; marked {
		return nil
	}
	if _, selected := s.selection[fileID]; selected {
		delete(s.selection, fileID)
	} else {
		s.selection[fileID] = struct{}{}
	}
	return nil
}

// SelectAll selects every unmarked file; decided files are skipped.
func (s *Session) SelectAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, id := range s.order {
		if _, ok := s.drafts[id]; !ok {
			continue
		}
		if _, marked := s.decisions[id]; marked {
			continue
		}
		s.selection[id] = struct{}{}
		count++
	}
	return count
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[string]struct{})
}

// SetBulkTags stages the shared tag buffer. Tags without an id get a
// client-temporary token so not-yet-created tags survive the merge.
func (s *Session) SetBulkTags(tags []Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkTags = s.bulkTags[:0]
	for _, tag := range tags {
		name := strings.TrimSpace(tag.Name)
		if name == "" {
			continue
		}
		if tag.ID == "" {
			tag.ID = util.NewID("new")
		}
		tag.Name = name
		s.bulkTags = append(s.bulkTags, tag)
	}
}

// ApplyBulkTags merges the buffer into every selected draft, deduplicated by
// tag name with existing tags winning, then revalidates each file's tags.
// The buffer is cleared after a successful application. Decisions never
// change here.
func (s *Session) ApplyBulkTags() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.bulkTags) == 0 {
		return 0, &EmptyBulkError{Reason: "no tags staged to apply"}
	}
	if len(s.selection) == 0 {
		return 0, &EmptyBulkError{Reason: "no files selected"}
	}

	applied := 0
	for _, id := range s.orderedLocked(func(id string) bool {
		_, selected := s.selection[id]
		return selected
	}) {
		draft := s.drafts[id]
		existing := make(map[string]struct{}, len(draft.Tags))
		for _, tag := range draft.Tags {
			existing[tag.Name] = struct{}{}
		}
		for _, tag := range s.bulkTags {
			if _, dup := existing[tag.Name]; dup {
				continue
			}
			draft.Tags = append(draft.Tags, tag)
			existing[tag.Name] = struct{}{}
		}
		s.validateFieldLocked(id, "tags")
		applied++
	}

	s.bulkTags = s.bulkTags[:0]
	return applied, nil
}

// BulkApprove validates every selected file's title and tags up front; any
// failure aborts the whole operation before a single file is marked. Past
// that gate each file goes through the normal approval path, including its
// own slug round trip; files withheld by a server rename stay unmarked. The
// selection is cleared afterwards.
func (s *Session) BulkApprove(ctx context.Context) (approved int, withheld int, err error) {
	s.mu.Lock()
	if len(s.selection) == 0 {
		s.mu.Unlock()
		return 0, 0, &EmptyBulkError{Reason: "no files selected"}
	}

	selected := s.orderedLocked(func(id string) bool {
		_, ok := s.selection[id]
		return ok
	})

	failures := make(map[string]FieldErrors)
	for _, id := range selected {
		draft := s.drafts[id]
		fields := make(FieldErrors)
		if message := ValidateTitle(draft.Title); message != "" {
			fields["title"] = message
		}
		if message := ValidateTags(draft.Tags); message != "" {
			fields["tags"] = message
		}
		for field, message := range fields {
			s.setFieldErrorLocked(id, field, message)
		}
		if len(fields) > 0 {
			failures[id] = fields
		}
	}
	if len(failures) > 0 {
		s.mu.Unlock()
		s.notify.Error(fmt.Sprintf("Bulk approve aborted: %d of %d selected files are missing a title or tags.", len(failures), len(selected)))
		return 0, 0, &BulkValidationError{Failures: failures}
	}
	s.mu.Unlock()

	for _, id := range selected {
		// Renames and resolver failures both leave the file unmarked.
		if markErr := s.MarkForApproval(ctx, id); markErr != nil {
			withheld++
			continue
		}
		approved++
	}

	s.ClearSelection()
	if approved > 0 {
		s.notify.Success(fmt.Sprintf("%d file(s) marked for approval.", approved))
	}
	return approved, withheld, nil
}
