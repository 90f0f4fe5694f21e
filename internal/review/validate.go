package review

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLen       = 255
	maxSlugLen        = 255
	maxDescriptionLen = 1000
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidateTitle returns a message for an invalid title, or "" when valid.
func ValidateTitle(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Title is required"
	}
	if utf8.RuneCountInString(value) > maxTitleLen {
		return fmt.Sprintf("Title must be %d characters or fewer", maxTitleLen)
	}
	return ""
}

// ValidateSlug accepts an empty slug: it is always regenerated from the
// title before use.
func ValidateSlug(value string) string {
	if value == "" {
		return ""
	}
	if !slugPattern.MatchString(value) {
		return "Slug may only contain lowercase letters, digits and hyphens"
	}
	if utf8.RuneCountInString(value) > maxSlugLen {
		return fmt.Sprintf("Slug must be %d characters or fewer", maxSlugLen)
	}
	return ""
}

func ValidateTags(tags []Tag) string {
	if len(tags) == 0 {
		return "At least one tag is required"
	}
	return ""
}

func ValidateDescription(value string) string {
	if utf8.RuneCountInString(value) > maxDescriptionLen {
		return fmt.Sprintf("Description must be %d characters or fewer", maxDescriptionLen)
	}
	return ""
}

// requiredFields gate marking for approval.
var requiredFields = []string{"title", "tags"}

// validateFieldLocked runs one field's rule against the draft and maintains
// the sparse error map: a valid field clears its entry, and a file with no
// remaining errors loses its map entirely.
func (s *Session) validateFieldLocked(fileID, field string) string {
	draft, ok := s.drafts[fileID]
	if !ok {
		return ""
	}

	var message string
	switch field {
	case "title":
		message = ValidateTitle(draft.Title)
	case "slug":
		message = ValidateSlug(draft.Slug)
	case "tags":
		message = ValidateTags(draft.Tags)
	case "description":
		message = ValidateDescription(draft.Description)
	}

	s.setFieldErrorLocked(fileID, field, message)
	return message
}

func (s *Session) setFieldErrorLocked(fileID, field, message string) {
	if message == "" {
		if errs, ok := s.errs[fileID]; ok {
			delete(errs, field)
			if len(errs) == 0 {
				delete(s.errs, fileID)
			}
		}
		return
	}
	errs, ok := s.errs[fileID]
	if !ok {
		errs = make(FieldErrors)
		s.errs[fileID] = errs
	}
	errs[field] = message
}

// validateAllLocked runs every field rule for a file and reports whether a
// required field failed.
func (s *Session) validateAllLocked(fileID string) bool {
	for _, field := range []string{"title", "slug", "tags", "description"} {
		s.validateFieldLocked(fileID, field)
	}
	return s.requiredFailedLocked(fileID)
}

func (s *Session) requiredFailedLocked(fileID string) bool {
	errs, ok := s.errs[fileID]
	if !ok {
		return false
	}
	for _, field := range requiredFields {
		if _, failed := errs[field]; failed {
			return true
		}
	}
	return false
}
