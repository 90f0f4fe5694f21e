package review

import (
	"context"
	"fmt"
)

// MarkForApproval transitions a file from unmarked to approve. It runs the
// full validator, then a final debounce-bypassing slug round trip. A server
// rename withholds the transition: the draft takes the resolved slug, the
// file is annotated, and the operator must invoke approval again.
func (s *Session) MarkForApproval(ctx context.Context, fileID string) error {
	s.mu.Lock()
	draft, ok := s.drafts[fileID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownFile
	}
	if _, marked := s.decisions[fileID]; marked {
		s.mu.Unlock()
		return ErrAlreadyMarked
	}

	if s.validateAllLocked(fileID) {
		fields := make(FieldErrors, len(s.errs[fileID]))
		for field, message := range s.errs[fileID] {
			fields[field] = message
		}
		s.mu.Unlock()
		s.notify.Error("Cannot approve \"" + draft.Title + "\": required fields are missing or invalid.")
		return &ValidationFailedError{FileID: fileID, Fields: fields}
	}

	// Bypass any armed debounce; this round trip supersedes it.
	s.cancelNegotiationLocked(fileID)

	candidate := draft.Title
	if draft.SlugManual && draft.Slug != "" {
		candidate = draft.Slug
	}
	currentSlug := draft.Slug
	inUse := s.slugsInUseLocked(fileID)
	namespace := s.namespace
	s.mu.Unlock()

	resolved, err := s.resolver.Resolve(ctx, candidate, namespace, inUse)
	if err != nil {
		s.notify.Error("Slug validation failed; the file was not approved.")
		return fmt.Errorf("resolve slug for %s: %w", fileID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok = s.drafts[fileID]
	if !ok {
		return ErrUnknownFile
	}
	// The round trip is a suspension point; re-check everything that could
	// have moved underneath it. A decision recorded in the meantime wins, and
	// an edited slug means the server validated stale input.
	if _, marked := s.decisions[fileID]; marked {
		return ErrAlreadyMarked
	}
	if draft.Slug != currentSlug {
		return ErrDraftEdited
	}

	if resolved != currentSlug {
		draft.Slug = resolved
		s.validateFieldLocked(fileID, "slug")
		neg, ok := s.negotiations[fileID]
		if !ok {
			neg = &negotiation{}
			s.negotiations[fileID] = neg
		}
		neg.phase = PhaseResolved
		neg.originalSlug = currentSlug
		neg.resolvedSlug = resolved
		neg.at = s.now()
		s.notify.Warning("Slug for \"" + draft.Title + "\" was changed to \"" + resolved + "\"; review it and approve again.")
		return &SlugRenamedError{FileID: fileID, OriginalSlug: currentSlug, ResolvedSlug: resolved}
	}

	s.decisions[fileID] = Decision{Action: ActionApprove, At: s.now()}
	delete(s.selection, fileID)
	return nil
}

// MarkForRejection is unconditional: rejection never requires metadata.
func (s *Session) MarkForRejection(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[fileID]; !ok {
		return ErrUnknownFile
	}
	if _, marked := s.decisions[fileID]; marked {
		return ErrAlreadyMarked
	}
	s.cancelNegotiationLocked(fileID)
	s.decisions[fileID] = Decision{Action: ActionReject, At: s.now()}
	delete(s.selection, fileID)
	return nil
}

// Unmark returns a file to the undecided state and clears its negotiation
// annotations. Approve and reject never transition into each other directly;
// both pass through here first.
func (s *Session) Unmark(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[fileID]; !ok {
		return ErrUnknownFile
	}
	delete(s.decisions, fileID)
	s.cancelNegotiationLocked(fileID)
	return nil
}

// DecisionFor returns the current decision, or nil when unmarked.
func (s *Session) DecisionFor(fileID string) *Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	if decision, ok := s.decisions[fileID]; ok {
		d := decision
		return &d
	}
	return nil
}

// ErrorsFor returns a copy of the validation errors for a file.
func (s *Session) ErrorsFor(fileID string) FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs, ok := s.errs[fileID]
	if !ok {
		return nil
	}
	out := make(FieldErrors, len(errs))
	for field, message := range errs {
		out[field] = message
	}
	return out
}

// DraftFor returns a copy of the draft for a file.
func (s *Session) DraftFor(fileID string) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[fileID]
	if !ok {
		return Draft{}, false
	}
	return *draft, true
}

// NegotiationFor returns the visible negotiation annotation, or nil.
func (s *Session) NegotiationFor(fileID string) *Negotiation {
	s.mu.Lock()
	defer s.mu.Unlock()
	neg, ok := s.negotiations[fileID]
	if !ok || neg.phase == PhaseIdle {
		return nil
	}
	return &Negotiation{
		Phase:        neg.phase,
		OriginalSlug: neg.originalSlug,
		ResolvedSlug: neg.resolvedSlug,
		At:           neg.at,
	}
}
