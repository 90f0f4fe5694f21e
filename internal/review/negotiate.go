package review

import (
	"context"
	"time"

	"curator/api/internal/slug"
	"curator/api/internal/store"
)

// resolveTimeout bounds a single slug-resolver round trip.
const resolveTimeout = 10 * time.Second

// SetTitle records a title edit. The slug is re-derived immediately for
// instant feedback (unless the operator has overridden it), and the
// derived-from-title negotiation timer is armed.
func (s *Session) SetTitle(fileID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[fileID]
	if !ok {
		return ErrUnknownFile
	}

	draft.Title = title
	draft.SlugManual = false
	draft.Slug = slug.Derive(title)
	s.validateFieldLocked(fileID, "title")
	s.validateFieldLocked(fileID, "slug")

	s.armLocked(fileID, title, s.titleDebounce)
	return nil
}

// SetSlug records a direct slug edit and arms the manual-edit negotiation
// timer; the edited text itself becomes the resolver candidate.
func (s *Session) SetSlug(fileID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[fileID]
	if !ok {
		return ErrUnknownFile
	}

	draft.Slug = value
	draft.SlugManual = true
	s.validateFieldLocked(fileID, "slug")

	s.armLocked(fileID, value, s.slugDebounce)
	return nil
}

func (s *Session) SetDescription(fileID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[fileID]
	if !ok {
		return ErrUnknownFile
	}
	draft.Description = value
	s.validateFieldLocked(fileID, "description")
	return nil
}

func (s *Session) SetTags(fileID string, tags []Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[fileID]
	if !ok {
		return ErrUnknownFile
	}
	draft.Tags = append([]Tag(nil), tags...)
	s.validateFieldLocked(fileID, "tags")
	return nil
}

func (s *Session) SetAccessLevel(fileID string, level string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[fileID]
	if !ok {
		return ErrUnknownFile
	}
	draft.AccessLevel = normalizeAccessLevel(level)
	return nil
}

func (s *Session) SetCollection(fileID, collectionID, collectionName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[fileID]
	if !ok {
		return ErrUnknownFile
	}
	draft.CollectionID = collectionID
	draft.CollectionName = collectionName
	return nil
}

// armLocked (re)arms the negotiation timer for a file. Arming bumps the
// generation, which invalidates the previous timer and any in-flight
// resolver result for this file.
func (s *Session) armLocked(fileID, candidate string, debounce time.Duration) {
	neg, ok := s.negotiations[fileID]
	if !ok {
		neg = &negotiation{}
		s.negotiations[fileID] = neg
	}
	neg.gen++
	if neg.timer != nil {
		neg.timer.Stop()
	}
	neg.phase = PhasePending
	neg.originalSlug = ""
	neg.resolvedSlug = ""
	neg.at = s.now()

	gen := neg.gen
	neg.timer = time.AfterFunc(debounce, func() {
		s.negotiate(fileID, gen, candidate)
	})
}

// cancelNegotiationLocked stops the timer and clears the annotation.
func (s *Session) cancelNegotiationLocked(fileID string) {
	neg, ok := s.negotiations[fileID]
	if !ok {
		return
	}
	neg.gen++
	if neg.timer != nil {
		neg.timer.Stop()
	}
	neg.phase = PhaseIdle
	neg.originalSlug = ""
	neg.resolvedSlug = ""
}

// negotiate performs the debounced slug-resolver round trip. It runs on the
// timer goroutine; the generation is re-checked before the call and again
// before applying the result, so a stale response never overwrites a
// fresher edit.
func (s *Session) negotiate(fileID string, gen uint64, candidate string) {
	s.mu.Lock()
	neg, ok := s.negotiations[fileID]
	if !ok || neg.gen != gen {
		s.mu.Unlock()
		return
	}
	draft, ok := s.drafts[fileID]
	if !ok {
		s.mu.Unlock()
		return
	}
	neg.phase = PhaseValidating
	neg.at = s.now()
	sentSlug := draft.Slug
	inUse := s.slugsInUseLocked(fileID)
	namespace := s.namespace
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	resolved, err := s.resolver.Resolve(ctx, candidate, namespace, inUse)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	neg, ok = s.negotiations[fileID]
	if !ok || neg.gen != gen {
		// Superseded or unmarked while the call was in flight; discard.
		return
	}
	draft, ok = s.drafts[fileID]
	if !ok {
		return
	}

	if err != nil {
		draft.Slug = slug.Derive(candidate)
		s.validateFieldLocked(fileID, "slug")
		neg.phase = PhaseIdle
		neg.at = s.now()
		s.notify.Error("Slug validation failed for \"" + draft.Title + "\"; using the locally derived slug.")
		return
	}

	if resolved != sentSlug {
		neg.phase = PhaseResolved
		neg.originalSlug = sentSlug
		neg.resolvedSlug = resolved
		neg.at = s.now()
		draft.Slug = resolved
		s.validateFieldLocked(fileID, "slug")
		s.notify.Warning("Slug for \"" + draft.Title + "\" was changed to \"" + resolved + "\" to keep it unique.")
		return
	}

	neg.phase = PhaseIdle
	neg.at = s.now()
}

func normalizeAccessLevel(level string) store.AccessLevel {
	switch store.AccessLevel(level) {
	case store.AccessPublic, store.AccessMembers, store.AccessStaff, store.AccessPrivate:
		return store.AccessLevel(level)
	default:
		return store.AccessPublic
	}
}
