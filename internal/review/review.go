// Package review implements the pending-media intake pipeline: per-file
// metadata drafts, validation, slug negotiation, approve/reject decisions,
// bulk operations over a selection, and batch submission to the library.
package review

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"curator/api/internal/slug"
	"curator/api/internal/store"
	"curator/api/internal/util"
)

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Draft is the operator-editable metadata for one pending file.
type Draft struct {
	Title          string            `json:"title"`
	Slug           string            `json:"slug"`
	Description    string            `json:"description,omitempty"`
	Tags           []Tag             `json:"tags"`
	AccessLevel    store.AccessLevel `json:"accessLevel"`
	CollectionID   string            `json:"collectionId,omitempty"`
	CollectionName string            `json:"collectionName,omitempty"`
	// SlugManual is set once the operator edits the slug directly; title
	// edits stop re-deriving the slug until the next title change resets it.
	SlugManual bool `json:"slugManual"`
}

// FieldErrors maps a draft field name to its validation message.
type FieldErrors map[string]string

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Decision records an operator's approve/reject mark. Absence of a decision
// means the file is unmarked.
type Decision struct {
	Action Action    `json:"action"`
	At     time.Time `json:"at"`
}

type NegotiationPhase string

const (
	PhaseIdle       NegotiationPhase = "idle"
	PhasePending    NegotiationPhase = "pending"
	PhaseValidating NegotiationPhase = "validating"
	PhaseResolved   NegotiationPhase = "resolved"
)

// Negotiation is the externally visible slug-negotiation annotation.
type Negotiation struct {
	Phase        NegotiationPhase `json:"phase"`
	OriginalSlug string           `json:"originalSlug,omitempty"`
	ResolvedSlug string           `json:"resolvedSlug,omitempty"`
	At           time.Time        `json:"at"`
}

// negotiation is the per-file debounce state. The generation invalidates
// both unfired timers and in-flight resolver results: anything carrying a
// stale generation is discarded on arrival.
type negotiation struct {
	gen          uint64
	timer        *time.Timer
	phase        NegotiationPhase
	originalSlug string
	resolvedSlug string
	at           time.Time
}

// FileRepository is the external pending-file store the pipeline commits to.
type FileRepository interface {
	List(ctx context.Context, q store.ListQuery) ([]store.PendingFile, error)
	Get(ctx context.Context, fileID string) (store.PendingFile, error)
	Approve(ctx context.Context, fileID string, req store.ApproveRequest) error
	Reject(ctx context.Context, fileID string) error
}

// SlugResolver resolves a candidate title to a namespace-unique slug.
// Must be idempotent and side-effect-free.
type SlugResolver interface {
	Resolve(ctx context.Context, title, namespace string, inUse []string) (string, error)
}

// Notifier is the fire-and-forget operator message sink.
type Notifier interface {
	Success(message string)
	Info(message string)
	Warning(message string)
	Error(message string)
}

// Session owns the review state for one namespace. All mutation happens
// under one mutex; resolver and repository calls run outside it.
type Session struct {
	mu sync.Mutex

	namespace string
	repo      FileRepository
	resolver  SlugResolver
	notify    Notifier

	titleDebounce time.Duration
	slugDebounce  time.Duration
	now           func() time.Time

	order        []string
	files        map[string]store.PendingFile
	drafts       map[string]*Draft
	errs         map[string]FieldErrors
	decisions    map[string]Decision
	selection    map[string]struct{}
	bulkTags     []Tag
	negotiations map[string]*negotiation
	submitting   bool
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce overrides the derived-from-title and manual-edit debounce
// intervals.
func WithDebounce(title, manual time.Duration) Option {
	return func(s *Session) {
		s.titleDebounce = title
		s.slugDebounce = manual
	}
}

// WithClock overrides the session clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

func NewSession(namespace string, repo FileRepository, resolver SlugResolver, notify Notifier, opts ...Option) *Session {
	s := &Session{
		namespace:     namespace,
		repo:          repo,
		resolver:      resolver,
		notify:        notify,
		titleDebounce: 500 * time.Millisecond,
		slugDebounce:  800 * time.Millisecond,
		now:           time.Now,
		files:         make(map[string]store.PendingFile),
		drafts:        make(map[string]*Draft),
		errs:          make(map[string]FieldErrors),
		decisions:     make(map[string]Decision),
		selection:     make(map[string]struct{}),
		negotiations:  make(map[string]*negotiation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load seeds the session from a fresh pending-file listing. Drafts and
// decisions for ids still present are preserved; state for vanished ids is
// dropped and their negotiation timers cancelled.
func (s *Session) Load(files []store.PendingFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	retained := make(map[string]struct{}, len(files))
	s.order = s.order[:0]
	for _, file := range files {
		retained[file.ID] = struct{}{}
		s.order = append(s.order, file.ID)
		s.files[file.ID] = file
		if _, ok := s.drafts[file.ID]; !ok {
			s.drafts[file.ID] = defaultDraft(file)
		}
	}

	for id := range s.files {
		if _, ok := retained[id]; ok {
			continue
		}
		s.dropLocked(id)
	}
}

func defaultDraft(file store.PendingFile) *Draft {
	title := strings.TrimSpace(file.AISuggestedTitle)
	if title == "" {
		base := strings.TrimSuffix(file.OriginalFilename, filepath.Ext(file.OriginalFilename))
		title = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(base))
	}
	draft := &Draft{
		Title:       title,
		Slug:        slug.Derive(title),
		AccessLevel: store.AccessPublic,
	}
	for _, name := range file.AISuggestedTags {
		draft.Tags = append(draft.Tags, Tag{ID: util.NewID("new"), Name: name})
	}
	return draft
}

// dropLocked removes all per-file state. Caller holds the lock.
func (s *Session) dropLocked(fileID string) {
	if neg, ok := s.negotiations[fileID]; ok {
		neg.gen++
		if neg.timer != nil {
			neg.timer.Stop()
		}
		delete(s.negotiations, fileID)
	}
	delete(s.files, fileID)
	delete(s.drafts, fileID)
	delete(s.errs, fileID)
	delete(s.decisions, fileID)
	delete(s.selection, fileID)
}

// Close cancels every pending negotiation timer, e.g. when the operator
// navigates away from the review screen.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, neg := range s.negotiations {
		neg.gen++
		if neg.timer != nil {
			neg.timer.Stop()
		}
	}
}

// FileState is one file's full review state in a snapshot.
type FileState struct {
	File        store.PendingFile `json:"file"`
	Draft       Draft             `json:"draft"`
	Errors      FieldErrors       `json:"errors,omitempty"`
	Decision    *Decision         `json:"decision,omitempty"`
	Negotiation *Negotiation      `json:"negotiation,omitempty"`
	Selected    bool              `json:"selected"`
}

type Snapshot struct {
	Namespace  string      `json:"namespace"`
	Files      []FileState `json:"files"`
	BulkTags   []Tag       `json:"bulkTags,omitempty"`
	Submitting bool        `json:"submitting"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Namespace:  s.namespace,
		Files:      make([]FileState, 0, len(s.order)),
		BulkTags:   append([]Tag(nil), s.bulkTags...),
		Submitting: s.submitting,
	}
	for _, id := range s.order {
		draft, ok := s.drafts[id]
		if !ok {
			continue
		}
		state := FileState{
			File:  s.files[id],
			Draft: *draft,
		}
		if errs, ok := s.errs[id]; ok {
			state.Errors = errs
		}
		if decision, ok := s.decisions[id]; ok {
			d := decision
			state.Decision = &d
		}
		if neg, ok := s.negotiations[id]; ok && neg.phase != PhaseIdle {
			state.Negotiation = &Negotiation{
				Phase:        neg.phase,
				OriginalSlug: neg.originalSlug,
				ResolvedSlug: neg.resolvedSlug,
				At:           neg.at,
			}
		}
		_, state.Selected = s.selection[id]
		snap.Files = append(snap.Files, state)
	}
	return snap
}

// orderedLocked returns ids in stable seed order, filtered by keep.
func (s *Session) orderedLocked(keep func(id string) bool) []string {
	ids := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if _, ok := s.drafts[id]; !ok {
			continue
		}
		if keep == nil || keep(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// slugsInUseLocked collects every other draft's non-empty slug.
func (s *Session) slugsInUseLocked(excludeID string) []string {
	var inUse []string
	for id, draft := range s.drafts {
		if id == excludeID || draft.Slug == "" {
			continue
		}
		inUse = append(inUse, draft.Slug)
	}
	return inUse
}
