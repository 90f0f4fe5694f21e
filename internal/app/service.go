package app

import (
	"context"
	"strings"
	"sync"

	"curator/api/internal/config"
	"curator/api/internal/notify"
	"curator/api/internal/review"
	"curator/api/internal/search"
	"curator/api/internal/store"
)

type dataStore interface {
	ListTags(ctx context.Context, namespace, query string) ([]store.Tag, error)
	CreateTag(ctx context.Context, namespace, name string) (store.Tag, error)
	ListCollections(ctx context.Context, namespace string) ([]store.Collection, error)
	CreateCollection(ctx context.Context, namespace, name string) (store.Collection, error)
	Ping(ctx context.Context) error
}

// Service is the admin-facing facade over the review pipeline and its
// collaborators. Review sessions are created lazily, one per namespace.
type Service struct {
	cfg      config.Config
	store    dataStore
	repo     review.FileRepository
	resolver review.SlugResolver
	feed     notify.Feed
	searcher *search.Service

	mu       sync.Mutex
	sessions map[string]*review.Session
}

func New(cfg config.Config, dataStore dataStore, repo review.FileRepository, resolver review.SlugResolver, feed notify.Feed, searcher *search.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		repo:     repo,
		resolver: resolver,
		feed:     feed,
		searcher: searcher,
		sessions: make(map[string]*review.Session),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) namespaceOrDefault(namespace string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return s.cfg.DefaultNamespace
	}
	return namespace
}

func (s *Service) session(namespace string) *review.Session {
	namespace = s.namespaceOrDefault(namespace)
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[namespace]
	if !ok {
		session = review.NewSession(namespace, s.repo, s.resolver, notify.Bind(s.feed, namespace),
			review.WithDebounce(s.cfg.TitleDebounce, s.cfg.SlugDebounce))
		s.sessions[namespace] = session
	}
	return session
}

// ListPending refreshes the namespace's pending listing from the repository,
// seeds the review session, and returns the resulting snapshot.
func (s *Service) ListPending(ctx context.Context, q store.ListQuery) (map[string]any, error) {
	q.Namespace = s.namespaceOrDefault(q.Namespace)
	files, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	session := s.session(q.Namespace)
	session.Load(files)
	return snapshotPayload(session.Snapshot()), nil
}

func (s *Service) Snapshot(namespace string) map[string]any {
	return snapshotPayload(s.session(namespace).Snapshot())
}

func snapshotPayload(snap review.Snapshot) map[string]any {
	files := make([]map[string]any, 0, len(snap.Files))
	for _, state := range snap.Files {
		files = append(files, fileStatePayload(state))
	}
	payload := map[string]any{
		"namespace":  snap.Namespace,
		"files":      files,
		"submitting": snap.Submitting,
	}
	if len(snap.BulkTags) > 0 {
		payload["bulkTags"] = snap.BulkTags
	}
	return payload
}

func fileStatePayload(state review.FileState) map[string]any {
	payload := map[string]any{
		"file": map[string]any{
			"id":               state.File.ID,
			"namespace":        state.File.Namespace,
			"originalFilename": state.File.OriginalFilename,
			"fileType":         state.File.FileType,
			"fileSize":         state.File.FileSize,
			"createdAt":        state.File.CreatedAt,
			"expiresAt":        state.File.ExpiresAt,
		},
		"draft":    state.Draft,
		"selected": state.Selected,
	}
	if len(state.Errors) > 0 {
		payload["errors"] = state.Errors
	}
	if state.Decision != nil {
		payload["decision"] = state.Decision
	}
	if state.Negotiation != nil {
		payload["negotiation"] = state.Negotiation
	}
	return payload
}

// DraftInput is a partial draft update; nil fields are left untouched.
type DraftInput struct {
	Title          *string       `json:"title"`
	Slug           *string       `json:"slug"`
	Description    *string       `json:"description"`
	Tags           *[]review.Tag `json:"tags"`
	AccessLevel    *string       `json:"accessLevel"`
	CollectionID   *string       `json:"collectionId"`
	CollectionName *string       `json:"collectionName"`
}

func (s *Service) UpdateDraft(namespace, fileID string, input DraftInput) error {
	session := s.session(namespace)
	if input.Title != nil {
		if err := session.SetTitle(fileID, *input.Title); err != nil {
			return err
		}
	}
	if input.Slug != nil {
		if err := session.SetSlug(fileID, *input.Slug); err != nil {
			return err
		}
	}
	if input.Description != nil {
		if err := session.SetDescription(fileID, *input.Description); err != nil {
			return err
		}
	}
	if input.Tags != nil {
		if err := session.SetTags(fileID, *input.Tags); err != nil {
			return err
		}
	}
	if input.AccessLevel != nil {
		if err := session.SetAccessLevel(fileID, *input.AccessLevel); err != nil {
			return err
		}
	}
	if input.CollectionID != nil || input.CollectionName != nil {
		var id, name string
		if input.CollectionID != nil {
			id = *input.CollectionID
		}
		if input.CollectionName != nil {
			name = *input.CollectionName
		}
		if err := session.SetCollection(fileID, id, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Approve(ctx context.Context, namespace, fileID string) error {
	return s.session(namespace).MarkForApproval(ctx, fileID)
}

func (s *Service) Reject(namespace, fileID string) error {
	return s.session(namespace).MarkForRejection(fileID)
}

func (s *Service) Unmark(namespace, fileID string) error {
	return s.session(namespace).Unmark(fileID)
}

func (s *Service) ToggleSelection(namespace, fileID string) error {
	return s.session(namespace).ToggleSelection(fileID)
}

func (s *Service) SelectAll(namespace string) int {
	return s.session(namespace).SelectAll()
}

func (s *Service) ClearSelection(namespace string) {
	s.session(namespace).ClearSelection()
}

func (s *Service) SetBulkTags(namespace string, tags []review.Tag) {
	s.session(namespace).SetBulkTags(tags)
}

func (s *Service) ApplyBulkTags(namespace string) (int, error) {
	return s.session(namespace).ApplyBulkTags()
}

func (s *Service) BulkApprove(ctx context.Context, namespace string) (int, int, error) {
	return s.session(namespace).BulkApprove(ctx)
}

func (s *Service) Submit(ctx context.Context, namespace string) (review.Result, error) {
	return s.session(namespace).Submit(ctx)
}

func (s *Service) ListTags(ctx context.Context, namespace, query string) ([]map[string]any, error) {
	tags, err := s.store.ListTags(ctx, s.namespaceOrDefault(namespace), query)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(tags))
	for _, tag := range tags {
		items = append(items, tagPayload(tag))
	}
	return items, nil
}

func (s *Service) CreateTag(ctx context.Context, namespace, name string) (map[string]any, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domainError(422, "VALIDATION_ERROR", "Tag name is required", nil)
	}
	namespace = s.namespaceOrDefault(namespace)
	tag, err := s.store.CreateTag(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	if s.searcher != nil {
		s.searcher.IndexTag(search.TagRecord{ID: tag.ID, Name: tag.Name, Namespace: tag.Namespace})
	}
	return tagPayload(tag), nil
}

func (s *Service) ListCollections(ctx context.Context, namespace string) ([]map[string]any, error) {
	collections, err := s.store.ListCollections(ctx, s.namespaceOrDefault(namespace))
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(collections))
	for _, collection := range collections {
		items = append(items, collectionPayload(collection))
	}
	return items, nil
}

func (s *Service) CreateCollection(ctx context.Context, namespace, name string) (map[string]any, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domainError(422, "VALIDATION_ERROR", "Collection name is required", nil)
	}
	collection, err := s.store.CreateCollection(ctx, s.namespaceOrDefault(namespace), name)
	if err != nil {
		return nil, err
	}
	return collectionPayload(collection), nil
}

func tagPayload(tag store.Tag) map[string]any {
	return map[string]any{
		"id":        tag.ID,
		"name":      tag.Name,
		"namespace": tag.Namespace,
		"createdAt": tag.CreatedAt,
	}
}

func collectionPayload(collection store.Collection) map[string]any {
	return map[string]any{
		"id":        collection.ID,
		"name":      collection.Name,
		"slug":      collection.Slug,
		"namespace": collection.Namespace,
		"createdAt": collection.CreatedAt,
	}
}

// SearchMedia queries the committed library (and tags) via the search
// facade.
func (s *Service) SearchMedia(namespace, text, filterType string, limit, offset int) search.Response {
	if s.searcher == nil {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.searcher.Search(search.Query{
		Text:       text,
		Namespace:  s.namespaceOrDefault(namespace),
		FilterType: search.ResultType(filterType),
		Limit:      limit,
		Offset:     offset,
	})
}

func (s *Service) Notifications(namespace string, limit int) []notify.Message {
	messages := s.feed.Recent(s.namespaceOrDefault(namespace), limit)
	if messages == nil {
		messages = []notify.Message{}
	}
	return messages
}
