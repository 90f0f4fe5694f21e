package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to
// Postgres ILIKE queries.
type Service struct {
	meili *Meili
	pg    *PgSearch
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, pg *PgSearch) *Service {
	return &Service{meili: meili, pg: pg}
}

// Search tries Meilisearch if healthy, otherwise falls back to Postgres.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	results, total, err := s.pg.Search(q)
	if err != nil {
		log.Printf("search: postgres fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexMedia indexes a committed media item (fire-and-forget).
func (s *Service) IndexMedia(rec MediaRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexMedia(rec); err != nil {
			log.Printf("search: index media %s: %v", rec.ID, err)
		}
	}()
}

// IndexTag indexes a tag (fire-and-forget).
func (s *Service) IndexTag(rec TagRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTag(rec); err != nil {
			log.Printf("search: index tag %s: %v", rec.ID, err)
		}
	}()
}

// DeleteMedia removes a media item from the index (fire-and-forget).
func (s *Service) DeleteMedia(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteMedia(id); err != nil {
			log.Printf("search: delete media %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG reindexes all media items and tags from Postgres.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pg == nil {
		return
	}
	media, tags, err := s.pg.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexMediaBatch(media); err != nil {
		log.Printf("search: reindex media: %v", err)
	}
	if err := s.meili.IndexTagBatch(tags); err != nil {
		log.Printf("search: reindex tags: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
