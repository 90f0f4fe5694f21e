// Package library is the permanent media store behind the review pipeline:
// it commits approved pending files (database row, blob promotion, search
// indexing) and discards rejected ones.
package library

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"

	"curator/api/internal/search"
	"curator/api/internal/store"
)

type pendingStore interface {
	ListPending(ctx context.Context, q store.ListQuery) ([]store.PendingFile, error)
	GetPending(ctx context.Context, fileID string) (store.PendingFile, error)
	ApprovePending(ctx context.Context, fileID string, req store.ApproveRequest, storageKey string) (store.MediaItem, error)
	RejectPending(ctx context.Context, fileID string) error
}

type objectStore interface {
	CopyToLibrary(ctx context.Context, fileID, destKey string) error
	RemoveFromLibrary(ctx context.Context, destKey string) error
	RemoveStaged(ctx context.Context, fileID string) error
}

// Service implements the pending-file repository the review pipeline talks
// to. searcher may be nil when Meilisearch is not configured.
type Service struct {
	store    pendingStore
	objects  objectStore
	searcher *search.Service
}

func New(pending pendingStore, objects objectStore, searcher *search.Service) *Service {
	return &Service{store: pending, objects: objects, searcher: searcher}
}

func (s *Service) List(ctx context.Context, q store.ListQuery) ([]store.PendingFile, error) {
	return s.store.ListPending(ctx, q)
}

func (s *Service) Get(ctx context.Context, fileID string) (store.PendingFile, error) {
	return s.store.GetPending(ctx, fileID)
}

// Approve commits one reviewed file: the staged blob is copied into the
// library bucket, the database transaction records the media item and drops
// the pending row, and only then is the staged blob removed. A failed
// transaction rolls the copy back so the library bucket never holds
// uncommitted objects.
func (s *Service) Approve(ctx context.Context, fileID string, req store.ApproveRequest) error {
	pending, err := s.store.GetPending(ctx, fileID)
	if err != nil {
		return fmt.Errorf("load pending %s: %w", fileID, err)
	}

	destKey := storageKey(pending.Namespace, req.Slug, pending.OriginalFilename)
	if err := s.objects.CopyToLibrary(ctx, fileID, destKey); err != nil {
		return fmt.Errorf("promote object for %s: %w", fileID, err)
	}

	item, err := s.store.ApprovePending(ctx, fileID, req, destKey)
	if err != nil {
		if rbErr := s.objects.RemoveFromLibrary(ctx, destKey); rbErr != nil {
			log.Printf("library: rollback of %s failed: %v", destKey, rbErr)
		}
		return err
	}

	if err := s.objects.RemoveStaged(ctx, fileID); err != nil {
		log.Printf("library: cleanup staged object %s: %v", fileID, err)
	}

	if s.searcher != nil {
		s.searcher.IndexMedia(search.MediaRecord{
			ID:        item.ID,
			Title:     item.Title,
			Slug:      item.Slug,
			Namespace: item.Namespace,
			FileType:  string(item.FileType),
			Filename:  item.OriginalFilename,
		})
	}
	return nil
}

// Reject drops the pending row and its staged blob.
func (s *Service) Reject(ctx context.Context, fileID string) error {
	if err := s.store.RejectPending(ctx, fileID); err != nil {
		return err
	}
	if err := s.objects.RemoveStaged(ctx, fileID); err != nil {
		log.Printf("library: discard staged object %s: %v", fileID, err)
	}
	return nil
}

// storageKey places committed blobs under their namespace, named by slug
// with the original extension preserved.
func storageKey(namespace, slug, originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	return path.Join(namespace, slug+ext)
}
