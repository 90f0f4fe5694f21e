package library

import (
	"context"
	"errors"
	"testing"

	"curator/api/internal/store"
)

type fakePendingStore struct {
	listFn    func(ctx context.Context, q store.ListQuery) ([]store.PendingFile, error)
	getFn     func(ctx context.Context, fileID string) (store.PendingFile, error)
	approveFn func(ctx context.Context, fileID string, req store.ApproveRequest, storageKey string) (store.MediaItem, error)
	rejectFn  func(ctx context.Context, fileID string) error
}

func (f *fakePendingStore) ListPending(ctx context.Context, q store.ListQuery) ([]store.PendingFile, error) {
	if f.listFn != nil {
		return f.listFn(ctx, q)
	}
	return nil, nil
}

func (f *fakePendingStore) GetPending(ctx context.Context, fileID string) (store.PendingFile, error) {
	if f.getFn != nil {
		return f.getFn(ctx, fileID)
	}
	return store.PendingFile{ID: fileID, Namespace: "default", OriginalFilename: "photo.jpg"}, nil
}

func (f *fakePendingStore) ApprovePending(ctx context.Context, fileID string, req store.ApproveRequest, storageKey string) (store.MediaItem, error) {
	if f.approveFn != nil {
		return f.approveFn(ctx, fileID, req, storageKey)
	}
	return store.MediaItem{ID: "mi_1"}, nil
}

func (f *fakePendingStore) RejectPending(ctx context.Context, fileID string) error {
	if f.rejectFn != nil {
		return f.rejectFn(ctx, fileID)
	}
	return nil
}

type fakeObjectStore struct {
	ops            []string
	copyErr        error
	removeStageErr error
}

func (f *fakeObjectStore) CopyToLibrary(ctx context.Context, fileID, destKey string) error {
	f.ops = append(f.ops, "copy:"+destKey)
	return f.copyErr
}

func (f *fakeObjectStore) RemoveFromLibrary(ctx context.Context, destKey string) error {
	f.ops = append(f.ops, "rollback:"+destKey)
	return nil
}

func (f *fakeObjectStore) RemoveStaged(ctx context.Context, fileID string) error {
	f.ops = append(f.ops, "discard:"+fileID)
	return f.removeStageErr
}

func TestApprovePromotesThenCommitsThenCleansUp(t *testing.T) {
	pending := &fakePendingStore{}
	objects := &fakeObjectStore{}
	svc := New(pending, objects, nil)

	req := store.ApproveRequest{Title: "Sunset", Slug: "sunset"}
	if err := svc.Approve(context.Background(), "pf_1", req); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	want := []string{"copy:default/sunset.jpg", "discard:pf_1"}
	if len(objects.ops) != len(want) {
		t.Fatalf("expected ops %v, got %v", want, objects.ops)
	}
	for i := range want {
		if objects.ops[i] != want[i] {
			t.Fatalf("op %d: expected %q, got %q", i, want[i], objects.ops[i])
		}
	}
}

func TestApproveRollsBackCopyOnCommitFailure(t *testing.T) {
	commitErr := &store.CommitError{Fields: map[string]string{"slug": "Slug already in use"}}
	pending := &fakePendingStore{
		approveFn: func(ctx context.Context, fileID string, req store.ApproveRequest, storageKey string) (store.MediaItem, error) {
			return store.MediaItem{}, commitErr
		},
	}
	objects := &fakeObjectStore{}
	svc := New(pending, objects, nil)

	err := svc.Approve(context.Background(), "pf_1", store.ApproveRequest{Slug: "sunset"})
	var got *store.CommitError
	if !errors.As(err, &got) {
		t.Fatalf("expected the commit error surfaced unwrapped, got %v", err)
	}

	want := []string{"copy:default/sunset.jpg", "rollback:default/sunset.jpg"}
	if len(objects.ops) != len(want) || objects.ops[1] != want[1] {
		t.Fatalf("expected promotion rolled back, got %v", objects.ops)
	}
	// The staged object survives so the operator can retry.
	for _, op := range objects.ops {
		if op == "discard:pf_1" {
			t.Fatalf("staged object must not be discarded on failure")
		}
	}
}

func TestApproveStopsBeforeCopyWhenLookupFails(t *testing.T) {
	pending := &fakePendingStore{
		getFn: func(ctx context.Context, fileID string) (store.PendingFile, error) {
			return store.PendingFile{}, errors.New("no such row")
		},
	}
	objects := &fakeObjectStore{}
	svc := New(pending, objects, nil)

	if err := svc.Approve(context.Background(), "pf_1", store.ApproveRequest{Slug: "x"}); err == nil {
		t.Fatalf("expected lookup error")
	}
	if len(objects.ops) != 0 {
		t.Fatalf("no object operations expected, got %v", objects.ops)
	}
}

func TestRejectDropsRowAndStagedBlob(t *testing.T) {
	rejected := ""
	pending := &fakePendingStore{
		rejectFn: func(ctx context.Context, fileID string) error {
			rejected = fileID
			return nil
		},
	}
	objects := &fakeObjectStore{}
	svc := New(pending, objects, nil)

	if err := svc.Reject(context.Background(), "pf_1"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected != "pf_1" {
		t.Fatalf("expected pf_1 rejected, got %q", rejected)
	}
	if len(objects.ops) != 1 || objects.ops[0] != "discard:pf_1" {
		t.Fatalf("expected staged blob discarded, got %v", objects.ops)
	}
}
