package review

import (
	"context"
	"errors"
	"testing"

	"curator/api/internal/store"
)

// decidedSession seeds three files: pf_1 and pf_2 marked for approval,
// pf_3 marked for rejection.
func decidedSession(t *testing.T) (*Session, *fakeRepo, *fakeNotifier) {
	t.Helper()
	session, repo, _, notifier := newTestSession(t,
		pendingFile("pf_1", "a.jpg"),
		pendingFile("pf_2", "b.jpg"),
		pendingFile("pf_3", "c.jpg"),
	)
	for i, id := range []string{"pf_1", "pf_2"} {
		if err := session.SetTitle(id, "Title "+string(rune('A'+i))); err != nil {
			t.Fatalf("SetTitle: %v", err)
		}
		if err := session.SetTags(id, []Tag{{ID: "tag_1", Name: "shared"}}); err != nil {
			t.Fatalf("SetTags: %v", err)
		}
		if err := session.MarkForApproval(context.Background(), id); err != nil {
			t.Fatalf("MarkForApproval %s: %v", id, err)
		}
	}
	if err := session.MarkForRejection("pf_3"); err != nil {
		t.Fatalf("MarkForRejection: %v", err)
	}
	return session, repo, notifier
}

func TestSubmitNothingMarked(t *testing.T) {
	session, _, _, notifier := newTestSession(t, pendingFile("pf_1", "a.jpg"))

	result, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result != (Result{}) {
		t.Fatalf("expected zero result, got %+v", result)
	}
	if notifier.count("info") != 1 {
		t.Fatalf("expected an informational notification, got %d", notifier.count("info"))
	}
}

func TestSubmitSuccessClearsSessionAndReloads(t *testing.T) {
	session, repo, notifier := decidedSession(t)
	var approvedIDs, rejectedIDs []string
	repo.approveFn = func(ctx context.Context, fileID string, req store.ApproveRequest) error {
		approvedIDs = append(approvedIDs, fileID)
		return nil
	}
	repo.rejectFn = func(ctx context.Context, fileID string) error {
		rejectedIDs = append(rejectedIDs, fileID)
		return nil
	}
	fresh := pendingFile("pf_new", "new.jpg")
	repo.listFn = func(ctx context.Context, q store.ListQuery) ([]store.PendingFile, error) {
		return []store.PendingFile{fresh}, nil
	}

	result, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Approved != 2 || result.Rejected != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(approvedIDs) != 2 || approvedIDs[0] != "pf_1" || approvedIDs[1] != "pf_2" {
		t.Fatalf("approvals must run in seed order, got %v", approvedIDs)
	}
	if len(rejectedIDs) != 1 || rejectedIDs[0] != "pf_3" {
		t.Fatalf("expected pf_3 rejected, got %v", rejectedIDs)
	}

	// Everything cleared, then reseeded from the repository.
	snap := session.Snapshot()
	if len(snap.Files) != 1 || snap.Files[0].File.ID != "pf_new" {
		t.Fatalf("expected session reseeded with pf_new, got %+v", snap.Files)
	}
	if notifier.count("success") == 0 {
		t.Fatalf("expected a success notification")
	}
}

func TestSubmitPartialFailurePreservesState(t *testing.T) {
	session, repo, notifier := decidedSession(t)
	repo.approveFn = func(ctx context.Context, fileID string, req store.ApproveRequest) error {
		if fileID == "pf_1" {
			return &store.CommitError{Fields: map[string]string{"slug": "Slug already in use"}}
		}
		return nil
	}

	result, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Approved != 1 || result.Failed != 1 || result.Rejected != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Any approval failure keeps the whole session: drafts, decisions and
	// the failed file's server-side field error.
	snap := session.Snapshot()
	if len(snap.Files) != 3 {
		t.Fatalf("partial failure must not clear the session, got %d files", len(snap.Files))
	}
	if decision := session.DecisionFor("pf_1"); decision == nil || decision.Action != ActionApprove {
		t.Fatalf("failed file must keep its decision for retry, got %+v", decision)
	}
	errs := session.ErrorsFor("pf_1")
	if errs["slug"] != "Slug already in use" {
		t.Fatalf("expected the commit error surfaced inline, got %v", errs)
	}
	if notifier.count("error") == 0 {
		t.Fatalf("expected a per-item failure notification")
	}
}

func TestSubmitRejectionFailureDoesNotBlockBatch(t *testing.T) {
	session, repo, _ := decidedSession(t)
	repo.rejectFn = func(ctx context.Context, fileID string) error {
		return errors.New("bucket unavailable")
	}
	repo.listFn = func(ctx context.Context, q store.ListQuery) ([]store.PendingFile, error) {
		return nil, nil
	}

	result, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Approved != 2 || result.Rejected != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	// Rejection failures are logged but never count as approval failures,
	// so the batch still clears.
	if snap := session.Snapshot(); len(snap.Files) != 0 {
		t.Fatalf("expected session cleared, got %d files", len(snap.Files))
	}
}

func TestSubmitRefusesConcurrentInvocation(t *testing.T) {
	session, repo, _ := decidedSession(t)
	var nested error
	repo.approveFn = func(ctx context.Context, fileID string, req store.ApproveRequest) error {
		if nested == nil {
			_, nested = session.Submit(ctx)
		}
		return nil
	}
	repo.listFn = func(ctx context.Context, q store.ListQuery) ([]store.PendingFile, error) {
		return nil, nil
	}

	if _, err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !errors.Is(nested, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight for the overlapping call, got %v", nested)
	}
}

func TestSubmitSendsTemporaryTagsByName(t *testing.T) {
	session, repo, _, _ := newTestSession(t, pendingFile("pf_1", "a.jpg"))
	if err := session.SetTitle("pf_1", "Tagged"); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	if err := session.SetTags("pf_1", []Tag{
		{ID: "tag_1", Name: "existing"},
		{ID: "new_abc123", Name: "freshly typed"},
	}); err != nil {
		t.Fatalf("SetTags: %v", err)
	}
	if err := session.MarkForApproval(context.Background(), "pf_1"); err != nil {
		t.Fatalf("MarkForApproval: %v", err)
	}

	var captured store.ApproveRequest
	repo.approveFn = func(ctx context.Context, fileID string, req store.ApproveRequest) error {
		captured = req
		return nil
	}
	if _, err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(captured.Tags) != 2 {
		t.Fatalf("expected 2 tag refs, got %v", captured.Tags)
	}
	if captured.Tags[0].ID != "tag_1" {
		t.Fatalf("existing tag must be sent by id, got %+v", captured.Tags[0])
	}
	if captured.Tags[1].ID != "" || captured.Tags[1].Name != "freshly typed" {
		t.Fatalf("temporary tag must be sent by name only, got %+v", captured.Tags[1])
	}
}
