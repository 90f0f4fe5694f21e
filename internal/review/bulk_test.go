package review

import (
	"context"
	"errors"
	"testing"
)

func TestToggleSelection(t *testing.T) {
	session, _, _, _ := newTestSession(t, pendingFile("pf_1", "a.jpg"), pendingFile("pf_2", "b.jpg"))

	if err := session.ToggleSelection("pf_1"); err != nil {
		t.Fatalf("ToggleSelection: %v", err)
	}
	snap := session.Snapshot()
	if !snap.Files[0].Selected || snap.Files[1].Selected {
		t.Fatalf("expected only pf_1 selected")
	}

	if err := session.ToggleSelection("pf_1"); err != nil {
		t.Fatalf("ToggleSelection: %v", err)
	}
	if session.Snapshot().Files[0].Selected {
		t.Fatalf("second toggle should deselect")
	}
}

func TestDecidedFilesAreNotSelectable(t *testing.T) {
	session, _, _, _ := newTestSession(t, pendingFile("pf_1", "a.jpg"), pendingFile("pf_2", "b.jpg"))
	if err := session.MarkForRejection("pf_1"); err != nil {
		t.Fatalf("MarkForRejection: %v", err)
	}

	if err := session.ToggleSelection("pf_1"); err != nil {
		t.Fatalf("ToggleSelection on decided file should be a no-op, got %v", err)
	}
	if session.Snapshot().Files[0].Selected {
		t.Fatalf("decided file must not enter the selection")
	}

	if count := session.SelectAll(); count != 1 {
		t.Fatalf("SelectAll should skip decided files, got %d", count)
	}
}

func TestDecisionRemovesFileFromSelection(t *testing.T) {
	session, _, _, _ := newTestSession(t, pendingFile("pf_1", "a.jpg"))
	readyFile(t, session, "pf_1")
	if err := session.ToggleSelection("pf_1"); err != nil {
		t.Fatalf("ToggleSelection: %v", err)
	}

	if err := session.MarkForApproval(context.Background(), "pf_1"); err != nil {
		t.Fatalf("MarkForApproval: %v", err)
	}
	if session.Snapshot().Files[0].Selected {
		t.Fatalf("marking a file must drop it from the selection")
	}
}

func TestSetBulkTagsAssignsTemporaryIDs(t *testing.T) {
	session, _, _, _ := newTestSession(t, pendingFile("pf_1", "a.jpg"))

	session.SetBulkTags([]Tag{
		{ID: "tag_9", Name: "existing"},
		{Name: "  brand new  "},
		{Name: "   "},
	})

	snap := session.Snapshot()
	if len(snap.BulkTags) != 2 {
		t.Fatalf("blank names must be dropped, got %d tags", len(snap.BulkTags))
	}
	if snap.BulkTags[0].ID != "tag_9" {
		t.Fatalf("existing id must be preserved, got %q", snap.BulkTags[0].ID)
	}
	if snap.BulkTags[1].Name != "brand new" {
		t.Fatalf("names must be trimmed, got %q", snap.BulkTags[1].Name)
	}
	if snap.BulkTags[1].ID == "" {
		t.Fatalf("id-less tag must get a client-temporary id")
	}
}

func TestApplyBulkTagsMergesWithoutDuplicates(t *testing.T) {
	session, _, _, _ := newTestSession(t, pendingFile("pf_1", "a.jpg"), pendingFile("pf_2", "b.jpg"))
	if err := session.SetTags("pf_1", []Tag{{ID: "tag_1", Name: "sunset"}}); err != nil {
		t.Fatalf("SetTags: %v", err)
	}
	if err := session.ToggleSelection("pf_1"); err != nil {
		t.Fatalf("ToggleSelection: %v", err)
	}
	if err := session.ToggleSelection("pf_2"); err != nil {
		t.Fatalf("ToggleSelection: %v", err)
	}

	// "sunset" collides by name with pf_1's existing tag; the existing tag
	// wins, so its id is kept.
	session.SetBulkTags([]Tag{{ID: "tag_7", Name: "sunset"}, {Name: "coast"}})
	applied, err := session.ApplyBulkTags()
	if err != nil {
		t.Fatalf("ApplyBulkTags: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 files tagged, got %d", applied)
	}

	first, _ := session.DraftFor("pf_1")
	if len(first.Tags) != 2 {
		t.Fatalf("expected sunset + coast on pf_1, got %v", first.Tags)
	}
	if first.Tags[0].ID != "tag_1" {
		t.Fatalf("existing tag must win the name collision, got %q", first.Tags[0].ID)
	}
	second, _ := session.DraftFor("pf_2")
	if len(second.Tags) != 2 {
		t.Fatalf("expected both buffer tags on pf_2, got %v", second.Tags)
	}

	if snap := session.Snapshot(); len(snap.BulkTags) != 0 {
		t.Fatalf("buffer must be cleared after applying, got %v", snap.BulkTags)
	}
}

func TestApplyBulkTagsRejectsEmptyInputs(t *testing.T) {
	session, _, _, _ := newTestSession(t, pendingFile("pf_1", "a.jpg"))

	var emptyErr *EmptyBulkError
	if _, err := session.ApplyBulkTags(); !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyBulkError for empty buffer, got %v", err)
	}

	session.SetBulkTags([]Tag{{Name: "coast"}})
	if _, err := session.ApplyBulkTags(); !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyBulkError for empty selection, got %v", err)
	}
}

func TestBulkApproveIsAllOrNothingOnValidation(t *testing.T) {
	invalid := pendingFile("pf_bad", "b.jpg")
	session, _, resolver, notifier := newTestSession(t, pendingFile("pf_ok", "a.jpg"), invalid)
	readyFile(t, session, "pf_ok")
	if err := session.SetTitle("pf_bad", ""); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	session.SelectAll()

	approved, withheld, err := session.BulkApprove(context.Background())
	var bulkErr *BulkValidationError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("expected BulkValidationError, got %v", err)
	}
	if approved != 0 || withheld != 0 {
		t.Fatalf("aborted bulk must mark nothing, got approved=%d withheld=%d", approved, withheld)
	}
	if _, failed := bulkErr.Failures["pf_bad"]; !failed {
		t.Fatalf("expected pf_bad in failures, got %v", bulkErr.Failures)
	}
	if session.DecisionFor("pf_ok") != nil {
		t.Fatalf("valid file must stay unmarked when any selected file fails")
	}
	if resolver.callCount() != 0 {
		t.Fatalf("the validation gate must run before any slug round trip")
	}
	if notifier.count("error") != 1 {
		t.Fatalf("expected one aggregate error notification, got %d", notifier.count("error"))
	}
}

func TestBulkApproveCountsWithheldRenames(t *testing.T) {
	a := pendingFile("pf_a", "a.jpg")
	b := pendingFile("pf_b", "b.jpg")
	session, _, resolver, _ := newTestSession(t, a, b)
	for _, id := range []string{"pf_a", "pf_b"} {
		if err := session.SetTags(id, []Tag{{ID: "tag_1", Name: "shared"}}); err != nil {
			t.Fatalf("SetTags: %v", err)
		}
	}
	if err := session.SetTitle("pf_a", "Alpha"); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	if err := session.SetTitle("pf_b", "Beta"); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	resolver.resolveFn = func(ctx context.Context, title, namespace string, inUse []string) (string, error) {
		if title == "Beta" {
			return "beta-2", nil
		}
		return deriveForTest(title), nil
	}
	session.SelectAll()

	approved, withheld, err := session.BulkApprove(context.Background())
	if err != nil {
		t.Fatalf("BulkApprove: %v", err)
	}
	if approved != 1 || withheld != 1 {
		t.Fatalf("expected approved=1 withheld=1, got %d/%d", approved, withheld)
	}
	if decision := session.DecisionFor("pf_a"); decision == nil {
		t.Fatalf("expected pf_a approved")
	}
	if session.DecisionFor("pf_b") != nil {
		t.Fatalf("renamed pf_b must stay unmarked")
	}

	// Selection is cleared either way.
	for _, state := range session.Snapshot().Files {
		if state.Selected {
			t.Fatalf("selection must be cleared after bulk approve")
		}
	}
}
