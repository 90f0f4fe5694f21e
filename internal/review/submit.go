package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"curator/api/internal/store"
)

// Result summarizes a batch submission.
type Result struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
}

// Submit drains every decided file: approvals first, then rejections, both
// in stable seed order so failures are attributable and reproducible. A
// single item's failure never blocks the rest. Only a batch with zero
// approval failures clears the session; otherwise all drafts and decisions
// are preserved so the operator can correct and resubmit.
func (s *Session) Submit(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return Result{}, ErrSubmitInFlight
	}

	approvals := s.orderedLocked(func(id string) bool {
		return s.decisions[id].Action == ActionApprove
	})
	rejections := s.orderedLocked(func(id string) bool {
		return s.decisions[id].Action == ActionReject
	})
	if len(approvals) == 0 && len(rejections) == 0 {
		s.mu.Unlock()
		s.notify.Info("Nothing to submit: no files are marked.")
		return Result{}, nil
	}

	s.submitting = true
	requests := make(map[string]store.ApproveRequest, len(approvals))
	titles := make(map[string]string, len(approvals))
	for _, id := range approvals {
		requests[id] = s.approveRequestLocked(id)
		titles[id] = s.drafts[id].Title
	}
	s.mu.Unlock()

	var result Result
	var failed []string

	for _, id := range approvals {
		if err := s.repo.Approve(ctx, id, requests[id]); err != nil {
			failed = append(failed, id)
			result.Failed++
			s.recordCommitFailure(id, titles[id], err)
			continue
		}
		result.Approved++
	}

	for _, id := range rejections {
		if err := s.repo.Reject(ctx, id); err != nil {
			// Rejections are not validated and never block the batch.
			log.Printf("review: reject %s: %v", id, err)
			s.notify.Error(fmt.Sprintf("Rejecting %s failed: %v", id, err))
			continue
		}
		result.Rejected++
	}

	s.mu.Lock()
	s.submitting = false
	cleared := len(failed) == 0
	if cleared {
		for _, id := range s.orderedLocked(nil) {
			s.dropLocked(id)
		}
		s.order = s.order[:0]
		s.selection = make(map[string]struct{})
		s.bulkTags = s.bulkTags[:0]
	}
	namespace := s.namespace
	s.mu.Unlock()

	if result.Approved > 0 || result.Rejected > 0 {
		s.notify.Success(fmt.Sprintf("Batch committed: %d approved, %d rejected.", result.Approved, result.Rejected))
	}
	if result.Failed > 0 {
		s.notify.Error(fmt.Sprintf("%d approval(s) failed and were kept for retry.", result.Failed))
	}

	if cleared {
		files, err := s.repo.List(ctx, store.ListQuery{Namespace: namespace})
		if err != nil {
			log.Printf("review: refresh pending list: %v", err)
			return result, nil
		}
		s.Load(files)
	}
	return result, nil
}

// recordCommitFailure maps a server-side approve failure back onto the
// file's validation errors so the normal inline UI surfaces it. The file
// keeps its approve decision for retry.
func (s *Session) recordCommitFailure(fileID, title string, err error) {
	var commitErr *store.CommitError
	if errors.As(err, &commitErr) {
		s.mu.Lock()
		for field, message := range commitErr.Fields {
			s.setFieldErrorLocked(fileID, field, message)
		}
		s.mu.Unlock()
	}
	s.notify.Error(fmt.Sprintf("Approving \"%s\" failed: %v", title, err))
}

// approveRequestLocked builds the repository payload from a draft. Tags with
// client-temporary ids are sent by name so the repository creates them.
func (s *Session) approveRequestLocked(fileID string) store.ApproveRequest {
	draft := s.drafts[fileID]
	req := store.ApproveRequest{
		Title:          draft.Title,
		Slug:           draft.Slug,
		AccessLevel:    draft.AccessLevel,
		CollectionID:   draft.CollectionID,
		CollectionName: draft.CollectionName,
	}
	for _, tag := range draft.Tags {
		ref := store.TagRef{Name: tag.Name}
		if tag.ID != "" && !strings.HasPrefix(tag.ID, "new_") {
			ref.ID = tag.ID
		}
		req.Tags = append(req.Tags, ref)
	}
	return req
}
