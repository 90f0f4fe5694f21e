package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"curator/api/internal/review"
	"curator/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	namespace := r.URL.Query().Get("namespace")

	if r.Method == http.MethodGet && r.URL.Path == "/api/pending" {
		query := r.URL.Query()
		q := store.ListQuery{
			Namespace: namespace,
			Search:    query.Get("q"),
			SortField: query.Get("sort"),
			SortDesc:  query.Get("dir") == "desc",
			FileType:  store.FileType(query.Get("type")),
		}
		snapshot, err := s.service.ListPending(r.Context(), q)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/review" {
		writeJSON(w, http.StatusOK, s.service.Snapshot(namespace))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/tags" {
		tags, err := s.service.ListTags(r.Context(), namespace, r.URL.Query().Get("q"))
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		if tags == nil {
			tags = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/tags" {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		tag, err := s.service.CreateTag(r.Context(), namespace, body.Name)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, tag)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/collections" {
		collections, err := s.service.ListCollections(r.Context(), namespace)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		if collections == nil {
			collections = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"collections": collections})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/collections" {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		collection, err := s.service.CreateCollection(r.Context(), namespace, body.Name)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, collection)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/media" {
		query := r.URL.Query()
		limit, _ := strconv.Atoi(query.Get("limit"))
		offset, _ := strconv.Atoi(query.Get("offset"))
		response := s.service.SearchMedia(namespace, query.Get("q"), query.Get("type"), limit, offset)
		writeJSON(w, http.StatusOK, response)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/notifications" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{
			"notifications": s.service.Notifications(namespace, limit),
		})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "review" {
		s.handleReview(w, r, namespace, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleReview(w http.ResponseWriter, r *http.Request, namespace string, parts []string) {
	// /api/review/submit, /selection/..., /bulk-tags/..., /bulk-approve,
	// /{fileId}/draft|approve|reject|unmark
	if len(parts) == 1 && parts[0] == "submit" && r.Method == http.MethodPost {
		result, err := s.service.Submit(r.Context(), namespace)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if len(parts) >= 1 && parts[0] == "selection" {
		switch {
		case len(parts) == 2 && parts[1] == "toggle" && r.Method == http.MethodPost:
			var body struct {
				FileID string `json:"fileId"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
				return
			}
			if err := s.service.ToggleSelection(namespace, body.FileID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		case len(parts) == 2 && parts[1] == "all" && r.Method == http.MethodPost:
			selected := s.service.SelectAll(namespace)
			writeJSON(w, http.StatusOK, map[string]any{"selected": selected})
			return
		case len(parts) == 1 && r.Method == http.MethodDelete:
			s.service.ClearSelection(namespace)
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	if len(parts) >= 1 && parts[0] == "bulk-tags" {
		switch {
		case len(parts) == 1 && r.Method == http.MethodPut:
			var body struct {
				Tags []review.Tag `json:"tags"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
				return
			}
			s.service.SetBulkTags(namespace, body.Tags)
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		case len(parts) == 2 && parts[1] == "apply" && r.Method == http.MethodPost:
			applied, err := s.service.ApplyBulkTags(namespace)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	if len(parts) == 1 && parts[0] == "bulk-approve" && r.Method == http.MethodPost {
		approved, withheld, err := s.service.BulkApprove(r.Context(), namespace)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"approved": approved, "withheld": withheld})
		return
	}

	if len(parts) == 2 {
		fileID := parts[0]
		switch {
		case parts[1] == "draft" && r.Method == http.MethodPut:
			var input DraftInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
				return
			}
			if err := s.service.UpdateDraft(namespace, fileID, input); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		case parts[1] == "approve" && r.Method == http.MethodPost:
			if err := s.service.Approve(r.Context(), namespace, fileID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		case parts[1] == "reject" && r.Method == http.MethodPost:
			if err := s.service.Reject(namespace, fileID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		case parts[1] == "unmark" && r.Method == http.MethodPost:
			if err := s.service.Unmark(namespace, fileID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *review.ValidationFailedError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Validation failed", map[string]any{
			"fileId": validationErr.FileID,
			"fields": validationErr.Fields,
		}
	}
	var bulkErr *review.BulkValidationError
	if errors.As(err, &bulkErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Some files failed validation", map[string]any{
			"failures": bulkErr.Failures,
		}
	}
	var renamedErr *review.SlugRenamedError
	if errors.As(err, &renamedErr) {
		return http.StatusConflict, "SLUG_RENAMED", "Slug was renamed by the server, review and approve again", map[string]any{
			"fileId":       renamedErr.FileID,
			"originalSlug": renamedErr.OriginalSlug,
			"resolvedSlug": renamedErr.ResolvedSlug,
		}
	}
	var emptyErr *review.EmptyBulkError
	if errors.As(err, &emptyErr) {
		return http.StatusBadRequest, "EMPTY_BULK", emptyErr.Reason, nil
	}
	if errors.Is(err, review.ErrSubmitInFlight) {
		return http.StatusConflict, "SUBMIT_IN_FLIGHT", "A batch submission is already running", nil
	}
	if errors.Is(err, review.ErrAlreadyMarked) {
		return http.StatusConflict, "ALREADY_MARKED", "File already marked, unmark it first", nil
	}
	if errors.Is(err, review.ErrDraftEdited) {
		return http.StatusConflict, "DRAFT_EDITED", "Draft changed during approval, approve again", nil
	}
	if errors.Is(err, review.ErrUnknownFile) {
		return http.StatusNotFound, "NOT_FOUND", "Unknown pending file", nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
