package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"curator/api/internal/util"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var pendingSortColumns = map[string]string{
	"created_at": "created_at",
	"expires_at": "expires_at",
	"filename":   "original_filename",
	"size":       "file_size",
}

func (s *PostgresStore) ListPending(ctx context.Context, q ListQuery) ([]PendingFile, error) {
	where := []string{"namespace = $1", "expires_at > NOW()"}
	args := []any{q.Namespace}
	argN := 2

	if strings.TrimSpace(q.Search) != "" {
		where = append(where, fmt.Sprintf("(original_filename ILIKE $%d OR ai_title ILIKE $%d)", argN, argN))
		args = append(args, "%"+strings.TrimSpace(q.Search)+"%")
		argN++
	}
	if q.FileType != "" {
		where = append(where, fmt.Sprintf("file_type = $%d", argN))
		args = append(args, string(q.FileType))
		argN++
	}

	sortColumn, ok := pendingSortColumns[q.SortField]
	if !ok {
		sortColumn = "created_at"
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT id, namespace, original_filename, file_type, file_size,
			created_at, expires_at, COALESCE(ai_title, ''), ai_tags
		FROM pending_files
		WHERE %s
		ORDER BY %s %s, id ASC
	`, strings.Join(where, " AND "), sortColumn, direction)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var files []PendingFile
	for rows.Next() {
		file, err := scanPendingFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *PostgresStore) GetPending(ctx context.Context, fileID string) (PendingFile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, namespace, original_filename, file_type, file_size,
			created_at, expires_at, COALESCE(ai_title, ''), ai_tags
		FROM pending_files
		WHERE id = $1
	`, fileID)
	return scanPendingFile(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPendingFile(row rowScanner) (PendingFile, error) {
	var file PendingFile
	var fileType string
	var tags sql.NullString
	err := row.Scan(&file.ID, &file.Namespace, &file.OriginalFilename, &fileType,
		&file.FileSize, &file.CreatedAt, &file.ExpiresAt, &file.AISuggestedTitle, &tags)
	if err != nil {
		return PendingFile{}, err
	}
	file.FileType = FileType(fileType)
	if tags.Valid && tags.String != "" {
		for _, name := range strings.Split(tags.String, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				file.AISuggestedTags = append(file.AISuggestedTags, trimmed)
			}
		}
	}
	return file, nil
}

// ApprovePending commits a reviewed pending file into the media library in a
// single transaction: tags are resolved (existing id or created by name), the
// media item is inserted, and the pending row is removed. Field-shaped
// failures come back as *CommitError.
func (s *PostgresStore) ApprovePending(ctx context.Context, fileID string, req ApproveRequest, storageKey string) (MediaItem, error) {
	pending, err := s.GetPending(ctx, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return MediaItem{}, fmt.Errorf("pending file %s not found", fileID)
	}
	if err != nil {
		return MediaItem{}, fmt.Errorf("load pending %s: %w", fileID, err)
	}

	if strings.TrimSpace(req.Title) == "" {
		return MediaItem{}, commitError("title", "Title is required")
	}
	if len(req.Tags) == 0 {
		return MediaItem{}, commitError("tags", "At least one tag is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MediaItem{}, fmt.Errorf("begin approve tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tagIDs, err := resolveTagRefs(ctx, tx, pending.Namespace, req.Tags)
	if err != nil {
		return MediaItem{}, err
	}

	var collectionID *string
	switch {
	case req.CollectionID != "":
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM collections WHERE id = $1 AND namespace = $2)`,
			req.CollectionID, pending.Namespace).Scan(&exists); err != nil {
			return MediaItem{}, fmt.Errorf("check collection: %w", err)
		}
		if !exists {
			return MediaItem{}, commitError("collection", "Collection not found")
		}
		collectionID = &req.CollectionID
	case req.CollectionName != "":
		id, err := ensureCollection(ctx, tx, pending.Namespace, req.CollectionName)
		if err != nil {
			return MediaItem{}, err
		}
		collectionID = &id
	}

	accessLevel := req.AccessLevel
	if accessLevel == "" {
		accessLevel = AccessPublic
	}

	item := MediaItem{
		ID:               util.NewID("media"),
		Namespace:        pending.Namespace,
		Title:            strings.TrimSpace(req.Title),
		Slug:             req.Slug,
		OriginalFilename: pending.OriginalFilename,
		FileType:         pending.FileType,
		FileSize:         pending.FileSize,
		AccessLevel:      accessLevel,
		CollectionID:     collectionID,
		StorageKey:       storageKey,
		CreatedAt:        time.Now(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO media_items (id, namespace, title, slug, original_filename,
			file_type, file_size, access_level, collection_id, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, item.Namespace, item.Title, item.Slug, item.OriginalFilename,
		string(item.FileType), item.FileSize, string(item.AccessLevel), item.CollectionID, item.StorageKey)
	if err != nil {
		if isUniqueViolation(err) {
			return MediaItem{}, commitError("slug", "Slug already in use")
		}
		return MediaItem{}, fmt.Errorf("insert media item: %w", err)
	}

	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO media_item_tags (media_item_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, item.ID, tagID); err != nil {
			return MediaItem{}, fmt.Errorf("link tag: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_files WHERE id = $1`, fileID); err != nil {
		return MediaItem{}, fmt.Errorf("remove pending %s: %w", fileID, err)
	}

	if err := tx.Commit(); err != nil {
		return MediaItem{}, fmt.Errorf("commit approve tx: %w", err)
	}
	return item, nil
}

func resolveTagRefs(ctx context.Context, tx *sql.Tx, namespace string, refs []TagRef) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.ID != "" && !strings.HasPrefix(ref.ID, "new_") {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM tags WHERE id = $1 AND namespace = $2)`,
				ref.ID, namespace).Scan(&exists); err != nil {
				return nil, fmt.Errorf("check tag %s: %w", ref.ID, err)
			}
			if exists {
				ids = append(ids, ref.ID)
				continue
			}
			if ref.Name == "" {
				return nil, commitError("tags", fmt.Sprintf("Unknown tag %s", ref.ID))
			}
		}
		if strings.TrimSpace(ref.Name) == "" {
			return nil, commitError("tags", "Tag name is required")
		}
		id, err := ensureTag(ctx, tx, namespace, strings.TrimSpace(ref.Name))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func ensureTag(ctx context.Context, tx *sql.Tx, namespace, name string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE namespace = $1 AND name = $2`, namespace, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup tag %q: %w", name, err)
	}
	id = util.NewID("tag")
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tags (id, namespace, name) VALUES ($1, $2, $3)`, id, namespace, name); err != nil {
		return "", fmt.Errorf("insert tag %q: %w", name, err)
	}
	return id, nil
}

func ensureCollection(ctx context.Context, tx *sql.Tx, namespace, name string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM collections WHERE namespace = $1 AND name = $2`, namespace, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup collection %q: %w", name, err)
	}
	id = util.NewID("col")
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (id, namespace, name, slug) VALUES ($1, $2, $3, $4)`,
		id, namespace, name, slug); err != nil {
		return "", fmt.Errorf("insert collection %q: %w", name, err)
	}
	return id, nil
}

func (s *PostgresStore) RejectPending(ctx context.Context, fileID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_files WHERE id = $1`, fileID); err != nil {
		return fmt.Errorf("reject pending %s: %w", fileID, err)
	}
	return nil
}

func (s *PostgresStore) ListTags(ctx context.Context, namespace, query string) ([]Tag, error) {
	where := "namespace = $1"
	args := []any{namespace}
	if strings.TrimSpace(query) != "" {
		where += " AND name ILIKE $2"
		args = append(args, "%"+strings.TrimSpace(query)+"%")
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, namespace, name, created_at FROM tags
		WHERE %s
		ORDER BY name ASC
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Namespace, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *PostgresStore) CreateTag(ctx context.Context, namespace, name string) (Tag, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Tag{}, fmt.Errorf("begin tag tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	id, err := ensureTag(ctx, tx, namespace, strings.TrimSpace(name))
	if err != nil {
		return Tag{}, err
	}
	if err := tx.Commit(); err != nil {
		return Tag{}, fmt.Errorf("commit tag tx: %w", err)
	}
	return Tag{ID: id, Namespace: namespace, Name: strings.TrimSpace(name)}, nil
}

func (s *PostgresStore) ListCollections(ctx context.Context, namespace string) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, namespace, name, slug, created_at FROM collections
		WHERE namespace = $1
		ORDER BY name ASC
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.Namespace, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func (s *PostgresStore) CreateCollection(ctx context.Context, namespace, name string) (Collection, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Collection{}, fmt.Errorf("begin collection tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	id, err := ensureCollection(ctx, tx, namespace, name)
	if err != nil {
		return Collection{}, err
	}
	if err := tx.Commit(); err != nil {
		return Collection{}, fmt.Errorf("commit collection tx: %w", err)
	}
	return Collection{ID: id, Namespace: namespace, Name: strings.TrimSpace(name)}, nil
}

// PendingIDs returns the ids of every pending file across namespaces,
// including expired ones. Used by the staged-object sweeper.
func (s *PostgresStore) PendingIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM pending_files`)
	if err != nil {
		return nil, fmt.Errorf("list pending ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// SlugExists reports whether a slug is already taken in the library namespace.
func (s *PostgresStore) SlugExists(ctx context.Context, namespace, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM media_items WHERE namespace = $1 AND slug = $2)`,
		namespace, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug %q: %w", slug, err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
