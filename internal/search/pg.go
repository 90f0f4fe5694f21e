package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements Searcher with ILIKE queries against Postgres as the
// fallback when Meilisearch is unavailable.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" && q.FilterType != ResultTag {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + strings.TrimSpace(q.Text) + "%"
	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultMedia {
		subQueries = append(subQueries, `
			SELECT 'media'::text AS type, id, title, slug, namespace, file_type
			FROM media_items
			WHERE namespace = $1 AND (title ILIKE $2 OR slug ILIKE $2 OR original_filename ILIKE $2)`)
	}
	if q.FilterType == "" || q.FilterType == ResultTag {
		subQueries = append(subQueries, `
			SELECT 'tag'::text AS type, id, name AS title, ''::text AS slug, namespace, ''::text AS file_type
			FROM tags
			WHERE namespace = $1 AND name ILIKE $2`)
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL := fmt.Sprintf(`SELECT type, id, title, slug, namespace, file_type
		FROM (%s) sub
		ORDER BY title ASC
		LIMIT %d OFFSET %d`, union, limit, offset)

	ctx := context.Background()
	args := []any{q.Namespace, pattern}

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pg search count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pg search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Slug, &r.Namespace, &r.FileType); err != nil {
			return nil, 0, fmt.Errorf("pg search scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns all indexable rows for a full reindex.
func (p *PgSearch) LoadAllRecords(ctx context.Context) ([]MediaRecord, []TagRecord, error) {
	mediaRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, slug, namespace, file_type, original_filename
		FROM media_items
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load media items: %w", err)
	}
	defer mediaRows.Close()

	var media []MediaRecord
	for mediaRows.Next() {
		var rec MediaRecord
		if err := mediaRows.Scan(&rec.ID, &rec.Title, &rec.Slug, &rec.Namespace, &rec.FileType, &rec.Filename); err != nil {
			return nil, nil, fmt.Errorf("scan media record: %w", err)
		}
		media = append(media, rec)
	}
	if err := mediaRows.Err(); err != nil {
		return nil, nil, err
	}

	tagRows, err := p.db.QueryContext(ctx, `SELECT id, name, namespace FROM tags`)
	if err != nil {
		return nil, nil, fmt.Errorf("load tags: %w", err)
	}
	defer tagRows.Close()

	var tags []TagRecord
	for tagRows.Next() {
		var rec TagRecord
		if err := tagRows.Scan(&rec.ID, &rec.Name, &rec.Namespace); err != nil {
			return nil, nil, fmt.Errorf("scan tag record: %w", err)
		}
		tags = append(tags, rec)
	}
	return media, tags, tagRows.Err()
}
