package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxMedia = "curator_media"
	idxTags  = "curator_tags"
)

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes. The caller
// should proceed without it if the initial connection fails.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		primaryKey string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxMedia,
			primaryKey: "id",
			filterable: []string{"namespace", "fileType"},
			searchable: []string{"title", "slug", "filename"},
		},
		{
			uid:        idxTags,
			primaryKey: "id",
			filterable: []string{"namespace"},
			searchable: []string{"name"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: idx.primaryKey,
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}

		index := m.client.Index(idx.uid)
		filterableInterface := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterableInterface[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterableInterface); err != nil {
			log.Printf("search: update filterable attrs for %s: %v", idx.uid, err)
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the media and tag indexes (or a filtered subset).
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targetIndexes := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxMedia, ResultMedia},
		{idxTags, ResultTag},
	}

	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID: ti.uid,
			Query:    q.Text,
			Limit:    limit,
			Offset:   int64(q.Offset),
		}
		if q.Namespace != "" {
			sr.Filter = []string{fmt.Sprintf("namespace = %q", q.Namespace)}
		}
		queries = append(queries, sr)
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}
	return results, total, nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxMedia:
		return ResultMedia
	case idxTags:
		return ResultTag
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")
	r.Namespace = decodeString(hit, "namespace")
	switch rtyp {
	case ResultMedia:
		r.Title = decodeString(hit, "title")
		r.Slug = decodeString(hit, "slug")
		r.FileType = decodeString(hit, "fileType")
	case ResultTag:
		r.Title = decodeString(hit, "name")
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

// IndexMedia adds or updates a media item in the search index.
func (m *Meili) IndexMedia(rec MediaRecord) error {
	_, err := m.client.Index(idxMedia).AddDocuments([]MediaRecord{rec}, nil)
	return err
}

// IndexTag adds or updates a tag in the search index.
func (m *Meili) IndexTag(rec TagRecord) error {
	_, err := m.client.Index(idxTags).AddDocuments([]TagRecord{rec}, nil)
	return err
}

// DeleteMedia removes a media item from the search index.
func (m *Meili) DeleteMedia(id string) error {
	_, err := m.client.Index(idxMedia).DeleteDocument(id, nil)
	return err
}

// IndexMediaBatch bulk-indexes media items.
func (m *Meili) IndexMediaBatch(records []MediaRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxMedia).AddDocuments(records, nil)
	return err
}

// IndexTagBatch bulk-indexes tags.
func (m *Meili) IndexTagBatch(records []TagRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxTags).AddDocuments(records, nil)
	return err
}
