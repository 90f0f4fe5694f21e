package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultMedia ResultType = "media"
	ResultTag   ResultType = "tag"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug,omitempty"`
	Namespace string     `json:"namespace"`
	FileType  string     `json:"fileType,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	Namespace  string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoints.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// MediaRecord is the data indexed for a committed media item.
type MediaRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Namespace string `json:"namespace"`
	FileType  string `json:"fileType"`
	Filename  string `json:"filename"`
}

// TagRecord is the data indexed for a tag.
type TagRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}
