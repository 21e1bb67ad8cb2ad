package db

// TextQuery is the input for a paginated full-text search.
type TextQuery struct {
	IndexName    string
	Query        string   // raw user keyword; the store escapes it
	Fields       []string // restrict matching to these TEXT fields (empty = all)
	Offset       int
	Limit        int
	SortBy       string // optional SORTBY field (ascending); must be SORTABLE
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
