// Package service wires the catalog database and the search index into the
// request-shaped operations the HTTP API exposes.
package service

import "time"

// SearchRequest carries a full-text query with optional keyword filters on
// the identifier fields (species, bioproject, srp_id, sra_id).
type SearchRequest struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters,omitempty"`
	Limit   int               `json:"limit,omitempty"`
}

// SearchResponse lists the matching studies for one request.
type SearchResponse struct {
	Results      []*SearchResult `json:"results"`
	TotalResults int             `json:"total_results"`
	Query        string          `json:"query"`
	TimeTaken    int64           `json:"time_taken_ms"`
}

// SearchResult is a single study hit with its relevance score.
type SearchResult struct {
	SRAID      string  `json:"sra_id"`
	Bioproject string  `json:"bioproject,omitempty"`
	SRPID      string  `json:"srp_id,omitempty"`
	Species    string  `json:"species,omitempty"`
	Score      float64 `json:"score"`
	Text       string  `json:"text,omitempty"`
}

// StatsResponse reports catalog and index sizes.
type StatsResponse struct {
	TotalStudies int            `json:"total_studies"`
	IndexedDocs  uint64         `json:"indexed_documents"`
	BySpecies    map[string]int `json:"by_species,omitempty"`
	LastUpdate   time.Time      `json:"last_update"`
}
