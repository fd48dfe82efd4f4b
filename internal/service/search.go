package service

import (
	"context"
	"strings"
	"time"

	"github.com/Puumanamana/RAG-SRA/internal/database"
	"github.com/Puumanamana/RAG-SRA/internal/errors"
	"github.com/Puumanamana/RAG-SRA/internal/search"
)

const (
	opSearch errors.Op = "service.Search"
	opStats  errors.Op = "service.Stats"
	opHealth errors.Op = "service.Health"
)

// SearchService answers search and stats requests against the index and the
// catalog. It does not own either; the caller opens and closes them.
type SearchService struct {
	db    *database.DB
	index *search.Index
}

// NewSearchService creates a search service over an open catalog and index.
func NewSearchService(db *database.DB, index *search.Index) *SearchService {
	return &SearchService{db: db, index: index}
}

// Search runs a full-text query, optionally narrowed by keyword filters.
func (s *SearchService) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" && len(req.Filters) == 0 {
		return nil, errors.E(opSearch, errors.KindValidation, "query or filters required")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 1000 {
		limit = 1000
	}

	start := time.Now()

	var (
		hits []search.Hit
		err  error
	)
	if len(req.Filters) > 0 {
		hits, err = s.index.SearchWithFilters(req.Query, req.Filters, limit)
	} else {
		hits, err = s.index.Search(req.Query, limit)
	}
	if err != nil {
		return nil, errors.E(opSearch, errors.KindSearch, err)
	}

	resp := &SearchResponse{
		Results:      make([]*SearchResult, 0, len(hits)),
		TotalResults: len(hits),
		Query:        req.Query,
		TimeTaken:    time.Since(start).Milliseconds(),
	}
	for _, hit := range hits {
		resp.Results = append(resp.Results, &SearchResult{
			SRAID:      hit.SRAID,
			Bioproject: hit.Bioproject,
			SRPID:      hit.SRPID,
			Species:    hit.Species,
			Score:      hit.Score,
			Text:       hit.Text,
		})
	}
	return resp, nil
}

// Stats reports catalog counts alongside the index document count.
func (s *SearchService) Stats(ctx context.Context) (*StatsResponse, error) {
	dbStats, err := s.db.GetStats()
	if err != nil {
		return nil, errors.E(opStats, errors.KindDatabase, err)
	}

	indexed, err := s.index.DocCount()
	if err != nil {
		return nil, errors.E(opStats, errors.KindSearch, err)
	}

	return &StatsResponse{
		TotalStudies: dbStats.TotalStudies,
		IndexedDocs:  indexed,
		BySpecies:    dbStats.BySpecies,
		LastUpdate:   dbStats.LastUpdate,
	}, nil
}

// Health reports whether both backing stores answer.
func (s *SearchService) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.E(opHealth, errors.KindDatabase, err)
	}
	if _, err := s.index.DocCount(); err != nil {
		return errors.E(opHealth, errors.KindSearch, err)
	}
	return nil
}
