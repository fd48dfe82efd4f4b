package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Puumanamana/RAG-SRA/internal/database"
	"github.com/Puumanamana/RAG-SRA/internal/service"
)

// handleSearch answers full-text queries. GET requests carry the query and
// filters as URL parameters, POST requests as a JSON body.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req service.SearchRequest

	if r.Method == "POST" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		q := r.URL.Query()
		req.Query = q.Get("q")
		if req.Query == "" {
			req.Query = q.Get("query")
		}
		req.Limit = intParam(q.Get("limit"), 0)

		for _, field := range []string{"species", "bioproject", "srp_id"} {
			if value := q.Get(field); value != "" {
				if req.Filters == nil {
					req.Filters = make(map[string]string)
				}
				req.Filters[field] = value
			}
		}
	}

	response, err := s.searchService.Search(r.Context(), &req)
	if err != nil {
		s.writeError(w, errorStatus(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleListStudies pages through the catalog without scoring.
func (s *Server) handleListStudies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := intParam(q.Get("limit"), 20)
	if limit > 100 {
		limit = 100
	}

	opts := database.ListOptions{
		Species:    q.Get("species"),
		Bioproject: q.Get("bioproject"),
		OrderBy:    q.Get("order_by"),
		Limit:      limit,
		Offset:     intParam(q.Get("offset"), 0),
	}

	studies, err := s.metadataService.ListStudies(r.Context(), opts)
	if err != nil {
		s.writeError(w, errorStatus(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"studies": studies,
		"total":   len(studies),
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}

// handleGetStudy returns one catalog record by accession.
func (s *Server) handleGetStudy(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sra_id"]

	study, err := s.metadataService.GetStudy(r.Context(), id)
	if err != nil {
		s.writeError(w, errorStatus(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, study)
}

// handleGetStats reports catalog and index counts.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.searchService.Stats(r.Context())
	if err != nil {
		s.writeError(w, errorStatus(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// handleAsk answers a natural-language question with the structured study
// list produced by the ask engine.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, err := s.engine.Ask(r.Context(), req.Question)
	if err != nil {
		s.writeError(w, errorStatus(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, answer)
}

// intParam parses a decimal query parameter, falling back when absent or
// malformed.
func intParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
