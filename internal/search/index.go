// Package search provides the Bleve full-text index over preprocessed
// study records. Identifier fields are indexed as keywords for exact
// filtering; the text body is analyzed for ranked retrieval.
package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// StudyDoc is the indexed document shape, one per retained study.
type StudyDoc struct {
	SRAID      string `json:"sra_id"`
	Bioproject string `json:"bioproject"`
	SRPID      string `json:"srp_id"`
	Species    string `json:"species"`
	Text       string `json:"text"`
}

// Hit is one scored retrieval result with its stored fields resolved.
type Hit struct {
	StudyDoc
	Score float64
}

// Index wraps the Bleve search index
type Index struct {
	index bleve.Index
	path  string
}

// Open opens an existing index or creates a new one at indexPath.
func Open(indexPath string) (*Index, error) {
	index, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(indexPath, createStudyIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	return &Index{
		index: index,
		path:  indexPath,
	}, nil
}

// createStudyIndexMapping builds the mapping for study documents
func createStudyIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "standard"

	docMapping := bleve.NewDocumentMapping()

	// Identifier fields: exact-match keywords
	docMapping.AddFieldMappingsAt("sra_id", createKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("bioproject", createKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("srp_id", createKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("species", createKeywordFieldMapping())

	// The rendered summary body carries the searchable content
	docMapping.AddFieldMappingsAt("text", createTextFieldMapping())

	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

func createKeywordFieldMapping() *mapping.FieldMapping {
	fieldMapping := bleve.NewTextFieldMapping()
	fieldMapping.Analyzer = "keyword"
	fieldMapping.Store = true
	fieldMapping.IncludeInAll = true
	return fieldMapping
}

func createTextFieldMapping() *mapping.FieldMapping {
	fieldMapping := bleve.NewTextFieldMapping()
	fieldMapping.Analyzer = "standard"
	fieldMapping.Store = true
	fieldMapping.IncludeInAll = true
	return fieldMapping
}

// IndexStudy indexes a single study document keyed by its accession.
func (b *Index) IndexStudy(doc StudyDoc) error {
	return b.index.Index(doc.SRAID, doc)
}

// IndexBatch indexes a batch of study documents.
func (b *Index) IndexBatch(docs []StudyDoc) error {
	batch := b.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.SRAID, doc); err != nil {
			return fmt.Errorf("batching %s: %w", doc.SRAID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search performs a full-text query string search, returning resolved hits
// ranked by score.
func (b *Index) Search(queryStr string, limit int) ([]Hit, error) {
	q := bleve.NewQueryStringQuery(queryStr)
	return b.run(q, limit, nil)
}

// SearchWithFilters ANDs a text query with exact keyword filters. An empty
// query string matches everything, so filters can be used alone.
func (b *Index) SearchWithFilters(queryStr string, filters map[string]string, limit int) ([]Hit, error) {
	var queries []query.Query

	if queryStr != "" {
		queries = append(queries, bleve.NewQueryStringQuery(queryStr))
	}

	// Identifier fields use the keyword analyzer, so a term query gives
	// exact matching
	for field, value := range filters {
		termQuery := bleve.NewTermQuery(value)
		termQuery.SetField(field)
		queries = append(queries, termQuery)
	}

	var finalQuery query.Query
	switch len(queries) {
	case 0:
		finalQuery = bleve.NewMatchAllQuery()
	case 1:
		finalQuery = queries[0]
	default:
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	return b.run(finalQuery, limit, nil)
}

// Retrieve runs a natural-language match query against the text body. It
// backs the retrieval stage of the ask command.
func (b *Index) Retrieve(question string, k int) ([]Hit, error) {
	matchQuery := bleve.NewMatchQuery(question)
	matchQuery.SetField("text")
	return b.run(matchQuery, k, nil)
}

func (b *Index) run(q query.Query, limit int, facets map[string]*bleve.FacetRequest) ([]Hit, error) {
	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}
	for name, facet := range facets {
		searchRequest.AddFacet(name, facet)
	}

	result, err := b.index.Search(searchRequest)
	if err != nil {
		return nil, err
	}
	return toHits(result), nil
}

func toHits(result *bleve.SearchResult) []Hit {
	hits := make([]Hit, 0, len(result.Hits))
	for _, match := range result.Hits {
		hit := Hit{Score: match.Score}
		hit.SRAID = fieldString(match.Fields, "sra_id")
		hit.Bioproject = fieldString(match.Fields, "bioproject")
		hit.SRPID = fieldString(match.Fields, "srp_id")
		hit.Species = fieldString(match.Fields, "species")
		hit.Text = fieldString(match.Fields, "text")
		if hit.SRAID == "" {
			hit.SRAID = match.ID
		}
		hits = append(hits, hit)
	}
	return hits
}

func fieldString(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// SpeciesFacet returns study counts per species keyword across documents
// matching queryStr (empty for all).
func (b *Index) SpeciesFacet(queryStr string, size int) (map[string]int, error) {
	var q query.Query
	if queryStr == "" {
		q = bleve.NewMatchAllQuery()
	} else {
		q = bleve.NewQueryStringQuery(queryStr)
	}

	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.Size = 0
	searchRequest.AddFacet("species", bleve.NewFacetRequest("species", size))

	result, err := b.index.Search(searchRequest)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	if facet, ok := result.Facets["species"]; ok {
		for _, term := range facet.Terms.Terms() {
			counts[term.Term] = term.Count
		}
	}
	return counts, nil
}

// Delete removes a study from the index.
func (b *Index) Delete(sraID string) error {
	return b.index.Delete(sraID)
}

// DocCount returns the number of indexed studies.
func (b *Index) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Path returns the filesystem path of the index.
func (b *Index) Path() string {
	return b.path
}

// Close releases the index.
func (b *Index) Close() error {
	return b.index.Close()
}
