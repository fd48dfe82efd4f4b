// Package query implements the retrieval-augmented ask pipeline: Bleve
// retrieval over the study index feeds an OpenAI-compatible chat model
// that answers with a structured list of matching studies.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Puumanamana/RAG-SRA/internal/config"
	"github.com/Puumanamana/RAG-SRA/internal/errors"
	"github.com/Puumanamana/RAG-SRA/internal/search"
)

const opAsk errors.Op = "query.Ask"

// Study is one study the model selected from the retrieved context.
type Study struct {
	Bioproject  string   `json:"bioproject"`   // BioProject accession
	Title       string   `json:"title"`        // shortened study title
	Tissues     []string `json:"tissues"`      // tissue types, if applicable
	Diseases    []string `json:"diseases"`     // diseases studied, if applicable
	SampleCount int      `json:"sample_count"` // number of samples
	Explanation string   `json:"explanation"`  // why the study was retrieved
}

// String renders the study as a terminal-friendly block.
func (s Study) String() string {
	return fmt.Sprintf("> %-14s| N=%s\nTissue(s): %s\nDisease(s): %s\nTitle: %s\nReason: %s",
		s.Bioproject,
		humanize.Comma(int64(s.SampleCount)),
		strings.Join(s.Tissues, ", "),
		strings.Join(s.Diseases, ", "),
		s.Title,
		s.Explanation)
}

// StudyList is the JSON object the model is asked to produce.
type StudyList struct {
	Studies []Study `json:"studies"`
}

// String renders a hit count header followed by one block per study.
func (l StudyList) String() string {
	blocks := make([]string, len(l.Studies))
	for i, s := range l.Studies {
		blocks[i] = s.String()
	}
	return fmt.Sprintf("#Hits: %d\n", len(l.Studies)) + strings.Join(blocks, "\n")
}

// Answer is the result of a single question: the structured study list plus
// details about how it was produced.
type Answer struct {
	Question string `json:"question"`
	StudyList
	Retrieved int           `json:"retrieved"` // context studies passed to the model
	Model     string        `json:"model"`
	AskTime   time.Duration `json:"ask_time"`
}

// Engine answers natural-language questions about the study catalog.
// Retrieval runs against the Bleve index; the retrieved study texts become
// the context for a chat completion constrained to JSON output.
type Engine struct {
	index    *search.Index
	client   *openai.Client
	model    string
	topK     int
	minScore float64
	cache    *Cache
}

// NewEngine builds an Engine on top of an open study index. The chat client
// targets api.openai.com unless the configuration names another
// OpenAI-compatible endpoint.
func NewEngine(index *search.Index, cfg *config.Config) *Engine {
	clientCfg := openai.DefaultConfig(cfg.APIKey())
	if cfg.LLM.BaseURL != "" {
		clientCfg.BaseURL = cfg.LLM.BaseURL
	}

	topK := cfg.LLM.TopK
	if topK <= 0 {
		topK = 30
	}

	var cache *Cache
	if cfg.Search.UseCache {
		ttl := time.Duration(cfg.Search.CacheTTL) * time.Second
		if ttl <= 0 {
			ttl = time.Hour
		}
		cache = NewCache(100, ttl)
	}

	return &Engine{
		index:    index,
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.LLM.Model,
		topK:     topK,
		minScore: cfg.LLM.MinScore,
		cache:    cache,
	}
}

const askSystemPrompt = `You are a biomedical data curator answering questions about a catalog of SRA sequencing studies. Each context block describes one study: its aggregated metadata fields, one "field: value" pair per line.

Respond with a JSON object of the form {"studies": [...]} where each entry has:
  "bioproject": BioProject accession of the study
  "title": shortened title of the study
  "tissues": list of tissue types studied, if applicable
  "diseases": list of diseases studied, if applicable
  "sample_count": number of samples in the study
  "explanation": explanation of why this study was retrieved

Only include studies from the context that answer the query. If none do, return {"studies": []}.`

// Ask retrieves the studies most relevant to question and asks the chat
// model to select and summarize the ones that answer it. Answers are cached
// by question when caching is enabled.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.E(opAsk, errors.KindValidation, "empty question")
	}

	if e.cache != nil {
		if cached := e.cache.Get(askCacheKey(question)); cached != nil {
			if answer, ok := cached.(*Answer); ok {
				return answer, nil
			}
		}
	}

	start := time.Now()

	hits, err := e.Retrieve(question)
	if err != nil {
		return nil, errors.E(opAsk, errors.KindSearch, err)
	}

	answer := &Answer{
		Question:  question,
		Retrieved: len(hits),
		Model:     e.model,
	}

	// Nothing retrieved means nothing to ground an answer on.
	if len(hits) > 0 {
		list, err := e.complete(ctx, question, hits)
		if err != nil {
			return nil, err
		}
		answer.StudyList = list
	}
	if answer.Studies == nil {
		answer.Studies = []Study{}
	}
	answer.AskTime = time.Since(start)

	if e.cache != nil {
		e.cache.Set(askCacheKey(question), answer)
	}
	return answer, nil
}

// Retrieve returns the top-k studies for question, dropping hits that score
// below the configured fraction of the best hit.
func (e *Engine) Retrieve(question string) ([]search.Hit, error) {
	hits, err := e.index.Retrieve(question, e.topK)
	if err != nil {
		return nil, err
	}
	return applyCutoff(hits, e.minScore), nil
}

// applyCutoff keeps hits scoring at least fraction of the best hit. Bleve
// scores are not normalized across queries, so the cutoff is relative
// rather than absolute.
func applyCutoff(hits []search.Hit, fraction float64) []search.Hit {
	if fraction <= 0 || len(hits) == 0 {
		return hits
	}

	top := hits[0].Score
	for _, h := range hits[1:] {
		if h.Score > top {
			top = h.Score
		}
	}
	floor := top * fraction

	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= floor {
			kept = append(kept, h)
		}
	}
	return kept
}

// complete sends the retrieved context and question to the chat model and
// parses its JSON reply.
func (e *Engine) complete(ctx context.Context, question string, hits []search.Hit) (StudyList, error) {
	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: askSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(hits, question)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return StudyList{}, errors.E(opAsk, errors.KindLLM, err)
	}
	if len(resp.Choices) == 0 {
		return StudyList{}, errors.E(opAsk, errors.KindLLM, "model returned no choices")
	}

	var list StudyList
	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &list); err != nil {
		return StudyList{}, errors.E(opAsk, errors.KindLLM,
			fmt.Errorf("parsing model reply: %w", err))
	}
	return list, nil
}

// buildPrompt lays out the retrieved study texts between context delimiters
// and appends the query.
func buildPrompt(hits []search.Hit, question string) string {
	var b strings.Builder
	b.WriteString("Context information is below.\n")
	b.WriteString("---------------------\n")
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(h.Text)
	}
	b.WriteString("\n---------------------\n")
	b.WriteString("Given the context information and not prior knowledge, answer the query.\n")
	fmt.Fprintf(&b, "Query: %s\nAnswer: ", question)
	return b.String()
}

// stripCodeFence removes a surrounding markdown code fence. Some
// OpenAI-compatible servers wrap JSON replies in one even when a JSON
// response format was requested.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func askCacheKey(question string) string {
	return "ask:" + strings.ToLower(question)
}

// Close releases the engine's resources. The index is owned by the caller
// and stays open.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Clear()
	}
}
