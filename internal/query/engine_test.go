package query

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Puumanamana/RAG-SRA/internal/config"
	"github.com/Puumanamana/RAG-SRA/internal/errors"
	"github.com/Puumanamana/RAG-SRA/internal/search"
	"github.com/Puumanamana/RAG-SRA/internal/testutil"
)

func newAskIndex(t *testing.T) *search.Index {
	t.Helper()
	index, err := search.Open(filepath.Join(t.TempDir(), "ask.bleve"))
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	t.Cleanup(func() { index.Close() })

	testutil.SeedIndex(t, index)
	return index
}

// fakeOpenAI serves canned chat completions and records what the engine sent.
type fakeOpenAI struct {
	srv     *httptest.Server
	reply   string
	mu      sync.Mutex
	calls   int
	lastReq openai.ChatCompletionRequest
}

func newFakeOpenAI(t *testing.T, reply string) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{reply: reply}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		f.mu.Lock()
		f.calls++
		if err := json.NewDecoder(r.Body).Decode(&f.lastReq); err != nil {
			t.Errorf("decoding completion request: %v", err)
		}
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: f.reply,
				},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeOpenAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeOpenAI) request() openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

func newAskEngine(t *testing.T, index *search.Index, fake *fakeOpenAI) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.LLM.BaseURL = fake.srv.URL + "/v1"
	engine := NewEngine(index, cfg)
	t.Cleanup(engine.Close)
	return engine
}

func TestAskReturnsStructuredStudies(t *testing.T) {
	reply := `{"studies": [{"bioproject": "PRJNA1", "title": "Lupus skin biopsies", "tissues": ["skin"], "diseases": ["lupus"], "sample_count": 12, "explanation": "Skin samples from lupus patients."}]}`
	fake := newFakeOpenAI(t, reply)
	engine := newAskEngine(t, newAskIndex(t), fake)

	question := "Which lupus studies include skin samples?"
	answer, err := engine.Ask(context.Background(), question)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if answer.Question != question {
		t.Errorf("Question = %q, want %q", answer.Question, question)
	}
	if answer.Retrieved != 1 {
		t.Errorf("Retrieved = %d, want 1", answer.Retrieved)
	}
	if answer.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", answer.Model)
	}
	if len(answer.Studies) != 1 {
		t.Fatalf("expected one study, got %d", len(answer.Studies))
	}

	study := answer.Studies[0]
	if study.Bioproject != "PRJNA1" {
		t.Errorf("Bioproject = %q, want PRJNA1", study.Bioproject)
	}
	if study.SampleCount != 12 {
		t.Errorf("SampleCount = %d, want 12", study.SampleCount)
	}
	if len(study.Tissues) != 1 || study.Tissues[0] != "skin" {
		t.Errorf("Tissues = %v, want [skin]", study.Tissues)
	}

	if fake.callCount() != 1 {
		t.Errorf("model called %d times, want 1", fake.callCount())
	}
}

func TestAskPromptCarriesRetrievedContext(t *testing.T) {
	fake := newFakeOpenAI(t, `{"studies": []}`)
	engine := newAskEngine(t, newAskIndex(t), fake)

	question := "Which lupus studies include skin samples?"
	if _, err := engine.Ask(context.Background(), question); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	req := fake.request()
	if len(req.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("first message role = %q, want system", req.Messages[0].Role)
	}

	prompt := req.Messages[1].Content
	if !strings.Contains(prompt, "Context information is below.") {
		t.Error("prompt missing context header")
	}
	if !strings.Contains(prompt, "Lupus skin biopsies") {
		t.Error("prompt missing retrieved study text")
	}
	if !strings.Contains(prompt, "Query: "+question) {
		t.Error("prompt missing the question")
	}
	if strings.Contains(prompt, "Mouse liver development") {
		t.Error("prompt contains study that should not have been retrieved")
	}

	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Error("request did not constrain the reply to JSON")
	}
}

func TestAskCachesAnswers(t *testing.T) {
	fake := newFakeOpenAI(t, `{"studies": []}`)
	engine := newAskEngine(t, newAskIndex(t), fake)

	first, err := engine.Ask(context.Background(), "lupus skin")
	if err != nil {
		t.Fatalf("first Ask failed: %v", err)
	}
	second, err := engine.Ask(context.Background(), "lupus skin")
	if err != nil {
		t.Fatalf("second Ask failed: %v", err)
	}

	if fake.callCount() != 1 {
		t.Errorf("model called %d times, want 1", fake.callCount())
	}
	if first != second {
		t.Error("expected the cached answer on the second ask")
	}
}

func TestAskWithoutHitsSkipsModel(t *testing.T) {
	fake := newFakeOpenAI(t, `{"studies": []}`)
	engine := newAskEngine(t, newAskIndex(t), fake)

	answer, err := engine.Ask(context.Background(), "zebrafish cardiomyopathy")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer.Retrieved != 0 {
		t.Errorf("Retrieved = %d, want 0", answer.Retrieved)
	}
	if answer.Studies == nil || len(answer.Studies) != 0 {
		t.Errorf("Studies = %v, want empty", answer.Studies)
	}
	if fake.callCount() != 0 {
		t.Errorf("model called %d times, want 0", fake.callCount())
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	fake := newFakeOpenAI(t, `{"studies": []}`)
	engine := newAskEngine(t, newAskIndex(t), fake)

	_, err := engine.Ask(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected an error for an empty question")
	}
	if !errors.IsKind(err, errors.KindValidation) {
		t.Errorf("error kind = %v, want validation", err)
	}
}

func TestAskMalformedModelReply(t *testing.T) {
	fake := newFakeOpenAI(t, "the model ignored the format")
	engine := newAskEngine(t, newAskIndex(t), fake)

	_, err := engine.Ask(context.Background(), "lupus skin")
	if err == nil {
		t.Fatal("expected an error for a non-JSON reply")
	}
	if !errors.IsKind(err, errors.KindLLM) {
		t.Errorf("error kind = %v, want llm", err)
	}
}

func TestApplyCutoff(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float64
		fraction float64
		want     int
	}{
		{"no cutoff keeps all", []float64{5, 4, 1.9}, 0, 3},
		{"fraction drops the tail", []float64{5, 4, 1.9}, 0.4, 2},
		{"only the top survives", []float64{5, 4, 1.9}, 1.0, 1},
		{"unsorted input", []float64{1.9, 5, 4}, 0.4, 2},
		{"no hits", nil, 0.4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]search.Hit, len(tt.scores))
			for i, s := range tt.scores {
				hits[i].Score = s
			}
			if got := len(applyCutoff(hits, tt.fraction)); got != tt.want {
				t.Errorf("kept %d hits, want %d", got, tt.want)
			}
		})
	}
}

func TestStudyString(t *testing.T) {
	s := Study{
		Bioproject:  "PRJNA720704",
		Title:       "Lupus skin atlas",
		Tissues:     []string{"skin", "blood"},
		Diseases:    []string{"lupus"},
		SampleCount: 1234,
		Explanation: "Profiles lesional skin.",
	}

	want := "> PRJNA720704   | N=1,234\n" +
		"Tissue(s): skin, blood\n" +
		"Disease(s): lupus\n" +
		"Title: Lupus skin atlas\n" +
		"Reason: Profiles lesional skin."
	if got := s.String(); got != want {
		t.Errorf("Study rendering mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestStudyListString(t *testing.T) {
	empty := StudyList{}
	if got := empty.String(); got != "#Hits: 0\n" {
		t.Errorf("empty list = %q, want %q", got, "#Hits: 0\n")
	}

	list := StudyList{Studies: []Study{
		{Bioproject: "PRJNA1", Title: "A", SampleCount: 2},
		{Bioproject: "PRJNA2", Title: "B", SampleCount: 3},
	}}
	got := list.String()
	if !strings.HasPrefix(got, "#Hits: 2\n") {
		t.Errorf("list rendering missing hit count header: %q", got)
	}
	want := "#Hits: 2\n" + list.Studies[0].String() + "\n" + list.Studies[1].String()
	if got != want {
		t.Errorf("list rendering mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{}\n```", "{}"},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
