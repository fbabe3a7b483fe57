package rag_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/rag"
	"github.com/alan-mat/medkb/internal/vector"
)

type fakeEmbedder struct {
	queries []string
	fail    bool
}

func (e *fakeEmbedder) EmbedQuery(_ context.Context, q string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("embedding service unavailable")
	}
	e.queries = append(e.queries, q)
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *fakeEmbedder) EmbedDocuments(_ context.Context, _ []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	return nil, nil
}

func (e *fakeEmbedder) Dimensions() uint {
	return 3
}

type fakeQueryStore struct {
	points []*vector.ScoredPoint
	calls  int
}

func (s *fakeQueryStore) CollectionExists(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (s *fakeQueryStore) CreateCollection(_ context.Context, _ vector.Collection) error {
	return nil
}

func (s *fakeQueryStore) Upsert(_ context.Context, _ string, _ []*vector.Point) error {
	return nil
}

func (s *fakeQueryStore) Query(_ context.Context, _ *vector.QueryParams) ([]*vector.ScoredPoint, error) {
	s.calls++
	return s.points, nil
}

func (s *fakeQueryStore) Close() error {
	return nil
}

type fakeReranker struct {
	requests []api.RerankRequest
	response *api.RerankResponse
}

func (r *fakeReranker) Rerank(_ context.Context, req api.RerankRequest) (*api.RerankResponse, error) {
	r.requests = append(r.requests, req)
	return r.response, nil
}

func TestRetrieve(t *testing.T) {
	store := &fakeQueryStore{
		points: []*vector.ScoredPoint{
			{ID: "p1", Score: 0.9, Payload: map[string]string{
				"text":         "Hypertension is high blood pressure.",
				"title":        "cardiology.pdf",
				api.MetaSource: "/data/cardiology.pdf",
			}},
			{ID: "p2", Score: 0.7, Payload: map[string]string{
				"text": "The heart pumps blood.",
			}},
			{ID: "p3", Score: 0.5, Payload: map[string]string{
				"title": "broken.pdf",
			}},
		},
	}
	embedder := &fakeEmbedder{}
	retriever := rag.NewRetriever(embedder, store, "medicalchat")

	docs, err := retriever.Retrieve(context.Background(), "what is hypertension?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(embedder.queries) != 1 || embedder.queries[0] != "what is hypertension?" {
		t.Errorf("expected query to be embedded once, got %v", embedder.queries)
	}
	if store.calls != 1 {
		t.Errorf("expected 1 store query, got %d", store.calls)
	}

	// the point without a text payload is dropped
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Content != "Hypertension is high blood pressure." {
		t.Errorf("unexpected first document: '%s'", docs[0].Content)
	}
	if docs[0].Title != "cardiology.pdf" {
		t.Errorf("unexpected title: '%s'", docs[0].Title)
	}
	if docs[0].Source != "/data/cardiology.pdf" {
		t.Errorf("unexpected source: '%s'", docs[0].Source)
	}
	if docs[0].Score != 0.9 {
		t.Errorf("unexpected score: %v", docs[0].Score)
	}
}

func TestRetrieveEmbedFailure(t *testing.T) {
	retriever := rag.NewRetriever(&fakeEmbedder{fail: true}, &fakeQueryStore{}, "medicalchat")

	_, err := retriever.Retrieve(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error when embedding fails")
	}
}

func TestRetrieveWithReranker(t *testing.T) {
	store := &fakeQueryStore{
		points: []*vector.ScoredPoint{
			{ID: "p1", Score: 0.6, Payload: map[string]string{"text": "first"}},
			{ID: "p2", Score: 0.5, Payload: map[string]string{"text": "second"}},
		},
	}
	reranker := &fakeReranker{
		response: &api.RerankResponse{
			Query: "q",
			Documents: []*api.ScoredDocument{
				{Content: "second", Score: 0.95},
			},
		},
	}
	retriever := rag.NewRetriever(&fakeEmbedder{}, store, "medicalchat",
		rag.WithReranker(reranker),
		rag.WithRetrievalLimit(2),
	)

	docs, err := retriever.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reranker.requests) != 1 {
		t.Fatalf("expected 1 rerank request, got %d", len(reranker.requests))
	}
	req := reranker.requests[0]
	if len(req.Documents) != 2 || req.Documents[0] != "first" || req.Documents[1] != "second" {
		t.Errorf("unexpected rerank documents: %v", req.Documents)
	}
	if req.Limit != 2 {
		t.Errorf("expected rerank limit 2, got %d", req.Limit)
	}

	if len(docs) != 1 || docs[0].Content != "second" {
		t.Errorf("expected reranked result to replace store order, got %v", docs)
	}
}

type fakeStream struct {
	parts []string
	pos   int
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos >= len(s.parts) {
		return "", io.EOF
	}
	part := s.parts[s.pos]
	s.pos++
	return part, nil
}

func (s *fakeStream) Close() error {
	return nil
}

type fakeCompleter struct {
	requests []api.ChatRequest
	stream   api.CompletionStream
}

func (c *fakeCompleter) Chat(_ context.Context, req api.ChatRequest) (api.CompletionStream, error) {
	c.requests = append(c.requests, req)
	return c.stream, nil
}

func TestGenerate(t *testing.T) {
	completer := &fakeCompleter{stream: &fakeStream{parts: []string{"An ", "answer."}}}
	generator := rag.NewGenerator(completer, rag.WithModelName("test-model"))

	history := []*api.ChatMessage{
		{Role: api.RoleUser, Content: "earlier question"},
		{Role: api.RoleAssistant, Content: "earlier answer"},
	}
	docs := []*api.ScoredDocument{
		{Content: "Hypertension is high blood pressure.", Score: 0.9},
		{Content: "Symptoms include headaches.", Score: 0.8},
	}

	stream, err := generator.Generate(context.Background(), "what is hypertension?", history, docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if len(completer.requests) != 1 {
		t.Fatalf("expected 1 chat request, got %d", len(completer.requests))
	}
	req := completer.requests[0]

	if req.Query != "what is hypertension?" {
		t.Errorf("unexpected query: '%s'", req.Query)
	}
	if req.ModelName != "test-model" {
		t.Errorf("unexpected model name: '%s'", req.ModelName)
	}
	if len(req.History) != 2 {
		t.Errorf("expected history to pass through, got %d messages", len(req.History))
	}

	// every retrieved document ends up in the system prompt
	for _, doc := range docs {
		if !strings.Contains(req.SystemPrompt, doc.Content) {
			t.Errorf("system prompt missing context '%s'", doc.Content)
		}
	}

	var output string
	for {
		part, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		output += part
	}
	if output != "An answer." {
		t.Errorf("unexpected stream output: '%s'", output)
	}
}

func TestGenerateEmptyContext(t *testing.T) {
	completer := &fakeCompleter{stream: &fakeStream{}}
	generator := rag.NewGenerator(completer)

	_, err := generator.Generate(context.Background(), "q", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(completer.requests) != 1 {
		t.Fatalf("expected 1 chat request, got %d", len(completer.requests))
	}
	if completer.requests[0].SystemPrompt == "" {
		t.Error("expected a system prompt even with no context")
	}
}
