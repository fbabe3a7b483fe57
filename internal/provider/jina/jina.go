package jina

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/http"
)

const (
	Endpoint = "https://api.jina.ai"

	// EmbedItemsMaxLength is the maximum number of inputs the embeddings
	// endpoint accepts in a single request.
	EmbedItemsMaxLength = 2048
)

type embeddingResponse struct {
	Model     string `json:"model"`
	UsageInfo struct {
		TotalTokens  int `json:"total_tokens"`
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type JinaAIProvider struct {
	client     http.Client
	vectorDims uint
}

func New() *JinaAIProvider {
	c := http.NewClient(
		Endpoint,
		http.WithMaxRetries(3),
		http.WithApiKey(os.Getenv("JINA_API_KEY")),
	)
	return &JinaAIProvider{
		client:     c,
		vectorDims: 1024,
	}
}

func (p JinaAIProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	resp, err := p.requestEmbedding(ctx, []string{q})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("failed to deserialize embeddings")
	}

	return resp.Data[0].Embedding, nil
}

func (p JinaAIProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	embeddings := make([]*api.DocumentEmbedding, 0, len(docs))

	for _, doc := range docs {
		batches := batchChunks(doc.Chunks, EmbedItemsMaxLength)
		responses := make([]*embeddingResponse, len(batches))

		var g errgroup.Group
		for bi, batch := range batches {
			g.Go(func() error {
				input := make([]string, 0, len(batch))
				for _, chunk := range batch {
					input = append(input, chunk.Content)
				}

				resp, err := p.requestEmbedding(ctx, input)
				if err != nil {
					return fmt.Errorf("failed to embed document '%s': %w", doc.Title, err)
				}
				responses[bi] = resp
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}

		vals := make([][]float32, 0, len(doc.Chunks))
		for _, resp := range responses {
			batchVals := make([][]float32, len(resp.Data))
			for _, e := range resp.Data {
				batchVals[e.Index] = e.Embedding
			}
			vals = append(vals, batchVals...)
		}

		if len(vals) != len(doc.Chunks) {
			return nil, fmt.Errorf("embedding count mismatch for document '%s': sent %d chunks, received %d vectors",
				doc.Title, len(doc.Chunks), len(vals))
		}

		embeddings = append(embeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: vals,
		})
	}

	return embeddings, nil
}

func (p JinaAIProvider) Dimensions() uint {
	return p.vectorDims
}

func (p JinaAIProvider) requestEmbedding(ctx context.Context, input []string) (*embeddingResponse, error) {
	requestData := map[string]any{
		"input":      input,
		"model":      "jina-embeddings-v3",
		"task":       "retrieval.passage",
		"dimensions": p.vectorDims,
	}

	resp, err := p.client.Request(ctx, http.MethodPost, "/v1/embeddings", requestData)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}

	var er embeddingResponse
	err = json.Unmarshal(jsonData, &er)
	if err != nil {
		return nil, err
	}

	return &er, nil
}

func batchChunks(chunks []*api.Chunk, size int) [][]*api.Chunk {
	batches := make([][]*api.Chunk, 0, len(chunks)/size+1)
	for len(chunks) > size {
		batches = append(batches, chunks[:size])
		chunks = chunks[size:]
	}
	if len(chunks) > 0 {
		batches = append(batches, chunks)
	}
	return batches
}
