// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package ollama talks to a local ollama instance. It is the offline
// provider: chat completions and MiniLM embeddings without any hosted API.
package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/http"
)

const (
	Endpoint = "http://localhost:11434"

	defaultChatModel = "gemma3:4b"

	// all-minilm is the ollama build of sentence-transformers MiniLM-L6,
	// 384 dimensions with normalized output.
	defaultEmbedModel = "all-minilm"
	embedDims         = 384
)

type OllamaProvider struct {
	client     http.Client
	chatModel  string
	embedModel string
	vectorDims uint
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatStreamResponse struct {
	Model     string            `json:"model"`
	CreatedAt string            `json:"created_at"`
	Message   ollamaChatMessage `json:"message"`
	Done      bool              `json:"done"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

func New() *OllamaProvider {
	c := http.NewClient(
		Endpoint,
		http.WithMaxRetries(3),
	)
	return &OllamaProvider{
		client:     c,
		chatModel:  defaultChatModel,
		embedModel: defaultEmbedModel,
		vectorDims: embedDims,
	}
}

func (p OllamaProvider) Chat(ctx context.Context, req api.ChatRequest) (api.CompletionStream, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("completion request failed: missing parameter 'query' in request")
	}

	model := p.chatModel
	if req.ModelName != "" {
		model = req.ModelName
	}

	messages := make([]ollamaChatMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, ollamaChatMessage{
			Role:    "system",
			Content: req.SystemPrompt,
		})
	}

	for _, cm := range req.History {
		messages = append(messages, ollamaChatMessage{
			Role:    cm.Role.String(),
			Content: cm.Content,
		})
	}

	messages = append(messages, ollamaChatMessage{
		Role:    "user",
		Content: req.Query,
	})

	requestData := map[string]any{
		"model":    model,
		"messages": messages,
	}

	respBody, err := p.client.RequestStream(ctx, http.MethodPost, "/api/chat", requestData)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	return NewOllamaCompletionStream(respBody), nil
}

func (p OllamaProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	resp, err := p.requestEmbedding(ctx, []string{q})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embedding request returned no vectors")
	}

	return resp.Embeddings[0], nil
}

func (p OllamaProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	embeddings := make([]*api.DocumentEmbedding, 0, len(docs))

	for _, doc := range docs {
		input := make([]string, 0, len(doc.Chunks))
		for _, chunk := range doc.Chunks {
			input = append(input, chunk.Content)
		}

		resp, err := p.requestEmbedding(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to embed document '%s': %w", doc.Title, err)
		}

		if len(resp.Embeddings) != len(doc.Chunks) {
			return nil, fmt.Errorf("embedding count mismatch for document '%s': sent %d chunks, received %d vectors",
				doc.Title, len(doc.Chunks), len(resp.Embeddings))
		}

		embeddings = append(embeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: resp.Embeddings,
		})
	}

	return embeddings, nil
}

func (p OllamaProvider) Dimensions() uint {
	return p.vectorDims
}

func (p OllamaProvider) requestEmbedding(ctx context.Context, input []string) (*ollamaEmbedResponse, error) {
	requestData := map[string]any{
		"model": p.embedModel,
		"input": input,
	}

	resp, err := p.client.Request(ctx, http.MethodPost, "/api/embed", requestData)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}

	var embedResponse ollamaEmbedResponse
	err = json.Unmarshal(jsonData, &embedResponse)
	if err != nil {
		return nil, err
	}

	return &embedResponse, nil
}

type OllamaCompletionStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

func NewOllamaCompletionStream(body io.ReadCloser) *OllamaCompletionStream {
	return &OllamaCompletionStream{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

func (s OllamaCompletionStream) Recv() (string, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		return "", err
	}

	var response ollamaChatStreamResponse
	err = json.Unmarshal(line, &response)
	if err != nil {
		return "", fmt.Errorf("failed to deserialize chat stream response: %w", err)
	}

	if response.Done {
		return "", io.EOF
	}

	return response.Message.Content, nil
}

func (s OllamaCompletionStream) Close() error {
	return s.body.Close()
}
