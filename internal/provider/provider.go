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

package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/alan-mat/medkb/internal/api"
	medkb_cohere "github.com/alan-mat/medkb/internal/provider/cohere"
	medkb_gemini "github.com/alan-mat/medkb/internal/provider/gemini"
	medkb_jina "github.com/alan-mat/medkb/internal/provider/jina"
	medkb_mistral "github.com/alan-mat/medkb/internal/provider/mistral"
	medkb_ollama "github.com/alan-mat/medkb/internal/provider/ollama"
	medkb_openai "github.com/alan-mat/medkb/internal/provider/openai"
)

var (
	ErrInvalidCompleterType = errors.New("no completion provider found for given type")
	ErrInvalidEmbedderType  = errors.New("no embeddings provider found for given type")
	ErrInvalidRerankerType  = errors.New("no reranker provider found for given type")
	ErrInvalidDocParserType = errors.New("no document parser found for given type")

	// ErrEmbedderSelfTest marks an embedder that constructed but failed its
	// initialization probe. The factory never returns such a handle.
	ErrEmbedderSelfTest = errors.New("embeddings provider failed self-test")
)

// selfTestQuery is embedded once at construction time to verify the
// provider end to end before any document is processed.
const selfTestQuery = "What are the common symptoms of hypertension?"

type CompleterType int

const (
	CompleterTypeOpenAI CompleterType = iota
	CompleterTypeGemini
	CompleterTypeOllama
)

var completerTypeMap = map[string]CompleterType{
	"openai": CompleterTypeOpenAI,
	"gemini": CompleterTypeGemini,
	"ollama": CompleterTypeOllama,
}

type EmbedderType int

const (
	EmbedderTypeOllama EmbedderType = iota
	EmbedderTypeJina
	EmbedderTypeOpenAI
	EmbedderTypeGemini
)

var embedderTypeMap = map[string]EmbedderType{
	"ollama": EmbedderTypeOllama,
	"jina":   EmbedderTypeJina,
	"openai": EmbedderTypeOpenAI,
	"gemini": EmbedderTypeGemini,
}

type RerankerType int

const (
	RerankerTypeCohere RerankerType = iota
)

var rerankerTypeMap = map[string]RerankerType{
	"cohere": RerankerTypeCohere,
}

type DocParserType int

const (
	DocParserTypeMistral DocParserType = iota
)

var docParserTypeMap = map[string]DocParserType{
	"mistral": DocParserTypeMistral,
}

// Completer streams chat completions.
type Completer interface {
	Chat(ctx context.Context, req api.ChatRequest) (api.CompletionStream, error)
}

// Embedder maps text to fixed-length vectors. Implementations are
// stateless after construction and safe for concurrent use.
type Embedder interface {
	EmbedQuery(ctx context.Context, q string) ([]float32, error)
	EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error)
	Dimensions() uint
}

type Reranker interface {
	Rerank(ctx context.Context, req api.RerankRequest) (*api.RerankResponse, error)
}

// DocParser extracts page-by-page text from a base64-encoded document.
type DocParser interface {
	Parse(ctx context.Context, base64file string) (*api.DocumentContent, error)
}

func CompleterTypeFromName(name string) (CompleterType, error) {
	t, ok := completerTypeMap[name]
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidCompleterType, name)
	}
	return t, nil
}

func EmbedderTypeFromName(name string) (EmbedderType, error) {
	t, ok := embedderTypeMap[name]
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidEmbedderType, name)
	}
	return t, nil
}

func NewCompleter(t CompleterType) (Completer, error) {
	switch t {
	case CompleterTypeOpenAI:
		return medkb_openai.New(), nil
	case CompleterTypeGemini:
		return medkb_gemini.New()
	case CompleterTypeOllama:
		return medkb_ollama.New(), nil
	default:
		return nil, ErrInvalidCompleterType
	}
}

// NewEmbedder constructs an embeddings provider and runs its fail-fast
// self-test. On any failure the returned handle is nil; a degraded
// embedder is never handed to the caller.
func NewEmbedder(ctx context.Context, t EmbedderType) (Embedder, error) {
	var e Embedder

	switch t {
	case EmbedderTypeOllama:
		e = medkb_ollama.New()
	case EmbedderTypeJina:
		e = medkb_jina.New()
	case EmbedderTypeOpenAI:
		e = medkb_openai.New()
	case EmbedderTypeGemini:
		ge, err := medkb_gemini.New()
		if err != nil {
			return nil, err
		}
		e = ge
	default:
		return nil, ErrInvalidEmbedderType
	}

	if err := embedderSelfTest(ctx, e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedderSelfTest, err)
	}
	return e, nil
}

func NewReranker(t RerankerType) (Reranker, error) {
	switch t {
	case RerankerTypeCohere:
		return medkb_cohere.New(), nil
	default:
		return nil, ErrInvalidRerankerType
	}
}

func NewDocParser(t DocParserType) (DocParser, error) {
	switch t {
	case DocParserTypeMistral:
		return medkb_mistral.New(), nil
	default:
		return nil, ErrInvalidDocParserType
	}
}

func embedderSelfTest(ctx context.Context, e Embedder) error {
	vec, err := e.EmbedQuery(ctx, selfTestQuery)
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return errors.New("self-test returned an empty vector")
	}
	if uint(len(vec)) != e.Dimensions() {
		return fmt.Errorf("self-test vector has %d dimensions, provider declares %d",
			len(vec), e.Dimensions())
	}
	return nil
}
