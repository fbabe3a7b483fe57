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

// Package rag answers queries against an ingested collection: retrieve
// similar chunks, optionally rerank them, then generate a grounded
// completion.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/provider"
	"github.com/alan-mat/medkb/internal/vector"
)

// DefaultRetrievalLimit bounds how many chunks a query pulls from the
// store when no explicit limit is set.
const DefaultRetrievalLimit = 3

type Retriever struct {
	embedder   provider.Embedder
	store      vector.Store
	collection string
	limit      uint
	reranker   provider.Reranker
}

type RetrieverOption func(*Retriever)

// WithReranker enables a rerank pass over the retrieved chunks. Without
// it the store's similarity order is final.
func WithReranker(r provider.Reranker) RetrieverOption {
	return func(rt *Retriever) {
		rt.reranker = r
	}
}

func WithRetrievalLimit(limit uint) RetrieverOption {
	return func(rt *Retriever) {
		rt.limit = limit
	}
}

func NewRetriever(embedder provider.Embedder, store vector.Store, collection string, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
		limit:      DefaultRetrievalLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the chunks most similar to query, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]*api.ScoredDocument, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query '%s': %w", query, err)
	}

	queryParams := vector.NewQueryParams(
		r.collection,
		vec,
		vector.WithPayload(true),
		vector.WithLimit(r.limit),
	)

	points, err := r.store.Query(ctx, queryParams)
	if err != nil {
		return nil, fmt.Errorf("failed to get results for query '%s': %w", query, err)
	}

	docs := make([]*api.ScoredDocument, 0, len(points))
	for _, point := range points {
		text, ok := point.Payload["text"]
		if !ok {
			slog.Warn("malformed retrieved context point: missing 'text' field in payload", "id", point.ID)
			continue
		}
		docs = append(docs, &api.ScoredDocument{
			Content: text,
			Score:   float64(point.Score),
			Title:   point.Payload["title"],
			Source:  point.Payload[api.MetaSource],
		})
	}

	if r.reranker == nil || len(docs) == 0 {
		return docs, nil
	}

	return r.rerank(ctx, query, docs)
}

func (r *Retriever) rerank(ctx context.Context, query string, docs []*api.ScoredDocument) ([]*api.ScoredDocument, error) {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Content)
	}

	resp, err := r.reranker.Rerank(ctx, api.RerankRequest{
		Query:     query,
		Documents: texts,
		Limit:     int(r.limit),
	})
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}

	return resp.Documents, nil
}
