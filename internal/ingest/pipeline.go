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

package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/provider"
	"github.com/alan-mat/medkb/internal/vector"
)

// Pipeline runs one ingestion pass: load documents, split them into
// chunks, embed per document and upsert the points into a collection.
// All collaborators are injected at construction.
type Pipeline struct {
	loader     *DirectoryLoader
	splitter   *Splitter
	embedder   provider.Embedder
	store      vector.Store
	collection string
}

func NewPipeline(
	loader *DirectoryLoader,
	splitter *Splitter,
	embedder provider.Embedder,
	store vector.Store,
	collection string,
) *Pipeline {
	return &Pipeline{
		loader:     loader,
		splitter:   splitter,
		embedder:   embedder,
		store:      store,
		collection: collection,
	}
}

// Stats summarises a completed ingestion run.
type Stats struct {
	Documents int
	Chunks    int
	Points    int
}

func (p *Pipeline) Run(ctx context.Context, dir string) (*Stats, error) {
	docs, err := p.loader.Load(ctx, dir)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		slog.Warn("no documents found", "dir", dir)
		return &Stats{}, nil
	}

	chunks := p.splitter.Split(docs)
	slog.Info("split documents", "documents", len(docs), "chunks", len(chunks))

	if err := p.ensureCollection(ctx); err != nil {
		return nil, err
	}

	requests := groupByParent(docs, chunks)

	embeddings, err := p.embedder.EmbedDocuments(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}

	points := vector.CreatePoints(embeddings)
	if err := p.store.Upsert(ctx, p.collection, points); err != nil {
		return nil, fmt.Errorf("failed to upsert points into collection '%s': %w", p.collection, err)
	}

	slog.Info("ingestion complete", "collection", p.collection, "points", len(points))

	return &Stats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Points:    len(points),
	}, nil
}

func (p *Pipeline) ensureCollection(ctx context.Context) error {
	exists, err := p.store.CollectionExists(ctx, p.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection '%s': %w", p.collection, err)
	}

	if exists {
		return nil
	}

	err = p.store.CreateCollection(ctx, vector.Collection{
		Name:       p.collection,
		Dimensions: p.embedder.Dimensions(),
		Distance:   vector.DistanceCosine,
	})
	if err != nil {
		return fmt.Errorf("failed to create collection '%s': %w", p.collection, err)
	}

	slog.Info("created collection", "name", p.collection, "dimensions", p.embedder.Dimensions())
	return nil
}

// groupByParent reassembles the flat chunk sequence into one embedding
// request per source document, keyed by the parent index each chunk
// carries. Documents that produced no chunks are left out.
func groupByParent(docs []*api.Document, chunks []*api.Chunk) []*api.EmbedDocumentRequest {
	grouped := make([][]*api.Chunk, len(docs))
	for _, chunk := range chunks {
		pi, ok := chunk.Metadata[api.MetaParentIndex].(int)
		if !ok || pi < 0 || pi >= len(docs) {
			continue
		}
		grouped[pi] = append(grouped[pi], chunk)
	}

	requests := make([]*api.EmbedDocumentRequest, 0, len(docs))
	for i, doc := range docs {
		if len(grouped[i]) == 0 {
			continue
		}

		title, _ := doc.Metadata[api.MetaFilename].(string)
		requests = append(requests, &api.EmbedDocumentRequest{
			Title:  title,
			Chunks: grouped[i],
		})
	}

	return requests
}
