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

// Package worker assembles the task-processing process: providers,
// vector store, transport and the asynq server.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alan-mat/medkb/internal/extract"
	"github.com/alan-mat/medkb/internal/ingest"
	"github.com/alan-mat/medkb/internal/provider"
	"github.com/alan-mat/medkb/internal/tasks"
	"github.com/alan-mat/medkb/internal/transport"
	"github.com/alan-mat/medkb/internal/vector"
	"github.com/hibiken/asynq"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QdrantHost string
	QdrantPort int

	Concurrency int
	Collection  string

	ChunkSize    int
	ChunkOverlap int

	Embedder  string
	Completer string

	// UseReranker enables the cohere rerank pass on chat retrieval.
	UseReranker bool

	// UseOCR extracts documents through the remote OCR parser instead
	// of the local PDF reader.
	UseOCR bool
}

type Worker struct {
	cfg Config

	rdb         *redis.Client
	asynqServer *asynq.Server
	vectorStore vector.Store
}

func New(cfg Config) *Worker {
	return &Worker{cfg: cfg}
}

// Start initializes every collaborator and serves tasks until the
// process is stopped. Provider initialization failures, including a
// failed embedder self-test, abort startup before any task runs.
func (w *Worker) Start(ctx context.Context) error {
	w.rdb = redis.NewClient(&redis.Options{
		Addr:     w.cfg.RedisAddr,
		Password: w.cfg.RedisPassword,
		DB:       w.cfg.RedisDB,
	})
	defer w.rdb.Close()

	embedderType, err := provider.EmbedderTypeFromName(w.cfg.Embedder)
	if err != nil {
		return err
	}
	embedder, err := provider.NewEmbedder(ctx, embedderType)
	if err != nil {
		return fmt.Errorf("failed to initialize embeddings provider: %w", err)
	}
	slog.Info("embeddings provider ready", "name", w.cfg.Embedder, "dimensions", embedder.Dimensions())

	completerType, err := provider.CompleterTypeFromName(w.cfg.Completer)
	if err != nil {
		return err
	}
	completer, err := provider.NewCompleter(completerType)
	if err != nil {
		return fmt.Errorf("failed to initialize completion provider: %w", err)
	}

	var reranker provider.Reranker
	if w.cfg.UseReranker {
		reranker, err = provider.NewReranker(provider.RerankerTypeCohere)
		if err != nil {
			return fmt.Errorf("failed to initialize reranker: %w", err)
		}
	}

	var extractor extract.Extractor
	if w.cfg.UseOCR {
		parser, err := provider.NewDocParser(provider.DocParserTypeMistral)
		if err != nil {
			return fmt.Errorf("failed to initialize document parser: %w", err)
		}
		extractor = extract.NewOCRExtractor(parser)
	} else {
		extractor = extract.NewPDFExtractor()
	}

	splitter, err := ingest.NewSplitter(w.cfg.ChunkSize, w.cfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("invalid chunking configuration: %w", err)
	}

	vs, err := vector.NewQdrantStore(w.cfg.QdrantHost, w.cfg.QdrantPort)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	w.vectorStore = vs
	defer w.vectorStore.Close()

	w.asynqServer = asynq.NewServerFromRedisClient(
		w.rdb,
		asynq.Config{
			Concurrency: w.cfg.Concurrency,
		},
	)

	handler := tasks.NewTaskHandler(tasks.TaskHandlerConfig{
		Transport:  transport.NewRedisTransport(w.rdb),
		Store:      w.vectorStore,
		Embedder:   embedder,
		Completer:  completer,
		Reranker:   reranker,
		Loader:     ingest.NewDirectoryLoader(extractor),
		Splitter:   splitter,
		Collection: w.cfg.Collection,
	})

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeIngest, handler)
	mux.Handle(tasks.TypeChat, handler)

	slog.Info("worker starting", "concurrency", w.cfg.Concurrency, "collection", w.cfg.Collection)

	if err := w.asynqServer.Run(mux); err != nil {
		return err
	}
	return nil
}
