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

package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/ingest"
	"github.com/alan-mat/medkb/internal/provider"
	"github.com/alan-mat/medkb/internal/rag"
	"github.com/alan-mat/medkb/internal/transport"
	"github.com/alan-mat/medkb/internal/vector"
	"github.com/hibiken/asynq"
)

// TaskHandlerConfig carries every collaborator the handler needs. All
// handles are constructed by the worker at startup and injected here;
// the handler itself holds no global state.
type TaskHandlerConfig struct {
	Transport transport.Transport
	Store     vector.Store
	Embedder  provider.Embedder
	Completer provider.Completer

	// Optional, enables the rerank pass on chat retrieval.
	Reranker provider.Reranker

	Loader   *ingest.DirectoryLoader
	Splitter *ingest.Splitter

	// Collection queried by chat tasks and used by ingest tasks that
	// name no collection of their own.
	Collection string
}

type TaskHandler struct {
	transport  transport.Transport
	store      vector.Store
	embedder   provider.Embedder
	loader     *ingest.DirectoryLoader
	splitter   *ingest.Splitter
	collection string

	retriever *rag.Retriever
	generator *rag.Generator
}

func NewTaskHandler(cfg TaskHandlerConfig) *TaskHandler {
	retrieverOpts := make([]rag.RetrieverOption, 0, 1)
	if cfg.Reranker != nil {
		retrieverOpts = append(retrieverOpts, rag.WithReranker(cfg.Reranker))
	}

	return &TaskHandler{
		transport:  cfg.Transport,
		store:      cfg.Store,
		embedder:   cfg.Embedder,
		loader:     cfg.Loader,
		splitter:   cfg.Splitter,
		collection: cfg.Collection,
		retriever:  rag.NewRetriever(cfg.Embedder, cfg.Store, cfg.Collection, retrieverOpts...),
		generator:  rag.NewGenerator(cfg.Completer),
	}
}

func (h *TaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	switch t.Type() {
	case TypeIngest:
		return h.processIngest(ctx, t)
	case TypeChat:
		return h.processChat(ctx, t)
	default:
		return fmt.Errorf("unrecognized task type '%s' (%w)", t.Type(), asynq.SkipRetry)
	}
}

func (h *TaskHandler) processIngest(ctx context.Context, t *asynq.Task) error {
	var p ingestTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to deserialize ingest payload: %v (%w)", err, asynq.SkipRetry)
	}

	id := t.ResultWriter().TaskID()
	slog.Info("received ingest task", "id", id, "user", p.User, "dir", p.Dir, "collection", p.Collection)

	collection := p.Collection
	if collection == "" {
		collection = h.collection
	}

	trace := h.startTrace(ctx, id, p.Dir, p.User)

	pipeline := ingest.NewPipeline(h.loader, h.splitter, h.embedder, h.store, collection)
	stats, err := pipeline.Run(ctx, p.Dir)
	if err != nil {
		h.failTrace(ctx, trace)

		// bad directory input never resolves on retry
		if errors.Is(err, ingest.ErrNotFound) || errors.Is(err, ingest.ErrInvalidInput) {
			return fmt.Errorf("ingestion failed: %v (%w)", err, asynq.SkipRetry)
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	slog.Info("ingest task finished", "id", id,
		"documents", stats.Documents, "chunks", stats.Chunks, "points", stats.Points)

	h.completeTrace(ctx, trace)
	return nil
}

func (h *TaskHandler) processChat(ctx context.Context, t *asynq.Task) error {
	var p chatTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to deserialize chat payload: %v (%w)", err, asynq.SkipRetry)
	}

	id := t.ResultWriter().TaskID()
	slog.Info("received chat task", "id", id, "user", p.User, "query", p.Query)

	ms, err := h.transport.GetMessageStream(id)
	if err != nil {
		slog.Error("failed to initialize message stream", "err", err)
		return fmt.Errorf("failed to initialize message stream: %v (%w)", err, asynq.SkipRetry)
	}

	trace := h.startTrace(ctx, id, p.Query, p.User)

	docs, err := h.retriever.Retrieve(ctx, p.Query)
	if err != nil {
		return h.failChat(ctx, ms, trace, fmt.Errorf("retrieval failed: %w", err))
	}

	for _, doc := range docs {
		err = ms.Send(ctx, transport.MessageStreamPayload{
			Type:   transport.MessageTypeDocument,
			Status: transport.StatusOK,
			Document: transport.Document{
				Title:   doc.Title,
				Content: doc.Content,
				Source:  doc.Source,
			},
		})
		if err != nil {
			slog.Debug("failed sending document to message stream", "id", id)
		}
	}

	stream, err := h.generator.Generate(ctx, p.Query, api.ParseChatHistory(p.History), docs)
	if err != nil {
		return h.failChat(ctx, ms, trace, fmt.Errorf("generation failed: %w", err))
	}
	defer stream.Close()

	if _, err := transport.ProcessCompletionStream(ctx, ms, stream); err != nil {
		h.failTrace(ctx, trace)
		return fmt.Errorf("failed to process completion stream: %w", err)
	}

	err = ms.Send(ctx, transport.MessageStreamPayload{
		Content: "task finished",
		Status:  transport.StatusDone,
	})
	if err != nil {
		slog.Warn("failed to write DONE message to stream", "id", id)
	}

	h.completeTrace(ctx, trace)
	return nil
}

func (h *TaskHandler) failChat(ctx context.Context, ms transport.MessageStream, trace *transport.RequestTrace, err error) error {
	sendErr := ms.Send(ctx, transport.MessageStreamPayload{
		Content: "something went wrong",
		Status:  transport.StatusErr,
	})
	if sendErr != nil {
		slog.Warn("failed to write ERR message to stream", "id", trace.ID)
	}

	h.failTrace(ctx, trace)
	return err
}

func (h *TaskHandler) startTrace(ctx context.Context, id, query, user string) *transport.RequestTrace {
	trace := &transport.RequestTrace{
		ID:          id,
		Status:      transport.TraceStatusRunning,
		StartedAt:   time.Now().UnixNano(),
		CompletedAt: 0,
		Query:       query,
		User:        user,
	}
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", id, "err", err)
	}
	return trace
}

func (h *TaskHandler) completeTrace(ctx context.Context, trace *transport.RequestTrace) {
	trace.CompletedAt = time.Now().UnixNano()
	trace.Status = transport.TraceStatusCompleted
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", trace.ID, "err", err)
	}
}

func (h *TaskHandler) failTrace(ctx context.Context, trace *transport.RequestTrace) {
	trace.CompletedAt = time.Now().UnixNano()
	trace.Status = transport.TraceStatusFailed
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", trace.ID, "err", err)
	}
}
