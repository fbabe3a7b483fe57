package vector_test

import (
	"errors"
	"testing"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/vector"
)

func TestCreatePoints(t *testing.T) {
	docs := []*api.DocumentEmbedding{
		{
			Title: "anatomy.pdf",
			Chunks: []*api.Chunk{
				{Content: "The heart.", Metadata: map[string]any{api.MetaChunkIndex: 0, api.MetaTotalChunks: 2}},
				{Content: "The lungs.", Metadata: map[string]any{api.MetaChunkIndex: 1, api.MetaTotalChunks: 2}},
			},
			Values: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		},
		{
			Title: "cardiology.pdf",
			Chunks: []*api.Chunk{
				{Content: "Blood pressure.", Metadata: map[string]any{api.MetaChunkIndex: 0, api.MetaTotalChunks: 1}},
			},
			Values: [][]float32{{0.5, 0.6}},
		},
	}

	points := vector.CreatePoints(docs)

	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}

	seen := make(map[string]bool)
	for i, point := range points {
		if point.ID == "" {
			t.Errorf("point %d has empty id", i)
		}
		if seen[point.ID] {
			t.Errorf("point %d reuses id '%s'", i, point.ID)
		}
		seen[point.ID] = true

		if len(point.Vector) != 2 {
			t.Errorf("point %d has vector of length %d", i, len(point.Vector))
		}
	}

	if points[0].Payload["text"] != "The heart." {
		t.Errorf("unexpected text payload: '%v'", points[0].Payload["text"])
	}
	if points[0].Payload["title"] != "anatomy.pdf" {
		t.Errorf("unexpected title payload: '%v'", points[0].Payload["title"])
	}
	if points[0].Payload[api.MetaChunkIndex] != 0 {
		t.Errorf("chunk metadata missing from payload: %v", points[0].Payload)
	}
	if points[2].Payload["title"] != "cardiology.pdf" {
		t.Errorf("unexpected title payload: '%v'", points[2].Payload["title"])
	}
	if points[2].Vector[0] != 0.5 {
		t.Errorf("point vectors out of order: %v", points[2].Vector)
	}
}

func TestNewStoreInvalidType(t *testing.T) {
	_, err := vector.NewStore("chroma", "localhost", 6334)
	if !errors.Is(err, vector.ErrInvalidStoreType) {
		t.Errorf("expected ErrInvalidStoreType, got %v", err)
	}
}
