package ingest_test

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/ingest"
)

func TestNewSplitterValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"zero size", 0, 0, true},
		{"negative size", -1, 0, true},
		{"negative overlap", 5, -1, true},
		{"overlap equals size", 5, 5, true},
		{"overlap one below size", 5, 4, false},
		{"defaults", 500, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.NewSplitter(tt.size, tt.overlap)
			if tt.wantErr {
				if !errors.Is(err, ingest.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput for size=%d overlap=%d, got %v", tt.size, tt.overlap, err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for size=%d overlap=%d: %v", tt.size, tt.overlap, err)
			}
		})
	}
}

func TestSplitSentenceBoundaries(t *testing.T) {
	s, err := ingest.NewSplitter(4, 1)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}

	docs := []*api.Document{{
		Content:  "A. B. C.",
		Metadata: map[string]any{api.MetaFilename: "abc.pdf"},
	}}

	chunks := s.Split(docs)

	want := []string{"A. ", " B. ", " C."}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.Content != want[i] {
			t.Errorf("chunk %d: expected '%s', got '%s'", i, want[i], chunk.Content)
		}
		if len(chunk.Content) > 4 {
			t.Errorf("chunk %d exceeds max size: %d chars", i, len(chunk.Content))
		}
	}
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	s, err := ingest.NewSplitter(12, 0)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}

	docs := []*api.Document{{
		Content:  "one\n\ntwo. three four five",
		Metadata: map[string]any{},
	}}

	chunks := s.Split(docs)
	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}

	// window holds both a paragraph break and a sentence end; the
	// paragraph break wins
	if chunks[0].Content != "one\n\n" {
		t.Errorf("expected first chunk 'one\\n\\n', got '%s'", chunks[0].Content)
	}
}

func TestSplitChunkLengthBound(t *testing.T) {
	text := "The heart pumps blood. The lungs exchange gas; the kidneys filter, " +
		"and the liver detoxifies.\nHypertension is persistent high blood pressure.\n\n" +
		"Common symptoms include headaches, dizziness and blurred vision."

	for _, size := range []int{5, 10, 37, 100} {
		s, err := ingest.NewSplitter(size, size/5)
		if err != nil {
			t.Fatalf("failed to create splitter for size %d: %v", size, err)
		}

		chunks := s.Split([]*api.Document{{Content: text, Metadata: map[string]any{}}})
		if len(chunks) == 0 {
			t.Errorf("size %d: expected at least one chunk", size)
		}

		for i, chunk := range chunks {
			if len(chunk.Content) > size {
				t.Errorf("size %d: chunk %d has %d chars", size, i, len(chunk.Content))
			}
		}
	}
}

func TestSplitNoSeparatorsTerminates(t *testing.T) {
	// no split boundary anywhere and overlap one below size, the
	// degenerate case for scan progress
	s, err := ingest.NewSplitter(4, 3)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}

	chunks := s.Split([]*api.Document{{Content: "aaaaaaaaaa", Metadata: map[string]any{}}})

	if len(chunks) != 7 {
		t.Errorf("expected 7 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk.Content) > 4 {
			t.Errorf("chunk %d exceeds max size: %d chars", i, len(chunk.Content))
		}
	}
}

func TestSplitMultiByteText(t *testing.T) {
	text := strings.Repeat("é", 10)

	s, err := ingest.NewSplitter(5, 0)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}

	chunks := s.Split([]*api.Document{{Content: text, Metadata: map[string]any{}}})
	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}

	var rebuilt string
	for i, chunk := range chunks {
		// the fallback cut must never land inside a rune
		if !utf8.ValidString(chunk.Content) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, chunk.Content)
		}
		if n := utf8.RuneCountInString(chunk.Content); n > 5 {
			t.Errorf("chunk %d has %d chars", i, n)
		}
		rebuilt += chunk.Content
	}

	if rebuilt != text {
		t.Errorf("chunks do not reassemble the input: %q", rebuilt)
	}
}

func TestSplitMultiByteTextWithOverlap(t *testing.T) {
	s, err := ingest.NewSplitter(5, 3)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}

	chunks := s.Split([]*api.Document{{Content: "高血圧は成人に多い病気です", Metadata: map[string]any{}}})
	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}

	for i, chunk := range chunks {
		if !utf8.ValidString(chunk.Content) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, chunk.Content)
		}
		if chunk.Content == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestSplitSingleCharacter(t *testing.T) {
	s, err := ingest.NewSplitter(500, 50)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}

	chunks := s.Split([]*api.Document{{Content: "x", Metadata: map[string]any{}}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "x" {
		t.Errorf("expected chunk content 'x', got '%s'", chunks[0].Content)
	}
}

func TestSplitMetadataAugmentation(t *testing.T) {
	s, err := ingest.NewSplitter(10, 2)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}

	parentMeta := map[string]any{
		api.MetaSource:       "/data/med.pdf",
		api.MetaFilename:     "med.pdf",
		api.MetaDocumentType: api.DocumentTypePDF,
		api.MetaPageCount:    3,
	}
	docs := []*api.Document{{
		Content:  "First sentence here. Second sentence here. Third one.",
		Metadata: parentMeta,
	}}

	chunks := s.Split(docs)
	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}

	for i, chunk := range chunks {
		// parent keys survive unchanged
		for k, v := range parentMeta {
			got, ok := chunk.Metadata[k]
			if !ok {
				t.Errorf("chunk %d missing parent metadata key '%s'", i, k)
				continue
			}
			if got != v {
				t.Errorf("chunk %d key '%s': expected '%v', got '%v'", i, k, v, got)
			}
		}

		if idx := chunk.Metadata[api.MetaChunkIndex]; idx != i {
			t.Errorf("chunk %d: expected chunk_index %d, got %v", i, i, idx)
		}
		if total := chunk.Metadata[api.MetaTotalChunks]; total != len(chunks) {
			t.Errorf("chunk %d: expected total_chunks %d, got %v", i, len(chunks), total)
		}
		if size := chunk.Metadata[api.MetaChunkSize]; size != utf8.RuneCountInString(chunk.Content) {
			t.Errorf("chunk %d: expected chunk_size %d, got %v", i, utf8.RuneCountInString(chunk.Content), size)
		}
		if pi := chunk.Metadata[api.MetaParentIndex]; pi != 0 {
			t.Errorf("chunk %d: expected parent_document_index 0, got %v", i, pi)
		}
	}

	// parent metadata must not pick up chunk keys
	if len(parentMeta) != 4 {
		t.Errorf("parent metadata mutated, now has %d keys", len(parentMeta))
	}
}

func TestSplitDeterministic(t *testing.T) {
	s, err := ingest.NewSplitter(20, 5)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}

	docs := []*api.Document{
		{Content: "Alpha beta gamma delta. Epsilon zeta eta theta.", Metadata: map[string]any{api.MetaFilename: "a.pdf"}},
		{Content: "Iota kappa lambda, mu nu xi; omicron pi.", Metadata: map[string]any{api.MetaFilename: "b.pdf"}},
	}

	first := s.Split(docs)
	second := s.Split(docs)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ between runs: %d vs %d", len(first), len(second))
	}

	for i := range first {
		if first[i].Content != second[i].Content {
			t.Errorf("chunk %d content differs: '%s' vs '%s'", i, first[i].Content, second[i].Content)
		}
		for k, v := range first[i].Metadata {
			if second[i].Metadata[k] != v {
				t.Errorf("chunk %d metadata key '%s' differs: '%v' vs '%v'", i, k, v, second[i].Metadata[k])
			}
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	s, err := ingest.NewSplitter(500, 50)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}

	if chunks := s.Split(nil); len(chunks) != 0 {
		t.Errorf("expected no chunks for nil input, got %d", len(chunks))
	}
	if chunks := s.Split([]*api.Document{}); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestSplitSkipsEmptyDocument(t *testing.T) {
	s, err := ingest.NewSplitter(500, 50)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}

	docs := []*api.Document{
		{Content: "", Metadata: map[string]any{api.MetaFilename: "empty.pdf"}},
		{Content: "Some actual content.", Metadata: map[string]any{api.MetaFilename: "full.pdf"}},
	}

	chunks := s.Split(docs)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	// the surviving chunk still points at its true parent position
	if pi := chunks[0].Metadata[api.MetaParentIndex]; pi != 1 {
		t.Errorf("expected parent_document_index 1, got %v", pi)
	}
}
