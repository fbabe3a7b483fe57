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
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/alan-mat/medkb/internal/api"
)

// boundaries lists candidate split points in descending priority:
// paragraph break, line break, sentence end, clause end, word break.
// When none is present in a window the splitter cuts at the raw
// character limit, which guarantees termination on any input.
var boundaries = []string{"\n\n", "\n", ". ", "? ", "! ", "; ", ", ", " "}

// Splitter cuts document content into chunks of at most maxChunkSize
// characters, each overlapping the previous one by up to chunkOverlap
// characters.
type Splitter struct {
	maxChunkSize int
	chunkOverlap int
}

func NewSplitter(maxChunkSize, chunkOverlap int) (*Splitter, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: max chunk size must be positive, got %d", ErrInvalidInput, maxChunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidInput, chunkOverlap)
	}
	if chunkOverlap >= maxChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be smaller than max chunk size (%d)",
			ErrInvalidInput, chunkOverlap, maxChunkSize)
	}
	return &Splitter{
		maxChunkSize: maxChunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// Split chunks every document in order. Each chunk carries a copy of its
// parent's metadata plus its own positional keys. A document with empty
// content contributes no chunks; the rest of the batch is unaffected.
func (s *Splitter) Split(docs []*api.Document) []*api.Chunk {
	chunks := make([]*api.Chunk, 0, len(docs))

	for di, doc := range docs {
		if doc.Content == "" {
			slog.Warn("skipping document with empty content", "index", di)
			continue
		}

		parts := s.splitText(doc.Content)
		for ci, part := range parts {
			md := doc.CloneMetadata()
			md[api.MetaChunkIndex] = ci
			md[api.MetaTotalChunks] = len(parts)
			md[api.MetaChunkSize] = utf8.RuneCountInString(part)
			md[api.MetaParentIndex] = di

			chunks = append(chunks, &api.Chunk{
				Content:  part,
				Metadata: md,
			})
		}
	}

	return chunks
}

func (s *Splitter) splitText(text string) []string {
	parts := make([]string, 0, len(text)/s.maxChunkSize+1)

	start := 0
	for start < len(text) {
		end := start + s.maxChunkSize
		if end >= len(text) {
			parts = append(parts, text[start:])
			break
		}

		// The window must not end mid-rune, or the fallback cut would
		// produce invalid UTF-8.
		end = runeFloor(text, end)
		if end <= start {
			_, n := utf8.DecodeRuneInString(text[start:])
			end = start + n
		}

		cut := findCut(text[start:end])
		parts = append(parts, text[start:start+cut])

		// Each chunk must begin strictly after the previous one, so a
		// large overlap can never stall the scan. The minimum step is
		// one full rune.
		next := runeFloor(text, start+cut-s.chunkOverlap)
		if next <= start {
			_, n := utf8.DecodeRuneInString(text[start:])
			next = start + n
		}
		start = next
	}

	return parts
}

// runeFloor moves i back to the start of the rune it points into.
func runeFloor(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// findCut returns the length of the chunk to take from window, cutting
// after the last occurrence of the highest-priority boundary present.
// The separator stays at the end of the chunk. With no boundary in the
// window the whole window is taken.
func findCut(window string) int {
	for _, sep := range boundaries {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			return idx + len(sep)
		}
	}
	return len(window)
}
