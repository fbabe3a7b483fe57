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

// Package ingest turns a directory of source documents into bounded,
// overlapping chunks ready for embedding and vector storage.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/extract"
)

const documentExtension = ".pdf"

// pageSeparator joins the non-empty pages of one file into a single
// document. It matches the highest-priority split boundary, so page
// breaks are the first candidates when the splitter cuts chunks.
const pageSeparator = "\n\n"

// DirectoryLoader produces one Document per readable file in a directory.
// Enumeration is non-recursive and follows os.ReadDir order, so output
// order is deterministic for a given directory state.
type DirectoryLoader struct {
	extractor extract.Extractor
}

func NewDirectoryLoader(extractor extract.Extractor) *DirectoryLoader {
	return &DirectoryLoader{extractor: extractor}
}

// Load reads every recognized document in dir. A file that cannot be
// read, or yields no text, is logged and skipped; it never fails the
// batch. A directory with zero matching files returns an empty slice.
func (l *DirectoryLoader) Load(ctx context.Context, dir string) ([]*api.Document, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: directory '%s' does not exist", ErrNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat '%s': %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: path '%s' is not a directory", ErrInvalidInput, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory '%s': %w", dir, err)
	}

	docs := make([]*api.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), documentExtension) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		content, err := l.extractor.Extract(ctx, path)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}

		text := joinPages(content.Pages)
		if text == "" {
			slog.Warn("skipping file with no extractable text", "path", path)
			continue
		}

		docs = append(docs, &api.Document{
			Content: text,
			Metadata: map[string]any{
				api.MetaSource:       path,
				api.MetaFilename:     entry.Name(),
				api.MetaDocumentType: api.DocumentTypePDF,
				api.MetaPageCount:    len(content.Pages),
			},
		})
	}

	return docs, nil
}

func joinPages(pages []api.DocumentPage) string {
	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		if page.Text != "" {
			parts = append(parts, page.Text)
		}
	}
	return strings.Join(parts, pageSeparator)
}
