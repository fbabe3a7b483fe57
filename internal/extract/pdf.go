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

package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/alan-mat/medkb/internal/api"
)

// PDFExtractor extracts plain text from local PDF files.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (doc *api.DocumentContent, err error) {
	// the pdf library panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("failed to parse pdf '%s': %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf '%s': %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	doc = &api.DocumentContent{
		Pages: make([]api.DocumentPage, 0, total),
	}

	for i := 1; i <= total; i++ {
		text, err := extractPage(reader.Page(i))
		if err != nil {
			slog.Warn("failed to extract page, skipping", "path", path, "page", i, "err", err)
			text = ""
		}

		doc.Pages = append(doc.Pages, api.DocumentPage{
			Index: i - 1,
			Text:  text,
		})
	}

	return doc, nil
}

func extractPage(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page extraction failed: %v", r)
		}
	}()

	if p.V.IsNull() {
		return "", fmt.Errorf("page has no content")
	}
	return p.GetPlainText(nil)
}
