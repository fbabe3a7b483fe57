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
	"encoding/base64"
	"fmt"
	"os"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/provider"
)

// OCRExtractor sends the whole file to a remote document parser.
// Use it for scanned PDFs where local text extraction returns
// empty pages.
type OCRExtractor struct {
	parser provider.DocParser
}

func NewOCRExtractor(parser provider.DocParser) *OCRExtractor {
	return &OCRExtractor{parser: parser}
}

func (e *OCRExtractor) Extract(ctx context.Context, path string) (*api.DocumentContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	encoded := base64.StdEncoding.EncodeToString(data)

	content, err := e.parser.Parse(ctx, encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file '%s': %w", path, err)
	}

	return content, nil
}
