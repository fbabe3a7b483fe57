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

package api

import "maps"

// Metadata keys set by the ingestion pipeline. Loader keys are present on
// every document; chunk keys are added by the splitter on top of the
// document keys, never replacing them.
const (
	MetaSource       = "source"
	MetaFilename     = "filename"
	MetaDocumentType = "document_type"
	MetaPageCount    = "page_count"

	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaChunkSize   = "chunk_size"
	MetaParentIndex = "parent_document_index"
)

// DocumentTypePDF tags documents extracted from the medical PDF corpus.
const DocumentTypePDF = "medical_pdf"

type DocumentPage struct {
	Index int
	Text  string
}

// DocumentContent is the page-by-page output of an extractor, before the
// loader collapses it into a single Document.
type DocumentContent struct {
	Pages []DocumentPage
}

func (dc DocumentContent) Text() string {
	text := ""
	for _, page := range dc.Pages {
		text += page.Text
	}
	return text
}

// Document is the full extracted text of one source file together with its
// provenance metadata. Documents are created once by the loader and not
// mutated afterwards.
type Document struct {
	Content  string
	Metadata map[string]any
}

// CloneMetadata returns a copy of the document metadata safe to augment
// without touching the parent.
func (d Document) CloneMetadata() map[string]any {
	md := make(map[string]any, len(d.Metadata))
	maps.Copy(md, d.Metadata)
	return md
}

// Chunk is a bounded contiguous substring of a parent Document, carrying the
// parent metadata plus its own positional keys.
type Chunk struct {
	Content  string
	Metadata map[string]any
}

type ScoredDocument struct {
	// Required
	Content string
	Score   float64

	// Optional
	Title  string
	Source string
}
