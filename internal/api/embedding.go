package api

// EmbedDocumentRequest groups the chunks of a single source document for
// one embedding call.
type EmbedDocumentRequest struct {
	Title  string
	Chunks []*Chunk
}

type DocumentEmbedding struct {
	Title  string
	Chunks []*Chunk
	Values [][]float32
}
