package api

type ChatRequest struct {
	// Required
	Query string

	// Optional params
	ModelName    string
	SystemPrompt string
	History      []*ChatMessage
}

// CompletionStream yields generated text chunk by chunk.
// Recv returns io.EOF once the stream is exhausted.
type CompletionStream interface {
	Recv() (string, error)
	Close() error
}
