package transport_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/alan-mat/medkb/internal/transport"
)

type fakeMessageStream struct {
	sent []transport.MessageStreamPayload
}

func (s *fakeMessageStream) Send(_ context.Context, payload transport.MessageStreamPayload) error {
	s.sent = append(s.sent, payload)
	return nil
}

func (s *fakeMessageStream) Recv(_ context.Context) (*transport.MessageStreamPayload, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeMessageStream) Text(_ context.Context) (string, error) {
	return "", errors.New("not implemented")
}

func (s *fakeMessageStream) GetID() string {
	return "test-stream"
}

type fakeCompletionStream struct {
	chunks []string
	err    error
	pos    int
}

func (s *fakeCompletionStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *fakeCompletionStream) Close() error {
	return nil
}

func TestProcessCompletionStream(t *testing.T) {
	ms := &fakeMessageStream{}
	cs := &fakeCompletionStream{chunks: []string{"Hyper", "tension", " ", "is common."}}

	text, err := transport.ProcessCompletionStream(context.Background(), ms, cs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != "Hypertension is common." {
		t.Errorf("unexpected accumulated text: '%s'", text)
	}

	// whitespace-only chunks are folded into the next send
	if len(ms.sent) != 3 {
		t.Fatalf("expected 3 sent payloads, got %d", len(ms.sent))
	}

	var streamed string
	for i, payload := range ms.sent {
		if payload.Status != transport.StatusOK {
			t.Errorf("payload %d has status '%s'", i, payload.Status)
		}
		if payload.Type != transport.MessageTypeContent {
			t.Errorf("payload %d has type %d", i, payload.Type)
		}
		streamed += payload.Content
	}
	if streamed != text {
		t.Errorf("streamed content '%s' does not match returned text '%s'", streamed, text)
	}
}

func TestProcessCompletionStreamError(t *testing.T) {
	ms := &fakeMessageStream{}
	cs := &fakeCompletionStream{chunks: []string{"partial"}, err: errors.New("upstream reset")}

	text, err := transport.ProcessCompletionStream(context.Background(), ms, cs)
	if err == nil {
		t.Fatal("expected error from failing stream")
	}
	if text != "partial" {
		t.Errorf("expected partial text to be returned, got '%s'", text)
	}

	last := ms.sent[len(ms.sent)-1]
	if last.Status != transport.StatusErr {
		t.Errorf("expected final payload status '%s', got '%s'", transport.StatusErr, last.Status)
	}
}
