package api_test

import (
	"testing"

	"github.com/alan-mat/medkb/internal/api"
)

func TestParseChatHistory(t *testing.T) {
	history := []map[string]string{
		{"role": "user", "content": "what is hypertension?"},
		{"role": "assistant", "content": "persistent high blood pressure"},
		{"role": "system", "content": "some other role"},
	}

	msgs := api.ParseChatHistory(history)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}

	if msgs[0].Role != api.RoleUser || msgs[0].Content != "what is hypertension?" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != api.RoleAssistant || msgs[1].Content != "persistent high blood pressure" {
		t.Errorf("unexpected second message: %+v", msgs[1])
	}

	// unrecognized roles default to the user role
	if msgs[2].Role != api.RoleUser {
		t.Errorf("expected user role for unrecognized role, got %v", msgs[2].Role)
	}
}

func TestParseChatHistoryEmpty(t *testing.T) {
	if msgs := api.ParseChatHistory(nil); len(msgs) != 0 {
		t.Errorf("expected no messages for nil history, got %d", len(msgs))
	}
}
