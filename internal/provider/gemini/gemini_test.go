package gemini_test

import (
	"testing"

	"github.com/alan-mat/medkb/internal/provider/gemini"
)

func TestNewWithoutAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	if _, err := gemini.New(); err == nil {
		t.Fatal("expected an error without an api key")
	}
}
