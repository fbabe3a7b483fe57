// Package extract turns source files into page-by-page document content.
package extract

import (
	"context"

	"github.com/alan-mat/medkb/internal/api"
)

// Extractor reads one source file and returns its content page by page.
// Pages that fail to yield text are returned with empty text so the page
// count always reflects the origin file.
type Extractor interface {
	Extract(ctx context.Context, path string) (*api.DocumentContent, error)
}
