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

package rag

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/alan-mat/medkb/internal/api"
	"github.com/alan-mat/medkb/internal/provider"
)

const promptAnswerWithContext = `You are a medical assistant for question-answering tasks. Use the following pieces of retrieved context to answer the user's question. If the context does not contain the answer and you do not know it, say that you don't know. Keep the answer concise, three sentences maximum. Do not give a diagnosis or prescribe treatment; advise consulting a medical professional where appropriate.

**CONTEXT:**
{{.Context}}
`

// Generator turns a query and its retrieved context into a streaming
// completion.
type Generator struct {
	completer provider.Completer
	modelName string

	promptTemplate *template.Template
}

type GeneratorOption func(*Generator)

func WithModelName(name string) GeneratorOption {
	return func(g *Generator) {
		g.modelName = name
	}
}

func NewGenerator(completer provider.Completer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		completer:      completer,
		promptTemplate: template.Must(template.New("promptAnswerWithContext").Parse(promptAnswerWithContext)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate streams an answer to query grounded in docs. The caller owns
// the returned stream and must close it.
func (g *Generator) Generate(ctx context.Context, query string, history []*api.ChatMessage, docs []*api.ScoredDocument) (api.CompletionStream, error) {
	modelContext := ""
	for _, doc := range docs {
		modelContext += strings.TrimSpace(doc.Content) + "\n---\n"
	}

	type templatePayload struct {
		Context string
	}

	var buf bytes.Buffer
	err := g.promptTemplate.Execute(&buf, templatePayload{Context: modelContext})
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template for query '%s': %w", query, err)
	}

	stream, err := g.completer.Chat(ctx, api.ChatRequest{
		Query:        query,
		ModelName:    g.modelName,
		SystemPrompt: buf.String(),
		History:      history,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion stream: %w", err)
	}

	return stream, nil
}
