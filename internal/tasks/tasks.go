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

// Package tasks defines the asynq task types the worker processes.
package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeIngest = "medkb:ingest"
	TypeChat   = "medkb:chat"
)

type ingestTaskPayload struct {
	Dir        string
	Collection string
	User       string
}

type chatTaskPayload struct {
	Query string
	User  string

	// History holds prior turns as role/content pairs, parsed by the
	// handler with api.ParseChatHistory.
	History []map[string]string
}

// NewIngestTask enqueues an ingestion run over dir. An empty collection
// falls back to the worker's configured default.
func NewIngestTask(dir, collection, user string) (*asynq.Task, error) {
	tp := ingestTaskPayload{
		Dir:        dir,
		Collection: collection,
		User:       user,
	}
	payload, err := json.Marshal(tp)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeIngest, payload), nil
}

func NewChatTask(query, user string, history []map[string]string) (*asynq.Task, error) {
	tp := chatTaskPayload{
		Query:   query,
		User:    user,
		History: history,
	}
	payload, err := json.Marshal(tp)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeChat, payload), nil
}
