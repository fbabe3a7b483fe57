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

package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/goccy/go-yaml"
)

type redisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type qdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type workerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type ingestConfig struct {
	Dir          string `yaml:"dir"`
	Collection   string `yaml:"collection"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	OCR          bool   `yaml:"ocr"`
}

type providerConfig struct {
	Embedder  string `yaml:"embedder"`
	Completer string `yaml:"completer"`
	Reranker  bool   `yaml:"reranker"`
}

type config struct {
	Worker workerConfig `yaml:"worker"`

	Transport   redisConfig  `yaml:"transport"`
	VectorStore qdrantConfig `yaml:"vector_store"`

	Ingest    ingestConfig   `yaml:"ingest"`
	Providers providerConfig `yaml:"providers"`
}

// ReadConfig loads path and fills in defaults for anything it leaves
// unset. A missing file is not an error; every default is usable for a
// local setup.
func ReadConfig(path string) (*config, error) {
	var conf config

	file, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err == nil {
		if err := yaml.Unmarshal(file, &conf); err != nil {
			return nil, err
		}
	}

	if conf.Worker.Concurrency <= 0 {
		conf.Worker.Concurrency = 10
	}
	if conf.Transport.Addr == "" {
		conf.Transport.Addr = "localhost:6379"
	}
	if conf.VectorStore.Host == "" {
		conf.VectorStore.Host = "localhost"
	}
	if conf.VectorStore.Port == 0 {
		conf.VectorStore.Port = 6334
	}
	if conf.Ingest.Collection == "" {
		conf.Ingest.Collection = "medicalchat"
	}
	if conf.Ingest.ChunkSize == 0 {
		conf.Ingest.ChunkSize = 500
	}
	if conf.Ingest.ChunkOverlap == 0 {
		conf.Ingest.ChunkOverlap = 50
	}
	if conf.Providers.Embedder == "" {
		conf.Providers.Embedder = "ollama"
	}
	if conf.Providers.Completer == "" {
		conf.Providers.Completer = "ollama"
	}

	return &conf, nil
}
