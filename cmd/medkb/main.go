package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/alan-mat/medkb/internal/extract"
	"github.com/alan-mat/medkb/internal/ingest"
	"github.com/alan-mat/medkb/internal/provider"
	"github.com/alan-mat/medkb/internal/tasks"
	"github.com/alan-mat/medkb/internal/transport"
	"github.com/alan-mat/medkb/internal/vector"
	"github.com/alan-mat/medkb/worker"
)

const (
	ProgramName   = "medkb"
	Version       = "v0.1.0"
	RepositoryUrl = "github.com/alan-mat/medkb"
)

type ingestCmd struct {
	Dir        string `arg:"--dir,-d" help:"directory containing source documents"`
	Collection string `arg:"--collection,-c" help:"target collection name"`
	Enqueue    bool   `arg:"--enqueue" help:"enqueue the run as a worker task instead of running it locally"`
}

type workCmd struct{}

type chatCmd struct {
	Query string `arg:"positional,required" help:"question to ask against the knowledge base"`
}

type args struct {
	Ingest *ingestCmd `arg:"subcommand:ingest" help:"ingest documents into the vector store"`
	Work   *workCmd   `arg:"subcommand:work" help:"start the medkb worker"`
	Chat   *chatCmd   `arg:"subcommand:chat" help:"ask a question and stream the answer"`

	Config string `arg:"--config" default:"medkb.yaml" help:"path to the configuration file"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", ProgramName, Version)
}

func (args) Epilogue() string {
	return fmt.Sprintf("For more information visit %s", RepositoryUrl)
}

func main() {
	godotenv.Load()

	var args args

	p, err := arg.NewParser(arg.Config{Program: strings.ToLower(ProgramName)}, &args)
	if err != nil {
		log.Fatalf("there was an error in the definition of the Go struct: %v", err)
	}
	p.MustParse(os.Args[1:])

	if p.Subcommand() == nil {
		p.WriteUsage(os.Stdout)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	conf, err := ReadConfig(args.Config)
	if err != nil {
		log.Fatalf("failed to read config '%s': %v", args.Config, err)
	}

	switch cmd := p.Subcommand().(type) {
	case *ingestCmd:
		err = runIngest(conf, cmd)
	case *workCmd:
		err = runWork(conf)
	case *chatCmd:
		err = runChat(conf, cmd)
	default:
		p.FailSubcommand("unrecognized command", p.SubcommandNames()...)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func runIngest(conf *config, cmd *ingestCmd) error {
	dir := cmd.Dir
	if dir == "" {
		dir = conf.Ingest.Dir
	}
	if dir == "" {
		return errors.New("no ingestion directory given, set --dir or ingest.dir in the config")
	}

	collection := cmd.Collection
	if collection == "" {
		collection = conf.Ingest.Collection
	}

	ctx := context.Background()

	if cmd.Enqueue {
		rdb := newRedisClient(conf)
		defer rdb.Close()

		client := asynq.NewClientFromRedisClient(rdb)

		t, err := tasks.NewIngestTask(dir, collection, "cli")
		if err != nil {
			return err
		}

		info, err := client.Enqueue(t)
		if err != nil {
			return fmt.Errorf("failed to enqueue ingest task: %w", err)
		}

		fmt.Printf("enqueued ingest task '%s'\n", info.ID)
		return nil
	}

	embedderType, err := provider.EmbedderTypeFromName(conf.Providers.Embedder)
	if err != nil {
		return err
	}
	embedder, err := provider.NewEmbedder(ctx, embedderType)
	if err != nil {
		return fmt.Errorf("failed to initialize embeddings provider: %w", err)
	}

	var extractor extract.Extractor
	if conf.Ingest.OCR {
		parser, err := provider.NewDocParser(provider.DocParserTypeMistral)
		if err != nil {
			return fmt.Errorf("failed to initialize document parser: %w", err)
		}
		extractor = extract.NewOCRExtractor(parser)
	} else {
		extractor = extract.NewPDFExtractor()
	}

	splitter, err := ingest.NewSplitter(conf.Ingest.ChunkSize, conf.Ingest.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("invalid chunking configuration: %w", err)
	}

	store, err := vector.NewQdrantStore(conf.VectorStore.Host, conf.VectorStore.Port)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer store.Close()

	pipeline := ingest.NewPipeline(
		ingest.NewDirectoryLoader(extractor),
		splitter,
		embedder,
		store,
		collection,
	)

	stats, err := pipeline.Run(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Printf("ingested %d documents (%d chunks, %d points) into '%s'\n",
		stats.Documents, stats.Chunks, stats.Points, collection)
	return nil
}

func runWork(conf *config) error {
	w := worker.New(worker.Config{
		RedisAddr:     conf.Transport.Addr,
		RedisPassword: conf.Transport.Password,
		RedisDB:       conf.Transport.DB,
		QdrantHost:    conf.VectorStore.Host,
		QdrantPort:    conf.VectorStore.Port,
		Concurrency:   conf.Worker.Concurrency,
		Collection:    conf.Ingest.Collection,
		ChunkSize:     conf.Ingest.ChunkSize,
		ChunkOverlap:  conf.Ingest.ChunkOverlap,
		Embedder:      conf.Providers.Embedder,
		Completer:     conf.Providers.Completer,
		UseReranker:   conf.Providers.Reranker,
		UseOCR:        conf.Ingest.OCR,
	})
	return w.Start(context.Background())
}

func runChat(conf *config, cmd *chatCmd) error {
	rdb := newRedisClient(conf)
	defer rdb.Close()

	client := asynq.NewClientFromRedisClient(rdb)

	t, err := tasks.NewChatTask(cmd.Query, "cli", nil)
	if err != nil {
		return err
	}

	info, err := client.Enqueue(t)
	if err != nil {
		return fmt.Errorf("failed to enqueue chat task: %w", err)
	}
	slog.Debug("enqueued chat task", "id", info.ID)

	tp := transport.NewRedisTransport(rdb)
	ms, err := tp.GetMessageStream(info.ID)
	if err != nil {
		return fmt.Errorf("failed to open message stream '%s': %w", info.ID, err)
	}

	ctx := context.Background()
	for {
		payload, err := ms.Recv(ctx)
		if err != nil {
			return fmt.Errorf("failed to read message stream '%s': %w", info.ID, err)
		}

		switch payload.Status {
		case transport.StatusDone:
			fmt.Println()
			return nil
		case transport.StatusErr:
			return fmt.Errorf("chat task '%s' failed", info.ID)
		}

		switch payload.Type {
		case transport.MessageTypeDocument:
			fmt.Printf("[context] %s (%s)\n", payload.Document.Title, payload.Document.Source)
		case transport.MessageTypeContent:
			fmt.Print(payload.Content)
		}
	}
}

func newRedisClient(conf *config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Transport.Addr,
		Username: conf.Transport.Username,
		Password: conf.Transport.Password,
		DB:       conf.Transport.DB,
	})
}
