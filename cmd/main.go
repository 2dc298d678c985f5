package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"book-rag/internal/cache"
	"book-rag/internal/config"
	"book-rag/internal/corpus"
	"book-rag/internal/embedding"
	"book-rag/internal/history"
	"book-rag/internal/ingest"
	"book-rag/internal/llm"
	"book-rag/internal/models"
	"book-rag/internal/normalize"
	"book-rag/internal/profanity"
	"book-rag/internal/prompt"
	"book-rag/internal/rag"
	"book-rag/internal/search"
	"book-rag/internal/server"
	"book-rag/internal/workerpool"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on environment")
	}

	configPath := flag.String("config", configFilePath, "Path to the config file")
	buildPath := flag.String("build", "", "Path to a raw book dump; builds the embedding corpus and exits")
	query := flag.String("query", "", "Run a single recommendation query and print the response")
	serve := flag.Bool("serve", false, "Start the HTTP server")
	topK := flag.Int("k", 0, "Number of books to retrieve, overrides config")
	flag.Parse()

	cfg := loadConfig(*configPath)
	if *topK > 0 {
		cfg.RAG.TopK = *topK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *buildPath != "":
		buildCorpus(ctx, cfg, *buildPath)
	case *query != "":
		runQuery(ctx, cfg, *query)
	case *serve:
		runServer(ctx, cfg)
	default:
		log.Fatal().Msg("Please provide -build, -query or -serve")
	}
}

func loadConfig(path string) *config.Config {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("Config file not found, using defaults")
			return config.Default()
		}
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")
	return cfg
}

func buildCorpus(ctx context.Context, cfg *config.Config, inputPath string) {
	normalizer, err := normalize.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing normalizer")
	}

	embedder, err := embedding.NewOllamaEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	builder := ingest.NewBuilder(normalizer, embedder)
	if err := builder.Run(ctx, inputPath, cfg.Corpus.EmbeddingsPath, cfg.Corpus.MetadataPath); err != nil {
		log.Fatal().Err(err).Msg("Error building corpus")
	}
	log.Info().
		Str("embeddings", cfg.Corpus.EmbeddingsPath).
		Str("metadata", cfg.Corpus.MetadataPath).
		Msg("Corpus build complete")
}

func newService(cfg *config.Config, redisCache *cache.Cache, hist rag.HistoryAppender) *search.Service {
	normalizer, err := normalize.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing normalizer")
	}

	store, err := corpus.Load(cfg.Corpus.EmbeddingsPath, cfg.Corpus.MetadataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading corpus, run with -build first")
	}

	embedder, err := embedding.NewOllamaEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	client := llm.NewClient(&cfg.ChatLLM)
	orch := rag.NewOrchestrator(upstream{client}, hist, time.Duration(cfg.RAG.StreamTimeout)*time.Second)

	return search.NewService(search.Options{
		Normalizer: normalizer,
		Embedder:   embedder,
		Store:      store,
		Cache:      redisCache,
		Gate:       profanity.NewDetector(),
		Orch:       orch,
		Pool:       workerpool.New(cfg.RAG.EmbedWorkers),
		TopK:       cfg.RAG.TopK,
	})
}

// upstream adapts the concrete chat client to the orchestrator's
// stream interface.
type upstream struct {
	client *llm.Client
}

func (u upstream) Stream(ctx context.Context, messages []models.ChatMessage) (rag.ChunkStream, error) {
	return u.client.Stream(ctx, messages)
}

func runQuery(ctx context.Context, cfg *config.Config, query string) {
	redisCache := cache.New(&cfg.Redis)
	defer redisCache.Close()

	svc := newService(cfg, redisCache, nil)

	events, err := svc.Search(ctx, "cli", query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	var full strings.Builder
	for ev := range events {
		switch ev.Type {
		case rag.EventDelta:
			full.WriteString(ev.Data)
			fmt.Print(ev.Data)
		case rag.EventError:
			fmt.Println()
			log.Fatal().Str("reason", ev.Data).Msg("Stream failed")
		case rag.EventDone:
			fmt.Printf("\n\n")
		}
	}

	recs, err := prompt.ParseRecommendations(full.String())
	if err != nil {
		log.Warn().Err(err).Msg("Response was not a recommendation array")
		return
	}
	log.Info().Int("count", len(recs)).Msg("Parsed recommendations")
}

func runServer(ctx context.Context, cfg *config.Config) {
	var histStore *history.Store
	if cfg.Database.DSN != "" {
		db, err := history.ConnectDB(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		if err := history.InitDB(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		histStore = history.NewStore(db)
		defer histStore.Close()
	} else {
		log.Warn().Msg("DATABASE_DSN not set, chat history disabled")
	}

	redisCache := cache.New(&cfg.Redis)
	defer redisCache.Close()

	var hist rag.HistoryAppender
	var reader server.HistoryReader
	if histStore != nil {
		hist = histStore
		reader = histStore
	}

	svc := newService(cfg, redisCache, hist)
	srv := server.New(svc, reader, redisCache)

	if err := srv.Start(ctx, cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
}
