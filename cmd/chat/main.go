package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"medical-rag/internal/config"
	"medical-rag/internal/embedding"
	"medical-rag/internal/gemini"
	"medical-rag/internal/pdfproc"
	"medical-rag/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a PDF file to ingest")
	query := flag.String("query", "", "Query to be answered")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment as is")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	switch {
	case *filePath != "":
		ingestFile(ctx, cfg, *filePath)
	case *query != "":
		answerQuery(ctx, cfg, *query)
	default:
		log.Fatal().Msg("Please provide either a PDF file using the -file flag or a query using the -query flag")
	}
}

func ingestFile(ctx context.Context, cfg *config.Config, path string) {
	embedder, err := embedding.NewOllamaEmbedder(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	store := vectorstore.New(embedder, cfg.Storage.VectorDBDir, cfg.Embedding.Dimension)

	processor := pdfproc.NewProcessor(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	chunks := processor.Extract(path)
	if len(chunks) == 0 {
		log.Fatal().Str("path", path).Msg("No text extracted from PDF")
	}

	if err := store.Update(ctx, chunks); err != nil {
		log.Fatal().Err(err).Msg("Error updating index")
	}
	log.Info().Int("chunks", len(chunks)).Int("total", store.Count()).Msg("PDF ingested")
}

func answerQuery(ctx context.Context, cfg *config.Config, query string) {
	embedder, err := embedding.NewOllamaEmbedder(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	store := vectorstore.New(embedder, cfg.Storage.VectorDBDir, cfg.Embedding.Dimension)

	generator, err := gemini.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing response generator")
	}

	contextText, citations, err := store.RelevantContext(ctx, query, cfg.RAG.MaxContextChunks)
	if err != nil {
		log.Fatal().Err(err).Msg("Error retrieving context")
	}

	response := generator.Generate(ctx, query, contextText, citations, nil)

	log.Info().Msg("Query:")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Sources:")
	for _, c := range citations {
		fmt.Printf("- %s\n", c)
	}
	fmt.Println()

	log.Info().Msg("Assistant:")
	fmt.Printf("%s\n\n", response)
}
