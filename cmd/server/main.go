package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"medical-rag/internal/api"
	"medical-rag/internal/chatbot"
	"medical-rag/internal/config"
	"medical-rag/internal/embedding"
	"medical-rag/internal/gemini"
	"medical-rag/internal/pdfproc"
	"medical-rag/internal/session"
	"medical-rag/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	pdfDir := flag.String("pdf-dir", "", "Directory of PDF documents to index (overrides config)")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment as is")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *pdfDir != "" {
		cfg.Storage.PDFDir = *pdfDir
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx := context.Background()

	embedder, err := embedding.NewOllamaEmbedder(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	store := vectorstore.New(embedder, cfg.Storage.VectorDBDir, cfg.Embedding.Dimension)

	generator, err := gemini.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing response generator")
	}

	sessions := session.NewManager(cfg.Session.MaxHistory)
	processor := pdfproc.NewProcessor(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)

	bot := chatbot.New(processor, store, generator, sessions, cfg)
	if err := bot.Initialize(ctx, cfg.Storage.PDFDir); err != nil {
		log.Fatal().Err(err).Msg("Error initializing chatbot")
	}

	router := api.SetupRouter(api.NewHandler(bot))
	log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
