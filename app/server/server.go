package server

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"manualqa/app/agent"
	"manualqa/app/api"
	"manualqa/index"
	"manualqa/model"
	"manualqa/qa"
	"manualqa/store"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	logger     *slog.Logger
}

func NewServer(addr string) *Server {
	return &Server{
		listenAddr: addr,
		logger:     slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()

	embedder := model.NewOllamaEmbedder(
		os.Getenv("OLLAMA_EMBEDDING_URL"),
		os.Getenv("OLLAMA_EMBEDDING_MODEL"),
	)

	vectors, err := newVectorIndex(ctx)
	if err != nil {
		log.Fatal("error to create vector index: ", err)
	}
	keywords, err := index.NewFTSKeywordIndex()
	if err != nil {
		log.Fatal("error to create keyword index: ", err)
	}

	corpus := store.NewCorpus(embedder, vectors, keywords)

	var reranker qa.Reranker
	if url := os.Getenv("RERANKER_URL"); url != "" {
		reranker = model.NewHTTPReranker(url)
	} else {
		s.logger.Info("RERANKER_URL not set, keeping fused candidate order")
	}

	var generator qa.Generator
	if os.Getenv("QA_LLM") != "none" {
		generator = agent.NewOllamaFromEnv()
	} else {
		s.logger.Info("generation disabled, answers are extractive only")
	}

	engine := qa.NewEngine(corpus, reranker, generator, embedder)

	var (
		app           = fiber.New(config)
		checkHandler  = api.NewCheckHandler(corpus)
		ingestHandler = api.NewIngestHandler(corpus)
		askHandler    = api.NewAskHandler(engine)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/ingest", ingestHandler.HandleIngest)
	apiv1.Post("/ingest_pdf", ingestHandler.HandleIngestPDF)
	apiv1.Post("/ask", askHandler.HandleAsk)

	if err := app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}

// newVectorIndex picks the pgvector backend when PG_DSN is set, otherwise
// the in-memory flat index.
func newVectorIndex(ctx context.Context) (index.VectorIndex, error) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		return index.NewMemoryVectorIndex(), nil
	}
	dim := 1024
	if s := os.Getenv("EMBEDDING_DIM"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			dim = v
		}
	}
	return index.NewPgVectorIndex(ctx, dsn, dim)
}
