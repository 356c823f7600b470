package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/Indexa/internal/config"
	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/core/chunking"
	"github.com/markdave123-py/Indexa/internal/core/classifier"
	db "github.com/markdave123-py/Indexa/internal/core/database"
	"github.com/markdave123-py/Indexa/internal/core/extraction_engine"
	"github.com/markdave123-py/Indexa/internal/core/ingestion_engine"
	"github.com/markdave123-py/Indexa/internal/core/llm"
	objectclient "github.com/markdave123-py/Indexa/internal/core/object-client"
	"github.com/markdave123-py/Indexa/internal/metrics"
	"github.com/markdave123-py/Indexa/internal/services"
)

// App wires every component of the ingestion worker.
type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Registry     *extraction_engine.Registry
	Orchestrator *ingestion_engine.Orchestrator
	Claimer      *ingestion_engine.QueueClaimer
	Documents    *services.DocumentService
	Ops          *OpsServer

	embedder *llm.GeminiEmbedder
	llm      *llm.GeminiLLM
	vision   *llm.GeminiVision
}

func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	logger.Info().Msg("database initialized")

	objClient, err := objectclient.NewS3Client(appCtx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel, cfg.OracleTimeout)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel, cfg.OracleTimeout)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	visionProvider, err := llm.NewGeminiVision(appCtx, cfg.AIAPIKey, cfg.VisionModel, cfg.OracleTimeout)
	if err != nil {
		return nil, fmt.Errorf("vision: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	vision := &countingVision{inner: visionProvider, metrics: m}

	registry := extraction_engine.NewRegistry(
		extraction_engine.NewPDFExtractor(logger),
		extraction_engine.NewDocxExtractor(logger),
		extraction_engine.NewPptxExtractor(vision, logger),
		extraction_engine.NewImageExtractor(vision, logger),
		extraction_engine.NewTextExtractor(false, logger),
	)

	cls := classifier.New(llmProvider, logger)
	chunker := chunking.New(chunking.Config{}, logger)

	orch := ingestion_engine.NewOrchestrator(
		dbClient, objClient, registry, cls, chunker, embedder, m,
		ingestion_engine.Config{
			Bucket:         cfg.BucketName,
			StorageTimeout: cfg.StorageTimeout,
		},
		logger,
	)

	claimer := ingestion_engine.NewQueueClaimer(dbClient, orch, m, ingestion_engine.ClaimerConfig{
		BatchSize:     cfg.BatchSize,
		WorkerCount:   cfg.WorkerCount,
		PollInterval:  cfg.PollInterval,
		DocumentDelay: cfg.DocumentDelay,
	}, logger)

	docs := services.NewDocumentService(dbClient, objClient, registry, cfg.BucketName)

	ops := NewOpsServer(cfg.OpsAddr, reg, logger)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Registry:     registry,
		Orchestrator: orch,
		Claimer:      claimer,
		Documents:    docs,
		Ops:          ops,
		embedder:     embedder,
		llm:          llmProvider,
		vision:       visionProvider,
	}, nil
}

func (a *App) Close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.vision != nil {
		_ = a.vision.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}

// countingVision wraps a VisionProvider so every call shows up in metrics.
type countingVision struct {
	inner   core.VisionProvider
	metrics *metrics.Metrics
}

func (v *countingVision) Describe(ctx context.Context, images [][]byte, prompt string) (string, error) {
	v.metrics.VisionCalls.Inc()
	return v.inner.Describe(ctx, images, prompt)
}
