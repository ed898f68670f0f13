// Package app wires configuration, storage and services into the object
// graph shared by the API server and the batch CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/shotrank/internal/config"
	"github.com/timmy/shotrank/internal/logger"
	"github.com/timmy/shotrank/internal/repository"
	"github.com/timmy/shotrank/internal/service"
	"github.com/timmy/shotrank/internal/storage"
	"github.com/timmy/shotrank/internal/tagging"
	"gorm.io/gorm"
)

const (
	VectorBackendDatabase = "database"
	VectorBackendQdrant   = "qdrant"
)

// App holds every long-lived component. Build it once per process and call
// Close on shutdown.
type App struct {
	Config *config.Config
	DB     *gorm.DB

	Concepts   *repository.ConceptRepository
	Images     *repository.ImageRepository
	Embeddings *repository.ImageEmbeddingRepository
	Tags       *repository.ImageTagRepository
	HubStats   *repository.HubStatsRepository
	Expansions *repository.QueryExpansionRepository
	Runs       *repository.BatchRunRepository

	// Vectors is the store image vectors are read from. Mirror is non-nil
	// when vectors live outside the relational store and must be copied there.
	Vectors repository.VectorStore
	Mirror  repository.VectorStore

	Model          service.EmbeddingModel
	Generator      service.Generator
	Expander       *service.QueryExpander
	ConceptService *service.ConceptEmbeddingService
	Tagging        *service.TaggingService
	Hubs           *service.HubDetectionService
	Ranking        *service.RankingService

	closers []func() error
}

// New connects to the configured stores and builds every service.
// Parameters:
//   - ctx: context used for startup checks such as collection creation.
//   - cfg: loaded configuration.
// Returns:
//   - *App: ready-to-use application graph.
//   - error: non-nil if a store cannot be reached or configured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		Config:     cfg,
		DB:         db,
		Concepts:   repository.NewConceptRepository(db),
		Images:     repository.NewImageRepository(db),
		Embeddings: repository.NewImageEmbeddingRepository(db),
		Tags:       repository.NewImageTagRepository(db),
		HubStats:   repository.NewHubStatsRepository(db),
		Expansions: repository.NewQueryExpansionRepository(db),
		Runs:       repository.NewBatchRunRepository(db),
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	if err := a.initVectors(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Model = service.NewJinaEmbeddingModel(cfg.Embedding)
	a.Generator = service.NewLLMGenerator(&cfg.Generation)
	a.Expander = service.NewQueryExpander(a.Expansions, a.Generator)
	a.ConceptService = service.NewConceptEmbeddingService(a.Concepts, a.Model, cfg.Scoring.Tagger.PhraseTemplate)
	a.Tagging = service.NewTaggingService(
		a.Images,
		a.Tags,
		a.Vectors,
		a.ConceptService,
		tagging.NewTagger(cfg.Scoring.Tagger),
		&service.TaggingConfig{
			Model:     a.Model.Model(),
			Workers:   cfg.Batch.Workers,
			BatchSize: cfg.Batch.BatchSize,
		},
	)
	a.Hubs = service.NewHubDetectionService(a.Concepts, a.Vectors, a.HubStats, a.Model, cfg.Scoring.Hubs, cfg.Batch.Workers)
	a.Ranking = service.NewRankingService(a.Images, a.Tags, a.HubStats, a.Vectors, a.ConceptService, a.Expander, a.Model, cfg.Scoring)

	logger.CtxInfo(ctx, "Application initialized: vectors=%s, model=%s, scoring_version=%s",
		cfg.Vectors.Backend, a.Model.Model(), cfg.Scoring.Version)
	return a, nil
}

func (a *App) initVectors(ctx context.Context) error {
	switch a.Config.Vectors.Backend {
	case VectorBackendDatabase, "":
		a.Vectors = repository.NewDBVectorStore(a.Embeddings)
		return nil
	case VectorBackendQdrant:
		qcfg := a.Config.Qdrant
		store, err := repository.NewQdrantVectorStore(&repository.QdrantConnectionConfig{
			Host:            qcfg.Host,
			Port:            qcfg.Port,
			Collection:      qcfg.Collection,
			APIKey:          qcfg.APIKey,
			UseTLS:          qcfg.UseTLS,
			VectorDimension: a.Config.Embedding.Dimensions,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		a.closers = append(a.closers, store.Close)

		if err := store.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("failed to ensure qdrant collection: %w", err)
		}
		a.Vectors = store
		a.Mirror = store
		return nil
	default:
		return fmt.Errorf("unsupported vectors backend %q", a.Config.Vectors.Backend)
	}
}

// ObjectStorage connects to the configured bucket. It returns nil without
// error when no bucket credentials are configured.
func (a *App) ObjectStorage(ctx context.Context) (storage.ObjectStorage, error) {
	scfg := a.Config.Storage
	if scfg.AccessKey == "" || scfg.SecretKey == "" {
		return nil, nil
	}
	store, err := storage.NewStorage(&scfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if ensurer, ok := store.(storage.BucketEnsurer); ok {
		if err := ensurer.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
	}
	return store, nil
}

// EmbedService builds the image embedding pipeline against store, which may
// be nil.
func (a *App) EmbedService(store storage.ObjectStorage) *service.EmbedService {
	return service.NewEmbedService(a.Images, a.Embeddings, a.Mirror, store, a.Model, &service.EmbedConfig{
		Workers:       a.Config.Batch.Workers,
		BatchSize:     a.Config.Batch.BatchSize,
		StoragePrefix: a.Config.Storage.Prefix,
	})
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
