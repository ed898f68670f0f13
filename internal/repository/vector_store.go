package repository

import (
	"context"

	"github.com/timmy/shotrank/internal/domain"
)

// VectorStore bulk-loads image vectors for exhaustive in-memory scoring.
type VectorStore interface {
	// Upsert writes one image vector.
	Upsert(ctx context.Context, e *domain.ImageEmbedding) error
	// Load returns vectors of model keyed by image id. A nil ids slice loads
	// every vector of the model. Missing images are absent from the map.
	Load(ctx context.Context, model string, ids []string) (map[string][]float32, error)
}

// DBVectorStore serves vectors straight from the image_embeddings table.
type DBVectorStore struct {
	embeddings *ImageEmbeddingRepository
}

// NewDBVectorStore creates a VectorStore backed by the relational store.
func NewDBVectorStore(embeddings *ImageEmbeddingRepository) *DBVectorStore {
	return &DBVectorStore{embeddings: embeddings}
}

// Upsert implements VectorStore.
func (s *DBVectorStore) Upsert(ctx context.Context, e *domain.ImageEmbedding) error {
	return s.embeddings.Upsert(ctx, e)
}

// Load implements VectorStore.
func (s *DBVectorStore) Load(ctx context.Context, model string, ids []string) (map[string][]float32, error) {
	if ids == nil {
		rows, err := s.embeddings.ListByModel(ctx, model)
		if err != nil {
			return nil, err
		}
		out := make(map[string][]float32, len(rows))
		for _, row := range rows {
			out[row.ImageID] = []float32(row.Vector)
		}
		return out, nil
	}

	rows, err := s.embeddings.GetByImageIDs(ctx, model, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float32, len(rows))
	for id, row := range rows {
		out[id] = []float32(row.Vector)
	}
	return out, nil
}
