package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/shotrank/internal/config"
	"github.com/timmy/shotrank/internal/imagehash"
	"github.com/timmy/shotrank/internal/vectormath"
)

// EmbeddingModel produces unit-length vectors for images and text in one
// shared space.
type EmbeddingModel interface {
	// Model returns the model identifier stored alongside vectors.
	Model() string
	// Dimensions returns the length of every produced vector.
	Dimensions() int
	// EmbedTexts embeds texts in order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedImage embeds encoded image bytes and returns the vector together
	// with the image's content hash.
	EmbedImage(ctx context.Context, data []byte, format string) ([]float32, string, error)
	// EmbedImageData embeds image bytes the caller has already decoded and
	// hashed.
	EmbedImageData(ctx context.Context, data []byte, format string) ([]float32, error)
}

// JinaEmbeddingModel implements EmbeddingModel over the Jina multimodal
// embeddings API. The HTTP client is created on first use.
type JinaEmbeddingModel struct {
	cfg config.EmbeddingConfig

	once     sync.Once
	initErr  error
	client   *resty.Client
	endpoint string
}

// NewJinaEmbeddingModel creates an embedding model from configuration.
// Parameters:
//   - cfg: embedding configuration with model, dimensions and credentials.
// Returns:
//   - *JinaEmbeddingModel: lazily initialized model client.
func NewJinaEmbeddingModel(cfg config.EmbeddingConfig) *JinaEmbeddingModel {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &JinaEmbeddingModel{cfg: cfg}
}

// Model returns the configured model name.
func (m *JinaEmbeddingModel) Model() string {
	return m.cfg.Model
}

// Dimensions returns the configured vector length.
func (m *JinaEmbeddingModel) Dimensions() int {
	return m.cfg.Dimensions
}

func (m *JinaEmbeddingModel) init() error {
	m.once.Do(func() {
		if err := m.cfg.ValidateWithAPIKey(); err != nil {
			m.initErr = err
			return
		}

		client := resty.New()
		client.SetHeader("Authorization", "Bearer "+m.cfg.APIKey)
		client.SetHeader("Content-Type", "application/json")
		client.SetTimeout(60 * time.Second)
		client.SetRetryCount(2)

		m.client = client
		m.endpoint = m.cfg.Endpoint()
	})
	return m.initErr
}

// Jina API request/response structures
type jinaInput struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type jinaRequest struct {
	Model         string      `json:"model"`
	Dimensions    int         `json:"dimensions,omitempty"`
	Normalized    bool        `json:"normalized"`
	EmbeddingType string      `json:"embedding_type,omitempty"`
	Input         []jinaInput `json:"input"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Detail string `json:"detail,omitempty"`
}

// EmbedTexts embeds texts in batches of the configured size.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - texts: input strings.
// Returns:
//   - [][]float32: unit vectors, one per text, in input order.
//   - error: non-nil if any request fails.
func (m *JinaEmbeddingModel) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := m.init(); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += m.cfg.BatchSize {
		end := start + m.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		inputs := make([]jinaInput, 0, end-start)
		for _, text := range texts[start:end] {
			inputs = append(inputs, jinaInput{Text: text})
		}

		vectors, err := m.embed(ctx, inputs)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedImage embeds one image. The content hash is computed over decoded
// pixels, so undecodable data fails before any request is made.
func (m *JinaEmbeddingModel) EmbedImage(ctx context.Context, data []byte, format string) ([]float32, string, error) {
	hash, err := imagehash.ContentHash(data)
	if err != nil {
		return nil, "", err
	}
	vector, err := m.EmbedImageData(ctx, data, format)
	if err != nil {
		return nil, "", err
	}
	return vector, hash, nil
}

// EmbedImageData sends data to the model as is.
func (m *JinaEmbeddingModel) EmbedImageData(ctx context.Context, data []byte, format string) ([]float32, error) {
	if err := m.init(); err != nil {
		return nil, err
	}

	vectors, err := m.embed(ctx, []jinaInput{{Image: base64.StdEncoding.EncodeToString(data)}})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *JinaEmbeddingModel) embed(ctx context.Context, inputs []jinaInput) ([][]float32, error) {
	req := jinaRequest{
		Model:         m.cfg.Model,
		Dimensions:    m.cfg.Dimensions,
		Normalized:    true,
		EmbeddingType: "float",
		Input:         inputs,
	}

	var resp jinaResponse
	httpResp, err := m.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(m.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call Jina API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("Jina API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("Jina API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(inputs))
	}

	// Sort by index to ensure correct order
	embeddings := make([][]float32, len(inputs))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		if m.cfg.Dimensions > 0 && len(item.Embedding) != m.cfg.Dimensions {
			return nil, fmt.Errorf("%w: model returned %d dimensions, want %d",
				vectormath.ErrDimensionMismatch, len(item.Embedding), m.cfg.Dimensions)
		}
		// Stored vectors must be unit length.
		embeddings[item.Index] = vectormath.L2Normalize(item.Embedding)
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}

	return embeddings, nil
}
