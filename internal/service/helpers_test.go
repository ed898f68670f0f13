package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/timmy/shotrank/internal/imagehash"
	"github.com/timmy/shotrank/internal/repository"
	"github.com/timmy/shotrank/internal/vectormath"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeModel embeds known texts to fixed vectors and everything else to
// fallback. Images embed to imageVector.
type fakeModel struct {
	mu          sync.Mutex
	dims        int
	texts       map[string][]float32
	fallback    []float32
	imageVector []float32
	textCalls   int
	imageCalls  int
	hashCalls   int
	err         error
}

func newFakeModel(dims int) *fakeModel {
	fallback := make([]float32, dims)
	fallback[0] = 1
	return &fakeModel{
		dims:        dims,
		texts:       map[string][]float32{},
		fallback:    fallback,
		imageVector: fallback,
	}
}

func (m *fakeModel) Model() string   { return "fake-clip" }
func (m *fakeModel) Dimensions() int { return m.dims }

func (m *fakeModel) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textCalls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := m.texts[text]
		if !ok {
			v = m.fallback
		}
		out[i] = vectormath.L2Normalize(v)
	}
	return out, nil
}

func (m *fakeModel) EmbedImage(ctx context.Context, data []byte, format string) ([]float32, string, error) {
	m.mu.Lock()
	m.hashCalls++
	m.mu.Unlock()
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

func (m *fakeModel) EmbedImageData(ctx context.Context, data []byte, format string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageCalls++
	if m.err != nil {
		return nil, m.err
	}
	return vectormath.L2Normalize(m.imageVector), nil
}

func (m *fakeModel) hashedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashCalls
}

func (m *fakeModel) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textCalls, m.imageCalls
}

type fakeGenerator struct {
	mu      sync.Mutex
	phrases []string
	err     error
	calls   int
	// onGenerate runs before the generator answers.
	onGenerate func()
}

func (g *fakeGenerator) Model() string { return "fake-llm" }

func (g *fakeGenerator) Generate(ctx context.Context, term, category string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.onGenerate != nil {
		g.onGenerate()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.phrases, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var errFake = errors.New("fake failure")

// pngBytes encodes a w×h image filled with c.
func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
