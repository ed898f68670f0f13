package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/prompts"
	"github.com/timmy/shotrank/internal/repository"
)

func TestExpandConcreteQuery(t *testing.T) {
	gen := &fakeGenerator{phrases: []string{"unused"}}
	expander := NewQueryExpander(repository.NewQueryExpansionRepository(openTestDB(t)), gen)

	got, err := expander.Expand(context.Background(), "  Pricing Table ", "")
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if got.Route != QueryRouteConcrete || len(got.Expansions) != 1 || got.Expansions[0] != "pricing table" {
		t.Errorf("unexpected expansion %+v", got)
	}
	if gen.callCount() != 0 {
		t.Errorf("concrete queries must not call the generator")
	}
}

func TestExpandGeneratesOncePerKey(t *testing.T) {
	ctx := context.Background()
	cache := repository.NewQueryExpansionRepository(openTestDB(t))
	gen := &fakeGenerator{phrases: []string{"warm wood textures", "soft candle lighting photos"}}
	expander := NewQueryExpander(cache, gen)

	first, err := expander.Expand(ctx, "Cozy", "website")
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	curated := prompts.CuratedFor("cozy", "website")
	if first.CuratedCount != len(curated) || first.GeneratedCount != 2 {
		t.Fatalf("unexpected counts %+v", first)
	}
	if first.Expansions[0] != curated[0] {
		t.Errorf("curated expansions must come first, got %q", first.Expansions[0])
	}
	if last := first.Expansions[len(first.Expansions)-1]; last != "soft candle lighting photos" {
		t.Errorf("generated order not kept, last = %q", last)
	}

	second, err := expander.Expand(ctx, "cozy", "website")
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if len(second.Expansions) != len(first.Expansions) {
		t.Errorf("cached expansion differs: %v vs %v", second.Expansions, first.Expansions)
	}
	if gen.callCount() != 1 {
		t.Errorf("generator called %d times, want 1", gen.callCount())
	}

	rows, err := cache.Find(ctx, "cozy", "website", domain.ExpansionSourceGenerated)
	if err != nil || len(rows) != 2 {
		t.Errorf("expected 2 cached rows, got %d (%v)", len(rows), err)
	}

	// A different category is a different cache key.
	if _, err := expander.Expand(ctx, "cozy", "packaging"); err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if gen.callCount() != 2 {
		t.Errorf("generator called %d times, want 2", gen.callCount())
	}
}

func TestExpandFillSurvivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := repository.NewQueryExpansionRepository(openTestDB(t))
	gen := &fakeGenerator{
		phrases:    []string{"pastel gradients", "rounded soft buttons"},
		onGenerate: cancel,
	}
	expander := NewQueryExpander(cache, gen)

	got, err := expander.Expand(ctx, "calm", "")
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if got.GeneratedCount != 2 {
		t.Errorf("GeneratedCount = %d, want 2", got.GeneratedCount)
	}

	rows, err := cache.Find(context.Background(), "calm", "", domain.ExpansionSourceGenerated)
	if err != nil || len(rows) != 2 {
		t.Errorf("expected 2 cached rows, got %d (%v)", len(rows), err)
	}
}

func TestExpandConcurrentFillsDoNotDuplicate(t *testing.T) {
	ctx := context.Background()
	cache := repository.NewQueryExpansionRepository(openTestDB(t))
	gen := &fakeGenerator{phrases: []string{"neon glow accents", "dark backgrounds"}}
	expander := NewQueryExpander(cache, gen)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := expander.Expand(ctx, "moody", ""); err != nil {
				t.Errorf("Expand() error: %v", err)
			}
		}()
	}
	wg.Wait()

	rows, err := cache.Find(ctx, "moody", "", domain.ExpansionSourceGenerated)
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 cached rows, got %d", len(rows))
	}
}

func TestExpandGenerationFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errFake}
	expander := NewQueryExpander(repository.NewQueryExpansionRepository(openTestDB(t)), gen)

	withCurated, err := expander.Expand(ctx, "elegant", "")
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if withCurated.GeneratedCount != 0 || len(withCurated.Expansions) != len(prompts.CuratedFor("elegant", "")) {
		t.Errorf("expected curated-only expansion, got %+v", withCurated)
	}

	nothing, err := expander.Expand(ctx, "mysterious", "")
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if !nothing.Fallback || len(nothing.Expansions) != 1 || nothing.Expansions[0] != "mysterious" {
		t.Errorf("expected fallback to the query, got %+v", nothing)
	}
}

func TestExpandWithoutGenerator(t *testing.T) {
	expander := NewQueryExpander(nil, nil)

	got, err := expander.Expand(context.Background(), "quirky", "")
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if !got.Fallback || got.Expansions[0] != "quirky" {
		t.Errorf("unexpected expansion %+v", got)
	}

	if _, err := expander.Expand(context.Background(), "   ", ""); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}
