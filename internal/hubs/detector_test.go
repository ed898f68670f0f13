package hubs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/timmy/shotrank/internal/vectormath"
)

// oneHotCorpus returns n images where image i is the i-th basis vector, so a
// probe's cosine with image i is simply its i-th component.
func oneHotCorpus(n int) []Image {
	images := make([]Image, n)
	for i := range images {
		v := make([]float32, n)
		v[i] = 1
		images[i] = Image{ID: fmt.Sprintf("img-%02d", i), Embedding: v}
	}
	return images
}

// probeFor returns a probe whose top two images are first (0.6) and second
// (0.5); every other image scores 0.1.
func probeFor(n, first, second int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = 0.1
	}
	v[first] = 0.6
	v[second] = 0.5
	return v
}

func gatingFixture() ([]Image, [][]float32) {
	const n = 10
	pairs := [][2]int{
		{0, 1}, {0, 1}, {0, 2}, {0, 3}, {0, 4},
		{0, 5}, {6, 7}, {8, 9}, {2, 6}, {3, 7},
	}
	probes := make([][]float32, len(pairs))
	for i, p := range pairs {
		probes[i] = probeFor(n, p[0], p[1])
	}
	return oneHotCorpus(n), probes
}

func TestDetectThresholdGating(t *testing.T) {
	images, probes := gatingFixture()

	report, err := Detect(context.Background(), images, probes, Options{TopN: 2, ThresholdMultiplier: 1.5, Workers: 4})
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}

	if math.Abs(report.ExpectedHubScore-0.2) > 1e-9 {
		t.Errorf("expected hub score = %v, want 0.2", report.ExpectedHubScore)
	}
	if math.Abs(report.Threshold-0.3) > 1e-9 {
		t.Errorf("threshold = %v, want 0.3", report.Threshold)
	}

	// img-01 appears in exactly 2 of 10 top-2 lists, the chance rate.
	// img-00 appears in 6 = 2 × 1.5 × 0.2 × 10.
	if len(report.Hubs) != 1 {
		t.Fatalf("expected exactly one hub, got %+v", report.Hubs)
	}
	hub := report.Hubs[0]
	if hub.ImageID != "img-00" || hub.HubCount != 6 {
		t.Fatalf("unexpected hub %+v", hub)
	}
	if math.Abs(hub.HubScore-0.6) > 1e-9 {
		t.Errorf("hub score = %v, want 0.6", hub.HubScore)
	}
	if math.Abs(hub.AvgCosineSimilarity-0.6) > 1e-6 {
		t.Errorf("avg similarity = %v, want 0.6", hub.AvgCosineSimilarity)
	}
	if math.Abs(hub.AvgCosineSimilarityMargin-0.05) > 1e-6 {
		t.Errorf("avg margin = %v, want 0.05", hub.AvgCosineSimilarityMargin)
	}
	if report.Appeared != 10 {
		t.Errorf("appeared = %d, want 10", report.Appeared)
	}
}

func TestDetectDeterministicAcrossWorkers(t *testing.T) {
	images, probes := gatingFixture()

	base, err := Detect(context.Background(), images, probes, Options{TopN: 3, ThresholdMultiplier: 1.0, Workers: 1})
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	for _, workers := range []int{2, 8} {
		got, err := Detect(context.Background(), images, probes, Options{TopN: 3, ThresholdMultiplier: 1.0, Workers: workers})
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if !reflect.DeepEqual(base.Hubs, got.Hubs) {
			t.Errorf("workers=%d: hubs differ: %+v vs %+v", workers, base.Hubs, got.Hubs)
		}
	}
}

func TestDetectSkipsMismatchedImages(t *testing.T) {
	images, probes := gatingFixture()
	images = append(images, Image{ID: "stale", Embedding: []float32{1, 0}})

	report, err := Detect(context.Background(), images, probes, Options{TopN: 2, ThresholdMultiplier: 1.5})
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if report.Skipped != 1 || report.NumImages != 10 {
		t.Errorf("skipped=%d images=%d, want 1 and 10", report.Skipped, report.NumImages)
	}
}

func TestDetectEdgeCases(t *testing.T) {
	images, probes := gatingFixture()
	ctx := context.Background()

	if _, err := Detect(ctx, images, probes, Options{TopN: 0, ThresholdMultiplier: 1.5}); err == nil {
		t.Error("expected error for zero top n")
	}

	report, err := Detect(ctx, nil, probes, Options{TopN: 2, ThresholdMultiplier: 1.5})
	if err != nil || len(report.Hubs) != 0 {
		t.Errorf("empty corpus: report=%+v err=%v", report, err)
	}

	report, err = Detect(ctx, images, nil, Options{TopN: 2, ThresholdMultiplier: 1.5})
	if err != nil || len(report.Hubs) != 0 {
		t.Errorf("no probes: report=%+v err=%v", report, err)
	}

	bad := append([][]float32{}, probes...)
	bad = append(bad, []float32{1})
	if _, err := Detect(ctx, images, bad, Options{TopN: 2, ThresholdMultiplier: 1.5}); !errors.Is(err, vectormath.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}

	// top n larger than the corpus means every image is always in the top n,
	// so the chance rate is 1 and nothing can exceed it.
	report, err = Detect(ctx, images, probes, Options{TopN: 50, ThresholdMultiplier: 1.0})
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if report.TopN != 10 || len(report.Hubs) != 0 {
		t.Errorf("oversized top n: topN=%d hubs=%v", report.TopN, report.Hubs)
	}
}

func TestDetectCancelled(t *testing.T) {
	images, probes := gatingFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Detect(ctx, images, probes, Options{TopN: 2, ThresholdMultiplier: 1.5}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
