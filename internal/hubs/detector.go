// Package hubs finds images that land in the top results of an unusually
// large share of unrelated probe queries.
package hubs

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/timmy/shotrank/internal/vectormath"
)

// Image is one corpus entry.
type Image struct {
	ID        string
	Embedding []float32
}

// Options controls a detection run.
type Options struct {
	TopN                int
	ThresholdMultiplier float64
	// Workers bounds the number of probe queries scored concurrently.
	// Zero or negative means one worker.
	Workers int
}

// Stats is the hub summary for one flagged image.
type Stats struct {
	ImageID                   string
	HubCount                  int
	HubScore                  float64
	AvgCosineSimilarity       float64
	AvgCosineSimilarityMargin float64
}

// Report is the outcome of a detection run.
type Report struct {
	// Hubs holds only the statistically significant hubs, ordered by hub
	// score descending, then image id.
	Hubs             []Stats
	NumQueries       int
	NumImages        int
	TopN             int
	ExpectedHubScore float64
	Threshold        float64
	// Appeared is the number of images that showed up in at least one top-N.
	Appeared int
	// Skipped counts images whose embedding dimension differs from the probes.
	Skipped int
}

type hit struct {
	index int
	score float64
}

type queryTop struct {
	hits []hit
	mean float64
}

type accumulator struct {
	count     int
	simSum    float64
	marginSum float64
}

// Detect scores every probe against every image, tallies top-N appearances
// and keeps images whose hub score exceeds the chance rate times
// opts.ThresholdMultiplier. Per-probe work runs in parallel; results are
// merged in probe order so the output is deterministic.
func Detect(ctx context.Context, images []Image, probes [][]float32, opts Options) (*Report, error) {
	if opts.TopN <= 0 {
		return nil, fmt.Errorf("hubs: top n must be positive, got %d", opts.TopN)
	}
	if opts.ThresholdMultiplier <= 0 {
		return nil, fmt.Errorf("hubs: threshold multiplier must be positive, got %v", opts.ThresholdMultiplier)
	}

	report := &Report{NumQueries: len(probes)}
	if len(probes) == 0 || len(images) == 0 {
		return report, nil
	}

	dim := len(probes[0])
	for i, p := range probes {
		if len(p) != dim {
			return nil, fmt.Errorf("hubs: probe %d has %d dimensions, want %d: %w", i, len(p), dim, vectormath.ErrDimensionMismatch)
		}
	}

	corpus := make([]Image, 0, len(images))
	for _, img := range images {
		if len(img.Embedding) != dim {
			report.Skipped++
			continue
		}
		corpus = append(corpus, img)
	}
	report.NumImages = len(corpus)
	if len(corpus) == 0 {
		return report, nil
	}

	topN := opts.TopN
	if topN > len(corpus) {
		topN = len(corpus)
	}
	report.TopN = topN

	tops := make([]queryTop, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for qi := range probes {
		qi := qi
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tops[qi] = topForProbe(probes[qi], corpus, topN)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	acc := make([]accumulator, len(corpus))
	for _, top := range tops {
		for _, h := range top.hits {
			a := &acc[h.index]
			a.count++
			a.simSum += h.score
			a.marginSum += h.score - top.mean
		}
	}

	numQueries := float64(len(probes))
	report.ExpectedHubScore = float64(topN) / float64(len(corpus))
	if report.ExpectedHubScore > 1 {
		report.ExpectedHubScore = 1
	}
	report.Threshold = report.ExpectedHubScore * opts.ThresholdMultiplier

	for i, a := range acc {
		if a.count == 0 {
			continue
		}
		report.Appeared++

		hubScore := float64(a.count) / numQueries
		if hubScore <= report.Threshold {
			continue
		}
		report.Hubs = append(report.Hubs, Stats{
			ImageID:                   corpus[i].ID,
			HubCount:                  a.count,
			HubScore:                  hubScore,
			AvgCosineSimilarity:       a.simSum / float64(a.count),
			AvgCosineSimilarityMargin: a.marginSum / float64(a.count),
		})
	}

	sort.Slice(report.Hubs, func(i, j int) bool {
		if report.Hubs[i].HubScore != report.Hubs[j].HubScore {
			return report.Hubs[i].HubScore > report.Hubs[j].HubScore
		}
		return report.Hubs[i].ImageID < report.Hubs[j].ImageID
	})
	return report, nil
}

// topForProbe ranks the corpus against one probe and returns the first topN
// hits with their mean score. Ties are broken by image id.
func topForProbe(probe []float32, corpus []Image, topN int) queryTop {
	hits := make([]hit, len(corpus))
	for i, img := range corpus {
		hits[i] = hit{index: i, score: vectormath.Cosine(probe, img.Embedding)}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return corpus[hits[a].index].ID < corpus[hits[b].index].ID
	})

	hits = hits[:topN]
	var sum float64
	for _, h := range hits {
		sum += h.score
	}

	var mean float64
	if len(hits) > 0 {
		mean = sum / float64(len(hits))
	}
	return queryTop{hits: hits, mean: mean}
}
