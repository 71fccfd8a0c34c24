package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

// SynthesisOptions tunes cross-run synthesis. Zero values fall back to the
// package defaults.
type SynthesisOptions struct {
	SimilarityThreshold float64
	Cap                 int
	TopicTokens         int
}

func (o SynthesisOptions) withDefaults() SynthesisOptions {
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = critique.DefaultSimilarityThreshold
	}
	if o.Cap <= 0 {
		o.Cap = critique.DefaultSynthesisCap
	}
	if o.TopicTokens <= 0 {
		o.TopicTokens = critique.DefaultTopicTokens
	}
	return o
}

// SynthesizedPointSet is the deduplicated, capped union of every persisted run.
type SynthesizedPointSet struct {
	Points      critique.PointSet `json:"points"`
	Runs        int               `json:"runs"`
	RawCount    int               `json:"raw_count"`
	MergedCount int               `json:"merged_count"`
	Reduced     bool              `json:"reduced"`
}

type SynthesisService struct {
	log    critique.AnalysisLog
	opts   SynthesisOptions
	logger *slog.Logger
}

func NewSynthesisService(log critique.AnalysisLog, opts SynthesisOptions, logger *slog.Logger) *SynthesisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SynthesisService{log: log, opts: opts.withDefaults(), logger: logger}
}

// Synthesize recomputes the synthesized set from the full history.
func (s *SynthesisService) Synthesize(ctx context.Context) (*SynthesizedPointSet, error) {
	history, err := s.log.LoadAllHistoricalPointSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load analysis history: %w", err)
	}

	var union critique.PointSet
	for _, run := range history {
		union = append(union, run...)
	}

	merged := critique.Merge(union, s.opts.SimilarityThreshold)
	result := &SynthesizedPointSet{
		Points:      merged,
		Runs:        len(history),
		RawCount:    len(union),
		MergedCount: len(merged),
	}
	if len(merged) > s.opts.Cap {
		result.Points = critique.Reduce(merged, s.opts.Cap, s.opts.TopicTokens)
		result.Reduced = true
	}
	if result.Points == nil {
		result.Points = critique.PointSet{}
	}

	synthesizedPoints.WithLabelValues("raw").Observe(float64(result.RawCount))
	synthesizedPoints.WithLabelValues("merged").Observe(float64(result.MergedCount))
	synthesizedPoints.WithLabelValues("final").Observe(float64(len(result.Points)))
	s.logger.Debug("synthesized history", "runs", result.Runs, "raw", result.RawCount, "merged", result.MergedCount, "final", len(result.Points))
	return result, nil
}
