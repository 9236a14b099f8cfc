package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/mpls-liquor-etl/internal/domain"
	"github.com/couchcryptid/mpls-liquor-etl/internal/observability"
)

// FeedExtractor reads the license feed as a flat table.
type FeedExtractor interface {
	Extract(ctx context.Context) (domain.Table, error)
}

// WardExtractor reads the raw ward boundary rows.
type WardExtractor interface {
	ExtractWards(ctx context.Context) ([]domain.WardFeature, error)
}

// DatasetLoader publishes the derived dataset to a sink.
type DatasetLoader interface {
	LoadDataset(ctx context.Context, ds domain.Dataset) error
}

// StageCounts records the row count after each stage of a run.
type StageCounts struct {
	Loaded       int `json:"loaded"`
	Cleaned      int `json:"cleaned"`
	Filtered     int `json:"filtered"`
	Endorsements int `json:"endorsements"`
	Wards        int `json:"wards"`
}

// Result is the immutable output of one completed run.
type Result struct {
	Dataset     domain.Dataset
	Wards       []domain.WardPolygon
	Counts      StageCounts
	CompletedAt time.Time
}

// Pipeline runs load, clean, filter, derive and ward preparation once, in order.
type Pipeline struct {
	feed    FeedExtractor
	wards   WardExtractor
	loader  DatasetLoader
	logger  *slog.Logger
	metrics *observability.Metrics
	latest  atomic.Pointer[Result]
}

// New creates a Pipeline. loader may be nil when no sink is configured.
func New(feed FeedExtractor, wards WardExtractor, loader DatasetLoader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		feed:    feed,
		wards:   wards,
		loader:  loader,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.latest.Load() == nil {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Latest returns the result of the last successful run, or nil.
func (p *Pipeline) Latest() *Result {
	return p.latest.Load()
}

// Run executes every stage once. The first stage error aborts the run and is
// returned; a failed run leaves the previous result in place.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	res, err := p.run(ctx)
	if err != nil {
		p.metrics.PipelineRuns.WithLabelValues("error").Inc()
		p.logger.Error("pipeline failed", "error", err)
		return nil, err
	}

	p.metrics.PipelineRuns.WithLabelValues("success").Inc()
	p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	p.latest.Store(res)
	p.logger.Info("pipeline complete",
		"licenses", len(res.Dataset.Licenses),
		"endorsements", len(res.Dataset.Endorsements),
		"wards", len(res.Wards),
		"duration", time.Since(start),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	table, err := p.feed.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	p.recordStage(observability.StageLoad, len(table.Rows), len(table.Rows))

	cleaned, err := domain.Clean(table)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	p.recordStage(observability.StageClean, len(table.Rows), len(cleaned))

	filtered := domain.Filter(cleaned)
	p.recordStage(observability.StageFilter, len(cleaned), len(filtered))

	ds := domain.DeriveFeatures(filtered)
	p.recordStage(observability.StageDerive, len(filtered), len(ds.Licenses))
	p.metrics.EndorsementColumns.Set(float64(len(ds.Endorsements)))

	features, err := p.wards.ExtractWards(ctx)
	if err != nil {
		return nil, fmt.Errorf("wards: %w", err)
	}
	wards, err := domain.PrepareWards(features)
	if err != nil {
		return nil, fmt.Errorf("wards: %w", err)
	}
	p.metrics.WardsLoaded.Set(float64(len(wards)))

	if p.loader != nil {
		if err := p.loader.LoadDataset(ctx, ds); err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}
	}

	return &Result{
		Dataset: ds,
		Wards:   wards,
		Counts: StageCounts{
			Loaded:       len(table.Rows),
			Cleaned:      len(cleaned),
			Filtered:     len(filtered),
			Endorsements: len(ds.Endorsements),
			Wards:        len(wards),
		},
		CompletedAt: domain.Now(),
	}, nil
}

func (p *Pipeline) recordStage(stage string, in, out int) {
	p.metrics.RowsRetained.WithLabelValues(stage).Set(float64(out))
	if in > out {
		p.metrics.RowsDropped.WithLabelValues(stage).Add(float64(in - out))
	}
	p.logger.Debug("stage complete", "stage", stage, "rows_in", in, "rows_out", out)
}
