package job

import (
	"context"
	"errors"

	"pixshift/logger"
	"pixshift/metrics"
	"pixshift/models"
)

// ErrNothingToConvert is the only whole-batch failure.
var ErrNothingToConvert = errors.New("No files to convert (all files already converted)")

// Batch snapshots the registry, runs the scheduler and commits results.
type Batch struct {
	Registry  *Registry
	Scheduler *Scheduler
}

func NewBatch(r *Registry, s *Scheduler) *Batch {
	if s == nil {
		s = &Scheduler{}
	}
	return &Batch{Registry: r, Scheduler: s}
}

// Run returns one outcome per eligible job, in registry order.
func (b *Batch) Run(ctx context.Context, req models.BatchRequest) ([]models.Outcome, error) {
	jobs := b.Registry.Snapshot()
	if len(jobs) == 0 {
		metrics.Batch("empty")
		return nil, ErrNothingToConvert
	}

	logger.Infof("starting batch: %d jobs to %s", len(jobs), req.TargetFormat)
	outcomes := b.Scheduler.Run(ctx, jobs, req)

	var results []models.Result
	var skippedN, failedN int
	for _, o := range outcomes {
		switch o.Kind {
		case models.OutcomeConverted:
			results = append(results, o.Result)
		case models.OutcomeSkipped:
			skippedN++
		case models.OutcomeFailed:
			failedN++
		}
	}
	b.Registry.MarkConverted(results)

	logger.Infof("batch finished: %d converted, %d skipped, %d failed", len(results), skippedN, failedN)
	metrics.Batch("ok")
	return outcomes, nil
}

// Convert runs a batch and returns only the converted results, in registry order.
func (b *Batch) Convert(ctx context.Context, req models.BatchRequest) ([]models.Result, error) {
	outcomes, err := b.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return Results(outcomes), nil
}

// Results keeps the converted outcomes.
func Results(outcomes []models.Outcome) []models.Result {
	results := make([]models.Result, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Kind == models.OutcomeConverted {
			results = append(results, o.Result)
		}
	}
	return results
}
