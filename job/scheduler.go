package job

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"pixshift/encoder"
	"pixshift/logger"
	"pixshift/metrics"
	"pixshift/models"
	"pixshift/pool"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the hardware parallelism used when a request asks for 0.
func DefaultConcurrency() int {
	return runtime.NumCPU()
}

// WorkerFaultError is a failure of the worker pool itself, not of the codec.
type WorkerFaultError struct {
	Err error
}

func (e *WorkerFaultError) Error() string {
	return fmt.Sprintf("worker fault: %v", e.Err)
}

func (e *WorkerFaultError) Unwrap() error { return e.Err }

// Scheduler fans jobs out, bounds how many are active at once and returns
// outcomes in submission order.
type Scheduler struct {
	Process  ProcessFunc
	Progress models.ProgressFunc
	// Pool runs the conversion work. When nil, Run starts one sized to the limit.
	Pool *pool.Pool
}

type indexed struct {
	index   int
	outcome models.Outcome
}

// Run converts every job and returns one outcome per job, in input order.
// Cancellation of ctx is not observed mid-batch: a started job always finishes.
func (s *Scheduler) Run(ctx context.Context, jobs []models.ConversionJob, req models.BatchRequest) []models.Outcome {
	limit := int(req.Concurrency)
	if limit <= 0 {
		limit = DefaultConcurrency()
	}
	process := s.Process
	if process == nil {
		process = ConvertJob
	}
	emit := s.Progress
	if emit == nil {
		emit = func(models.ProgressEvent) {}
	}
	workers := s.Pool
	if workers == nil {
		workers = pool.New(limit)
		defer workers.Close()
	}

	ctx = context.WithoutCancel(ctx)
	sem := semaphore.NewWeighted(int64(limit))
	format := encoder.ParseTarget(req.TargetFormat).Format.String()
	results := make(chan indexed, len(jobs))

	logger.Debugf("scheduling %d jobs with limit %d", len(jobs), limit)

	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j models.ConversionJob) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- indexed{i, failed(&j, emit, &WorkerFaultError{Err: err})}
				return
			}
			defer sem.Release(1)

			done := metrics.JobStarted(format)
			var out models.Outcome
			err := workers.Do(func() {
				out = process(ctx, j, req, emit)
			})
			if err != nil {
				out = failed(&j, emit, &WorkerFaultError{Err: err})
			}
			done(out.Kind.String())
			if out.Kind == models.OutcomeConverted {
				metrics.Converted(out.Result.OriginalSize, out.Result.ConvertedSize)
			}
			results <- indexed{i, out}
		}(i, j)
	}
	wg.Wait()
	close(results)

	tagged := make([]indexed, 0, len(jobs))
	for r := range results {
		tagged = append(tagged, r)
	}
	sort.Slice(tagged, func(a, b int) bool { return tagged[a].index < tagged[b].index })

	outcomes := make([]models.Outcome, len(tagged))
	for i, r := range tagged {
		outcomes[i] = r.outcome
	}
	return outcomes
}
