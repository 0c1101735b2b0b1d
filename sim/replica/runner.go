package replica

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/qnetsim/qnetsim/sim"
)

// Model is one runnable replica. *sim.NetworkModel satisfies it. Models that
// also implement io.Closer are closed once their run finishes.
type Model interface {
	Run(ctx context.Context) (*sim.Result, error)
}

// Factory builds the model of replica i. Replicas must not share any
// mutable state: each gets its own sources and random streams.
type Factory func(replica int) (Model, error)

// Runner executes replicas in parallel and aggregates their summaries.
type Runner struct {
	Replicas      int
	Workers       int     // concurrent replicas; 0 means GOMAXPROCS
	Confidence    float64 // two-sided level, e.g. 0.95
	OccupancyBins int
}

// NewRunner creates a Runner with the default confidence level and occupancy bins.
func NewRunner(replicas, workers int) *Runner {
	return &Runner{
		Replicas:      replicas,
		Workers:       workers,
		Confidence:    DefaultConfidence,
		OccupancyBins: DefaultOccupancyBins,
	}
}

// Validate checks the runner configuration.
func (r *Runner) Validate() error {
	if r.Replicas < 2 {
		return fmt.Errorf("replica count must be at least 2 for confidence intervals, got %d", r.Replicas)
	}
	if r.Workers < 0 {
		return fmt.Errorf("worker count must be non-negative, got %d", r.Workers)
	}
	if r.OccupancyBins < 1 {
		return fmt.Errorf("occupancy bins must be positive, got %d", r.OccupancyBins)
	}
	return ValidateConfidence(r.Confidence)
}

// Run builds every replica in order, runs them on a bounded worker pool and
// aggregates the summaries once all have finished. Models are built
// sequentially so that stream assignment does not depend on scheduling.
func (r *Runner) Run(ctx context.Context, factory Factory) (*Report, error) {
	summaries, err := r.RunReplicas(ctx, factory)
	if err != nil {
		return nil, err
	}
	return BuildReport(summaries, r.Confidence)
}

// RunReplicas runs every replica and returns the summaries in replica order.
func (r *Runner) RunReplicas(ctx context.Context, factory Factory) ([]Summary, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	models := make([]Model, r.Replicas)
	for i := range models {
		m, err := factory(i)
		if err != nil {
			closeModels(models[:i])
			return nil, fmt.Errorf("building replica %d: %w", i, err)
		}
		models[i] = m
	}

	workers := r.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	summaries := make([]Summary, r.Replicas)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, m := range models {
		i, m := i, m // per-iteration copies (go 1.22 loopvar semantics on a go 1.21 toolchain)
		g.Go(func() error {
			defer closeModels([]Model{m})
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := m.Run(gctx)
			if err != nil {
				return fmt.Errorf("replica %d: %w", i, err)
			}
			if res.Exhausted {
				logrus.Warnf("replica %d: variate stream exhausted after %d departures; statistics are partial", i, res.Departures)
			}
			summaries[i] = SummarizeResult(i, res, r.OccupancyBins)
			logrus.Debugf("replica %d finished at clock %.6f", i, res.Clock)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func closeModels(models []Model) {
	for _, m := range models {
		if c, ok := m.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logrus.Warnf("closing replica: %v", err)
			}
		}
	}
}
