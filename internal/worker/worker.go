package worker

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/akulagin/mlservice/internal/metrics"
	"github.com/akulagin/mlservice/internal/predictor"
	"github.com/akulagin/mlservice/internal/queue"
)

// Runner consumes prediction jobs from the broker and executes them against
// an immutable model registry. Task errors are reported through the broker's
// failure state; they never take the process down.
type Runner struct {
	broker   queue.Broker
	registry *predictor.Registry
	log      *slog.Logger
	conc     int
}

func NewRunner(b queue.Broker, reg *predictor.Registry, log *slog.Logger, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{broker: b, registry: reg, log: log, conc: concurrency}
}

// Run blocks until ctx is cancelled, dequeuing with conc goroutines.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.conc; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(ctx)
		}()
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		job, ok, err := r.broker.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("dequeue", "err", err)
			continue
		}
		if !ok {
			continue
		}
		r.process(ctx, job)
	}
}

func (r *Runner) process(ctx context.Context, job queue.Job) {
	if err := r.broker.MarkStarted(ctx, job.ID); err != nil {
		r.log.Error("mark started", "job", job.ID, "err", err)
	}

	model, err := r.registry.Get(job.Model)
	if err != nil {
		r.fail(ctx, job, err.Error())
		return
	}
	result, err := model.Predict(job.Features)
	if err != nil {
		r.fail(ctx, job, err.Error())
		return
	}

	out := strconv.FormatFloat(result, 'g', -1, 64)
	if err := r.broker.Complete(ctx, job.ID, out); err != nil {
		r.log.Error("complete", "job", job.ID, "err", err)
		return
	}
	metrics.PredictionsTotal.WithLabelValues(job.Model).Inc()
	r.log.Info("prediction finished", "job", job.ID, "model", job.Model, "user_id", job.UserID)
}

func (r *Runner) fail(ctx context.Context, job queue.Job, reason string) {
	metrics.PredictionsFailed.Inc()
	r.log.Warn("prediction failed", "job", job.ID, "model", job.Model, "reason", reason)
	if err := r.broker.Fail(ctx, job.ID, reason); err != nil {
		r.log.Error("mark failed", "job", job.ID, "err", err)
	}
}
