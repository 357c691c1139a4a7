package queue

import "context"

type State string

const (
	StateQueued   State = "queued"
	StateStarted  State = "started"
	StateFinished State = "finished"
	StateFailed   State = "failed"
)

// Job is the unit of work handed to a prediction worker.
type Job struct {
	ID       string
	Model    string
	UserID   int64
	Features []float64
}

// Status is the broker-visible state of a dispatched job.
type Status struct {
	State  State
	Result string
	Error  string
}

// Broker dispatches prediction jobs to worker processes and retains their
// state for a bounded window after completion. Submit-side code only calls
// Enqueue and Poll; the rest is the worker's half of the contract.
type Broker interface {
	Enqueue(ctx context.Context, model string, features []float64, userID int64) (string, error)
	Poll(ctx context.Context, jobID string) (Status, error)

	Dequeue(ctx context.Context) (Job, bool, error)
	MarkStarted(ctx context.Context, jobID string) error
	Complete(ctx context.Context, jobID, result string) error
	Fail(ctx context.Context, jobID, reason string) error
	Depth(ctx context.Context) (int64, error)
}
