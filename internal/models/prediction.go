package models

import "time"

// Prediction is one ledger row: a dispatched job, its owner and price,
// and the result once the worker has reported it.
type Prediction struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"job_id"`
	UserID    int64     `json:"user_id"`
	Cost      float64   `json:"cost"`
	Result    *string   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}
