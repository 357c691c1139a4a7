package postgres

import (
	"context"
	"errors"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/akulagin/mlservice/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type predictionsRepo struct{ pool *pgxpool.Pool }

// DebitAndCreate commits the balance debit and the ledger insert together.
// The conditional UPDATE serializes concurrent submissions on the user row,
// so the balance cannot go negative even when the service-level pre-check
// raced a parallel request.
func (r *predictionsRepo) DebitAndCreate(ctx context.Context, userID int64, jobID string, cost float64) (models.Prediction, error) {
	var p models.Prediction
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite})
	if err != nil { return models.Prediction{}, err }
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance - $2 WHERE id=$1 AND balance >= $2`,
		userID, cost)
	if err != nil { return models.Prediction{}, err }
	if ct.RowsAffected() == 0 {
		return models.Prediction{}, apperr.ErrInsufficientCredit
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO predictions(job_id, user_id, cost) VALUES($1,$2,$3)
		 RETURNING id, job_id, user_id, cost, result, created_at`,
		jobID, userID, cost,
	).Scan(&p.ID, &p.JobID, &p.UserID, &p.Cost, &p.Result, &p.CreatedAt)
	if err != nil { return models.Prediction{}, err }

	if err := tx.Commit(ctx); err != nil { return models.Prediction{}, err }
	return p, nil
}

func (r *predictionsRepo) GetByJobID(jobID string) (models.Prediction, error) {
	var p models.Prediction
	err := r.pool.QueryRow(context.Background(),
		`SELECT id, job_id, user_id, cost, result, created_at FROM predictions WHERE job_id=$1`, jobID,
	).Scan(&p.ID, &p.JobID, &p.UserID, &p.Cost, &p.Result, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) { return models.Prediction{}, apperr.ErrNotFound }
	return p, err
}

// SetResultIfUnset persists the fetched result exactly once; a second call
// with any value returns the already-stored row untouched.
func (r *predictionsRepo) SetResultIfUnset(jobID, result string) (models.Prediction, error) {
	_, err := r.pool.Exec(context.Background(),
		`UPDATE predictions SET result=$2 WHERE job_id=$1 AND result IS NULL`,
		jobID, result)
	if err != nil { return models.Prediction{}, err }
	return r.GetByJobID(jobID)
}

func (r *predictionsRepo) ListByUser(userID int64) ([]models.Prediction, error) {
	rows, err := r.pool.Query(context.Background(),
		`SELECT id, job_id, user_id, cost, result, created_at
		   FROM predictions
		  WHERE user_id=$1
		  ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Prediction
	for rows.Next() {
		var p models.Prediction
		if err := rows.Scan(&p.ID, &p.JobID, &p.UserID, &p.Cost, &p.Result, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
