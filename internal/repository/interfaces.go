package repository

import (
	"context"

	"github.com/akulagin/mlservice/internal/models"
)

type Users interface {
	Create(username, passwordHash string, balance float64) (models.User, error)
	GetByID(id int64) (models.User, error)
	GetByUsername(username string) (models.User, error)
	TouchLastLogin(id int64) error
	AddBalance(id int64, delta float64) (models.User, error)
}

type Predictions interface {
	// DebitAndCreate debits the price from the owner's balance and inserts
	// the ledger row in a single DB transaction. Returns
	// apperr.ErrInsufficientCredit when the balance cannot cover the price.
	DebitAndCreate(ctx context.Context, userID int64, jobID string, cost float64) (models.Prediction, error)
	GetByJobID(jobID string) (models.Prediction, error)
	SetResultIfUnset(jobID, result string) (models.Prediction, error)
	ListByUser(userID int64) ([]models.Prediction, error)
}
