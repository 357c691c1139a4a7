package postgres

import (
	repo "github.com/akulagin/mlservice/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Users       repo.Users
	Predictions repo.Predictions
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:       &usersRepo{pool},
		Predictions: &predictionsRepo{pool},
	}
}
