package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/akulagin/mlservice/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type usersRepo struct{ pool *pgxpool.Pool }

func (r *usersRepo) Create(username, passwordHash string, balance float64) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(context.Background(),
		`INSERT INTO users(username, password_hash, balance) VALUES($1,$2,$3)
		 RETURNING id, username, password_hash, balance, last_login_at, created_at`,
		username, passwordHash, balance,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Balance, &u.LastLoginAt, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, fmt.Errorf("username %q: %w", username, apperr.ErrConflict)
		}
		return models.User{}, err
	}
	return u, nil
}

func (r *usersRepo) GetByID(id int64) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(context.Background(),
		`SELECT id, username, password_hash, balance, last_login_at, created_at FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Balance, &u.LastLoginAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) { return models.User{}, apperr.ErrNotFound }
	return u, err
}

func (r *usersRepo) GetByUsername(username string) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(context.Background(),
		`SELECT id, username, password_hash, balance, last_login_at, created_at FROM users WHERE username=$1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Balance, &u.LastLoginAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) { return models.User{}, apperr.ErrNotFound }
	return u, err
}

func (r *usersRepo) TouchLastLogin(id int64) error {
	_, err := r.pool.Exec(context.Background(),
		`UPDATE users SET last_login_at=now() WHERE id=$1`, id)
	return err
}

func (r *usersRepo) AddBalance(id int64, delta float64) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(context.Background(),
		`UPDATE users SET balance = balance + $2 WHERE id=$1
		 RETURNING id, username, password_hash, balance, last_login_at, created_at`,
		id, delta,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Balance, &u.LastLoginAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) { return models.User{}, apperr.ErrNotFound }
	return u, err
}
