package models

import (
	"errors"
	"strings"
	"time"
)

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Balance      float64    `json:"balance"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (u *User) Validate() error {
	if len(strings.TrimSpace(u.Username)) < 3 { return errors.New("username too short") }
	return nil
}
