package database

import (
	"context"
	"fmt"

	"todoapi/models"
)

const selectUser = `SELECT id, username, email, password_hash, created_at FROM users`

// CreateUser inserts a user. A taken username or email yields ErrConflict.
func (d *DB) CreateUser(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now(),
	}
	stmt := d.rebind(`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	if err := d.db.QueryRowxContext(ctx, stmt, u.Username, u.Email, u.PasswordHash, u.CreatedAt).Scan(&u.ID); err != nil {
		return models.User{}, fmt.Errorf("creating user %q: %w", username, classify(err))
	}
	return u, nil
}

func (d *DB) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u models.User
	if err := d.db.GetContext(ctx, &u, d.rebind(selectUser+` WHERE id = ?`), id); err != nil {
		return models.User{}, fmt.Errorf("getting user %d: %w", id, classify(err))
	}
	return u, nil
}

func (d *DB) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u models.User
	if err := d.db.GetContext(ctx, &u, d.rebind(selectUser+` WHERE username = ?`), username); err != nil {
		return models.User{}, fmt.Errorf("getting user %q: %w", username, classify(err))
	}
	return u, nil
}
