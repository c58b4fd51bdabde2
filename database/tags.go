package database

import (
	"context"
	"fmt"

	"todoapi/models"
)

// CreateTag inserts a tag owned by userID. An empty color falls back to
// models.DefaultTagColor. A userID with no user row yields ErrInvalidReference.
func (d *DB) CreateTag(ctx context.Context, userID int64, name, color string) (models.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if color == "" {
		color = models.DefaultTagColor
	}
	tag := models.Tag{UserID: userID, Name: name, Color: color}

	stmt := d.rebind(`INSERT INTO tags (user_id, name, color) VALUES (?, ?, ?) RETURNING id`)
	if err := d.db.QueryRowxContext(ctx, stmt, tag.UserID, tag.Name, tag.Color).Scan(&tag.ID); err != nil {
		return models.Tag{}, fmt.Errorf("creating tag for user %d: %w", userID, classify(err))
	}
	return tag, nil
}

// ListTags returns the user's tags in insertion order. No tags is an empty
// slice, not an error.
func (d *DB) ListTags(ctx context.Context, userID int64) ([]models.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tags := []models.Tag{}
	stmt := d.rebind(`SELECT id, user_id, name, color FROM tags WHERE user_id = ? ORDER BY id`)
	if err := d.db.SelectContext(ctx, &tags, stmt, userID); err != nil {
		return nil, fmt.Errorf("listing tags for user %d: %w", userID, classify(err))
	}
	return tags, nil
}

// DeleteTag removes the tag only if it belongs to userID; otherwise ErrNotFound.
func (d *DB) DeleteTag(ctx context.Context, tagID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, d.rebind(`DELETE FROM tags WHERE id = ? AND user_id = ?`), tagID, userID)
	if err != nil {
		return fmt.Errorf("deleting tag %d: %w", tagID, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting tag %d: %w", tagID, err)
	}
	if n == 0 {
		return fmt.Errorf("tag %d for user %d: %w", tagID, userID, ErrNotFound)
	}
	return nil
}
