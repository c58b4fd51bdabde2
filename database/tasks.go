package database

import (
	"context"
	"fmt"
	"strings"

	"todoapi/models"
)

const selectTask = `SELECT id, user_id, title, description, completed, priority, due_date, created_at, updated_at FROM tasks`

// CreateTask inserts t for t.UserID. Completed always starts false and an empty
// priority becomes medium.
func (d *DB) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	t.Completed = false
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt

	stmt := d.rebind(`INSERT INTO tasks (user_id, title, description, completed, priority, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := d.db.QueryRowxContext(ctx, stmt,
		t.UserID, t.Title, t.Description, t.Completed, t.Priority, t.DueDate, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return models.Task{}, fmt.Errorf("creating task for user %d: %w", t.UserID, classify(err))
	}
	return t, nil
}

// ListTasks returns the user's tasks matching filter, oldest first.
func (d *DB) ListTasks(ctx context.Context, userID int64, filter models.TaskFilter) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conditions := []string{"user_id = ?"}
	args := []any{userID}
	if filter.Completed != nil {
		conditions = append(conditions, "completed = ?")
		args = append(args, *filter.Completed)
	}
	if filter.Priority != "" {
		conditions = append(conditions, "priority = ?")
		args = append(args, filter.Priority)
	}

	query := selectTask + " WHERE " + strings.Join(conditions, " AND ") + " ORDER BY id"

	tasks := []models.Task{}
	if err := d.db.SelectContext(ctx, &tasks, d.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing tasks for user %d: %w", userID, classify(err))
	}
	return tasks, nil
}

func (d *DB) GetTask(ctx context.Context, taskID, userID int64) (models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t models.Task
	if err := d.db.GetContext(ctx, &t, d.rebind(selectTask+` WHERE id = ? AND user_id = ?`), taskID, userID); err != nil {
		return models.Task{}, fmt.Errorf("getting task %d: %w", taskID, classify(err))
	}
	return t, nil
}

// UpdateTask applies the non-nil fields of upd to the user's task and refreshes
// updated_at, even when upd is empty.
func (d *DB) UpdateTask(ctx context.Context, taskID, userID int64, upd models.TaskUpdate) (models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Task{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := selectTask + ` WHERE id = ? AND user_id = ?`
	if d.driver == driverPostgres {
		query += " FOR UPDATE"
	}

	var t models.Task
	if err := tx.GetContext(ctx, &t, tx.Rebind(query), taskID, userID); err != nil {
		return models.Task{}, fmt.Errorf("getting task %d: %w", taskID, classify(err))
	}

	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Completed != nil {
		t.Completed = *upd.Completed
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.DueDate != nil {
		t.DueDate = upd.DueDate
	}
	t.UpdatedAt = now()

	stmt := tx.Rebind(`UPDATE tasks SET title = ?, description = ?, completed = ?, priority = ?, due_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`)
	if _, err := tx.ExecContext(ctx, stmt,
		t.Title, t.Description, t.Completed, t.Priority, t.DueDate, t.UpdatedAt, t.ID, t.UserID,
	); err != nil {
		return models.Task{}, fmt.Errorf("updating task %d: %w", taskID, classify(err))
	}

	if err := tx.Commit(); err != nil {
		return models.Task{}, fmt.Errorf("committing task %d: %w", taskID, err)
	}
	return t, nil
}

// DeleteTask removes the task only if it belongs to userID; otherwise ErrNotFound.
func (d *DB) DeleteTask(ctx context.Context, taskID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, d.rebind(`DELETE FROM tasks WHERE id = ? AND user_id = ?`), taskID, userID)
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", taskID, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", taskID, err)
	}
	if n == 0 {
		return fmt.Errorf("task %d for user %d: %w", taskID, userID, ErrNotFound)
	}
	return nil
}
