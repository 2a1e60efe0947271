package dbgen

import (
	"context"
	"database/sql"
)

const notificationColumns = `id, user_id, audience, kind, title, message, is_read, created_at`

const createNotification = `-- name: CreateNotification :one
INSERT INTO notifications (user_id, audience, kind, title, message)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + notificationColumns

type CreateNotificationParams struct {
	UserID   sql.NullInt64 `json:"user_id"`
	Audience string        `json:"audience"`
	Kind     string        `json:"kind"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRowContext(ctx, createNotification,
		arg.UserID,
		arg.Audience,
		arg.Kind,
		arg.Title,
		arg.Message,
	)
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Audience,
		&i.Kind,
		&i.Title,
		&i.Message,
		&i.IsRead,
		&i.CreatedAt,
	)
	return i, err
}

const listNotificationsForUser = `-- name: ListNotificationsForUser :many
SELECT ` + notificationColumns + `
FROM notifications
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`

type ListNotificationsForUserParams struct {
	UserID int64 `json:"user_id"`
	Limit  int64 `json:"limit"`
}

func (q *Queries) ListNotificationsForUser(ctx context.Context, arg ListNotificationsForUserParams) ([]Notification, error) {
	return q.queryNotifications(ctx, listNotificationsForUser, arg.UserID, arg.Limit)
}

const listStaffNotifications = `-- name: ListStaffNotifications :many
SELECT ` + notificationColumns + `
FROM notifications
WHERE audience = 'staff'
ORDER BY created_at DESC, id DESC
LIMIT ?`

func (q *Queries) ListStaffNotifications(ctx context.Context, limit int64) ([]Notification, error) {
	return q.queryNotifications(ctx, listStaffNotifications, limit)
}

func (q *Queries) queryNotifications(ctx context.Context, query string, args ...interface{}) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Notification
	for rows.Next() {
		var i Notification
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Audience,
			&i.Kind,
			&i.Title,
			&i.Message,
			&i.IsRead,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markNotificationRead = `-- name: MarkNotificationRead :execrows
UPDATE notifications
SET is_read = 1
WHERE id = ?
  AND user_id = ?`

type MarkNotificationReadParams struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markNotificationRead, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countUnreadNotifications = `-- name: CountUnreadNotifications :one
SELECT COUNT(*)
FROM notifications
WHERE user_id = ?
  AND is_read = 0`

func (q *Queries) CountUnreadNotifications(ctx context.Context, userID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUnreadNotifications, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
