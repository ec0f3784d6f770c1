package db

import (
	"context"
	"fmt"
	"time"

	"agora/models"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

func (db *DB) CreateNotification(ctx context.Context, notification models.Notification) (models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	notification.Id = uuid.NewString()
	notification.Read = false
	notification.CreatedAt = time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("notifications").
		Cols("id", "type", "user_id", "source_id", "post_id", "message", "read", "created_at").
		Values(
			notification.Id,
			string(notification.Type),
			notification.UserId,
			nullable(notification.SourceId),
			nullable(notification.PostId),
			notification.Message,
			false,
			notification.CreatedAt,
		)

	query, args := ib.Build()
	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return models.Notification{}, fmt.Errorf("insert notification: %w", translate(err))
	}
	return notification, nil
}

// GetNotifications returns one page of notifications, newest first
func (db *DB) GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"id", "type", "read", "user_id",
		"COALESCE(source_id, '')", "COALESCE(post_id, '')", "COALESCE(message, '')",
		"created_at",
	).
		From("notifications").
		Where(sb.Equal("user_id", userID)).
		OrderBy("created_at DESC", "id DESC").
		Limit(pageSize).
		Offset(offset(page, pageSize))

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var kind string
		if err := rows.Scan(&n.Id, &kind, &n.Read, &n.UserId, &n.SourceId, &n.PostId, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		n.Type = models.NotificationType(kind)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (db *DB) MarkNotificationsRead(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := db.db.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read", userID)
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
