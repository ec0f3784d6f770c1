package db

import (
	"context"
	"fmt"
	"time"

	sb "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Tidy removes read notifications older than maxAge and returns how many
// were deleted
func (db *DB) Tidy(ctx context.Context, maxAge time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cutoff := time.Now().Add(-maxAge)
	deleteNotifications := sb.PostgreSQL.NewDeleteBuilder()
	sql, args := deleteNotifications.DeleteFrom("notifications").
		Where(
			"read",
			deleteNotifications.LessEqualThan("created_at", cutoff),
		).Build()

	log.WithFields(log.Fields{
		"sql":  sql,
		"args": args,
	}).Info("Tidying database")

	res, err := db.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete error: %w", err)
	}
	return res.RowsAffected()
}
