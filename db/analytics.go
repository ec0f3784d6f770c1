package db

import (
	"context"
	"fmt"

	"agora/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

// GetAnalytics summarises the reach of userID's posts
func (db *DB) GetAnalytics(ctx context.Context, userID string, timeAgg string) (models.Analytics, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var analytics models.Analytics
	err := db.db.QueryRowContext(queryCtx, `
		SELECT
			(SELECT COUNT(*) FROM posts WHERE author_id = $1),
			(SELECT COUNT(*) FROM likes l JOIN posts p ON p.id = l.post_id WHERE p.author_id = $1),
			(SELECT COUNT(*) FROM comments c JOIN posts p ON p.id = c.post_id WHERE p.author_id = $1),
			(SELECT COALESCE(SUM(impressions), 0) FROM posts WHERE author_id = $1),
			(SELECT COUNT(*) FROM follows WHERE following_id = $1)`,
		userID,
	).Scan(
		&analytics.Posts,
		&analytics.Likes,
		&analytics.Comments,
		&analytics.Impressions,
		&analytics.Followers,
	)
	if err != nil {
		return models.Analytics{}, fmt.Errorf("query error: %w", err)
	}

	analytics.PostsByTime, err = db.GetPostCountPerTime(ctx, userID, timeAgg)
	if err != nil {
		return models.Analytics{}, err
	}
	return analytics, nil
}

// GetPostCountPerTime counts an author's posts per hour, day or week
func (db *DB) GetPostCountPerTime(ctx context.Context, authorID string, timeAgg string) ([]models.PostsAggregatedByTime, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sqlFormat string
	switch timeAgg {
	case "hour":
		sqlFormat = "date_trunc('hour', created_at)"
	case "day":
		sqlFormat = "date_trunc('day', created_at)"
	case "week":
		sqlFormat = "date_trunc('week', created_at)"
	default:
		sqlFormat = "date_trunc('day', created_at)"
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sqlFormat, "count(*) as count").From("posts")
	if authorID != "" {
		sb.Where(sb.Equal("author_id", authorID))
	}
	sb.GroupBy(sqlFormat)
	sb.OrderBy(sqlFormat).Asc()

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	postCounts := []models.PostsAggregatedByTime{}
	for rows.Next() {
		var postCount models.PostsAggregatedByTime
		if err := rows.Scan(&postCount.Time, &postCount.Count); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		postCounts = append(postCounts, postCount)
	}

	return postCounts, rows.Err()
}
