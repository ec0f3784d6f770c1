package db

import (
	"context"
	"fmt"

	"agora/models"
)

// Follow returns false when the follow already existed
func (db *DB) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := db.db.ExecContext(ctx,
		"INSERT INTO follows (follower_id, following_id, created_at) VALUES ($1, $2, NOW()) ON CONFLICT DO NOTHING",
		followerID, followingID,
	)
	if err != nil {
		return false, fmt.Errorf("insert follow: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) Unfollow(ctx context.Context, followerID, followingID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := db.db.ExecContext(ctx,
		"DELETE FROM follows WHERE follower_id = $1 AND following_id = $2",
		followerID, followingID,
	)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("follow: %w", ErrNotFound)
	}
	return nil
}

func (db *DB) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := db.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)",
		followerID, followingID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query error: %w", err)
	}
	return exists, nil
}

func (db *DB) GetFollowCounts(ctx context.Context, userID string) (models.FollowCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	counts := models.FollowCounts{UserId: userID}
	err := db.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM follows WHERE following_id = $1),
			(SELECT COUNT(*) FROM follows WHERE follower_id = $1)`,
		userID,
	).Scan(&counts.Followers, &counts.Following)
	if err != nil {
		return models.FollowCounts{}, fmt.Errorf("query error: %w", err)
	}
	return counts, nil
}

func (db *DB) GetFollowers(ctx context.Context, userID string) ([]models.Author, error) {
	return db.queryAuthors(ctx, `
		SELECT u.id, u.username, u.handle, COALESCE(u.profile_image, '')
		FROM follows f JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC`, userID)
}

func (db *DB) GetFollowing(ctx context.Context, userID string) ([]models.Author, error) {
	return db.queryAuthors(ctx, `
		SELECT u.id, u.username, u.handle, COALESCE(u.profile_image, '')
		FROM follows f JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC`, userID)
}

func (db *DB) queryAuthors(ctx context.Context, query string, args ...interface{}) ([]models.Author, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	authors := []models.Author{}
	for rows.Next() {
		var a models.Author
		if err := rows.Scan(&a.Id, &a.Username, &a.Handle, &a.ProfileImage); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}
