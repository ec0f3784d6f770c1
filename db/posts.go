package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"agora/models"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

func (db *DB) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	execCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	post.Id = uuid.NewString()
	now := time.Now().UTC()

	log.WithFields(log.Fields{
		"id":        post.Id,
		"author":    post.AuthorId,
		"community": post.CommunityId,
		"languages": post.Languages,
	}).Info("Creating post")

	images := post.Images
	if images == nil {
		images = []string{}
	}
	languages := post.Languages
	if languages == nil {
		languages = []string{}
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("posts").
		Cols("id", "text", "images", "author_id", "community_id", "languages", "created_at", "updated_at").
		Values(post.Id, post.Text, pq.Array(images), post.AuthorId, post.CommunityId, pq.Array(languages), now, now)

	query, args := ib.Build()
	if _, err := db.db.ExecContext(execCtx, query, args...); err != nil {
		return models.Post{}, fmt.Errorf("insert post: %w", translate(err))
	}

	return db.GetPost(ctx, post.Id)
}

func (db *DB) GetPost(ctx context.Context, id string) (models.Post, error) {
	sb := NewPostSelect()
	sb.Where(sb.Equal("posts.id", id))

	query, args := sb.Build()
	posts, err := db.QueryPosts(ctx, query, args)
	if err != nil {
		return models.Post{}, err
	}
	if len(posts) == 0 {
		return models.Post{}, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return posts[0], nil
}

func (db *DB) DeletePost(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	log.WithField("id", id).Info("Deleting post")
	res, err := db.db.ExecContext(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return nil
}

// insertPair inserts a (post, user) row and reports whether it was new
func (db *DB) insertPair(ctx context.Context, table, postID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := db.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (post_id, user_id, created_at) VALUES ($1, $2, NOW()) ON CONFLICT DO NOTHING", table),
		postID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", table, translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) deletePair(ctx context.Context, table, postID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := db.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE post_id = $1 AND user_id = $2", table),
		postID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", table, ErrNotFound)
	}
	return nil
}

// LikePost returns false when the user had already liked the post
func (db *DB) LikePost(ctx context.Context, postID, userID string) (bool, error) {
	return db.insertPair(ctx, "likes", postID, userID)
}

func (db *DB) UnlikePost(ctx context.Context, postID, userID string) error {
	return db.deletePair(ctx, "likes", postID, userID)
}

// BookmarkPost returns false when the post was already bookmarked
func (db *DB) BookmarkPost(ctx context.Context, postID, userID string) (bool, error) {
	return db.insertPair(ctx, "bookmarks", postID, userID)
}

func (db *DB) RemoveBookmark(ctx context.Context, postID, userID string) error {
	return db.deletePair(ctx, "bookmarks", postID, userID)
}

func (db *DB) CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	comment.Id = uuid.NewString()
	comment.CreatedAt = time.Now().UTC()
	comment.UpdatedAt = comment.CreatedAt

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("comments").
		Cols("id", "post_id", "author_id", "text", "created_at", "updated_at").
		Values(comment.Id, comment.PostId, comment.AuthorId, comment.Text, comment.CreatedAt, comment.UpdatedAt)

	query, args := ib.Build()
	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return models.Comment{}, fmt.Errorf("insert comment: %w", translate(err))
	}

	err := db.db.QueryRowContext(ctx,
		"SELECT username, handle, COALESCE(profile_image, '') FROM users WHERE id = $1",
		comment.AuthorId,
	).Scan(&comment.Author.Username, &comment.Author.Handle, &comment.Author.ProfileImage)
	if err != nil && err != sql.ErrNoRows {
		return models.Comment{}, fmt.Errorf("select author: %w", err)
	}
	comment.Author.Id = comment.AuthorId

	return comment, nil
}

// GetComments returns the comments of a post, oldest first
func (db *DB) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"comments.id", "comments.post_id", "comments.author_id", "comments.text",
		"comments.created_at", "comments.updated_at",
		"users.username", "users.handle", "COALESCE(users.profile_image, '')",
	).From("comments").
		Join("users", "users.id = comments.author_id").
		Where(sb.Equal("comments.post_id", postID)).
		OrderBy("comments.created_at").Asc()

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(
			&c.Id, &c.PostId, &c.AuthorId, &c.Text, &c.CreatedAt, &c.UpdatedAt,
			&c.Author.Username, &c.Author.Handle, &c.Author.ProfileImage,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		c.Author.Id = c.AuthorId
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
