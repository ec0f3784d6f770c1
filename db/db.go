package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agora/models"

	"github.com/cenkalti/backoff/v4"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned when a row, or the row it references, does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique constraint rejects a write
	ErrAlreadyExists = errors.New("already exists")
)

// Postgres error codes we translate into sentinels
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const queryTimeout = 30 * time.Second

// DB handles all database operations with a shared connection pool
type DB struct {
	db *sql.DB
}

func buildConnectionString(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)
}

// Connect opens the connection pool and waits for PostgreSQL to accept
// connections, retrying with exponential backoff for up to a minute.
func Connect(ctx context.Context, host string, port int, user, password, dbname string) (*DB, error) {
	db, err := sql.Open("postgres", buildConnectionString(host, port, user, password, dbname))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute

	err = backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"host":  host,
			"port":  port,
			"error": err,
			"retry": wait,
		}).Warn("Database not ready")
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{db: db}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// translate maps constraint violations onto the package sentinels
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w", pqErr.Constraint, ErrAlreadyExists)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w", pqErr.Constraint, ErrNotFound)
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Post reads

var postColumns = []string{
	"posts.id",
	"posts.text",
	"posts.images",
	"posts.author_id",
	"posts.community_id",
	"posts.impressions",
	"posts.languages",
	"posts.created_at",
	"posts.updated_at",
	"users.username",
	"users.handle",
	"COALESCE(users.profile_image, '')",
	"(SELECT COUNT(*) FROM likes lc WHERE lc.post_id = posts.id)",
	"(SELECT COUNT(*) FROM comments cc WHERE cc.post_id = posts.id)",
}

// NewPostSelect starts a select of the post read model: the post joined
// with its author summary and like and comment counts.
func NewPostSelect() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(postColumns...).From("posts").Join("users", "users.id = posts.author_id")
	return sb
}

// QueryPosts runs a query started from NewPostSelect. Columns selected
// beyond the read model, such as a score, are discarded.
func (db *DB) QueryPosts(ctx context.Context, query string, args []interface{}) ([]models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	posts := []models.Post{}
	for rows.Next() {
		var post models.Post
		var images, languages pq.StringArray
		var communityID sql.NullString

		dest := []interface{}{
			&post.Id,
			&post.Text,
			&images,
			&post.AuthorId,
			&communityID,
			&post.Impressions,
			&languages,
			&post.CreatedAt,
			&post.UpdatedAt,
			&post.Author.Username,
			&post.Author.Handle,
			&post.Author.ProfileImage,
			&post.Count.Likes,
			&post.Count.Comments,
		}
		for i := len(dest); i < len(columns); i++ {
			dest = append(dest, new(interface{}))
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		post.Images = []string(images)
		if post.Images == nil {
			post.Images = []string{}
		}
		post.Languages = []string(languages)
		if communityID.Valid {
			post.CommunityId = &communityID.String
		}
		post.Author.Id = post.AuthorId
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// RecordImpressions counts one impression for each served post
func (db *DB) RecordImpressions(ctx context.Context, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := db.db.ExecContext(ctx,
		"UPDATE posts SET impressions = impressions + 1 WHERE id = ANY($1)",
		pq.Array(postIDs),
	)
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	return nil
}
