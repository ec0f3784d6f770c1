package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agora/models"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

var userColumns = []string{
	"id",
	"email",
	"username",
	"handle",
	"COALESCE(password_hash, '')",
	"COALESCE(profile_image, '')",
	"COALESCE(bio, '')",
	"created_at",
	"updated_at",
}

func (db *DB) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	user.Id = uuid.NewString()
	user.Handle = strings.ToLower(user.Handle)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("users").
		Cols("id", "email", "username", "handle", "password_hash", "profile_image", "bio", "created_at", "updated_at").
		Values(user.Id, user.Email, user.Username, user.Handle, user.PasswordHash, user.ProfileImage, user.Bio, user.CreatedAt, user.UpdatedAt)

	query, args := ib.Build()
	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", translate(err))
	}
	return user, nil
}

func (db *DB) getUser(ctx context.Context, where func(sb *sqlbuilder.SelectBuilder) string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(userColumns...).From("users")
	sb.Where(where(sb))
	sb.Limit(1)

	query, args := sb.Build()

	var user models.User
	err := db.db.QueryRowContext(ctx, query, args...).Scan(
		&user.Id,
		&user.Email,
		&user.Username,
		&user.Handle,
		&user.PasswordHash,
		&user.ProfileImage,
		&user.Bio,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return models.User{}, fmt.Errorf("select user: %w", translate(err))
	}
	return user, nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return db.getUser(ctx, func(sb *sqlbuilder.SelectBuilder) string {
		return sb.Equal("id", id)
	})
}

func (db *DB) GetUserByHandle(ctx context.Context, handle string) (models.User, error) {
	return db.getUser(ctx, func(sb *sqlbuilder.SelectBuilder) string {
		return sb.Equal("handle", strings.ToLower(handle))
	})
}

// GetUserByLogin finds the user whose email or username matches
func (db *DB) GetUserByLogin(ctx context.Context, emailOrUsername string) (models.User, error) {
	return db.getUser(ctx, func(sb *sqlbuilder.SelectBuilder) string {
		return sb.Or(
			sb.Equal("email", emailOrUsername),
			sb.Equal("username", emailOrUsername),
		)
	})
}

func (db *DB) GetUsersByHandles(ctx context.Context, handles []string) ([]models.User, error) {
	if len(handles) == 0 {
		return []models.User{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	lowered := make([]interface{}, len(handles))
	for i, h := range handles {
		lowered[i] = strings.ToLower(h)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(userColumns...).From("users").Where(sb.In("handle", lowered...))

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.Id,
			&user.Email,
			&user.Username,
			&user.Handle,
			&user.PasswordHash,
			&user.ProfileImage,
			&user.Bio,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUser applies the non-nil fields of update
func (db *DB) UpdateUser(ctx context.Context, id string, update models.UserUpdate) (models.User, error) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("users")

	var assignments []string
	if update.Username != nil {
		assignments = append(assignments, ub.Assign("username", *update.Username))
	}
	if update.Handle != nil {
		assignments = append(assignments, ub.Assign("handle", strings.ToLower(*update.Handle)))
	}
	if update.Bio != nil {
		assignments = append(assignments, ub.Assign("bio", *update.Bio))
	}
	if update.ProfileImage != nil {
		assignments = append(assignments, ub.Assign("profile_image", *update.ProfileImage))
	}
	if len(assignments) == 0 {
		return db.GetUserByID(ctx, id)
	}
	assignments = append(assignments, "updated_at = NOW()")

	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()

	execCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := db.db.ExecContext(execCtx, query, args...)
	if err != nil {
		return models.User{}, fmt.Errorf("update user: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, fmt.Errorf("update user %s: %w", id, ErrNotFound)
	}

	return db.GetUserByID(ctx, id)
}
