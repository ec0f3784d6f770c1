package db

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{
			name:   "unique violation",
			err:    &pq.Error{Code: uniqueViolation, Constraint: "users_email_key"},
			target: ErrAlreadyExists,
		},
		{
			name:   "foreign key violation",
			err:    &pq.Error{Code: foreignKeyViolation, Constraint: "likes_post_id_fkey"},
			target: ErrNotFound,
		},
		{
			name:   "wrapped foreign key violation",
			err:    fmt.Errorf("exec: %w", &pq.Error{Code: foreignKeyViolation}),
			target: ErrNotFound,
		},
		{
			name:   "no rows",
			err:    sql.ErrNoRows,
			target: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(translate(tt.err), tt.target))
		})
	}
}

func TestTranslateLeavesOtherErrors(t *testing.T) {
	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))

	checkViolation := &pq.Error{Code: "23514"}
	assert.False(t, errors.Is(translate(checkViolation), ErrNotFound))
	assert.False(t, errors.Is(translate(checkViolation), ErrAlreadyExists))
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, offset(1, 10))
	assert.Equal(t, 20, offset(3, 10))
	assert.Equal(t, 0, offset(0, 10))
	assert.Equal(t, 0, offset(-4, 10))
}

func TestNewPostSelect(t *testing.T) {
	sb := NewPostSelect()
	sb.Where(sb.Equal("posts.id", "p1"))

	query, args := sb.Build()

	assert.Contains(t, query, "FROM posts JOIN users ON users.id = posts.author_id")
	assert.Contains(t, query, "posts.id = $1")
	assert.Equal(t, []interface{}{"p1"}, args)
}

func TestConnectionStrings(t *testing.T) {
	assert.Equal(t,
		"host=localhost port=5432 user=agora password=secret dbname=agora sslmode=disable",
		buildConnectionString("localhost", 5432, "agora", "secret", "agora"),
	)
	assert.Equal(t,
		"postgres://agora:p%40ss@db:5433/agora?sslmode=disable",
		databaseURL("db", 5433, "agora", "p@ss", "agora"),
	)
}
