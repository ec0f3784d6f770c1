package db

import (
	"context"
	"fmt"
	"time"

	"agora/models"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

var communityColumns = []string{
	"communities.id",
	"communities.name",
	"COALESCE(communities.description, '')",
	"COALESCE(communities.image, '')",
	"communities.created_at",
	"communities.updated_at",
}

// CreateCommunity stores the community and makes ownerID its admin
func (db *DB) CreateCommunity(ctx context.Context, community models.Community, ownerID string) (models.Community, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	community.Id = uuid.NewString()
	community.CreatedAt = time.Now().UTC()
	community.UpdatedAt = community.CreatedAt

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Community{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("communities").
		Cols("id", "name", "description", "image", "created_at", "updated_at").
		Values(community.Id, community.Name, community.Description, community.Image, community.CreatedAt, community.UpdatedAt)
	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return models.Community{}, fmt.Errorf("insert community: %w", translate(err))
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO memberships (user_id, community_id, role, created_at) VALUES ($1, $2, $3, NOW())",
		ownerID, community.Id, models.RoleAdmin,
	); err != nil {
		return models.Community{}, fmt.Errorf("insert membership: %w", translate(err))
	}

	if err := tx.Commit(); err != nil {
		return models.Community{}, fmt.Errorf("commit: %w", err)
	}
	return community, nil
}

func (db *DB) GetCommunity(ctx context.Context, id string) (models.Community, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(communityColumns...).From("communities").Where(sb.Equal("communities.id", id))

	communities, err := db.queryCommunities(ctx, sb)
	if err != nil {
		return models.Community{}, err
	}
	if len(communities) == 0 {
		return models.Community{}, fmt.Errorf("community %s: %w", id, ErrNotFound)
	}
	return communities[0], nil
}

func (db *DB) GetCommunities(ctx context.Context) ([]models.Community, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(communityColumns...).From("communities").OrderBy("communities.name").Asc()
	return db.queryCommunities(ctx, sb)
}

// GetUserCommunities returns the communities userID belongs to, by name
func (db *DB) GetUserCommunities(ctx context.Context, userID string) ([]models.Community, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(communityColumns...).
		From("communities").
		Join("memberships", "memberships.community_id = communities.id").
		Where(sb.Equal("memberships.user_id", userID)).
		OrderBy("communities.name").Asc()
	return db.queryCommunities(ctx, sb)
}

func (db *DB) queryCommunities(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.Community, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	communities := []models.Community{}
	for rows.Next() {
		var c models.Community
		if err := rows.Scan(&c.Id, &c.Name, &c.Description, &c.Image, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		communities = append(communities, c)
	}
	return communities, rows.Err()
}

// JoinCommunity returns false when userID was already a member
func (db *DB) JoinCommunity(ctx context.Context, communityID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := db.db.ExecContext(ctx,
		"INSERT INTO memberships (user_id, community_id, role, created_at) VALUES ($1, $2, $3, NOW()) ON CONFLICT DO NOTHING",
		userID, communityID, models.RoleMember,
	)
	if err != nil {
		return false, fmt.Errorf("insert membership: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) LeaveCommunity(ctx context.Context, communityID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := db.db.ExecContext(ctx,
		"DELETE FROM memberships WHERE user_id = $1 AND community_id = $2",
		userID, communityID,
	)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("membership: %w", ErrNotFound)
	}
	return nil
}
