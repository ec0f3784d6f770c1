package db

import (
	"context"
	"fmt"
	"time"

	"agora/models"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

// GetActiveAds returns active ads, highest priority and newest first
func (db *DB) GetActiveAds(ctx context.Context, limit int) ([]models.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"id", "title", "content", "COALESCE(image_url, '')", "COALESCE(link, '')",
		"active", "priority", "created_at", "updated_at",
	).
		From("advertisements").
		Where("active").
		OrderBy("priority DESC", "created_at DESC").
		Limit(limit)

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	ads := []models.Advertisement{}
	for rows.Next() {
		var ad models.Advertisement
		if err := rows.Scan(
			&ad.Id, &ad.Title, &ad.Content, &ad.ImageUrl, &ad.Link,
			&ad.Active, &ad.Priority, &ad.CreatedAt, &ad.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		ads = append(ads, ad)
	}
	return ads, rows.Err()
}

func (db *DB) CreateAd(ctx context.Context, ad models.Advertisement) (models.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ad.Id = uuid.NewString()
	ad.CreatedAt = time.Now().UTC()
	ad.UpdatedAt = ad.CreatedAt

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("advertisements").
		Cols("id", "title", "content", "image_url", "link", "active", "priority", "created_at", "updated_at").
		Values(ad.Id, ad.Title, ad.Content, ad.ImageUrl, ad.Link, ad.Active, ad.Priority, ad.CreatedAt, ad.UpdatedAt)

	query, args := ib.Build()
	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return models.Advertisement{}, fmt.Errorf("insert ad: %w", translate(err))
	}
	return ad, nil
}
