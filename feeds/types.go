// Package feeds builds and runs the paginated post queries behind every feed view
package feeds

import (
	"context"

	"agora/config"
	"agora/models"
)

// PostQuerier runs feed queries built by this package
type PostQuerier interface {
	QueryPosts(ctx context.Context, sql string, args []interface{}) ([]models.Post, error)
	RecordImpressions(ctx context.Context, postIDs []string) error
}

// Feeds serves feed pages for every view
type Feeds struct {
	db       PostQuerier
	pageSize int

	// For-you ranking
	forYou           []config.TomlScoring
	trackImpressions bool
}
