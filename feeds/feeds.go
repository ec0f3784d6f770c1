package feeds

import (
	"context"
	"fmt"

	"agora/config"
	"agora/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var feedPagesServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "agora_feed_pages_served_total",
	Help: "The total number of feed pages served, by view",
}, []string{"view"})

// New creates the feed service with ranking from cfg
func New(cfg *config.TomlConfig, db PostQuerier) *Feeds {
	return &Feeds{
		db:               db,
		pageSize:         models.FeedPageSize,
		forYou:           cfg.Feeds.ForYou,
		trackImpressions: cfg.Feeds.TrackImpressions,
	}
}

// Builder returns the query builder for a view as seen by viewerID
func (f *Feeds) Builder(view models.View, viewerID string) (*FeedQueryBuilder, error) {
	b := NewFeedQueryBuilder()

	switch view {
	case models.ViewForYou:
		b.AddFilter(&ForYouFilter{UserID: viewerID})
		for _, layer := range f.forYou {
			strategy, err := scoringFromConfig(layer, viewerID)
			if err != nil {
				return nil, err
			}
			b.AddScoringLayer(strategy, layer.Weight)
		}
	case models.ViewFollowing:
		b.AddFilter(&FollowingFilter{UserID: viewerID})
	case "":
		return nil, fmt.Errorf("empty feed view")
	default:
		b.AddFilter(&CommunityFilter{CommunityID: string(view)})
	}

	return b, nil
}

// Page returns one page of the view, newest or highest scored first
func (f *Feeds) Page(ctx context.Context, view models.View, viewerID string, page int) ([]models.Post, error) {
	b, err := f.Builder(view, viewerID)
	if err != nil {
		return nil, err
	}

	posts, err := f.run(ctx, b, page)
	if err != nil {
		return nil, fmt.Errorf("feed %s page %d: %w", view, page, err)
	}

	label := string(view)
	if view.IsCommunity() {
		label = "community"
	}
	feedPagesServed.WithLabelValues(label).Inc()

	if view == models.ViewForYou && f.trackImpressions && len(posts) > 0 {
		ids := lo.Map(posts, func(p models.Post, _ int) string { return p.Id })
		if err := f.db.RecordImpressions(ctx, ids); err != nil {
			// Impressions are best effort, the page is still served
			log.WithFields(log.Fields{
				"error": err,
				"count": len(ids),
			}).Warn("Failed to record impressions")
		}
	}

	return posts, nil
}

// Global returns a page of all posts, optionally limited to languages
func (f *Feeds) Global(ctx context.Context, page int, languages []string) ([]models.Post, error) {
	b := NewFeedQueryBuilder()
	b.AddFilter(&LanguageFilter{Languages: languages})
	return f.run(ctx, b, page)
}

// AuthorPosts returns a page of posts written by authorID
func (f *Feeds) AuthorPosts(ctx context.Context, authorID string, page int) ([]models.Post, error) {
	b := NewFeedQueryBuilder()
	b.AddFilter(&AuthorFilter{AuthorID: authorID})
	return f.run(ctx, b, page)
}

// Bookmarks returns a page of posts bookmarked by userID
func (f *Feeds) Bookmarks(ctx context.Context, userID string, page int) ([]models.Post, error) {
	b := NewFeedQueryBuilder()
	b.AddFilter(&BookmarkedFilter{UserID: userID})
	return f.run(ctx, b, page)
}

func (f *Feeds) run(ctx context.Context, b *FeedQueryBuilder, page int) ([]models.Post, error) {
	sql, args := b.Build(page, f.pageSize)

	log.WithFields(log.Fields{
		"sql":  sql,
		"args": args,
	}).Debug("Generated feed query")

	posts, err := f.db.QueryPosts(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}
