package feeds

import (
	"fmt"
	"strings"

	"agora/db"
	"agora/query"
)

// FeedQueryBuilder builds feed queries with scoring and filters
type FeedQueryBuilder struct {
	scoringLayers []scoringLayer
	filters       []query.FilterStrategy
}

type scoringLayer struct {
	strategy query.ScoringStrategy
	weight   float64
}

func NewFeedQueryBuilder() *FeedQueryBuilder {
	return &FeedQueryBuilder{
		scoringLayers: make([]scoringLayer, 0),
		filters:       make([]query.FilterStrategy, 0),
	}
}

func (b *FeedQueryBuilder) AddScoringLayer(strategy query.ScoringStrategy, weight float64) {
	b.scoringLayers = append(b.scoringLayers, scoringLayer{
		strategy: strategy,
		weight:   weight,
	})
}

func (b *FeedQueryBuilder) AddFilter(filter query.FilterStrategy) {
	b.filters = append(b.filters, filter)
}

// Build returns the SQL for one page. Pages are 1-based; anything lower is
// treated as the first page.
func (b *FeedQueryBuilder) Build(page int, pageSize int) (string, []interface{}) {
	if page < 1 {
		page = 1
	}

	sb := db.NewPostSelect()

	// Sum the weighted scoring layers into the final score
	if len(b.scoringLayers) > 0 {
		var scoreTerms []string
		for _, layer := range b.scoringLayers {
			scoreExpr := layer.strategy.ApplyScoring(sb)
			scoreTerms = append(scoreTerms, fmt.Sprintf("(%f * (%s))", layer.weight, scoreExpr))
		}
		sb.SelectMore(fmt.Sprintf("(%s) AS score", strings.Join(scoreTerms, " + ")))
	}

	for _, filter := range b.filters {
		filter.ApplyFilter(sb)
	}

	// Order by score if we have scoring layers, otherwise by time
	if len(b.scoringLayers) > 0 {
		sb.OrderBy("score DESC", "posts.created_at DESC", "posts.id DESC")
	} else {
		sb.OrderBy("posts.created_at DESC", "posts.id DESC")
	}

	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	return sb.Build()
}

var _ query.Builder = (*FeedQueryBuilder)(nil)
