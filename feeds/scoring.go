package feeds

import (
	"fmt"
	"strings"

	"agora/config"
	"agora/query"

	"github.com/huandu/go-sqlbuilder"
)

// NoScoring gives every post the same score, leaving the order to recency
type NoScoring struct{}

func (s *NoScoring) ApplyScoring(sb *sqlbuilder.SelectBuilder) string {
	return "1.0"
}

// TimeDecayScoring scores posts based on how recent they are
type TimeDecayScoring struct{}

func (s *TimeDecayScoring) ApplyScoring(sb *sqlbuilder.SelectBuilder) string {
	return "(1.0 + (EXTRACT(EPOCH FROM (NOW() - posts.created_at)) / 86400.0))^(-0.5)"
}

// EngagementScoring scores posts by their likes and comments, dampened by a log
type EngagementScoring struct{}

func (s *EngagementScoring) ApplyScoring(sb *sqlbuilder.SelectBuilder) string {
	return "LN(1.0 + (SELECT COUNT(*) FROM likes l WHERE l.post_id = posts.id) + (SELECT COUNT(*) FROM comments c WHERE c.post_id = posts.id))"
}

// FollowedAuthorScoring boosts posts written by authors the viewer follows
type FollowedAuthorScoring struct {
	UserID string
}

func (s *FollowedAuthorScoring) ApplyScoring(sb *sqlbuilder.SelectBuilder) string {
	return fmt.Sprintf(
		"CASE WHEN posts.author_id IN (SELECT f.following_id FROM follows f WHERE f.follower_id = %s) THEN 1.0 ELSE 0.0 END",
		sb.Args.Add(s.UserID),
	)
}

// AuthorScoring scores posts based on configured author weights
type AuthorScoring struct {
	Authors []config.TomlAuthor
}

func (s *AuthorScoring) ApplyScoring(sb *sqlbuilder.SelectBuilder) string {
	if len(s.Authors) == 0 {
		return "1.0"
	}

	// Create CASE statement for author scoring where default score is 1.0
	authorScores := make([]string, len(s.Authors))
	for i, author := range s.Authors {
		authorScores[i] = fmt.Sprintf(
			"CASE WHEN posts.author_id = %s THEN %f ELSE 1.0 END",
			sb.Args.Add(author.ID),
			author.Weight,
		)
	}

	// Multiply all author factors together
	return "(" + strings.Join(authorScores, " * ") + ")"
}

// scoringFromConfig maps a configured layer onto its strategy for a viewer
func scoringFromConfig(layer config.TomlScoring, viewerID string) (query.ScoringStrategy, error) {
	switch layer.Type {
	case "time_decay":
		return &TimeDecayScoring{}, nil
	case "engagement":
		return &EngagementScoring{}, nil
	case "followed_author":
		return &FollowedAuthorScoring{UserID: viewerID}, nil
	case "author":
		return &AuthorScoring{Authors: layer.Authors}, nil
	case "none":
		return &NoScoring{}, nil
	}
	return nil, fmt.Errorf("unknown scoring type %q", layer.Type)
}

var _ query.ScoringStrategy = (*NoScoring)(nil)
var _ query.ScoringStrategy = (*TimeDecayScoring)(nil)
var _ query.ScoringStrategy = (*EngagementScoring)(nil)
var _ query.ScoringStrategy = (*FollowedAuthorScoring)(nil)
var _ query.ScoringStrategy = (*AuthorScoring)(nil)
