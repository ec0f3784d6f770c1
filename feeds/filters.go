package feeds

import (
	"fmt"

	"agora/query"

	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
)

// ForYouFilter keeps posts from the viewer's communities. Viewers without
// any membership see every post.
type ForYouFilter struct {
	UserID string
}

func (f *ForYouFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(fmt.Sprintf(
		"(NOT EXISTS (SELECT 1 FROM memberships m WHERE m.user_id = %s) OR posts.community_id IN (SELECT m.community_id FROM memberships m WHERE m.user_id = %s))",
		sb.Args.Add(f.UserID),
		sb.Args.Add(f.UserID),
	))
}

// FollowingFilter keeps posts written by authors the viewer follows
type FollowingFilter struct {
	UserID string
}

func (f *FollowingFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(fmt.Sprintf(
		"posts.author_id IN (SELECT f.following_id FROM follows f WHERE f.follower_id = %s)",
		sb.Args.Add(f.UserID),
	))
}

// CommunityFilter keeps posts of a single community
type CommunityFilter struct {
	CommunityID string
}

func (f *CommunityFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(sb.Equal("posts.community_id", f.CommunityID))
}

// AuthorFilter keeps posts of a single author
type AuthorFilter struct {
	AuthorID string
}

func (f *AuthorFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(sb.Equal("posts.author_id", f.AuthorID))
}

// BookmarkedFilter keeps posts the user has bookmarked
type BookmarkedFilter struct {
	UserID string
}

func (f *BookmarkedFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(fmt.Sprintf(
		"posts.id IN (SELECT b.post_id FROM bookmarks b WHERE b.user_id = %s)",
		sb.Args.Add(f.UserID),
	))
}

// LanguageFilter filters posts by language
type LanguageFilter struct {
	Languages []string
}

func (f *LanguageFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	if len(f.Languages) > 0 {
		sb.Where(fmt.Sprintf("posts.languages && %s", sb.Args.Add(pq.Array(f.Languages))))
	}
}

var _ query.FilterStrategy = (*ForYouFilter)(nil)
var _ query.FilterStrategy = (*FollowingFilter)(nil)
var _ query.FilterStrategy = (*CommunityFilter)(nil)
var _ query.FilterStrategy = (*AuthorFilter)(nil)
var _ query.FilterStrategy = (*BookmarkedFilter)(nil)
var _ query.FilterStrategy = (*LanguageFilter)(nil)
