package feeds

import "agora/models"

// Describe lists the feed views offered by the server. Community views are
// addressed by community id and listed through the communities endpoints.
func (f *Feeds) Describe() []models.FeedDescription {
	forYou := "Newest posts from your communities, or from everyone if you have not joined any"
	if len(f.forYou) > 0 {
		forYou = "Ranked posts from your communities, or from everyone if you have not joined any"
	}

	return []models.FeedDescription{
		{
			View:        models.ViewForYou,
			DisplayName: "For you",
			Description: forYou,
		},
		{
			View:        models.ViewFollowing,
			DisplayName: "Following",
			Description: "Newest posts from people you follow",
		},
	}
}
