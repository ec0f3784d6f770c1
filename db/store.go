package db

import (
	"context"

	"agora/models"
)

// Store is everything the HTTP server and event processor need from the
// database. DB implements it; the cache package wraps it.
type Store interface {
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByHandle(ctx context.Context, handle string) (models.User, error)
	GetUserByLogin(ctx context.Context, emailOrUsername string) (models.User, error)
	GetUsersByHandles(ctx context.Context, handles []string) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, update models.UserUpdate) (models.User, error)

	// Posts
	CreatePost(ctx context.Context, post models.Post) (models.Post, error)
	GetPost(ctx context.Context, id string) (models.Post, error)
	DeletePost(ctx context.Context, id string) error
	QueryPosts(ctx context.Context, query string, args []interface{}) ([]models.Post, error)
	RecordImpressions(ctx context.Context, postIDs []string) error
	LikePost(ctx context.Context, postID, userID string) (bool, error)
	UnlikePost(ctx context.Context, postID, userID string) error
	BookmarkPost(ctx context.Context, postID, userID string) (bool, error)
	RemoveBookmark(ctx context.Context, postID, userID string) error
	CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error)
	GetComments(ctx context.Context, postID string) ([]models.Comment, error)

	// Follows
	Follow(ctx context.Context, followerID, followingID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	GetFollowCounts(ctx context.Context, userID string) (models.FollowCounts, error)
	GetFollowers(ctx context.Context, userID string) ([]models.Author, error)
	GetFollowing(ctx context.Context, userID string) ([]models.Author, error)

	// Communities
	CreateCommunity(ctx context.Context, community models.Community, ownerID string) (models.Community, error)
	GetCommunity(ctx context.Context, id string) (models.Community, error)
	GetCommunities(ctx context.Context) ([]models.Community, error)
	GetUserCommunities(ctx context.Context, userID string) ([]models.Community, error)
	JoinCommunity(ctx context.Context, communityID, userID string) (bool, error)
	LeaveCommunity(ctx context.Context, communityID, userID string) error

	// Messages
	CreateMessage(ctx context.Context, message models.Message) (models.Message, error)
	GetConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	GetThread(ctx context.Context, userID, partnerID string, page, pageSize int) ([]models.Message, error)
	MarkThreadRead(ctx context.Context, userID, partnerID string) error

	// Notifications
	CreateNotification(ctx context.Context, notification models.Notification) (models.Notification, error)
	GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string) error

	// Ads
	GetActiveAds(ctx context.Context, limit int) ([]models.Advertisement, error)
	CreateAd(ctx context.Context, ad models.Advertisement) (models.Advertisement, error)

	// Analytics
	GetAnalytics(ctx context.Context, userID string, timeAgg string) (models.Analytics, error)
}

var _ Store = (*DB)(nil)

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
