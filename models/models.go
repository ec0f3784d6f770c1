package models

import "time"

// FeedPageSize is the number of posts served per feed page. Clients use a
// short page as the end-of-feed signal, so server and client must agree on it.
const FeedPageSize = 10

// View selects a feed query: for-you, following or a community id
type View string

const (
	ViewForYou    View = "for-you"
	ViewFollowing View = "following"
)

// IsCommunity reports whether the view is a community feed
func (v View) IsCommunity() bool {
	return v != ViewForYou && v != ViewFollowing && v != ""
}

// CurrentUser is the authenticated caller, passed explicitly instead of read
// from ambient session state.
type CurrentUser struct {
	ID       string `json:"id"`
	Handle   string `json:"handle"`
	Username string `json:"username"`
}

func (u CurrentUser) IsZero() bool {
	return u.ID == ""
}

type User struct {
	Id           string    `json:"id"`
	Email        string    `json:"email,omitempty"`
	Username     string    `json:"username"`
	Handle       string    `json:"handle"`
	PasswordHash string    `json:"-"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public strips the private fields of a user
func (u User) Public() User {
	u.Email = ""
	u.PasswordHash = ""
	return u
}

// UserUpdate holds the editable profile fields, nil means unchanged
type UserUpdate struct {
	Username     *string `json:"username"`
	Handle       *string `json:"handle"`
	Bio          *string `json:"bio"`
	ProfileImage *string `json:"profileImage"`
}

// Author is the user summary embedded in posts and comments
type Author struct {
	Id           string `json:"id"`
	Username     string `json:"username"`
	Handle       string `json:"handle"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type PostCounts struct {
	Comments int64 `json:"comments"`
	Likes    int64 `json:"likes"`
}

type Post struct {
	Id          string     `json:"id"`
	Text        string     `json:"text"`
	Images      []string   `json:"images"`
	AuthorId    string     `json:"authorId"`
	CommunityId *string    `json:"communityId"`
	Impressions int64      `json:"impressions"`
	Languages   []string   `json:"languages,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Author      Author     `json:"author"`
	Count       PostCounts `json:"_count"`
}

func (p Post) ItemID() string {
	return p.Id
}

type Comment struct {
	Id        string    `json:"id"`
	PostId    string    `json:"postId"`
	AuthorId  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    Author    `json:"author"`
}

type Like struct {
	PostId    string    `json:"postId"`
	UserId    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Bookmark struct {
	PostId    string    `json:"postId"`
	UserId    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Follow struct {
	FollowerId  string    `json:"followerId"`
	FollowingId string    `json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type FollowCounts struct {
	UserId    string `json:"userId"`
	Followers int64  `json:"followers"`
	Following int64  `json:"following"`
}

type Community struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Membership struct {
	UserId      string    `json:"userId"`
	CommunityId string    `json:"communityId"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type Message struct {
	Id          string    `json:"id"`
	SenderId    string    `json:"senderId"`
	RecipientId string    `json:"recipientId"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Conversation is the latest message exchanged with one partner
type Conversation struct {
	Partner     Author  `json:"partner"`
	LastMessage Message `json:"lastMessage"`
	Unread      int64   `json:"unread"`
}

type NotificationType string

const (
	NotificationFollow  NotificationType = "follow"
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationMention NotificationType = "mention"
	NotificationMessage NotificationType = "message"
)

type Notification struct {
	Id        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	UserId    string           `json:"userId"`
	SourceId  string           `json:"sourceId,omitempty"`
	PostId    string           `json:"postId,omitempty"`
	Message   string           `json:"message,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

type Advertisement struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageUrl  string    `json:"imageUrl,omitempty"`
	Link      string    `json:"link,omitempty"`
	Active    bool      `json:"active"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PostsAggregatedByTime struct {
	Time  time.Time `json:"time"`
	Count int64     `json:"count"`
}

// Analytics summarises a user's activity and reach
type Analytics struct {
	Posts       int64                   `json:"posts"`
	Likes       int64                   `json:"likes"`
	Comments    int64                   `json:"comments"`
	Impressions int64                   `json:"impressions"`
	Followers   int64                   `json:"followers"`
	PostsByTime []PostsAggregatedByTime `json:"postsByTime"`
}

// FeedDescription describes one feed view offered by the server
type FeedDescription struct {
	View        View   `json:"view"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}
