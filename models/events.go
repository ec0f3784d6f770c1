package models

// Event is anything the event processor turns into notifications
type Event interface {
	ActorID() string
}

// PostCreatedEvent fired when a new post is created
type PostCreatedEvent struct {
	Post Post
}

// LikeEvent fired when a post is liked
type LikeEvent struct {
	Like Like
}

// CommentEvent fired when a post receives a comment
type CommentEvent struct {
	Comment Comment
}

// FollowEvent fired when a user follows another user
type FollowEvent struct {
	Follow Follow
}

// MessageEvent fired when a direct message is sent
type MessageEvent struct {
	Message Message
}

func (e PostCreatedEvent) ActorID() string { return e.Post.AuthorId }
func (e LikeEvent) ActorID() string        { return e.Like.UserId }
func (e CommentEvent) ActorID() string     { return e.Comment.AuthorId }
func (e FollowEvent) ActorID() string      { return e.Follow.FollowerId }
func (e MessageEvent) ActorID() string     { return e.Message.SenderId }
