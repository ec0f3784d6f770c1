package events

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"agora/models"

	"github.com/samber/lo"
)

var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@(\w{3,30})`)

// Mentions returns the distinct lowercase handles mentioned in text
func Mentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	handles := lo.Map(matches, func(m []string, _ int) string {
		return strings.ToLower(m[1])
	})
	return lo.Uniq(handles)
}

// notificationsFor decides who hears about an event. Actors are never
// notified about their own actions.
func (p *Processor) notificationsFor(ctx context.Context, event models.Event) ([]models.Notification, error) {
	var out []models.Notification

	switch e := event.(type) {
	case models.LikeEvent:
		post, err := p.store.GetPost(ctx, e.Like.PostId)
		if err != nil {
			return nil, fmt.Errorf("like on post %s: %w", e.Like.PostId, err)
		}
		out = append(out, models.Notification{
			Type:     models.NotificationLike,
			UserId:   post.AuthorId,
			SourceId: e.Like.UserId,
			PostId:   post.Id,
			Message:  "liked your post",
		})

	case models.CommentEvent:
		post, err := p.store.GetPost(ctx, e.Comment.PostId)
		if err != nil {
			return nil, fmt.Errorf("comment on post %s: %w", e.Comment.PostId, err)
		}
		out = append(out, models.Notification{
			Type:     models.NotificationComment,
			UserId:   post.AuthorId,
			SourceId: e.Comment.AuthorId,
			PostId:   post.Id,
			Message:  "commented on your post",
		})

	case models.FollowEvent:
		out = append(out, models.Notification{
			Type:     models.NotificationFollow,
			UserId:   e.Follow.FollowingId,
			SourceId: e.Follow.FollowerId,
			Message:  "started following you",
		})

	case models.MessageEvent:
		out = append(out, models.Notification{
			Type:     models.NotificationMessage,
			UserId:   e.Message.RecipientId,
			SourceId: e.Message.SenderId,
			Message:  "sent you a message",
		})

	case models.PostCreatedEvent:
		handles := Mentions(e.Post.Text)
		if len(handles) == 0 {
			return nil, nil
		}
		users, err := p.store.GetUsersByHandles(ctx, handles)
		if err != nil {
			return nil, fmt.Errorf("resolve mentions: %w", err)
		}
		for _, u := range users {
			out = append(out, models.Notification{
				Type:     models.NotificationMention,
				UserId:   u.Id,
				SourceId: e.Post.AuthorId,
				PostId:   e.Post.Id,
				Message:  "mentioned you in a post",
			})
		}

	default:
		return nil, fmt.Errorf("unknown event %T", event)
	}

	return lo.Filter(out, func(n models.Notification, _ int) bool {
		return n.UserId != "" && n.UserId != event.ActorID()
	}), nil
}
