package server

import (
	"errors"
	"strings"

	"agora/db"
	"agora/models"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

func (h *handlers) globalPosts(c *fiber.Ctx) error {
	var languages []string
	if lang := c.Query("lang"); lang != "" {
		languages = lo.Compact(lo.Map(strings.Split(lang, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	}

	posts, err := h.Feeds.Global(c.UserContext(), page(c), languages)
	if err != nil {
		return internalError(c, err, "Error getting posts")
	}
	return c.JSON(posts)
}

func (h *handlers) viewPosts(c *fiber.Ctx, view models.View) error {
	posts, err := h.Feeds.Page(c.UserContext(), view, currentUser(c).ID, page(c))
	if err != nil {
		return internalError(c, err, "Error getting feed")
	}
	return c.JSON(posts)
}

func (h *handlers) forYouPosts(c *fiber.Ctx) error {
	return h.viewPosts(c, models.ViewForYou)
}

func (h *handlers) followingPosts(c *fiber.Ctx) error {
	return h.viewPosts(c, models.ViewFollowing)
}

func (h *handlers) createPost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	text := strings.TrimSpace(req.Text)
	if err := h.Moderator.Check(text); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	if req.CommunityId != nil && *req.CommunityId == "" {
		req.CommunityId = nil
	}
	if req.CommunityId != nil {
		if _, err := h.Store.GetCommunity(c.UserContext(), *req.CommunityId); err != nil {
			return storeError(c, err, "Community not found")
		}
	}

	post, err := h.Store.CreatePost(c.UserContext(), models.Post{
		Text:        text,
		Images:      lo.Compact(req.Images),
		AuthorId:    currentUser(c).ID,
		CommunityId: req.CommunityId,
		Languages:   h.Moderator.DetectLanguages(text),
	})
	if err != nil {
		return internalError(c, err, "Error creating post")
	}

	h.publish(models.PostCreatedEvent{Post: post})
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *handlers) getPost(c *fiber.Ctx) error {
	post, err := h.Store.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(c, err, "Post not found")
	}
	return c.JSON(post)
}

func (h *handlers) deletePost(c *fiber.Ctx) error {
	post, err := h.Store.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(c, err, "Post not found")
	}
	if post.AuthorId != currentUser(c).ID {
		return fail(c, fiber.StatusForbidden, "Forbidden")
	}
	if err := h.Store.DeletePost(c.UserContext(), post.Id); err != nil {
		return storeError(c, err, "Post not found")
	}
	return ok(c, fiber.StatusOK, "Post deleted")
}

func (h *handlers) likePost(c *fiber.Ctx) error {
	postID := c.Params("id")
	userID := currentUser(c).ID

	created, err := h.Store.LikePost(c.UserContext(), postID, userID)
	if err != nil {
		return storeError(c, err, "Post not found")
	}
	if !created {
		return ok(c, fiber.StatusOK, "Post already liked")
	}

	h.publish(models.LikeEvent{Like: models.Like{PostId: postID, UserId: userID}})
	return ok(c, fiber.StatusCreated, "Post liked")
}

func (h *handlers) unlikePost(c *fiber.Ctx) error {
	err := h.Store.UnlikePost(c.UserContext(), c.Params("id"), currentUser(c).ID)
	if errors.Is(err, db.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "Like not found")
	}
	if err != nil {
		return internalError(c, err, "Error removing like")
	}
	return ok(c, fiber.StatusOK, "Like removed")
}

func (h *handlers) bookmarkPost(c *fiber.Ctx) error {
	created, err := h.Store.BookmarkPost(c.UserContext(), c.Params("id"), currentUser(c).ID)
	if err != nil {
		return storeError(c, err, "Post not found")
	}
	if !created {
		return ok(c, fiber.StatusOK, "Post already bookmarked")
	}
	return ok(c, fiber.StatusCreated, "Post bookmarked")
}

func (h *handlers) removeBookmark(c *fiber.Ctx) error {
	err := h.Store.RemoveBookmark(c.UserContext(), c.Params("id"), currentUser(c).ID)
	if errors.Is(err, db.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "Bookmark not found")
	}
	if err != nil {
		return internalError(c, err, "Error removing bookmark")
	}
	return ok(c, fiber.StatusOK, "Bookmark removed")
}

func (h *handlers) listBookmarks(c *fiber.Ctx) error {
	posts, err := h.Feeds.Bookmarks(c.UserContext(), currentUser(c).ID, page(c))
	if err != nil {
		return internalError(c, err, "Error getting bookmarks")
	}
	return c.JSON(posts)
}

func (h *handlers) listComments(c *fiber.Ctx) error {
	comments, err := h.Store.GetComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return internalError(c, err, "Error getting comments")
	}
	return c.JSON(comments)
}

func (h *handlers) createComment(c *fiber.Ctx) error {
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	text := strings.TrimSpace(req.Text)
	if err := lengthBetween("text", text, 1, maxPostLength); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	comment, err := h.Store.CreateComment(c.UserContext(), models.Comment{
		PostId:   c.Params("id"),
		AuthorId: currentUser(c).ID,
		Text:     text,
	})
	if err != nil {
		return storeError(c, err, "Post not found")
	}

	h.publish(models.CommentEvent{Comment: comment})
	return c.Status(fiber.StatusCreated).JSON(comment)
}
