package server

import (
	"errors"

	"agora/db"
	"agora/models"

	"github.com/gofiber/fiber/v2"
)

func (h *handlers) getUser(c *fiber.Ctx) error {
	user, err := h.Store.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(c, err, "User not found")
	}
	return c.JSON(user.Public())
}

func (h *handlers) getUserByHandle(c *fiber.Ctx) error {
	user, err := h.Store.GetUserByHandle(c.UserContext(), c.Params("handle"))
	if err != nil {
		return storeError(c, err, "User not found")
	}
	return c.JSON(user.Public())
}

func (h *handlers) updateMe(c *fiber.Ctx) error {
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := h.Store.UpdateUser(c.UserContext(), currentUser(c).ID, models.UserUpdate{
		Username:     req.Username,
		Handle:       req.Handle,
		Bio:          req.Bio,
		ProfileImage: req.ProfileImage,
	})
	if errors.Is(err, db.ErrAlreadyExists) {
		return fail(c, fiber.StatusConflict, "Username or handle already taken")
	}
	if err != nil {
		return storeError(c, err, "User not found")
	}
	return c.JSON(user.Public())
}

func (h *handlers) followCounts(c *fiber.Ctx) error {
	counts, err := h.Store.GetFollowCounts(c.UserContext(), c.Params("id"))
	if err != nil {
		return internalError(c, err, "Error getting follow counts")
	}
	return c.JSON(counts)
}

func (h *handlers) followers(c *fiber.Ctx) error {
	users, err := h.Store.GetFollowers(c.UserContext(), c.Params("id"))
	if err != nil {
		return internalError(c, err, "Error getting followers")
	}
	return c.JSON(users)
}

func (h *handlers) following(c *fiber.Ctx) error {
	users, err := h.Store.GetFollowing(c.UserContext(), c.Params("id"))
	if err != nil {
		return internalError(c, err, "Error getting following")
	}
	return c.JSON(users)
}

func (h *handlers) userPosts(c *fiber.Ctx) error {
	posts, err := h.Feeds.AuthorPosts(c.UserContext(), c.Params("id"), page(c))
	if err != nil {
		return internalError(c, err, "Error getting posts")
	}
	return c.JSON(posts)
}

// doFollow makes followerID follow targetID
func (h *handlers) doFollow(c *fiber.Ctx, followerID, targetID string) error {
	if followerID == targetID {
		return fail(c, fiber.StatusBadRequest, "Cannot follow yourself")
	}

	created, err := h.Store.Follow(c.UserContext(), followerID, targetID)
	if err != nil {
		return storeError(c, err, "User not found")
	}
	if !created {
		return ok(c, fiber.StatusOK, "Already following")
	}

	h.publish(models.FollowEvent{Follow: models.Follow{FollowerId: followerID, FollowingId: targetID}})
	return ok(c, fiber.StatusCreated, "Followed")
}

func (h *handlers) doUnfollow(c *fiber.Ctx, followerID, targetID string) error {
	if followerID == targetID {
		return fail(c, fiber.StatusBadRequest, "Cannot unfollow yourself")
	}

	err := h.Store.Unfollow(c.UserContext(), followerID, targetID)
	if errors.Is(err, db.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "Not following")
	}
	if err != nil {
		return internalError(c, err, "Error unfollowing")
	}
	return ok(c, fiber.StatusOK, "Unfollowed")
}

func (h *handlers) follow(c *fiber.Ctx) error {
	return h.doFollow(c, currentUser(c).ID, c.Params("id"))
}

func (h *handlers) unfollow(c *fiber.Ctx) error {
	return h.doUnfollow(c, currentUser(c).ID, c.Params("id"))
}

// The /users/:id/follows/:targetId routes act on behalf of :id, which
// must be the caller.

func (h *handlers) isFollowing(c *fiber.Ctx) error {
	if c.Params("id") != currentUser(c).ID {
		return fail(c, fiber.StatusForbidden, "Forbidden")
	}
	following, err := h.Store.IsFollowing(c.UserContext(), c.Params("id"), c.Params("targetId"))
	if err != nil {
		return internalError(c, err, "Error checking follow")
	}
	return c.JSON(fiber.Map{"isFollowing": following})
}

func (h *handlers) followAs(c *fiber.Ctx) error {
	if c.Params("id") != currentUser(c).ID {
		return fail(c, fiber.StatusForbidden, "Forbidden")
	}
	return h.doFollow(c, c.Params("id"), c.Params("targetId"))
}

func (h *handlers) unfollowAs(c *fiber.Ctx) error {
	if c.Params("id") != currentUser(c).ID {
		return fail(c, fiber.StatusForbidden, "Forbidden")
	}
	return h.doUnfollow(c, c.Params("id"), c.Params("targetId"))
}
