package server

import (
	"errors"
	"strings"

	"agora/db"
	"agora/models"

	"github.com/gofiber/fiber/v2"
)

func (h *handlers) listCommunities(c *fiber.Ctx) error {
	communities, err := h.Store.GetCommunities(c.UserContext())
	if err != nil {
		return internalError(c, err, "Error getting communities")
	}
	return c.JSON(communities)
}

func (h *handlers) userCommunities(c *fiber.Ctx) error {
	communities, err := h.Store.GetUserCommunities(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return internalError(c, err, "Error getting communities")
	}
	return c.JSON(communities)
}

func (h *handlers) createCommunity(c *fiber.Ctx) error {
	var req createCommunityRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	community, err := h.Store.CreateCommunity(c.UserContext(), models.Community{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Image:       req.Image,
	}, currentUser(c).ID)
	if errors.Is(err, db.ErrAlreadyExists) {
		return fail(c, fiber.StatusConflict, "Community name already taken")
	}
	if err != nil {
		return internalError(c, err, "Error creating community")
	}
	return c.Status(fiber.StatusCreated).JSON(community)
}

func (h *handlers) joinCommunity(c *fiber.Ctx) error {
	joined, err := h.Store.JoinCommunity(c.UserContext(), c.Params("id"), currentUser(c).ID)
	if err != nil {
		return storeError(c, err, "Community not found")
	}
	if !joined {
		return ok(c, fiber.StatusOK, "Already a member")
	}
	return ok(c, fiber.StatusCreated, "Joined community")
}

func (h *handlers) leaveCommunity(c *fiber.Ctx) error {
	err := h.Store.LeaveCommunity(c.UserContext(), c.Params("id"), currentUser(c).ID)
	if errors.Is(err, db.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "Not a member")
	}
	if err != nil {
		return internalError(c, err, "Error leaving community")
	}
	return ok(c, fiber.StatusOK, "Left community")
}

func (h *handlers) communityPosts(c *fiber.Ctx) error {
	community, err := h.Store.GetCommunity(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(c, err, "Community not found")
	}
	return h.viewPosts(c, models.View(community.Id))
}
