package server

import (
	"strings"

	"agora/models"

	"github.com/gofiber/fiber/v2"
)

// listAds serves active ads. The limit defaults and is capped by config.
func (h *handlers) listAds(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", h.Ads.DefaultLimit)
	if limit < 1 {
		limit = h.Ads.DefaultLimit
	}
	if limit > h.Ads.MaxLimit {
		limit = h.Ads.MaxLimit
	}

	ads, err := h.Store.GetActiveAds(c.UserContext(), limit)
	if err != nil {
		return internalError(c, err, "Error getting ads")
	}
	return c.JSON(ads)
}

func (h *handlers) createAd(c *fiber.Ctx) error {
	var req createAdRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	ad, err := h.Store.CreateAd(c.UserContext(), models.Advertisement{
		Title:    strings.TrimSpace(req.Title),
		Content:  strings.TrimSpace(req.Content),
		ImageUrl: req.ImageUrl,
		Link:     req.Link,
		Active:   active,
		Priority: req.Priority,
	})
	if err != nil {
		return internalError(c, err, "Error creating ad")
	}
	return c.Status(fiber.StatusCreated).JSON(ad)
}
