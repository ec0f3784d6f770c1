package server

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

func (h *handlers) analytics(c *fiber.Ctx) error {
	timeAgg := c.Query("time", "day")
	if timeAgg != "hour" && timeAgg != "day" && timeAgg != "week" {
		return fail(c, fiber.StatusBadRequest, "Invalid time")
	}

	userID := currentUser(c).ID
	analytics, err := h.Store.GetAnalytics(c.UserContext(), userID, timeAgg)
	if err != nil {
		return internalError(c, err, "Error getting analytics")
	}

	log.WithFields(log.Fields{
		"user":    userID,
		"time":    timeAgg,
		"buckets": len(analytics.PostsByTime),
	}).Debug("Get analytics")

	return c.JSON(analytics)
}
