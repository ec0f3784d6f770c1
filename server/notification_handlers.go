package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"agora/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	notificationPageSize = 20
	pingInterval         = 15 * time.Second
)

func (h *handlers) listNotifications(c *fiber.Ctx) error {
	notifications, err := h.Store.GetNotifications(c.UserContext(), currentUser(c).ID, page(c), notificationPageSize)
	if err != nil {
		return internalError(c, err, "Error getting notifications")
	}
	return c.JSON(notifications)
}

func (h *handlers) markNotificationsRead(c *fiber.Ctx) error {
	if err := h.Store.MarkNotificationsRead(c.UserContext(), currentUser(c).ID); err != nil {
		return internalError(c, err, "Error marking notifications read")
	}
	return ok(c, fiber.StatusOK, "Notifications marked as read")
}

func (h *handlers) closeNotificationStream(c *fiber.Ctx) error {
	if !h.Broadcaster.RemoveClient(c.Query("key"), currentUser(c).ID) {
		return fail(c, fiber.StatusNotFound, "Stream not found")
	}
	return ok(c, fiber.StatusOK, "Stream closed")
}

// notificationStream streams the caller's notifications as server-sent
// events: init carries the client key, ping keeps the connection open.
func (h *handlers) notificationStream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	userID := currentUser(c).ID
	key := uuid.New().String()
	notifications := make(chan models.Notification, 10)
	h.Broadcaster.AddClient(key, userID, notifications)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ping := time.NewTicker(pingInterval)
		defer ping.Stop()
		defer h.Broadcaster.RemoveClient(key, "")

		if err := writeEvent(w, "init", key); err != nil {
			log.Errorf("Failed to send init event: %v", err)
			return
		}

		for {
			select {
			case <-ping.C:
				if err := writeEvent(w, "ping", ""); err != nil {
					log.Warnf("Failed to send ping to client %s: %v", key, err)
					return
				}

			case n, open := <-notifications:
				if !open {
					return
				}
				data, err := json.Marshal(n)
				if err != nil {
					log.Errorf("Error marshalling notification for client %s: %v", key, err)
					continue
				}
				if err := writeEvent(w, "notification", string(data)); err != nil {
					log.Warnf("Failed to send notification to client %s: %v", key, err)
					return
				}
			}
		}
	}))

	return nil
}

func writeEvent(w *bufio.Writer, event, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
