package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"agora/auth"
	"agora/db"
	"agora/models"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "agora_http_request_duration_seconds",
	Help:    "HTTP request latency by route and status",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route", "status"})

const userKey = "user"

// latencyLogger logs and records the latency of each request
func latencyLogger(c *fiber.Ctx) error {
	start := time.Now()

	err := c.Next()

	latency := time.Since(start)
	status := c.Response().StatusCode()
	if err != nil {
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}

	requestDuration.
		WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
		Observe(latency.Seconds())

	log.WithFields(log.Fields{
		"method":  c.Method(),
		"route":   c.Route().Path,
		"status":  status,
		"latency": latency,
	}).Info("Request")
	return err
}

// requireAuth resolves the bearer token into the current user. The event
// stream may pass the token as a query parameter since browsers cannot set
// headers on it.
func requireAuth(tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ""
		if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		} else if strings.HasSuffix(c.Path(), "/sse") {
			token = c.Query("token")
		}
		if token == "" {
			return fail(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		user, err := tokens.Parse(token)
		if err != nil {
			log.WithField("error", err).Debug("Rejected token")
			return fail(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

// currentUser returns the authenticated caller, zero when unauthenticated
func currentUser(c *fiber.Ctx) models.CurrentUser {
	user, _ := c.Locals(userKey).(models.CurrentUser)
	return user
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func ok(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}

// internalError logs err and answers with a generic 500
func internalError(c *fiber.Ctx, err error, msg string) error {
	log.WithFields(log.Fields{
		"error":      err,
		"route":      c.Route().Path,
		"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
	}).Error(msg)
	return fail(c, fiber.StatusInternalServerError, "Internal Server Error")
}

// storeError maps store sentinels onto statuses, anything else is a 500
func storeError(c *fiber.Ctx, err error, notFound string) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return fail(c, fiber.StatusNotFound, notFound)
	case errors.Is(err, db.ErrAlreadyExists):
		return fail(c, fiber.StatusConflict, "Already exists")
	}
	return internalError(c, err, "Store error")
}

// page reads the 1-based page query parameter
func page(c *fiber.Ctx) int {
	p := c.QueryInt("page", 1)
	if p < 1 {
		return 1
	}
	return p
}
