// Package server exposes the JSON HTTP API
package server

import (
	"errors"
	"strings"
	"time"

	"agora/auth"
	"agora/config"
	"agora/db"
	"agora/feeds"
	"agora/models"
	"agora/moderation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Publisher accepts domain events for asynchronous processing
type Publisher interface {
	Publish(event models.Event) bool
}

type ServerConfig struct {
	Store       db.Store
	Feeds       *feeds.Feeds
	Tokens      *auth.Tokens
	Moderator   *moderation.Moderator
	Events      Publisher
	Broadcaster *Broadcaster
	Ads         config.TomlAds

	// Comma separated origins allowed by CORS
	AllowOrigins string
	// How long GET /api/ads responses are cached, zero disables caching
	AdsCacheTTL time.Duration
}

type handlers struct {
	*ServerConfig
}

// Server returns the fiber app serving the API
func Server(cfg *ServerConfig) *fiber.App {
	h := &handlers{cfg}

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	app.Use(latencyLogger)
	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			// Compression buffers the body and would stall the event stream
			return strings.HasSuffix(c.Path(), "/sse")
		},
	}))

	if cfg.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowHeaders: "Authorization, Content-Type, Cache-Control",
		}))
	}

	if cfg.AdsCacheTTL > 0 {
		app.Use(cache.New(cache.Config{
			// Signed-in callers may have just created an ad, so they always
			// read through to the store
			Next: func(c *fiber.Ctx) bool {
				return c.Method() != fiber.MethodGet || c.Path() != "/api/ads" ||
					c.Get(fiber.HeaderAuthorization) != ""
			},
			Expiration: cfg.AdsCacheTTL,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.Request().URI().String()
			},
		}))
	}

	app.Get("/healthz", h.health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	requireUser := requireAuth(cfg.Tokens)

	api.Post("/auth/signup", h.signUp)
	api.Post("/auth/signin", h.signIn)
	api.Get("/auth/me", requireUser, h.me)

	api.Get("/feeds", h.describeFeeds)
	api.Get("/ads", h.listAds)
	api.Post("/ads", requireUser, h.createAd)

	// Static post routes before /posts/:id
	api.Get("/posts", h.globalPosts)
	api.Post("/posts", requireUser, h.createPost)
	api.Get("/posts/for-you", requireUser, h.forYouPosts)
	api.Get("/posts/following", requireUser, h.followingPosts)
	api.Get("/posts/:id", h.getPost)
	api.Delete("/posts/:id", requireUser, h.deletePost)
	api.Post("/posts/:id/like", requireUser, h.likePost)
	api.Delete("/posts/:id/like", requireUser, h.unlikePost)
	api.Post("/posts/:id/bookmark", requireUser, h.bookmarkPost)
	api.Delete("/posts/:id/bookmark", requireUser, h.removeBookmark)
	api.Get("/posts/:id/comments", h.listComments)
	api.Post("/posts/:id/comments", requireUser, h.createComment)
	api.Get("/bookmarks", requireUser, h.listBookmarks)

	api.Patch("/users/me", requireUser, h.updateMe)
	api.Get("/users/by-handle/:handle", h.getUserByHandle)
	api.Get("/users/:id", h.getUser)
	api.Get("/users/:id/follow-counts", h.followCounts)
	api.Get("/users/:id/followers", h.followers)
	api.Get("/users/:id/following", h.following)
	api.Get("/users/:id/posts", h.userPosts)
	api.Post("/users/:id/follow", requireUser, h.follow)
	api.Delete("/users/:id/follow", requireUser, h.unfollow)
	api.Get("/users/:id/follows/:targetId", requireUser, h.isFollowing)
	api.Post("/users/:id/follows/:targetId", requireUser, h.followAs)
	api.Delete("/users/:id/follows/:targetId", requireUser, h.unfollowAs)

	api.Get("/communities", h.listCommunities)
	api.Post("/communities", requireUser, h.createCommunity)
	api.Get("/communities/user", requireUser, h.userCommunities)
	api.Post("/communities/:id/join", requireUser, h.joinCommunity)
	api.Delete("/communities/:id/join", requireUser, h.leaveCommunity)
	api.Get("/communities/:id/posts", requireUser, h.communityPosts)

	api.Post("/messages", requireUser, h.sendMessage)
	api.Get("/messages", requireUser, h.conversations)
	api.Get("/messages/:userId", requireUser, h.thread)

	api.Get("/notifications", requireUser, h.listNotifications)
	api.Post("/notifications/read", requireUser, h.markNotificationsRead)
	api.Get("/notifications/sse", requireUser, h.notificationStream)
	api.Delete("/notifications/sse", requireUser, h.closeNotificationStream)

	api.Get("/analytics", requireUser, h.analytics)

	return app
}

func (h *handlers) health(c *fiber.Ctx) error {
	if err := h.Store.Ping(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *handlers) describeFeeds(c *fiber.Ctx) error {
	return c.JSON(h.Feeds.Describe())
}

// publish hands an event to the processor when one is configured
func (h *handlers) publish(event models.Event) {
	if h.Events != nil {
		h.Events.Publish(event)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}
