package server

import (
	"errors"

	"agora/auth"
	"agora/db"
	"agora/models"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *handlers) signUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return internalError(c, err, "Error hashing password")
	}

	user, err := h.Store.CreateUser(c.UserContext(), models.User{
		Email:        req.Email,
		Username:     req.Username,
		Handle:       req.Handle,
		PasswordHash: hash,
	})
	if errors.Is(err, db.ErrAlreadyExists) {
		return fail(c, fiber.StatusConflict, "User already exists")
	}
	if err != nil {
		return internalError(c, err, "Error creating user")
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		return internalError(c, err, "Error issuing token")
	}

	log.WithFields(log.Fields{
		"id":     user.Id,
		"handle": user.Handle,
	}).Info("User signed up")

	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: token, User: user.Public()})
}

func (h *handlers) signIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.EmailOrUsername == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "emailOrUsername and password are required")
	}

	user, err := h.Store.GetUserByLogin(c.UserContext(), req.EmailOrUsername)
	if errors.Is(err, db.ErrNotFound) {
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return internalError(c, err, "Error finding user")
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		return internalError(c, err, "Error issuing token")
	}
	return c.JSON(authResponse{Token: token, User: user.Public()})
}

func (h *handlers) me(c *fiber.Ctx) error {
	user, err := h.Store.GetUserByID(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return storeError(c, err, "User not found")
	}
	return c.JSON(user.Public())
}
