package api

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"

	"crmmail/models"
	"crmmail/storage"
	"crmmail/utils"
)

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

const minPasswordLength = 6

// Register creates a user and returns it with a fresh token.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}

	var problems []string
	if strings.TrimSpace(req.FirstName) == "" {
		problems = append(problems, "First name is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		problems = append(problems, "Last name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		problems = append(problems, "Invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		problems = append(problems, "Password must be at least 6 characters")
	}
	if len(problems) > 0 {
		return utils.BadRequestError("Validation failed", nil).WithContext("details", problems)
	}

	user := &models.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
	}
	if err := h.users.CreateUser(user, req.Password); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return utils.ConflictError("User already exists", err)
		}
		return utils.InternalServerError("Failed to create user", err)
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return utils.InternalServerError("Failed to issue token", err)
	}

	utils.Log.WithField("user", user.ID).Info("User registered")
	return success(c, fiber.StatusCreated, authResponse{User: user, Token: token}, "")
}

// Login exchanges credentials for a token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}
	if req.Email == "" || req.Password == "" {
		return utils.BadRequestError("Email and password are required", nil)
	}

	user, err := h.users.GetUserByEmail(req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		return utils.UnauthorizedError("Invalid credentials", nil)
	}
	if err != nil {
		return utils.InternalServerError("Failed to load user", err)
	}
	if err := h.users.VerifyPassword(user, req.Password); err != nil {
		return utils.UnauthorizedError("Invalid credentials", nil)
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return utils.InternalServerError("Failed to issue token", err)
	}

	return success(c, fiber.StatusOK, authResponse{User: user, Token: token}, "")
}

// Me returns the authenticated user.
func (h *Handler) Me(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetUser(userID)
	if errors.Is(err, storage.ErrNotFound) {
		return utils.NotFoundError("User not found", nil)
	}
	if err != nil {
		return utils.InternalServerError("Failed to load user", err)
	}
	return success(c, fiber.StatusOK, user, "")
}
