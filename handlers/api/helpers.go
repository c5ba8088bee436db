package api

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"crmmail/middleware"
	"crmmail/models"
	"crmmail/storage"
	"crmmail/utils"
)

// success writes the standard success envelope.
func success(c *fiber.Ctx, status int, data interface{}, message string) error {
	body := fiber.Map{"success": true}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	return c.Status(status).JSON(body)
}

// currentUserID returns the id Protected stored for the request.
func currentUserID(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals(middleware.LocalUserID).(string)
	if !ok || userID == "" {
		return "", utils.UnauthorizedError("Access token required", nil)
	}
	return userID, nil
}

// ownedAccount loads the :id account, answering 404 when it does not exist
// or belongs to someone else.
func (h *Handler) ownedAccount(c *fiber.Ctx) (*models.EmailAccount, error) {
	userID, err := currentUserID(c)
	if err != nil {
		return nil, err
	}

	account, err := h.accounts.GetAccountForUser(c.Params("id"), userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, utils.NotFoundError("Account not found", nil)
	}
	if err != nil {
		return nil, utils.InternalServerError("Failed to load account", err)
	}
	return account, nil
}

// messageIDParam returns the decoded :messageId. Message-IDs carry '<', '>'
// and '@', so clients percent-encode them.
func messageIDParam(c *fiber.Ctx) (string, error) {
	id, err := url.PathUnescape(c.Params("messageId"))
	if err != nil || id == "" {
		return "", utils.BadRequestError("Invalid message id", err)
	}
	return id, nil
}

// limitQuery parses ?limit=, clamped to [1, max].
func limitQuery(c *fiber.Ctx, def, max int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
