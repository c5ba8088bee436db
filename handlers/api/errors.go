package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"crmmail/email"
	"crmmail/utils"
)

// ErrorHandler renders every error as {"success": false, "error": ...}.
// Server side failures are logged with their cause; the cause itself never
// reaches the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var context map[string]interface{}

	var appErr *utils.AppError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		context = appErr.Context
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code >= fiber.StatusInternalServerError {
		utils.Log.WithError(err).WithFields(map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed: %s", message)
	}

	body := fiber.Map{"success": false, "error": message}
	for k, v := range context {
		body[k] = v
	}
	return c.Status(code).JSON(body)
}

// NotFound answers routes nobody registered.
func NotFound(c *fiber.Ctx) error {
	return utils.NotFoundError("Route not found", nil)
}

// mailError maps an error from the mail service onto a response.
func mailError(err error, action string) error {
	var ce *email.ConnectError
	switch {
	case errors.Is(err, email.ErrMessageNotFound):
		return utils.NotFoundError("Email not found", err)
	case email.IsInvalidMessage(err):
		return utils.BadRequestError(err.Error(), err)
	case errors.As(err, &ce):
		return utils.BadGatewayError(action+": "+ce.Failure.Hint, err).
			WithContext("code", ce.Failure.Kind).
			WithContext("protocol", ce.Protocol).
			WithContext("details", ce.Failure.Message)
	default:
		return utils.InternalServerError(action, err)
	}
}
