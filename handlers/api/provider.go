package api

import (
	"github.com/gofiber/fiber/v2"

	"crmmail/email"
	"crmmail/utils"
)

type providerDetail struct {
	email.Provider
	Recommendations []string `json:"recommendations"`
}

// ListProviders returns the provider catalog.
func (h *Handler) ListProviders(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, email.Providers(), "")
}

// GetProvider returns one provider with its setup recommendations.
func (h *Handler) GetProvider(c *fiber.Ctx) error {
	p, ok := email.LookupProvider(c.Params("key"))
	if !ok {
		return utils.NotFoundError("Provider not found", nil)
	}
	return success(c, fiber.StatusOK, providerDetail{Provider: p, Recommendations: email.Recommendations(p.Key)}, "")
}

// DetectProvider guesses the provider from ?email=.
func (h *Handler) DetectProvider(c *fiber.Ctx) error {
	address := c.Query("email")
	if address == "" {
		return utils.BadRequestError("email query parameter is required", nil)
	}
	p, _ := email.LookupProvider(email.DetectProvider(address))
	return success(c, fiber.StatusOK, providerDetail{Provider: p, Recommendations: email.Recommendations(p.Key)}, "")
}
