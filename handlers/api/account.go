package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"crmmail/email"
	"crmmail/models"
	"crmmail/storage"
	"crmmail/utils"
)

// accountRequest is the body of add-account and test-connection.
type accountRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Provider     string `json:"provider"`
	IMAPHost     string `json:"imapHost"`
	IMAPPort     int    `json:"imapPort"`
	IMAPSecure   bool   `json:"imapSecure"`
	IMAPUser     string `json:"imapUser"`
	IMAPPassword string `json:"imapPassword"`
	SMTPHost     string `json:"smtpHost"`
	SMTPPort     int    `json:"smtpPort"`
	SMTPSecure   bool   `json:"smtpSecure"`
	SMTPUser     string `json:"smtpUser"`
	SMTPPassword string `json:"smtpPassword"`
}

// settings merges the provider defaults into the request and validates the
// result. A non-nil error is ready to be returned to the client.
func (r *accountRequest) settings() (string, models.EmailSettings, error) {
	key := strings.ToLower(strings.TrimSpace(r.Provider))
	if key == "" {
		key = email.DetectProvider(r.Email)
	}
	provider, ok := email.LookupProvider(key)
	if !ok {
		return "", models.EmailSettings{}, utils.BadRequestError("Validation failed", nil).
			WithContext("details", []string{"Unsupported provider: " + r.Provider})
	}

	settings := provider.Apply(models.EmailSettings{
		Email: strings.TrimSpace(r.Email),
		IMAP: models.Endpoint{
			Host:     strings.TrimSpace(r.IMAPHost),
			Port:     r.IMAPPort,
			Secure:   r.IMAPSecure,
			User:     r.IMAPUser,
			Password: r.IMAPPassword,
		},
		SMTP: models.Endpoint{
			Host:     strings.TrimSpace(r.SMTPHost),
			Port:     r.SMTPPort,
			Secure:   r.SMTPSecure,
			User:     r.SMTPUser,
			Password: r.SMTPPassword,
		},
	})

	if problems := email.Validate(settings); len(problems) > 0 {
		return "", models.EmailSettings{}, utils.BadRequestError("Validation failed", nil).
			WithContext("details", problems)
	}
	return provider.Key, settings, nil
}

// TestConnection probes candidate settings without saving anything.
func (h *Handler) TestConnection(c *fiber.Ctx) error {
	var req accountRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}

	_, settings, err := req.settings()
	if err != nil {
		return err
	}

	result := h.mail.Probe(settings)
	message := "Connection test successful"
	if !result.Overall {
		message = "Connection test failed"
	}
	return success(c, fiber.StatusOK, result, message)
}

// CreateAccount validates and probes the settings, then saves the account.
func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req accountRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}

	providerKey, settings, err := req.settings()
	if err != nil {
		return err
	}

	result := h.mail.Probe(settings)
	if !result.Overall {
		return utils.BadRequestError("Connection test failed. Please check your email settings.", nil).
			WithContext("details", result)
	}

	account := &models.EmailAccount{
		UserID:   userID,
		Name:     strings.TrimSpace(req.Name),
		Provider: providerKey,
		IsActive: true,
	}
	if account.Name == "" {
		account.Name = settings.Email
	}
	account.ApplySettings(settings)

	if err := h.accounts.CreateAccount(account); err != nil {
		return utils.InternalServerError("Failed to create account", err)
	}

	utils.Log.WithFields(map[string]interface{}{
		"user":    userID,
		"account": account.ID,
	}).Info("Email account added")

	return success(c, fiber.StatusCreated, account, "Email account added successfully")
}

// ListAccounts returns the caller's accounts.
func (h *Handler) ListAccounts(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	accounts, err := h.accounts.GetAccountsByUser(userID)
	if err != nil {
		return utils.InternalServerError("Failed to retrieve accounts", err)
	}
	return success(c, fiber.StatusOK, accounts, "")
}

// GetAccount returns one account.
func (h *Handler) GetAccount(c *fiber.Ctx) error {
	account, err := h.ownedAccount(c)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, account, "")
}

type updateAccountRequest struct {
	IsActive *bool `json:"isActive"`
}

// UpdateAccount activates or deactivates an account.
func (h *Handler) UpdateAccount(c *fiber.Ctx) error {
	account, err := h.ownedAccount(c)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}
	if req.IsActive == nil {
		return utils.BadRequestError("isActive is required", nil)
	}

	if err := h.accounts.SetActive(account.ID, *req.IsActive); err != nil {
		return utils.InternalServerError("Failed to update account", err)
	}
	account.IsActive = *req.IsActive

	return success(c, fiber.StatusOK, account, "Email account updated successfully")
}

// DeleteAccount removes an account together with its stored messages.
func (h *Handler) DeleteAccount(c *fiber.Ctx) error {
	account, err := h.ownedAccount(c)
	if err != nil {
		return err
	}

	if err := h.accounts.DeleteAccount(account.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return utils.NotFoundError("Account not found", nil)
		}
		return utils.InternalServerError("Failed to delete account", err)
	}

	utils.Log.WithField("account", account.ID).Info("Email account deleted")
	return success(c, fiber.StatusOK, nil, "Email account deleted successfully")
}
