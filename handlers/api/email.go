package api

import (
	"github.com/gofiber/fiber/v2"

	"crmmail/email"
	"crmmail/storage"
	"crmmail/utils"
)

// syncStore joins the two storages a sync writes to.
type syncStore struct {
	*storage.MessageStorage
	*storage.AccountStorage
}

var _ email.MessageStore = syncStore{}

// ListEmails syncs an active account and returns the stored messages,
// newest first. Inactive accounts get the stored view without a sync.
func (h *Handler) ListEmails(c *fiber.Ctx) error {
	account, err := h.ownedAccount(c)
	if err != nil {
		return err
	}

	limit := limitQuery(c, h.config.Mail.DefaultLimit, h.config.Mail.MaxLimit)

	if !account.IsActive {
		messages, err := h.messages.ListMessages(account.ID, limit)
		if err != nil {
			return utils.InternalServerError("Failed to fetch emails", err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    messages,
		})
	}

	report, messages, err := h.mail.Sync(account, limit, syncStore{h.messages, h.accounts})
	if err != nil {
		return mailError(err, "Failed to fetch emails")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    messages,
		"sync":    report,
	})
}

// MarkRead sets \Seen remotely, then on the stored copy.
func (h *Handler) MarkRead(c *fiber.Ctx) error {
	account, err := h.ownedAccount(c)
	if err != nil {
		return err
	}
	messageID, err := messageIDParam(c)
	if err != nil {
		return err
	}

	if err := h.mail.MarkRead(account, messageID); err != nil {
		return mailError(err, "Failed to mark email as read")
	}
	if err := h.messages.MarkRead(account.ID, messageID); err != nil {
		return utils.InternalServerError("Failed to mark email as read", err)
	}

	return success(c, fiber.StatusOK, nil, "Email marked as read")
}

// DeleteEmail deletes the remote message, then the stored copy.
func (h *Handler) DeleteEmail(c *fiber.Ctx) error {
	account, err := h.ownedAccount(c)
	if err != nil {
		return err
	}
	messageID, err := messageIDParam(c)
	if err != nil {
		return err
	}

	if err := h.mail.DeleteMessage(account, messageID); err != nil {
		return mailError(err, "Failed to delete email")
	}
	if err := h.messages.DeleteMessage(account.ID, messageID); err != nil {
		return utils.InternalServerError("Failed to delete email", err)
	}

	return success(c, fiber.StatusOK, nil, "Email deleted successfully")
}
