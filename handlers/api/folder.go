package api

import (
	"github.com/gofiber/fiber/v2"
)

// ListFolders returns the remote folders of an account.
func (h *Handler) ListFolders(c *fiber.Ctx) error {
	account, err := h.ownedAccount(c)
	if err != nil {
		return err
	}

	folders, err := h.mail.ListFolders(account)
	if err != nil {
		return mailError(err, "Failed to get folders")
	}
	return success(c, fiber.StatusOK, folders, "")
}
