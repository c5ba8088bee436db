package api

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"crmmail/models"
	"crmmail/utils"
)

// Recipients accepts either a single address string or an array of them.
type Recipients []string

func (r *Recipients) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*r = nil
		} else {
			*r = Recipients{single}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("recipients must be a string or an array of strings")
	}
	*r = many
	return nil
}

// SendRequest represents an email send request
type SendRequest struct {
	To          Recipients          `json:"to"`
	Cc          Recipients          `json:"cc"`
	Bcc         Recipients          `json:"bcc"`
	Subject     string              `json:"subject"`
	Text        string              `json:"text"`
	HTML        string              `json:"html"`
	Attachments []models.Attachment `json:"attachments"`
}

// SendEmail sends a message through the account's SMTP server.
func (h *Handler) SendEmail(c *fiber.Ctx) error {
	account, err := h.ownedAccount(c)
	if err != nil {
		return err
	}

	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}

	msg := &models.OutgoingMessage{
		To:          req.To,
		Cc:          req.Cc,
		Bcc:         req.Bcc,
		Subject:     req.Subject,
		Text:        req.Text,
		HTML:        req.HTML,
		Attachments: req.Attachments,
	}
	if err := h.mail.Send(account, msg); err != nil {
		return mailError(err, "Failed to send email")
	}

	return success(c, fiber.StatusOK, nil, "Email sent successfully")
}
