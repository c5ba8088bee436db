package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"crmmail/config"
	"crmmail/email"
	"crmmail/middleware"
	"crmmail/models"
	"crmmail/storage"
)

// MailService is the part of email.Service the handlers drive.
type MailService interface {
	Probe(settings models.EmailSettings) *models.ConnectivityResult
	Sync(account *models.EmailAccount, limit int, store email.MessageStore) (*email.SyncReport, []models.EmailMessage, error)
	Send(account *models.EmailAccount, msg *models.OutgoingMessage) error
	MarkRead(account *models.EmailAccount, messageID string) error
	DeleteMessage(account *models.EmailAccount, messageID string) error
	ListFolders(account *models.EmailAccount) ([]models.Folder, error)
}

// Handler serves the JSON API.
type Handler struct {
	config   *config.Config
	users    *storage.UserStorage
	accounts *storage.AccountStorage
	messages *storage.MessageStorage
	mail     MailService
	tokens   *middleware.TokenIssuer
}

// NewHandler creates a new API handler
func NewHandler(cfg *config.Config, users *storage.UserStorage, accounts *storage.AccountStorage,
	messages *storage.MessageStorage, mail MailService, tokens *middleware.TokenIssuer) *Handler {
	return &Handler{
		config:   cfg,
		users:    users,
		accounts: accounts,
		messages: messages,
		mail:     mail,
		tokens:   tokens,
	}
}

// RegisterRoutes mounts the API on app, followed by the catch-all 404.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	auth := app.Group("/api/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Get("/me", middleware.Protected(h.tokens), h.Me)

	emails := app.Group("/api/emails", middleware.Protected(h.tokens))
	{
		emails.Get("/providers", h.ListProviders)
		emails.Get("/providers/detect", h.DetectProvider)
		emails.Get("/providers/:key", h.GetProvider)

		emails.Post("/test-connection", h.TestConnection)

		emails.Get("/accounts", h.ListAccounts)
		emails.Post("/accounts", h.CreateAccount)
		emails.Get("/accounts/:id", h.GetAccount)
		emails.Patch("/accounts/:id", h.UpdateAccount)
		emails.Delete("/accounts/:id", h.DeleteAccount)

		emails.Get("/accounts/:id/emails", h.ListEmails)
		emails.Post("/accounts/:id/send", h.SendEmail)
		emails.Patch("/accounts/:id/emails/:messageId/read", h.MarkRead)
		emails.Delete("/accounts/:id/emails/:messageId", h.DeleteEmail)
		emails.Get("/accounts/:id/folders", h.ListFolders)
	}

	app.Use(NotFound)
}
