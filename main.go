package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"crmmail/config"
	"crmmail/email"
	"crmmail/handlers/api"
	"crmmail/middleware"
	"crmmail/storage"
	"crmmail/utils"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	level, err := utils.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		utils.Log.Warn("%v, using info", err)
	}
	utils.Log.SetLevel(level)
	utils.Log.SetJSON(cfg.Log.Format == "json")

	utils.Log.Info("Initializing CRM mail service...")

	db, err := storage.InitDB(cfg.Database.Path)
	if err != nil {
		utils.Log.Error("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	tokens := middleware.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry)
	handler := api.NewHandler(
		cfg,
		storage.NewUserStorage(db),
		storage.NewAccountStorage(db, []byte(cfg.Encryption.Key)),
		storage.NewMessageStorage(db),
		email.NewService(email.OptionsFromConfig(cfg.Mail)),
		tokens,
	)

	app := fiber.New(fiber.Config{
		AppName:      "crmmail",
		ErrorHandler: api.ErrorHandler,
		BodyLimit:    25 * 1024 * 1024, // attachments arrive inline as base64
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(compress.New())
	origins := cfg.Server.AllowedOrigins()
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
		// fiber refuses credentials with a wildcard origin
		AllowCredentials: origins != "*",
	}))
	app.Use("/api", middleware.RateLimiter(cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow))

	handler.RegisterRoutes(app)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		utils.Log.Info("Shutting down...")
		if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
			utils.Log.Error("Error during shutdown: %v", err)
		}
	}()

	utils.Log.Info("Starting server on port %d...", cfg.Server.Port)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		utils.Log.Error("Error starting server: %v", err)
		os.Exit(1)
	}
}
