package main

import (
	"keyauth/internal/config"
	"keyauth/internal/database"
	"keyauth/internal/handler"
	"keyauth/internal/middleware"
	"keyauth/internal/service"
	"keyauth/internal/store"
	"keyauth/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	util.InitJWT(cfg.JWTSecret)
	database.InitDB(cfg.DBPath)

	mirror, err := service.NewSheetSyncService(cfg.SheetSync, cfg.SheetCredential, cfg.SpreadsheetID, cfg.SheetName)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize sheet sync")
	}

	st := store.NewGormStore(database.DB)
	handler.Init(st, mirror)

	if mirror != nil {
		// Full mirror on startup; per-key upserts keep it current after.
		if licenses, err := st.ListLicenses(); err == nil {
			go func() {
				if err := mirror.BatchSyncLicenses(licenses); err != nil {
					log.WithError(err).Warn("initial sheet sync failed")
				}
			}()
		}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Post("/register", handler.HandleRegister)
	api.Post("/login", handler.HandleLogin)
	api.Post("/check", handler.HandleCheckLicense)
	api.Post("/change-password", middleware.Auth(), handler.HandleChangePassword)

	adminGroup := api.Group("/admin", middleware.AdminToken(cfg.AdminToken))
	adminGroup.Post("/", handler.HandleAdminDispatch)
	adminGroup.Get("/statistics", handler.HandleStatistics)
	adminGroup.Get("/logs", handler.HandleGetLogs)
	adminGroup.Get("/usage/:key", handler.HandleLicenseUsage)

	log.WithField("listen", cfg.Listen).Info("keyauth server starting")
	log.Fatal(app.Listen(cfg.Listen))
}
