package handler

import (
	"strings"
	"time"

	"keyauth/internal/database"
	"keyauth/internal/model"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type CheckInput struct {
	Key      string `json:"key"`
	Identity string `json:"identity"`
	// Email is the legacy name for the identity field; older clients still
	// send it.
	Email string `json:"email"`
}

// HandleCheckLicense is the runtime validation flow: it never increments the
// use counter but does perform the first-use binding. Invalid keys answer
// 200 with valid=false and a distinguishable reason; only malformed requests
// and store failures get error statuses.
func HandleCheckLicense(c *fiber.Ctx) error {
	input := new(CheckInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	key := strings.ToUpper(strings.TrimSpace(input.Key))
	identity := strings.TrimSpace(input.Identity)
	if identity == "" {
		identity = strings.TrimSpace(input.Email)
	}
	if key == "" || identity == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing key or email",
		})
	}

	verdict, err := validator.Validate(key, identity)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server error",
		})
	}

	result := "valid"
	if !verdict.Valid {
		result = string(verdict.Reason)
	}
	logErr := licenseStore.AppendValidationLog(&model.ValidationLog{
		LicenseKey: key,
		Identity:   identity,
		Result:     result,
		IPAddress:  c.IP(),
		UserAgent:  c.Get("User-Agent"),
		CreatedAt:  time.Now(),
	})
	if logErr != nil {
		log.WithError(logErr).Warn("failed to record validation log")
	}

	if !verdict.Valid {
		return c.JSON(fiber.Map{
			"valid":  false,
			"reason": verdict.Reason,
		})
	}

	return c.JSON(fiber.Map{
		"valid":   true,
		"license": verdict.License,
	})
}

// HandleLicenseUsage lists the recent validation attempts for one key.
func HandleLicenseUsage(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing license key",
		})
	}

	var logs []model.ValidationLog
	err := database.DB.Where("license_key = ?", key).
		Order("created_at DESC").Limit(20).Find(&logs).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to query validation logs",
		})
	}

	return c.JSON(fiber.Map{
		"usages": logs,
	})
}
