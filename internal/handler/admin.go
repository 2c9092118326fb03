package handler

import (
	"errors"
	"strconv"

	"keyauth/internal/admin"
	"keyauth/internal/service"
	"keyauth/internal/store"

	"github.com/gofiber/fiber/v2"
)

// HandleAdminDispatch applies one admin mutation and returns the refreshed
// user and license tables. The admin-token middleware has already gated the
// call.
func HandleAdminDispatch(c *fiber.Ctx) error {
	req := new(admin.Request)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := dispatcher.Apply(*req)
	if err != nil {
		if errors.Is(err, admin.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if errors.Is(err, store.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Key collision, try again",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server error",
		})
	}

	return c.JSON(result)
}

// HandleGetLogs lists admin mutations, newest first.
func HandleGetLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	logs, total, err := service.GetOperationLogs(page, pageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to query operation logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
	})
}
