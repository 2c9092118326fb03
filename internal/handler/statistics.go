package handler

import (
	"time"

	"keyauth/internal/database"
	"keyauth/internal/model"

	"github.com/gofiber/fiber/v2"
)

// HandleStatistics summarises the license and user tables for the admin
// panel. Expiry and exhaustion are computed facts, not flags, so they are
// derived here rather than read from a column.
func HandleStatistics(c *fiber.Ctx) error {
	stats := model.LicenseStatistics{}
	db := database.DB
	now := time.Now()

	if err := db.Model(&model.License{}).Count(&stats.TotalLicenses).Error; err != nil {
		return statisticsError(c)
	}
	if err := db.Model(&model.License{}).Where("banned = ?", true).
		Count(&stats.BannedLicenses).Error; err != nil {
		return statisticsError(c)
	}
	if err := db.Model(&model.License{}).
		Where("expiry IS NOT NULL AND expiry <= ?", now).
		Count(&stats.ExpiredLicenses).Error; err != nil {
		return statisticsError(c)
	}
	if err := db.Model(&model.License{}).
		Where("allowed_uses != 0 AND uses >= allowed_uses").
		Count(&stats.ExhaustedLicenses).Error; err != nil {
		return statisticsError(c)
	}
	if err := db.Model(&model.License{}).Where("expiry IS NULL").
		Count(&stats.LifetimeLicenses).Error; err != nil {
		return statisticsError(c)
	}
	if err := db.Model(&model.License{}).
		Where("banned = ?", false).
		Where("expiry IS NULL OR expiry > ?", now).
		Where("allowed_uses = 0 OR uses < allowed_uses").
		Count(&stats.ActiveLicenses).Error; err != nil {
		return statisticsError(c)
	}

	if err := db.Model(&model.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return statisticsError(c)
	}
	if err := db.Model(&model.User{}).Where("banned = ?", true).
		Count(&stats.BannedUsers).Error; err != nil {
		return statisticsError(c)
	}

	if err := db.Model(&model.ValidationLog{}).Count(&stats.TotalChecks).Error; err != nil {
		return statisticsError(c)
	}

	rows, err := db.Model(&model.ValidationLog{}).
		Select("date(created_at) AS date, count(*) AS checks, sum(CASE WHEN result = 'valid' THEN 1 ELSE 0 END) AS valid").
		Where("created_at >= ?", now.AddDate(0, 0, -30)).
		Group("date(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return statisticsError(c)
	}
	defer rows.Close()
	for rows.Next() {
		var d model.DailyChecks
		if err := rows.Scan(&d.Date, &d.Checks, &d.Valid); err != nil {
			return statisticsError(c)
		}
		stats.ChecksByDay = append(stats.ChecksByDay, d)
	}

	return c.JSON(stats)
}

func statisticsError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to compute statistics",
	})
}
