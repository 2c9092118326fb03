package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"keyauth/internal/database"
	"keyauth/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleStatistics(t *testing.T) {
	app := setupApp(t)

	past := time.Now().Add(-time.Hour)
	seedLicense(t, &model.License{KeyCode: "ACTIVEAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 5})
	seedLicense(t, &model.License{KeyCode: "EXPIREDAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 5, Expiry: &past})
	seedLicense(t, &model.License{KeyCode: "BANNEDAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 5, Banned: true})
	seedLicense(t, &model.License{KeyCode: "SPENTAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1, Uses: 1})

	require.NoError(t, database.DB.Create(&model.ValidationLog{
		LicenseKey: "ACTIVEAAAAAAAAAAAAAAAAAAAAAAAA",
		Identity:   "a@x.com",
		Result:     "valid",
		CreatedAt:  time.Now(),
	}).Error)

	req, err := http.NewRequest("GET", "/api/admin/statistics", nil)
	require.NoError(t, err)
	req.Header.Set("Admin-Token", testAdminToken)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats model.LicenseStatistics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))

	assert.Equal(t, int64(4), stats.TotalLicenses)
	assert.Equal(t, int64(1), stats.BannedLicenses)
	assert.Equal(t, int64(1), stats.ExpiredLicenses)
	assert.Equal(t, int64(1), stats.ExhaustedLicenses)
	assert.Equal(t, int64(3), stats.LifetimeLicenses)
	assert.Equal(t, int64(1), stats.ActiveLicenses)
	assert.Equal(t, int64(1), stats.TotalChecks)
	require.Len(t, stats.ChecksByDay, 1)
	assert.Equal(t, int64(1), stats.ChecksByDay[0].Valid)
	assert.InDelta(t, 1.0, stats.ValidCheckRate(), 0.001)
}
