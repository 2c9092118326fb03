package handler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"keyauth/internal/database"
	"keyauth/internal/license"
	"keyauth/internal/model"
	"keyauth/internal/store"
	"keyauth/internal/util"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Key      string `json:"key"`
	Email    string `json:"email"`
	HWID     string `json:"hwid"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates an account gated by a license key. The key's use
// counter, owner link and identity binding commit atomically with the user
// row, so a lost race never leaves a half-registered account behind.
func HandleRegister(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Password = strings.TrimSpace(input.Password)
	input.Key = strings.ToUpper(strings.TrimSpace(input.Key))
	input.Email = strings.TrimSpace(input.Email)
	input.HWID = strings.TrimSpace(input.HWID)

	var missing []string
	if input.Username == "" {
		missing = append(missing, "username")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if input.Key == "" {
		missing = append(missing, "license key")
	}
	if input.Email == "" {
		missing = append(missing, "email")
	}
	if input.HWID == "" {
		missing = append(missing, "hwid")
	}
	if len(missing) > 0 {
		plural := ""
		if len(missing) > 1 {
			plural = "s"
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Missing field%s: %s", plural, strings.Join(missing, ", ")),
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash password",
		})
	}

	clientIP := c.IP()
	var user *model.User
	verdict, err := validator.Register(input.Key, input.HWID, func(tx store.Store) (uint, error) {
		user = &model.User{
			Username:     input.Username,
			PasswordHash: string(hashed),
			Email:        input.Email,
			CreatedAt:    time.Now(),
			LastLoginIP:  clientIP,
		}
		if err := tx.CreateUser(user); err != nil {
			return 0, err
		}
		return user.ID, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Username already exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server error",
		})
	}
	if !verdict.Valid {
		return rejectLicense(c, verdict.Reason)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"user_id":     user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"license_key": input.Key,
		"hwid":        input.HWID,
		"register_ip": clientIP,
	})
}

func rejectLicense(c *fiber.Ctx, reason license.Reason) error {
	switch reason {
	case license.ReasonNotFound:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "License not found",
		})
	case license.ReasonBanned:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "License is banned",
		})
	case license.ReasonExpired:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "License has expired",
		})
	case license.ReasonExhausted:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "License has reached max uses",
		})
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "License locked to another identity",
		})
	}
}

func HandleLogin(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if input.Username == "" || input.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing username or password",
		})
	}

	loginIP := c.IP()
	user, err := licenseStore.FindUserByUsername(strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server error",
		})
	}
	if user.Banned {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "User is banned",
		})
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		recordLogin(c, user.ID, "failed")
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Invalid password",
		})
	}

	// Surface the newest owned license; a banned or expired one blocks the
	// login outright. Runtime checks never touch the use counter.
	var licenseData *model.LicenseView
	lic, err := licenseStore.LatestLicenseByOwner(user.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server error",
		})
	}
	if lic != nil {
		if lic.Banned {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "License is banned",
			})
		}
		if license.ClassifyExpiry(lic.Expiry, time.Now()).State == license.Expired {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "License has expired",
			})
		}
		view := license.NewLicenseView(lic, user, time.Now())
		licenseData = &view
	}

	now := time.Now()
	if err := licenseStore.TouchLogin(user.ID, loginIP, now); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server error",
		})
	}
	recordLogin(c, user.ID, "success")

	token, err := util.GenerateToken(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"token":         token,
		"user_id":       user.ID,
		"username":      user.Username,
		"last_login_ip": loginIP,
		"last_login_at": now.Format(time.RFC3339),
		"license":       licenseData,
	})
}

func recordLogin(c *fiber.Ctx, userID uint, status string) {
	_ = licenseStore.AppendLoginLog(&model.LoginLog{
		UserID:    userID,
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
		Status:    status,
		CreatedAt: time.Now(),
	})
}

// HandleChangePassword lets an authenticated user rotate their password.
func HandleChangePassword(c *fiber.Ctx) error {
	type ChangePasswordInput struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}

	input := new(ChangePasswordInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if input.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing new password",
		})
	}

	userID := c.Locals("userID").(uint)

	user, err := licenseStore.FindUserByID(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Current password is incorrect",
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash password",
		})
	}

	err = database.DB.Model(&model.User{}).Where("id = ?", userID).
		Update("password_hash", string(hashed)).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update password",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Password updated",
	})
}
