package model

import "fmt"

// LicenseView is the read-only projection handed to callers; never the raw
// row. Expiry carries the classified state ("Lifetime", "Expired" or a
// remaining-time string), not the stored timestamp.
type LicenseView struct {
	ID          uint       `json:"id"`
	KeyCode     string     `json:"key_code"`
	Usage       string     `json:"usage"`
	Uses        int        `json:"uses"`
	AllowedUses int        `json:"allowed_uses"`
	HWIDLocked  bool       `json:"hwid_locked"`
	Email       *string    `json:"email"`
	Expiry      string     `json:"expiry"`
	Banned      bool       `json:"banned"`
	Owner       *OwnerView `json:"user"`
}

// OwnerView is the owning user's summary embedded in a license projection.
type OwnerView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserView struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Banned      bool   `json:"banned"`
	CreatedAt   string `json:"created_at"`
	LastLoginAt string `json:"last_login_at"`
	LastLoginIP string `json:"last_login_ip"`
}

// UsageString renders the "uses/allowed" pair shown in the admin tables.
func UsageString(uses, allowed int) string {
	return fmt.Sprintf("%d/%d", uses, allowed)
}
