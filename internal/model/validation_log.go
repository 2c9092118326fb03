package model

import "time"

// ValidationLog records one license check: which key, which identity and
// what the engine answered.
type ValidationLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	LicenseKey string    `json:"license_key" gorm:"index"`
	Identity   string    `json:"identity"`
	Result     string    `json:"result"` // "valid" or the rejection reason
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
}
