package model

import "time"

// License is a single issued key. HWID holds the identity the key is bound
// to (a hardware id or an email, depending on the client); it stays NULL
// until the first successful validation and may only be rewritten by an
// admin action.
type License struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	KeyCode     string     `json:"key_code" gorm:"column:key_code;uniqueIndex;not null"`
	AllowedUses int        `json:"allowed_uses" gorm:"column:allowed_uses;not null"`
	Uses        int        `json:"uses" gorm:"not null;default:0"`
	HWIDLocked  bool       `json:"hwid_locked" gorm:"column:hwid_locked;not null"`
	HWID        *string    `json:"hwid" gorm:"column:hwid"`
	Expiry      *time.Time `json:"expiry"`
	Banned      bool       `json:"banned" gorm:"not null;default:false"`
	UserID      *uint      `json:"user_id" gorm:"column:user_id;index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Exhausted reports whether the use cap is reached. allowed_uses == 0 means
// unlimited and never exhausts.
func (l *License) Exhausted() bool {
	return l.AllowedUses != 0 && l.Uses >= l.AllowedUses
}
