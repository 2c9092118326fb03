package store

import (
	"errors"
	"time"

	"keyauth/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned on unique-constraint violations (duplicate
	// username, key collision on insert).
	ErrConflict = errors.New("conflict")
)

// Store is the persistence contract the entitlement engine runs against.
// Every race-sensitive write (ConditionalBind, RegisterUse) must be a single
// guarded statement, not a read followed by a write; implementations report
// whether the guard matched via the returned bool.
type Store interface {
	FindLicenseByKey(key string) (*model.License, error)
	FindUserByID(id uint) (*model.User, error)
	FindUserByUsername(name string) (*model.User, error)
	LatestLicenseByOwner(userID uint) (*model.License, error)

	// ConditionalBind sets the bound identity only if it is still NULL.
	// Returns false when another caller bound the key first.
	ConditionalBind(licenseID uint, identity string) (bool, error)
	// RegisterUse increments the use counter, assigns the owner and binds
	// the identity in one guarded statement. The guard re-checks ban state,
	// the use cap and the identity lock, so a lost race surfaces as false
	// rather than a lost update.
	RegisterUse(licenseID uint, ownerID uint, identity string) (bool, error)

	CreateUser(u *model.User) error
	TouchLogin(userID uint, ip string, at time.Time) error

	InsertLicense(l *model.License) error
	SetLicenseBanned(key string, banned bool) (int64, error)
	SetUserBanned(userID uint, banned bool) (int64, error)
	CascadeBanByOwner(userID uint, banned bool) (int64, error)
	DeleteLicense(key string) (int64, error)
	DeleteUser(userID uint) (int64, error)
	CascadeDeleteByOwner(userID uint) (int64, error)

	ListUsers() ([]model.User, error)
	ListLicenses() ([]model.License, error)

	AppendValidationLog(entry *model.ValidationLog) error
	AppendLoginLog(entry *model.LoginLog) error

	// Transaction runs fn against a store bound to one transaction; cascades
	// pair with their parent mutation inside it so readers never observe a
	// half-applied cascade.
	Transaction(fn func(tx Store) error) error
}
