package admin

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"keyauth/internal/license"
	"keyauth/internal/model"
	"keyauth/internal/service"
	"keyauth/internal/store"

	log "github.com/sirupsen/logrus"
)

// ErrInvalidInput marks malformed mutation parameters (unknown action,
// unparseable duration, negative use cap).
var ErrInvalidInput = errors.New("invalid input")

// keyInsertAttempts bounds the generate retry loop; a 15-byte random key
// colliding even once is already freak territory.
const keyInsertAttempts = 5

// Request carries one admin mutation. Authorization happens before the
// dispatcher runs (the admin-token middleware); every action here is
// unconditional.
type Request struct {
	Action      string `json:"action"`
	UserID      uint   `json:"user_id"`
	LicenseKey  string `json:"license_key"`
	AllowedUses *int   `json:"allowed_uses"`
	TimeValid   string `json:"time_valid"`
}

// Result is returned after every mutation: a message, the generated key when
// applicable, and the refreshed user and license tables (newest first, each
// license with its owner resolved).
type Result struct {
	Message  string              `json:"message"`
	Key      string              `json:"key,omitempty"`
	Users    []model.UserView    `json:"users"`
	Licenses []model.LicenseView `json:"licenses"`
}

type Dispatcher struct {
	store  store.Store
	mirror *service.SheetSyncService
	now    func() time.Time
}

func NewDispatcher(s store.Store, mirror *service.SheetSyncService) *Dispatcher {
	return &Dispatcher{store: s, mirror: mirror, now: time.Now}
}

// Apply runs one mutation and re-reads both tables. Mutations that match no
// row report it in the message instead of pretending success.
func (d *Dispatcher) Apply(req Request) (*Result, error) {
	action, ok := ParseAction(req.Action)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, req.Action)
	}

	var message, generatedKey string

	switch action {
	case ActionNone:
		message = "ok"

	case ActionGenerate:
		lic, err := d.generate(req)
		if err != nil {
			return nil, err
		}
		message = "License generated"
		generatedKey = lic.KeyCode
		d.logOperation(action, "license", lic.KeyCode, req)
		d.syncMirror(lic.KeyCode)

	case ActionBanUser, ActionUnbanUser:
		banned := action == ActionBanUser
		matched, err := d.setUserBanned(req.UserID, banned)
		if err != nil {
			return nil, err
		}
		if matched == 0 {
			message = "No matching user"
		} else if banned {
			message = "User banned"
		} else {
			message = "User unbanned"
		}
		if matched > 0 {
			d.logOperation(action, "user", strconv.FormatUint(uint64(req.UserID), 10), req)
		}

	case ActionDeleteUser:
		matched, err := d.deleteUser(req.UserID)
		if err != nil {
			return nil, err
		}
		if matched == 0 {
			message = "No matching user"
		} else {
			message = "User deleted"
			d.logOperation(action, "user", strconv.FormatUint(uint64(req.UserID), 10), req)
		}

	case ActionBanKey, ActionUnbanKey:
		banned := action == ActionBanKey
		matched, err := d.store.SetLicenseBanned(req.LicenseKey, banned)
		if err != nil {
			return nil, err
		}
		if matched == 0 {
			message = "No matching license"
		} else if banned {
			message = "License banned"
		} else {
			message = "License unbanned"
		}
		if matched > 0 {
			d.logOperation(action, "license", req.LicenseKey, req)
			d.syncMirror(req.LicenseKey)
		}

	case ActionDeleteKey:
		matched, err := d.store.DeleteLicense(req.LicenseKey)
		if err != nil {
			return nil, err
		}
		if matched == 0 {
			message = "No matching license"
		} else {
			message = "License deleted"
			d.logOperation(action, "license", req.LicenseKey, req)
		}
	}

	users, licenses, err := d.snapshot()
	if err != nil {
		return nil, err
	}

	return &Result{
		Message:  message,
		Key:      generatedKey,
		Users:    users,
		Licenses: licenses,
	}, nil
}

func (d *Dispatcher) generate(req Request) (*model.License, error) {
	allowedUses := 1
	if req.AllowedUses != nil {
		allowedUses = *req.AllowedUses
	}
	if allowedUses < 0 {
		return nil, fmt.Errorf("%w: allowed_uses must be >= 0", ErrInvalidInput)
	}

	duration, err := license.ParseDurationSpec(req.TimeValid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	var expiry *time.Time
	if duration != nil {
		t := d.now().Add(*duration)
		expiry = &t
	}

	for attempt := 0; attempt < keyInsertAttempts; attempt++ {
		key, err := license.GenerateKey()
		if err != nil {
			return nil, err
		}
		lic := &model.License{
			KeyCode:     key,
			AllowedUses: allowedUses,
			HWIDLocked:  true, // every issued key is identity-locked
			Expiry:      expiry,
		}
		err = d.store.InsertLicense(lic)
		if err == nil {
			return lic, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		log.WithField("key", key).Warn("license key collision, regenerating")
	}
	return nil, store.ErrConflict
}

// setUserBanned flips the user flag and cascades to every owned license in
// one transaction, so no reader sees the user banned with its keys still
// live.
func (d *Dispatcher) setUserBanned(userID uint, banned bool) (int64, error) {
	var matched int64
	err := d.store.Transaction(func(tx store.Store) error {
		var err error
		matched, err = tx.SetUserBanned(userID, banned)
		if err != nil || matched == 0 {
			return err
		}
		_, err = tx.CascadeBanByOwner(userID, banned)
		return err
	})
	return matched, err
}

// deleteUser removes the owned licenses first, then the user row, in one
// transaction.
func (d *Dispatcher) deleteUser(userID uint) (int64, error) {
	var matched int64
	err := d.store.Transaction(func(tx store.Store) error {
		if _, err := tx.CascadeDeleteByOwner(userID); err != nil {
			return err
		}
		var err error
		matched, err = tx.DeleteUser(userID)
		return err
	})
	return matched, err
}

func (d *Dispatcher) snapshot() ([]model.UserView, []model.LicenseView, error) {
	users, err := d.store.ListUsers()
	if err != nil {
		return nil, nil, err
	}
	licenses, err := d.store.ListLicenses()
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[uint]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	now := d.now()
	userViews := make([]model.UserView, 0, len(users))
	for _, u := range users {
		view := model.UserView{
			ID:          u.ID,
			Username:    u.Username,
			Email:       u.Email,
			Banned:      u.Banned,
			CreatedAt:   u.CreatedAt.Format(time.RFC3339),
			LastLoginIP: u.LastLoginIP,
		}
		if u.LastLoginAt != nil {
			view.LastLoginAt = u.LastLoginAt.Format(time.RFC3339)
		}
		userViews = append(userViews, view)
	}

	licenseViews := make([]model.LicenseView, 0, len(licenses))
	for i := range licenses {
		var owner *model.User
		if licenses[i].UserID != nil {
			owner = byID[*licenses[i].UserID]
		}
		licenseViews = append(licenseViews, license.NewLicenseView(&licenses[i], owner, now))
	}

	return userViews, licenseViews, nil
}

func (d *Dispatcher) logOperation(action Action, target, targetID string, req Request) {
	if err := service.LogOperation(string(action), target, targetID, req); err != nil {
		log.WithError(err).Warn("failed to record operation log")
	}
}

func (d *Dispatcher) syncMirror(key string) {
	if d.mirror == nil {
		return
	}
	lic, err := d.store.FindLicenseByKey(key)
	if err != nil {
		return
	}
	go func() {
		if err := d.mirror.SyncLicense(lic); err != nil {
			log.WithError(err).WithField("key", lic.KeyCode).Warn("sheet sync failed")
		}
	}()
}
