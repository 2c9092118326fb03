package store

import (
	"errors"
	"strings"
	"time"

	"keyauth/internal/model"

	"gorm.io/gorm"
)

// GormStore implements Store on a gorm connection (sqlite in production and
// tests). All guarded writes go through UPDATE ... WHERE and check
// RowsAffected, which sqlite serializes, so they are atomic without explicit
// locking.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindLicenseByKey(key string) (*model.License, error) {
	var lic model.License
	err := s.db.Where("key_code = ?", key).First(&lic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lic, nil
}

func (s *GormStore) FindUserByID(id uint) (*model.User, error) {
	var user model.User
	err := s.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) FindUserByUsername(name string) (*model.User, error) {
	var user model.User
	err := s.db.Where("username = ?", name).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) LatestLicenseByOwner(userID uint) (*model.License, error) {
	var lic model.License
	err := s.db.Where("user_id = ?", userID).Order("id DESC").First(&lic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lic, nil
}

func (s *GormStore) ConditionalBind(licenseID uint, identity string) (bool, error) {
	res := s.db.Model(&model.License{}).
		Where("id = ? AND hwid IS NULL", licenseID).
		Update("hwid", identity)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) RegisterUse(licenseID uint, ownerID uint, identity string) (bool, error) {
	res := s.db.Model(&model.License{}).
		Where("id = ? AND banned = ?", licenseID, false).
		Where("allowed_uses = 0 OR uses < allowed_uses").
		Where("hwid IS NULL OR hwid = ? OR hwid_locked = ?", identity, false).
		Updates(map[string]interface{}{
			"uses":    gorm.Expr("uses + 1"),
			"user_id": ownerID,
			"hwid":    gorm.Expr("COALESCE(hwid, ?)", identity),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) CreateUser(u *model.User) error {
	if err := s.db.Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *GormStore) TouchLogin(userID uint, ip string, at time.Time) error {
	return s.db.Model(&model.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": at,
			"last_login_ip": ip,
		}).Error
}

func (s *GormStore) InsertLicense(l *model.License) error {
	if err := s.db.Create(l).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *GormStore) SetLicenseBanned(key string, banned bool) (int64, error) {
	res := s.db.Model(&model.License{}).Where("key_code = ?", key).
		Update("banned", banned)
	return res.RowsAffected, res.Error
}

func (s *GormStore) SetUserBanned(userID uint, banned bool) (int64, error) {
	res := s.db.Model(&model.User{}).Where("id = ?", userID).
		Update("banned", banned)
	return res.RowsAffected, res.Error
}

func (s *GormStore) CascadeBanByOwner(userID uint, banned bool) (int64, error) {
	res := s.db.Model(&model.License{}).Where("user_id = ?", userID).
		Update("banned", banned)
	return res.RowsAffected, res.Error
}

func (s *GormStore) DeleteLicense(key string) (int64, error) {
	res := s.db.Where("key_code = ?", key).Delete(&model.License{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) DeleteUser(userID uint) (int64, error) {
	res := s.db.Delete(&model.User{}, userID)
	return res.RowsAffected, res.Error
}

func (s *GormStore) CascadeDeleteByOwner(userID uint) (int64, error) {
	res := s.db.Where("user_id = ?", userID).Delete(&model.License{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) ListUsers() ([]model.User, error) {
	var users []model.User
	err := s.db.Order("id DESC").Find(&users).Error
	return users, err
}

func (s *GormStore) ListLicenses() ([]model.License, error) {
	var licenses []model.License
	err := s.db.Order("id DESC").Find(&licenses).Error
	return licenses, err
}

func (s *GormStore) AppendValidationLog(entry *model.ValidationLog) error {
	return s.db.Create(entry).Error
}

func (s *GormStore) AppendLoginLog(entry *model.LoginLog) error {
	return s.db.Create(entry).Error
}

func (s *GormStore) Transaction(fn func(tx Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The glebarez sqlite driver does not translate constraint errors.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
