package store

import (
	"testing"
	"time"

	"keyauth/internal/database"
	"keyauth/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	database.InitTestDB()
	t.Cleanup(database.CleanTestDB)
	return NewGormStore(database.DB)
}

func seed(t *testing.T, lic *model.License) *model.License {
	require.NoError(t, database.DB.Create(lic).Error)
	return lic
}

func TestConditionalBindOnlyOnce(t *testing.T) {
	s := newTestStore(t)
	lic := seed(t, &model.License{KeyCode: "K1AAAAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1})

	bound, err := s.ConditionalBind(lic.ID, "first@x.com")
	require.NoError(t, err)
	assert.True(t, bound)

	// The second bind must not overwrite the first.
	bound, err = s.ConditionalBind(lic.ID, "second@x.com")
	require.NoError(t, err)
	assert.False(t, bound)

	got, err := s.FindLicenseByKey(lic.KeyCode)
	require.NoError(t, err)
	require.NotNil(t, got.HWID)
	assert.Equal(t, "first@x.com", *got.HWID)
}

func TestRegisterUseGuards(t *testing.T) {
	s := newTestStore(t)

	t.Run("increments_binds_and_assigns_owner", func(t *testing.T) {
		lic := seed(t, &model.License{KeyCode: "K2AAAAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 2})

		applied, err := s.RegisterUse(lic.ID, 7, "a@x.com")
		require.NoError(t, err)
		assert.True(t, applied)

		got, err := s.FindLicenseByKey(lic.KeyCode)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Uses)
		require.NotNil(t, got.UserID)
		assert.Equal(t, uint(7), *got.UserID)
		require.NotNil(t, got.HWID)
		assert.Equal(t, "a@x.com", *got.HWID)
	})

	t.Run("rejects_when_cap_reached", func(t *testing.T) {
		lic := seed(t, &model.License{KeyCode: "K3AAAAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1, Uses: 1})

		applied, err := s.RegisterUse(lic.ID, 8, "a@x.com")
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("unlimited_cap_never_blocks", func(t *testing.T) {
		lic := seed(t, &model.License{KeyCode: "K4AAAAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 0, Uses: 12345})

		applied, err := s.RegisterUse(lic.ID, 9, "a@x.com")
		require.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("rejects_foreign_identity_on_locked_key", func(t *testing.T) {
		bound := "owner@x.com"
		lic := seed(t, &model.License{KeyCode: "K5AAAAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, HWID: &bound, AllowedUses: 5})

		applied, err := s.RegisterUse(lic.ID, 10, "thief@x.com")
		require.NoError(t, err)
		assert.False(t, applied)

		got, err := s.FindLicenseByKey(lic.KeyCode)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Uses)
		assert.Equal(t, "owner@x.com", *got.HWID)
	})

	t.Run("keeps_existing_binding_on_match", func(t *testing.T) {
		bound := "owner@x.com"
		lic := seed(t, &model.License{KeyCode: "K6AAAAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, HWID: &bound, AllowedUses: 5, Uses: 1})

		applied, err := s.RegisterUse(lic.ID, 11, "owner@x.com")
		require.NoError(t, err)
		assert.True(t, applied)

		got, err := s.FindLicenseByKey(lic.KeyCode)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Uses)
		assert.Equal(t, "owner@x.com", *got.HWID)
	})

	t.Run("rejects_banned_key", func(t *testing.T) {
		lic := seed(t, &model.License{KeyCode: "K7AAAAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 5, Banned: true})

		applied, err := s.RegisterUse(lic.ID, 12, "a@x.com")
		require.NoError(t, err)
		assert.False(t, applied)
	})
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateUser(&model.User{Username: "alice", PasswordHash: "x", CreatedAt: time.Now()}))
	err := s.CreateUser(&model.User{Username: "alice", PasswordHash: "y", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestInsertLicenseDuplicateKey(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.InsertLicense(&model.License{KeyCode: "DUPAAAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1}))
	err := s.InsertLicense(&model.License{KeyCode: "DUPAAAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCascadeBanByOwner(t *testing.T) {
	s := newTestStore(t)

	owner := &model.User{Username: "owner", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(owner))
	bystander := &model.User{Username: "bystander", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(bystander))

	seed(t, &model.License{KeyCode: "OWNED1AAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1, UserID: &owner.ID})
	seed(t, &model.License{KeyCode: "OWNED2AAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1, UserID: &owner.ID})
	seed(t, &model.License{KeyCode: "OTHER1AAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1, UserID: &bystander.ID})

	matched, err := s.CascadeBanByOwner(owner.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), matched)

	licenses, err := s.ListLicenses()
	require.NoError(t, err)
	for _, lic := range licenses {
		if lic.UserID != nil && *lic.UserID == owner.ID {
			assert.True(t, lic.Banned, "owned license %s should be banned", lic.KeyCode)
		} else {
			assert.False(t, lic.Banned, "foreign license %s must be untouched", lic.KeyCode)
		}
	}
}

func TestCascadeDeleteByOwner(t *testing.T) {
	s := newTestStore(t)

	owner := &model.User{Username: "owner", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(owner))
	bystander := &model.User{Username: "bystander", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(bystander))

	seed(t, &model.License{KeyCode: "GONE1AAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1, UserID: &owner.ID})
	seed(t, &model.License{KeyCode: "KEPT1AAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1, UserID: &bystander.ID})

	err := s.Transaction(func(tx Store) error {
		if _, err := tx.CascadeDeleteByOwner(owner.ID); err != nil {
			return err
		}
		_, err := tx.DeleteUser(owner.ID)
		return err
	})
	require.NoError(t, err)

	_, err = s.FindUserByID(owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	licenses, err := s.ListLicenses()
	require.NoError(t, err)
	require.Len(t, licenses, 1)
	assert.Equal(t, "KEPT1AAAAAAAAAAAAAAAAAAAAAAAAA", licenses[0].KeyCode)

	_, err = s.FindUserByID(bystander.ID)
	assert.NoError(t, err)
}

func TestListOrderingNewestFirst(t *testing.T) {
	s := newTestStore(t)

	seed(t, &model.License{KeyCode: "FIRSTAAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1})
	seed(t, &model.License{KeyCode: "SECONDAAAAAAAAAAAAAAAAAAAAAAAA", HWIDLocked: true, AllowedUses: 1})

	licenses, err := s.ListLicenses()
	require.NoError(t, err)
	require.Len(t, licenses, 2)
	assert.Equal(t, "SECONDAAAAAAAAAAAAAAAAAAAAAAAA", licenses[0].KeyCode)
	assert.Equal(t, "FIRSTAAAAAAAAAAAAAAAAAAAAAAAAA", licenses[1].KeyCode)
}
