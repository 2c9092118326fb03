package license

import (
	"time"

	"keyauth/internal/model"
)

// NewLicenseView builds the read-only projection of a license row, with the
// expiry classified at now and the owner summary resolved when present.
func NewLicenseView(lic *model.License, owner *model.User, now time.Time) model.LicenseView {
	view := model.LicenseView{
		ID:          lic.ID,
		KeyCode:     lic.KeyCode,
		Usage:       model.UsageString(lic.Uses, lic.AllowedUses),
		Uses:        lic.Uses,
		AllowedUses: lic.AllowedUses,
		HWIDLocked:  lic.HWIDLocked,
		Email:       lic.HWID,
		Expiry:      ClassifyExpiry(lic.Expiry, now).String(),
		Banned:      lic.Banned,
	}
	if owner != nil {
		view.Owner = &model.OwnerView{
			ID:       owner.ID,
			Username: owner.Username,
			Email:    owner.Email,
		}
	}
	return view
}
