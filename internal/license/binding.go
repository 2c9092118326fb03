package license

import (
	"errors"

	"keyauth/internal/model"
	"keyauth/internal/store"
)

// bindIdentity applies the first-use binding policy. For a locked, still
// unbound key the bind is a conditional update keyed on the NULL check so
// two racing first validations cannot both win: the loser re-reads the
// committed binding and is re-evaluated as a normal match. An unlocked key
// always passes; its identity is recorded on first sight but never enforced.
//
// Returns a non-empty Reason when the presented identity is rejected.
func (v *Validator) bindIdentity(lic *model.License, identity string) (Reason, error) {
	if !lic.HWIDLocked {
		if lic.HWID == nil {
			bound, err := v.store.ConditionalBind(lic.ID, identity)
			if err != nil {
				return "", err
			}
			if bound {
				lic.HWID = &identity
			}
		}
		return "", nil
	}

	if lic.HWID == nil {
		bound, err := v.store.ConditionalBind(lic.ID, identity)
		if err != nil {
			return "", err
		}
		if bound {
			lic.HWID = &identity
			return "", nil
		}
		// Lost the race; never overwrite the winner. Re-read and fall
		// through to the exact-match check.
		fresh, err := v.store.FindLicenseByKey(lic.KeyCode)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ReasonNotFound, nil
			}
			return "", err
		}
		*lic = *fresh
	}

	if lic.HWID != nil && *lic.HWID == identity {
		return "", nil
	}
	return ReasonIdentityMismatch, nil
}
