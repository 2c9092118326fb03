package license

import (
	"errors"
	"time"

	"keyauth/internal/model"
	"keyauth/internal/store"
)

// Reason is a distinguishable rejection kind; callers map each to its own
// user-facing message.
type Reason string

const (
	ReasonNotFound         Reason = "NotFound"
	ReasonBanned           Reason = "Banned"
	ReasonExpired          Reason = "Expired"
	ReasonExhausted        Reason = "Exhausted"
	ReasonIdentityMismatch Reason = "IdentityMismatch"
)

// Verdict is the structured validation outcome. License is only set on a
// valid result and is a projection, never the raw row.
type Verdict struct {
	Valid   bool
	Reason  Reason
	License *model.LicenseView
}

func invalid(reason Reason) *Verdict {
	return &Verdict{Valid: false, Reason: reason}
}

// Validator orchestrates the ban/expiry/usage checks and the binding policy
// into one verdict. It is stateless; every call runs to completion against
// the store.
type Validator struct {
	store store.Store
	now   func() time.Time
}

func NewValidator(s store.Store) *Validator {
	return &Validator{store: s, now: time.Now}
}

// classify runs the registration-order read-only checks; first failure wins.
// Returns "" when all pass. The use cap is checked before the identity here
// because registration rejects exhausted keys before any binding attempt.
func (v *Validator) classify(lic *model.License, identity string) Reason {
	if lic.Banned {
		return ReasonBanned
	}
	if ClassifyExpiry(lic.Expiry, v.now()).State == Expired {
		return ReasonExpired
	}
	if lic.Exhausted() {
		return ReasonExhausted
	}
	if lic.HWIDLocked && lic.HWID != nil && *lic.HWID != identity {
		return ReasonIdentityMismatch
	}
	return ""
}

// Validate is the runtime check flow: it applies all checks and the first-use
// binding but never touches the use counter. Unlike the registration order,
// a bound locked key reports a mismatching identity before exhaustion, so a
// foreign caller learns the key is not theirs rather than that it is used up.
func (v *Validator) Validate(key, identity string) (*Verdict, error) {
	lic, err := v.store.FindLicenseByKey(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalid(ReasonNotFound), nil
		}
		return nil, err
	}

	if lic.Banned {
		return invalid(ReasonBanned), nil
	}
	if ClassifyExpiry(lic.Expiry, v.now()).State == Expired {
		return invalid(ReasonExpired), nil
	}
	if lic.HWIDLocked && lic.HWID != nil && *lic.HWID != identity {
		return invalid(ReasonIdentityMismatch), nil
	}
	if lic.Exhausted() {
		return invalid(ReasonExhausted), nil
	}

	reason, err := v.bindIdentity(lic, identity)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return invalid(reason), nil
	}

	view := NewLicenseView(lic, nil, v.now())
	return &Verdict{Valid: true, License: &view}, nil
}

var errBindLost = errors.New("license: lost conditional bind")

// Register is the registration call site: the same checks as Validate, but
// the use counter increment, owner assignment and identity binding commit as
// one guarded statement, together with whatever createOwner writes (the new
// user row). A lost bind race rolls the whole transaction back and is
// retried once as a fresh validation before surfacing as a rejection.
func (v *Validator) Register(key, identity string, createOwner func(tx store.Store) (uint, error)) (*Verdict, error) {
	var lic *model.License

	for attempt := 0; attempt < 2; attempt++ {
		var err error
		lic, err = v.store.FindLicenseByKey(key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return invalid(ReasonNotFound), nil
			}
			return nil, err
		}

		if reason := v.classify(lic, identity); reason != "" {
			return invalid(reason), nil
		}

		err = v.store.Transaction(func(tx store.Store) error {
			ownerID, err := createOwner(tx)
			if err != nil {
				return err
			}
			applied, err := tx.RegisterUse(lic.ID, ownerID, identity)
			if err != nil {
				return err
			}
			if !applied {
				return errBindLost
			}
			lic.UserID = &ownerID
			return nil
		})
		if err == nil {
			lic.Uses++
			if lic.HWID == nil {
				lic.HWID = &identity
			}
			view := NewLicenseView(lic, nil, v.now())
			return &Verdict{Valid: true, License: &view}, nil
		}
		if !errors.Is(err, errBindLost) {
			return nil, err
		}
		// Another caller won the guarded update; loop once more and
		// re-evaluate against the committed state.
	}

	// The second evaluation passed its read checks but the guard still did
	// not match; report the freshest state.
	fresh, err := v.store.FindLicenseByKey(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalid(ReasonNotFound), nil
		}
		return nil, err
	}
	if reason := v.classify(fresh, identity); reason != "" {
		return invalid(reason), nil
	}
	return invalid(ReasonIdentityMismatch), nil
}
