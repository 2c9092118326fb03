package handler

import (
	"keyauth/internal/admin"
	"keyauth/internal/license"
	"keyauth/internal/service"
	"keyauth/internal/store"
)

var (
	licenseStore store.Store
	validator    *license.Validator
	dispatcher   *admin.Dispatcher
)

// Init wires the handler package to its collaborators. Tests call this
// against the in-memory test database.
func Init(s store.Store, mirror *service.SheetSyncService) {
	licenseStore = s
	validator = license.NewValidator(s)
	dispatcher = admin.NewDispatcher(s, mirror)
}
