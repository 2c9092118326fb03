package database

import (
	"os"
	"path/filepath"

	"keyauth/internal/model"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB(dbPath string) {
	var err error
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.WithError(err).Fatal("failed to create data directory")
		}
	}

	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}

	err = DB.AutoMigrate(
		&model.User{},
		&model.License{},
		&model.LoginLog{},
		&model.ValidationLog{},
		&model.OperationLog{},
	)
	if err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	log.WithField("path", dbPath).Info("database ready")
}
