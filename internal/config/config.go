package config

import (
	"errors"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from KEYAUTH_* environment variables.
type Config struct {
	Listen     string `default:":8080"`
	DBPath     string `split_words:"true" default:"data/keyauth.db"`
	AdminToken string `split_words:"true"`
	JWTSecret  string `envconfig:"JWT_SECRET"`

	// Google Sheet mirror, disabled unless all three are set.
	SheetSync       bool   `split_words:"true"`
	SheetCredential string `split_words:"true"`
	SpreadsheetID   string `envconfig:"SPREADSHEET_ID"`
	SheetName       string `split_words:"true" default:"licenses"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("keyauth", &cfg); err != nil {
		return nil, err
	}
	if cfg.AdminToken == "" {
		return nil, errors.New("KEYAUTH_ADMIN_TOKEN environment variable is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("KEYAUTH_JWT_SECRET environment variable is not set")
	}
	return &cfg, nil
}
