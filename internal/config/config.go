// Package config loads process configuration from CYBERQUEST_* environment
// variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Backends accepted for the remote progression store.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Config holds every setting shared by the CLI commands and the server.
type Config struct {
	Backend           string `env:"CYBERQUEST_BACKEND"            envDefault:"sqlite"          validate:"oneof=sqlite firestore"`
	Database          string `env:"CYBERQUEST_DB"                 envDefault:"cyberquest.db"   validate:"required_if=Backend sqlite"`
	Snapshot          string `env:"CYBERQUEST_SNAPSHOT"           envDefault:".cyberquest/snapshot.yaml" validate:"required"`
	CatalogDir        string `env:"CYBERQUEST_CATALOG"`
	GCPProject        string `env:"CYBERQUEST_GCP_PROJECT"        validate:"required_if=Backend firestore"`
	FirestoreDatabase string `env:"CYBERQUEST_FIRESTORE_DATABASE"`
	HTTPAddr          string `env:"CYBERQUEST_HTTP_ADDR"          envDefault:":8080"           validate:"required"`
	LogFormat         string `env:"CYBERQUEST_LOG_FORMAT"         envDefault:"text"            validate:"oneof=text json"`
}

var validate = validator.New()

// Load reads and validates the process environment.
func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse reads the process environment without validating it, so callers
// can apply overrides first.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom reads settings from vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the backend-specific requirements. Call it again after
// applying flag overrides.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
