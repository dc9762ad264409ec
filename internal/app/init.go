package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/db"
	"github.com/router-for-me/DiaryHub/internal/security"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	DatabaseDSN   string   `yaml:"database-dsn"`
	Debug         bool     `yaml:"debug"`
	LoggingToFile bool     `yaml:"logging-to-file"`
	JWT           jwtCfg   `yaml:"jwt"`
	Store         storeCfg `yaml:"store"`
}

// jwtCfg holds JWT settings for the generated config file.
type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

// storeCfg holds document store settings for the generated config file.
type storeCfg struct {
	Backend      string `yaml:"backend"`
	PollInterval string `yaml:"poll-interval"`
}

// generateJWTSecret creates a random JWT secret string.
func generateJWTSecret() string {
	secret, err := security.GenerateRandomString(32)
	if err != nil {
		return "change-me-to-a-secure-random-string"
	}
	return secret
}

// WriteConfigFile writes an initial config file to disk.
func WriteConfigFile(configPath string, dsn string, port int) error {
	cfg := configFile{
		Port:        port,
		DatabaseDSN: dsn,
		JWT: jwtCfg{
			Secret: generateJWTSecret(),
			Expiry: "720h",
		},
		Store: storeCfg{
			Backend:      config.BackendSQL,
			PollInterval: "2s",
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}

	return nil
}

// EnsureConfig writes a default SQLite config when neither the config file nor
// DB_CONNECTION exists. It reports whether a file was written.
func EnsureConfig(configPath string, port int) (bool, error) {
	if ConfigExists(configPath) {
		return false, nil
	}
	if strings.TrimSpace(os.Getenv(config.EnvDBConnection)) != "" {
		return false, nil
	}
	dbPath := filepath.Join(filepath.Dir(configPath), db.DefaultSQLitePath)
	if errWrite := WriteConfigFile(configPath, db.BuildSQLiteDSN(dbPath), port); errWrite != nil {
		return false, errWrite
	}
	log.Infof("wrote default config to %s (sqlite at %s)", configPath, dbPath)
	return true, nil
}
