package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/router-for-me/DiaryHub/internal/config"
)

func TestEnsureConfigWritesSQLiteDefaults(t *testing.T) {
	t.Setenv(config.EnvDBConnection, "")
	t.Setenv(config.EnvJWTSecret, "")
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	written, err := EnsureConfig(configPath, 9000)
	if err != nil {
		t.Fatalf("EnsureConfig: %v", err)
	}
	if !written || !ConfigExists(configPath) {
		t.Fatalf("expected config file to be written")
	}

	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		t.Fatalf("LoadDatabaseDSN: %v", err)
	}
	if !strings.HasPrefix(dsn, "file:") || !strings.Contains(dsn, "diaryhub.db") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	jwtCfg, err := config.LoadJWTConfig(configPath)
	if err != nil {
		t.Fatalf("LoadJWTConfig: %v", err)
	}
	if len(jwtCfg.Secret) != 64 {
		t.Fatalf("expected 32-byte hex secret, got %q", jwtCfg.Secret)
	}
	serverCfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if serverCfg.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", serverCfg.Port)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	written, err = EnsureConfig(configPath, 9000)
	if err != nil || written {
		t.Fatalf("second EnsureConfig should be a no-op, got %v %v", written, err)
	}
}

func TestEnsureConfigSkipsWithEnvDSN(t *testing.T) {
	t.Setenv(config.EnvDBConnection, "postgres://u:p@localhost/diaryhub")
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	written, err := EnsureConfig(configPath, 0)
	if err != nil {
		t.Fatalf("EnsureConfig: %v", err)
	}
	if written || ConfigExists(configPath) {
		t.Fatalf("expected no config file when DB_CONNECTION is set")
	}
}
