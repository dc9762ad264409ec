package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/router-for-me/DiaryHub/internal/config"
	log "github.com/sirupsen/logrus"
)

func TestSetupWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	closer, err := Setup(config.ServerConfig{LoggingToFile: true, LogDir: dir, Debug: true})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer func() {
		_ = closer.Close()
		log.SetOutput(os.Stderr)
	}()
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
	log.Info("hello from test")
	info, err := os.Stat(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("stat log file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected log output in file")
	}
}

func TestSetupStdout(t *testing.T) {
	closer, err := Setup(config.ServerConfig{})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if log.GetLevel() != log.InfoLevel {
		t.Fatalf("expected info level, got %s", log.GetLevel())
	}
}
