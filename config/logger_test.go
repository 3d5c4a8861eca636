package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggingConfig_Prepare(t *testing.T) {
	t.Run("all disabled", func(t *testing.T) {
		conf := LoggingConfig{
			ConsoleLogger: LoggerConfig{Level: "none"},
			FileLogger:    LoggerConfig{Level: "none"},
		}
		log, err := conf.Prepare(nil)
		if err != nil {
			t.Fatalf("Prepare() error: %v", err)
		}
		log.Info("dropped")
	})

	t.Run("file logger", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "folio.log")
		conf := LoggingConfig{
			ConsoleLogger: LoggerConfig{Level: "none"},
			FileLogger:    LoggerConfig{Level: "normal", Destination: dest, Mode: "overwrite"},
		}
		log, err := conf.Prepare(nil)
		if err != nil {
			t.Fatalf("Prepare() error: %v", err)
		}
		log.Debug("not written")
		log.Info("written")
		_ = log.Sync()

		data, err := os.ReadFile(dest)
		if err != nil {
			t.Fatalf("unable to read log: %v", err)
		}
		if !strings.Contains(string(data), "written") || strings.Contains(string(data), "not written") {
			t.Errorf("unexpected log content:\n%s", data)
		}
	})
}
