package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Path != "clubledger.db" {
		t.Errorf("db path = %q, want %q", cfg.Database.Path, "clubledger.db")
	}
	if cfg.Dashboard.Limit != 5 {
		t.Errorf("dashboard limit = %d, want 5", cfg.Dashboard.Limit)
	}
	if cfg.Server.WriteTimeout != 10*time.Second {
		t.Errorf("write timeout = %v, want 10s", cfg.Server.WriteTimeout)
	}
	if cfg.Backup.Enabled() {
		t.Error("backups should be disabled without S3 settings")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLUBLEDGER_SERVER_PORT", "9090")
	t.Setenv("CLUBLEDGER_DASHBOARD_LIMIT", "10")
	t.Setenv("CLUBLEDGER_BACKUP_INTERVAL", "6h")
	t.Setenv("CLUBLEDGER_BACKUP_S3_BUCKET", "club-backups")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Dashboard.Limit != 10 {
		t.Errorf("dashboard limit = %d, want 10", cfg.Dashboard.Limit)
	}
	if cfg.Backup.Interval != 6*time.Hour {
		t.Errorf("backup interval = %v, want 6h", cfg.Backup.Interval)
	}
	if cfg.Backup.S3.Bucket != "club-backups" {
		t.Errorf("bucket = %q, want %q", cfg.Backup.S3.Bucket, "club-backups")
	}
}

func TestLoadFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	yaml := "server:\n  port: 7000\n  allowed_origins: [\"club.example.org\"]\ndatabase:\n  path: /data/club.db\nlog:\n  format: json\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 8080, "")
	if err := flags.Parse([]string{"--port", "7100"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("port = %d, want flag value 7100", cfg.Server.Port)
	}
	if cfg.Database.Path != "/data/club.db" {
		t.Errorf("db path = %q, want %q", cfg.Database.Path, "/data/club.db")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q, want json", cfg.Log.Format)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "club.example.org" {
		t.Errorf("allowed origins = %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLUBLEDGER_DASHBOARD_LIMIT", "0")
	if _, err := Load("", nil); err == nil {
		t.Error("expected error for dashboard limit 0")
	}
}
