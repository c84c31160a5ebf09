package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Business.LoanApprovalDelay != 2500*time.Millisecond {
		t.Errorf("loan delay = %v", cfg.Business.LoanApprovalDelay)
	}
	amt, err := cfg.Business.OpeningAmount()
	if err != nil || amt.String() != "1000" {
		t.Errorf("opening amount = %v, %v", amt, err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 8088
database:
  driver: sqlite
  name: bank.db
lock:
  backend: local
auth:
  jwt_secret: s3cret
  superusers:
    - id: root
      name: Root
      role: admin
      password: pw
business:
  loan_approval_delay: 0s
  history_limit: 10
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8088 || cfg.Database.Driver != "sqlite" {
		t.Errorf("unexpected server/database: %+v %+v", cfg.Server, cfg.Database)
	}
	if cfg.Business.LoanApprovalDelay != 0 || cfg.Business.HistoryLimit != 10 {
		t.Errorf("unexpected business: %+v", cfg.Business)
	}
	if len(cfg.Auth.Superusers) != 1 || cfg.Auth.Superusers[0].ID != "root" {
		t.Errorf("superusers = %+v", cfg.Auth.Superusers)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NETBANK_DATABASE_DRIVER", "postgres")
	t.Setenv("NETBANK_SERVER_PORT", "9000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"unknown lock backend", func(c *Config) { c.Lock.Backend = "etcd" }},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"bad opening balance", func(c *Config) { c.Business.OpeningBalance = "lots" }},
		{"negative opening balance", func(c *Config) { c.Business.OpeningBalance = "-1" }},
		{"superuser without secret", func(c *Config) {
			c.Auth.Superusers = []SuperuserSpec{{ID: "x", Role: "admin"}}
		}},
		{"superuser bad role", func(c *Config) {
			c.Auth.Superusers = []SuperuserSpec{{ID: "x", Role: "teller", Password: "p"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
