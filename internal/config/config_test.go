package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"USER_NAME", "TRUSTED_DOMAIN", "SCAN_INTERVAL_MINUTES", "SERVER_HOST", "SERVER_PORT"} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.User.Name != "Justin Miller" {
		t.Errorf("user name = %q", cfg.User.Name)
	}
	if cfg.User.TrustedDomain != "pactum.com" {
		t.Errorf("trusted domain = %q", cfg.User.TrustedDomain)
	}
	if cfg.Scan.Interval != 5*time.Minute {
		t.Errorf("scan interval = %v", cfg.Scan.Interval)
	}
	if cfg.Address() != "127.0.0.1:3000" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("USER_NAME", "Ada Lovelace")
	t.Setenv("SCAN_INTERVAL_MINUTES", "15")
	t.Setenv("SCANNER_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.User.Name != "Ada Lovelace" {
		t.Errorf("user name = %q", cfg.User.Name)
	}
	if cfg.Scan.Interval != 15*time.Minute {
		t.Errorf("scan interval = %v", cfg.Scan.Interval)
	}
	if cfg.Scan.ScannerTimeout != 45*time.Second {
		t.Errorf("scanner timeout = %v", cfg.Scan.ScannerTimeout)
	}
}

func TestLoadToleratesBlankUserName(t *testing.T) {
	t.Setenv("USER_NAME", "   ")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.User.Name != "   " {
		t.Errorf("user name = %q", cfg.User.Name)
	}
}
