package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if cfg.EndpointAddr != ":8080" {
		t.Fatalf("unexpected default addr: %q", cfg.EndpointAddr)
	}
	if cfg.AccessTokenValidityDuration != 15*time.Minute {
		t.Fatalf("unexpected default lifetime: %v", cfg.AccessTokenValidityDuration)
	}
	if cfg.TimeZone != "UTC" {
		t.Fatalf("unexpected default time zone: %q", cfg.TimeZone)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected empty redis address by default")
	}
}

func TestLoadConfig_FlagsOverrideDefaults(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	os.Args = []string{"sessiond",
		"-a", ":9090",
		"-d", "postgres://u:p@localhost:5432/sessions",
		"-r", "localhost:6379",
		"-s", "flag-secret",
		"-t", "30",
		"-z", "America/Sao_Paulo",
	}

	cfg := LoadConfig()

	if cfg.EndpointAddr != ":9090" {
		t.Fatalf("addr not overridden: %q", cfg.EndpointAddr)
	}
	if cfg.DatabaseDSN != "postgres://u:p@localhost:5432/sessions" {
		t.Fatalf("dsn not overridden: %q", cfg.DatabaseDSN)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("redis addr not overridden: %q", cfg.RedisAddr)
	}
	if cfg.SecretKey != "flag-secret" {
		t.Fatalf("secret not overridden")
	}
	if cfg.AccessTokenValidityDuration != 30*time.Minute {
		t.Fatalf("lifetime not overridden: %v", cfg.AccessTokenValidityDuration)
	}
	if cfg.TimeZone != "America/Sao_Paulo" {
		t.Fatalf("time zone not overridden: %q", cfg.TimeZone)
	}
}
