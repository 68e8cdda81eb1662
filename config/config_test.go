package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaultsPicksPortPerDriver(t *testing.T) {
	tests := []struct {
		driver string
		port   string
	}{
		{"postgres", "5432"},
		{"mysql", "3306"},
		{"", "5432"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			c := AppConfig{DBDriver: tt.driver}
			applyDefaults(&c)
			if c.DBPort != tt.port {
				t.Fatalf("DBPort = %q, want %q", c.DBPort, tt.port)
			}
		})
	}
}

func TestLoadJSONConfigGroupedSections(t *testing.T) {
	raw := map[string]any{
		"app": map[string]any{
			"AppPort":        "9090",
			"JWTSecret":      "s3cret",
			"Timezone":       "Europe/Berlin",
			"AdminUsernames": []any{"alice", "bob"},
		},
		"database": map[string]any{"Driver": "sqlite", "SQLitePath": "/tmp/x.db"},
		"log":      map[string]any{"Level": "debug", "MaxBackups": 9},
	}
	b, err := json.Marshal(raw)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}

	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		t.Fatalf("loadJSONConfig: %v", err)
	}
	if c.AppPort != "9090" || c.JWTSecret != "s3cret" || c.Timezone != "Europe/Berlin" {
		t.Fatalf("app section not applied: %+v", c)
	}
	if c.DBDriver != "sqlite" || c.SQLitePath != "/tmp/x.db" {
		t.Fatalf("database section not applied: %+v", c)
	}
	if c.LogLevel != "debug" || c.LogMaxBackups != 9 {
		t.Fatalf("log section not applied: %+v", c)
	}
	if !c.IsAdmin("ALICE") || c.IsAdmin("carol") {
		t.Fatalf("admin matching wrong for %v", c.AdminUsernames)
	}
}

func TestLoadJSONConfigMissingFileIsIgnored(t *testing.T) {
	var c AppConfig
	if err := loadJSONConfig(filepath.Join(t.TempDir(), "nope.json"), &c); err != nil {
		t.Fatalf("expected nil error for missing file, got %v", err)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("APP_PORT", "7000")
	t.Setenv("ADMIN_USERNAMES", " root , ops ")
	t.Setenv("LOG_COMPRESS", "true")

	c := AppConfig{AppPort: "8080"}
	applyEnvOverrides(&c)
	if c.AppPort != "7000" {
		t.Fatalf("AppPort = %q", c.AppPort)
	}
	if len(c.AdminUsernames) != 2 || c.AdminUsernames[0] != "root" || c.AdminUsernames[1] != "ops" {
		t.Fatalf("AdminUsernames = %v", c.AdminUsernames)
	}
	if !c.LogCompress {
		t.Fatal("LogCompress not set")
	}
}

func TestLocationFallsBackOnUnknownZone(t *testing.T) {
	c := AppConfig{Timezone: "Mars/Olympus"}
	if c.Location() == nil {
		t.Fatal("nil location")
	}
	c.Timezone = "UTC"
	if c.Location().String() != "UTC" {
		t.Fatalf("Location = %s", c.Location())
	}
}
