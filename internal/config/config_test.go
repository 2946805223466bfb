package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %s, want 8080", cfg.Port)
	}
	if cfg.StaticDir != "web" {
		t.Fatalf("static dir = %s, want web", cfg.StaticDir)
	}
	if cfg.AllowedOrigin != "" {
		t.Fatalf("allowed origin = %s, want empty", cfg.AllowedOrigin)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("ALLOWED_ORIGIN", "https://game.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Port != "9999" || cfg.AllowedOrigin != "https://game.example" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
