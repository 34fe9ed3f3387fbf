package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nRELAY_DOTENV_A=hello\nRELAY_DOTENV_B=\"quoted\"\ninvalid line\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("RELAY_DOTENV_A", "")
	os.Unsetenv("RELAY_DOTENV_A")
	os.Unsetenv("RELAY_DOTENV_B")

	if err := LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	if got := os.Getenv("RELAY_DOTENV_A"); got != "hello" {
		t.Errorf("A = %q, want hello", got)
	}
	if got := os.Getenv("RELAY_DOTENV_B"); got != "quoted" {
		t.Errorf("B = %q, want quoted", got)
	}
}

func TestLoadDotenvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("RELAY_DOTENV_C=file\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("RELAY_DOTENV_C", "env")
	if err := LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	if got := os.Getenv("RELAY_DOTENV_C"); got != "env" {
		t.Errorf("C = %q, existing env var was overridden", got)
	}
}

func TestLoadDotenvMissingFile(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}
