package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "listen: 0.0.0.0:6000\nplugins: /opt/plugins\n")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Listen != "0.0.0.0:6000" {
		t.Fatalf("Listen = %q, want 0.0.0.0:6000", s.Listen)
	}
	if s.Plugins != "/opt/plugins" {
		t.Fatalf("Plugins = %q, want /opt/plugins", s.Plugins)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != (Settings{}) {
		t.Fatalf("settings = %+v, want zero", s)
	}

	if _, err := Load(""); err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	s, err := Load(writeFile(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != (Settings{}) {
		t.Fatalf("settings = %+v, want zero", s)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeFile(t, "listn: 127.0.0.1:1\n"))
	if !errors.Is(err, ErrSettings) {
		t.Fatalf("err = %v, want ErrSettings", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeFile(t, "listen: [unterminated\n"))
	if !errors.Is(err, ErrSettings) {
		t.Fatalf("err = %v, want ErrSettings", err)
	}
}
