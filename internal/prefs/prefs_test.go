package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	p := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if p.Theme != defaultTheme || p.PageSize != defaultPageSize || p.EventWindowMin != defaultEventWinMn {
		t.Fatalf("defaults = %+v", p)
	}
}

func TestLoad_BrokenFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("theme = [not valid"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := Load(path)
	if p.Theme != defaultTheme {
		t.Fatalf("broken file should fall back to defaults, got %+v", p)
	}
}

func TestLoad_FillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte(`theme = "Slate"`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := Load(path)
	if p.Theme != "Slate" {
		t.Fatalf("Theme = %q", p.Theme)
	}
	if p.PageSize != defaultPageSize || p.EventWindowMin != defaultEventWinMn {
		t.Fatalf("missing fields not defaulted: %+v", p)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "prefs.toml")
	want := Prefs{Theme: "Slate", PageSize: 50, EventWindowMin: 120}

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := Load(path); got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestLoad_SanitizesOutOfRangeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	content := "theme = \"\"\npage_size = -3\nevent_window_minutes = 0\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := Load(path)
	if p.Theme != defaultTheme || p.PageSize != defaultPageSize || p.EventWindowMin != defaultEventWinMn {
		t.Fatalf("sanitized = %+v", p)
	}
}
