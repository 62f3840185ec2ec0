package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetHome_EnvVar(t *testing.T) {
	ResetHome()
	t.Setenv("UIRESOLVE_HOME", "/custom/path")

	got := GetHome()
	if got != "/custom/path" {
		t.Errorf("GetHome() = %q, want %q", got, "/custom/path")
	}
}

func TestGetHome_FallbackToUserHome(t *testing.T) {
	ResetHome()
	t.Setenv("UIRESOLVE_HOME", "")
	t.Setenv("HOME", "/users/qa")

	got := GetHome()
	want := filepath.Join("/users/qa", ".uiresolve")
	if got != want {
		t.Errorf("GetHome() = %q, want %q", got, want)
	}
}

func TestGetHome_Cached(t *testing.T) {
	ResetHome()
	t.Setenv("UIRESOLVE_HOME", "/first")

	first := GetHome()

	// Change env, cached value should stay
	t.Setenv("UIRESOLVE_HOME", "/second")
	second := GetHome()

	if first != second {
		t.Errorf("GetHome() not cached: first=%q, second=%q", first, second)
	}
}

func TestGetTemplatesPath(t *testing.T) {
	ResetHome()
	t.Setenv("UIRESOLVE_HOME", "/test/home")

	got := GetTemplatesPath()
	want := filepath.Join("/test/home", "templates.yaml")
	if got != want {
		t.Errorf("GetTemplatesPath() = %q, want %q", got, want)
	}
}

func TestDiscover_PrefersWorkingDir(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	ResetHome()
	t.Setenv("UIRESOLVE_HOME", home)

	if err := os.WriteFile(filepath.Join(home, "uiresolve.yaml"), []byte("driverURL: http://home:4444"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(work, "uiresolve.yml"), []byte("driverURL: http://work:4444"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Discover(work)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DriverURL != "http://work:4444" {
		t.Errorf("expected working dir config, got %s", cfg.DriverURL)
	}
}

func TestDiscover_FallsBackToHome(t *testing.T) {
	home := t.TempDir()
	ResetHome()
	t.Setenv("UIRESOLVE_HOME", home)

	if err := os.WriteFile(filepath.Join(home, "uiresolve.yaml"), []byte("driverURL: http://home:4444"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, "templates.yaml"), []byte("public: {}"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DriverURL != "http://home:4444" {
		t.Errorf("expected home config, got %s", cfg.DriverURL)
	}
	if cfg.Templates != filepath.Join(home, "templates.yaml") {
		t.Errorf("expected home templates, got %s", cfg.Templates)
	}
}

func TestDiscover_NoConfig(t *testing.T) {
	ResetHome()
	t.Setenv("UIRESOLVE_HOME", t.TempDir())

	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DriverURL != "" || cfg.Templates != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}
