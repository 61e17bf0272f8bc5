package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aiface.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.TickInterval != 200*time.Millisecond {
		t.Errorf("TickInterval = %s, want 200ms", cfg.TickInterval)
	}
	if cfg.Discovery.Service != "_ai-face._tcp" || cfg.Display.Listen != ":8765" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_Layers(t *testing.T) {
	path := writeFile(t, `
name: studio-face
tick_interval: 100ms
displays:
  - 10.0.0.5:8765
log:
  level: debug
discovery:
  enabled: false
`)
	t.Setenv("AIFACE_QUEUE_SIZE", "4")
	t.Setenv("AIFACE_LOG_FORMAT", "json")
	t.Setenv("AIFACE_NAME", "env-face")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Name = "env-face"
	want.TickInterval = 100 * time.Millisecond
	want.Displays = []string{"10.0.0.5:8765"}
	want.Log = Log{Level: "debug", Format: "json"}
	want.Discovery.Enabled = false
	want.QueueSize = 4
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load (-want +got):\n%s", diff)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("AIFACE_DISPLAYS", "a.local:8765,ws://b.local:9000/")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"a.local:8765", "ws://b.local:9000/"}, cfg.Displays); diff != "" {
		t.Errorf("Displays (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v, want ErrNotExist", err)
		}
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "tick_interval: [oops"))
		if err == nil || !strings.Contains(err.Error(), "parse config") {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("bad env", func(t *testing.T) {
		t.Setenv("AIFACE_DIAL_TIMEOUT", "soon")
		_, err := Load("")
		if err == nil || !strings.Contains(err.Error(), "parse env:") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{name: "zero tick", mutate: func(c *Config) { c.TickInterval = 0 }, wantMsg: "tick_interval"},
		{name: "negative dial", mutate: func(c *Config) { c.DialTimeout = -time.Second }, wantMsg: "dial_timeout"},
		{name: "empty queue", mutate: func(c *Config) { c.QueueSize = 0 }, wantMsg: "queue_size"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantMsg: "loud"},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantMsg: "xml"},
		{name: "no port", mutate: func(c *Config) { c.Displays = []string{"phone.local"} }, wantMsg: "phone.local"},
		{name: "bad scheme", mutate: func(c *Config) { c.Displays = []string{"http://phone:80"} }, wantMsg: "scheme"},
		{name: "bad port", mutate: func(c *Config) { c.Displays = []string{"phone:99999"} }, wantMsg: "bad port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidateAddr_Accepts(t *testing.T) {
	for _, addr := range []string{"10.0.0.5:8765", "[::1]:8765", "ws://phone.local:8765/", "wss://phone:443"} {
		if err := ValidateAddr(addr); err != nil {
			t.Errorf("ValidateAddr(%q) = %v", addr, err)
		}
	}
}
