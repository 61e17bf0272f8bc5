package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aiface/internal/config"
	"aiface/internal/display"
	"aiface/internal/emotion"
	"aiface/internal/scene"
)

func resetSendFlags() {
	sendFlags.mood = "neutral"
	sendFlags.intensity = emotion.DefaultIntensity
	sendFlags.reset = false
	sendFlags.timeout = 2 * time.Second
}

func startRuntime(t *testing.T) (*display.Runtime, string) {
	t.Helper()
	rt := display.New(display.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	srv := httptest.NewServer(rt.Mux())
	t.Cleanup(srv.Close)
	return rt, strings.TrimPrefix(srv.URL, "http://")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSend_SceneThenReset(t *testing.T) {
	resetSendFlags()
	t.Cleanup(resetSendFlags)
	rt, addr := startRuntime(t)

	out, err := execute(t, "send", addr, "--mood", "happy", "--intensity", "0.9", "--log-level", "error")
	if err != nil {
		t.Fatalf("send scene: %v", err)
	}
	if !strings.Contains(out, `"ok"`) {
		t.Errorf("output = %q, want ack", out)
	}
	got := rt.Snapshot()
	if got.LastMessageType != "set_scene" {
		t.Fatalf("LastMessageType = %q", got.LastMessageType)
	}
	var mouth *scene.Shape
	for i := range got.Scene {
		if got.Scene[i].ID == scene.IDMouth {
			mouth = &got.Scene[i]
		}
	}
	if mouth == nil || mouth.Type != scene.TypeArc {
		t.Errorf("mouth = %+v, want a happy arc", mouth)
	}

	if _, err := execute(t, "send", addr, "--reset", "--log-level", "error"); err != nil {
		t.Fatalf("send reset: %v", err)
	}
	if got := rt.Snapshot().LastMessageType; got != "reset" {
		t.Errorf("LastMessageType = %q, want reset", got)
	}
}

func TestSend_UnknownMood(t *testing.T) {
	resetSendFlags()
	t.Cleanup(resetSendFlags)
	_, addr := startRuntime(t)

	_, err := execute(t, "send", addr, "--mood", "ecstatic", "--log-level", "error")
	if err == nil || !strings.Contains(err.Error(), "ecstatic") {
		t.Fatalf("err = %v, want unknown mood", err)
	}
}

func TestInspect(t *testing.T) {
	_, addr := startRuntime(t)

	out, err := execute(t, "inspect", addr, "--markdown", "--log-level", "error")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"| last message", "none", "face_base", "radius=90"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPreview(t *testing.T) {
	out, err := execute(t, "preview", "sad", "--intensity", "0.8", "--markdown", "--log-level", "error")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	for _, want := range []string{"sad @ 0.8", "mouth", "sweepAngle=-180"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestStateURL(t *testing.T) {
	for in, want := range map[string]string{
		"phone.local":            "http://phone.local:8765/state",
		"10.0.0.5:9000":          "http://10.0.0.5:9000/state",
		"ws://phone.local:9000/": "http://phone.local:9000/state",
	} {
		if got := stateURL(in); got != want {
			t.Errorf("stateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithDefaultPort(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.0.0.5", "10.0.0.5:8765"},
		{"10.0.0.5:9000", "10.0.0.5:9000"},
		{"phone.local", "phone.local:8765"},
		{"ws://phone.local:9000/", "ws://phone.local:9000/"},
	}
	for _, tt := range tests {
		if got := withDefaultPort(tt.in); got != tt.want {
			t.Errorf("withDefaultPort(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApplyServeFlags(t *testing.T) {
	t.Cleanup(func() {
		serveFlags.noDiscovery = false
		serveFlags.displays = nil
	})
	if err := serveCmd.Flags().Parse([]string{"--display", "a:1,b:2", "--tick-interval", "50ms", "--no-discovery"}); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	applyServeFlags(serveCmd)(&cfg)

	if len(cfg.Displays) != 2 || cfg.Displays[1] != "b:2" {
		t.Errorf("Displays = %v", cfg.Displays)
	}
	if cfg.TickInterval != 50*time.Millisecond {
		t.Errorf("TickInterval = %s", cfg.TickInterval)
	}
	if cfg.Discovery.Enabled {
		t.Error("discovery still enabled")
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want untouched", cfg.MetricsAddr)
	}
}
