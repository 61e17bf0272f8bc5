package mcp_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"aiface/internal/agent"
	"aiface/internal/clock"
	mcpserver "aiface/internal/mcp"
	"aiface/internal/transport"
	"aiface/internal/wire"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
	os.Exit(m.Run())
}

type fakeDisplays struct {
	mu     sync.Mutex
	list   []transport.Display
	frames [][]byte
}

func (f *fakeDisplays) Displays() []transport.Display {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list
}

func (f *fakeDisplays) Broadcast(frame []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return len(f.list)
}

func (f *fakeDisplays) last(t *testing.T) wire.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		t.Fatal("no frames broadcast")
	}
	msg, err := wire.Parse(f.frames[len(f.frames)-1])
	if err != nil {
		t.Fatalf("parse broadcast frame: %v", err)
	}
	return msg
}

type fixture struct {
	clock    *clock.FakeClock
	agent    *agent.Agent
	displays *fakeDisplays
	session  *sdkmcp.ClientSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fc := clock.Fake(time.UnixMilli(1_700_000_000_000))
	a := agent.New(agent.WithClock(fc))
	t.Cleanup(func() { a.Close() })
	d := &fakeDisplays{list: []transport.Display{{Name: "kitchen", Address: "10.0.0.2:8765", Connected: true}}}
	srv := mcpserver.NewServer(a, d, mcpserver.Options{Clock: fc})
	return &fixture{clock: fc, agent: a, displays: d, session: connectInMemory(t, context.Background(), srv)}
}

func connectInMemory(t *testing.T, ctx context.Context, srv *mcpserver.Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer.Connect(ctx, t1, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) map[string]any {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError {
		for _, c := range res.Content {
			if tc, ok := c.(*sdkmcp.TextContent); ok {
				t.Fatalf("CallTool(%s) returned error: %s", name, tc.Text)
			}
		}
		t.Fatalf("CallTool(%s) returned error", name)
	}
	result := make(map[string]any)
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			if err := json.Unmarshal([]byte(tc.Text), &result); err != nil {
				t.Fatalf("unmarshal tool result: %v (text: %s)", err, tc.Text)
			}
			return result
		}
	}
	t.Fatalf("no text content in tool result")
	return nil
}

func callToolExpectError(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return err.Error()
	}
	if !res.IsError {
		t.Fatalf("CallTool(%s) succeeded, want error", name)
	}
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestServer_ToolDiscovery(t *testing.T) {
	f := newFixture(t)
	tools, err := f.session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"get_current_emotion", "list_displays", "push_emotion_intent", "set_emotion"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("tools = %v, want %v", names, want)
	}
}

func TestServer_SetEmotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := callTool(t, ctx, f.session, "set_emotion", map[string]any{"mood": "happy", "intensity": 0.8})
	if got["status"] != "success" || got["mood"] != "happy" || got["intensity"] != 0.8 {
		t.Errorf("result = %v", got)
	}
	msg, ok := f.displays.last(t).(wire.SetScene)
	if !ok {
		t.Fatalf("broadcast is not set_scene")
	}
	if len(msg.Scene.Scene) != 7 {
		t.Errorf("scene has %d shapes", len(msg.Scene.Scene))
	}

	f.clock.Advance(2 * time.Second)
	got = callTool(t, ctx, f.session, "set_emotion", map[string]any{"mood": "neutral"})
	if got["mood"] != "neutral" || got["intensity"] != 0.0 {
		t.Errorf("neutral result = %v", got)
	}
}

func TestServer_SetEmotionUnknownMood(t *testing.T) {
	f := newFixture(t)
	text := callToolExpectError(t, context.Background(), f.session, "set_emotion", map[string]any{"mood": "ecstatic"})
	if !strings.Contains(text, "unknown mood") {
		t.Errorf("error text = %q", text)
	}
}

func TestServer_PushIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := callTool(t, ctx, f.session, "push_emotion_intent", map[string]any{
		"mood": "angry", "intensity": 1.0, "confidence": 1.0,
	})
	// Empty source defaults to POST, which may not reach angry.
	if got["source"] != "POST" || got["mood"] != "calm" {
		t.Errorf("result = %v", got)
	}
	if val, _ := got["intensity"].(float64); val > 0.5 {
		t.Errorf("intensity = %v, want <= 0.5", val)
	}

	f.clock.Advance(2 * time.Second)
	got = callTool(t, ctx, f.session, "push_emotion_intent", map[string]any{
		"source": "INLINE", "mood": "angry", "intensity": 1.0, "confidence": 0.9,
	})
	if got["mood"] != "angry" || got["intensity"] != 0.6 {
		t.Errorf("inline angry = %v", got)
	}

	text := callToolExpectError(t, ctx, f.session, "push_emotion_intent", map[string]any{
		"source": "RUMOR", "mood": "happy", "intensity": 0.5, "confidence": 0.9,
	})
	if !strings.Contains(text, "unknown intent source") {
		t.Errorf("error text = %q", text)
	}
}

func TestServer_GetCurrentEmotion(t *testing.T) {
	f := newFixture(t)
	got := callTool(t, context.Background(), f.session, "get_current_emotion", map[string]any{})
	if got["id"] != "default" || got["name"] != "Agent" || got["mood"] != "neutral" {
		t.Errorf("avatar = %v", got)
	}
}

func TestServer_ListDisplays(t *testing.T) {
	f := newFixture(t)
	got := callTool(t, context.Background(), f.session, "list_displays", map[string]any{})
	list, ok := got["displays"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("displays = %v", got["displays"])
	}
	d := list[0].(map[string]any)
	if d["name"] != "kitchen" || d["address"] != "10.0.0.2:8765" || d["connected"] != true {
		t.Errorf("display = %v", d)
	}
}

func TestServer_Resources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.session.ListResources(ctx, nil)
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	if len(list.Resources) != 3 {
		t.Errorf("resources = %d", len(list.Resources))
	}

	cases := []struct {
		uri  string
		want string
	}{
		{mcpserver.URISpec, "Mandatory IDs: face_base"},
		{mcpserver.URIEmotions, "- calm: Safe fallback"},
		{mcpserver.URIState, `"name": "Agent"`},
	}
	for _, tc := range cases {
		res, err := f.session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: tc.uri})
		if err != nil {
			t.Fatalf("ReadResource(%s): %v", tc.uri, err)
		}
		if len(res.Contents) != 1 || !strings.Contains(res.Contents[0].Text, tc.want) {
			t.Errorf("ReadResource(%s) = %+v, want text containing %q", tc.uri, res.Contents, tc.want)
		}
	}
}
