// Package mcp exposes the avatar to LLM clients as MCP tools and resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"aiface/internal/agent"
	"aiface/internal/clock"
	"aiface/internal/emotion"
	"aiface/internal/logging"
	"aiface/internal/scene"
	"aiface/internal/transport"
	"aiface/internal/wire"
)

const (
	URISpec     = "ai-face://resources/spec"
	URIEmotions = "ai-face://resources/emotions"
	URIState    = "ai-face://resources/state"
)

// Avatar is the slice of agent.Agent the tools drive.
type Avatar interface {
	SetMood(mood emotion.Mood, intensity *float64) (agent.Avatar, error)
	PushIntent(in emotion.Intent) (agent.Avatar, error)
	Avatar() agent.Avatar
	Scene() scene.Document
}

// Displays is the slice of transport.Hub the tools use.
type Displays interface {
	Displays() []transport.Display
	Broadcast(frame []byte) int
}

type Options struct {
	Name    string
	Version string
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Server wraps the MCP SDK server around one avatar and its displays.
type Server struct {
	MCPServer *sdkmcp.Server

	avatar   Avatar
	displays Displays
	clock    clock.Clock
	log      *slog.Logger
}

// NewServer registers the emotion tools and the three ai-face resources.
func NewServer(a Avatar, d Displays, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "ai-face"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("mcp")
	}
	s := &Server{avatar: a, displays: d, clock: opts.Clock, log: opts.Logger}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: opts.Name, Version: opts.Version},
		nil,
	)
	s.registerTools()
	s.registerResources()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "set_emotion",
		Description: "Set the AI Face emotion and intensity on the connected displays. No IDs needed.",
	}, s.handleSetEmotion)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "push_emotion_intent",
		Description: "Push an emotion intent (INLINE, HYBRID or POST). The agent stabilizes and renders it.",
	}, s.handlePushIntent)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_current_emotion",
		Description: "Check what the face is currently showing.",
	}, s.handleGetCurrent)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_displays",
		Description: "List discovered AI Face displays and whether each is connected.",
	}, s.handleListDisplays)
}

// --- Tool input/output types ---

type setEmotionInput struct {
	Mood      string   `json:"mood" jsonschema:"the emotion to display: neutral, calm, happy, amused, nervous, sad or angry"`
	Intensity *float64 `json:"intensity,omitempty" jsonschema:"emotion intensity from 0.0 to 1.0"`
}

type setEmotionOutput struct {
	Status    string       `json:"status"`
	Mood      emotion.Mood `json:"mood"`
	Intensity float64      `json:"intensity"`
}

type pushIntentInput struct {
	Source     string  `json:"source,omitempty" jsonschema:"intent source: INLINE, HYBRID or POST (default POST)"`
	Mood       string  `json:"mood" jsonschema:"target emotion"`
	Intensity  float64 `json:"intensity" jsonschema:"intent intensity from 0.0 to 1.0"`
	Confidence float64 `json:"confidence" jsonschema:"intent confidence from 0.0 to 1.0"`
	Timestamp  int64   `json:"timestamp,omitempty" jsonschema:"unix timestamp in ms (default now)"`
}

type pushIntentOutput struct {
	Status    string         `json:"status"`
	Mood      emotion.Mood   `json:"mood"`
	Intensity float64        `json:"intensity"`
	Source    emotion.Source `json:"source"`
}

type emptyInput struct{}

type listDisplaysOutput struct {
	Displays []transport.Display `json:"displays"`
}

// --- Tool handlers ---

func (s *Server) handleSetEmotion(_ context.Context, _ *sdkmcp.CallToolRequest, input setEmotionInput) (*sdkmcp.CallToolResult, setEmotionOutput, error) {
	mood, err := emotion.ParseMood(input.Mood)
	if err != nil {
		return nil, setEmotionOutput{}, err
	}
	av, err := s.avatar.SetMood(mood, input.Intensity)
	if err != nil {
		return nil, setEmotionOutput{}, fmt.Errorf("set emotion: %w", err)
	}
	s.broadcastScene()
	return nil, setEmotionOutput{Status: "success", Mood: av.Mood, Intensity: av.Intensity}, nil
}

func (s *Server) handlePushIntent(_ context.Context, _ *sdkmcp.CallToolRequest, input pushIntentInput) (*sdkmcp.CallToolResult, pushIntentOutput, error) {
	src, err := emotion.ParseSource(input.Source)
	if err != nil {
		return nil, pushIntentOutput{}, err
	}
	mood, err := emotion.ParseMood(input.Mood)
	if err != nil {
		return nil, pushIntentOutput{}, err
	}
	ts := input.Timestamp
	if ts == 0 {
		ts = clock.Millis(s.clock.Now())
	}
	av, err := s.avatar.PushIntent(emotion.Intent{
		Source:     src,
		Mood:       mood,
		Intensity:  input.Intensity,
		Confidence: input.Confidence,
		Timestamp:  ts,
	})
	if err != nil {
		return nil, pushIntentOutput{}, fmt.Errorf("push intent: %w", err)
	}
	s.broadcastScene()
	return nil, pushIntentOutput{Status: "success", Mood: av.Mood, Intensity: av.Intensity, Source: src}, nil
}

func (s *Server) handleGetCurrent(_ context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, agent.Avatar, error) {
	return nil, s.avatar.Avatar(), nil
}

func (s *Server) handleListDisplays(_ context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, listDisplaysOutput, error) {
	ds := s.displays.Displays()
	if ds == nil {
		ds = []transport.Display{}
	}
	return nil, listDisplaysOutput{Displays: ds}, nil
}

func (s *Server) broadcastScene() {
	frame, err := wire.EncodeSetScene(s.avatar.Scene(), clock.Millis(s.clock.Now()))
	if err != nil {
		s.log.Error("encode scene", slog.Any("error", err))
		return
	}
	n := s.displays.Broadcast(frame)
	s.log.Debug("scene broadcast", slog.Int("displays", n))
}

// --- Resources ---

const specText = `# AI Face Spec
- Coordinates: X, Y in [-100, 100]
- Mandatory IDs: face_base, left_eye, right_eye, left_brow, right_brow, mouth`

var moodNotes = map[emotion.Mood]string{
	emotion.Neutral: "Baseline",
	emotion.Calm:    "Safe fallback",
	emotion.Happy:   "Positive",
	emotion.Amused:  "Light positive",
	emotion.Nervous: "Mild tension",
	emotion.Sad:     "Negative/Melancholic",
	emotion.Angry:   "Aggressive/Tense",
}

func emotionsText() string {
	var b strings.Builder
	b.WriteString("# Supported Moods")
	for _, m := range emotion.Moods {
		fmt.Fprintf(&b, "\n- %s: %s", m, moodNotes[m])
	}
	return b.String()
}

func (s *Server) registerResources() {
	s.MCPServer.AddResource(&sdkmcp.Resource{
		URI:         URISpec,
		Name:        "System Spec",
		Description: "Geometry and coordinate rules",
		MIMEType:    "text/markdown",
	}, staticResource("text/markdown", specText))

	s.MCPServer.AddResource(&sdkmcp.Resource{
		URI:         URIEmotions,
		Name:        "Supported Moods",
		Description: "List of valid emotional states you can use",
		MIMEType:    "text/markdown",
	}, staticResource("text/markdown", emotionsText()))

	s.MCPServer.AddResource(&sdkmcp.Resource{
		URI:         URIState,
		Name:        "Current State",
		Description: "The currently active mood on the display",
		MIMEType:    "application/json",
	}, s.handleStateResource)
}

func staticResource(mime, text string) sdkmcp.ResourceHandler {
	return func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		return &sdkmcp.ReadResourceResult{
			Contents: []*sdkmcp.ResourceContents{{URI: req.Params.URI, MIMEType: mime, Text: text}},
		}, nil
	}
}

func (s *Server) handleStateResource(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.avatar.Avatar(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal avatar: %w", err)
	}
	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)}},
	}, nil
}

// Run serves MCP over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
