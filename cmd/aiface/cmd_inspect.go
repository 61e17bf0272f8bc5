package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aiface/internal/agent"
	"aiface/internal/display"
	"aiface/internal/emotion"
	"aiface/internal/format"
)

var inspectFlags struct {
	markdown bool
	timeout  time.Duration
}

var previewFlags struct {
	markdown  bool
	intensity float64
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <host[:port]>",
	Short: "Print a display runtime's state and scene",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var previewCmd = &cobra.Command{
	Use:   "preview <mood>",
	Short: "Print the scene a mood compiles to",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	f := inspectCmd.Flags()
	f.BoolVar(&inspectFlags.markdown, "markdown", false, "Render Markdown tables")
	f.DurationVar(&inspectFlags.timeout, "timeout", 3*time.Second, "HTTP timeout")

	pf := previewCmd.Flags()
	pf.BoolVar(&previewFlags.markdown, "markdown", false, "Render Markdown tables")
	pf.Float64Var(&previewFlags.intensity, "intensity", emotion.DefaultIntensity, "Mood intensity 0..1")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(previewCmd)
}

func tableMode(markdown bool) format.Mode {
	if markdown {
		return format.Markdown
	}
	return format.ASCII
}

func stateURL(addr string) string {
	addr = withDefaultPort(addr)
	if i := strings.Index(addr, "://"); i >= 0 {
		addr = strings.TrimSuffix(addr[i+3:], "/")
	}
	return "http://" + addr + "/state"
}

func fetchState(ctx context.Context, url string) (display.UIState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return display.UIState{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return display.UIState{}, fmt.Errorf("fetch state: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return display.UIState{}, fmt.Errorf("fetch state: %s", resp.Status)
	}
	var st display.UIState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return display.UIState{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd, nil); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), inspectFlags.timeout)
	defer cancel()
	st, err := fetchState(ctx, stateURL(args[0]))
	if err != nil {
		return err
	}

	mode := tableMode(inspectFlags.markdown)
	t := format.NewTable(mode)
	t.Header("Field", "Value")
	t.Row("endpoint", st.Endpoint)
	t.Row("service", st.ServiceType)
	t.Row("advertising", format.BoolMark(st.Advertising))
	t.Row("clients", st.ConnectedClients)
	t.Row("last message", st.LastMessageType)
	if st.LastError != "" {
		t.Row("last error", st.LastError)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, t.String())
	fmt.Fprintln(out, format.Shapes(mode, st.Scene))
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd, nil); err != nil {
		return err
	}
	mood, err := emotion.ParseMood(args[0])
	if err != nil {
		return err
	}
	av := agent.New()
	defer av.Close()
	intensity := emotion.Clamp01(previewFlags.intensity)
	a, err := av.SetMood(mood, &intensity)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s @ %s\n", a.Mood, format.Num(a.Intensity))
	fmt.Fprintln(out, format.Shapes(tableMode(previewFlags.markdown), av.Scene().Scene))
	return nil
}
