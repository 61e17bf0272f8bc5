package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aiface/internal/agent"
	"aiface/internal/clock"
	"aiface/internal/config"
	"aiface/internal/discovery"
	"aiface/internal/emotion"
	"aiface/internal/transport"
	"aiface/internal/wire"
)

var errNoAck = errors.New("display did not acknowledge")

var sendFlags struct {
	mood      string
	intensity float64
	reset     bool
	timeout   time.Duration
}

var sendCmd = &cobra.Command{
	Use:   "send <host[:port]>",
	Short: "Send one face or a reset to a display",
	Long: `Compiles --mood and --intensity into a full set_scene and sends it to one
display, or sends reset with --reset. Waits for the display's ack.`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendFlags.mood, "mood", "neutral", "Mood to render")
	f.Float64Var(&sendFlags.intensity, "intensity", emotion.DefaultIntensity, "Mood intensity 0..1")
	f.BoolVar(&sendFlags.reset, "reset", false, "Send reset instead of a scene")
	f.DurationVar(&sendFlags.timeout, "timeout", 2*time.Second, "How long to wait for the ack")
}

// withDefaultPort appends the display port to a bare host.
func withDefaultPort(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(discovery.DefaultPort))
}

// sendFrame builds the frame the flags describe.
func sendFrame(now time.Time) ([]byte, error) {
	ts := clock.Millis(now)
	if sendFlags.reset {
		return wire.EncodeReset("cli", ts)
	}
	mood, err := emotion.ParseMood(sendFlags.mood)
	if err != nil {
		return nil, err
	}
	av := agent.New()
	defer av.Close()
	intensity := emotion.Clamp01(sendFlags.intensity)
	if _, err := av.SetMood(mood, &intensity); err != nil {
		return nil, err
	}
	return wire.EncodeSetScene(av.Scene(), ts)
}

func runSend(cmd *cobra.Command, args []string) error {
	addr := withDefaultPort(args[0])
	cfg, err := loadConfig(cmd, func(c *config.Config) {
		c.Displays = []string{addr}
	})
	if err != nil {
		return err
	}
	frame, err := sendFrame(time.Now())
	if err != nil {
		return err
	}
	hello, err := wire.EncodeHello(clock.Millis(time.Now()))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.DialTimeout+sendFlags.timeout)
	defer cancel()

	acks := make(chan string, 2)
	c, err := transport.Dial(ctx, addr, transport.DialOptions{
		Name:    "cli",
		Timeout: cfg.DialTimeout,
		OnReply: func(msg string) {
			select {
			case acks <- msg:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer c.Close()

	// The display acks every valid message, so two acks mean the frame landed.
	c.Send(hello)
	c.Send(frame)
	wait := time.NewTimer(sendFlags.timeout)
	defer wait.Stop()
	for got := 0; got < 2; got++ {
		select {
		case msg := <-acks:
			if got == 1 {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
		case <-c.Done():
			return fmt.Errorf("%s: connection closed before ack", addr)
		case <-wait.C:
			return fmt.Errorf("%s: %w", addr, errNoAck)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
