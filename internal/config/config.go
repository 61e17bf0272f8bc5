// Package config layers defaults, an optional YAML file and AIFACE_*
// environment variables into one Config. Flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"aiface/internal/discovery"
	"aiface/internal/logging"
	"aiface/internal/ticker"
	"aiface/internal/transport"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "AIFACE_"

var ErrInvalid = errors.New("invalid config")

type Log struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type Discovery struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Service string `yaml:"service" env:"SERVICE"`
	Domain  string `yaml:"domain" env:"DOMAIN"`
}

// Display configures the headless display runtime.
type Display struct {
	Listen    string `yaml:"listen" env:"LISTEN"`
	Advertise bool   `yaml:"advertise" env:"ADVERTISE"`
	Instance  string `yaml:"instance" env:"INSTANCE"`
}

type Config struct {
	Name           string        `yaml:"name" env:"NAME"`
	Version        string        `yaml:"version" env:"VERSION"`
	Log            Log           `yaml:"log" envPrefix:"LOG_"`
	TickInterval   time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	DialTimeout    time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	RedialInterval time.Duration `yaml:"redial_interval" env:"REDIAL_INTERVAL"`
	QueueSize      int           `yaml:"queue_size" env:"QUEUE_SIZE"`
	Displays       []string      `yaml:"displays" env:"DISPLAYS"`
	Discovery      Discovery     `yaml:"discovery" envPrefix:"DISCOVERY_"`
	MetricsAddr    string        `yaml:"metrics_addr" env:"METRICS_ADDR"`
	Display        Display       `yaml:"display" envPrefix:"DISPLAY_"`
}

func Default() Config {
	host, _ := os.Hostname()
	return Config{
		Name:           "ai-face",
		Version:        "dev",
		Log:            Log{Level: "info", Format: logging.FormatText},
		TickInterval:   ticker.DefaultInterval,
		DialTimeout:    transport.DefaultDialTimeout,
		RedialInterval: 5 * time.Second,
		QueueSize:      transport.DefaultQueueSize,
		Discovery: Discovery{
			Enabled: true,
			Service: discovery.DefaultService,
			Domain:  discovery.DefaultDomain,
		},
		Display: Display{
			Listen:    fmt.Sprintf(":%d", discovery.DefaultPort),
			Advertise: true,
			Instance:  "AIFace-" + strings.Split(host, ".")[0],
		},
	}
}

// Load returns Default overlaid with the YAML file at path (skipped when
// path is empty) and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML file onto cfg. Keys absent from the file keep
// their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ParseEnv overlays AIFACE_* variables onto cfg.
func ParseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval))
	}
	if c.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("dial_timeout must be positive, got %s", c.DialTimeout))
	}
	if c.RedialInterval < 0 {
		errs = append(errs, fmt.Errorf("redial_interval must not be negative, got %s", c.RedialInterval))
	}
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue_size must be at least 1, got %d", c.QueueSize))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	for _, addr := range c.Displays {
		if err := ValidateAddr(addr); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// ValidateAddr accepts host:port or a ws:// URL with an explicit port.
func ValidateAddr(addr string) error {
	hostport := addr
	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return fmt.Errorf("display %q: %w", addr, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("display %q: unsupported scheme %q", addr, u.Scheme)
		}
		hostport = u.Host
	}
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return fmt.Errorf("display %q: %w", addr, err)
	}
	if host == "" {
		return fmt.Errorf("display %q: missing host", addr)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("display %q: bad port %q", addr, port)
	}
	return nil
}
