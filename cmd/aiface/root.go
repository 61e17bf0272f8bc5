package main

import (
	"github.com/spf13/cobra"

	"aiface/internal/config"
	"aiface/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

var rootCmd = &cobra.Command{
	Use:   "aiface",
	Short: "Emotion-driven face rendering for MCP agents",
	Long: "aiface arbitrates emotion intents from an MCP client, compiles them into\n" +
		"vector face scenes and streams them to websocket displays.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "Path to a YAML config file")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(displayCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.Version = version
}

// loadConfig layers the config file and environment, lets apply override
// from command flags, then validates and installs the logger.
func loadConfig(cmd *cobra.Command, apply func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = rootFlags.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = rootFlags.logFormat
	}
	if cfg.Version == "" || cfg.Version == "dev" {
		cfg.Version = version
	}
	if apply != nil {
		apply(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
