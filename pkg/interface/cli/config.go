package cli

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

// Driving modes
const (
	ModeNative = "native"
	ModeCDP    = "cdp"
	ModeReplay = "replay"
)

// Config holds all application configuration
type Config struct {
	ConfigFile string `short:"c" long:"config" env:"STOREFRONT_CONFIG" description:"YAML policy file (endpoint, poll, cache, navigation)"`
	Mode       string `long:"mode" env:"STOREFRONT_MODE" choice:"native" choice:"cdp" choice:"replay" default:"native" description:"Where tab events come from: a native-messaging port, a DevTools connection or a recorded file"`

	// Input/Output
	InputFile  string `short:"i" long:"input" description:"Navigations to replay, one \"URL\" or \"TAB URL\" per line" default:"-"`
	OutputFile string `short:"o" long:"output" description:"Deliveries output file in replay mode" default:"deliveries.jsonl"`

	// Substrate
	CDPURL  string `long:"cdp-url" env:"STOREFRONT_CDP_URL" description:"DevTools websocket URL of a running browser"`
	BaseURL string `long:"base-url" env:"STOREFRONT_BASE_URL" description:"Override endpoint.base_url of the policy"`

	// Observability
	LogLevel    string `long:"log-level" env:"STOREFRONT_LOG_LEVEL" description:"Log level (debug, info, warn, error)" default:"info"`
	LogFile     string `long:"log-file" description:"Write logs to this file instead of stderr"`
	MetricsAddr string `long:"metrics-addr" env:"STOREFRONT_METRICS_ADDR" description:"Serve Prometheus metrics on this address, e.g. :2112"`

	// UI
	ShowDashboard bool `long:"dashboard" description:"Show interactive TUI dashboard"`
	Version       bool `long:"version" description:"Print version and exit"`

	// Policy loaded from ConfigFile, or the defaults
	Policy Policy `no-flag:"true"`
}

// ParseFlags parses command line flags and loads the policy file
func ParseFlags() (*Config, error) {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			// Help has been printed by the library, exit cleanly
			os.Exit(0)
		}
		return nil, err
	}
	return cfg, nil
}

// ParseArgs parses args the way ParseFlags parses os.Args
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}

	parser := flags.NewParser(cfg, flags.Default)
	parser.Usage = "[OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.Version {
		return cfg, nil
	}

	if cfg.ConfigFile != "" {
		policy, err := LoadPolicy(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		cfg.Policy = policy
	} else {
		cfg.Policy = DefaultPolicy()
	}

	if cfg.BaseURL != "" {
		cfg.Policy.Endpoint.BaseURL = cfg.BaseURL
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Mode == ModeCDP && c.CDPURL == "" {
		return fmt.Errorf("--cdp-url is required in cdp mode")
	}

	if c.Mode == ModeReplay && c.InputFile == "" {
		return fmt.Errorf("--input is required in replay mode")
	}

	if c.Mode == ModeNative && c.ShowDashboard {
		return fmt.Errorf("the dashboard cannot run in native mode, the terminal belongs to the browser")
	}

	return c.Policy.Validate()
}
