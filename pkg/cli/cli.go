package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmdmdm-nz/addrhookd/pkg/version"
)

const DefaultHookDir = "/etc/local-ddns-updater/"

// ErrVersionRequested is returned by ParseArgs when --version was given.
var ErrVersionRequested = errors.New("version requested")

// Config holds the application configuration from CLI flags
type Config struct {
	Interface   string
	HookDir     string
	HookTimeout time.Duration
	Verbose     bool
	LogLevel    string
	InitialDump bool
	APIAddress  string
}

// ParseFlags parses os.Args and returns a Config. It exits with status 2
// on invalid usage and 0 after printing the version.
func ParseFlags() *Config {
	cfg, err := ParseArgs(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, ErrVersionRequested) {
		fmt.Printf("addrhookd version %s (commit: %s, built at: %s)\n",
			version.Version,
			version.CommitHash,
			version.BuildTime)
		os.Exit(0)
	}
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}
	return cfg
}

// ParseArgs parses args into a Config, writing usage and errors to out.
func ParseArgs(name string, args []string, out io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&cfg.Interface, "interface", "", "Interface to watch for IPv6 address changes (required)")
	fs.StringVar(&cfg.Interface, "i", "", "Shorthand for --interface")
	fs.StringVar(&cfg.HookDir, "dir", DefaultHookDir, "Directory of executables run on IPv6 address change")
	fs.StringVar(&cfg.HookDir, "d", DefaultHookDir, "Shorthand for --dir")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Log address changes and hook executions")
	fs.BoolVar(&cfg.Verbose, "v", false, "Shorthand for --verbose")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.DurationVar(&cfg.HookTimeout, "hook-timeout", 10*time.Second, "Maximum run time of a single hook")
	fs.BoolVar(&cfg.InitialDump, "initial-dump", false, "Treat addresses already assigned at startup as changes")
	fs.StringVar(&cfg.APIAddress, "api", "", "Listen address of the status API, e.g. 127.0.0.1:60106 (disabled if empty)")
	showVersion := fs.Bool("version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *showVersion {
		return nil, ErrVersionRequested
	}

	if cfg.Interface == "" {
		err := errors.New("missing required flag: --interface")
		fmt.Fprintln(out, err)
		fs.Usage()
		return nil, err
	}

	if cfg.HookTimeout <= 0 {
		err := fmt.Errorf("invalid --hook-timeout %s: must be positive", cfg.HookTimeout)
		fmt.Fprintln(out, err)
		return nil, err
	}

	return cfg, nil
}

// String returns a string representation of the Config
func (c *Config) String() string {
	return fmt.Sprintf("Interface: %s, HookDir: %s, HookTimeout: %s, Verbose: %t, LogLevel: %s, InitialDump: %t, API: %q",
		c.Interface, c.HookDir, c.HookTimeout, c.Verbose, c.LogLevel, c.InitialDump, c.APIAddress)
}
