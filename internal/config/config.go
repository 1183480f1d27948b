// Package config builds the process configuration from defaults, an
// optional YAML file, the environment (including a .env file) and flags,
// in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Target         string        `yaml:"target"`
	Period         time.Duration `yaml:"period"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	LogDir         string        `yaml:"logs"`
	LogStdout      bool          `yaml:"stdout"`
	PingPackets    int           `yaml:"ping_packets"`
	PingPrivileged *bool         `yaml:"ping_privileged"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`

	Addr        string `yaml:"addr"`  // API bind address
	Store       string `yaml:"store"` // file | postgres | memory
	DatabaseURL string `yaml:"database_url"`
	PublicRPM   int    `yaml:"public_rpm"`
	PublicBurst int    `yaml:"public_burst"`

	// ConfigFile is the YAML file that was loaded, if any.
	ConfigFile string `yaml:"-"`
}

func Default() Config {
	return Config{
		Target:        "8.8.8.8",
		Period:        2000 * time.Millisecond,
		ProbeTimeout:  1000 * time.Millisecond,
		LogDir:        "uptime_logs",
		PingPackets:   1,
		RetryAttempts: 1,
		Addr:          "127.0.0.1:8080",
		Store:         StoreFile,
		PublicRPM:     600,
		PublicBurst:   60,
	}
}

// RecordDir is where the file store keeps its day files.
func (c Config) RecordDir() string {
	return filepath.Join(c.LogDir, "records")
}

// Load parses args as flags of the named command and resolves the final
// configuration. The returned error may be pflag.ErrHelp.
func Load(name string, args []string) (Config, error) {
	var (
		fl      = Default()
		cfgPath string
	)
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	BindFlags(fs, &fl)
	fs.StringVar(&cfgPath, "config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if !fs.Changed("config") {
		cfgPath = os.Getenv("UPTIME_CONFIG")
	}
	if cfgPath != "" {
		if err := LoadFile(cfgPath, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	applyFlags(fs, &cfg, fl)

	return cfg, cfg.Validate()
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current value.
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.ConfigFile = path
	return nil
}

// ApplyEnv overlays environment variables onto cfg. Every malformed value
// is reported, not only the first.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	var errs error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
			return
		}
		*dst = n
	}
	millis := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %q is not a number of milliseconds", key, v))
			return
		}
		*dst = time.Duration(ms) * time.Millisecond
	}
	flag := func(key string, dst *bool) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
			return
		}
		*dst = b
	}

	str("TARGET", &cfg.Target)
	millis("PERIOD_MS", &cfg.Period)
	millis("PROBE_TIMEOUT_MS", &cfg.ProbeTimeout)
	str("LOGS_DIR", &cfg.LogDir)
	flag("LOG_STDOUT", &cfg.LogStdout)
	num("PING_PACKETS", &cfg.PingPackets)
	if strings.TrimSpace(getenv("PING_PRIVILEGED")) != "" {
		var p bool
		flag("PING_PRIVILEGED", &p)
		cfg.PingPrivileged = &p
	}
	num("RETRY_ATTEMPTS", &cfg.RetryAttempts)
	millis("RETRY_BACKOFF_MS", &cfg.RetryBackoff)
	str("API_ADDR", &cfg.Addr)
	str("STORE", &cfg.Store)
	str("DATABASE_URL", &cfg.DatabaseURL)
	num("PUBLIC_RPM", &cfg.PublicRPM)
	num("PUBLIC_BURST", &cfg.PublicBurst)

	return errs
}

// BindFlags registers the command-line overrides, using cfg's current values
// as defaults.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Target, "target", cfg.Target, "host, IP or URL to probe")
	fs.Var(newMillis(&cfg.Period), "period", "probe period in milliseconds")
	fs.Var(newMillis(&cfg.ProbeTimeout), "timeout", "probe timeout in milliseconds")
	fs.StringVar(&cfg.LogDir, "logs", cfg.LogDir, "directory for records and process logs")
	fs.BoolVar(&cfg.LogStdout, "stdout", cfg.LogStdout, "also log to stdout")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "API listen address")
}

func applyFlags(fs *pflag.FlagSet, cfg *Config, fl Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "target":
			cfg.Target = fl.Target
		case "period":
			cfg.Period = fl.Period
		case "timeout":
			cfg.ProbeTimeout = fl.ProbeTimeout
		case "logs":
			cfg.LogDir = fl.LogDir
		case "stdout":
			cfg.LogStdout = fl.LogStdout
		case "addr":
			cfg.Addr = fl.Addr
		}
	})
}

func (c Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Target) == "" {
		add("target must not be empty")
	}
	if c.Period <= 0 {
		add("period must be positive, got %s", c.Period)
	}
	if c.ProbeTimeout <= 0 {
		add("probe timeout must be positive, got %s", c.ProbeTimeout)
	} else if c.Period > 0 && c.ProbeTimeout > c.Period {
		add("probe timeout %s exceeds period %s", c.ProbeTimeout, c.Period)
	}
	if strings.TrimSpace(c.LogDir) == "" {
		add("logs directory must not be empty")
	}
	if c.PingPackets < 1 || c.PingPackets > 100 {
		add("ping packets must be within 1..100, got %d", c.PingPackets)
	}
	if c.RetryAttempts < 1 {
		add("retry attempts must be at least 1, got %d", c.RetryAttempts)
	}
	if c.RetryBackoff < 0 {
		add("retry backoff must not be negative, got %s", c.RetryBackoff)
	}
	if c.Addr == "" {
		add("api address must not be empty")
	}
	switch c.Store {
	case StoreFile, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			add("store %q needs DATABASE_URL", StorePostgres)
		}
	default:
		add("unknown store %q (want file, postgres or memory)", c.Store)
	}
	if c.PublicRPM <= 0 || c.PublicBurst <= 0 {
		add("rate limit must be positive, got %d rpm burst %d", c.PublicRPM, c.PublicBurst)
	}
	return errs
}

// millis is a pflag.Value holding a duration written as whole milliseconds.
type millis struct{ d *time.Duration }

func newMillis(d *time.Duration) *millis { return &millis{d: d} }

func (m *millis) String() string {
	if m.d == nil {
		return "0"
	}
	return strconv.FormatInt(m.d.Milliseconds(), 10)
}

func (m *millis) Set(s string) error {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%q is not a number of milliseconds", s)
	}
	*m.d = time.Duration(n) * time.Millisecond
	return nil
}

func (m *millis) Type() string { return "ms" }
