package tool

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alfachiu/rollball-api-tcp/types"
)

const defaultConfigName = "config.yaml"

// Failure policies for remote call errors.
const (
	OnErrorContinue = "continue"
	OnErrorFatal    = "fatal"
)

// The server tolerates request intervals between these bounds.
const (
	MinPollInterval = 500 * time.Millisecond
	MaxPollInterval = 1000 * time.Millisecond
)

type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

type PollConfig struct {
	Interval   time.Duration `yaml:"interval"`
	Iterations int           `yaml:"iterations"` // 0 polls until interrupted
	OnError    string        `yaml:"on_error"`
	Hello      string        `yaml:"hello"`
	Verify     []string      `yaml:"verify"` // ip, email, name, company[, notes...]
	Command    string        `yaml:"command"`
	Format     string        `yaml:"format"` // text|json
	WaitOnExit bool          `yaml:"wait_on_exit"`
}

type ScriptConfig struct {
	Passive   bool          `yaml:"passive"`
	DropDelay time.Duration `yaml:"drop_delay"`
}

type APIConfig struct {
	Enabled bool    `yaml:"enabled"`
	Addr    string  `yaml:"addr"`
	Rate    float64 `yaml:"rate"` // requests per second
	Burst   int     `yaml:"burst"`
	QRCode  bool    `yaml:"qrcode"`
}

type NotifyConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ProbeConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Count      int           `yaml:"count"`
	Timeout    time.Duration `yaml:"timeout"`
	Privileged bool          `yaml:"privileged"`
}

type LogConfig struct {
	Mode string `yaml:"mode"` // dev|prod|none
	Dir  string `yaml:"dir"`
}

// AppConfig is the full client configuration.
type AppConfig struct {
	Server ServerConfig `yaml:"server"`
	Poll   PollConfig   `yaml:"poll"`
	Script ScriptConfig `yaml:"script"`
	API    APIConfig    `yaml:"api"`
	Notify NotifyConfig `yaml:"notify"`
	Probe  ProbeConfig  `yaml:"probe"`
	Log    LogConfig    `yaml:"log"`
}

// DefaultConfig returns the values of the reference demo.
func DefaultConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Host:    "192.168.1.100",
			Port:    5288,
			Timeout: 5 * time.Second,
		},
		Poll: PollConfig{
			Interval:   700 * time.Millisecond,
			Iterations: 10,
			OnError:    OnErrorContinue,
			Hello:      "World",
			Verify:     types.DefaultVerify(),
			Command:    "0",
			Format:     "text",
			WaitOnExit: true,
		},
		Script: ScriptConfig{
			DropDelay: 5 * time.Second,
		},
		API: APIConfig{
			Addr:  "127.0.0.1:53288",
			Rate:  10,
			Burst: 20,
		},
		Notify: NotifyConfig{
			Timeout: 5 * time.Second,
		},
		Probe: ProbeConfig{
			Count:   3,
			Timeout: 3 * time.Second,
		},
		Log: LogConfig{
			Mode: "dev",
			Dir:  defaultLogDir,
		},
	}
}

// GetRunPositionDir returns the directory of the running executable.
func GetRunPositionDir() string {
	exePath, err := os.Executable()
	if err != nil {
		return ""
	}
	exePath, err = filepath.EvalSymlinks(exePath)
	if err != nil {
		return ""
	}
	return filepath.Dir(exePath)
}

// findConfig looks for config.yaml in the working directory, then next to the executable.
func findConfig() string {
	candidates := []string{defaultConfigName}
	if dir := GetRunPositionDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, defaultConfigName))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadConfig layers defaults, the YAML file and ROLLBALL_* environment
// variables (a .env file is read when present). An explicit path must exist.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			DefaultLogger.Debugf("Loaded config from %s", path)
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("ROLLBALL_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ROLLBALL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ROLLBALL_PORT %q", v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("ROLLBALL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ROLLBALL_INTERVAL %q", v)
		}
		cfg.Poll.Interval = d
	}
	if v := os.Getenv("ROLLBALL_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ROLLBALL_ITERATIONS %q", v)
		}
		cfg.Poll.Iterations = n
	}
	if v := os.Getenv("ROLLBALL_ON_ERROR"); v != "" {
		cfg.Poll.OnError = v
	}
	if v := os.Getenv("ROLLBALL_VERIFY"); v != "" {
		cfg.Poll.Verify = SplitList(v)
	}
	if v := os.Getenv("ROLLBALL_NOTIFY_URL"); v != "" {
		cfg.Notify.URL = v
	}
	if v := os.Getenv("ROLLBALL_LOG"); v != "" {
		cfg.Log.Mode = v
	}
	return nil
}

// SplitList splits a comma separated list, trimming blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// Validate rejects configurations the client cannot run with.
func (c AppConfig) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.Iterations < 0 {
		return fmt.Errorf("poll.iterations must not be negative")
	}
	switch c.Poll.OnError {
	case OnErrorContinue, OnErrorFatal:
	default:
		return fmt.Errorf("poll.on_error must be %q or %q, got %q", OnErrorContinue, OnErrorFatal, c.Poll.OnError)
	}
	switch c.Poll.Command {
	case "0", "1", "2", "3", "9":
	default:
		return fmt.Errorf("poll.command %q is not a command code", c.Poll.Command)
	}
	switch c.Poll.Format {
	case "text", "json":
	default:
		return fmt.Errorf("poll.format must be text or json, got %q", c.Poll.Format)
	}
	if c.API.Enabled && c.API.Addr == "" {
		return fmt.Errorf("api.addr is required when the api is enabled")
	}
	return nil
}

// IntervalInTolerance reports whether the poll interval is within the
// range the server documents.
func (c AppConfig) IntervalInTolerance() bool {
	return c.Poll.Interval >= MinPollInterval && c.Poll.Interval <= MaxPollInterval
}
