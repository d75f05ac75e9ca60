package tool

import (
	"errors"
	"flag"
	"os"
	"time"
)

// Config holds runtime overrides from CLI flags. Zero values leave the
// loaded configuration untouched.
type Config struct {
	Log           string
	UseConfigPath string
	Host          string
	Port          int
	Interval      time.Duration
	Iterations    int // -1 keeps the configured value
	OnError       string
	Format        string
	Passive       bool
	APIAddr       string
	NoWait        bool
	Send          string
	ScriptRemain  string
}

// ParseFlags parses args into an override config.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("rollball", flag.ContinueOnError)
	fs.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	fs.StringVar(&cfg.UseConfigPath, "config", "", "config file path")
	fs.StringVar(&cfg.Host, "host", "", "override server host")
	fs.IntVar(&cfg.Port, "port", 0, "override server port")
	fs.DurationVar(&cfg.Interval, "interval", 0, "override poll interval (500ms-1s)")
	fs.IntVar(&cfg.Iterations, "iterations", -1, "override iteration count, 0 polls until interrupted")
	fs.StringVar(&cfg.OnError, "on-error", "", "remote call failure policy: continue|fatal")
	fs.StringVar(&cfg.Format, "format", "", "console output: text|json")
	fs.BoolVar(&cfg.Passive, "passive", false, "drive the device in passive script mode")
	fs.StringVar(&cfg.APIAddr, "api", "", "serve the status API on this address")
	fs.BoolVar(&cfg.NoWait, "no-wait", false, "exit as soon as polling completes")
	fs.StringVar(&cfg.Send, "send", "", "send one command code (0|1|2|3|9) and exit")
	fs.StringVar(&cfg.ScriptRemain, "script-remain", "", "write script timings ready,roll,timeout,answer and exit")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SetFlags parses the process arguments, exiting on bad usage or -h.
func SetFlags() Config {
	cfg, err := ParseFlags(os.Args[1:])
	if err != nil {
		os.Exit(flagExitCode(err))
	}
	return cfg
}

func flagExitCode(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 2
}

// Apply merges the flag overrides into app.
func (c Config) Apply(app *AppConfig) {
	if c.Log != "" {
		app.Log.Mode = c.Log
	}
	if c.Host != "" {
		app.Server.Host = c.Host
	}
	if c.Port > 0 {
		app.Server.Port = c.Port
	}
	if c.Interval > 0 {
		app.Poll.Interval = c.Interval
	}
	if c.Iterations >= 0 {
		app.Poll.Iterations = c.Iterations
	}
	if c.OnError != "" {
		app.Poll.OnError = c.OnError
	}
	if c.Format != "" {
		app.Poll.Format = c.Format
	}
	if c.Passive {
		app.Script.Passive = true
	}
	if c.APIAddr != "" {
		app.API.Enabled = true
		app.API.Addr = c.APIAddr
	}
	if c.NoWait {
		app.Poll.WaitOnExit = false
	}
}
