package tool

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLogDir  = "log"
	defaultLogFile = "rollball.log"
	DefaultLogger  = log.Default()
)

// InitLogger writes logs to stderr and to a rotating file under dir.
// Console results own stdout.
func InitLogger(dir string) {
	if dir == "" {
		dir = defaultLogDir
	}
	_ = os.MkdirAll(dir, 0o755)

	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, defaultLogFile),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
	}
	DefaultLogger.SetOutput(io.MultiWriter(os.Stderr, file))
	DefaultLogger.SetTimeFormat("2006-01-02 15:04:05")
	DefaultLogger.SetReportTimestamp(true)
	DefaultLogger.SetReportCaller(true)
}

// SetLogMode maps dev|prod|none to a log level.
func SetLogMode(mode string) {
	switch strings.ToLower(mode) {
	case "", "dev":
		DefaultLogger.SetLevel(log.DebugLevel)
	case "prod":
		DefaultLogger.SetLevel(log.InfoLevel)
	case "none":
		DefaultLogger.SetLevel(log.FatalLevel)
	default:
		DefaultLogger.Warnf("Unknown log mode %q, using debug level", mode)
		DefaultLogger.SetLevel(log.DebugLevel)
	}
}
