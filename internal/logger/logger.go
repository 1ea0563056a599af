package logger

import (
	"io"
	"os"
	"strings"
	"vehicle-checkout/internal/config"

	"github.com/labstack/gommon/log"
)

const jsonHeader = `{"time":"${time_rfc3339_nano}","level":"${level}","prefix":"${prefix}","file":"${short_file}","line":"${line}"}`

const textHeader = `${time_rfc3339} ${level} ${prefix}`

// New builds the process logger. The same *log.Logger is handed to echo.
func New(cfg config.Log, prefix string) *log.Logger {
	return NewWithOutput(cfg, prefix, os.Stdout)
}

func NewWithOutput(cfg config.Log, prefix string, out io.Writer) *log.Logger {
	l := log.New(prefix)
	l.SetOutput(out)
	l.SetLevel(ParseLevel(cfg.Level))
	if strings.EqualFold(cfg.Format, "json") {
		l.SetHeader(jsonHeader)
	} else {
		l.SetHeader(textHeader)
	}
	return l
}

func ParseLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}

// Discard is used by tests and by callers that do not care about output.
func Discard() *log.Logger {
	l := log.New("-")
	l.SetOutput(io.Discard)
	l.SetLevel(log.OFF)
	return l
}
