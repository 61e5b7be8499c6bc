// Package dsslog implements the daemon's leveled logging facility: six
// severities (DEBUG..EMERG), writing to stderr or an explicit logfile,
// colorized the way the CLI colors its own output.
package dsslog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level is one of the six severities the daemon can log at.
type Level int

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
	Emerg
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Notice:
		return "NOTICE"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Emerg:
		return "EMERG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level, defaulting to Info when the
// string is unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG":
		return Debug
	case "INFO":
		return Info
	case "NOTICE":
		return Notice
	case "WARNING":
		return Warning
	case "ERROR":
		return Error
	case "EMERG":
		return Emerg
	default:
		return Info
	}
}

var levelColor = map[Level]*color.Color{
	Debug:   color.New(color.FgWhite),
	Info:    color.New(color.FgCyan),
	Notice:  color.New(color.FgGreen),
	Warning: color.New(color.FgYellow),
	Error:   color.New(color.FgRed),
	Emerg:   color.New(color.FgRed, color.Bold),
}

// Logger writes leveled, timestamped lines to an underlying writer. It is
// safe for concurrent use, though the daemon's single-threaded loop never
// actually contends on it.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel Level
	colorize bool
}

// New creates a Logger writing to out at or above minLevel. colorize
// controls whether ANSI severity coloring is applied (disabled
// automatically for non-tty logfile destinations by callers).
func New(out io.Writer, minLevel Level, colorize bool) *Logger {
	return &Logger{out: out, minLevel: minLevel, colorize: colorize}
}

// NewStderr creates a Logger writing to os.Stderr with coloring enabled.
func NewStderr(minLevel Level) *Logger {
	return New(os.Stderr, minLevel, true)
}

// NewFile opens path for appending and returns a Logger writing to it
// uncolored, the conventional shape for a plain logfile destination.
func NewFile(path string, minLevel Level) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return New(f, minLevel, false), nil
}

// Log writes one formatted line at level, prefixed with a timestamp and the
// level name, if level is at or above the logger's minimum.
func (l *Logger) Log(level Level, format string, args ...interface{}) {
	if level < l.minLevel {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)

	if l.colorize {
		if c, ok := levelColor[level]; ok {
			c.Fprintf(l.out, "%s [%s] %s\n", ts, level, msg)
			return
		}
	}
	fmt.Fprintf(l.out, "%s [%s] %s\n", ts, level, msg)
}

func (l *Logger) Debug(format string, args ...interface{})   { l.Log(Debug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})    { l.Log(Info, format, args...) }
func (l *Logger) Notice(format string, args ...interface{})  { l.Log(Notice, format, args...) }
func (l *Logger) Warning(format string, args ...interface{}) { l.Log(Warning, format, args...) }
func (l *Logger) Error(format string, args ...interface{})   { l.Log(Error, format, args...) }
func (l *Logger) Emerg(format string, args ...interface{})   { l.Log(Emerg, format, args...) }
