package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	levelOff
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "OFF"
}

// Logger writes to the console at or above the console level, and to an
// optional file at every level.
type Logger struct {
	mu           sync.Mutex
	console      io.Writer
	consoleLevel Level

	file       *os.File
	fileLogger *log.Logger
}

// New creates a logger. An empty filePath disables the file sink; an
// existing file is truncated so each run starts a fresh log.
func New(consoleLevel Level, console io.Writer, filePath string) (*Logger, error) {
	if console == nil {
		console = os.Stderr
	}

	l := &Logger{
		console:      console,
		consoleLevel: consoleLevel,
	}

	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		l.file = f
		l.fileLogger = log.New(f, "", 0)
	}

	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{console: io.Discard, consoleLevel: levelOff}
}

func (l *Logger) log(lvl Level, format string, v ...any) {
	if l == nil {
		return
	}
	if lvl < l.consoleLevel && l.fileLogger == nil {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	fullMsg := fmt.Sprintf("%s [%s] %s", timestamp, lvl, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLogger != nil {
		l.fileLogger.Println(fullMsg)
	}
	if lvl >= l.consoleLevel {
		fmt.Fprintln(l.console, fullMsg)
	}
}

// ParseLevel maps a level name to a Level, defaulting to info.
func ParseLevel(lvl string) Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) Debug(f string, v ...any) { l.log(LevelDebug, f, v...) }
func (l *Logger) Info(f string, v ...any)  { l.log(LevelInfo, f, v...) }
func (l *Logger) Warn(f string, v ...any)  { l.log(LevelWarn, f, v...) }
func (l *Logger) Error(f string, v ...any) { l.log(LevelError, f, v...) }
func (l *Logger) Fatal(f string, v ...any) { l.log(LevelFatal, f, v...); os.Exit(1) }

// Enabled reports whether a message at lvl reaches the console.
func (l *Logger) Enabled(lvl Level) bool {
	return l != nil && lvl >= l.consoleLevel
}

func (l *Logger) Write(p []byte) (n int, err error) {
	// Echo and other libraries often include a newline at the end
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		l.Info("%s", msg)
	}
	return len(p), nil
}

func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
