package mlog

import (
	"fmt"
	"io"
	golog "log"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// logger wraps a stdlib *log.Logger with a level filter, the way minilog's
// minilogger did, but backed by an io.Writer rather than a raw file handle
// so a rotating sink can sit underneath it.
type logger struct {
	l     *golog.Logger
	level Level
}

var (
	loggers = make(map[string]*logger)
	mu      sync.RWMutex
)

// AddLogger registers a named logger writing to output, filtering anything
// below level.
func AddLogger(name string, output *golog.Logger, level Level) {
	mu.Lock()
	defer mu.Unlock()
	loggers[name] = &logger{l: output, level: level}
}

// AddWriterLogger is the common case: wrap an io.Writer in a *log.Logger
// with standard flags and register it.
func AddWriterLogger(name string, w io.Writer, level Level) {
	AddLogger(name, golog.New(w, "", golog.LstdFlags), level)
}

// AddRotatingFileLogger registers a logger that writes to path, rotating
// via lumberjack once the file crosses maxSizeMB. This is the one piece
// minilog never had: a long-running daemon session needs its log file to
// not grow without bound.
func AddRotatingFileLogger(name, path string, maxSizeMB, maxBackups, maxAgeDays int, level Level) {
	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	AddLogger(name, golog.New(sink, "", golog.LstdFlags), level)
}

// DelLogger removes a previously registered logger.
func DelLogger(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(loggers, name)
}

// SetLevel changes the level of a named logger.
func SetLevel(name string, level Level) error {
	mu.Lock()
	defer mu.Unlock()
	l, ok := loggers[name]
	if !ok {
		return fmt.Errorf("no such logger %q", name)
	}
	l.level = level
	return nil
}

// Reset removes all registered loggers. Used between test cases the way
// minicli.Reset() wipes package state.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	loggers = make(map[string]*logger)
}

func dispatch(level Level, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	msg = strings.TrimRight(msg, "\n")

	for _, l := range loggers {
		if l.level <= level {
			l.l.Printf("[%s] %s", level, msg)
		}
	}
}

func Debug(format string, args ...interface{}) { dispatch(DEBUG, format, args...) }
func Info(format string, args ...interface{})  { dispatch(INFO, format, args...) }
func Warn(format string, args ...interface{})  { dispatch(WARN, format, args...) }
func Error(format string, args ...interface{}) { dispatch(ERROR, format, args...) }

// Fatal logs at FATAL and exits the process. Reserved for cmd/vush's main;
// library code should return errors instead.
func Fatal(format string, args ...interface{}) {
	dispatch(FATAL, format, args...)
	os.Exit(1)
}
