package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"github.com/sirupsen/logrus"
)

// Debug enables DebugLog output and debug-level logging.
var Debug = false

var (
	mu     sync.Mutex
	logger = newLogger(os.Stderr)
	once   = &sync.Once{}
)

// CallerFormatter prefixes every message with the file:line of the caller.
type CallerFormatter struct {
	logrus.TextFormatter
}

// Format renders a single log entry.
func (f *CallerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry.HasCaller() {
		entry.Message = fmt.Sprintf("[%-18s:%03d] %s", path.Base(entry.Caller.File), entry.Caller.Line, entry.Message)
	}
	return f.TextFormatter.Format(entry)
}

func newLogger(out io.Writer) *logrus.Logger {
	return &logrus.Logger{
		Out: out,
		Formatter: &CallerFormatter{
			logrus.TextFormatter{FullTimestamp: true, DisableColors: true},
		},
		Hooks:        make(logrus.LevelHooks),
		Level:        logrus.InfoLevel,
		ReportCaller: true,
		ExitFunc:     os.Exit,
	}
}

// Logger returns the process logger.
func Logger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// SetOutput redirects the process logger (tests use a buffer).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// SetDebug switches debug logging on or off.
func SetDebug(on bool) {
	mu.Lock()
	defer mu.Unlock()
	Debug = on
	if on {
		once = &sync.Once{}
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

// Named returns an entry tagged with a component name.
func Named(name string) *logrus.Entry {
	return Logger().WithField("component", name)
}

func DebugLog(format string, args ...interface{}) {
	if !Debug {
		return
	}
	Logger().Debugf(format, args...)
}

// DebugLogOnce logs only the first call after debug logging is switched on.
func DebugLogOnce(format string, args ...interface{}) {
	if !Debug {
		return
	}
	mu.Lock()
	o := once
	mu.Unlock()
	o.Do(func() {
		Logger().Debugf(format, args...)
	})
}
