package bluez

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used throughout the daemon.
type Logger interface {
	Info(...interface{})
	Debug(...interface{})
	Error(...interface{})
	Warn(...interface{})

	Infof(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	Warnf(string, ...interface{})

	ChildLogger(tags map[string]interface{}) Logger
}

var (
	logger   Logger
	loggerMu sync.Mutex
)

// SetLogger replaces the daemon logger. Components fetch it once, when
// they are created.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// GetLogger returns the daemon logger, creating the default one on first use.
func GetLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		logger = newDefaultLogger()
	}
	return logger
}

// SetLogLevelMax enables debug output.
func SetLogLevelMax() {
	if err := setLevel(logrus.DebugLevel); err != nil {
		GetLogger().Error(err)
	}
}

// SetLogLevel sets the level by name: error, warn, info or debug.
func SetLogLevel(name string) error {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	return setLevel(lvl)
}

func setLevel(lvl logrus.Level) error {
	l, err := rootLogger()
	if err != nil {
		return err
	}
	l.SetLevel(lvl)
	return nil
}

// rootLogger returns the logrus logger behind the default Logger.
func rootLogger() (*logrus.Logger, error) {
	d, ok := GetLogger().(*defaultLogger)
	if !ok {
		return nil, errors.New("non-default logger, can't configure it")
	}
	return d.Entry.Logger, nil
}

type defaultLogger struct {
	*logrus.Entry
}

func newDefaultLogger() Logger {
	l := &logrus.Logger{
		Formatter: &logrus.TextFormatter{DisableTimestamp: true},
		Level:     logrus.InfoLevel,
		Out:       os.Stderr,
		Hooks:     make(logrus.LevelHooks),
	}
	return &defaultLogger{Entry: logrus.NewEntry(l)}
}

func (d *defaultLogger) ChildLogger(ff map[string]interface{}) Logger {
	return &defaultLogger{d.Entry.WithFields(ff)}
}
