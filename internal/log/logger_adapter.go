package log

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

type logrusAdapter struct {
	entry *logrus.Entry
}

func initByConfig(cfg *LoggerConfig) error {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	l := logrus.New()

	if cfg.Pattern != "" {
		l.SetFormatter(&formatter{pattern: cfg.Pattern, time: cfg.Time})
	} else {
		tf := &logrus.TextFormatter{}
		if cfg.Formatter != nil {
			tf.ForceColors = cfg.Formatter.EnableColors
			tf.FullTimestamp = cfg.Formatter.FullTimestamp
		}
		l.SetFormatter(tf)
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	mw := NewMultiWriter()
	appenders := cfg.Appenders
	if len(appenders) == 0 {
		appenders = []AppenderConfig{{Type: "console"}}
	}
	for _, a := range appenders {
		switch a.Type {
		case "", "console":
			mw.Add(os.Stdout)
		case "file":
			var fileOpts FileAppenderOptions
			if err := mapstructure.Decode(a.Options, &fileOpts); err != nil {
				return fmt.Errorf("log: invalid file appender options: %w", err)
			}
			if fileOpts.Filename == "" {
				return fmt.Errorf("log: file appender requires a filename")
			}
			mw.AddFileAppender(fileOpts)
		default:
			return fmt.Errorf("log: unknown appender type %q", a.Type)
		}
	}
	l.SetOutput(mw)

	logger = &logrusAdapter{entry: logrus.NewEntry(l)}
	return nil
}

func (l *logrusAdapter) Print(args ...interface{})                 { l.entry.Print(args...) }
func (l *logrusAdapter) Printf(format string, args ...interface{}) { l.entry.Printf(format, args...) }

func (l *logrusAdapter) Trace(args ...interface{})                 { l.entry.Trace(args...) }
func (l *logrusAdapter) Tracef(format string, args ...interface{}) { l.entry.Tracef(format, args...) }

func (l *logrusAdapter) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusAdapter) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

func (l *logrusAdapter) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *logrusAdapter) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *logrusAdapter) Warn(args ...interface{})                 { l.entry.Warn(args...) }
func (l *logrusAdapter) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

func (l *logrusAdapter) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusAdapter) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusAdapter) Fatal(args ...interface{})                 { l.entry.Fatal(args...) }
func (l *logrusAdapter) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *logrusAdapter) Panic(args ...interface{})                 { l.entry.Panic(args...) }
func (l *logrusAdapter) Panicf(format string, args ...interface{}) { l.entry.Panicf(format, args...) }

func (l *logrusAdapter) WithField(field string, value interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithField(field, value)}
}
func (l *logrusAdapter) WithFields(fields map[string]interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields)}
}
func (l *logrusAdapter) WithError(err error) Logger {
	return &logrusAdapter{entry: l.entry.WithError(err)}
}

func (l *logrusAdapter) IsTraceEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.TraceLevel)
}
func (l *logrusAdapter) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
func (l *logrusAdapter) IsInfoEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.InfoLevel)
}

func init() {
	// Ensure GetLogger() is always usable even if Init was never called
	// (e.g. in package tests that exercise code paths which log).
	logger = &logrusAdapter{entry: logrus.NewEntry(logrus.StandardLogger())}
}
