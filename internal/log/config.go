package log

// LoggerConfig configures the process-wide logger. The settings and profile
// files have no logging section; the daemon passes DefaultLoggerConfig.
type LoggerConfig struct {
	Level     string           `yaml:"level" mapstructure:"level"`
	Pattern   string           `yaml:"pattern,omitempty" mapstructure:"pattern"`
	Time      string           `yaml:"time,omitempty" mapstructure:"time"`
	Appenders []AppenderConfig `yaml:"appenders,omitempty" mapstructure:"appenders"`
	Formatter *FormatterConfig `yaml:"formatter,omitempty" mapstructure:"formatter"`
}

// AppenderConfig names one log output and its type-specific options.
type AppenderConfig struct {
	Type    string                 `yaml:"type" mapstructure:"type"` // "console" | "file"
	Options map[string]interface{} `yaml:"options,omitempty" mapstructure:"options"`
}

// FormatterConfig tunes the text formatter when Pattern is empty.
type FormatterConfig struct {
	EnableColors  bool `yaml:"enable_colors,omitempty" mapstructure:"enable_colors"`
	FullTimestamp bool `yaml:"full_timestamp,omitempty" mapstructure:"full_timestamp"`
}

// FileAppenderOptions configures a rotating file appender (see appender_file.go).
type FileAppenderOptions struct {
	Filename   string `yaml:"filename" mapstructure:"filename"`
	MaxSize    int    `yaml:"maxsize,omitempty" mapstructure:"max_size"`       // MB
	MaxAge     int    `yaml:"maxage,omitempty" mapstructure:"max_age"`         // days
	MaxBackups int    `yaml:"maxbackups,omitempty" mapstructure:"max_backups"` // count
	Compress   bool   `yaml:"compress,omitempty" mapstructure:"compress"`
}

// DefaultLoggerConfig returns the console logger configuration the daemon
// initializes logging with.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     "info",
		Pattern:   "%time [%level] %field %msg",
		Time:      "2006-01-02T15:04:05.000Z07:00",
		Appenders: []AppenderConfig{{Type: "console"}},
	}
}
