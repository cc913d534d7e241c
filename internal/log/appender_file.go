package log

import "gopkg.in/natefinch/lumberjack.v2"

// AddFileAppender attaches a rotating file writer to the multi-writer.
func (m *MultiWriter) AddFileAppender(options FileAppenderOptions) *MultiWriter {
	writer := &lumberjack.Logger{
		Filename:   options.Filename,
		MaxSize:    options.MaxSize,
		MaxBackups: options.MaxBackups,
		MaxAge:     options.MaxAge,
		Compress:   options.Compress,
	}
	m.writers = append(m.writers, writer)
	return m
}
