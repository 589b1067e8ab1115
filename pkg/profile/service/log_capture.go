package service

import (
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"go.uber.org/zap/zapcore"
)

// profileCore is a zapcore.Core that hands every enabled entry to record instead of writing it
// out. It is teed next to the host's own core for the lifetime of one request.
type profileCore struct {
	zapcore.LevelEnabler
	fields []zapcore.Field
	record func(model.LogRecord)
}

func newProfileCore(level zapcore.LevelEnabler, record func(model.LogRecord)) *profileCore {
	return &profileCore{
		LevelEnabler: level,
		record:       record,
	}
}

func (c *profileCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

func (c *profileCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *profileCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	encoder := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(encoder)
	}
	for _, field := range fields {
		field.AddTo(encoder)
	}

	record := model.LogRecord{
		Level:   entry.Level.String(),
		Logger:  entry.LoggerName,
		Message: entry.Message,
		Time:    entry.Time,
	}
	if entry.Caller.Defined {
		record.Caller = entry.Caller.TrimmedPath()
	}
	if len(encoder.Fields) > 0 {
		record.Fields = encoder.Fields
	}
	c.record(record)
	return nil
}

func (c *profileCore) Sync() error {
	return nil
}
