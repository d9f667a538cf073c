package logger

import (
	"errors"
	"quizdesk_backend/internal/config"

	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap/zapcore"
)

// rollbarCore 把 error 级别以上的日志转发到 Rollbar
type rollbarCore struct {
	fields []zapcore.Field
}

func NewRollbarCore(cfg config.RollbarConfig) zapcore.Core {
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetServerRoot("quizdesk_backend")
	return &rollbarCore{}
}

func (c *rollbarCore) Enabled(level zapcore.Level) bool {
	return level >= zapcore.ErrorLevel
}

func (c *rollbarCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &rollbarCore{fields: merged}
}

func (c *rollbarCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *rollbarCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	var cause error
	for _, f := range append(c.fields, fields...) {
		if f.Type == zapcore.ErrorType {
			if err, ok := f.Interface.(error); ok {
				cause = err
			}
		}
		f.AddTo(enc)
	}

	if cause == nil {
		cause = errors.New(entry.Message)
	}

	extras := enc.Fields
	extras["message"] = entry.Message
	extras["caller"] = entry.Caller.TrimmedPath()

	if entry.Level >= zapcore.DPanicLevel {
		rollbar.Critical(cause, extras)
	} else {
		rollbar.Error(cause, extras)
	}
	return nil
}

func (c *rollbarCore) Sync() error {
	rollbar.Wait()
	return nil
}
