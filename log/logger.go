package log

import "context"

// Logger is the structured logging interface broker components depend on.
// The context carries trace information that adapters may attach to each
// record.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{}) // underlying logger exits the process
	With(fields map[string]interface{}) Logger
}
