package llm

import "log"

// Logger is the logging surface this package needs. The worker layer
// supplies its own implementation; a nil logger falls back to the
// process logger.
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type stdLogger struct{}

func (stdLogger) Info(msg string, args ...interface{})  { log.Printf("[INFO] "+msg, args...) }
func (stdLogger) Warn(msg string, args ...interface{})  { log.Printf("[WARN] "+msg, args...) }
func (stdLogger) Error(msg string, args ...interface{}) { log.Printf("[ERROR] "+msg, args...) }

func orStdLogger(logger Logger) Logger {
	if logger == nil {
		return stdLogger{}
	}
	return logger
}
