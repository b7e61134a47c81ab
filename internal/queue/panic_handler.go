package queue

import (
	"runtime/debug"

	"go.uber.org/zap"
)

// PanicHandler is told about a panic recovered while handling a message.
type PanicHandler interface {
	HandlePanic(messageID string, panicValue any, stackTrace []byte)
}

// LogPanicHandler logs panics with their stack trace.
type LogPanicHandler struct {
	logger *zap.Logger
}

// NewLogPanicHandler creates a logging panic handler.
func NewLogPanicHandler(logger *zap.Logger) *LogPanicHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPanicHandler{logger: logger}
}

// HandlePanic implements PanicHandler.
func (h *LogPanicHandler) HandlePanic(messageID string, panicValue any, stackTrace []byte) {
	h.logger.Error("PANIC while handling message",
		zap.String("message_id", messageID),
		zap.Any("panic", panicValue),
		zap.ByteString("stack_trace", stackTrace),
	)
}

// PanicHandlerFunc adapts a function to PanicHandler.
type PanicHandlerFunc func(messageID string, panicValue any, stackTrace []byte)

// HandlePanic implements PanicHandler.
func (f PanicHandlerFunc) HandlePanic(messageID string, panicValue any, stackTrace []byte) {
	f(messageID, panicValue, stackTrace)
}

// handleRecovered reports a recovered panic value to handler.
func handleRecovered(messageID string, panicValue any, handler PanicHandler) {
	handler.HandlePanic(messageID, panicValue, debug.Stack())
}
