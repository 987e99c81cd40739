package apperror

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Severity ranks how urgently an error needs operator attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError implements the error interface and provides structured error handling
type AppError struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Context   string    `json:"context,omitempty"`
	TraceID   string    `json:"traceId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	cause     error     // unexported to maintain encapsulation
	stack     []uintptr // stack trace
}

// Error implements the error interface
func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Code, e.Message))
	if e.Context != "" {
		sb.WriteString(fmt.Sprintf(" (context: %s)", e.Context))
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is implements errors.Is interface for error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithTraceID tags the error with the trace it was raised in.
func (e *AppError) WithTraceID(traceID string) *AppError {
	e.TraceID = traceID
	return e
}

// logArgs flattens the error into slog key/value pairs.
func (e *AppError) logArgs() []any {
	args := []any{
		"code", string(e.Code),
		"message", e.Message,
		"severity", string(e.Severity),
	}

	if e.Context != "" {
		args = append(args, "context", e.Context)
	}

	if e.TraceID != "" {
		args = append(args, "traceId", e.TraceID)
	}

	if e.cause != nil {
		args = append(args, "cause", e.cause.Error())
	}

	if e.Severity == SeverityCritical && len(e.stack) > 0 {
		args = append(args, "stack", e.formatStack())
	}

	return args
}

// formatStack formats the stack trace
func (e *AppError) formatStack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			sb.WriteString(fmt.Sprintf("\n\t%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// captureStack captures the current stack trace
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// New creates a new AppError with the given code and options
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:      code,
		Message:   messages[code],
		Severity:  getDefaultSeverity(code),
		Timestamp: time.Now(),
		stack:     captureStack(),
	}

	// Apply options
	for _, opt := range opts {
		opt(err)
	}

	// If message wasn't set by options and isn't in messages map, use code as message
	if err.Message == "" {
		err.Message = string(code)
	}

	return err
}

// Option is a functional option for AppError
type Option func(*AppError)

// WithContext adds context information
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithCause wraps an underlying error
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// GetCode extracts the error code from an error
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// IsCritical reports whether err needs immediate operator attention.
func IsCritical(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// LogArgs returns structured log arguments for any error.
func LogArgs(err error) []any {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.logArgs()
	}
	return []any{"error", err.Error()}
}

// getDefaultSeverity determines the severity based on the error code
func getDefaultSeverity(code Code) Severity {
	switch {
	case code == CodeDanglingExposure, code == CodeSubscriptionRejected, code == CodeFeedTerminated:
		return SeverityCritical

	case code == CodeTradeLegFailed, code == CodeConfigurationError:
		return SeverityHigh

	case strings.Contains(string(code), "INVALID"),
		strings.Contains(string(code), "MALFORMED"):
		return SeverityLow

	default:
		return SeverityMedium
	}
}
