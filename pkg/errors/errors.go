package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Run identifier / input errors (1xxx)
	ErrCodeInvalidFormat ErrorCode = "LKC1001"
	ErrCodeInvalidInput  ErrorCode = "LKC1002"
	ErrCodeRequiredField ErrorCode = "LKC1003"

	// Gateway errors (2xxx)
	ErrCodeGatewayUnreachable ErrorCode = "LKC2001"
	ErrCodeConnectionFailed   ErrorCode = "LKC2002"
	ErrCodeQueryTimeout       ErrorCode = "LKC2003"
	ErrCodeResultParsing      ErrorCode = "LKC2004"

	// Configuration errors (3xxx)
	ErrCodeConfigInvalid    ErrorCode = "LKC3001"
	ErrCodeConfigPermission ErrorCode = "LKC3002"

	// Lake layout errors (4xxx)
	ErrCodeLakeRoot      ErrorCode = "LKC4001"
	ErrCodeMissingData   ErrorCode = "LKC4002"
	ErrCodeFileNotFound  ErrorCode = "LKC4003"
	ErrCodeFileOperation ErrorCode = "LKC4004"
	ErrCodeDumpNotFound  ErrorCode = "LKC4005"

	// Catalog / registry errors (5xxx)
	ErrCodeDDLFailed    ErrorCode = "LKC5001"
	ErrCodeAppendFailed ErrorCode = "LKC5002"
	ErrCodeFailedQuery  ErrorCode = "LKC5003"

	// Sanity validation errors (6xxx)
	ErrCodeSanityViolation ErrorCode = "LKC6001"

	// System errors (9xxx)
	ErrCodeInternal           ErrorCode = "LKC9001"
	ErrCodeTimeout            ErrorCode = "LKC9002"
	ErrCodeResourceExhausted  ErrorCode = "LKC9003"
	ErrCodeServiceUnavailable ErrorCode = "LKC9004"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // Sweep aborted, requires attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but the sweep continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit some properties
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// InvalidRunID creates the malformed run-id error raised before any I/O
func InvalidRunID(runID string) *AppError {
	return New(ErrCodeInvalidFormat,
		fmt.Sprintf("invalid run_id format (expected YYYY-MM__YYYYMMDD_HHMMSS): %s", runID)).
		WithContext("run_id", runID)
}

// GatewayError creates a gateway execution error
func GatewayError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeFailedQuery, message).
		WithContext("query", truncateString(query, 200))

	if strings.Contains(message, "timeout") {
		err.Code = ErrCodeQueryTimeout
		_ = err.WithSuggestions(
			"Check that the query engine is up and reachable",
			"Increase the gateway timeout in the configuration",
		)
	}

	return err
}

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check that the query engine container is running",
			"Verify the gateway target in the configuration",
		)
}

// SanityError creates a fatal sanity-check violation
func SanityError(check string, message string) *AppError {
	return New(ErrCodeSanityViolation, message).
		WithContext("check", check).
		WithSeverity(SeverityCritical)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
