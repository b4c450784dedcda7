package common

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// ErrorType represents different categories of errors in the application
type ErrorType string

const (
	// ErrorTypeConfig represents command line and runtime settings errors
	ErrorTypeConfig ErrorType = "CONFIG"
	// ErrorTypeValidation represents configuration file schema violations
	ErrorTypeValidation ErrorType = "VALIDATION"
	// ErrorTypeStorage represents file system errors (file not found, permission denied, ...)
	ErrorTypeStorage ErrorType = "STORAGE"
	// ErrorTypeSubprocess represents a certificate tool run that exited non-zero
	ErrorTypeSubprocess ErrorType = "SUBPROCESS"
)

// DefaultExitCode is the process exit status used for every error that does
// not carry its own status.
const DefaultExitCode = 2

// ApplicationError is our custom error type that provides structured error information
type ApplicationError struct {
	Type        ErrorType
	Operation   string                 // What operation was being performed
	Resource    string                 // What resource was involved (e.g., file path, config key)
	Message     string                 // Human-readable error message
	Underlying  error                  // The original error that caused this
	ExitCode    int                    // Process exit status; 0 means DefaultExitCode
	Context     map[string]interface{} // Additional context for debugging
	Suggestions []string               // Helpful suggestions for resolving the error
}

// Error implements the error interface
func (e *ApplicationError) Error() string {
	var parts []string

	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("[%s] %s", e.Type, e.Operation))
	} else {
		parts = append(parts, string(e.Type))
	}

	if e.Resource != "" {
		parts = append(parts, fmt.Sprintf("resource=%s", e.Resource))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, ": ")

	if e.Underlying != nil {
		result += fmt.Sprintf(" (cause: %v)", e.Underlying)
	}

	return result
}

// Unwrap returns the underlying error for error chaining
func (e *ApplicationError) Unwrap() error {
	return e.Underlying
}

// IsType checks if the error is of a specific type
func (e *ApplicationError) IsType(errorType ErrorType) bool {
	return e.Type == errorType
}

// AddContext adds additional context to the error
func (e *ApplicationError) AddContext(key string, value interface{}) *ApplicationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// AddSuggestion adds a helpful suggestion for resolving the error
func (e *ApplicationError) AddSuggestion(suggestion string) *ApplicationError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithResource records the file path or config key the error refers to
func (e *ApplicationError) WithResource(resource string) *ApplicationError {
	e.Resource = resource
	return e
}

// WithExitCode overrides the exit status reported for this error
func (e *ApplicationError) WithExitCode(code int) *ApplicationError {
	e.ExitCode = code
	return e
}

// Diagnostic renders the single line printed by the command line shell.
// Storage errors name the underlying reason and the offending path.
func (e *ApplicationError) Diagnostic() string {
	msg := e.Message
	if e.IsType(ErrorTypeStorage) {
		if e.Underlying != nil {
			msg = fmt.Sprintf("%s: %s", msg, osReason(e.Underlying))
		}
		if e.Resource != "" {
			msg = fmt.Sprintf("%s %q", msg, e.Resource)
		}
	}
	return strings.ReplaceAll(msg, "\n", " ")
}

// GetDetailedMessage returns a detailed error message including context and suggestions
func (e *ApplicationError) GetDetailedMessage() string {
	message := e.Error()

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for key := range e.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var contextParts []string
		for _, key := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", key, e.Context[key]))
		}
		message += fmt.Sprintf("\nContext: %s", strings.Join(contextParts, ", "))
	}

	if len(e.Suggestions) > 0 {
		message += "\nSuggestions:"
		for _, suggestion := range e.Suggestions {
			message += fmt.Sprintf("\n  - %s", suggestion)
		}
	}

	return message
}

// NewApplicationError creates a new application error
func NewApplicationError(errorType ErrorType, operation, message string) *ApplicationError {
	return &ApplicationError{
		Type:      errorType,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application context
func WrapError(underlying error, errorType ErrorType, operation, message string) *ApplicationError {
	return &ApplicationError{
		Type:       errorType,
		Operation:  operation,
		Message:    message,
		Underlying: underlying,
		Context:    make(map[string]interface{}),
	}
}

// GetApplicationError extracts the ApplicationError from an error chain
func GetApplicationError(err error) *ApplicationError {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// ExitCode maps an error to the process exit status. Nil maps to 0, errors
// without an explicit status to DefaultExitCode.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if appErr := GetApplicationError(err); appErr != nil && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}
	return DefaultExitCode
}

// osReason strips the "op path:" prefix os.PathError puts in front of the errno text.
func osReason(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}
	return err.Error()
}

// NewConfigError creates a command line or settings error
func NewConfigError(operation, message string) *ApplicationError {
	return NewApplicationError(ErrorTypeConfig, operation, message).
		AddSuggestion("Use -h for usage information")
}

// NewValidationError creates a configuration schema error
func NewValidationError(operation, message string) *ApplicationError {
	return NewApplicationError(ErrorTypeValidation, operation, message).
		AddSuggestion("Use --print-config-template to see a valid configuration")
}

// NewStorageError wraps a file system error together with the offending path
func NewStorageError(underlying error, operation, path string) *ApplicationError {
	return WrapError(underlying, ErrorTypeStorage, operation, operation+" failed").
		WithResource(path).
		AddSuggestion("Check file permissions and that the parent directory exists")
}

// NewSubprocessError reports a certificate tool run that exited with a non-zero status
func NewSubprocessError(operation, command string, status int) *ApplicationError {
	return NewApplicationError(ErrorTypeSubprocess, operation, fmt.Sprintf("unexpected result from %s", command)).
		WithExitCode(status).
		AddContext("exit_status", status)
}
