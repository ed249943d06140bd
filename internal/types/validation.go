package types

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TaskValidationConfig contains configuration for task identity validation.
type TaskValidationConfig struct {
	ReservedPatterns  []string
	MaxNameLength     int
	AllowControlChars bool
	AllowWhitespace   bool
}

// DefaultTaskValidationConfig returns a TaskValidationConfig with default values.
func DefaultTaskValidationConfig() TaskValidationConfig {
	return TaskValidationConfig{
		MaxNameLength:     1024,
		AllowControlChars: false,
		AllowWhitespace:   true,
		ReservedPatterns:  nil,
	}
}

// TaskValidator validates task identities according to configured rules.
type TaskValidator struct {
	config TaskValidationConfig
}

// NewTaskValidator creates a new TaskValidator with the given configuration.
func NewTaskValidator(config TaskValidationConfig) *TaskValidator {
	return &TaskValidator{config: config}
}

// Validate checks if a task identity is valid according to the configured
// rules. An empty identity is always rejected: submitting work without a
// stable identity is a programmer error, not a recoverable condition.
func (v *TaskValidator) Validate(task string) error {
	if task == "" {
		return fmt.Errorf("%w: task identity cannot be empty", ErrInvalidTask)
	}

	if v.config.MaxNameLength > 0 && len(task) > v.config.MaxNameLength {
		return fmt.Errorf("%w: task identity length %d exceeds maximum %d bytes",
			ErrInvalidTask, len(task), v.config.MaxNameLength)
	}

	if !utf8.ValidString(task) {
		return fmt.Errorf("%w: task identity contains invalid UTF-8", ErrInvalidTask)
	}

	for i, r := range task {
		if r == utf8.RuneError {
			return fmt.Errorf("%w: task identity contains invalid UTF-8 at position %d", ErrInvalidTask, i)
		}

		// Control characters (ASCII 0-31 and 127)
		if !v.config.AllowControlChars && (r < 32 || r == 127) {
			return fmt.Errorf("%w: task identity contains control character at position %d", ErrInvalidTask, i)
		}

		if !v.config.AllowWhitespace && unicode.IsSpace(r) {
			return fmt.Errorf("%w: task identity contains whitespace at position %d", ErrInvalidTask, i)
		}
	}

	for _, pattern := range v.config.ReservedPatterns {
		if strings.Contains(task, pattern) {
			return fmt.Errorf("%w: task identity contains reserved pattern %q", ErrInvalidTask, pattern)
		}
	}

	return nil
}

// ValidateTask validates a task identity using the default validator.
func ValidateTask(task string) error {
	return DefaultTaskValidator.Validate(task)
}

// DefaultTaskValidator is the default task validator instance.
var DefaultTaskValidator = NewTaskValidator(DefaultTaskValidationConfig())
