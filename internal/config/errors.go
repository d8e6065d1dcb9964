package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrorType classifies configuration errors.
type ErrorType string

const (
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeValidation ErrorType = "validation"
)

// ConfigurationError reports a problem with a configuration, stack or
// environment file.
type ConfigurationError struct {
	FilePath  string
	ErrorType ErrorType
	Line      int
	Message   string
}

func (e *ConfigurationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s error in %s (line %d): %s", e.ErrorType, e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s error in %s: %s", e.ErrorType, e.FilePath, e.Message)
}

// IsConfigurationError reports whether err is a ConfigurationError of the
// given type. An empty type matches any.
func IsConfigurationError(err error, errorType ErrorType) bool {
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		return false
	}
	return errorType == "" || cfgErr.ErrorType == errorType
}

func newParseError(path string, err error) *ConfigurationError {
	cfgErr := &ConfigurationError{FilePath: path, ErrorType: ErrorTypeParse, Message: err.Error()}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		cfgErr.Message = typeErr.Errors[0]
	}
	return cfgErr
}
