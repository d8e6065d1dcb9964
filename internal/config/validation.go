package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateEntityName validates that a stack or component name can be used as
// a file name and a Kubernetes label value.
func ValidateEntityName(name, entityType string) error {
	if err := ValidateRequired("name", name, entityType); err != nil {
		return err
	}
	if len(name) > 63 {
		return ValidationError{Field: "name", Value: name, Message: "must not exceed 63 characters"}
	}
	if strings.ContainsAny(name, " /\\") {
		return ValidationError{Field: "name", Value: name, Message: "cannot contain spaces or path separators"}
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return ValidationError{Field: field, Value: port, Message: "must be between 1 and 65535"}
	}
	return nil
}

// validatePortMapping accepts host:container pairs as passed to docker -p.
func validatePortMapping(field, mapping string) error {
	host, container, ok := strings.Cut(mapping, ":")
	if !ok {
		return ValidationError{Field: field, Value: mapping, Message: "must be host:container"}
	}
	for _, p := range []string{host, container} {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return ValidationError{Field: field, Value: mapping, Message: "ports must be between 1 and 65535"}
		}
	}
	return nil
}

// Validate checks the configuration and returns every problem found.
func (c InfometisConfig) Validate() ValidationErrors {
	var errs ValidationErrors
	collect := func(err error) {
		if err == nil {
			return
		}
		if ve, ok := err.(ValidationError); ok {
			errs = append(errs, ve)
			return
		}
		errs.Add("", err.Error())
	}

	collect(ValidateEntityName(c.Cluster.Name, "cluster"))
	collect(ValidateRequired("cluster.image", c.Cluster.Image, "cluster"))
	collect(ValidateRequired("cluster.namespace", c.Cluster.Namespace, "cluster"))
	collect(ValidateOneOf("cluster.runtime", c.Cluster.Runtime, []string{RuntimeDocker, RuntimePodman}))
	collect(validatePort("cluster.apiPort", c.Cluster.APIPort))
	for i, mapping := range c.Cluster.Ports {
		collect(validatePortMapping(fmt.Sprintf("cluster.ports[%d]", i), mapping))
	}

	collect(ValidateOneOf("store.driver", c.Store.Driver, []string{StoreMemory, StoreSQLite}))
	if c.Store.Driver == StoreSQLite {
		collect(ValidateRequired("store.path", c.Store.Path, "sqlite store"))
	}

	collect(validatePort("server.port", c.Server.Port))
	if c.Server.Host != "" && c.Server.Host != "localhost" && net.ParseIP(c.Server.Host) == nil {
		errs.Add("server.host", "must be localhost or an IP address", c.Server.Host)
	}

	if c.Deploy.PollInterval < 0 {
		errs.Add("deploy.pollInterval", "must not be negative", c.Deploy.PollInterval)
	}
	for name, timeout := range c.Deploy.ReadinessTimeouts {
		if timeout < time.Second {
			errs.Add("deploy.readinessTimeouts."+name, "must be at least 1s", timeout)
		}
	}
	for name, d := range map[string]time.Duration{
		"cache.fetchTimeout":    c.Cache.FetchTimeout,
		"cache.transferTimeout": c.Cache.TransferTimeout,
		"cluster.readyTimeout":  c.Cluster.ReadyTimeout,
	} {
		if d < 0 {
			errs.Add(name, "must not be negative", d)
		}
	}
	return errs
}
