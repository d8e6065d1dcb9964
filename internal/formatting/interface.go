// Package formatting renders orchestrator data for the CLI and the console.
//
// Three output formats are supported: rich tables (go-pretty), JSON and
// YAML. Formatters write to an io.Writer so commands can be tested against
// a buffer.
package formatting

import (
	"fmt"
	"io"

	"infometis/internal/api"
	"infometis/internal/imagecache"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
}

// ComponentInfo describes a registered component.
type ComponentInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Namespace   string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	DependsOn   []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Images      []string `json:"images,omitempty" yaml:"images,omitempty"`
}

// Formatter renders orchestrator data.
type Formatter interface {
	Components(w io.Writer, components []ComponentInfo) error
	Stacks(w io.Writer, stacks []*api.StackDeployment) error
	Stack(w io.Writer, stack *api.StackDeployment) error
	StackStatus(w io.Writer, status *api.StackStatus) error
	ComponentStatus(w io.Writer, report *api.StatusReport) error
	Validation(w io.Writer, reports []api.ValidationReport) error
	Images(w io.Writer, entries []imagecache.Entry) error
	// Data renders anything else.
	Data(w io.Writer, data any) error
}

// New returns the formatter for options.Format. Unknown formats fall back
// to tables.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return &encodingFormatter{encode: encodeJSON}
	case FormatYAML:
		return &encodingFormatter{encode: encodeYAML}
	default:
		return &TableFormatter{options: options}
	}
}
