package formatting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"sigs.k8s.io/yaml"

	"infometis/internal/api"
	"infometis/internal/imagecache"
)

// encodingFormatter writes every value as a single JSON or YAML document.
type encodingFormatter struct {
	encode func(w io.Writer, v any) error
}

// encodeJSON leaves HTML characters unescaped so endpoint URLs with query
// strings stay readable.
func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// PrettyJSON renders v as indented JSON without a trailing newline. Values
// that cannot be encoded are printed with %v.
func PrettyJSON(v any) string {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// encodeYAML goes through the JSON tags so both formats share field names.
func encodeYAML(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func (f *encodingFormatter) Components(w io.Writer, components []ComponentInfo) error {
	return f.encode(w, map[string]any{"components": components, "count": len(components)})
}

func (f *encodingFormatter) Stacks(w io.Writer, stacks []*api.StackDeployment) error {
	if stacks == nil {
		stacks = []*api.StackDeployment{}
	}
	return f.encode(w, map[string]any{"stacks": stacks, "count": len(stacks)})
}

func (f *encodingFormatter) Stack(w io.Writer, stack *api.StackDeployment) error {
	return f.encode(w, stack)
}

func (f *encodingFormatter) StackStatus(w io.Writer, status *api.StackStatus) error {
	return f.encode(w, status)
}

func (f *encodingFormatter) ComponentStatus(w io.Writer, report *api.StatusReport) error {
	return f.encode(w, report)
}

func (f *encodingFormatter) Validation(w io.Writer, reports []api.ValidationReport) error {
	return f.encode(w, map[string]any{"components": reports, "valid": allValid(reports)})
}

func (f *encodingFormatter) Images(w io.Writer, entries []imagecache.Entry) error {
	if entries == nil {
		entries = []imagecache.Entry{}
	}
	return f.encode(w, map[string]any{"images": entries, "count": len(entries)})
}

func (f *encodingFormatter) Data(w io.Writer, data any) error {
	return f.encode(w, data)
}

func allValid(reports []api.ValidationReport) bool {
	for _, r := range reports {
		if !r.Valid {
			return false
		}
	}
	return true
}
