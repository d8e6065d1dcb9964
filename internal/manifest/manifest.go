package manifest

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	sigsyaml "sigs.k8s.io/yaml"

	"infometis/internal/api"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const suffix = ".yaml.tmpl"

// RoutesTemplate renders the stack level ingress routes.
const RoutesTemplate = "routes"

// Data is what a manifest template sees.
type Data struct {
	// Name is the component name, used for labels.
	Name      string
	Namespace string
	// Images maps the logical image key (e.g. "kafka-ui") to a reference.
	Images map[string]string
	// Values holds the component configuration after defaults.
	Values map[string]any
	Routes []api.Route
}

// Renderer renders the embedded component manifests.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	var tmpl *template.Template
	funcs := sprig.TxtFuncMap()
	// include mirrors the helm helper so shared snippets can be piped
	// through nindent.
	funcs["include"] = func(name string, data any) (string, error) {
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	tmpl, err := template.New("manifests").Funcs(funcs).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse manifest templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Names lists the available manifests, sorted.
func (r *Renderer) Names() []string {
	var names []string
	for _, t := range r.tmpl.Templates() {
		if strings.HasSuffix(t.Name(), suffix) {
			names = append(names, strings.TrimSuffix(t.Name(), suffix))
		}
	}
	sort.Strings(names)
	return names
}

// Has reports whether a manifest exists.
func (r *Renderer) Has(name string) bool {
	return r.tmpl.Lookup(name+suffix) != nil
}

// Render executes the named manifest.
func (r *Renderer) Render(name string, data Data) ([]byte, error) {
	t := r.tmpl.Lookup(name + suffix)
	if t == nil {
		return nil, fmt.Errorf("manifest %s not found", name)
	}
	if data.Values == nil {
		data.Values = map[string]any{}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render manifest %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Objects renders the named manifest and decodes it.
func (r *Renderer) Objects(name string, data Data) ([]*unstructured.Unstructured, error) {
	raw, err := r.Render(name, data)
	if err != nil {
		return nil, err
	}
	objs, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", name, err)
	}
	return objs, nil
}

// Decode splits a multi-document YAML stream into objects, skipping empty
// documents.
func Decode(data []byte) ([]*unstructured.Unstructured, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))

	var objs []*unstructured.Unstructured
	for i := 0; ; i++ {
		doc, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}

		jsonData, err := sigsyaml.YAMLToJSON(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if bytes.Equal(bytes.TrimSpace(jsonData), []byte("null")) {
			continue
		}

		obj := &unstructured.Unstructured{}
		if err := obj.UnmarshalJSON(jsonData); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		objs = append(objs, obj)
	}
	return objs, nil
}
