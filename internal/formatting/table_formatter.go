package formatting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"infometis/internal/api"
	"infometis/internal/imagecache"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

func (f *TableFormatter) Components(w io.Writer, components []ComponentInfo) error {
	if len(components) == 0 {
		return f.emptyMessage(w, "No components registered")
	}
	t := f.createTable(w, "NAME", "NAMESPACE", "DEPENDS ON", "IMAGES", "DESCRIPTION")
	for _, c := range components {
		t.AppendRow(table.Row{
			f.color(text.FgHiCyan, c.Name),
			c.Namespace,
			strings.Join(c.DependsOn, ", "),
			strings.Join(c.Images, "\n"),
			c.Description,
		})
	}
	t.Render()
	return f.total(w, len(components), "components")
}

func (f *TableFormatter) Stacks(w io.Writer, stacks []*api.StackDeployment) error {
	if len(stacks) == 0 {
		return f.emptyMessage(w, "No stacks deployed")
	}
	t := f.createTable(w, "ID", "NAME", "STATUS", "COMPONENTS", "DEPLOYED")
	for _, s := range stacks {
		names := make([]string, 0, len(s.Components))
		for _, c := range s.Components {
			names = append(names, c.Component)
		}
		t.AppendRow(table.Row{
			s.ID,
			s.Name,
			f.stackState(s.Status),
			strings.Join(names, " → "),
			formatTime(s.DeployedAt),
		})
	}
	t.Render()
	return f.total(w, len(stacks), "stacks")
}

func (f *TableFormatter) Stack(w io.Writer, stack *api.StackDeployment) error {
	fmt.Fprintf(w, "%s %s (%s) %s\n", f.color(text.FgHiBlue, "Stack:"), stack.Name, stack.ID, f.stackState(stack.Status))
	if stack.Error != "" {
		fmt.Fprintf(w, "%s %s\n", f.color(text.FgRed, "Error:"), stack.Error)
	}

	t := f.createTable(w, "#", "COMPONENT", "METHOD", "IMAGE", "STATUS", "WARNINGS")
	for i, c := range stack.Components {
		var warnings string
		if c.Result != nil {
			warnings = strings.Join(c.Result.Warnings, "\n")
		}
		if c.Error != "" {
			warnings = c.Error
		}
		t.AppendRow(table.Row{i + 1, c.Component, c.Method, c.Image, f.componentState(c.Status), warnings})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) StackStatus(w io.Writer, status *api.StackStatus) error {
	fmt.Fprintf(w, "%s %s (%s) %s\n", f.color(text.FgHiBlue, "Stack:"), status.Name, status.StackID, f.health(status.Status))

	t := f.createTable(w, "COMPONENT", "HEALTH", "PODS", "MESSAGE")
	for _, r := range status.Components {
		t.AppendRow(table.Row{r.Component, f.health(r.Health), podSummary(r.Pods), r.Message})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) ComponentStatus(w io.Writer, report *api.StatusReport) error {
	fmt.Fprintf(w, "%s %s %s\n", f.color(text.FgHiBlue, "Component:"), report.Component, f.health(report.Health))
	if report.Message != "" {
		fmt.Fprintln(w, report.Message)
	}
	if len(report.Pods) > 0 {
		t := f.createTable(w, "POD", "PHASE", "READY", "REASON")
		for _, p := range report.Pods {
			t.AppendRow(table.Row{p.Name, p.Phase, p.Ready, p.Reason})
		}
		t.Render()
	}
	if len(report.Details) > 0 {
		keys := make([]string, 0, len(report.Details))
		for k := range report.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t := f.createTable(w, "KEY", "VALUE")
		for _, k := range keys {
			t.AppendRow(table.Row{f.color(text.FgHiCyan, k), report.Details[k]})
		}
		t.Render()
	}
	return nil
}

func (f *TableFormatter) Validation(w io.Writer, reports []api.ValidationReport) error {
	t := f.createTable(w, "COMPONENT", "VALID", "ISSUES")
	for _, r := range reports {
		valid := f.color(text.FgGreen, "yes")
		if !r.Valid {
			valid = f.color(text.FgRed, "no")
		}
		t.AppendRow(table.Row{r.Component, valid, strings.Join(r.Issues, "\n")})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) Images(w io.Writer, entries []imagecache.Entry) error {
	if len(entries) == 0 {
		return f.emptyMessage(w, "No images cached")
	}
	t := f.createTable(w, "IMAGE", "SIZE", "DIGEST", "CACHED")
	for _, e := range entries {
		t.AppendRow(table.Row{e.Image, humanSize(e.Size), shortDigest(e.Digest), formatTime(e.CachedAt)})
	}
	t.Render()
	return f.total(w, len(entries), "images")
}

// Data formats generic data as key-value pairs or a list.
func (f *TableFormatter) Data(w io.Writer, data any) error {
	switch d := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t := f.createTable(w, "KEY", "VALUE")
		for _, k := range keys {
			valueStr := fmt.Sprintf("%v", d[k])
			if len(valueStr) > 100 {
				valueStr = valueStr[:97] + "..."
			}
			t.AppendRow(table.Row{f.color(text.FgHiCyan, k), valueStr})
		}
		t.Render()
	case []any:
		if len(d) == 0 {
			return f.emptyMessage(w, "No items found")
		}
		for i, item := range d {
			fmt.Fprintf(w, "  %d. %v\n", i+1, item)
		}
		return f.total(w, len(d), "items")
	case string:
		fmt.Fprintln(w, d)
	default:
		fmt.Fprintf(w, "%v\n", d)
	}
	return nil
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer, headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = f.color(text.FgHiCyan, h)
	}
	t.AppendHeader(row)
	return t
}

func (f *TableFormatter) color(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func (f *TableFormatter) emptyMessage(w io.Writer, message string) error {
	_, err := fmt.Fprintln(w, f.color(text.FgYellow, message))
	return err
}

func (f *TableFormatter) total(w io.Writer, n int, noun string) error {
	if f.options.Quiet {
		return nil
	}
	_, err := fmt.Fprintf(w, "\n%s %d %s\n", f.color(text.FgHiBlue, "Total:"), n, noun)
	return err
}

func (f *TableFormatter) stackState(s api.StackState) string {
	switch s {
	case api.StackDeployed:
		return f.color(text.FgGreen, string(s))
	case api.StackDegraded, api.StackDeploying:
		return f.color(text.FgYellow, string(s))
	case api.StackFailed:
		return f.color(text.FgRed, string(s))
	default:
		return f.color(text.FgHiBlack, string(s))
	}
}

func (f *TableFormatter) componentState(s api.ComponentStatus) string {
	switch s {
	case api.ComponentDeployed:
		return f.color(text.FgGreen, string(s))
	case api.ComponentFailed:
		return f.color(text.FgRed, string(s))
	default:
		return f.color(text.FgYellow, string(s))
	}
}

func (f *TableFormatter) health(h api.Health) string {
	switch h {
	case api.HealthHealthy:
		return f.color(text.FgGreen, string(h))
	case api.HealthFailed:
		return f.color(text.FgRed, string(h))
	default:
		return f.color(text.FgYellow, string(h))
	}
}

func podSummary(pods []api.PodState) string {
	if len(pods) == 0 {
		return "-"
	}
	ready := 0
	for _, p := range pods {
		if p.Ready {
			ready++
		}
	}
	return fmt.Sprintf("%d/%d", ready, len(pods))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func shortDigest(d string) string {
	if len(d) > 19 {
		return d[:19]
	}
	return d
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
