package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"sigs.k8s.io/yaml"

	"kubemcp/internal/bundle"
	"kubemcp/internal/runtime"
	"kubemcp/internal/secrets"
	kstrings "kubemcp/pkg/strings"
)

// Printer renders command results in the selected format.
type Printer struct {
	Format    OutputFormat
	NoHeaders bool
	Out       io.Writer
	// now is used for AGE columns; tests pin it.
	now func() time.Time
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer, format OutputFormat, noHeaders bool) *Printer {
	return &Printer{Format: format, NoHeaders: noHeaders, Out: out, now: time.Now}
}

// structured writes v as JSON or YAML and reports whether it did.
func (p *Printer) structured(v interface{}) (bool, error) {
	switch p.Format {
	case OutputFormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(p.Out, string(data))
		return true, err
	case OutputFormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("failed to encode YAML: %w", err)
		}
		_, err = p.Out.Write(data)
		return true, err
	}
	return false, nil
}

// newTable returns a table writer styled for the printer's format. Plain
// tables have no borders so they can be piped to grep and awk.
func (p *Printer) newTable(headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.Out)

	if p.Format == OutputFormatPretty {
		t.SetStyle(table.StyleRounded)
	} else {
		style := table.StyleDefault
		style.Options = table.Options{}
		style.Box.PaddingLeft = ""
		style.Box.PaddingRight = "   "
		style.Format.Header = text.FormatUpper
		t.SetStyle(style)
	}

	if !p.NoHeaders {
		row := make(table.Row, len(headers))
		for i, h := range headers {
			row[i] = h
		}
		t.AppendHeader(row)
	}
	return t
}

func (p *Printer) colorState(s runtime.State) string {
	if p.Format != OutputFormatPretty {
		return string(s)
	}
	switch s {
	case runtime.StateRunning:
		return text.FgGreen.Sprint(s)
	case runtime.StatePending, runtime.StateDiscoveringTools:
		return text.FgYellow.Sprint(s)
	case runtime.StateError:
		return text.FgRed.Sprint(s)
	default:
		return text.FgHiBlack.Sprint(s)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// PrintStatus renders a status summary, one row per server.
func (p *Printer) PrintStatus(summary runtime.StatusSummary) error {
	if ok, err := p.structured(summary); ok {
		return err
	}

	headers := []string{"Server", "State", "Deployment", "Message"}
	if p.Format == OutputFormatWide {
		headers = append(headers, "Namespace", "Error")
	}
	t := p.newTable(headers...)

	ids := make([]string, 0, len(summary.MCPServers))
	for id := range summary.MCPServers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		e := summary.MCPServers[id]
		var row table.Row
		if p.Format == OutputFormatWide {
			row = table.Row{id, p.colorState(e.State), e.DeploymentName, dash(kstrings.SingleLine(e.Message)),
				e.Namespace, dash(kstrings.SingleLine(e.Error))}
		} else {
			msg := e.Message
			if e.Error != "" {
				msg = e.Error
			}
			row = table.Row{id, p.colorState(e.State), e.DeploymentName, dash(kstrings.Truncate(msg, kstrings.MessageMaxLen))}
		}
		t.AppendRow(row)
	}
	t.Render()

	if !p.NoHeaders && summary.Status != runtime.SummaryReady {
		_, err := fmt.Fprintln(p.Out, FormatWarning("runtime is "+summary.Status))
		return err
	}
	return nil
}

// PrintRegcreds renders regcred secrets.
func (p *Printer) PrintRegcreds(list []secrets.RegcredInfo) error {
	if ok, err := p.structured(list); ok {
		return err
	}

	headers := []string{"Name", "Registry", "Team", "Referenced By", "Age"}
	t := p.newTable(headers...)
	for _, r := range list {
		t.AppendRow(table.Row{
			r.Name,
			dash(r.Registry),
			dash(r.TeamID),
			dash(strings.Join(r.ReferencedBy, ",")),
			p.age(r.CreatedAt),
		})
	}
	t.Render()
	return nil
}

// PrintBackfill renders the result of a team label backfill.
func (p *Printer) PrintBackfill(result secrets.BackfillResult) error {
	if ok, err := p.structured(result); ok {
		return err
	}

	for _, name := range result.Patched {
		fmt.Fprintln(p.Out, FormatSuccess("labelled "+name))
	}
	for _, name := range result.Failed {
		fmt.Fprintln(p.Out, FormatWarning("failed to label "+name))
	}
	_, err := fmt.Fprintf(p.Out, "%d patched, %d skipped, %d failed\n",
		len(result.Patched), result.Skipped, len(result.Failed))
	return err
}

// PrintBundles renders the bundle index.
func (p *Printer) PrintBundles(bundles []bundle.Bundle) error {
	if ok, err := p.structured(bundles); ok {
		return err
	}

	t := p.newTable("Server", "Deployment", "Service", "Secret", "Regcreds")
	for _, b := range bundles {
		t.AppendRow(table.Row{b.ServerID, b.DeploymentName, b.ServiceName, b.SecretName, dash(strings.Join(b.RegcredNames, ","))})
	}
	t.Render()
	return nil
}

// age formats the time since ts the way kubectl does.
func (p *Printer) age(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	d := p.now().Sub(ts)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
