package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
	"github.com/Sumatoshi-tech/hoshi/pkg/kind"
)

// Output formats of the parse command.
const (
	formatTree = "tree"
	formatJSON = "json"
	formatNone = "none"
)

// fileReport is the outcome of parsing one input.
type fileReport struct {
	File      string    `json:"file"`
	Language  string    `json:"language,omitempty"`
	Size      int       `json:"size"`
	Rejected  bool      `json:"rejected"`
	Errors    int       `json:"errors"`
	Warnings  int       `json:"warnings"`
	Nodes     int       `json:"nodes"`
	Tree      *ast.Node `json:"tree,omitempty"`
	Annotated string    `json:"-"`
}

func (rep *fileReport) size() string {
	return humanize.Bytes(uint64(rep.Size)) //nolint:gosec // sizes are non-negative.
}

func newLightTable(out io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

func severityLabel(rec diag.Record) string {
	switch {
	case rec.IsError():
		return color.New(color.FgRed, color.Bold).Sprint(rec.Prefix())
	case rec.Severity > 0:
		return color.New(color.FgYellow).Sprint(rec.Prefix())
	default:
		return color.New(color.FgCyan).Sprint(rec.Prefix())
	}
}

func position(rec diag.Record) string {
	if rec.Line < 0 {
		return "-"
	}

	return strconv.Itoa(rec.Line) + ":" + strconv.Itoa(rec.Column)
}

// renderDiagnostics writes grammar diagnostics as a table.
func renderDiagnostics(out io.Writer, label string, records []diag.Record) {
	fmt.Fprintf(out, "%s:\n", sanitizeForTerminal(label))

	tbl := newLightTable(out)
	tbl.AppendHeader(table.Row{"Severity", "Position", "Category", "Message"})

	for _, rec := range records {
		tbl.AppendRow(table.Row{severityLabel(rec), position(rec), rec.Tag, rec.Long})
	}

	errs, warns := diag.Counts(records)
	tbl.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d errors, %d warnings", errs, warns)})
	tbl.Render()
}

// renderKinds writes the kind table ordered by code.
func renderKinds(out io.Writer, kinds *kind.Table) {
	tbl := newLightTable(out)
	tbl.AppendHeader(table.Row{"Code", "Kind"})

	for _, name := range kinds.Names() {
		tbl.AppendRow(table.Row{kinds.Code(name), name})
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d kinds", kinds.Len())})
	tbl.Render()
}

// renderReports writes accepted inputs to out in format and the annotated
// listing of every input with diagnostics to errOut.
func renderReports(out, errOut io.Writer, format string, reports []fileReport) error {
	for idx := range reports {
		rep := &reports[idx]
		if rep.Annotated != "" {
			renderAnnotated(errOut, rep)
		}
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		err := enc.Encode(reports)
		if err != nil {
			return fmt.Errorf("encode reports: %w", err)
		}
	case formatTree:
		for idx := range reports {
			rep := &reports[idx]
			if rep.Rejected {
				continue
			}

			fmt.Fprintf(out, "== %s (%d nodes, %s)\n", sanitizeForTerminal(rep.File), rep.Nodes, rep.size())

			err := ast.Dump(out, rep.Tree)
			if err != nil {
				return fmt.Errorf("write tree: %w", err)
			}
		}
	default:
		for idx := range reports {
			renderSummary(out, &reports[idx])
		}
	}

	return nil
}

func renderSummary(out io.Writer, rep *fileReport) {
	name := sanitizeForTerminal(rep.File)

	switch {
	case rep.Rejected:
		color.New(color.FgRed).Fprintf(out, "%s: rejected (%d errors, %d warnings)\n", name, rep.Errors, rep.Warnings)
	case rep.Warnings > 0:
		color.New(color.FgYellow).Fprintf(out, "%s: ok (%d nodes, %d warnings)\n", name, rep.Nodes, rep.Warnings)
	default:
		color.New(color.FgGreen).Fprintf(out, "%s: ok (%d nodes)\n", name, rep.Nodes)
	}
}

func renderAnnotated(out io.Writer, rep *fileReport) {
	header := color.New(color.FgYellow)
	if rep.Rejected {
		header = color.New(color.FgRed, color.Bold)
	}

	header.Fprintf(out, "%s (%s): %d errors, %d warnings\n", sanitizeForTerminal(rep.File), rep.size(), rep.Errors, rep.Warnings)
	fmt.Fprint(out, rep.Annotated)
}
