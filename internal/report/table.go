// Package report renders analysis results as terminal tables, CSV, JSON,
// YAML, Excel workbooks, Markdown and HTML.
package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Formats accepted by Write.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Table is a rectangular text rendering of a result. Columns listed in
// Numeric are right-aligned.
type Table struct {
	Title   string
	Header  []string
	Rows    [][]string
	Numeric map[int]bool
}

// Write renders t (table, csv) or encodes v (json, yaml).
func Write(w io.Writer, format string, t Table, v any) error {
	switch strings.ToLower(format) {
	case "", FormatTable:
		return WriteTable(w, t)
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return eris.Wrap(enc.Encode(v), "report: encode json")
	case FormatYAML:
		doc, err := jsonDocument(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: close yaml encoder")
	default:
		return eris.Errorf("report: unsupported format %q", format)
	}
}

// jsonDocument round-trips v through encoding/json so YAML output uses the
// same field names and null handling as JSON output.
func jsonDocument(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "report: encode yaml")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "report: encode yaml")
	}
	return doc, nil
}

// WriteCSV writes the header and rows as CSV.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for _, r := range t.Rows {
		if err := cw.Write(r); err != nil {
			return eris.Wrap(err, "report: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush CSV")
}

// WriteTable writes an aligned plain-text table. Widths are measured in
// terminal cells so accented and wide characters line up.
func WriteTable(w io.Writer, t Table) error {
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, r := range t.Rows {
		for i := 0; i < len(r) && i < len(widths); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(r[i]))
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(TitleStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(headerStyle.Render(formatRow(t.Header, widths, t.Numeric)))
	b.WriteString("\n")
	total := 0
	for _, wd := range widths {
		total += wd
	}
	if len(widths) > 1 {
		total += 2 * (len(widths) - 1)
	}
	b.WriteString(strings.Repeat("-", total))
	b.WriteString("\n")
	for _, r := range t.Rows {
		b.WriteString(formatRow(r, widths, t.Numeric))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "report: write table")
}

func formatRow(cells []string, widths []int, numeric map[int]bool) string {
	parts := make([]string, len(widths))
	for i, wd := range widths {
		var c string
		if i < len(cells) {
			c = cells[i]
		}
		if numeric[i] {
			parts[i] = padLeft(c, wd)
		} else {
			parts[i] = padRight(c, wd)
		}
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func padLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return strings.Repeat(" ", width-sw) + s
}
