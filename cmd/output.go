package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/people-analytics/internal/report"
)

func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("format", report.FormatTable, "output format: table, csv, json or yaml")
	f.String("output", "", "output file path (default: stdout)")
}

// outputResults writes the tables (table, csv) or v (json, yaml) to stdout
// or the --output file.
func outputResults(cmd *cobra.Command, v any, tables ...report.Table) error {
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	var w io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "create output file %s", outputPath)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	return writeResults(w, format, v, tables...)
}

func writeResults(w io.Writer, format string, v any, tables ...report.Table) error {
	switch strings.ToLower(format) {
	case report.FormatJSON, report.FormatYAML:
		return report.Write(w, format, report.Table{}, v)
	}
	for i, t := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return eris.Wrap(err, "write output")
			}
		}
		if err := report.Write(w, format, t, v); err != nil {
			return err
		}
	}
	return nil
}
