package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/people-analytics/internal/analysis"
	"github.com/sells-group/people-analytics/internal/report"
)

// WorkbookName is the file name of the comparative workbook.
const WorkbookName = "comparativo.xlsx"

const (
	reportXLSX     = "xlsx"
	reportMarkdown = "md"
	reportHTML     = "html"
)

var reportCmd = &cobra.Command{
	Use:   "report [person...]",
	Short: "Render Excel, Markdown or HTML reports",
	Long: `Render reports into report.output_dir (or --dir).

  xlsx  one comparative workbook for everyone (comparativo.xlsx)
  md    one feedback report per person (<person>.md)
  html  the feedback report rendered to HTML (<person>.html)

Feedback reports cover the given people, or everyone when none are given.`,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.String("type", reportXLSX, "report type: xlsx, md or html")
	f.String("dir", "", "output directory (default from config)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kind, _ := cmd.Flags().GetString("type")
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.Report.OutputDir
	}

	env, err := initAnalysis(ctx, cfg, !noProgress)
	if err != nil {
		return err
	}

	people := args
	if len(people) == 0 {
		people = env.Engine.Dataset().People()
	}
	var progress func()
	if !noProgress && kind != reportXLSX {
		bar := newProgressBar(len(people), "rendering reports")
		progress = func() { _ = bar.Add(1) }
	}

	paths, err := writeReports(env.Analyzer, kind, dir, people, progress)
	if err != nil {
		return err
	}
	zap.L().Info("report: complete", zap.String("type", kind), zap.Int("files", len(paths)))
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	printLoadProblems(cmd.ErrOrStderr(), env.Load)
	return nil
}

// writeReports renders reports of the given kind into dir and returns the
// written paths.
func writeReports(a *analysis.Analyzer, kind, dir string, people []string, progress func()) ([]string, error) {
	switch kind {
	case reportXLSX, reportMarkdown, reportHTML:
	default:
		return nil, eris.Errorf("report: unsupported type %q", kind)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create dir %s", dir)
	}

	if kind == reportXLSX {
		path := filepath.Join(dir, WorkbookName)
		if err := report.SaveWorkbook(a, path); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	paths := make([]string, 0, len(people))
	for _, person := range people {
		md, err := report.Feedback(a, person)
		if err != nil {
			return nil, eris.Wrapf(err, "report: feedback %s", person)
		}
		out := []byte(md)
		if kind == reportHTML {
			if out, err = report.RenderHTML("Relatório de Feedback: "+person, out); err != nil {
				return nil, err
			}
		}
		path := filepath.Join(dir, reportFileName(person, kind))
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return nil, eris.Wrapf(err, "report: write %s", path)
		}
		paths = append(paths, path)
		if progress != nil {
			progress()
		}
	}
	return paths, nil
}

// reportFileName keeps person names usable as file names.
func reportFileName(person, ext string) string {
	name := filepath.Base(filepath.Clean("/" + person))
	if name == "/" || name == "." {
		name = "report"
	}
	return name + "." + ext
}
