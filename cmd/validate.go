package main

import (
	"errors"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/people-analytics/internal/dataset"
	"github.com/sells-group/people-analytics/internal/model"
	"github.com/sells-group/people-analytics/internal/report"
	"github.com/sells-group/people-analytics/internal/schema"
	"github.com/sells-group/people-analytics/internal/scoring"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every evaluation file against the resultado.json schema",
	Long: `Validate every <base>/<person>/<year>/resultado.json against the embedded JSON
Schema and the parser's required fields. Files with success=false are
reported as skipped. Exits non-zero when any file is invalid.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	addOutputFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}

// fileValidation is the outcome of validating one file.
type fileValidation struct {
	Person   string   `json:"person"`
	Year     string   `json:"year"`
	Path     string   `json:"path"`
	Status   string   `json:"status"`
	Problems []string `json:"problems,omitempty"`
}

const (
	statusValid   = "valid"
	statusInvalid = "invalid"
	statusSkipped = "skipped"
)

func runValidate(cmd *cobra.Command, _ []string) error {
	scheme, err := scoring.Resolve(cfg.Scoring)
	if err != nil {
		return err
	}
	entries, err := dataset.Scan(cfg.Data.BasePath, cfg.Data.FileName)
	if err != nil {
		return err
	}

	results := make([]fileValidation, 0, len(entries))
	var invalid int
	for _, e := range entries {
		r := validateFile(e, scheme.Len())
		if r.Status == statusInvalid {
			invalid++
		}
		results = append(results, r)
	}
	zap.L().Info("validate: complete", zap.Int("files", len(results)), zap.Int("invalid", invalid))

	if err := outputResults(cmd, results, validationTable(results)); err != nil {
		return err
	}
	if invalid > 0 {
		return eris.Errorf("validate: %d of %d files invalid", invalid, len(results))
	}
	return nil
}

func validateFile(e dataset.Entry, vectorLength int) fileValidation {
	r := fileValidation{Person: e.Person, Year: e.Year, Path: e.Path, Status: statusValid}
	raw, err := os.ReadFile(e.Path)
	if err != nil {
		r.Status, r.Problems = statusInvalid, []string{err.Error()}
		return r
	}
	r.Problems = schema.Validate(raw)
	if _, err := model.Parse(raw, vectorLength); err != nil {
		if errors.Is(err, model.ErrUnsuccessful) {
			r.Status, r.Problems = statusSkipped, nil
			return r
		}
		r.Problems = append(r.Problems, err.Error())
	}
	if len(r.Problems) > 0 {
		r.Status = statusInvalid
	}
	return r
}

func validationTable(rs []fileValidation) report.Table {
	t := report.Table{Header: []string{"person", "year", "status", "problems"}}
	for _, r := range rs {
		t.Rows = append(t.Rows, []string{r.Person, r.Year, r.Status, strings.Join(r.Problems, "; ")})
	}
	return t
}
