package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/dataset"
	"github.com/sells-group/people-analytics/internal/report"
	"github.com/sells-group/people-analytics/internal/resilience"
	"github.com/sells-group/people-analytics/internal/store"
)

func TestScorePersonYear(t *testing.T) {
	env := testEnv(t)

	out, err := scorePersonYear(env.Engine, "ana", "2023")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, out.Summary.AverageScore.Value, 1e-9)
	assert.InDelta(t, 3.0, out.Summary.AverageGroupScore.Value, 1e-9)
	assert.InDelta(t, 1.0, out.Summary.Difference.Value, 1e-9)
	require.NotNil(t, out.Ranking)
	assert.Equal(t, 2, out.Ranking.Rank)
	require.Len(t, out.Drivers, 1)
	assert.Equal(t, "Entrega", out.Drivers[0].Driver)
	require.Len(t, out.Behaviors, 1)
	assert.Len(t, out.Behaviors[0].Stakeholders, 3)
	assert.Len(t, out.Distribution, env.Scheme.Len())

	_, err = scorePersonYear(env.Engine, "ana", "2019")
	assert.ErrorIs(t, err, aggregate.ErrNotFound)
}

func TestCollectGaps(t *testing.T) {
	env := testEnv(t)

	tests := []struct {
		name    string
		args    []string
		top     int
		want    int
		wantErr bool
	}{
		{name: "everyone", want: 1},
		{name: "person", args: []string{"ana"}, want: 1},
		{name: "person-year without stakeholders", args: []string{"ana", "2022"}, want: 0},
		{name: "unknown person", args: []string{"zoe"}, wantErr: true},
		{name: "unknown year", args: []string{"ana", "2019"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gaps, err := collectGaps(env.Analyzer, tt.args, tt.top)
			if tt.wantErr {
				assert.ErrorIs(t, err, aggregate.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Len(t, gaps, tt.want)
		})
	}

	gaps, err := collectGaps(env.Analyzer, nil, 0)
	require.NoError(t, err)
	g := gaps[0]
	assert.Equal(t, "ana", g.Person)
	assert.Equal(t, "2023", g.Year)
	assert.Equal(t, "gestor", g.MaxStakeholder)
	assert.Equal(t, "pares", g.MinStakeholder)
	assert.InDelta(t, 3.0, g.Gap, 1e-9)
}

func TestCriteriaSets(t *testing.T) {
	env := testEnv(t)

	sets := criteriaSets(env.Analyzer, nil, false)
	require.Len(t, sets, 2)
	assert.True(t, sets["2022"].Has("Entrega", "Prazo"))
	assert.True(t, sets["2023"].Has("Entrega", "Prazo"))

	common := criteriaSets(env.Analyzer, []string{"2022", "2023"}, true)
	require.Contains(t, common, "common")
	assert.Equal(t, 1, common["common"].Len())
}

func TestWriteResults(t *testing.T) {
	tbl := report.Table{Header: []string{"person", "score"}, Rows: [][]string{{"ana", "4.00"}}}
	v := []map[string]any{{"person": "ana", "score": 4.0}}

	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{"table", func(t *testing.T, out string) {
			assert.Contains(t, out, "ana     4.00")
			// second table separated by a blank line
			assert.Contains(t, out, "\n\nperson")
		}},
		{"csv", func(t *testing.T, out string) {
			assert.Equal(t, "person,score\nana,4.00\n\nperson,score\nana,4.00\n", out)
		}},
		{"json", func(t *testing.T, out string) {
			var got []map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, "ana", got[0]["person"])
		}},
		{"yaml", func(t *testing.T, out string) {
			var got []map[string]any
			require.NoError(t, yaml.Unmarshal([]byte(out), &got))
			assert.Equal(t, "ana", got[0]["person"])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeResults(&buf, tt.format, v, tbl, tbl))
			tt.check(t, buf.String())
		})
	}

	err := writeResults(&bytes.Buffer{}, "xml", v, tbl)
	require.Error(t, err)
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) dataset.Entry {
		p := filepath.Join(dir, name)
		writeFile(t, p, content)
		return dataset.Entry{Person: name, Year: "2023", Path: p}
	}

	tests := []struct {
		name       string
		content    string
		wantStatus string
	}{
		{"valid", evalDoc("Atende", rating("%todos", 3, 3)), statusValid},
		{"unsuccessful", `{"success": false}`, statusSkipped},
		{"missing direcionadores", `{"data": {}}`, statusInvalid},
		{"broken", `{"data":`, statusInvalid},
		{"malformed frequency", `{"data": {"direcionadores": [{"direcionador": "X", "comportamentos": [{"comportamento": "B",
  "avaliacoes_grupo": [{"avaliador": "%todos", "frequencia_colaborador": [-1, "x"], "frequencia_grupo": null}]}]}]}}`, statusValid},
		{"missing stakeholder", `{"data": {"direcionadores": [{"direcionador": "X", "comportamentos": [{"comportamento": "B",
  "avaliacoes_grupo": [{"frequencia_colaborador": [1]}]}]}]}}`, statusInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validateFile(write(strings.ReplaceAll(tt.name, " ", "_")+".json", tt.content), 6)
			assert.Equal(t, tt.wantStatus, r.Status, r.Problems)
			if tt.wantStatus == statusInvalid {
				assert.NotEmpty(t, r.Problems)
			} else {
				assert.Empty(t, r.Problems)
			}
		})
	}

	r := validateFile(dataset.Entry{Path: filepath.Join(dir, "missing.json")}, 6)
	assert.Equal(t, statusInvalid, r.Status)
}

func TestIngestAll_SQLite(t *testing.T) {
	env := testEnv(t)
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	var (
		mu   sync.Mutex
		done int
	)
	results, err := ingestAll(ctx, st, env.Engine, 2, resilience.StorePolicy(3), func() {
		mu.Lock()
		done++
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 3, done)
	for _, r := range results {
		assert.Empty(t, r.Error)
		assert.NotEmpty(t, r.EvaluationID)
		assert.Equal(t, 1, r.Behaviors)
	}
	assert.Equal(t, "ana", results[0].Person)
	assert.Equal(t, "2022", results[0].Year)

	rows, err := st.ListEvaluations(ctx, store.Filter{Year: "2023"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ana", rows[0].Person)
	require.NotNil(t, rows[0].AverageScore)
	assert.InDelta(t, 4.0, *rows[0].AverageScore, 1e-9)

	raw, err := st.RawJSON(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Supera"`)

	// Re-ingesting keeps ids.
	again, err := ingestAll(ctx, st, env.Engine, 1, resilience.Policy{Attempts: 1}, nil)
	require.NoError(t, err)
	for i := range again {
		assert.Equal(t, results[i].EvaluationID, again[i].EvaluationID)
	}
}

func TestWriteReports(t *testing.T) {
	env := testEnv(t)
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := writeReports(env.Analyzer, reportXLSX, dir, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, WorkbookName)}, paths)
	assert.FileExists(t, paths[0])

	var rendered int
	paths, err = writeReports(env.Analyzer, reportMarkdown, dir, []string{"ana", "bruno"}, func() { rendered++ })
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, 2, rendered)
	md, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Relatório de Feedback: ana")

	paths, err = writeReports(env.Analyzer, reportHTML, dir, []string{"ana"}, nil)
	require.NoError(t, err)
	html, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(paths[0], "ana.html"))
	assert.Contains(t, string(html), "<h1>Relatório de Feedback: ana</h1>")

	_, err = writeReports(env.Analyzer, reportMarkdown, dir, []string{"zoe"}, nil)
	assert.ErrorIs(t, err, aggregate.ErrNotFound)

	_, err = writeReports(env.Analyzer, "pdf", dir, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestReportFileName(t *testing.T) {
	tests := []struct {
		person, want string
	}{
		{"ana", "ana.md"},
		{"Conceição Silva", "Conceição Silva.md"},
		{"../etc/passwd", "passwd.md"},
		{"", "report.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reportFileName(tt.person, "md"), tt.person)
	}
}

func TestCompareCommand_EndToEnd(t *testing.T) {
	base := buildTree(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"compare", "2023", "--data", base, "--no-progress", "--format", "json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	var rs []aggregate.Ranking
	require.NoError(t, json.Unmarshal(out.Bytes(), &rs))
	require.Len(t, rs, 2)
	assert.Equal(t, "bruno", rs[0].Person)
	assert.Equal(t, 1, rs[0].Rank)
	assert.Equal(t, "ana", rs[1].Person)
	assert.Equal(t, 2, rs[1].Rank)
}
