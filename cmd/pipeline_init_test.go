package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/people-analytics/internal/config"
)

// slot puts ten observations in one category; descending6 scores slot 1 as
// 5 and slot 5 as 1.
func slot(i int) string {
	v := []int{0, 0, 0, 0, 0, 0}
	v[i] = 10
	return fmt.Sprintf("[%d, %d, %d, %d, %d, %d]", v[0], v[1], v[2], v[3], v[4], v[5])
}

func rating(stakeholder string, ind, grp int) string {
	return fmt.Sprintf(`{"avaliador": %q, "frequencia_colaborador": %s, "frequencia_grupo": %s}`, stakeholder, slot(ind), slot(grp))
}

func evalDoc(concept string, ratings ...string) string {
	rs := ratings[0]
	for _, r := range ratings[1:] {
		rs += ", " + r
	}
	return `{"success": true, "data": {"conceito_ciclo_filho_descricao": "` + concept + `",
  "direcionadores": [{"direcionador": "Entrega", "comportamentos": [{"comportamento": "Prazo",
  "avaliacoes_grupo": [` + rs + `]}]}]}}`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// buildTree lays out:
//
//	ana   2022  Prazo 3.00 vs 3.00
//	ana   2023  Prazo 4.00 vs 3.00, gestor 5.00, pares 2.00
//	bruno 2023  Prazo 5.00 vs 3.00
//	carla 2023  broken JSON
func buildTree(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "ana", "2022", "resultado.json"), evalDoc("Atende", rating("%todos", 3, 3)))
	writeFile(t, filepath.Join(base, "ana", "2023", "resultado.json"), evalDoc("Supera",
		rating("%todos", 2, 3), rating("gestor", 1, 3), rating("pares", 4, 3)))
	writeFile(t, filepath.Join(base, "bruno", "2023", "resultado.json"), evalDoc("Supera", rating("%todos", 1, 3)))
	writeFile(t, filepath.Join(base, "carla", "2023", "resultado.json"), `{"data":`)
	return base
}

func testConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	c, err := config.Load()
	require.NoError(t, err)
	c.Data.BasePath = base
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "test.db")
	c.Report.OutputDir = filepath.Join(t.TempDir(), "reports")
	require.NoError(t, c.Validate())
	return c
}

func testEnv(t *testing.T) *analysisEnv {
	t.Helper()
	env, err := initAnalysis(context.Background(), testConfig(t, buildTree(t)), false)
	require.NoError(t, err)
	return env
}

func TestInitAnalysis(t *testing.T) {
	env := testEnv(t)

	assert.Equal(t, "descending6", env.Scheme.Name)
	assert.Equal(t, 4, env.Load.Files)
	assert.Equal(t, 3, env.Load.Loaded)
	require.Len(t, env.Load.Errors, 1)
	assert.Contains(t, env.Load.Errors[0].Path, "carla")
	assert.Equal(t, []string{"ana", "bruno"}, env.Engine.Dataset().People())
	assert.Same(t, env.Engine, env.Analyzer.Engine())
}

func TestInitAnalysis_Errors(t *testing.T) {
	t.Run("missing base", func(t *testing.T) {
		c := testConfig(t, filepath.Join(t.TempDir(), "nope"))
		_, err := initAnalysis(context.Background(), c, false)
		require.Error(t, err)
	})
	t.Run("unknown scheme", func(t *testing.T) {
		c := testConfig(t, buildTree(t))
		c.Scoring.Scheme = "nope"
		_, err := initAnalysis(context.Background(), c, false)
		require.Error(t, err)
	})
}

func TestInitAnalysis_Progress(t *testing.T) {
	c := testConfig(t, buildTree(t))
	env, err := initAnalysis(context.Background(), c, true)
	require.NoError(t, err)
	assert.Equal(t, 3, env.Load.Loaded)
}
