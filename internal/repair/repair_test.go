package repair

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(ind, grp string) string {
	return `{"success": true, "data": {"direcionadores": [{"direcionador": "X", "comportamentos": [{"comportamento": "B1",
  "avaliacoes_grupo": [{"avaliador": "%todos", "frequencia_colaborador": ` + ind + `, "frequencia_grupo": ` + grp + `}]}]}]}}`
}

// vectors decodes the two vectors of the single rating in doc.
func vectors(t *testing.T, raw []byte) ([]float64, []float64) {
	t.Helper()
	var d struct {
		Data struct {
			Direcionadores []struct {
				Comportamentos []struct {
					Avaliacoes []struct {
						Ind []float64 `json:"frequencia_colaborador"`
						Grp []float64 `json:"frequencia_grupo"`
					} `json:"avaliacoes_grupo"`
				} `json:"comportamentos"`
			} `json:"direcionadores"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &d))
	r := d.Data.Direcionadores[0].Comportamentos[0].Avaliacoes[0]
	return r.Ind, r.Grp
}

func TestBytes(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		opts      Options
		wantFixed int
		wantInd   []float64
		wantGrp   []float64
	}{
		{
			name:      "already normalized",
			in:        doc("[0, 0, 55, 36, 0, 9]", "[0, 1, 2, 3, 4, 5]"),
			opts:      Options{VectorLength: 6},
			wantFixed: 0,
			wantInd:   []float64{0, 0, 55, 36, 0, 9},
			wantGrp:   []float64{0, 1, 2, 3, 4, 5},
		},
		{
			name:      "right pad short vectors",
			in:        doc("[1, 2, 3, 4, 5]", "[1, 2]"),
			opts:      Options{VectorLength: 6},
			wantFixed: 2,
			wantInd:   []float64{1, 2, 3, 4, 5, 0},
			wantGrp:   []float64{1, 2, 0, 0, 0, 0},
		},
		{
			name:      "legacy prepend",
			in:        doc("[1, 2, 3, 4, 5]", "[0, 1, 2, 3, 4, 5]"),
			opts:      Options{VectorLength: 6, LegacyPrepend: true},
			wantFixed: 1,
			wantInd:   []float64{0, 1, 2, 3, 4, 5},
			wantGrp:   []float64{0, 1, 2, 3, 4, 5},
		},
		{
			name:      "truncate long vector",
			in:        doc("[1, 2, 3, 4, 5, 6, 7]", "[0, 0, 0, 0, 0, 0]"),
			opts:      Options{VectorLength: 6},
			wantFixed: 1,
			wantInd:   []float64{1, 2, 3, 4, 5, 6},
			wantGrp:   []float64{0, 0, 0, 0, 0, 0},
		},
		{
			name:      "null and non-list become zeros",
			in:        doc("null", `"abc"`),
			opts:      Options{VectorLength: 6},
			wantFixed: 2,
			wantInd:   []float64{0, 0, 0, 0, 0, 0},
			wantGrp:   []float64{0, 0, 0, 0, 0, 0},
		},
		{
			name:      "negative and string entries",
			in:        doc(`[-1, "2,5", 3, 0, 0, 0]`, "[0, 0, 0, 0, 0, 0]"),
			opts:      Options{VectorLength: 6},
			wantFixed: 1,
			wantInd:   []float64{0, 2.5, 3, 0, 0, 0},
			wantGrp:   []float64{0, 0, 0, 0, 0, 0},
		},
		{
			name:      "default length is six",
			in:        doc("[1]", "[0, 0, 0, 0, 0, 0]"),
			wantFixed: 1,
			wantInd:   []float64{1, 0, 0, 0, 0, 0},
			wantGrp:   []float64{0, 0, 0, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, fixed, err := Bytes([]byte(tt.in), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFixed, fixed)
			ind, grp := vectors(t, out)
			assert.Equal(t, tt.wantInd, ind)
			assert.Equal(t, tt.wantGrp, grp)
		})
	}
}

func TestBytes_KeepsOtherFields(t *testing.T) {
	in := `{"success": true, "data": {"conceito_ciclo_filho_descricao": "Supera <b>", "direcionadores": []}}`
	out, fixed, err := Bytes([]byte(in), Options{VectorLength: 6})
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)
	assert.Contains(t, string(out), `"Supera <b>"`)
	assert.Contains(t, string(out), "\n  \"data\"")
}

func TestBytes_InvalidJSON(t *testing.T) {
	_, _, err := Bytes([]byte(`{"data":`), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repair: decode")
}

func TestFile_BackupOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resultado.json")
	original := doc("[1, 2, 3, 4, 5]", "[1, 2, 3, 4, 5]")
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	rep, err := File(path, Options{VectorLength: 6})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Fixed)
	assert.True(t, rep.Written)
	assert.Equal(t, path+BackupSuffix, rep.Backup)

	backup, err := os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, original, string(backup))

	// A second repair with a different layout keeps the first backup.
	require.NoError(t, os.WriteFile(path, []byte(doc("[1]", "[1]")), 0o644))
	rep, err = File(path, Options{VectorLength: 6})
	require.NoError(t, err)
	assert.True(t, rep.Written)
	assert.Empty(t, rep.Backup)

	backup, err = os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, original, string(backup))
}

func TestFile_DryRunAndUnchanged(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.json")
	require.NoError(t, os.WriteFile(short, []byte(doc("[1]", "[1]")), 0o644))
	rep, err := File(short, Options{VectorLength: 6, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Fixed)
	assert.False(t, rep.Written)
	assert.NoFileExists(t, short+BackupSuffix)

	clean := filepath.Join(dir, "clean.json")
	content := doc("[0, 0, 0, 0, 0, 1]", "[0, 0, 0, 0, 0, 1]")
	require.NoError(t, os.WriteFile(clean, []byte(content), 0o644))
	rep, err = File(clean, Options{VectorLength: 6})
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Fixed)
	assert.False(t, rep.Written)
	got, err := os.ReadFile(clean)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestDir(t *testing.T) {
	base := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(base, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write("ana/2023/resultado.json", doc("[1, 2, 3, 4, 5]", "[0, 0, 0, 0, 0, 0]"))
	write("bruno/2023/resultado.json", doc("[0, 0, 0, 0, 0, 0]", "[0, 0, 0, 0, 0, 0]"))
	write("carla/2023/resultado.json", `{"data":`)

	rep, err := Dir(context.Background(), base, "", 2, Options{VectorLength: 6, LegacyPrepend: true})
	require.NoError(t, err)

	require.Len(t, rep.Files, 2)
	assert.Contains(t, rep.Files[0].Path, "ana")
	assert.Equal(t, 1, rep.Files[0].Fixed)
	assert.Equal(t, 0, rep.Files[1].Fixed)
	assert.Equal(t, 1, rep.Fixed())
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0].Path, "carla")

	raw, err := os.ReadFile(filepath.Join(base, "ana", "2023", "resultado.json"))
	require.NoError(t, err)
	ind, _ := vectors(t, raw)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, ind)
}
