// Package repair rewrites frequency vectors in resultado.json files to the
// configured category count, keeping a one-time .bak copy of the original.
package repair

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/people-analytics/internal/dataset"
	"github.com/sells-group/people-analytics/internal/scoring"
)

// BackupSuffix is appended to a file name for its backup.
const BackupSuffix = ".bak"

var vectorFields = []string{"frequencia_colaborador", "frequencia_grupo"}

// Options configures a repair.
type Options struct {
	VectorLength  int
	// LegacyPrepend converts vectors one slot short (the 5-category layout)
	// by prepending an empty n/a slot instead of padding on the right.
	LegacyPrepend bool
	DryRun        bool
}

// FileReport describes the repair of one file.
type FileReport struct {
	Path    string `json:"path"`
	Fixed   int    `json:"fixed"`
	Written bool   `json:"written"`
	Backup  string `json:"backup,omitempty"`
}

// Report aggregates a directory repair.
type Report struct {
	Files  []FileReport        `json:"files"`
	Errors []dataset.FileError `json:"errors,omitempty"`
}

// Fixed is the number of vectors rewritten across all files.
func (r *Report) Fixed() int {
	var n int
	for _, f := range r.Files {
		n += f.Fixed
	}
	return n
}

// Bytes repairs a document and returns the re-encoded JSON and the number of
// vectors that changed.
func Bytes(raw []byte, opts Options) ([]byte, int, error) {
	n := opts.VectorLength
	if n == 0 {
		n = 6
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, 0, eris.Wrap(err, "repair: decode")
	}

	fixed := 0
	data, _ := doc["data"].(map[string]any)
	drivers, _ := data["direcionadores"].([]any)
	for _, d := range drivers {
		dm, _ := d.(map[string]any)
		behaviors, _ := dm["comportamentos"].([]any)
		for _, b := range behaviors {
			bm, _ := b.(map[string]any)
			ratings, _ := bm["avaliacoes_grupo"].([]any)
			for _, r := range ratings {
				rm, ok := r.(map[string]any)
				if !ok {
					continue
				}
				for _, field := range vectorFields {
					v, changed := fixVector(rm[field], n, opts.LegacyPrepend)
					if changed {
						rm[field] = v
						fixed++
					}
				}
			}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, 0, eris.Wrap(err, "repair: encode")
	}
	return buf.Bytes(), fixed, nil
}

func fixVector(raw any, n int, legacy bool) ([]float64, bool) {
	list, isList := raw.([]any)
	if legacy && isList && len(list) == n-1 {
		return scoring.Normalize(append([]any{0.0}, list...), n), true
	}
	out := scoring.Normalize(raw, n)
	if !isList || len(list) != n {
		return out, true
	}
	for i, v := range list {
		num, ok := v.(json.Number)
		if !ok {
			return out, true
		}
		f, err := num.Float64()
		if err != nil || f != out[i] {
			return out, true
		}
	}
	return out, false
}

// File repairs one file in place. The original is copied to path+".bak"
// unless a backup already exists. Nothing is written when no vector changed
// or in dry-run mode.
func File(path string, opts Options) (*FileReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "repair: read %s", path)
	}
	out, fixed, err := Bytes(raw, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "repair: %s", path)
	}

	rep := &FileReport{Path: path, Fixed: fixed}
	if fixed == 0 || opts.DryRun {
		return rep, nil
	}

	backup := path + BackupSuffix
	if _, err := os.Stat(backup); os.IsNotExist(err) {
		if err := os.WriteFile(backup, raw, 0o644); err != nil {
			return nil, eris.Wrapf(err, "repair: write backup %s", backup)
		}
		rep.Backup = backup
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, eris.Wrapf(err, "repair: write %s", path)
	}
	rep.Written = true
	return rep, nil
}

// Dir repairs every evaluation file under base. Per-file failures are
// collected and do not stop the others.
func Dir(ctx context.Context, base, fileName string, concurrency int, opts Options) (*Report, error) {
	entries, err := dataset.Scan(base, fileName)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	rep := &Report{}
	for _, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fr, err := File(e.Path, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Errors = append(rep.Errors, dataset.FileError{Path: e.Path, Err: err.Error()})
				zap.L().Warn("repair: file failed", zap.String("path", e.Path), zap.Error(err))
				return nil
			}
			rep.Files = append(rep.Files, *fr)
			if fr.Fixed > 0 {
				zap.L().Info("repair: fixed vectors",
					zap.String("path", e.Path),
					zap.Int("fixed", fr.Fixed),
					zap.Bool("dry_run", opts.DryRun),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "repair: dir")
	}

	sort.Slice(rep.Files, func(i, j int) bool { return rep.Files[i].Path < rep.Files[j].Path })
	sort.Slice(rep.Errors, func(i, j int) bool { return rep.Errors[i].Path < rep.Errors[j].Path })
	return rep, nil
}
