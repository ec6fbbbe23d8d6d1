package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/people-analytics/internal/model"
	"github.com/sells-group/people-analytics/internal/schema"
)

// DefaultFileName is the evaluation file expected in every year directory.
const DefaultFileName = "resultado.json"

// Entry locates one evaluation file.
type Entry struct {
	Person string `json:"person"`
	Year   string `json:"year"`
	Path   string `json:"path"`
}

// FileError records why one file could not be loaded.
type FileError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Options configures Load.
type Options struct {
	FileName     string
	VectorLength int
	StrictSchema bool
	Concurrency  int
	// Progress, when set, is called after each file with the number of
	// files finished so far.
	Progress func(done, total int)
}

// Result is the outcome of loading a tree.
type Result struct {
	Dataset *Dataset    `json:"-"`
	Files   int         `json:"files"`
	Loaded  int         `json:"loaded"`
	Skipped []string    `json:"skipped,omitempty"`
	Errors  []FileError `json:"errors,omitempty"`
}

// Scan lists <base>/<person>/<year>/<fileName> files. Hidden entries and
// non-directories at the person and year levels are ignored, as are year
// directories without the file.
func Scan(base, fileName string) ([]Entry, error) {
	if fileName == "" {
		fileName = DefaultFileName
	}
	people, err := os.ReadDir(base)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read base dir %s", base)
	}

	var entries []Entry
	for _, p := range people {
		if !p.IsDir() || hidden(p.Name()) {
			continue
		}
		personDir := filepath.Join(base, p.Name())
		years, err := os.ReadDir(personDir)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read person dir %s", personDir)
		}
		for _, y := range years {
			if !y.IsDir() || hidden(y.Name()) {
				continue
			}
			path := filepath.Join(personDir, y.Name(), fileName)
			if fi, err := os.Stat(path); err != nil || fi.IsDir() {
				continue
			}
			entries = append(entries, Entry{Person: p.Name(), Year: y.Name(), Path: path})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Person != entries[j].Person {
			return entries[i].Person < entries[j].Person
		}
		return entries[i].Year < entries[j].Year
	})
	return entries, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// Load scans base and parses every file concurrently. A failure on one file
// is recorded in Result.Errors and never aborts the others. Only a scan
// failure or context cancellation returns an error.
func Load(ctx context.Context, base string, opts Options) (*Result, error) {
	entries, err := Scan(base, opts.FileName)
	if err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	vectorLength := opts.VectorLength
	if vectorLength == 0 {
		vectorLength = 6
	}

	zap.L().Info("dataset: loading",
		zap.String("base", base),
		zap.Int("files", len(entries)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	res := &Result{Files: len(entries)}
	total := len(entries)
	var (
		mu   sync.Mutex
		evs  []*model.Evaluation
		done atomic.Int64
	)

	for _, e := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				n := int(done.Add(1))
				if opts.Progress != nil {
					opts.Progress(n, total)
				}
			}()

			if err := gctx.Err(); err != nil {
				return err
			}

			ev, err := LoadFile(e, vectorLength, opts.StrictSchema)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, model.ErrUnsuccessful):
				res.Skipped = append(res.Skipped, e.Path)
				zap.L().Debug("dataset: skipped unsuccessful record", zap.String("path", e.Path))
			case err != nil:
				res.Errors = append(res.Errors, FileError{Path: e.Path, Err: err.Error()})
				zap.L().Warn("dataset: load failed", zap.String("path", e.Path), zap.Error(err))
			default:
				evs = append(evs, ev)
			}
			return nil // don't abort the load on individual failure
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "dataset: load")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "dataset: load")
	}

	sort.Strings(res.Skipped)
	sort.Slice(res.Errors, func(i, j int) bool { return res.Errors[i].Path < res.Errors[j].Path })
	res.Dataset = New(evs)
	res.Loaded = res.Dataset.Len()

	zap.L().Info("dataset: load complete",
		zap.Int("loaded", res.Loaded),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("failed", len(res.Errors)),
	)
	return res, nil
}

// LoadFile reads, optionally schema-validates, and parses one file.
func LoadFile(e Entry, vectorLength int, strict bool) (*model.Evaluation, error) {
	raw, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", e.Path)
	}
	var head struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &head); err == nil && head.Success != nil && !*head.Success {
		return nil, model.ErrUnsuccessful
	}
	if strict {
		if violations := schema.Validate(raw); len(violations) > 0 {
			return nil, eris.Errorf("dataset: schema violations: %s", strings.Join(violations, "; "))
		}
	}
	ev, err := model.Parse(raw, vectorLength)
	if err != nil {
		return nil, err
	}
	ev.Person = e.Person
	ev.Year = e.Year
	ev.Source = e.Path
	return ev, nil
}
