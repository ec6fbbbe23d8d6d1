// Package dataset loads the evaluation tree <base>/<person>/<year>/resultado.json
// into an immutable in-memory arena.
package dataset

import (
	"sort"

	"github.com/sells-group/people-analytics/internal/model"
)

// Dataset indexes evaluations by person and year. It is not modified after
// construction and is safe for concurrent readers.
type Dataset struct {
	records map[string]map[string]*model.Evaluation
	people  []string
	years   []string
}

// New builds a Dataset. A later record for the same person and year
// replaces an earlier one.
func New(evs []*model.Evaluation) *Dataset {
	d := &Dataset{records: make(map[string]map[string]*model.Evaluation)}
	years := make(map[string]struct{})
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		byYear, ok := d.records[ev.Person]
		if !ok {
			byYear = make(map[string]*model.Evaluation)
			d.records[ev.Person] = byYear
			d.people = append(d.people, ev.Person)
		}
		byYear[ev.Year] = ev
		years[ev.Year] = struct{}{}
	}
	sort.Strings(d.people)
	for y := range years {
		d.years = append(d.years, y)
	}
	sort.Strings(d.years)
	return d
}

// People returns every person, sorted.
func (d *Dataset) People() []string {
	return append([]string(nil), d.people...)
}

// Years returns every year present for any person, sorted lexicographically.
func (d *Dataset) Years() []string {
	return append([]string(nil), d.years...)
}

// PersonYears returns the years a person has records for, sorted.
func (d *Dataset) PersonYears(person string) []string {
	byYear := d.records[person]
	out := make([]string, 0, len(byYear))
	for y := range byYear {
		out = append(out, y)
	}
	sort.Strings(out)
	return out
}

// Get returns one person-year evaluation.
func (d *Dataset) Get(person, year string) (*model.Evaluation, bool) {
	ev, ok := d.records[person][year]
	return ev, ok
}

// ForYear returns every evaluation of a year ordered by person.
func (d *Dataset) ForYear(year string) []*model.Evaluation {
	var out []*model.Evaluation
	for _, p := range d.people {
		if ev, ok := d.records[p][year]; ok {
			out = append(out, ev)
		}
	}
	return out
}

// Len is the number of person-year records.
func (d *Dataset) Len() int {
	var n int
	for _, byYear := range d.records {
		n += len(byYear)
	}
	return n
}
