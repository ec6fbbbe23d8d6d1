// Package aggregate rolls weighted behavior scores up to drivers, person-years
// and yearly rankings over a loaded dataset.
package aggregate

import (
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/people-analytics/internal/config"
	"github.com/sells-group/people-analytics/internal/dataset"
	"github.com/sells-group/people-analytics/internal/model"
	"github.com/sells-group/people-analytics/internal/scoring"
)

// DefaultOverallKey is the stakeholder entry aggregating every evaluator.
const DefaultOverallKey = "%todos"

// ErrNotFound is returned for a person-year that has no record.
var ErrNotFound = eris.New("aggregate: person-year not found")

// Options tunes an Engine.
type Options struct {
	OverallKey         string
	SkipEmpty          bool
	PercentileBands    []config.Threshold
	StakeholderWeights map[string]float64
}

// OptionsFromConfig maps the scoring and analysis configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OverallKey:         cfg.Scoring.OverallStakeholderKey,
		SkipEmpty:          cfg.Scoring.SkipEmpty,
		PercentileBands:    cfg.Analysis.PercentileBands,
		StakeholderWeights: cfg.Scoring.StakeholderWeights,
	}
}

type personYear struct{ person, year string }

// Engine computes derived views over an immutable dataset and memoizes
// person-year summaries and yearly rankings. It is safe for concurrent use.
type Engine struct {
	ds     *dataset.Dataset
	scheme scoring.Scheme
	opts   Options

	mu        sync.Mutex
	summaries map[personYear]*Summary
	rankings  map[string][]Ranking
}

// New creates an Engine.
func New(ds *dataset.Dataset, scheme scoring.Scheme, opts Options) *Engine {
	if opts.OverallKey == "" {
		opts.OverallKey = DefaultOverallKey
	}
	if len(opts.PercentileBands) == 0 {
		opts.PercentileBands = config.DefaultPercentileBands()
	}
	weights := make(map[string]float64, len(opts.StakeholderWeights))
	for k, w := range opts.StakeholderWeights {
		weights[model.FoldKey(k)] = w
	}
	opts.StakeholderWeights = weights

	return &Engine{
		ds:        ds,
		scheme:    scheme,
		opts:      opts,
		summaries: make(map[personYear]*Summary),
		rankings:  make(map[string][]Ranking),
	}
}

func (e *Engine) Dataset() *dataset.Dataset { return e.ds }

func (e *Engine) Scheme() scoring.Scheme { return e.scheme }

func (e *Engine) OverallKey() string { return e.opts.OverallKey }

// StakeholderScore is one evaluator group's result for a behavior.
type StakeholderScore struct {
	Stakeholder string `json:"stakeholder"`
	scoring.Result
}

// BehaviorScore holds every stakeholder's result for one behavior.
type BehaviorScore struct {
	Driver       string             `json:"driver"`
	Behavior     string             `json:"behavior"`
	Overall      scoring.Result     `json:"overall"`
	HasOverall   bool               `json:"has_overall"`
	Stakeholders []StakeholderScore `json:"stakeholders"`
	Concepts     []model.Concept    `json:"concepts,omitempty"`
}

// Key identifies the behavior.
func (b BehaviorScore) Key() model.BehaviorKey {
	return model.BehaviorKey{Driver: b.Driver, Behavior: b.Behavior}
}

// Counts reports whether a behavior contributes to averages: it needs an
// overall rating, and data unless empty behaviors are counted as zero.
func (e *Engine) Counts(b BehaviorScore) bool {
	if !b.HasOverall {
		return false
	}
	return b.Overall.HasData || !e.opts.SkipEmpty
}

// BehaviorScores scores every behavior of an evaluation for every stakeholder.
func (e *Engine) BehaviorScores(ev *model.Evaluation) []BehaviorScore {
	overall := model.FoldKey(e.opts.OverallKey)
	out := make([]BehaviorScore, 0, ev.BehaviorCount())
	for _, d := range ev.Drivers {
		for _, b := range d.Behaviors {
			bs := BehaviorScore{Driver: d.Name, Behavior: b.Name, Concepts: b.Concepts}
			for _, r := range b.Ratings {
				res := e.scheme.Compare(r.Individual, r.Group)
				bs.Stakeholders = append(bs.Stakeholders, StakeholderScore{Stakeholder: r.Stakeholder, Result: res})
				if !bs.HasOverall && model.FoldKey(r.Stakeholder) == overall {
					bs.Overall = res
					bs.HasOverall = true
				}
			}
			out = append(out, bs)
		}
	}
	return out
}

// DriverAverage is the mean overall score of a driver's behaviors.
type DriverAverage struct {
	Driver       string  `json:"driver"`
	Average      Average `json:"average"`
	GroupAverage Average `json:"group_average"`
	Difference   Average `json:"difference"`
	Count        int     `json:"count"`
}

// DriverAverages averages the overall results per driver, skipping behaviors
// without an overall rating.
func (e *Engine) DriverAverages(ev *model.Evaluation) []DriverAverage {
	var order []string
	ind := make(map[string][]float64)
	grp := make(map[string][]float64)
	for _, bs := range e.BehaviorScores(ev) {
		if _, seen := ind[bs.Driver]; !seen {
			order = append(order, bs.Driver)
			ind[bs.Driver] = nil
		}
		if !e.Counts(bs) {
			continue
		}
		ind[bs.Driver] = append(ind[bs.Driver], bs.Overall.Individual)
		grp[bs.Driver] = append(grp[bs.Driver], bs.Overall.Group)
	}

	out := make([]DriverAverage, 0, len(order))
	for _, d := range order {
		avg, gavg := Mean(ind[d]), Mean(grp[d])
		out = append(out, DriverAverage{
			Driver:       d,
			Average:      avg,
			GroupAverage: gavg,
			Difference:   avg.Sub(gavg),
			Count:        len(ind[d]),
		})
	}
	return out
}

// Summary is the roll-up of one person-year.
type Summary struct {
	Person            string              `json:"person"`
	Year              string              `json:"year"`
	Concept           string              `json:"concept"`
	PeerGroup         string              `json:"peer_group,omitempty"`
	AverageScore      Average             `json:"average_score"`
	AverageGroupScore Average             `json:"average_group_score"`
	Difference        Average             `json:"difference"`
	Composite         Average             `json:"composite"`
	Count             int                 `json:"count"`
	EmptyCount        int                 `json:"empty_count"`
	CategoryDiffs     []scoring.ShareDiff `json:"category_diffs"`
}

// PersonYear returns the memoized summary of one person-year.
func (e *Engine) PersonYear(person, year string) (*Summary, error) {
	key := personYear{person, year}
	e.mu.Lock()
	s, ok := e.summaries[key]
	e.mu.Unlock()
	if ok {
		return s, nil
	}

	ev, ok := e.ds.Get(person, year)
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "%s/%s", person, year)
	}
	s = e.summarize(ev)

	e.mu.Lock()
	e.summaries[key] = s
	e.mu.Unlock()
	return s, nil
}

func (e *Engine) summarize(ev *model.Evaluation) *Summary {
	s := &Summary{Person: ev.Person, Year: ev.Year, Concept: ev.Concept, PeerGroup: ev.PeerGroup}

	var ind, grp []float64
	catSum := make([]scoring.ShareDiff, e.scheme.Len())
	for i, l := range e.scheme.Labels {
		catSum[i].Label = l
	}

	overall := model.FoldKey(e.opts.OverallKey)
	for _, d := range ev.Drivers {
		for _, b := range d.Behaviors {
			r, ok := b.Rating(overall)
			if !ok {
				continue
			}
			res := e.scheme.Compare(r.Individual, r.Group)
			if !res.HasData {
				s.EmptyCount++
				if e.opts.SkipEmpty {
					continue
				}
			}
			ind = append(ind, res.Individual)
			grp = append(grp, res.Group)
			for i, sd := range e.scheme.CompareDistribution(r.Individual, r.Group) {
				catSum[i].Individual += sd.Individual
				catSum[i].Group += sd.Group
				catSum[i].Difference += sd.Difference
			}
		}
	}

	s.Count = len(ind)
	s.AverageScore = Mean(ind)
	s.AverageGroupScore = Mean(grp)
	s.Difference = s.AverageScore.Sub(s.AverageGroupScore)
	s.Composite = e.Composite(ev)
	if s.Count > 0 {
		n := float64(s.Count)
		for i := range catSum {
			catSum[i].Individual /= n
			catSum[i].Group /= n
			catSum[i].Difference /= n
		}
		s.CategoryDiffs = catSum
	}
	return s
}

// Composite blends stakeholder scores with the configured weights:
// Σ w·score / Σ w over stakeholders with data and a positive weight, averaged
// across behaviors. It is undefined when no weights are configured.
func (e *Engine) Composite(ev *model.Evaluation) Average {
	if len(e.opts.StakeholderWeights) == 0 {
		return Average{}
	}
	var perBehavior []float64
	for _, d := range ev.Drivers {
		for _, b := range d.Behaviors {
			var sum, wsum float64
			for _, r := range b.Ratings {
				w := e.opts.StakeholderWeights[model.FoldKey(r.Stakeholder)]
				if w <= 0 {
					continue
				}
				sc := scoring.Score(r.Individual, e.scheme.Weights)
				if !sc.HasData {
					continue
				}
				sum += w * sc.Value
				wsum += w
			}
			if wsum > 0 {
				perBehavior = append(perBehavior, sum/wsum)
			}
		}
	}
	return Mean(perBehavior)
}

// Ranking is one person's position in a year.
type Ranking struct {
	Person            string  `json:"person"`
	Year              string  `json:"year"`
	Concept           string  `json:"concept"`
	AverageScore      Average `json:"average_score"`
	AverageGroupScore Average `json:"average_group_score"`
	Difference        Average `json:"difference"`
	Rank              int     `json:"rank"`
	Percentile        float64 `json:"percentile"`
	Band              string  `json:"band"`
}

// RankYear ranks every person with a record in year by average score,
// highest first, using standard competition ranking. Undefined averages get
// rank 0 and are listed last.
func (e *Engine) RankYear(year string) []Ranking {
	e.mu.Lock()
	cached, ok := e.rankings[year]
	e.mu.Unlock()
	if ok {
		return append([]Ranking(nil), cached...)
	}

	var out []Ranking
	for _, ev := range e.ds.ForYear(year) {
		s, err := e.PersonYear(ev.Person, ev.Year)
		if err != nil {
			continue
		}
		out = append(out, Ranking{
			Person:            s.Person,
			Year:              s.Year,
			Concept:           s.Concept,
			AverageScore:      s.AverageScore,
			AverageGroupScore: s.AverageGroupScore,
			Difference:        s.Difference,
		})
	}

	vals := make([]Average, len(out))
	for i, r := range out {
		vals[i] = r.AverageScore
	}
	ranks := CompetitionRank(vals)
	var ranked int
	for _, r := range ranks {
		if r > 0 {
			ranked++
		}
	}
	for i := range out {
		out[i].Rank = ranks[i]
		if ranks[i] > 0 {
			out[i].Percentile = 100 - float64(ranks[i])/float64(ranked)*100
			out[i].Band = config.Classify(e.opts.PercentileBands, out[i].Percentile)
		}
	}
	sortRankings(out)

	e.mu.Lock()
	e.rankings[year] = out
	e.mu.Unlock()
	return append([]Ranking(nil), out...)
}

// RankOf returns a person's ranking in a year.
func (e *Engine) RankOf(person, year string) (Ranking, bool) {
	for _, r := range e.RankYear(year) {
		if r.Person == person {
			return r, true
		}
	}
	return Ranking{}, false
}

func sortRankings(rs []Ranking) {
	sort.SliceStable(rs, func(i, j int) bool {
		ri, rj := rs[i].Rank, rs[j].Rank
		switch {
		case ri == 0 && rj == 0:
			return rs[i].Person < rs[j].Person
		case ri == 0:
			return false
		case rj == 0:
			return true
		case ri != rj:
			return ri < rj
		default:
			return rs[i].Person < rs[j].Person
		}
	})
}

// CompetitionRank ranks values highest first; ties share the lowest rank and
// the next rank skips ([5,5,3] ranks 1,1,3). Invalid values get rank 0.
func CompetitionRank(vals []Average) []int {
	ranks := make([]int, len(vals))
	for i, v := range vals {
		if !v.Valid {
			continue
		}
		rank := 1
		for j, o := range vals {
			if j != i && o.Valid && o.Value > v.Value {
				rank++
			}
		}
		ranks[i] = rank
	}
	return ranks
}

// BehaviorRanks ranks people per behavior in a year by their overall
// individual score. People without the behavior or its overall rating are
// absent from that behavior's map.
func (e *Engine) BehaviorRanks(year string) map[model.BehaviorKey]map[string]int {
	scores := make(map[model.BehaviorKey]map[string]float64)
	for _, ev := range e.ds.ForYear(year) {
		for _, bs := range e.BehaviorScores(ev) {
			if !e.Counts(bs) {
				continue
			}
			k := bs.Key()
			if scores[k] == nil {
				scores[k] = make(map[string]float64)
			}
			scores[k][ev.Person] = bs.Overall.Individual
		}
	}

	out := make(map[model.BehaviorKey]map[string]int, len(scores))
	for k, byPerson := range scores {
		people := make([]string, 0, len(byPerson))
		vals := make([]Average, 0, len(byPerson))
		for p, v := range byPerson {
			people = append(people, p)
			vals = append(vals, Average{Value: v, Valid: true})
		}
		ranks := CompetitionRank(vals)
		out[k] = make(map[string]int, len(people))
		for i, p := range people {
			out[k][p] = ranks[i]
		}
	}
	return out
}
