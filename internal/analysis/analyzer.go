// Package analysis derives trends, stakeholder gaps, common-behavior
// histories and highlights from aggregated scores.
package analysis

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/config"
	"github.com/sells-group/people-analytics/internal/model"
)

// InsufficientData labels a trend with fewer than two scored years.
const InsufficientData = "insufficient_data"

// Analyzer answers per-person questions over an aggregate Engine.
type Analyzer struct {
	engine *aggregate.Engine
	cfg    config.AnalysisConfig
}

// New creates an Analyzer; empty threshold tables fall back to the defaults.
func New(engine *aggregate.Engine, cfg config.AnalysisConfig) *Analyzer {
	if len(cfg.TrendThresholds) == 0 {
		cfg.TrendThresholds = config.DefaultTrendThresholds()
	}
	if len(cfg.PerformanceThresholds) == 0 {
		cfg.PerformanceThresholds = config.DefaultPerformanceThresholds()
	}
	if cfg.TopBehaviors < 1 {
		cfg.TopBehaviors = 3
	}
	return &Analyzer{engine: engine, cfg: cfg}
}

func (a *Analyzer) Engine() *aggregate.Engine { return a.engine }

// ClassifyTrend labels a score change.
func (a *Analyzer) ClassifyTrend(change float64) string {
	return config.Classify(a.cfg.TrendThresholds, change)
}

// ClassifyPerformance labels a score minus group score.
func (a *Analyzer) ClassifyPerformance(diff float64) string {
	return config.Classify(a.cfg.PerformanceThresholds, diff)
}

// YearPoint is one year of a person's trajectory.
type YearPoint struct {
	Year              string            `json:"year"`
	Concept           string            `json:"concept"`
	AverageScore      aggregate.Average `json:"average_score"`
	AverageGroupScore aggregate.Average `json:"average_group_score"`
	Difference        aggregate.Average `json:"difference"`
	Count             int               `json:"count"`
	Rank              int               `json:"rank"`
}

// DriverTrend is the change of one driver between the first and last year.
type DriverTrend struct {
	Driver         string            `json:"driver"`
	First          aggregate.Average `json:"first"`
	Last           aggregate.Average `json:"last"`
	Change         aggregate.Average `json:"change"`
	Classification string            `json:"classification"`
}

// Trend summarizes how a person's average score moved across years.
type Trend struct {
	Person         string            `json:"person"`
	Years          []YearPoint       `json:"years"`
	FirstYear      string            `json:"first_year,omitempty"`
	LastYear       string            `json:"last_year,omitempty"`
	Change         aggregate.Average `json:"change"`
	GapChange      aggregate.Average `json:"gap_change"`
	Classification string            `json:"classification"`
	Performance    string            `json:"performance,omitempty"`
	Drivers        []DriverTrend     `json:"drivers,omitempty"`
}

// Trend compares the first and last scored years (sorted lexicographically)
// of a person: change = score[last] - score[first].
func (a *Analyzer) Trend(person string) (*Trend, error) {
	ds := a.engine.Dataset()
	years := ds.PersonYears(person)
	if len(years) == 0 {
		return nil, eris.Wrapf(aggregate.ErrNotFound, "analysis: trend %s", person)
	}

	t := &Trend{Person: person, Classification: InsufficientData}
	var scored []YearPoint
	for _, y := range years {
		s, err := a.engine.PersonYear(person, y)
		if err != nil {
			return nil, err
		}
		p := YearPoint{
			Year:              y,
			Concept:           s.Concept,
			AverageScore:      s.AverageScore,
			AverageGroupScore: s.AverageGroupScore,
			Difference:        s.Difference,
			Count:             s.Count,
		}
		if r, ok := a.engine.RankOf(person, y); ok {
			p.Rank = r.Rank
		}
		t.Years = append(t.Years, p)
		if p.AverageScore.Valid {
			scored = append(scored, p)
		}
	}

	if n := len(scored); n > 0 && scored[n-1].Difference.Valid {
		t.Performance = a.ClassifyPerformance(scored[n-1].Difference.Value)
	}
	if len(scored) < 2 {
		return t, nil
	}

	first, last := scored[0], scored[len(scored)-1]
	t.FirstYear, t.LastYear = first.Year, last.Year
	t.Change = last.AverageScore.Sub(first.AverageScore)
	t.GapChange = last.Difference.Sub(first.Difference)
	t.Classification = a.ClassifyTrend(t.Change.Value)
	t.Drivers = a.driverTrends(person, first.Year, last.Year)
	return t, nil
}

func (a *Analyzer) driverTrends(person, firstYear, lastYear string) []DriverTrend {
	ds := a.engine.Dataset()
	firstEv, ok1 := ds.Get(person, firstYear)
	lastEv, ok2 := ds.Get(person, lastYear)
	if !ok1 || !ok2 {
		return nil
	}
	firstBy := make(map[string]aggregate.Average)
	for _, d := range a.engine.DriverAverages(firstEv) {
		firstBy[d.Driver] = d.Average
	}
	var out []DriverTrend
	for _, d := range a.engine.DriverAverages(lastEv) {
		f, ok := firstBy[d.Driver]
		if !ok {
			continue
		}
		dt := DriverTrend{Driver: d.Driver, First: f, Last: d.Average, Change: d.Average.Sub(f)}
		if dt.Change.Valid {
			dt.Classification = a.ClassifyTrend(dt.Change.Value)
		}
		out = append(out, dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Driver < out[j].Driver })
	return out
}

// TrackPoint is a person-year average restricted to a behavior set.
type TrackPoint struct {
	Year              string            `json:"year"`
	AverageScore      aggregate.Average `json:"average_score"`
	AverageGroupScore aggregate.Average `json:"average_group_score"`
	Difference        aggregate.Average `json:"difference"`
	Count             int               `json:"count"`
}

// PairwiseComparison compares two consecutive years on the behaviors they share.
type PairwiseComparison struct {
	FromYear string              `json:"from_year"`
	ToYear   string              `json:"to_year"`
	Common   map[string][]string `json:"common"`
	From     TrackPoint          `json:"from"`
	To       TrackPoint          `json:"to"`
	Change   aggregate.Average   `json:"change"`
}

// History is a person's trajectory on all behaviors and on the behaviors
// every year shares. When no behavior is shared by all years, consecutive
// pairs of years are compared instead.
type History struct {
	Person      string               `json:"person"`
	Years       []string             `json:"years"`
	All         []TrackPoint         `json:"all"`
	Common      map[string][]string  `json:"common"`
	CommonTrack []TrackPoint         `json:"common_track,omitempty"`
	Pairwise    []PairwiseComparison `json:"pairwise,omitempty"`
	Trend       *Trend               `json:"trend"`
}

// CommonBehaviors intersects the year criteria of the given years.
func (a *Analyzer) CommonBehaviors(years []string) BehaviorSet {
	sets := make([]BehaviorSet, 0, len(years))
	for _, y := range years {
		sets = append(sets, YearCriteria(a.engine.Dataset(), y))
	}
	return FindCommonBehaviors(sets)
}

// History builds both tracks for a person.
func (a *Analyzer) History(person string) (*History, error) {
	trend, err := a.Trend(person)
	if err != nil {
		return nil, err
	}
	ds := a.engine.Dataset()
	years := ds.PersonYears(person)
	h := &History{Person: person, Years: years, Trend: trend}

	for _, y := range years {
		ev, _ := ds.Get(person, y)
		h.All = append(h.All, a.trackPoint(ev, nil))
	}

	common := a.CommonBehaviors(years)
	h.Common = common.Sorted()
	if common.Len() > 0 {
		for _, y := range years {
			ev, _ := ds.Get(person, y)
			h.CommonTrack = append(h.CommonTrack, a.trackPoint(ev, common))
		}
		return h, nil
	}

	for i := 0; i+1 < len(years); i++ {
		from, to := years[i], years[i+1]
		pair := a.CommonBehaviors([]string{from, to})
		fromEv, _ := ds.Get(person, from)
		toEv, _ := ds.Get(person, to)
		pc := PairwiseComparison{
			FromYear: from,
			ToYear:   to,
			Common:   pair.Sorted(),
			From:     a.trackPoint(fromEv, pair),
			To:       a.trackPoint(toEv, pair),
		}
		pc.Change = pc.To.AverageScore.Sub(pc.From.AverageScore)
		h.Pairwise = append(h.Pairwise, pc)
	}
	return h, nil
}

// trackPoint averages the counted behaviors of ev, restricted to only when non-nil.
func (a *Analyzer) trackPoint(ev *model.Evaluation, only BehaviorSet) TrackPoint {
	var ind, grp []float64
	for _, bs := range a.engine.BehaviorScores(ev) {
		if only != nil && !only.Has(bs.Driver, bs.Behavior) {
			continue
		}
		if !a.engine.Counts(bs) {
			continue
		}
		ind = append(ind, bs.Overall.Individual)
		grp = append(grp, bs.Overall.Group)
	}
	avg, gavg := aggregate.Mean(ind), aggregate.Mean(grp)
	return TrackPoint{
		Year:              ev.Year,
		AverageScore:      avg,
		AverageGroupScore: gavg,
		Difference:        avg.Sub(gavg),
		Count:             len(ind),
	}
}

// Gaps returns the stakeholder gaps of one person-year.
func (a *Analyzer) Gaps(person, year string) ([]StakeholderGap, error) {
	ev, ok := a.engine.Dataset().Get(person, year)
	if !ok {
		return nil, eris.Wrapf(aggregate.ErrNotFound, "analysis: gaps %s/%s", person, year)
	}
	gaps := StakeholderGaps(a.engine.BehaviorScores(ev), a.engine.OverallKey())
	for i := range gaps {
		gaps[i].Person, gaps[i].Year = person, year
	}
	return gaps, nil
}

// BehaviorDiff is a behavior's overall score against the group.
type BehaviorDiff struct {
	Driver      string  `json:"driver"`
	Behavior    string  `json:"behavior"`
	Score       float64 `json:"score"`
	GroupScore  float64 `json:"group_score"`
	Difference  float64 `json:"difference"`
	Performance string  `json:"performance"`
}

// Highlights are the strongest and weakest behaviors relative to the group.
type Highlights struct {
	Strengths    []BehaviorDiff `json:"strengths"`
	Improvements []BehaviorDiff `json:"improvements"`
}

// Highlights returns the top and bottom behaviors of a person-year by
// difference against the group.
func (a *Analyzer) Highlights(person, year string) (*Highlights, error) {
	ev, ok := a.engine.Dataset().Get(person, year)
	if !ok {
		return nil, eris.Wrapf(aggregate.ErrNotFound, "analysis: highlights %s/%s", person, year)
	}
	var diffs []BehaviorDiff
	for _, bs := range a.engine.BehaviorScores(ev) {
		if !a.engine.Counts(bs) || !bs.Overall.GroupHasData {
			continue
		}
		diffs = append(diffs, BehaviorDiff{
			Driver:      bs.Driver,
			Behavior:    bs.Behavior,
			Score:       bs.Overall.Individual,
			GroupScore:  bs.Overall.Group,
			Difference:  bs.Overall.Difference,
			Performance: a.ClassifyPerformance(bs.Overall.Difference),
		})
	}
	sort.SliceStable(diffs, func(i, j int) bool {
		if diffs[i].Difference != diffs[j].Difference {
			return diffs[i].Difference > diffs[j].Difference
		}
		if diffs[i].Driver != diffs[j].Driver {
			return diffs[i].Driver < diffs[j].Driver
		}
		return diffs[i].Behavior < diffs[j].Behavior
	})

	n := min(a.cfg.TopBehaviors, len(diffs))
	h := &Highlights{Strengths: append([]BehaviorDiff(nil), diffs[:n]...)}
	for i := len(diffs) - 1; i >= len(diffs)-n; i-- {
		h.Improvements = append(h.Improvements, diffs[i])
	}
	return h, nil
}
