package report

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/analysis"
	"github.com/sells-group/people-analytics/internal/scoring"
)

// Decimals is the precision of scores in text output.
const Decimals = 2

func num(v float64) string { return strconv.FormatFloat(v, 'f', Decimals, 64) }

func rank(r int) string {
	if r == 0 {
		return ""
	}
	return strconv.Itoa(r)
}

// SummaryTable lists the headline numbers of one person-year.
func SummaryTable(s *aggregate.Summary) Table {
	rows := [][]string{
		{"concept", s.Concept},
		{"average_score", s.AverageScore.Format(Decimals)},
		{"average_group_score", s.AverageGroupScore.Format(Decimals)},
		{"difference", s.Difference.Format(Decimals)},
		{"behaviors", strconv.Itoa(s.Count)},
		{"empty_behaviors", strconv.Itoa(s.EmptyCount)},
	}
	if s.Composite.Valid {
		rows = append(rows, []string{"composite", s.Composite.Format(Decimals)})
	}
	if s.PeerGroup != "" {
		rows = append(rows, []string{"peer_group", s.PeerGroup})
	}
	return Table{
		Title:  fmt.Sprintf("%s %s", s.Person, s.Year),
		Header: []string{"metric", "value"},
		Rows:   rows,
	}
}

// BehaviorTable lists every stakeholder result of every behavior.
func BehaviorTable(scores []aggregate.BehaviorScore) Table {
	t := Table{
		Header:  []string{"driver", "behavior", "stakeholder", "score", "group", "diff", "has_data"},
		Numeric: map[int]bool{3: true, 4: true, 5: true},
	}
	for _, bs := range scores {
		for _, s := range bs.Stakeholders {
			t.Rows = append(t.Rows, []string{
				bs.Driver, bs.Behavior, s.Stakeholder,
				num(s.Individual), num(s.Group), num(s.Difference),
				strconv.FormatBool(s.HasData),
			})
		}
	}
	return t
}

// DriverTable lists per-driver averages.
func DriverTable(ds []aggregate.DriverAverage) Table {
	t := Table{
		Header:  []string{"driver", "score", "group", "diff", "behaviors"},
		Numeric: map[int]bool{1: true, 2: true, 3: true, 4: true},
	}
	for _, d := range ds {
		t.Rows = append(t.Rows, []string{
			d.Driver, d.Average.Format(Decimals), d.GroupAverage.Format(Decimals),
			d.Difference.Format(Decimals), strconv.Itoa(d.Count),
		})
	}
	return t
}

// DistributionTable lists the category shares of individual and group.
func DistributionTable(diffs []scoring.ShareDiff) Table {
	t := Table{
		Header:  []string{"category", "individual_%", "group_%", "diff_pp"},
		Numeric: map[int]bool{1: true, 2: true, 3: true},
	}
	for _, d := range diffs {
		t.Rows = append(t.Rows, []string{d.Label, num(d.Individual), num(d.Group), num(d.Difference)})
	}
	return t
}

// RankingTable lists a year ranking.
func RankingTable(year string, rs []aggregate.Ranking) Table {
	t := Table{
		Title:   "ranking " + year,
		Header:  []string{"rank", "person", "concept", "score", "group", "diff", "percentile", "band"},
		Numeric: map[int]bool{0: true, 3: true, 4: true, 5: true, 6: true},
	}
	for _, r := range rs {
		pct := ""
		if r.Rank > 0 {
			pct = strconv.FormatFloat(r.Percentile, 'f', 1, 64)
		}
		t.Rows = append(t.Rows, []string{
			rank(r.Rank), r.Person, r.Concept,
			r.AverageScore.Format(Decimals), r.AverageGroupScore.Format(Decimals), r.Difference.Format(Decimals),
			pct, r.Band,
		})
	}
	return t
}

// TrendTable lists a person's years with the trend classification as title.
func TrendTable(tr *analysis.Trend) Table {
	title := fmt.Sprintf("%s: %s", tr.Person, tr.Classification)
	if tr.Change.Valid {
		title += fmt.Sprintf(" (%s, %s -> %s)", signed(tr.Change.Value), tr.FirstYear, tr.LastYear)
	}
	t := Table{
		Title:   title,
		Header:  []string{"year", "concept", "score", "group", "diff", "behaviors", "rank"},
		Numeric: map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true},
	}
	for _, p := range tr.Years {
		t.Rows = append(t.Rows, []string{
			p.Year, p.Concept,
			p.AverageScore.Format(Decimals), p.AverageGroupScore.Format(Decimals), p.Difference.Format(Decimals),
			strconv.Itoa(p.Count), rank(p.Rank),
		})
	}
	return t
}

// TrackTable lists a history track.
func TrackTable(title string, pts []analysis.TrackPoint) Table {
	t := Table{
		Title:   title,
		Header:  []string{"year", "score", "group", "diff", "behaviors"},
		Numeric: map[int]bool{1: true, 2: true, 3: true, 4: true},
	}
	for _, p := range pts {
		t.Rows = append(t.Rows, []string{
			p.Year, p.AverageScore.Format(Decimals), p.AverageGroupScore.Format(Decimals),
			p.Difference.Format(Decimals), strconv.Itoa(p.Count),
		})
	}
	return t
}

// PairwiseTable lists consecutive-year comparisons.
func PairwiseTable(ps []analysis.PairwiseComparison) Table {
	t := Table{
		Title:   "pairwise comparisons",
		Header:  []string{"from", "to", "common", "from_score", "to_score", "change"},
		Numeric: map[int]bool{2: true, 3: true, 4: true, 5: true},
	}
	for _, p := range ps {
		t.Rows = append(t.Rows, []string{
			p.FromYear, p.ToYear, strconv.Itoa(p.To.Count),
			p.From.AverageScore.Format(Decimals), p.To.AverageScore.Format(Decimals), p.Change.Format(Decimals),
		})
	}
	return t
}

// GapTable lists stakeholder gaps.
func GapTable(gs []analysis.StakeholderGap) Table {
	t := Table{
		Header:  []string{"person", "year", "driver", "behavior", "gap", "max", "max_score", "min", "min_score"},
		Numeric: map[int]bool{4: true, 6: true, 8: true},
	}
	for _, g := range gs {
		t.Rows = append(t.Rows, []string{
			g.Person, g.Year, g.Driver, g.Behavior, num(g.Gap),
			g.MaxStakeholder, num(g.MaxScore), g.MinStakeholder, num(g.MinScore),
		})
	}
	return t
}

// CriteriaTable lists the (driver, behavior) pairs of each key (a year, or
// "common").
func CriteriaTable(sets map[string]analysis.BehaviorSet) Table {
	keys := make([]string, 0, len(sets))
	for k := range sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := Table{Header: []string{"year", "driver", "behavior"}}
	for _, k := range keys {
		for _, bk := range sets[k].Keys() {
			t.Rows = append(t.Rows, []string{k, bk.Driver, bk.Behavior})
		}
	}
	return t
}

// HighlightsTable lists strengths then improvement opportunities.
func HighlightsTable(h *analysis.Highlights) Table {
	t := Table{
		Header:  []string{"kind", "driver", "behavior", "score", "group", "diff", "performance"},
		Numeric: map[int]bool{3: true, 4: true, 5: true},
	}
	add := func(kind string, ds []analysis.BehaviorDiff) {
		for _, d := range ds {
			t.Rows = append(t.Rows, []string{kind, d.Driver, d.Behavior, num(d.Score), num(d.GroupScore), num(d.Difference), d.Performance})
		}
	}
	add("strength", h.Strengths)
	add("improvement", h.Improvements)
	return t
}

func signed(v float64) string {
	if v > 0 {
		return "+" + num(v)
	}
	return num(v)
}
