package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/config"
	"github.com/sells-group/people-analytics/internal/dataset"
	"github.com/sells-group/people-analytics/internal/model"
	"github.com/sells-group/people-analytics/internal/scoring"
)

// vec puts all observations in one slot of the descending6 scheme, so the
// score is 5, 4, 3, 2 or 1 for slots 1..5 and there is no data for slot -1.
func vec(slot int) scoring.Vector {
	v := make(scoring.Vector, 6)
	if slot >= 0 {
		v[slot] = 10
	}
	return v
}

func rating(stakeholder string, ind, grp int) model.Rating {
	return model.Rating{Stakeholder: stakeholder, Individual: vec(ind), Group: vec(grp)}
}

func eval(person, year string, drivers ...model.Driver) *model.Evaluation {
	return &model.Evaluation{Person: person, Year: year, Drivers: drivers}
}

func driver(name string, behaviors ...model.Behavior) model.Driver {
	return model.Driver{Name: name, Behaviors: behaviors}
}

func beh(name string, ratings ...model.Rating) model.Behavior {
	return model.Behavior{Name: name, Ratings: ratings}
}

func newAnalyzer(t *testing.T, evs ...*model.Evaluation) *Analyzer {
	t.Helper()
	s, err := scoring.Named(scoring.SchemeDescending6)
	require.NoError(t, err)
	e := aggregate.New(dataset.New(evs), s, aggregate.Options{})
	return New(e, config.AnalysisConfig{})
}

func TestGap(t *testing.T) {
	g, ok := Gap(map[string]float64{"manager": 4.0, "peer": 2.0, "self": 3.5})
	require.True(t, ok)
	assert.InDelta(t, 2.0, g.Gap, 1e-9)
	assert.Equal(t, "manager", g.MaxStakeholder)
	assert.Equal(t, "peer", g.MinStakeholder)

	_, ok = Gap(map[string]float64{"manager": 4.0})
	assert.False(t, ok)

	tie, ok := Gap(map[string]float64{"b": 3, "a": 3})
	require.True(t, ok)
	assert.Equal(t, 0.0, tie.Gap)
	assert.Equal(t, "a", tie.MaxStakeholder)
	assert.Equal(t, "a", tie.MinStakeholder)
}

func TestFindCommonBehaviors(t *testing.T) {
	year1 := BehaviorSet{}
	year1.Add("DriverX", "B1")
	year1.Add("DriverX", "B2")
	year1.Add("DriverY", "B9")
	year2 := BehaviorSet{}
	year2.Add("DriverX", "B2")
	year2.Add("DriverX", "B3")
	year2.Add("DriverZ", "B9")

	got := FindCommonBehaviors([]BehaviorSet{year1, year2})
	assert.Equal(t, map[string][]string{"DriverX": {"B2"}}, got.Sorted())

	assert.Equal(t, 0, FindCommonBehaviors(nil).Len())
	assert.Equal(t, year1.Sorted(), FindCommonBehaviors([]BehaviorSet{year1}).Sorted())
}

func TestYearCriteria_Union(t *testing.T) {
	ds := dataset.New([]*model.Evaluation{
		eval("a", "2023", driver("X", beh("B1"))),
		eval("b", "2023", driver("X", beh("B2")), driver("Y", beh("B3"))),
		eval("a", "2024", driver("X", beh("B4"))),
	})
	got := YearCriteria(ds, "2023")
	assert.Equal(t, map[string][]string{"X": {"B1", "B2"}, "Y": {"B3"}}, got.Sorted())
	assert.Equal(t, []model.BehaviorKey{{Driver: "X", Behavior: "B1"}, {Driver: "X", Behavior: "B2"}, {Driver: "Y", Behavior: "B3"}}, got.Keys())
}

func TestStakeholderGaps(t *testing.T) {
	a := newAnalyzer(t, eval("ana", "2023", driver("X",
		beh("B1",
			rating("%todos", 1, 1),
			rating("gestor", 2, 1),             // 4
			rating("pares e parceiros", 4, 1), // 2
			rating("autoavaliacao", -1, 1),    // no data
		),
		beh("B2",
			rating("%todos", 1, 1),
			rating("gestor", 1, 1), // 5
			rating("pares", 1, 1),  // 5
		),
		beh("B3", rating("%todos", 1, 1), rating("gestor", 3, 1)),
		beh("B4",
			rating("%todos", 1, 1),
			rating("Gestor", 2, 1),        // 4
			rating("gestor", 4, 1),        // 2
			rating("Autoavaliação", 1, 1), // 5
			rating("autoavaliacao", 5, 1), // 1
		),
	)))

	gaps, err := a.Gaps("ana", "2023")
	require.NoError(t, err)
	require.Len(t, gaps, 3, "B3 has a single non-overall stakeholder")

	assert.Equal(t, "B1", gaps[0].Behavior)
	assert.InDelta(t, 2.0, gaps[0].Gap, 1e-9)
	assert.Equal(t, "gestor", gaps[0].MaxStakeholder)
	assert.Equal(t, "pares e parceiros", gaps[0].MinStakeholder)
	assert.NotContains(t, gaps[0].Scores, "%todos")
	assert.NotContains(t, gaps[0].Scores, "autoavaliacao")
	assert.Equal(t, "ana", gaps[0].Person)

	assert.Equal(t, "B4", gaps[1].Behavior)
	assert.InDelta(t, 1.0, gaps[1].Gap, 1e-9)
	assert.Equal(t, "Autoavaliação", gaps[1].MaxStakeholder)
	assert.Equal(t, "Gestor", gaps[1].MinStakeholder)
	assert.Len(t, gaps[1].Scores, 2)

	assert.Equal(t, "B2", gaps[2].Behavior)
	assert.Equal(t, 0.0, gaps[2].Gap)

	_, err = a.Gaps("ana", "1999")
	assert.ErrorIs(t, err, aggregate.ErrNotFound)
}

func TestTrend(t *testing.T) {
	one := func(person, year string, ind, grp int) *model.Evaluation {
		return eval(person, year, driver("X", beh("B1", rating("%todos", ind, grp))))
	}

	tests := []struct {
		name        string
		evs         []*model.Evaluation
		wantClass   string
		wantChange  float64
		wantPerf    string
		wantDrivers int
	}{
		{"significant up", []*model.Evaluation{one("p", "2022", 3, 3), one("p", "2023", 2, 3)}, "significant_up", 1, "very_high", 1},
		{"significant down", []*model.Evaluation{one("p", "2022", 1, 3), one("p", "2024", 3, 3), one("p", "2023", 2, 3)}, "significant_down", -2, "average", 1},
		{"stable", []*model.Evaluation{one("p", "2022", 2, 2), one("p", "2023", 2, 1)}, "stable", 0, "very_low", 1},
		{"single year", []*model.Evaluation{one("p", "2023", 2, 2)}, InsufficientData, 0, "average", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAnalyzer(t, tt.evs...)
			tr, err := a.Trend("p")
			require.NoError(t, err)
			assert.Equal(t, tt.wantClass, tr.Classification)
			assert.Equal(t, tt.wantPerf, tr.Performance)
			assert.Len(t, tr.Drivers, tt.wantDrivers)
			if tt.wantClass != InsufficientData {
				assert.InDelta(t, tt.wantChange, tr.Change.Value, 1e-9)
			} else {
				assert.False(t, tr.Change.Valid)
			}
		})
	}

	_, err := newAnalyzer(t).Trend("nobody")
	assert.ErrorIs(t, err, aggregate.ErrNotFound)
}

func TestTrend_YearsSortedAndGapChange(t *testing.T) {
	a := newAnalyzer(t,
		eval("p", "2024", driver("X", beh("B1", rating("%todos", 1, 2)))), // 5 vs 4
		eval("p", "2022", driver("X", beh("B1", rating("%todos", 3, 2)))), // 3 vs 4
	)
	tr, err := a.Trend("p")
	require.NoError(t, err)
	assert.Equal(t, "2022", tr.FirstYear)
	assert.Equal(t, "2024", tr.LastYear)
	assert.InDelta(t, 2.0, tr.Change.Value, 1e-9)
	assert.InDelta(t, 2.0, tr.GapChange.Value, 1e-9) // 1 - (-1)
	require.Len(t, tr.Years, 2)
	assert.Equal(t, 1, tr.Years[0].Rank)
}

func TestHistory_CommonTrack(t *testing.T) {
	a := newAnalyzer(t,
		eval("p", "2022", driver("X", beh("B1", rating("%todos", 1, 1)), beh("B2", rating("%todos", 5, 1)))),
		eval("p", "2023", driver("X", beh("B2", rating("%todos", 3, 1)), beh("B3", rating("%todos", 1, 1)))),
	)
	h, err := a.History("p")
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{"X": {"B2"}}, h.Common)
	require.Len(t, h.All, 2)
	assert.InDelta(t, 3.0, h.All[0].AverageScore.Value, 1e-9) // (5 + 1) / 2
	require.Len(t, h.CommonTrack, 2)
	assert.InDelta(t, 1.0, h.CommonTrack[0].AverageScore.Value, 1e-9)
	assert.InDelta(t, 3.0, h.CommonTrack[1].AverageScore.Value, 1e-9)
	assert.Empty(t, h.Pairwise)
}

func TestHistory_PairwiseFallback(t *testing.T) {
	a := newAnalyzer(t,
		eval("p", "2021", driver("X", beh("B1", rating("%todos", 1, 1)))),
		eval("p", "2022", driver("X", beh("B1", rating("%todos", 2, 1)), beh("B2", rating("%todos", 2, 1)))),
		eval("p", "2023", driver("X", beh("B2", rating("%todos", 3, 1)))),
	)
	h, err := a.History("p")
	require.NoError(t, err)

	assert.Empty(t, h.Common)
	assert.Empty(t, h.CommonTrack)
	require.Len(t, h.Pairwise, 2)

	assert.Equal(t, "2021", h.Pairwise[0].FromYear)
	assert.Equal(t, map[string][]string{"X": {"B1"}}, h.Pairwise[0].Common)
	assert.InDelta(t, -1.0, h.Pairwise[0].Change.Value, 1e-9) // 4 - 5

	assert.Equal(t, "2023", h.Pairwise[1].ToYear)
	assert.Equal(t, map[string][]string{"X": {"B2"}}, h.Pairwise[1].Common)
	assert.InDelta(t, -1.0, h.Pairwise[1].Change.Value, 1e-9) // 3 - 4
}

func TestHighlights(t *testing.T) {
	a := newAnalyzer(t, eval("p", "2023", driver("X",
		beh("B1", rating("%todos", 1, 3)),  // +2
		beh("B2", rating("%todos", 3, 3)),  //  0
		beh("B3", rating("%todos", 5, 3)),  // -2
		beh("B4", rating("%todos", 2, 3)),  // +1
		beh("B5", rating("%todos", 4, 3)),  // -1
		beh("B6", rating("%todos", 2, -1)), // no group data
	)))

	h, err := a.Highlights("p", "2023")
	require.NoError(t, err)

	var strengths, improvements []string
	for _, d := range h.Strengths {
		strengths = append(strengths, d.Behavior)
	}
	for _, d := range h.Improvements {
		improvements = append(improvements, d.Behavior)
	}
	assert.Equal(t, []string{"B1", "B4", "B2"}, strengths)
	assert.Equal(t, []string{"B3", "B5", "B2"}, improvements)
	assert.Equal(t, "very_high", h.Strengths[0].Performance)
	assert.Equal(t, "very_low", h.Improvements[0].Performance)
}
