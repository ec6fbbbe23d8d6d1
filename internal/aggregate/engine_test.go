package aggregate

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/people-analytics/internal/dataset"
	"github.com/sells-group/people-analytics/internal/model"
	"github.com/sells-group/people-analytics/internal/scoring"
)

func descending6(t *testing.T) scoring.Scheme {
	t.Helper()
	s, err := scoring.Named(scoring.SchemeDescending6)
	require.NoError(t, err)
	return s
}

// vec puts all observations in one slot so the score equals that slot's weight.
func vec(slot int) scoring.Vector {
	v := make(scoring.Vector, 6)
	if slot >= 0 {
		v[slot] = 10
	}
	return v
}

func behavior(name string, ratings ...model.Rating) model.Behavior {
	return model.Behavior{Name: name, Ratings: ratings}
}

func overall(ind, grp scoring.Vector) model.Rating {
	return model.Rating{Stakeholder: "%todos", Individual: ind, Group: grp}
}

func evaluation(person, year string, drivers ...model.Driver) *model.Evaluation {
	return &model.Evaluation{Person: person, Year: year, Concept: "Atende", Drivers: drivers}
}

func TestPersonYear_EndToEndAna(t *testing.T) {
	ev := evaluation("Ana", "2023", model.Driver{Name: "X", Behaviors: []model.Behavior{
		behavior("B1", overall(scoring.Vector{0, 0, 55, 36, 0, 9}, scoring.Vector{0, 0, 50, 50, 0, 0})),
	}})
	e := New(dataset.New([]*model.Evaluation{ev}), descending6(t), Options{})

	s, err := e.PersonYear("Ana", "2023")
	require.NoError(t, err)
	require.True(t, s.AverageScore.Valid)
	assert.InDelta(t, 3.37, s.AverageScore.Value, 1e-9)
	assert.InDelta(t, 3.5, s.AverageGroupScore.Value, 1e-9)
	assert.InDelta(t, -0.13, s.Difference.Value, 1e-9)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 0, s.EmptyCount)

	require.Len(t, s.CategoryDiffs, 6)
	assert.Equal(t, "sempre", s.CategoryDiffs[2].Label)
	assert.InDelta(t, 5.0, s.CategoryDiffs[2].Difference, 1e-9)
	assert.InDelta(t, -14.0, s.CategoryDiffs[3].Difference, 1e-9)

	again, err := e.PersonYear("Ana", "2023")
	require.NoError(t, err)
	assert.Same(t, s, again)

	_, err = e.PersonYear("Ana", "2019")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersonYear_SkipsMissingOverall(t *testing.T) {
	ev := evaluation("ana", "2023",
		model.Driver{Name: "X", Behaviors: []model.Behavior{
			behavior("B1", overall(vec(1), vec(2))),
			behavior("B2", model.Rating{Stakeholder: "gestor", Individual: vec(5), Group: vec(5)}),
		}},
		model.Driver{Name: "Y", Behaviors: []model.Behavior{
			behavior("B3", overall(vec(3), vec(3))),
		}},
	)
	e := New(dataset.New([]*model.Evaluation{ev}), descending6(t), Options{})

	s, err := e.PersonYear("ana", "2023")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 4.0, s.AverageScore.Value, 1e-9) // (5 + 3) / 2
	assert.InDelta(t, 3.5, s.AverageGroupScore.Value, 1e-9)

	drivers := e.DriverAverages(ev)
	require.Len(t, drivers, 2)
	assert.Equal(t, "X", drivers[0].Driver)
	assert.Equal(t, 1, drivers[0].Count)
	assert.InDelta(t, 5.0, drivers[0].Average.Value, 1e-9)
	assert.InDelta(t, 1.0, drivers[0].Difference.Value, 1e-9)
	assert.Equal(t, "Y", drivers[1].Driver)
}

func TestPersonYear_EmptyBehaviors(t *testing.T) {
	ev := evaluation("ana", "2023", model.Driver{Name: "X", Behaviors: []model.Behavior{
		behavior("B1", overall(vec(1), vec(1))),
		behavior("B2", overall(vec(-1), vec(1))),
	}})
	ds := dataset.New([]*model.Evaluation{ev})

	t.Run("counted as zero by default", func(t *testing.T) {
		s, err := New(ds, descending6(t), Options{}).PersonYear("ana", "2023")
		require.NoError(t, err)
		assert.Equal(t, 2, s.Count)
		assert.Equal(t, 1, s.EmptyCount)
		assert.InDelta(t, 2.5, s.AverageScore.Value, 1e-9)
	})

	t.Run("excluded when skip empty", func(t *testing.T) {
		s, err := New(ds, descending6(t), Options{SkipEmpty: true}).PersonYear("ana", "2023")
		require.NoError(t, err)
		assert.Equal(t, 1, s.Count)
		assert.Equal(t, 1, s.EmptyCount)
		assert.InDelta(t, 5.0, s.AverageScore.Value, 1e-9)
	})
}

func TestPersonYear_NoQualifyingBehaviors(t *testing.T) {
	ev := evaluation("ana", "2023", model.Driver{Name: "X", Behaviors: []model.Behavior{
		behavior("B1", model.Rating{Stakeholder: "gestor", Individual: vec(1), Group: vec(1)}),
	}})
	e := New(dataset.New([]*model.Evaluation{ev}), descending6(t), Options{})

	s, err := e.PersonYear("ana", "2023")
	require.NoError(t, err)
	assert.False(t, s.AverageScore.Valid)
	assert.False(t, s.Difference.Valid)
	assert.Nil(t, s.CategoryDiffs)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"average_score":null`)
}

func TestCompetitionRank(t *testing.T) {
	tests := []struct {
		name string
		vals []Average
		want []int
	}{
		{"ties share lower rank", []Average{{5, true}, {5, true}, {3, true}}, []int{1, 1, 3}},
		{"unordered input", []Average{{3, true}, {5, true}, {4, true}}, []int{3, 1, 2}},
		{"invalid gets zero", []Average{{2, true}, {}, {2, true}}, []int{1, 0, 1}},
		{"empty", nil, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompetitionRank(tt.vals))
		})
	}
}

func TestRankYear(t *testing.T) {
	drv := func(slot int) model.Driver {
		return model.Driver{Name: "X", Behaviors: []model.Behavior{behavior("B1", overall(vec(slot), vec(3)))}}
	}
	ds := dataset.New([]*model.Evaluation{
		evaluation("A", "2023", drv(1)), // 5
		evaluation("B", "2023", drv(1)), // 5
		evaluation("C", "2023", drv(3)), // 3
		evaluation("D", "2023", model.Driver{Name: "X"}),
		evaluation("E", "2024", drv(2)),
	})
	e := New(ds, descending6(t), Options{})

	rs := e.RankYear("2023")
	require.Len(t, rs, 4)

	got := map[string]int{}
	for _, r := range rs {
		got[r.Person] = r.Rank
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 3, "D": 0}, got)
	assert.Equal(t, "D", rs[3].Person, "undefined averages sort last")

	assert.InDelta(t, 100-100.0/3, rs[0].Percentile, 1e-9)
	assert.Equal(t, "medium", rs[0].Band)
	assert.InDelta(t, 0.0, rs[2].Percentile, 1e-9)
	assert.Equal(t, "low", rs[2].Band)
	assert.Equal(t, "", rs[3].Band)

	r, ok := e.RankOf("C", "2023")
	require.True(t, ok)
	assert.Equal(t, 3, r.Rank)
	_, ok = e.RankOf("E", "2023")
	assert.False(t, ok)
}

func TestComposite(t *testing.T) {
	ev := evaluation("ana", "2023", model.Driver{Name: "X", Behaviors: []model.Behavior{
		behavior("B1",
			overall(vec(2), vec(2)),
			model.Rating{Stakeholder: "Gestor", Individual: vec(1), Group: vec(1)},           // 5
			model.Rating{Stakeholder: "pares e parceiros", Individual: vec(4), Group: vec(1)}, // 2
			model.Rating{Stakeholder: "autoavaliacao", Individual: vec(-1), Group: vec(1)},   // no data
		),
	}})
	ds := dataset.New([]*model.Evaluation{ev})

	e := New(ds, descending6(t), Options{StakeholderWeights: map[string]float64{
		"gestor":            1.5,
		"Pares e Parceiros": 1.0,
		"autoavaliacao":     2.0,
	}})
	got := e.Composite(ev)
	require.True(t, got.Valid)
	assert.InDelta(t, (1.5*5+1.0*2)/2.5, got.Value, 1e-9)

	assert.False(t, New(ds, descending6(t), Options{}).Composite(ev).Valid)
}

func TestBehaviorRanks(t *testing.T) {
	mk := func(person string, b1, b2 int) *model.Evaluation {
		return evaluation(person, "2023", model.Driver{Name: "X", Behaviors: []model.Behavior{
			behavior("B1", overall(vec(b1), vec(1))),
			behavior("B2", overall(vec(b2), vec(1))),
		}})
	}
	ds := dataset.New([]*model.Evaluation{mk("A", 1, 3), mk("B", 2, 3), mk("C", 1, 1)})
	e := New(ds, descending6(t), Options{})

	ranks := e.BehaviorRanks("2023")
	b1 := ranks[model.BehaviorKey{Driver: "X", Behavior: "B1"}]
	assert.Equal(t, map[string]int{"A": 1, "B": 3, "C": 1}, b1)
	b2 := ranks[model.BehaviorKey{Driver: "X", Behavior: "B2"}]
	assert.Equal(t, map[string]int{"A": 2, "B": 2, "C": 1}, b2)
}

func TestEngine_ConcurrentReaders(t *testing.T) {
	var evs []*model.Evaluation
	for _, p := range []string{"a", "b", "c", "d"} {
		evs = append(evs, evaluation(p, "2023", model.Driver{Name: "X", Behaviors: []model.Behavior{
			behavior("B1", overall(vec(2), vec(3))),
		}}))
	}
	e := New(dataset.New(evs), descending6(t), Options{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rs := e.RankYear("2023")
			assert.Len(t, rs, 4)
			_, err := e.PersonYear("a", "2023")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
