package analysis

import (
	"sort"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/model"
)

// StakeholderGap is the spread between the most and least favourable
// stakeholder groups for one behavior.
type StakeholderGap struct {
	Person         string             `json:"person,omitempty"`
	Year           string             `json:"year,omitempty"`
	Driver         string             `json:"driver"`
	Behavior       string             `json:"behavior"`
	Gap            float64            `json:"gap"`
	MaxStakeholder string             `json:"max_stakeholder"`
	MaxScore       float64            `json:"max_score"`
	MinStakeholder string             `json:"min_stakeholder"`
	MinScore       float64            `json:"min_score"`
	Scores         map[string]float64 `json:"scores"`
}

// Gap computes max - min over stakeholder scores. It needs at least two
// stakeholders; ties resolve to the alphabetically first name.
func Gap(scores map[string]float64) (StakeholderGap, bool) {
	if len(scores) < 2 {
		return StakeholderGap{}, false
	}
	names := make([]string, 0, len(scores))
	for n := range scores {
		names = append(names, n)
	}
	sort.Strings(names)

	g := StakeholderGap{
		MaxStakeholder: names[0], MaxScore: scores[names[0]],
		MinStakeholder: names[0], MinScore: scores[names[0]],
		Scores: scores,
	}
	for _, n := range names[1:] {
		if v := scores[n]; v > g.MaxScore {
			g.MaxStakeholder, g.MaxScore = n, v
		}
		if v := scores[n]; v < g.MinScore {
			g.MinStakeholder, g.MinScore = n, v
		}
	}
	g.Gap = g.MaxScore - g.MinScore
	return g, true
}

// StakeholderGaps computes a gap per behavior from the non-overall
// stakeholders with data, sorted by gap descending.
func StakeholderGaps(scores []aggregate.BehaviorScore, overallKey string) []StakeholderGap {
	overall := model.FoldKey(overallKey)
	var out []StakeholderGap
	for _, bs := range scores {
		// Stakeholders are matched after folding; the first spelling is kept.
		seen := make(map[string]bool)
		byStakeholder := make(map[string]float64)
		for _, s := range bs.Stakeholders {
			key := model.FoldKey(s.Stakeholder)
			if !s.HasData || key == overall || seen[key] {
				continue
			}
			seen[key] = true
			byStakeholder[s.Stakeholder] = s.Individual
		}
		g, ok := Gap(byStakeholder)
		if !ok {
			continue
		}
		g.Driver, g.Behavior = bs.Driver, bs.Behavior
		out = append(out, g)
	}
	SortGaps(out)
	return out
}

// SortGaps orders gaps descending, then by person, year, driver and behavior.
func SortGaps(gs []StakeholderGap) {
	sort.SliceStable(gs, func(i, j int) bool {
		a, b := gs[i], gs[j]
		if a.Gap != b.Gap {
			return a.Gap > b.Gap
		}
		if a.Person != b.Person {
			return a.Person < b.Person
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Driver != b.Driver {
			return a.Driver < b.Driver
		}
		return a.Behavior < b.Behavior
	})
}
