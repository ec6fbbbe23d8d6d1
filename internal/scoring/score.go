package scoring

import "math"

// WeightedScore is the weighted mean category of a distribution.
// Value is exactly 0 and HasData false when the distribution is empty.
type WeightedScore struct {
	Value   float64 `json:"value"`
	Total   float64 `json:"total"`
	HasData bool    `json:"has_data"`
}

// Score computes Σ f[i]*w[i] / Σ f[i]. Mismatched lengths use the shorter prefix.
func Score(freq Vector, weights []float64) WeightedScore {
	n := min(len(freq), len(weights))
	var sum, total float64
	for i := range n {
		sum += freq[i] * weights[i]
		total += freq[i]
	}
	if total <= 0 {
		return WeightedScore{}
	}
	return WeightedScore{Value: sum / total, Total: total, HasData: true}
}

// Result compares an individual distribution with the peer group's.
// HasData reports whether the individual score rests on observations;
// Difference is only meaningful when both sides have data.
type Result struct {
	Individual        float64 `json:"individual"`
	Group             float64 `json:"group"`
	Difference        float64 `json:"difference"`
	HasData           bool    `json:"has_data"`
	IndividualHasData bool    `json:"individual_has_data"`
	GroupHasData      bool    `json:"group_has_data"`
}

// Score normalizes raw input to the scheme length and scores it.
func (s Scheme) Score(raw any) WeightedScore {
	return Score(Normalize(raw, s.Len()), s.Weights)
}

// Compare scores both distributions and their difference.
func (s Scheme) Compare(individual, group any) Result {
	ind := s.Score(individual)
	grp := s.Score(group)
	return Result{
		Individual:        ind.Value,
		Group:             grp.Value,
		Difference:        ind.Value - grp.Value,
		HasData:           ind.HasData,
		IndividualHasData: ind.HasData,
		GroupHasData:      grp.HasData,
	}
}

// Round rounds to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
