package scoring

// Share is the percentage of observations that fell into one category.
type Share struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// ShareDiff is the percentage-point difference between individual and group
// for one category.
type ShareDiff struct {
	Label      string  `json:"label"`
	Individual float64 `json:"individual"`
	Group      float64 `json:"group"`
	Difference float64 `json:"difference"`
}

// Distribution returns the percentage per category, in scheme order.
// All shares are zero for an empty distribution.
func (s Scheme) Distribution(raw any) []Share {
	v := Normalize(raw, s.Len())
	total := v.Total()
	out := make([]Share, s.Len())
	for i, label := range s.Labels {
		out[i].Label = label
		if total > 0 {
			out[i].Percent = v[i] / total * 100
		}
	}
	return out
}

// CompareDistribution returns per-category individual minus group percentages.
func (s Scheme) CompareDistribution(individual, group any) []ShareDiff {
	ind := s.Distribution(individual)
	grp := s.Distribution(group)
	out := make([]ShareDiff, len(ind))
	for i := range ind {
		out[i] = ShareDiff{
			Label:      ind[i].Label,
			Individual: ind[i].Percent,
			Group:      grp[i].Percent,
			Difference: ind[i].Percent - grp[i].Percent,
		}
	}
	return out
}
