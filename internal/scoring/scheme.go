// Package scoring converts frequency distributions over rating categories
// into weighted scores.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/people-analytics/internal/config"
)

// Named scheme identifiers.
const (
	SchemeDescending6 = "descending6"
	SchemeAscending6  = "ascending6"
	SchemeAscending5  = "ascending5"
)

// Scheme is an ordered set of rating categories with one weight per slot.
// len(Labels) == len(Weights) always holds for a Scheme built by this package.
type Scheme struct {
	Name    string    `json:"name" yaml:"name"`
	Labels  []string  `json:"labels" yaml:"labels"`
	Weights []float64 `json:"weights" yaml:"weights"`
}

var namedSchemes = map[string]Scheme{
	SchemeDescending6: {
		Name:    SchemeDescending6,
		Labels:  []string{"n/a", "referencia", "sempre", "quase sempre", "poucas vezes", "raramente"},
		Weights: []float64{0, 5, 4, 3, 2, 1},
	},
	SchemeAscending6: {
		Name:    SchemeAscending6,
		Labels:  []string{"n/a", "observo nunca", "observo raramente", "observo na maior parte das vezes", "observo sempre", "referencia"},
		Weights: []float64{0, 1, 2, 3, 4, 5},
	},
	SchemeAscending5: {
		Name:    SchemeAscending5,
		Labels:  []string{"observo nunca", "observo raramente", "observo na maior parte das vezes", "observo sempre", "referencia"},
		Weights: []float64{0, 1, 2, 3, 4},
	},
}

// SchemeNames returns the recognized named schemes in sorted order.
func SchemeNames() []string {
	names := make([]string, 0, len(namedSchemes))
	for n := range namedSchemes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Named returns a copy of a built-in scheme.
func Named(name string) (Scheme, error) {
	s, ok := namedSchemes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Scheme{}, eris.Errorf("scoring: unknown scheme %q (known: %s)", name, strings.Join(SchemeNames(), ", "))
	}
	return s.clone(), nil
}

// NewScheme validates and builds a custom scheme.
func NewScheme(name string, labels []string, weights []float64) (Scheme, error) {
	if len(labels) != len(weights) {
		return Scheme{}, eris.Errorf("scoring: scheme %q has %d labels but %d weights", name, len(labels), len(weights))
	}
	if n := len(weights); n != 5 && n != 6 {
		return Scheme{}, eris.Errorf("scoring: scheme %q must have 5 or 6 categories (got %d)", name, n)
	}
	for i, w := range weights {
		if w < 0 {
			return Scheme{}, eris.Errorf("scoring: scheme %q weight %d (%s) is negative", name, i, labels[i])
		}
	}
	s := Scheme{Name: name, Labels: labels, Weights: weights}
	return s.clone(), nil
}

// Resolve builds the scheme described by the scoring configuration.
// Explicit labels and weights take precedence over the named scheme.
func Resolve(cfg config.ScoringConfig) (Scheme, error) {
	var (
		s   Scheme
		err error
	)
	if len(cfg.Labels) > 0 || len(cfg.Weights) > 0 {
		name := cfg.Scheme
		if name == "" {
			name = "custom"
		}
		s, err = NewScheme(name, cfg.Labels, cfg.Weights)
	} else {
		s, err = Named(cfg.Scheme)
	}
	if err != nil {
		return Scheme{}, err
	}
	if cfg.VectorLength != 0 && cfg.VectorLength != s.Len() {
		return Scheme{}, eris.Errorf("scoring: vector_length %d does not match scheme %q (%d categories)", cfg.VectorLength, s.Name, s.Len())
	}
	return s, nil
}

// Len is the number of categories N.
func (s Scheme) Len() int { return len(s.Weights) }

// MinWeight and MaxWeight bound every score computed with data.
func (s Scheme) MinWeight() float64 {
	if len(s.Weights) == 0 {
		return 0
	}
	m := s.Weights[0]
	for _, w := range s.Weights[1:] {
		m = min(m, w)
	}
	return m
}

func (s Scheme) MaxWeight() float64 {
	var m float64
	for _, w := range s.Weights {
		m = max(m, w)
	}
	return m
}

func (s Scheme) String() string {
	parts := make([]string, len(s.Labels))
	for i, l := range s.Labels {
		parts[i] = fmt.Sprintf("%s=%g", l, s.Weights[i])
	}
	return fmt.Sprintf("%s[%s]", s.Name, strings.Join(parts, ", "))
}

func (s Scheme) clone() Scheme {
	return Scheme{
		Name:    s.Name,
		Labels:  append([]string(nil), s.Labels...),
		Weights: append([]float64(nil), s.Weights...),
	}
}
