package analysis

import (
	"sort"

	"github.com/sells-group/people-analytics/internal/dataset"
	"github.com/sells-group/people-analytics/internal/model"
)

// BehaviorSet maps a driver to its behaviors.
type BehaviorSet map[string]map[string]struct{}

// Add inserts a (driver, behavior) pair.
func (s BehaviorSet) Add(driver, behavior string) {
	if s[driver] == nil {
		s[driver] = make(map[string]struct{})
	}
	s[driver][behavior] = struct{}{}
}

// Has reports whether the pair is in the set.
func (s BehaviorSet) Has(driver, behavior string) bool {
	_, ok := s[driver][behavior]
	return ok
}

// Len is the number of pairs.
func (s BehaviorSet) Len() int {
	var n int
	for _, bs := range s {
		n += len(bs)
	}
	return n
}

// Drivers returns the drivers in sorted order.
func (s BehaviorSet) Drivers() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Behaviors returns a driver's behaviors in sorted order.
func (s BehaviorSet) Behaviors(driver string) []string {
	out := make([]string, 0, len(s[driver]))
	for b := range s[driver] {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Sorted renders the set as driver -> sorted behaviors, for output.
func (s BehaviorSet) Sorted() map[string][]string {
	out := make(map[string][]string, len(s))
	for d := range s {
		out[d] = s.Behaviors(d)
	}
	return out
}

// Keys lists the pairs sorted by driver then behavior.
func (s BehaviorSet) Keys() []model.BehaviorKey {
	var out []model.BehaviorKey
	for _, d := range s.Drivers() {
		for _, b := range s.Behaviors(d) {
			out = append(out, model.BehaviorKey{Driver: d, Behavior: b})
		}
	}
	return out
}

// Criteria collects the pairs present in one evaluation.
func Criteria(ev *model.Evaluation) BehaviorSet {
	s := make(BehaviorSet)
	for _, k := range ev.Keys() {
		s.Add(k.Driver, k.Behavior)
	}
	return s
}

// YearCriteria is the union of the pairs present in any record of a year.
func YearCriteria(ds *dataset.Dataset, year string) BehaviorSet {
	s := make(BehaviorSet)
	for _, ev := range ds.ForYear(year) {
		for _, k := range ev.Keys() {
			s.Add(k.Driver, k.Behavior)
		}
	}
	return s
}

// FindCommonBehaviors intersects the sets: a driver is kept only when it is
// present in every set and its behavior intersection is non-empty.
func FindCommonBehaviors(sets []BehaviorSet) BehaviorSet {
	out := make(BehaviorSet)
	if len(sets) == 0 {
		return out
	}
	for driver, behaviors := range sets[0] {
		for b := range behaviors {
			inAll := true
			for _, other := range sets[1:] {
				if !other.Has(driver, b) {
					inAll = false
					break
				}
			}
			if inAll {
				out.Add(driver, b)
			}
		}
	}
	return out
}
