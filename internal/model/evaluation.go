package model

import (
	"github.com/sells-group/people-analytics/internal/scoring"
)

// Evaluation is one person's 360° evaluation for one cycle year.
type Evaluation struct {
	Person    string   `json:"person"`
	Year      string   `json:"year"`
	Source    string   `json:"source,omitempty"`
	Concept   string   `json:"concept"`
	PeerGroup string   `json:"peer_group,omitempty"`
	Drivers   []Driver `json:"drivers"`
}

// Driver groups related behaviors ("direcionador").
type Driver struct {
	Name      string     `json:"name"`
	Behaviors []Behavior `json:"behaviors"`
}

// Behavior is one rated competency ("comportamento").
type Behavior struct {
	Name     string    `json:"name"`
	Ratings  []Rating  `json:"ratings"`
	Concepts []Concept `json:"concepts,omitempty"`
}

// Rating holds the individual and peer-group frequency vectors one
// stakeholder group produced for a behavior.
type Rating struct {
	Stakeholder string         `json:"stakeholder"`
	Individual  scoring.Vector `json:"individual"`
	Group       scoring.Vector `json:"group"`
}

// Concept is a qualitative label an evaluator gave a behavior.
type Concept struct {
	Stakeholder string `json:"stakeholder"`
	Concept     string `json:"concept"`
	Color       string `json:"color,omitempty"`
}

// BehaviorKey identifies a behavior across records.
type BehaviorKey struct {
	Driver   string `json:"driver"`
	Behavior string `json:"behavior"`
}

// Rating returns the rating for a stakeholder, matched after key folding.
func (b Behavior) Rating(stakeholder string) (Rating, bool) {
	want := FoldKey(stakeholder)
	for _, r := range b.Ratings {
		if FoldKey(r.Stakeholder) == want {
			return r, true
		}
	}
	return Rating{}, false
}

// BehaviorCount is the number of behaviors over all drivers.
func (e *Evaluation) BehaviorCount() int {
	var n int
	for _, d := range e.Drivers {
		n += len(d.Behaviors)
	}
	return n
}

// Keys lists every (driver, behavior) pair in record order.
func (e *Evaluation) Keys() []BehaviorKey {
	keys := make([]BehaviorKey, 0, e.BehaviorCount())
	for _, d := range e.Drivers {
		for _, b := range d.Behaviors {
			keys = append(keys, BehaviorKey{Driver: d.Name, Behavior: b.Name})
		}
	}
	return keys
}
