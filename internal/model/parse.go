package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/people-analytics/internal/scoring"
)

var (
	// ErrMissingField marks a record that violates the resultado.json contract.
	ErrMissingField = eris.New("model: missing required field")
	// ErrUnsuccessful marks a record exported with "success": false.
	ErrUnsuccessful = eris.New("model: record marked unsuccessful")
)

type rawFile struct {
	Success *bool    `json:"success"`
	Data    *rawData `json:"data"`
}

type rawData struct {
	Concept   string       `json:"conceito_ciclo_filho_descricao"`
	PeerGroup *string      `json:"nome_peer_group"`
	Drivers   *[]rawDriver `json:"direcionadores"`
}

type rawDriver struct {
	Name      *string        `json:"direcionador"`
	Behaviors *[]rawBehavior `json:"comportamentos"`
}

type rawBehavior struct {
	Name       *string      `json:"comportamento"`
	Group      *[]rawRating `json:"avaliacoes_grupo"`
	Individual []rawConcept `json:"avaliacoes_individuais"`
}

type rawRating struct {
	Stakeholder string `json:"avaliador"`
	Individual  any    `json:"frequencia_colaborador"`
	Group       any    `json:"frequencia_grupo"`
}

type rawConcept struct {
	Stakeholder string `json:"avaliador"`
	Concept     string `json:"conceito"`
	Color       string `json:"cor"`
}

// Parse decodes a resultado.json document, normalizing every frequency
// vector to n slots. A document missing data, direcionadores, comportamentos,
// avaliacoes_grupo or a driver/behavior name fails with ErrMissingField.
func Parse(raw []byte, n int) (*Evaluation, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var f rawFile
	if err := dec.Decode(&f); err != nil {
		return nil, eris.Wrap(err, "model: decode")
	}
	if f.Success != nil && !*f.Success {
		return nil, ErrUnsuccessful
	}
	if f.Data == nil {
		return nil, eris.Wrap(ErrMissingField, "data")
	}
	if f.Data.Drivers == nil {
		return nil, eris.Wrap(ErrMissingField, "data.direcionadores")
	}

	ev := &Evaluation{Concept: strings.TrimSpace(f.Data.Concept)}
	if f.Data.PeerGroup != nil {
		ev.PeerGroup = strings.TrimSpace(*f.Data.PeerGroup)
	}

	for i, rd := range *f.Data.Drivers {
		if rd.Name == nil || strings.TrimSpace(*rd.Name) == "" {
			return nil, eris.Wrapf(ErrMissingField, "direcionadores[%d].direcionador", i)
		}
		if rd.Behaviors == nil {
			return nil, eris.Wrapf(ErrMissingField, "direcionadores[%d].comportamentos", i)
		}
		d := Driver{Name: strings.TrimSpace(*rd.Name)}
		for j, rb := range *rd.Behaviors {
			if rb.Name == nil || strings.TrimSpace(*rb.Name) == "" {
				return nil, eris.Wrapf(ErrMissingField, "direcionadores[%d].comportamentos[%d].comportamento", i, j)
			}
			if rb.Group == nil {
				return nil, eris.Wrapf(ErrMissingField, "direcionadores[%d].comportamentos[%d].avaliacoes_grupo", i, j)
			}
			b := Behavior{Name: strings.TrimSpace(*rb.Name)}
			for _, rr := range *rb.Group {
				b.Ratings = append(b.Ratings, Rating{
					Stakeholder: strings.TrimSpace(rr.Stakeholder),
					Individual:  scoring.Normalize(rr.Individual, n),
					Group:       scoring.Normalize(rr.Group, n),
				})
			}
			for _, rc := range rb.Individual {
				b.Concepts = append(b.Concepts, Concept{
					Stakeholder: strings.TrimSpace(rc.Stakeholder),
					Concept:     strings.TrimSpace(rc.Concept),
					Color:       strings.TrimSpace(rc.Color),
				})
			}
			d.Behaviors = append(d.Behaviors, b)
		}
		ev.Drivers = append(ev.Drivers, d)
	}
	return ev, nil
}

// FoldKey lowercases s, strips diacritics and collapses whitespace so that
// "Pares e Parceiros" and "pares  e parceiros" compare equal.
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
