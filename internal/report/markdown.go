package report

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/analysis"
)

var ptBR = language.BrazilianPortuguese

// Classification labels as they read in the feedback report.
func init() {
	for key, text := range map[string]string{
		"significant_up":          "melhora significativa",
		"up":                      "melhora",
		"stable":                  "estável",
		"down":                    "queda",
		"significant_down":        "queda significativa",
		analysis.InsufficientData: "dados insuficientes",
		"very_high":               "muito acima do grupo",
		"high":                    "acima do grupo",
		"average":                 "alinhado ao grupo",
		"low":                     "abaixo do grupo",
		"very_low":                "muito abaixo do grupo",
		"strength":                "ponto forte",
		"improvement":             "oportunidade",
	} {
		_ = message.SetString(ptBR, key, text)
	}
}

// maxFeedbackGaps caps the stakeholder gaps listed per report.
const maxFeedbackGaps = 5

type feedback struct {
	b strings.Builder
	p *message.Printer
}

func (f *feedback) line(format string, args ...any) {
	f.b.WriteString(f.p.Sprintf(format, args...))
	f.b.WriteString("\n")
}

// label translates a classification label; unknown labels pass through.
func (f *feedback) label(l string) string {
	if l == "" {
		return "-"
	}
	return f.p.Sprintf(l)
}

func (f *feedback) avg(a aggregate.Average) string {
	if !a.Valid {
		return "-"
	}
	return f.p.Sprintf("%.2f", a.Value)
}

func (f *feedback) signed(v float64) string {
	if v > 0 {
		return f.p.Sprintf("+%.2f", v)
	}
	return f.p.Sprintf("%.2f", v)
}

// Feedback renders a person's Markdown feedback report: executive summary,
// timeline, year-by-year drivers, strengths and improvement opportunities,
// peer comparison in the latest year and stakeholder perspective gaps.
// Numbers are formatted for pt-BR.
func Feedback(a *analysis.Analyzer, person string) (string, error) {
	tr, err := a.Trend(person)
	if err != nil {
		return "", err
	}
	e := a.Engine()
	ds := e.Dataset()
	years := ds.PersonYears(person)
	latest := years[len(years)-1]
	summary, err := e.PersonYear(person, latest)
	if err != nil {
		return "", err
	}

	f := &feedback{p: message.NewPrinter(ptBR)}
	f.line("# Relatório de Feedback: %s", person)
	f.line("")

	f.line("## Resumo Executivo")
	f.line("")
	f.line("- Último ciclo avaliado: **%s** (%s)", latest, orDash(summary.Concept))
	f.line("- Score médio: **%s** (grupo: %s, diferença: %s)",
		f.avg(summary.AverageScore), f.avg(summary.AverageGroupScore), f.avg(summary.Difference))
	f.line("- Desempenho em relação ao grupo: %s", f.label(tr.Performance))
	if tr.Change.Valid {
		f.line("- Tendência %s a %s: %s (%s)", tr.FirstYear, tr.LastYear, f.label(tr.Classification), f.signed(tr.Change.Value))
	} else {
		f.line("- Tendência: %s", f.label(tr.Classification))
	}
	f.line("")

	f.line("## Trajetória de Desempenho")
	f.line("")
	f.line("| Ano | Conceito | Score | Grupo | Diferença | Ranking |")
	f.line("|---|---|---:|---:|---:|---:|")
	for _, p := range tr.Years {
		f.line("| %s | %s | %s | %s | %s | %s |", p.Year, orDash(p.Concept),
			f.avg(p.AverageScore), f.avg(p.AverageGroupScore), f.avg(p.Difference), orDash(rank(p.Rank)))
	}
	f.line("")
	if len(tr.Drivers) > 0 {
		f.line("| Direcionador | %s | %s | Variação | Tendência |", tr.FirstYear, tr.LastYear)
		f.line("|---|---:|---:|---:|---|")
		for _, d := range tr.Drivers {
			f.line("| %s | %s | %s | %s | %s |", d.Driver, f.avg(d.First), f.avg(d.Last), f.avg(d.Change), f.label(d.Classification))
		}
		f.line("")
	}

	f.line("## Análise Anual Detalhada")
	f.line("")
	for _, y := range years {
		ev, _ := ds.Get(person, y)
		f.line("### %s - %s", y, orDash(ev.Concept))
		f.line("")
		f.line("#### Desempenho por Direcionador")
		f.line("")
		f.line("| Direcionador | Score | Grupo | Diferença | Comportamentos |")
		f.line("|---|---:|---:|---:|---:|")
		for _, d := range e.DriverAverages(ev) {
			f.line("| %s | %s | %s | %s | %d |", d.Driver, f.avg(d.Average), f.avg(d.GroupAverage), f.avg(d.Difference), d.Count)
		}
		f.line("")
	}

	h, err := a.Highlights(person, latest)
	if err != nil {
		return "", err
	}
	f.line("## Pontos Fortes e Oportunidades de Desenvolvimento")
	f.line("")
	f.line("### Principais Pontos Fortes")
	f.line("")
	f.diffList(h.Strengths)
	f.line("### Principais Oportunidades de Desenvolvimento")
	f.line("")
	f.diffList(h.Improvements)

	f.comparison(e, person, latest, tr)

	gaps, err := a.Gaps(person, latest)
	if err != nil {
		return "", err
	}
	f.line("## Perspectivas dos Avaliadores (%s)", latest)
	f.line("")
	if len(gaps) == 0 {
		f.line("Não há avaliadores suficientes para comparar perspectivas.")
	} else {
		f.line("| Direcionador | Comportamento | Gap | Maior | Menor |")
		f.line("|---|---|---:|---|---|")
		for _, g := range gaps[:min(len(gaps), maxFeedbackGaps)] {
			f.line("| %s | %s | %.2f | %s (%.2f) | %s (%.2f) |", g.Driver, g.Behavior, g.Gap,
				g.MaxStakeholder, g.MaxScore, g.MinStakeholder, g.MinScore)
		}
	}
	f.line("")
	return f.b.String(), nil
}

func (f *feedback) diffList(ds []analysis.BehaviorDiff) {
	if len(ds) == 0 {
		f.line("Sem dados comparáveis com o grupo.")
		f.line("")
		return
	}
	for i, d := range ds {
		f.line("%d. **%s** (%s): %.2f vs grupo %.2f (%s), %s", i+1, d.Behavior, d.Driver,
			d.Score, d.GroupScore, f.signed(d.Difference), f.label(d.Performance))
	}
	f.line("")
}

func (f *feedback) comparison(e *aggregate.Engine, person, year string, tr *analysis.Trend) {
	rs := e.RankYear(year)
	r, _ := e.RankOf(person, year)
	var ranked int
	for _, x := range rs {
		if x.Rank > 0 {
			ranked++
		}
	}

	f.line("## Comparação com o Grupo (%s)", year)
	f.line("")
	f.line("### Posicionamento no Grupo")
	f.line("")
	if r.Rank > 0 {
		f.line("- Posição: **%d** de %d", r.Rank, ranked)
		f.line("- Percentil: %.1f", r.Percentile)
		f.line("- Faixa de carreira: %s", orDash(r.Band))
	} else {
		f.line("- Sem score para o ranking deste ano.")
	}
	f.line("")

	f.line("```mermaid")
	f.b.WriteString(mermaidChart(person, tr))
	f.line("```")
	f.line("")
}

// mermaidChart plots the person's score against the group per year. Mermaid
// needs dot decimals, so the values bypass the pt-BR printer.
func mermaidChart(person string, tr *analysis.Trend) string {
	var years, ind, grp []string
	for _, p := range tr.Years {
		if !p.AverageScore.Valid {
			continue
		}
		years = append(years, strconv.Quote(p.Year))
		ind = append(ind, p.AverageScore.Format(Decimals))
		grp = append(grp, p.AverageGroupScore.Format(Decimals))
	}
	var b strings.Builder
	b.WriteString("xychart-beta\n")
	fmt.Fprintf(&b, "    title %s\n", strconv.Quote("Score x Grupo: "+person))
	fmt.Fprintf(&b, "    x-axis [%s]\n", strings.Join(years, ", "))
	b.WriteString("    y-axis \"Score\" 0 --> 5\n")
	fmt.Fprintf(&b, "    line [%s]\n", strings.Join(ind, ", "))
	fmt.Fprintf(&b, "    line [%s]\n", strings.Join(grp, ", "))
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
