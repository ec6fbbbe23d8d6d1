package report

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/analysis"
	"github.com/sells-group/people-analytics/internal/model"
)

// Sheet names of the comparative workbook.
const (
	SheetOverview     = "Visão Geral"
	SheetTrends       = "Tendências"
	SheetGaps         = "Análise de Gaps"
	SheetPerspectives = "Perspectivas"
	detailSheetPrefix = "Detalhes "
)

const scoreFormat = "0.00"

// DetailSheet is the name of a year's detail sheet.
func DetailSheet(year string) string { return detailSheetPrefix + year }

// Workbook builds the comparative workbook: an overview of every person and
// year, one detail sheet per year, trends, the weakest behaviors of each
// person in the latest year and stakeholder perspective gaps.
func Workbook(a *analysis.Analyzer) (*xlsx.File, error) {
	f := xlsx.NewFile()
	e := a.Engine()
	ds := e.Dataset()

	if err := overviewSheet(f, e); err != nil {
		return nil, err
	}
	for _, y := range ds.Years() {
		if err := detailSheet(f, e, y); err != nil {
			return nil, err
		}
	}
	if err := trendsSheet(f, a); err != nil {
		return nil, err
	}
	if err := gapsSheet(f, a); err != nil {
		return nil, err
	}
	if err := perspectivesSheet(f, a); err != nil {
		return nil, err
	}
	return f, nil
}

// SaveWorkbook builds the workbook and writes it to path.
func SaveWorkbook(a *analysis.Analyzer, path string) error {
	f, err := Workbook(a)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "report: save workbook %s", path)
}

func addSheet(f *xlsx.File, name string, header []string) (*xlsx.Sheet, error) {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "report: add sheet %s", name)
	}
	row := sheet.AddRow()
	for _, h := range header {
		c := row.AddCell()
		c.SetString(h)
		c.GetStyle().Font.Bold = true
	}
	return sheet, nil
}

func addString(row *xlsx.Row, s string) { row.AddCell().SetString(s) }

func addFloat(row *xlsx.Row, v float64) { row.AddCell().SetFloatWithFormat(v, scoreFormat) }

func addAverage(row *xlsx.Row, a aggregate.Average) {
	if !a.Valid {
		row.AddCell()
		return
	}
	addFloat(row, a.Value)
}

func addRank(row *xlsx.Row, r int) {
	if r == 0 {
		row.AddCell()
		return
	}
	row.AddCell().SetInt(r)
}

func overviewSheet(f *xlsx.File, e *aggregate.Engine) error {
	ds := e.Dataset()
	years := ds.Years()
	header := []string{"Pessoa"}
	for _, y := range years {
		header = append(header,
			"Conceito "+y, "Score "+y, "Score Grupo "+y, "Diferença "+y, "Ranking "+y)
	}
	sheet, err := addSheet(f, SheetOverview, header)
	if err != nil {
		return err
	}

	for _, p := range ds.People() {
		row := sheet.AddRow()
		addString(row, p)
		for _, y := range years {
			s, err := e.PersonYear(p, y)
			if err != nil {
				addString(row, "n/a")
				row.AddCell()
				row.AddCell()
				row.AddCell()
				row.AddCell()
				continue
			}
			addString(row, s.Concept)
			addAverage(row, s.AverageScore)
			addAverage(row, s.AverageGroupScore)
			addAverage(row, s.Difference)
			r, _ := e.RankOf(p, y)
			addRank(row, r.Rank)
		}
	}
	return nil
}

func detailSheet(f *xlsx.File, e *aggregate.Engine, year string) error {
	keys := analysis.YearCriteria(e.Dataset(), year).Keys()
	header := []string{"Pessoa", "Conceito"}
	for _, k := range keys {
		col := k.Driver + " - " + k.Behavior
		header = append(header, col, col+" (Grupo)", col+" (Diff)", col+" (Ranking)")
	}
	sheet, err := addSheet(f, DetailSheet(year), header)
	if err != nil {
		return err
	}

	ranks := e.BehaviorRanks(year)
	for _, ev := range e.Dataset().ForYear(year) {
		byKey := make(map[model.BehaviorKey]aggregate.BehaviorScore)
		for _, bs := range e.BehaviorScores(ev) {
			if e.Counts(bs) {
				if _, dup := byKey[bs.Key()]; !dup {
					byKey[bs.Key()] = bs
				}
			}
		}

		row := sheet.AddRow()
		addString(row, ev.Person)
		addString(row, ev.Concept)
		for _, k := range keys {
			bs, ok := byKey[k]
			if !ok {
				row.AddCell()
				row.AddCell()
				row.AddCell()
				row.AddCell()
				continue
			}
			addFloat(row, bs.Overall.Individual)
			addFloat(row, bs.Overall.Group)
			addFloat(row, bs.Overall.Difference)
			addRank(row, ranks[k][ev.Person])
		}
	}
	return nil
}

func trendsSheet(f *xlsx.File, a *analysis.Analyzer) error {
	sheet, err := addSheet(f, SheetTrends, []string{
		"Pessoa", "Primeiro Ano", "Último Ano", "Score Inicial", "Score Final",
		"Variação", "Tendência", "Variação Gap", "Desempenho",
	})
	if err != nil {
		return err
	}
	for _, p := range a.Engine().Dataset().People() {
		tr, err := a.Trend(p)
		if err != nil {
			return err
		}
		row := sheet.AddRow()
		addString(row, p)
		addString(row, tr.FirstYear)
		addString(row, tr.LastYear)
		first, last := aggregate.Average{}, aggregate.Average{}
		for _, yp := range tr.Years {
			if yp.Year == tr.FirstYear {
				first = yp.AverageScore
			}
			if yp.Year == tr.LastYear {
				last = yp.AverageScore
			}
		}
		addAverage(row, first)
		addAverage(row, last)
		addAverage(row, tr.Change)
		addString(row, tr.Classification)
		addAverage(row, tr.GapChange)
		addString(row, tr.Performance)
	}
	return nil
}

// gapsSheet lists, for every person evaluated in the latest year, the
// behaviors furthest below and above the group.
func gapsSheet(f *xlsx.File, a *analysis.Analyzer) error {
	e := a.Engine()
	years := e.Dataset().Years()
	header := []string{"Pessoa", "Conceito", "Score Médio", "Score Grupo", "Diferença"}
	const n = 3
	for i := 1; i <= n; i++ {
		header = append(header, fmt.Sprintf("Gap %d", i), fmt.Sprintf("Diferença Gap %d", i))
	}
	for i := 1; i <= n; i++ {
		header = append(header, fmt.Sprintf("Força %d", i), fmt.Sprintf("Diferença Força %d", i))
	}
	sheet, err := addSheet(f, SheetGaps, header)
	if err != nil {
		return err
	}
	if len(years) == 0 {
		return nil
	}

	last := years[len(years)-1]
	for _, ev := range e.Dataset().ForYear(last) {
		s, err := e.PersonYear(ev.Person, last)
		if err != nil {
			return err
		}
		h, err := a.Highlights(ev.Person, last)
		if err != nil {
			return err
		}
		row := sheet.AddRow()
		addString(row, ev.Person)
		addString(row, s.Concept)
		addAverage(row, s.AverageScore)
		addAverage(row, s.AverageGroupScore)
		addAverage(row, s.Difference)
		addDiffs(row, h.Improvements, n)
		addDiffs(row, h.Strengths, n)
	}
	return nil
}

func addDiffs(row *xlsx.Row, ds []analysis.BehaviorDiff, n int) {
	for i := 0; i < n; i++ {
		if i >= len(ds) {
			row.AddCell()
			row.AddCell()
			continue
		}
		addString(row, ds[i].Driver+" - "+ds[i].Behavior)
		addFloat(row, ds[i].Difference)
	}
}

func perspectivesSheet(f *xlsx.File, a *analysis.Analyzer) error {
	sheet, err := addSheet(f, SheetPerspectives, []string{
		"Pessoa", "Ano", "Direcionador", "Comportamento", "Gap",
		"Maior Avaliação", "Score Maior", "Menor Avaliação", "Score Menor",
	})
	if err != nil {
		return err
	}

	var all []analysis.StakeholderGap
	ds := a.Engine().Dataset()
	for _, p := range ds.People() {
		for _, y := range ds.PersonYears(p) {
			gs, err := a.Gaps(p, y)
			if err != nil {
				return err
			}
			all = append(all, gs...)
		}
	}
	analysis.SortGaps(all)

	for _, g := range all {
		row := sheet.AddRow()
		addString(row, g.Person)
		addString(row, g.Year)
		addString(row, g.Driver)
		addString(row, g.Behavior)
		addFloat(row, g.Gap)
		addString(row, g.MaxStakeholder)
		addFloat(row, g.MaxScore)
		addString(row, g.MinStakeholder)
		addFloat(row, g.MinScore)
	}
	return nil
}
