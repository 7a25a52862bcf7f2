// Package assemble resolves a stored report aggregate into the view model
// the document template renders.
package assemble

import (
	"fmt"
	"html"
	"html/template"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/laudo/internal/clock"
	"github.com/smallbiznis/laudo/internal/config"
	"github.com/smallbiznis/laudo/internal/inference"
	"github.com/smallbiznis/laudo/internal/report/domain"
	"github.com/smallbiznis/laudo/internal/report/format"
	"github.com/smallbiznis/laudo/internal/report/render"
)

type Assembler struct {
	loc   *time.Location
	clock clock.Clock
}

func New(cfg config.Config, clk clock.Clock) (*Assembler, error) {
	name := strings.TrimSpace(cfg.DisplayTimezone)
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load display timezone %q: %w", name, err)
	}
	return NewWithLocation(loc, clk), nil
}

func NewWithLocation(loc *time.Location, clk clock.Clock) *Assembler {
	if loc == nil {
		loc = time.UTC
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Assembler{loc: loc, clock: clk}
}

// Build turns agg into a view model. Relative file references resolve
// against uploadsRoot.
func (a *Assembler) Build(agg *domain.Aggregate, uploadsRoot string) (render.ViewModel, error) {
	if agg == nil {
		return render.ViewModel{}, domain.ErrNotFound
	}
	r := agg.Report

	sections, photoIndex, err := a.photos(agg.Photos, uploadsRoot)
	if err != nil {
		return render.ViewModel{}, err
	}

	isolationReadings := make([]inference.IsolationReading, 0, len(agg.Isolation))
	for _, m := range agg.Isolation {
		isolationReadings = append(isolationReadings, inference.IsolationReading{Value: m.Value, Unit: m.Unit})
	}
	runoutReadings := make([]inference.RunoutReading, 0, len(agg.Runout))
	for _, m := range agg.Runout {
		runoutReadings = append(runoutReadings, inference.RunoutReading{Measured: m.MeasuredValue, Tolerance: m.Tolerance})
	}

	isolationVerdict := inference.EvaluateIsolation(isolationReadings)
	runoutVerdict := inference.EvaluateRunout(runoutReadings)
	isolationConclusion := conclusion(r.IsolationConclusion, inference.InferIsolationConclusion(isolationReadings), isolationVerdict)
	runoutConclusion := conclusion(r.RunoutConclusion, inference.InferRunoutConclusion(runoutReadings), runoutVerdict)

	overall := overallConclusion(r.Conclusion, isolationReadings, runoutReadings, isolationVerdict, runoutVerdict)

	vm := render.ViewModel{
		ReportID:           r.ID.String(),
		Title:              format.Text(r.Title),
		WorkOrder:          format.Text(r.WorkOrder),
		TechnicalReference: format.Text(r.TechnicalReference),
		EmissionDate:       format.Date(r.EmissionDate, a.loc),
		GeneratedAt:        a.clock.Now().In(a.loc).Format("02/01/2006 15:04"),
		Client: render.ClientView{
			Name:    format.Text(r.ClientName),
			TaxID:   format.Text(r.ClientTaxID),
			Address: format.Text(r.ClientAddress),
			City:    format.Text(r.ClientCity),
			State:   format.Text(r.ClientState),
			Zip:     format.Text(r.ClientZip),
		},
		Objective:           narrative(r.Objective),
		DamageCauses:        narrative(r.DamageCauses),
		Description:         narrative(r.Description),
		Isolation:           isolationRows(agg.Isolation),
		IsolationConclusion: isolationConclusion,
		Runout:              runoutRows(agg.Runout),
		RunoutConclusion:    runoutConclusion,
		CurrentParts:        currentPartRows(agg.CurrentParts),
		Conclusion:          overall,
		Quote:               quote(agg.QuotedParts, agg.QuotedServices),
		PhotoSections:       sections,
		PhotoIndex:          photoIndex,
		Index:               render.DocumentIndex(),
		Signatures: render.Signatures{
			PreparedBy:    format.Text(r.PreparedBy),
			CheckedBy:     format.Text(r.CheckedBy),
			ApprovedBy:    format.Text(r.ApprovedBy),
			SignatureHash: strings.TrimSpace(r.SignatureHash),
		},
	}
	if logo := strings.TrimSpace(r.ClientLogo); logo != "" {
		vm.ClientLogoPath = resolvePath(uploadsRoot, logo)
	}
	return vm, nil
}

func (a *Assembler) photos(items []domain.Photo, uploadsRoot string) ([]render.PhotoSection, []render.PhotoView, error) {
	grouped := make(map[domain.Section][]domain.Photo, len(domain.Sections))
	for _, p := range items {
		if !p.Section.Valid() {
			return nil, nil, fmt.Errorf("%w: photo %s tagged %q", domain.ErrInvalidSection, p.ID, p.Section)
		}
		grouped[p.Section] = append(grouped[p.Section], p)
	}

	sections := make([]render.PhotoSection, 0, len(domain.Sections))
	index := make([]render.PhotoView, 0, len(items))
	seq := 0
	for _, s := range domain.Sections {
		section := render.PhotoSection{
			Tag:    string(s),
			Title:  s.Title(),
			Anchor: "fotos-" + string(s),
			Photos: []render.PhotoView{},
		}
		for _, p := range grouped[s] {
			seq++
			view := render.PhotoView{
				Index:   seq,
				Legend:  format.Legend(fmt.Sprintf("%s %d", format.PhotoMarker, seq)),
				Caption: format.Text(p.Caption),
				Section: s.Title(),
				URL:     template.URL(fileURL(resolvePath(uploadsRoot, p.FilePath))),
			}
			section.Photos = append(section.Photos, view)
			index = append(index, view)
		}
		sections = append(sections, section)
	}
	return sections, index, nil
}

func resolvePath(root, ref string) string {
	ref = filepath.FromSlash(strings.TrimSpace(ref))
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(root, ref)
	}
	if abs, err := filepath.Abs(ref); err == nil {
		return abs
	}
	return ref
}

func fileURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

func narrative(text string) render.Narrative {
	lines := format.Lines(text)
	switch len(lines) {
	case 0:
		return render.Narrative{Text: format.Placeholder}
	case 1:
		return render.Narrative{Text: lines[0]}
	default:
		return render.Narrative{Items: lines}
	}
}

// conclusion keeps a non-empty manual text and only falls back to the
// inferred one otherwise.
func conclusion(manual, inferred string, verdict inference.Verdict) render.Conclusion {
	if strings.TrimSpace(manual) != "" {
		return render.Conclusion{Text: manualHTML(manual)}
	}
	if inferred == "" {
		return render.Conclusion{Text: template.HTML(format.Placeholder)}
	}
	c := render.Conclusion{Text: template.HTML(inferred), Inferred: true}
	switch verdict {
	case inference.Compliant:
		c.Verdict, c.Badge = "Conforme", "compliant"
	case inference.NonCompliant:
		c.Verdict, c.Badge = "Não conforme", "non-compliant"
	}
	return c
}

func overallConclusion(manual string, isolation []inference.IsolationReading, runout []inference.RunoutReading, iv, rv inference.Verdict) render.Conclusion {
	if strings.TrimSpace(manual) != "" {
		return render.Conclusion{Text: manualHTML(manual)}
	}
	parts := make([]string, 0, 2)
	if text := inference.InferIsolationConclusion(isolation); text != "" {
		parts = append(parts, text)
	}
	if text := inference.InferRunoutConclusion(runout); text != "" {
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		return render.Conclusion{Text: template.HTML(format.Placeholder)}
	}
	verdict := inference.Compliant
	if iv == inference.NonCompliant || rv == inference.NonCompliant {
		verdict = inference.NonCompliant
	}
	return conclusion("", strings.Join(parts, " "), verdict)
}

func manualHTML(text string) template.HTML {
	lines := strings.Split(strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = html.EscapeString(strings.TrimSpace(line))
	}
	return template.HTML(strings.Join(lines, "<br>"))
}

func isolationRows(items []domain.IsolationMeasurement) []render.IsolationRow {
	rows := make([]render.IsolationRow, 0, len(items))
	for i, m := range items {
		rows = append(rows, render.IsolationRow{
			Number:      i + 1,
			Description: format.Text(m.Description),
			Value:       number(m.Value),
			Unit:        format.Text(m.Unit),
			Normalized:  number(inference.NormalizeIsolation(m.Value, m.Unit)),
		})
	}
	return rows
}

func runoutRows(items []domain.RunoutMeasurement) []render.RunoutRow {
	rows := make([]render.RunoutRow, 0, len(items))
	for i, m := range items {
		status := "-"
		switch inference.EvaluateRunout([]inference.RunoutReading{{Measured: m.MeasuredValue, Tolerance: m.Tolerance}}) {
		case inference.Compliant:
			status = "Conforme"
		case inference.NonCompliant:
			status = "Fora da tolerância"
		}
		rows = append(rows, render.RunoutRow{
			Number:      i + 1,
			Description: format.Text(m.Description),
			Measured:    format.Text(m.MeasuredValue),
			Tolerance:   format.Text(m.Tolerance),
			Unit:        format.Text(m.Unit),
			Status:      status,
		})
	}
	return rows
}

func currentPartRows(items []domain.CurrentPartNote) []render.CurrentPartRow {
	rows := make([]render.CurrentPartRow, 0, len(items))
	for i, n := range items {
		rows = append(rows, render.CurrentPartRow{
			Number:      i + 1,
			Description: format.Text(n.Description),
			Observation: format.Text(n.Observation),
		})
	}
	return rows
}

func quote(parts []domain.QuotedPart, services []domain.QuotedService) render.Quote {
	q := render.Quote{}
	partsTotal := decimal.Zero
	for _, p := range parts {
		total := p.LineTotal()
		partsTotal = partsTotal.Add(total)
		q.Parts = append(q.Parts, render.QuotedRow{
			Legend:      format.Legend(p.Code),
			Description: format.Text(p.Description),
			Quantity:    format.Quantity(p.Quantity),
			UnitValue:   format.Currency(p.ChargedValue),
			Total:       format.Currency(total),
		})
	}
	servicesTotal := decimal.Zero
	for _, s := range services {
		total := s.LineTotal()
		servicesTotal = servicesTotal.Add(total)
		q.Services = append(q.Services, render.QuotedRow{
			Legend:      format.Legend(s.Code),
			Description: format.Text(s.Description),
			Quantity:    format.Quantity(s.Quantity),
			UnitValue:   format.Currency(s.ChargedValue),
			Total:       format.Currency(total),
		})
	}
	q.PartsTotal = format.Currency(partsTotal)
	q.ServicesTotal = format.Currency(servicesTotal)
	q.GrandTotal = format.Currency(partsTotal.Add(servicesTotal))
	return q
}

func number(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}
