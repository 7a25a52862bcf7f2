package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// SummaryData is the already formatted financial dashboard.
type SummaryData struct {
	Title       string
	Reference   string
	GeneratedAt string

	Totals   []SummaryLine
	Counters []SummaryLine
	Series   []SummaryLine
}

type SummaryLine struct {
	Label    string
	Current  string
	Previous string
	Delta    string
}

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) GenerateSummary(ctx context.Context, data SummaryData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, data.Title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(12,
		col.New(8).Add(
			text.New("Referência: "+data.Reference, props.Text{Top: 0}),
			text.New("Gerado em: "+data.GeneratedAt, props.Text{Top: 5}),
		),
		col.New(4),
	)

	m.AddRow(10,
		text.NewCol(6, "Valores", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Mês atual", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Mês anterior", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Variação", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range data.Totals {
		m.AddRow(8,
			text.NewCol(6, line.Label, props.Text{Size: 9}),
			text.NewCol(2, line.Current, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, line.Previous, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, line.Delta, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(14,
		text.NewCol(12, "Relatórios", props.Text{Style: fontstyle.Bold, Size: 12, Top: 6}),
	)
	for _, line := range data.Counters {
		m.AddRow(8,
			text.NewCol(10, line.Label, props.Text{Size: 9}),
			text.NewCol(2, line.Current, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(14,
		text.NewCol(12, "Concluídos nos últimos 12 meses", props.Text{Style: fontstyle.Bold, Size: 12, Top: 6}),
	)
	for _, line := range data.Series {
		m.AddRow(7,
			text.NewCol(6, line.Label, props.Text{Size: 9}),
			text.NewCol(6, line.Current, props.Text{Size: 9, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
