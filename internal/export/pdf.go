package export

import (
	"fmt"
	"strconv"
	"time"

	"fsaeinventory/internal/models"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 192, Green: 0, Blue: 0}
	colorAmber   = &props.Color{Red: 191, Green: 120, Blue: 0}
)

// pdfColumn widths sum to the 12-column grid.
type pdfColumn struct {
	title string
	size  int
	align align.Type
}

var pdfColumns = []pdfColumn{
	{"ID", 1, align.Center},
	{"Name", 3, align.Left},
	{"Category", 2, align.Left},
	{"Qty", 1, align.Right},
	{"Min", 1, align.Right},
	{"Unit", 1, align.Center},
	{"Location", 1, align.Left},
	{"Status", 2, align.Left},
}

// PDF renders a printable A4 stock sheet.
func PDF(items []models.Item) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("FSAE Inventory", true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(titleRow(len(items)))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	for _, item := range items {
		m.AddRows(itemRow(item))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generate document: %w", err)
	}
	return doc.GetBytes(), nil
}

func titleRow(count int) core.Row {
	return row.New(14).Add(
		col.New(8).Add(
			text.New("FSAE Inventory", props.Text{
				Style: fontstyle.Bold, Size: 14, Color: colorPrimary, Top: 1,
			}),
		),
		col.New(4).Add(
			text.New(time.Now().Format("02.01.2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
			text.New(strconv.Itoa(count)+" items", props.Text{
				Size: 8, Align: align.Right, Top: 7, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	cols := make([]core.Col, 0, len(pdfColumns))
	for _, c := range pdfColumns {
		cols = append(cols, col.New(c.size).Add(text.New(c.title, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: c.align,
			Color: colorPrimary, Top: 1, Left: 1, Right: 1,
		})))
	}
	return row.New(7).Add(cols...)
}

func itemRow(item models.Item) core.Row {
	values := []string{
		strconv.FormatInt(item.ID, 10),
		item.Name,
		item.Category,
		strconv.FormatInt(item.Quantity, 10),
		strconv.FormatInt(item.MinStock, 10),
		item.Unit,
		item.Location,
		string(item.Status),
	}
	cols := make([]core.Col, 0, len(pdfColumns))
	for i, c := range pdfColumns {
		p := props.Text{Size: 8, Align: c.align, Top: 1, Left: 1, Right: 1}
		if i == len(pdfColumns)-1 {
			p.Color = statusColor(item.Status)
			p.Style = fontstyle.Bold
		}
		cols = append(cols, col.New(c.size).Add(text.New(values[i], p)))
	}
	return row.New(6).Add(cols...)
}

func statusColor(s models.Status) *props.Color {
	switch s {
	case models.StatusOutOfStock:
		return colorRed
	case models.StatusLow:
		return colorAmber
	default:
		return colorGray
	}
}
