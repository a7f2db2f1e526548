// Package export renders the inventory list into downloadable documents.
package export

import (
	"fmt"
	"strings"

	"fsaeinventory/internal/models"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// baseName is the download name without extension.
const baseName = "inventory"

// Document is a rendered export ready to be sent to the client.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// ParseFormat accepts a format name or a file extension (".csv").
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	switch f {
	case FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) FileName() string {
	return baseName + "." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Render builds the document for items in the requested format.
func Render(f Format, items []models.Item) (*Document, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatCSV:
		data = CSV(items)
	case FormatXLSX:
		data, err = XLSX(items)
	case FormatPDF:
		data, err = PDF(items)
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return &Document{Name: f.FileName(), ContentType: f.ContentType(), Data: data}, nil
}
