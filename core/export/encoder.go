package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format names an export encoding
type Format string

const (
	// FormatCSV is comma-delimited text
	FormatCSV Format = "csv"

	// FormatText is an aligned, locale-formatted table
	FormatText Format = "text"

	// FormatXLSX and FormatPDF are produced by external encoders
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Encoder produces a file from rows
type Encoder interface {
	// Format returns the encoding this encoder produces
	Format() Format

	// Encode writes title and rows to w
	Encode(w io.Writer, title string, rows []Row) error
}

// CSVEncoder writes delimited text
type CSVEncoder struct {
	// Comma overrides the field delimiter
	Comma rune
}

// Format implements Encoder
func (CSVEncoder) Format() Format { return FormatCSV }

// Encode implements Encoder
func (e CSVEncoder) Encode(w io.Writer, title string, rows []Row) error {
	cw := csv.NewWriter(w)
	if e.Comma != 0 {
		cw.Comma = e.Comma
	}
	if err := cw.Write([]string{title}); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = csvCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// TextEncoder writes an aligned table with numbers formatted for a locale
type TextEncoder struct {
	printer *message.Printer
}

// NewTextEncoder creates a text encoder for a BCP 47 locale such as
// "en-US". Unparseable locales fall back to American English.
func NewTextEncoder(locale string) *TextEncoder {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &TextEncoder{printer: message.NewPrinter(tag)}
}

// Format implements Encoder
func (*TextEncoder) Format() Format { return FormatText }

// Encode implements Encoder
func (e *TextEncoder) Encode(w io.Writer, title string, rows []Row) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n\n", title, strings.Repeat("=", len(title))); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = e.cell(cell)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func (e *TextEncoder) cell(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return e.printer.Sprintf("%.2f", v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
