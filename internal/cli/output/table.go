package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by results that print as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// PrintTable renders data with upper-cased headers and no borders.
func PrintTable(w io.Writer, data TableRenderer) error {
	table := newTable(w)
	table.SetAutoFormatHeaders(true)
	table.SetColumnSeparator("")
	table.SetHeader(data.Headers())
	table.AppendBulk(data.Rows())
	table.Render()
	return nil
}

// Table is an ad-hoc TableRenderer.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable returns an empty table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row. Values are formatted with %v.
func (t *Table) AddRow(values ...any) {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = fmt.Sprint(v)
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Headers() []string { return t.headers }
func (t *Table) Rows() [][]string  { return t.rows }
func (t *Table) Len() int          { return len(t.rows) }

// KeyValues prints "key: value" lines aligned on the colon.
func KeyValues(w io.Writer, pairs [][2]string) error {
	table := newTable(w)
	table.SetAutoFormatHeaders(false)
	table.SetColumnSeparator(":")
	for _, p := range pairs {
		table.Append([]string{p[0], p[1]})
	}
	table.Render()
	return nil
}

const barWidth = 20

// Bar renders processed/total as a fixed-width bar with a percentage,
// e.g. "[#########-----------]  45.0%". A zero total renders empty.
func Bar(processed, total int) string {
	ratio := 0.0
	if total > 0 {
		ratio = float64(processed) / float64(total)
	}
	ratio = min(max(ratio, 0), 1)
	filled := int(ratio * barWidth)
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled), ratio*100)
}
