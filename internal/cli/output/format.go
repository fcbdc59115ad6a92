// Package output renders command results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marmos91/labelhub/internal/logger"
)

// Format is an output format selected with --output.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses the value of --output. An empty value means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid output format %q (valid: table, json, yaml)", s)
}

func (f Format) String() string {
	return string(f)
}

// Printer writes command results in one format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// StdoutPrinter writes to stdout, coloured when stdout is a terminal.
func StdoutPrinter(format Format) *Printer {
	return NewPrinter(os.Stdout, format, logger.IsTerminal(os.Stdout))
}

func (p *Printer) Format() Format    { return p.format }
func (p *Printer) Writer() io.Writer { return p.out }

// Structured reports whether results are machine-readable. Commands skip
// decorative messages when it is true.
func (p *Printer) Structured() bool {
	return p.format == FormatJSON || p.format == FormatYAML
}

// Print writes data. In table format data must implement TableRenderer;
// anything else falls back to JSON.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatJSON:
		return EncodeJSON(p.out, data)
	case FormatYAML:
		return EncodeYAML(p.out, data)
	case FormatTable:
		if r, ok := data.(TableRenderer); ok {
			return PrintTable(p.out, r)
		}
		return EncodeJSON(p.out, data)
	}
	return fmt.Errorf("unknown output format %q", p.format)
}

func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) Println(args ...any) {
	_, _ = fmt.Fprintln(p.out, args...)
}

const (
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiReset  = "\033[0m"
)

func (p *Printer) colored(code, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "%s%s%s\n", code, msg, ansiReset)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}

func (p *Printer) Success(msg string) { p.colored(ansiGreen, msg) }
func (p *Printer) Warning(msg string) { p.colored(ansiYellow, msg) }
func (p *Printer) Error(msg string)   { p.colored(ansiRed, msg) }
