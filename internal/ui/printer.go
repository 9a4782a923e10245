package ui

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
)

// TimeLayout formats logger timestamps for display
const TimeLayout = "2006-01-02 15:04:05"

// Printer writes decoded records and command results. Boxes and colour are
// only used when the output is a terminal; otherwise it prints plain text
// suitable for files and pipes.
type Printer struct {
	out    io.Writer
	tty    bool
	width  int
	styles Styles
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}

	tty := false
	if f, ok := w.(*os.File); ok {
		tty = IsTerminal(f)
	}

	width := MaxContentWidth
	if tty {
		width = GetTerminalWidth()
	}

	return &Printer{
		out:    w,
		tty:    tty,
		width:  width,
		styles: NewStyles(lipgloss.NewRenderer(w)),
	}
}

// Width returns the content width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Header prints a title with ordered parameters. On a terminal it is drawn
// in a rounded box.
func (p *Printer) Header(title string, params ...Param) {
	lines := []string{p.styles.Station.Render(strings.ToUpper(title))}
	for _, param := range params {
		lines = append(lines, p.styles.Key.Render(param.Key+":")+p.styles.Value.Render(param.Value))
	}
	content := strings.Join(lines, "\n")

	if p.tty {
		content = p.styles.Border.Width(p.width - 2).Render(content)
	}
	p.Println(content)
}

// Param is one key/value line of a header or result
type Param struct {
	Key   string
	Value string
}

// Record prints one decoded record as a block of key/value lines
func (p *Printer) Record(station string, rec protocol.Record) {
	p.Println(p.RenderRecord(station, rec))
}

// RenderRecord renders one record without printing it
func (p *Printer) RenderRecord(station string, rec protocol.Record) string {
	title := strings.Join([]string{
		p.styles.Station.Render(station),
		p.styles.Kind.Render(rec.Kind().String()),
		p.styles.Timestamp.Render(rec.Time().Format(TimeLayout)),
	}, "  ")

	lines := []string{title}
	line := func(key, value string) {
		lines = append(lines, p.styles.Key.Render(key)+value)
	}

	switch r := rec.(type) {
	case *protocol.LoggerStatus:
		line("solar_battery", p.value(r.SolarBattery))
		line("lithium_battery", p.value(r.LithiumBattery))
		line("wind_diag", p.value(r.WindDiag))
		line("cf_card", p.styles.Value.Render(strconv.FormatUint(uint64(r.CFCard), 10)))
	case *protocol.WeatherSample:
		for i, v := range r.Fields() {
			line(protocol.WeatherFieldNames[i], p.value(v))
		}
	}

	return strings.Join(lines, "\n")
}

// value renders a measurement, highlighting the FP2 special values
func (p *Printer) value(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return p.styles.Missing.Render(FormatValue(v))
	}
	return p.styles.Value.Render(FormatValue(v))
}

// FormatValue prints a measurement with the shortest exact representation
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// Failure prints a one-line error for a source that could not be processed
func (p *Printer) Failure(source string, err error) {
	p.Println(p.styles.Error.Render(FailureMarker+" "+source) + "  " + err.Error())
}

// Success prints a one-line success message with details
func (p *Printer) Success(title string, params ...Param) {
	p.Println(p.styles.Success.Render(SuccessMarker + " " + title))
	for _, param := range params {
		p.Println(p.styles.Key.Render(param.Key+":") + p.styles.Value.Render(param.Value))
	}
}

// Muted prints secondary information
func (p *Printer) Muted(content string) {
	p.Println(p.styles.Muted.Render(content))
}
