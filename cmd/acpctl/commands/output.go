package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// printer renders command output as a table or as JSON
type printer struct {
	stdout io.Writer
	stderr io.Writer
	json   bool
	color  bool
}

func (p *printer) printJSON(data any) error {
	enc := json.NewEncoder(p.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (p *printer) printTable(headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(p.stdout, 0, 0, 2, ' ', 0)

	headerLine := make([]string, len(headers))
	for i, h := range headers {
		headerLine[i] = strings.ToUpper(h)
		if p.color {
			headerLine[i] = color.New(color.Bold).Sprint(headerLine[i])
		}
	}
	if _, err := fmt.Fprintln(w, strings.Join(headerLine, "\t")); err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (p *printer) printSummary(format string, args ...any) error {
	if p.json {
		_, err := fmt.Fprintf(p.stderr, format+"\n", args...)
		return err
	}
	if p.color {
		_, err := color.New(color.FgGreen).Fprintf(p.stdout, format+"\n", args...)
		return err
	}
	_, err := fmt.Fprintf(p.stdout, format+"\n", args...)
	return err
}

func (p *printer) printError(err error) {
	if p.json {
		_ = p.printJSON(map[string]any{"success": false, "error": err.Error()})
		return
	}
	if p.color {
		_, _ = color.New(color.FgRed).Fprintf(p.stderr, "Error: %v\n", err)
		return
	}
	_, _ = fmt.Fprintf(p.stderr, "Error: %v\n", err)
}

// phaseColor highlights where a job sits in its lifecycle
func (p *printer) phaseColor(phase string) string {
	if !p.color {
		return phase
	}
	switch phase {
	case "COMPLETED":
		return color.GreenString(phase)
	case "REJECTED", "EXPIRED":
		return color.RedString(phase)
	default:
		return color.YellowString(phase)
	}
}
