package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/roster/roster/pkg/stores"
	"github.com/roster/roster/pkg/telemetry"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Faint(true)
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable renders records as a bordered table.
func renderTable(records []stores.Record) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Fields())
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "NAME", "PROGRAM", "GENDER", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

// printRecord writes one record as labelled lines.
func printRecord(w io.Writer, rec stores.Record) {
	fmt.Fprintf(w, "ID:      %s\n", rec.ID)
	fmt.Fprintf(w, "Name:    %s\n", rec.Name)
	fmt.Fprintf(w, "Program: %s\n", rec.Program)
	fmt.Fprintf(w, "Gender:  %s\n", rec.Gender)
	fmt.Fprintf(w, "Status:  %s\n", rec.Status)
}

// reportImports prints one line to w for every completed import.
func reportImports(w io.Writer, events *telemetry.EventPublisher) {
	var mu sync.Mutex
	events.Subscribe(func(e telemetry.Event) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, e.Message)
	}, telemetry.FilterByType(telemetry.EventTypeImported))
}
