package querychat

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func isValidFormat(format string) bool {
	switch format {
	case formatTable, formatCSV, formatJSON:
		return true
	default:
		return false
	}
}

type answer struct {
	SQL      string   `json:"sql"`
	Executed bool     `json:"executed"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	Failed   bool     `json:"failed"`
}

type schema struct {
	Tables []struct {
		Name    string   `json:"table_name"`
		Columns []string `json:"columns"`
	} `json:"tables"`
}

// renderAnswer prints the generated statement followed by its rows. CSV output
// skips the statement so it can be redirected straight to a file.
func renderAnswer(w io.Writer, body []byte, format string) error {
	var a answer
	if err := decodeJSON(body, &a); err != nil {
		return err
	}

	if format == formatCSV {
		if len(a.Rows) == 0 {
			return nil
		}
		return writeCSV(w, a.Columns, a.Rows)
	}

	_, _ = fmt.Fprintln(w, "Generated SQL Query:")
	_, _ = fmt.Fprintln(w, a.SQL)
	_, _ = fmt.Fprintln(w)
	if len(a.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "No results found.")
		return nil
	}
	newTable(w, a.Columns, a.Rows).Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(a.Rows))
	return nil
}

func renderSchema(w io.Writer, body []byte) error {
	var s schema
	if err := decodeJSON(body, &s); err != nil {
		return err
	}
	if len(s.Tables) == 0 {
		_, _ = fmt.Fprintln(w, "No tables found.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Table", "Columns"})
	for _, tbl := range s.Tables {
		t.AppendRow(table.Row{tbl.Name, strings.Join(tbl.Columns, ", ")})
	}
	t.Render()
	return nil
}

func newTable(w io.Writer, columns []string, rows [][]any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	t.AppendHeader(header)

	for _, values := range rows {
		row := make(table.Row, len(values))
		for i, value := range values {
			row[i] = formatValue(value)
		}
		t.AppendRow(row)
	}
	return t
}

// writeCSV emits RFC 4180 records. NULL values become empty fields.
func writeCSV(w io.Writer, columns []string, rows [][]any) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(columns))
	for _, values := range rows {
		record = record[:0]
		for _, value := range values {
			if value == nil {
				record = append(record, "")
				continue
			}
			record = append(record, formatValue(value))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func decodeJSON(body []byte, dst any) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	return decoder.Decode(dst)
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
