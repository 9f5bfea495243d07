package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leapquery/internal/config"
	"github.com/leapstack-labs/leapquery/internal/server"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/rewriter"
)

func renderExecution(w io.Writer, exec core.Execution, format string) error {
	resp := server.NewExecutionResponse(exec)
	if format == config.FormatJSON {
		return renderJSON(w, resp)
	}

	t := newTable(w)
	t.AppendRows([]table.Row{
		{"id", resp.ID},
		{"state", resp.State},
		{"info", resp.InfoURI},
		{"next", resp.NextURI},
		{"query", resp.Query},
	})
	if resp.Error != "" {
		t.AppendRow(table.Row{"error", resp.Error})
	}
	t.Render()
	return nil
}

func renderRewrite(w io.Writer, res *rewriter.Result, format string) error {
	resp := server.NewRewriteResponse(res)
	if format == config.FormatJSON {
		return renderJSON(w, resp)
	}

	_, _ = fmt.Fprintln(w, resp.SQL)
	if len(resp.Tables) == 0 {
		return nil
	}
	_, _ = fmt.Fprintln(w)

	t := newTable(w)
	t.AppendHeader(table.Row{"Reference", "Resolves To"})
	for _, m := range resp.Tables {
		t.AppendRow(table.Row{m.Reference, m.Path})
	}
	t.Render()
	return nil
}

type mappingRow struct {
	Reference string `json:"reference"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

func renderMappings(w io.Writer, mappings []rewriter.Mapping, format string) error {
	rows := make([]mappingRow, 0, len(mappings))
	for _, m := range mappings {
		row := mappingRow{Reference: m.Reference.String()}
		if m.Err != nil {
			row.Error = m.Err.Error()
		} else {
			row.Path = m.Path.String()
		}
		rows = append(rows, row)
	}

	if format == config.FormatJSON {
		return renderJSON(w, rows)
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 tables)")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Reference", "Resolves To", "Error"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Reference, r.Path, r.Error})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d tables)\n", len(rows))
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
