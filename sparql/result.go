package sparql

import (
	"fmt"
	"strings"

	"github.com/c360studio/octiron/rdf"
)

// Result holds the outcome of a query in the shape its form prescribes:
// Boolean for ASK, Vars and Rows for SELECT, Graph for CONSTRUCT.
type Result struct {
	Form    Form
	Boolean bool
	Vars    []string
	Rows    []Solution
	Graph   []rdf.Triple
}

// Records converts SELECT rows to maps of native Go values. Unbound
// variables are omitted from their row.
func (r *Result) Records() []map[string]any {
	records := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]any, len(row))
		for _, v := range r.Vars {
			if t, ok := row[v]; ok {
				rec[v] = t.Native()
			}
		}
		records = append(records, rec)
	}
	return records
}

// MarkdownTable renders the result as a Markdown table. ASK results render
// as a single cell and CONSTRUCT results as subject/predicate/object rows.
func (r *Result) MarkdownTable() string {
	var header []string
	var rows [][]string

	switch r.Form {
	case FormAsk:
		header = []string{"result"}
		rows = [][]string{{fmt.Sprint(r.Boolean)}}
	case FormConstruct:
		header = []string{"subject", "predicate", "object"}
		for _, t := range r.Graph {
			rows = append(rows, []string{cell(t.Subject), cell(t.Predicate), cell(t.Object)})
		}
	default:
		header = r.Vars
		for _, row := range r.Rows {
			line := make([]string, len(r.Vars))
			for i, v := range r.Vars {
				if t, ok := row[v]; ok {
					line[i] = cell(t)
				}
			}
			rows = append(rows, line)
		}
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return sb.String()
}

func cell(t rdf.Term) string {
	s := t.Value
	if t.IsBlank() {
		s = t.String()
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
