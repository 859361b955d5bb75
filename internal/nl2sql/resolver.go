package nl2sql

import "strings"

// Resolution names the table and column a question refers to. An empty field
// means that stage did not match.
type Resolution struct {
	Table  string `json:"table,omitempty"`
	Column string `json:"column,omitempty"`
}

func (r Resolution) HasTable() bool  { return r.Table != "" }
func (r Resolution) HasColumn() bool { return r.Column != "" }
func (r Resolution) Complete() bool  { return r.HasTable() && r.HasColumn() }

// Resolve picks a table for question, preferring whole-word matches over
// substring matches, then the first column of that table mentioned in the
// question. Tables and columns are scanned in snapshot order and the first
// hit wins.
//
// When no table name appears in the question at all, Resolve falls back to
// the first column of any table that does appear. That column may belong to
// a table the user never named.
func Resolve(question string, snapshot Snapshot) Resolution {
	question = strings.ToLower(question)

	if table, ok := matchTable(question, snapshot.Tables); ok {
		return Resolution{Table: table.Name, Column: matchColumn(question, table.Columns)}
	}

	for _, table := range snapshot.Tables {
		if column := matchColumn(question, table.Columns); column != "" {
			return Resolution{Table: table.Name, Column: column}
		}
	}
	return Resolution{}
}

func matchTable(question string, tables []Table) (Table, bool) {
	padded := " " + question + " "
	for _, table := range tables {
		name := strings.ToLower(table.Name)
		if name == "" {
			continue
		}
		if strings.Contains(padded, " "+name+" ") {
			return table, true
		}
	}
	for _, table := range tables {
		name := strings.ToLower(table.Name)
		if name == "" {
			continue
		}
		if strings.Contains(question, name) {
			return table, true
		}
	}
	return Table{}, false
}

func matchColumn(question string, columns []string) string {
	for _, column := range columns {
		name := strings.ToLower(column)
		if name == "" {
			continue
		}
		if strings.Contains(question, name) {
			return column
		}
	}
	return ""
}
