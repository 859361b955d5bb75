package nl2sql

import (
	"context"
	"fmt"
)

// SchemaProvider exposes the live table and column names of a database.
// Both listings must preserve the database's order.
type SchemaProvider interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string) ([]string, error)
}

type Table struct {
	Name    string   `json:"table_name"`
	Columns []string `json:"columns"`
}

type Snapshot struct {
	Tables []Table `json:"tables"`
}

func (s Snapshot) Table(name string) (Table, bool) {
	for _, table := range s.Tables {
		if table.Name == name {
			return table, true
		}
	}
	return Table{}, false
}

// LoadSnapshot reads every table and its columns from provider. Snapshots are
// never cached; callers take a fresh one per question.
func LoadSnapshot(ctx context.Context, provider SchemaProvider) (Snapshot, error) {
	if provider == nil {
		return Snapshot{}, fmt.Errorf("schema provider is required")
	}
	names, err := provider.ListTables(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list tables: %w", err)
	}

	snapshot := Snapshot{Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		columns, err := provider.ListColumns(ctx, name)
		if err != nil {
			return Snapshot{}, fmt.Errorf("list columns for table %q: %w", name, err)
		}
		snapshot.Tables = append(snapshot.Tables, Table{Name: name, Columns: columns})
	}
	return snapshot, nil
}
