package nl2sql

import "testing"

func ordersSchema() Snapshot {
	return Snapshot{Tables: []Table{
		{Name: "orders", Columns: []string{"id", "amount", "status"}},
	}}
}

func TestResolveExampleBelowQuestion(t *testing.T) {
	got := Resolve("show orders with amount below 100", ordersSchema())
	if got.Table != "orders" || got.Column != "amount" {
		t.Fatalf("Resolve() = %+v", got)
	}
}

func TestResolvePrefersWholeWordOverSubstring(t *testing.T) {
	snapshot := Snapshot{Tables: []Table{
		{Name: "order", Columns: []string{"total"}},
		{Name: "orders", Columns: []string{"amount"}},
	}}
	got := Resolve("list orders where amount above 3", snapshot)
	if got.Table != "orders" {
		t.Fatalf("Table = %q, want orders", got.Table)
	}
	if got.Column != "amount" {
		t.Fatalf("Column = %q, want amount", got.Column)
	}
}

func TestResolveFallsBackToSubstringMatch(t *testing.T) {
	snapshot := Snapshot{Tables: []Table{
		{Name: "users", Columns: []string{"age"}},
		{Name: "sale", Columns: []string{"price"}},
	}}
	got := Resolve("wholesale price above 10", snapshot)
	if got.Table != "sale" || got.Column != "price" {
		t.Fatalf("Resolve() = %+v", got)
	}
}

func TestResolveTableMatchIsCaseInsensitive(t *testing.T) {
	snapshot := Snapshot{Tables: []Table{
		{Name: "Orders", Columns: []string{"Amount"}},
	}}
	got := Resolve("orders amount equals to 5", snapshot)
	if got.Table != "Orders" || got.Column != "Amount" {
		t.Fatalf("Resolve() = %+v", got)
	}
}

func TestResolveTableWithoutColumn(t *testing.T) {
	got := Resolve("orders between 10 and 20", ordersSchema())
	if got.Table != "orders" {
		t.Fatalf("Table = %q", got.Table)
	}
	if got.HasColumn() {
		t.Fatalf("Column = %q, want none", got.Column)
	}
	if got.Complete() {
		t.Fatal("resolution should be incomplete")
	}
}

func TestResolveGlobalColumnFallback(t *testing.T) {
	snapshot := Snapshot{Tables: []Table{
		{Name: "customers", Columns: []string{"name", "city"}},
		{Name: "orders", Columns: []string{"amount"}},
	}}
	got := Resolve("everything with amount above 5", snapshot)
	if got.Table != "orders" || got.Column != "amount" {
		t.Fatalf("Resolve() = %+v", got)
	}
}

func TestResolveGlobalFallbackUsesFirstTableInOrder(t *testing.T) {
	snapshot := Snapshot{Tables: []Table{
		{Name: "invoices", Columns: []string{"amount"}},
		{Name: "payments", Columns: []string{"amount"}},
	}}
	got := Resolve("amount below 4", snapshot)
	if got.Table != "invoices" {
		t.Fatalf("Table = %q, want invoices", got.Table)
	}
}

func TestResolveNothingMatches(t *testing.T) {
	cases := []struct {
		name     string
		question string
		snapshot Snapshot
	}{
		{name: "empty question", question: "", snapshot: ordersSchema()},
		{name: "no tables", question: "show orders with amount below 100", snapshot: Snapshot{}},
		{name: "unrelated question", question: "what is the weather", snapshot: ordersSchema()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.question, tc.snapshot)
			if got != (Resolution{}) {
				t.Fatalf("Resolve() = %+v, want empty", got)
			}
		})
	}
}

func TestResolveIgnoresEmptyNames(t *testing.T) {
	snapshot := Snapshot{Tables: []Table{
		{Name: "", Columns: []string{""}},
		{Name: "orders", Columns: []string{"", "status"}},
	}}
	got := Resolve("orders status", snapshot)
	if got.Table != "orders" || got.Column != "status" {
		t.Fatalf("Resolve() = %+v", got)
	}
}
