package storage

import "testing"

func TestBuildDatasetFilePath(t *testing.T) {
	key, err := BuildDatasetFilePath("/datasets/", "orders", 3)
	if err != nil {
		t.Fatalf("BuildDatasetFilePath() error = %v", err)
	}
	want := "datasets/orders/part-00003.parquet"
	if key != want {
		t.Fatalf("BuildDatasetFilePath() = %q, want %q", key, want)
	}
}

func TestBuildDatasetFilePathWithoutPrefix(t *testing.T) {
	key, err := BuildDatasetFilePath("", "customers", 0)
	if err != nil {
		t.Fatalf("BuildDatasetFilePath() error = %v", err)
	}
	if key != "customers/part-00000.parquet" {
		t.Fatalf("BuildDatasetFilePath() = %q", key)
	}
}

func TestBuildDatasetFilePathRejectsInvalidTable(t *testing.T) {
	for _, table := range []string{"../oops", "", "bad-name", "1orders"} {
		if _, err := BuildDatasetFilePath("datasets", table, 1); err == nil {
			t.Fatalf("expected invalid table error for %q", table)
		}
	}
}

func TestParseDatasetFilePath(t *testing.T) {
	cases := []struct {
		key   string
		table string
		ok    bool
	}{
		{key: "datasets/orders/part-00001.parquet", table: "orders", ok: true},
		{key: "datasets/orders/date=2026-02-19/part-1.parquet", table: "orders", ok: true},
		{key: "datasets/orders/readme.txt", ok: false},
		{key: "datasets/part-1.parquet", ok: false},
		{key: "other/orders/part-1.parquet", ok: false},
		{key: "datasets/bad-name/part-1.parquet", ok: false},
	}
	for _, tc := range cases {
		table, ok := ParseDatasetFilePath("datasets", tc.key)
		if ok != tc.ok || table != tc.table {
			t.Fatalf("ParseDatasetFilePath(%q) = %q, %v; want %q, %v", tc.key, table, ok, tc.table, tc.ok)
		}
	}
}

func TestDatasetPathRoundTrip(t *testing.T) {
	key, err := BuildDatasetFilePath("lake/demo", "orders", 12)
	if err != nil {
		t.Fatalf("BuildDatasetFilePath() error = %v", err)
	}
	table, ok := ParseDatasetFilePath("lake/demo", key)
	if !ok || table != "orders" {
		t.Fatalf("ParseDatasetFilePath(%q) = %q, %v", key, table, ok)
	}
}

func TestCleanKey(t *testing.T) {
	key, err := CleanKey("/datasets//orders/./part-00000.parquet")
	if err != nil {
		t.Fatalf("CleanKey() error = %v", err)
	}
	if key != "datasets/orders/part-00000.parquet" {
		t.Fatalf("CleanKey() = %q", key)
	}
	for _, bad := range []string{"", "  ", "/", "..", "../secrets.txt", "datasets/../../x"} {
		if _, err := CleanKey(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestCleanPrefix(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"/":               "",
		".":               "",
		" /lake/demo/ ":   "lake/demo",
		"lake//demo/../x": "lake/x",
	}
	for in, want := range cases {
		if got := CleanPrefix(in); got != want {
			t.Fatalf("CleanPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
