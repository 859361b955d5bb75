package nl2sql

import (
	"fmt"
	"regexp"
)

type Intent string

const (
	IntentRange      Intent = "range"
	IntentBelow      Intent = "below"
	IntentAbove      Intent = "above"
	IntentEqual      Intent = "equal"
	IntentDefault    Intent = "default"
	IntentUnresolved Intent = "unresolved"
)

type Synthesis struct {
	SQL    string `json:"sql"`
	Intent Intent `json:"intent"`
}

const numeral = `(-?\d+(?:\.\d+)?)`

type intentRule struct {
	intent  Intent
	pattern *regexp.Regexp
	build   func(table, column string, args []string) string
}

// Rules are checked in order; a question matching several patterns always
// resolves to the earliest one.
var intentRules = []intentRule{
	{
		intent:  IntentRange,
		pattern: regexp.MustCompile(`between\s*` + numeral + `\s*and\s*` + numeral),
		build: func(table, column string, args []string) string {
			return fmt.Sprintf("SELECT * FROM %s WHERE %s BETWEEN %s AND %s;", table, column, args[0], args[1])
		},
	},
	{
		intent:  IntentBelow,
		pattern: regexp.MustCompile(`below\s*` + numeral),
		build: func(table, column string, args []string) string {
			return fmt.Sprintf("SELECT * FROM %s WHERE %s < %s;", table, column, args[0])
		},
	},
	{
		intent:  IntentAbove,
		pattern: regexp.MustCompile(`above\s*` + numeral),
		build: func(table, column string, args []string) string {
			return fmt.Sprintf("SELECT * FROM %s WHERE %s > %s;", table, column, args[0])
		},
	},
	{
		intent:  IntentEqual,
		pattern: regexp.MustCompile(`equals?\s*to\s*` + numeral),
		build: func(table, column string, args []string) string {
			return fmt.Sprintf("SELECT * FROM %s WHERE %s = %s;", table, column, args[0])
		},
	},
}

// Synthesize builds a SELECT over table filtered on column according to the
// first numeric-comparison phrase found in question. Numerals are copied
// verbatim into the statement.
func Synthesize(table, column, question string) Synthesis {
	for _, rule := range intentRules {
		matches := rule.pattern.FindStringSubmatch(question)
		if matches == nil {
			continue
		}
		return Synthesis{SQL: rule.build(table, column, matches[1:]), Intent: rule.intent}
	}
	return Synthesis{
		SQL:    fmt.Sprintf("SELECT * FROM %s WHERE %s IS NOT NULL;", table, column),
		Intent: IntentDefault,
	}
}

// Unresolved returns the explanatory statement shown in place of a query when
// resolution did not yield both a table and a column. It is never executed.
func Unresolved(resolution Resolution) Synthesis {
	if !resolution.HasTable() {
		return Synthesis{SQL: "SELECT 'No matching table found in the database.';", Intent: IntentUnresolved}
	}
	return Synthesis{
		SQL:    fmt.Sprintf("SELECT 'Table %s found, but no matching column identified.';", resolution.Table),
		Intent: IntentUnresolved,
	}
}
