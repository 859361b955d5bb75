package nl2sql

import (
	"context"
	"fmt"
	"strings"
)

type Request struct {
	Question string `json:"question"`
}

type Result struct {
	SQL        string `json:"sql"`
	Intent     Intent `json:"intent"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	TableCount int    `json:"table_count"`
}

// Executable reports whether SQL is a real query rather than an explanatory message.
func (r Result) Executable() bool {
	return r.Intent != IntentUnresolved
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// RuleTranslator resolves a question against a schema snapshot taken from
// Schema on every call and synthesizes SQL from the detected intent.
type RuleTranslator struct {
	Schema SchemaProvider
}

func NewRuleTranslator(schema SchemaProvider) (*RuleTranslator, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema provider is required")
	}
	return &RuleTranslator{Schema: schema}, nil
}

func (t *RuleTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	question := strings.ToLower(strings.TrimSpace(req.Question))

	snapshot, err := LoadSnapshot(ctx, t.Schema)
	if err != nil {
		return Result{}, err
	}

	resolution := Resolve(question, snapshot)
	var synthesis Synthesis
	if resolution.Complete() {
		synthesis = Synthesize(resolution.Table, resolution.Column, question)
	} else {
		synthesis = Unresolved(resolution)
	}

	return Result{
		SQL:        synthesis.SQL,
		Intent:     synthesis.Intent,
		Table:      resolution.Table,
		Column:     resolution.Column,
		TableCount: len(snapshot.Tables),
	}, nil
}
