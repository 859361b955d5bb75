package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/duckmesh/querychat/internal/auth"
	"github.com/duckmesh/querychat/internal/chat"
	"github.com/duckmesh/querychat/internal/query"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	SQL      string         `json:"sql"`
	Intent   string         `json:"intent"`
	Table    string         `json:"table,omitempty"`
	Column   string         `json:"column,omitempty"`
	Executed bool           `json:"executed"`
	Columns  []string       `json:"columns"`
	Rows     [][]any        `json:"rows"`
	Failed   bool           `json:"failed"`
	Stats    map[string]any `json:"stats"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Questions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "question answering is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	answer, err := deps.Questions.Ask(r.Context(), request.Question)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuestion) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusBadGateway, "SCHEMA_FETCH_FAILED", "failed to load schema", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		SQL:      answer.SQL,
		Intent:   string(answer.Intent),
		Table:    answer.Table,
		Column:   answer.Column,
		Executed: answer.Executed,
		Columns:  nonNilColumns(answer.Result.Columns),
		Rows:     orderedRows(answer.Result),
		Failed:   answer.Result.Failed,
		Stats: map[string]any{
			"duration_ms": answer.Result.Duration.Milliseconds(),
			"row_count":   len(answer.Result.Rows),
		},
	})
}

func orderedRows(result query.Result) [][]any {
	rows := make([][]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		values := make([]any, len(result.Columns))
		for i, column := range result.Columns {
			values[i] = row[column]
		}
		rows = append(rows, values)
	}
	return rows
}

func nonNilColumns(columns []string) []string {
	if columns == nil {
		return []string{}
	}
	return columns
}
