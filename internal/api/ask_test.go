package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/duckmesh/querychat/internal/chat"
	"github.com/duckmesh/querychat/internal/config"
	"github.com/duckmesh/querychat/internal/nl2sql"
	"github.com/duckmesh/querychat/internal/query"
)

func TestAskEndpointReturnsSQLAndRows(t *testing.T) {
	h := newAskHandler(t, Dependencies{Questions: newStubAnswerer()})

	body := postAsk(t, h, `{"question":"Orders with amount between 10 and 20"}`, http.StatusOK)
	if body["sql"] != "SELECT * FROM orders WHERE amount BETWEEN 10 AND 20;" {
		t.Fatalf("sql = %v", body["sql"])
	}
	if body["intent"] != "range" || body["table"] != "orders" || body["column"] != "amount" {
		t.Fatalf("body = %#v", body)
	}
	if body["executed"] != true || body["failed"] != false {
		t.Fatalf("body = %#v", body)
	}
	columns, _ := body["columns"].([]any)
	if len(columns) != 2 || columns[0] != "id" || columns[1] != "amount" {
		t.Fatalf("columns = %#v", body["columns"])
	}
	rows, _ := body["rows"].([]any)
	if len(rows) != 1 {
		t.Fatalf("rows = %#v", body["rows"])
	}
	first, _ := rows[0].([]any)
	if len(first) != 2 || first[0] != float64(7) || first[1] != 15.5 {
		t.Fatalf("row = %#v", rows[0])
	}
	stats, _ := body["stats"].(map[string]any)
	if stats["row_count"] != float64(1) {
		t.Fatalf("stats = %#v", stats)
	}
}

func TestAskEndpointReturnsUnresolvedMessageWithoutRows(t *testing.T) {
	h := newAskHandler(t, Dependencies{Questions: newStubAnswerer()})

	body := postAsk(t, h, `{"question":"show me invoices"}`, http.StatusOK)
	if body["sql"] != "SELECT 'No matching table found in the database.';" {
		t.Fatalf("sql = %v", body["sql"])
	}
	if body["executed"] != false || body["intent"] != "unresolved" {
		t.Fatalf("body = %#v", body)
	}
	rows, ok := body["rows"].([]any)
	if !ok || len(rows) != 0 {
		t.Fatalf("rows = %#v", body["rows"])
	}
}

func TestAskEndpointReturnsExecutionErrorRow(t *testing.T) {
	answerer := &fakeAnswerer{answer: chat.Answer{
		SQL:      "SELECT * FROM orders WHERE dropped IS NOT NULL;",
		Intent:   nl2sql.IntentDefault,
		Table:    "orders",
		Column:   "dropped",
		Executed: true,
		Result:   query.ErrorResult(errors.New(`column "dropped" does not exist`)),
	}}
	h := newAskHandler(t, Dependencies{Questions: answerer})

	body := postAsk(t, h, `{"question":"orders dropped"}`, http.StatusOK)
	if body["failed"] != true {
		t.Fatalf("failed = %v", body["failed"])
	}
	rows, _ := body["rows"].([]any)
	first, _ := rows[0].([]any)
	if len(first) != 1 || first[0] != `column "dropped" does not exist` {
		t.Fatalf("rows = %#v", body["rows"])
	}
}

func TestAskEndpointValidatesRequest(t *testing.T) {
	h := newAskHandler(t, Dependencies{Questions: newStubAnswerer()})

	tests := []struct {
		payload string
		code    string
	}{
		{payload: `{`, code: "INVALID_JSON"},
		{payload: `{"question":"x","extra":1}`, code: "INVALID_JSON"},
		{payload: `{"question":"   "}`, code: "QUESTION_REQUIRED"},
	}
	for _, tt := range tests {
		body := postAsk(t, h, tt.payload, http.StatusBadRequest)
		if body["error_code"] != tt.code {
			t.Fatalf("payload %s: error_code = %v, want %s", tt.payload, body["error_code"], tt.code)
		}
	}
}

func TestAskEndpointReportsSchemaFailure(t *testing.T) {
	h := newAskHandler(t, Dependencies{Questions: &fakeAnswerer{err: fmt.Errorf("translate question: %w", errors.New("connection refused"))}})

	body := postAsk(t, h, `{"question":"orders"}`, http.StatusBadGateway)
	if body["error_code"] != "SCHEMA_FETCH_FAILED" || body["retryable"] != true {
		t.Fatalf("body = %#v", body)
	}
}

func TestAskEndpointNotConfigured(t *testing.T) {
	h := newAskHandler(t, Dependencies{})
	body := postAsk(t, h, `{"question":"orders"}`, http.StatusNotImplemented)
	if body["error_code"] != "ASK_NOT_CONFIGURED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func newAskHandler(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	cfg, err := config.Load("querychat-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return NewHandler(cfg, deps)
}

func postAsk(t *testing.T, h http.Handler, payload string, expectedStatus int) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != expectedStatus {
		t.Fatalf("status = %d, want %d, body=%s", rr.Code, expectedStatus, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	return body
}

// newStubAnswerer wires the real question service to an in-memory schema.
func newStubAnswerer() *chat.Service {
	translator, err := nl2sql.NewRuleTranslator(newStubSchema())
	if err != nil {
		panic(err)
	}
	engine := &stubEngine{result: query.Result{
		Columns:  []string{"id", "amount"},
		Rows:     []query.Row{{"id": int64(7), "amount": 15.5}},
		Duration: 3 * time.Millisecond,
	}}
	svc, err := chat.NewService(translator, engine, nil)
	if err != nil {
		panic(err)
	}
	return svc
}

type fakeAnswerer struct {
	answer chat.Answer
	err    error
}

func (f *fakeAnswerer) Ask(context.Context, string) (chat.Answer, error) {
	return f.answer, f.err
}

type stubEngine struct {
	result query.Result
}

func (s *stubEngine) Execute(context.Context, string) (query.Result, error) {
	return s.result, nil
}
