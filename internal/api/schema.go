package api

import (
	"net/http"
	"strings"

	"github.com/duckmesh/querychat/internal/auth"
	"github.com/duckmesh/querychat/internal/nl2sql"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema provider is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	snapshot, err := nl2sql.LoadSnapshot(r.Context(), deps.Schema)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "SCHEMA_FETCH_FAILED", "failed to load schema", true, map[string]any{"details": err.Error()})
		return
	}

	if name := strings.TrimSpace(r.URL.Query().Get("table")); name != "" {
		table, ok := snapshot.Table(name)
		if !ok {
			writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table does not exist", false, map[string]any{"table": name})
			return
		}
		snapshot = nl2sql.Snapshot{Tables: []nl2sql.Table{table}}
	}
	writeJSON(w, http.StatusOK, snapshot)
}
