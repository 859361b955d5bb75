package api

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"gopkg.in/yaml.v3"
)

type openAPIOperation struct {
	Parameters []struct {
		Name string `yaml:"name"`
		In   string `yaml:"in"`
	} `yaml:"parameters"`
	Responses map[string]any `yaml:"responses"`
}

func TestOpenAPIDocumentsRegisteredRoutes(t *testing.T) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	content, err := os.ReadFile(filepath.Join(filepath.Dir(filename), "..", "..", "api", "openapi.yaml"))
	if err != nil {
		t.Fatalf("read openapi file error = %v", err)
	}
	var doc struct {
		Paths map[string]map[string]openAPIOperation `yaml:"paths"`
	}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		t.Fatalf("parse openapi: %v", err)
	}

	routes := map[string]string{
		"/v1/health":  "get",
		"/v1/ready":   "get",
		"/v1/metrics": "get",
		"/v1/ask":     "post",
		"/v1/schema":  "get",
	}
	for path, method := range routes {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Fatalf("openapi missing %s %s", method, path)
		}
	}

	schemaOp := doc.Paths["/v1/schema"]["get"]
	hasTable := false
	for _, param := range schemaOp.Parameters {
		hasTable = hasTable || (param.Name == "table" && param.In == "query")
	}
	if !hasTable {
		t.Fatal("openapi /v1/schema is missing the table query parameter")
	}
	if _, ok := schemaOp.Responses["404"]; !ok {
		t.Fatal("openapi /v1/schema is missing the 404 response")
	}
}
