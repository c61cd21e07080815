package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ziadkadry99/agentgw/internal/db"
)

func TestQueryDBRejectsNonSelect(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	r := NewRegistry()
	if err := RegisterSQLTool(r, database.DB); err != nil {
		t.Fatalf("RegisterSQLTool: %v", err)
	}

	args, _ := json.Marshal(QueryDBArgs{Query: "DELETE FROM sessions"})
	result := r.Invoke(context.Background(), "query_db", args)

	var te ToolError
	if err := json.Unmarshal([]byte(result), &te); err != nil {
		t.Fatalf("expected structured error, got %s", result)
	}
}

func TestQueryDBExecutesSelect(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()
	database.Exec(`INSERT INTO sessions (id, skill_name) VALUES ('s1', 'support')`)

	r := NewRegistry()
	RegisterSQLTool(r, database.DB)

	args, _ := json.Marshal(QueryDBArgs{Query: "SELECT id, skill_name FROM sessions"})
	result := r.Invoke(context.Background(), "query_db", args)

	var rows []map[string]any
	if err := json.Unmarshal([]byte(result), &rows); err != nil {
		t.Fatalf("expected JSON rows, got %s: %v", result, err)
	}
	if len(rows) != 1 || rows[0]["id"] != "s1" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}
