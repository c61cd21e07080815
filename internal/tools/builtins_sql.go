package tools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QueryDBArgs are the parameters of the query_db tool.
type QueryDBArgs struct {
	Query string `json:"query" jsonschema:"required,description=A read-only SQL SELECT statement to run."`
}

// RegisterSQLTool registers query_db, a read-only SELECT-only query tool
// against the given database connection.
func RegisterSQLTool(r *Registry, database *sql.DB) error {
	return Register(r, "query_db", "Execute a read-only SQL query against the daemon's database. Only SELECT statements are allowed.",
		func(ctx context.Context, args QueryDBArgs) (any, error) {
			stripped := strings.TrimSpace(strings.ToUpper(args.Query))
			if !strings.HasPrefix(stripped, "SELECT") {
				return nil, fmt.Errorf("only SELECT queries are allowed")
			}
			return runReadOnlyQuery(ctx, database, args.Query)
		})
}

func runReadOnlyQuery(ctx context.Context, database *sql.DB, query string) ([]map[string]any, error) {
	rows, err := database.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
