package postgres

import (
	"reflect"
	"strings"
	"testing"

	"github.com/wavespace/wavespace/pkg/backend"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		table    string
		q        backend.Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "all columns",
			table:   "posts",
			wantSQL: `SELECT * FROM "posts"`,
		},
		{
			name:  "columns filter order page",
			table: "posts",
			q: backend.Query{
				Columns: "id, title",
				Limit:   10,
				Offset:  20,
				Order:   &backend.Order{Column: "created_at"},
				Filter:  map[string]any{"category": "free", "author_id": "u1"},
			},
			wantSQL:  `SELECT "id", "title" FROM "posts" WHERE "author_id" = $1 AND "category" = $2 ORDER BY "created_at" DESC LIMIT 10 OFFSET 20`,
			wantArgs: []any{"u1", "free"},
		},
		{
			name:     "ascending and null",
			table:    "users",
			q:        backend.Query{Order: &backend.Order{Column: "points", Ascending: true}, Filter: map[string]any{"deleted_at": nil, "role": "admin"}},
			wantSQL:  `SELECT * FROM "users" WHERE "deleted_at" IS NULL AND "role" = $1 ORDER BY "points" ASC`,
			wantArgs: []any{"admin"},
		},
		{
			name:    "quoted identifier",
			table:   `we"ird`,
			wantSQL: `SELECT * FROM "we""ird"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildSelect(tt.table, tt.q)
			if err != nil {
				t.Fatalf("buildSelect: %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("sql = %s, want %s", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestBuildSelectRejectsEmbedding(t *testing.T) {
	if _, _, err := buildSelect("posts", backend.Query{Columns: "*, users(nickname)"}); err == nil {
		t.Error("expected error for embedded resource")
	}
}

func TestBuildCount(t *testing.T) {
	sql, args := buildCount("notifications", map[string]any{"user_id": "u1", "is_read": false})
	want := `SELECT count(*) FROM "notifications" WHERE "is_read" = $1 AND "user_id" = $2`
	if sql != want {
		t.Errorf("sql = %s, want %s", sql, want)
	}
	if !reflect.DeepEqual(args, []any{false, "u1"}) {
		t.Errorf("args = %v", args)
	}
}

func TestBuildInsert(t *testing.T) {
	sql, args, err := buildInsert("posts", backend.Row{"title": "hi", "author_id": "u1"})
	if err != nil {
		t.Fatalf("buildInsert: %v", err)
	}
	want := `INSERT INTO "posts" ("author_id", "title") VALUES ($1, $2) RETURNING *`
	if sql != want {
		t.Errorf("sql = %s, want %s", sql, want)
	}
	if !reflect.DeepEqual(args, []any{"u1", "hi"}) {
		t.Errorf("args = %v", args)
	}

	if _, _, err := buildInsert("posts", backend.Row{}); err == nil {
		t.Error("expected error for empty row")
	}
}

func TestBuildUpdate(t *testing.T) {
	sql, args, err := buildUpdate("notifications",
		backend.Row{"is_read": true},
		map[string]any{"id": "n1", "is_read": false})
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}
	want := `UPDATE "notifications" SET "is_read" = $1 WHERE "id" = $2 AND "is_read" = $3 RETURNING *`
	if sql != want {
		t.Errorf("sql = %s, want %s", sql, want)
	}
	if !reflect.DeepEqual(args, []any{true, "n1", false}) {
		t.Errorf("args = %v", args)
	}

	if _, _, err := buildUpdate("posts", backend.Row{"a": 1}, nil); err == nil {
		t.Error("expected error without filter")
	}
	if _, _, err := buildUpdate("posts", nil, map[string]any{"id": 1}); err == nil {
		t.Error("expected error without patch")
	}
}

func TestBuildDelete(t *testing.T) {
	sql, args, err := buildDelete("posts", map[string]any{"id": 7})
	if err != nil {
		t.Fatalf("buildDelete: %v", err)
	}
	if sql != `DELETE FROM "posts" WHERE "id" = $1` {
		t.Errorf("sql = %s", sql)
	}
	if !reflect.DeepEqual(args, []any{7}) {
		t.Errorf("args = %v", args)
	}
	if _, _, err := buildDelete("posts", nil); err == nil {
		t.Error("expected error without filter")
	}
}

func TestTriggerStatements(t *testing.T) {
	stmts := triggerStatements("users")
	if len(stmts) != 2 {
		t.Fatalf("len = %d, want 2", len(stmts))
	}
	if !strings.Contains(stmts[1], `ON "users"`) || !strings.Contains(stmts[1], "wavespace_notify_change()") {
		t.Errorf("create = %s", stmts[1])
	}
	if !strings.Contains(notifyFunction, "pg_notify('"+NotifyChannel+"'") {
		t.Error("function does not publish on the notify channel")
	}
}
