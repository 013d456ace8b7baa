package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// notifyFunction publishes every row change on NotifyChannel. Payloads over
// the 8000 byte NOTIFY limit make the statement fail, so wide tables should
// not carry the trigger.
const notifyFunction = `
CREATE OR REPLACE FUNCTION wavespace_notify_change() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
		'schema', TG_TABLE_SCHEMA,
		'table', TG_TABLE_NAME,
		'type', TG_OP,
		'record', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
		'old_record', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE row_to_json(OLD) END,
		'commit_timestamp', to_char(clock_timestamp() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.US"Z"')
	)::text);
	RETURN COALESCE(NEW, OLD);
END;
$$ LANGUAGE plpgsql`

func triggerStatements(table string) []string {
	t := ident(table)
	return []string{
		"DROP TRIGGER IF EXISTS wavespace_changes ON " + t,
		"CREATE TRIGGER wavespace_changes AFTER INSERT OR UPDATE OR DELETE ON " + t +
			" FOR EACH ROW EXECUTE FUNCTION wavespace_notify_change()",
	}
}

// InstallTriggers creates the change function and attaches it to tables.
func InstallTriggers(ctx context.Context, pool *pgxpool.Pool, tables ...string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres.InstallTriggers: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, notifyFunction); err != nil {
		return fmt.Errorf("postgres.InstallTriggers: function: %w", err)
	}
	for _, table := range tables {
		for _, stmt := range triggerStatements(table) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("postgres.InstallTriggers: %s: %w", table, err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.InstallTriggers: %w", err)
	}
	return nil
}
