// Package postgres implements the primary (remote) audit sink on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"veritrail/internal/audit"
)

// Store implements audit.Sink over a PostgreSQL table. Inserts are idempotent
// on entry ID, so a batch retried after a partial success never duplicates.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit sink.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit table and its indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id              uuid PRIMARY KEY,
			timestamp       timestamptz NOT NULL,
			action          text NOT NULL,
			category        text NOT NULL,
			severity        text NOT NULL,
			actor_id        text NOT NULL DEFAULT '',
			actor_label     text NOT NULL DEFAULT '',
			organization_id text NOT NULL DEFAULT '',
			resource_type   text NOT NULL DEFAULT '',
			resource_id     text NOT NULL DEFAULT '',
			description     text NOT NULL,
			metadata        jsonb,
			success         boolean NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_timestamp ON audit_entries (timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_action ON audit_entries (action);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_actor ON audit_entries (actor_id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Insert writes the batch as a single multi-row statement.
func (s *Store) Insert(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(`
		INSERT INTO audit_entries (
			id, timestamp, action, category, severity,
			actor_id, actor_label, organization_id,
			resource_type, resource_id, description, metadata, success
		) VALUES `)

	for i, e := range entries {
		var metadata any
		if e.Metadata != nil {
			raw, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("marshal entry metadata: %w", err)
			}
			metadata = raw
		}

		if i > 0 {
			b.WriteString(", ")
		}
		base := i * 13
		b.WriteByte('(')
		for j := 1; j <= 13; j++ {
			if j > 1 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", base+j)
		}
		b.WriteByte(')')

		args = append(args,
			e.ID, e.Timestamp, string(e.Action), string(e.Category), string(e.Severity),
			e.ActorID, e.ActorLabel, e.OrganizationID,
			e.ResourceType, e.ResourceID, e.Description, metadata, e.Success,
		)
	}
	b.WriteString(" ON CONFLICT (id) DO NOTHING")

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert audit batch: %w", err)
	}
	return nil
}

// Select pushes the filter down as SQL predicates, ordered by timestamp
// descending. Predicate semantics mirror audit.Filter.Matches exactly.
func (s *Store) Select(ctx context.Context, f audit.Filter, limit, offset int) ([]audit.Entry, error) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(`
		SELECT id, timestamp, action, category, severity,
		       actor_id, actor_label, organization_id,
		       resource_type, resource_id, description, metadata, success
		FROM audit_entries
		WHERE 1=1`)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.From != nil {
		b.WriteString(" AND timestamp >= " + arg(*f.From))
	}
	if f.To != nil {
		b.WriteString(" AND timestamp <= " + arg(*f.To))
	}
	if len(f.Actions) > 0 {
		b.WriteString(" AND action = ANY(" + arg(pq.Array(actionStrings(f.Actions))) + ")")
	}
	if len(f.Categories) > 0 {
		b.WriteString(" AND category = ANY(" + arg(pq.Array(categoryStrings(f.Categories))) + ")")
	}
	if len(f.Severities) > 0 {
		b.WriteString(" AND severity = ANY(" + arg(pq.Array(severityStrings(f.Severities))) + ")")
	}
	if f.ActorID != "" {
		b.WriteString(" AND actor_id = " + arg(f.ActorID))
	}
	if f.ResourceType != "" {
		b.WriteString(" AND resource_type = " + arg(f.ResourceType))
	}
	if f.ResourceID != "" {
		b.WriteString(" AND resource_id = " + arg(f.ResourceID))
	}
	if f.Success != nil {
		b.WriteString(" AND success = " + arg(*f.Success))
	}

	b.WriteString(" ORDER BY timestamp DESC")
	b.WriteString(" LIMIT " + arg(limit))
	b.WriteString(" OFFSET " + arg(offset))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry

	for rows.Next() {
		var (
			e        audit.Entry
			action   string
			category string
			severity string
			metadata []byte
		)

		err := rows.Scan(
			&e.ID, &e.Timestamp, &action, &category, &severity,
			&e.ActorID, &e.ActorLabel, &e.OrganizationID,
			&e.ResourceType, &e.ResourceID, &e.Description, &metadata, &e.Success,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		e.Action = audit.Action(action)
		e.Category = audit.Category(category)
		e.Severity = audit.Severity(severity)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode entry metadata: %w", err)
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

func actionStrings(in []audit.Action) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func categoryStrings(in []audit.Category) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func severityStrings(in []audit.Severity) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
