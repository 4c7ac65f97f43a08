// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vinsight/vinsight/internal/logging"
)

// DuckDBStore implements Store on the same DuckDB handle the insight
// store uses, so audit entries survive restarts alongside the insights
// they describe.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a DuckDB-backed audit store. Call CreateTable
// before the first Save.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the insight_audit table if it doesn't exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS insight_audit (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			action TEXT NOT NULL,
			store_id TEXT NOT NULL,
			insight_id TEXT,
			from_status TEXT,
			to_status TEXT,
			source_ip TEXT,
			request_id TEXT,
			metadata JSON
		);

		CREATE INDEX IF NOT EXISTS idx_insight_audit_timestamp ON insight_audit(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_insight_audit_store ON insight_audit(store_id);
		CREATE INDEX IF NOT EXISTS idx_insight_audit_insight ON insight_audit(insight_id);
		CREATE INDEX IF NOT EXISTS idx_insight_audit_action ON insight_audit(action);
	`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}

	logging.Debug().Msg("Insight audit table created/verified")
	return nil
}

// Save persists an audit entry.
func (s *DuckDBStore) Save(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}

	var metadata *string
	if len(entry.Metadata) > 0 {
		m := string(entry.Metadata)
		metadata = &m
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO insight_audit (
			id, timestamp, action, store_id, insight_id,
			from_status, to_status, source_ip, request_id, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp,
		string(entry.Action),
		entry.StoreID,
		nullable(entry.InsightID),
		nullable(entry.FromStatus),
		nullable(entry.ToStatus),
		nullable(entry.SourceIP),
		nullable(entry.RequestID),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit entry: %w", err)
	}
	return nil
}

// Query retrieves entries matching the filter, newest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	where, args := buildAuditWhere(filter)

	query := `
		SELECT id, timestamp, action, store_id, insight_id,
		       from_status, to_status, source_ip, request_id, metadata
		FROM insight_audit` + where + `
		ORDER BY timestamp DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryFilter().Limit
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var insightID, fromStatus, toStatus, sourceIP, requestID, metadata sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.StoreID,
			&insightID, &fromStatus, &toStatus, &sourceIP, &requestID, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.InsightID = insightID.String
		e.FromStatus = fromStatus.String
		e.ToStatus = toStatus.String
		e.SourceIP = sourceIP.String
		e.RequestID = requestID.String
		if metadata.Valid {
			e.Metadata = []byte(metadata.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries matching the filter.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := buildAuditWhere(filter)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM insight_audit"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// PurgeBefore removes entries older than the cutoff and returns how
// many were deleted.
func (s *DuckDBStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM insight_audit WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge count: %w", err)
	}
	return deleted, nil
}

func buildAuditWhere(filter QueryFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.StoreID != "" {
		conditions = append(conditions, "store_id = ?")
		args = append(args, filter.StoreID)
	}
	if filter.InsightID != "" {
		conditions = append(conditions, "insight_id = ?")
		args = append(args, filter.InsightID)
	}
	if len(filter.Actions) > 0 {
		placeholders := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			placeholders[i] = "?"
			args = append(args, string(a))
		}
		conditions = append(conditions, "action IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.Start != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *filter.Start)
	}
	if filter.End != nil {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, *filter.End)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
