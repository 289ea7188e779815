package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/authflow"
)

// RecordActivity inserts record. A missing ID or timestamp is filled in.
func (s *Store) RecordActivity(ctx context.Context, record authflow.ActivityRecord) error {
	if record.ID == "" {
		record.ID = s.newID()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now()
	}

	var metadata string
	if len(record.Metadata) > 0 {
		raw, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(raw)
	}

	query := `INSERT INTO activity_log (id, occurred_at, user_id, email, category, action, success, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(query),
		record.ID, toMillis(record.Timestamp), record.UserID, record.Email,
		record.Category, record.Action, record.Success, metadata,
	)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// RecentActivity returns up to n records, newest first.
func (s *Store) RecentActivity(ctx context.Context, n int) ([]authflow.ActivityRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	query := `SELECT id, occurred_at, user_id, email, category, action, success, metadata
  FROM activity_log
 ORDER BY occurred_at DESC, id DESC
 LIMIT $1`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), n)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var out []authflow.ActivityRecord
	for rows.Next() {
		var (
			record     authflow.ActivityRecord
			occurredAt int64
			metadata   string
		)
		if err := rows.Scan(&record.ID, &occurredAt, &record.UserID, &record.Email,
			&record.Category, &record.Action, &record.Success, &metadata); err != nil {
			return nil, unavailable(err)
		}
		record.Timestamp = fromMillis(occurredAt)
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &record.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}
