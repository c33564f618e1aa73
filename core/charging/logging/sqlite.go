package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists logs to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS allocation_logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        tick_id TEXT,
        ts INTEGER,
        cluster_id TEXT,
        faulted INTEGER,
        record TEXT
    );
    CREATE INDEX IF NOT EXISTS allocation_logs_cluster_ts ON allocation_logs (cluster_id, ts);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec LogRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	faulted := 0
	if rec.Fault != "" {
		faulted = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO allocation_logs (tick_id, ts, cluster_id, faulted, record) VALUES (?, ?, ?, ?, ?)`,
		rec.TickID, rec.Timestamp.UnixNano(), rec.ClusterID, faulted, string(b))
	return err
}

// Query returns records matching q ordered by tick time.
func (s *SQLiteStore) Query(ctx context.Context, q LogQuery) ([]LogRecord, error) {
	var args []any
	query := `SELECT record FROM allocation_logs WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.ClusterID != "" {
		query += ` AND cluster_id = ?`
		args = append(args, q.ClusterID)
	}
	if q.FaultsOnly {
		query += ` AND faulted = 1`
	}
	query += ` ORDER BY ts, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []LogRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r LogRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		if q.VehicleID != "" && !r.Involves(q.VehicleID) {
			continue
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
