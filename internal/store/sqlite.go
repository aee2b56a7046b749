package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/proofgate/proofgate/pkg/proof"
)

const schema = `
CREATE TABLE IF NOT EXISTS used_proofs (
	fingerprint TEXT PRIMARY KEY,
	reserved_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_records (
	id TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	submitter TEXT NOT NULL,
	outcome TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_fingerprint ON audit_records(fingerprint);
CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_records(created_at);
`

// SQLite is the embedded persistent store, implementing both ReplayGuard and
// AuditLog over one database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the store at path. WAL mode keeps
// concurrent readers off the writer's back; the busy timeout covers the
// brief write lock contention SQLite allows.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply store schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Contains implements ReplayGuard.
func (s *SQLite) Contains(ctx context.Context, f proof.Digest) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM used_proofs WHERE fingerprint = ?`, f.Hex(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query used_proofs: %w", err)
	}
	return true, nil
}

// Reserve implements ReplayGuard. The primary key makes the reservation a
// conditional write: a second reservation of the same fingerprint affects no
// rows and surfaces as ErrAlreadyReserved.
func (s *SQLite) Reserve(ctx context.Context, f proof.Digest) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO used_proofs (fingerprint, reserved_at) VALUES (?, ?)`,
		f.Hex(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("reserve fingerprint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve fingerprint: %w", err)
	}
	if n == 0 {
		return ErrAlreadyReserved
	}
	return nil
}

// Append implements AuditLog.
func (s *SQLite) Append(ctx context.Context, rec SubmissionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_records (id, fingerprint, submitter, outcome, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Fingerprint.Hex(), rec.Submitter, string(rec.Outcome), rec.Reason, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// Recent implements AuditLog.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]SubmissionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fingerprint, submitter, outcome, reason, created_at
		 FROM audit_records ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []SubmissionRecord
	for rows.Next() {
		var (
			rec     SubmissionRecord
			fpHex   string
			outcome string
		)
		if err := rows.Scan(&rec.ID, &fpHex, &rec.Submitter, &outcome, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		d, err := proof.ParseDigest(fpHex)
		if err != nil {
			return nil, fmt.Errorf("corrupt fingerprint in audit record %s: %w", rec.ID, err)
		}
		rec.Fingerprint = d
		rec.Outcome = Outcome(outcome)
		records = append(records, rec)
	}
	return records, rows.Err()
}
