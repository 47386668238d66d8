// Package ledger tracks the mtime and content hash the indexer last saw for
// each file, so a full reindex can skip re-embedding files whose content
// hash is unchanged. Every file is still read and hashed; the stored mtime
// is not compared. It is a
// small SQLite table (mattn/go-sqlite3), grounded on the prior
// change_detector.go DB-vs-disk mtime comparison, and is NOT the vector
// store: chromem-go (internal/vectorstore) owns chunk content and
// embeddings, this package owns nothing but the change-detection fast path.
package ledger

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/semsearchd/internal/apperr"
)

// Record is one file's last-seen state.
type Record struct {
	SourceID     string
	RelativePath string
	ContentHash  string
	ModTime      time.Time
}

// Ledger persists Records in a single SQLite file.
type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS file_ledger (
	source_id     TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	mtime_unix    INTEGER NOT NULL,
	PRIMARY KEY (source_id, relative_path)
);
`

// Open creates or loads the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "opening ledger at %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.IOError, err, "creating ledger schema")
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Get returns the last-recorded state for a file, and false if the ledger
// has no record of it (a new file).
func (l *Ledger) Get(ctx context.Context, sourceID, relativePath string) (Record, bool, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT content_hash, mtime_unix FROM file_ledger WHERE source_id = ? AND relative_path = ?`,
		sourceID, relativePath)

	var hash string
	var mtimeUnix int64
	if err := row.Scan(&hash, &mtimeUnix); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, false, nil
		}
		return Record{}, false, apperr.Wrap(apperr.IOError, err, "reading ledger record for %s/%s", sourceID, relativePath)
	}

	return Record{
		SourceID:     sourceID,
		RelativePath: relativePath,
		ContentHash:  hash,
		ModTime:      time.Unix(mtimeUnix, 0),
	}, true, nil
}

// Put records (or overwrites) a file's current hash and mtime.
func (l *Ledger) Put(ctx context.Context, r Record) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO file_ledger (source_id, relative_path, content_hash, mtime_unix)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (source_id, relative_path) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   mtime_unix = excluded.mtime_unix`,
		r.SourceID, r.RelativePath, r.ContentHash, r.ModTime.Unix())
	if err != nil {
		return apperr.Wrap(apperr.IOError, err, "writing ledger record for %s/%s", r.SourceID, r.RelativePath)
	}
	return nil
}

// Delete removes a file's ledger record, called when the indexer removes a
// file from the vector repository.
func (l *Ledger) Delete(ctx context.Context, sourceID, relativePath string) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM file_ledger WHERE source_id = ? AND relative_path = ?`, sourceID, relativePath)
	if err != nil {
		return apperr.Wrap(apperr.IOError, err, "deleting ledger record for %s/%s", sourceID, relativePath)
	}
	return nil
}

// ListBySource returns every relative path the ledger has recorded for one
// source, used by reconcile to detect files deleted on disk since the last
// index run.
func (l *Ledger) ListBySource(ctx context.Context, sourceID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT relative_path FROM file_ledger WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "listing ledger records for source %s", sourceID)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, apperr.Wrap(apperr.IOError, err, "scanning ledger row")
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
