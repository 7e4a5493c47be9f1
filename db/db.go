// Package db keeps an optional SQLite journal of transcript lookups. Only
// outcome metadata is recorded; caption text is never stored.
package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const schema = `CREATE TABLE IF NOT EXISTS lookups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	video_id TEXT NOT NULL,
	operation TEXT NOT NULL,
	languages TEXT NOT NULL DEFAULT '',
	selected_language TEXT NOT NULL DEFAULT '',
	is_generated BOOLEAN NOT NULL DEFAULT 0,
	success BOOLEAN NOT NULL,
	error_kind TEXT NOT NULL DEFAULT '',
	segment_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lookups_created_at ON lookups(created_at);`

const (
	OperationTranscript = "transcript"
	OperationLanguages  = "languages"
)

// Lookup is one journal row.
type Lookup struct {
	ID               int64     `json:"id"`
	VideoID          string    `json:"video_id"`
	Operation        string    `json:"operation"`
	Languages        []string  `json:"languages"`
	SelectedLanguage string    `json:"selected_language,omitempty"`
	IsGenerated      bool      `json:"is_generated"`
	Success          bool      `json:"success"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	SegmentCount     int       `json:"segment_count"`
	CreatedAt        time.Time `json:"created_at"`
}

type Journal struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Open creates the database file (and its directory) if needed and applies
// the schema.
func Open(dbPath string, maxConnections int) (*Journal, error) {
	logrus.WithField("path", dbPath).Info("Initializing lookup journal")

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if maxConnections <= 0 {
		maxConnections = 1
	}
	db.SetMaxOpenConns(maxConnections)
	db.SetMaxIdleConns(maxConnections)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create lookups table")
	}

	return &Journal{db: db, logger: logrus.StandardLogger()}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends l to the journal. A zero CreatedAt is set to now.
func (j *Journal) Record(ctx context.Context, l Lookup) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lookups
		(video_id, operation, languages, selected_language, is_generated, success, error_kind, segment_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		l.VideoID,
		l.Operation,
		strings.Join(l.Languages, ","),
		l.SelectedLanguage,
		l.IsGenerated,
		l.Success,
		l.ErrorKind,
		l.SegmentCount,
		l.CreatedAt.UTC(),
	)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "insert lookup")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}

	j.logger.WithFields(logrus.Fields{
		"video_id":  l.VideoID,
		"operation": l.Operation,
		"success":   l.Success,
	}).Debug("Lookup recorded")
	return nil
}

// Recent returns up to limit lookups, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Lookup, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `SELECT
		id, video_id, operation, languages, selected_language, is_generated, success, error_kind, segment_count, created_at
		FROM lookups ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query lookups")
	}
	defer rows.Close()

	var lookups []Lookup
	for rows.Next() {
		var (
			l         Lookup
			languages string
		)
		if err := rows.Scan(
			&l.ID,
			&l.VideoID,
			&l.Operation,
			&languages,
			&l.SelectedLanguage,
			&l.IsGenerated,
			&l.Success,
			&l.ErrorKind,
			&l.SegmentCount,
			&l.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan lookup")
		}
		if languages != "" {
			l.Languages = strings.Split(languages, ",")
		}
		lookups = append(lookups, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate lookups")
	}
	return lookups, nil
}
