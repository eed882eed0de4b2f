package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/pkg/logger"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `CREATE TABLE IF NOT EXISTS projects (
	position INTEGER NOT NULL PRIMARY KEY,
	id       TEXT    NOT NULL UNIQUE,
	doc      TEXT    NOT NULL
)`

// SQLiteStore keeps one row per project, ordered by position.
type SQLiteStore struct {
	sqlDB *sql.DB
	cfg   config
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB, cfg: buildConfig(opts)}, nil
}

// Load implements Store. An empty table reports ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context) ([]model.Project, error) {
	defer observe("load", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, ErrClosed
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, doc FROM projects ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		var p model.Project
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			s.cfg.log.Warn(ctx, "undecodable project row", logger.String("id", id), logger.Error(err))
			return nil, fmt.Errorf("%w: project %s: %v", ErrCorrupt, id, err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	if len(projects) == 0 {
		return nil, ErrNotFound
	}
	return projects, nil
}

// Save implements Store in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, projects []model.Project) (err error) {
	defer observe("save", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return ErrClosed
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.cfg.log.Error(ctx, "rollback failed", logger.Error(rbErr))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return fmt.Errorf("clear projects: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO projects (position, id, doc) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, p := range projects {
		doc, mErr := json.Marshal(p)
		if mErr != nil {
			err = fmt.Errorf("encode project %s: %w", p.ID, mErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, i, p.ID.String(), string(doc)); err != nil {
			return fmt.Errorf("insert project %s: %w", p.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.cfg.log.Debug(ctx, "projects saved", logger.Int("count", len(projects)))
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
