package cdb

import (
	"context"
	"database/sql"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/export"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"github.com/lib/pq"
	"golang.org/x/xerrors"
)

var (
	_ export.RecordSink = (*Store)(nil)
	_ export.SkillSink  = (*Store)(nil)
)

const (
	createVacanciesQuery = `
  CREATE TABLE IF NOT EXISTS vacancies (
    run_id UUID NOT NULL,
    exported_at TIMESTAMP NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    company TEXT NOT NULL,
    salary BIGINT,
    url TEXT NOT NULL,
    skills TEXT NOT NULL,
    employment TEXT NOT NULL,
    PRIMARY KEY (run_id, id)
  )
  `
	createTopSkillsQuery = `
  CREATE TABLE IF NOT EXISTS top_skills (
    run_id UUID NOT NULL,
    exported_at TIMESTAMP NOT NULL,
    place INT NOT NULL,
    skill TEXT NOT NULL,
    vacancy_count INT NOT NULL,
    PRIMARY KEY (run_id, place)
  )
  `
)

var (
	vacancyColumns  = []string{"run_id", "exported_at", "id", "name", "company", "salary", "url", "skills", "employment"}
	topSkillColumns = []string{"run_id", "exported_at", "place", "skill", "vacancy_count"}
)

// Store persists export rows into PostgreSQL or CockroachDB. Every run is
// kept side by side under its run ID.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn and creates the export tables when missing.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	for _, q := range []string{createVacanciesQuery, createTopSkillsQuery} {
		if _, err = db.Exec(q); err != nil {
			_ = db.Close()
			return nil, xerrors.Errorf("create schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WriteRecords bulk loads rows for run in a single transaction.
func (s *Store) WriteRecords(ctx context.Context, run export.Run, rows []export.Row) error {
	at := run.At.UTC()
	return s.copyIn(ctx, "vacancies", vacancyColumns, len(rows), func(i int) []interface{} {
		r := rows[i]
		var salary sql.NullInt64
		if r.Salary != nil {
			salary = sql.NullInt64{Int64: int64(*r.Salary), Valid: true}
		}
		return []interface{}{run.ID, at, r.ID, r.Name, r.Company, salary, r.URL, r.Skills, r.Employment}
	})
}

// WriteSkills stores the ranking for run in a single transaction. Places
// start at 1.
func (s *Store) WriteSkills(ctx context.Context, run export.Run, ranked vacancy.RankedSkillList) error {
	at := run.At.UTC()
	return s.copyIn(ctx, "top_skills", topSkillColumns, len(ranked), func(i int) []interface{} {
		return []interface{}{run.ID, at, i + 1, ranked[i].Skill, ranked[i].Count}
	})
}

func (s *Store) copyIn(ctx context.Context, table string, columns []string, n int, row func(int) []interface{}) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Errorf("copy %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		_ = tx.Rollback()
		return xerrors.Errorf("copy %s: %w", table, err)
	}

	for i := 0; i < n; i++ {
		if _, err = stmt.ExecContext(ctx, row(i)...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return xerrors.Errorf("copy %s: %w", table, err)
		}
	}

	// Flush buffered rows.
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return xerrors.Errorf("copy %s: %w", table, err)
	}
	if err = stmt.Close(); err != nil {
		_ = tx.Rollback()
		return xerrors.Errorf("copy %s: %w", table, err)
	}

	if err = tx.Commit(); err != nil {
		return xerrors.Errorf("copy %s: %w", table, err)
	}
	return nil
}
