// Package localstore is a SQLite-backed implementation of the rowstore
// Selector, mirroring the remote store's tables so the service can run
// self-contained. Unlike the remote store it also accepts writes: a
// completed questionnaire can be stored together with its answer rows.
package localstore

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/navvicorp/datrix/internal/report"
	"github.com/navvicorp/datrix/internal/rowstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS assessments (
	id          TEXT PRIMARY KEY,
	company     TEXT NOT NULL DEFAULT '',
	user_email  TEXT NOT NULL DEFAULT '',
	assessed_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS assessment_answers (
	assessment_id TEXT NOT NULL,
	question_id   TEXT NOT NULL,
	score         REAL,
	answer_value  TEXT,
	PRIMARY KEY (assessment_id, question_id)
);

CREATE TABLE IF NOT EXISTS questions (
	id           TEXT PRIMARY KEY,
	text         TEXT,
	question     TEXT,
	category_key TEXT,
	category     TEXT
);

CREATE TABLE IF NOT EXISTS categories (
	key  TEXT PRIMARY KEY,
	name TEXT
);
`

var allowedTables = map[string]struct{}{
	rowstore.TableAssessments: {},
	rowstore.TableAnswers:     {},
	rowstore.TableQuestions:   {},
	rowstore.TableCategories:  {},
}

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type Store struct {
	db *sqlx.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Select implements rowstore.Selector over the local tables. The
// supported parameter grammar matches what the report pipeline issues:
// "<col>=eq.<value>" filters, "limit", and "select" (ignored; all
// columns always come back).
func (s *Store) Select(ctx context.Context, table string, params url.Values) ([]rowstore.Row, error) {
	if _, ok := allowedTables[table]; !ok {
		return nil, fmt.Errorf("localstore: unknown table %q", table)
	}

	query := "SELECT * FROM " + table
	var args []any
	var clauses []string
	limit := ""
	for key, vals := range params {
		if len(vals) == 0 {
			continue
		}
		val := vals[0]
		switch key {
		case "select":
			// column projection is a remote-store optimisation only
		case "limit":
			limit = " LIMIT " + fmt.Sprintf("%d", atoiOr(val, 1))
		default:
			if !columnPattern.MatchString(key) {
				return nil, fmt.Errorf("localstore: bad filter column %q", key)
			}
			rest, ok := strings.CutPrefix(val, "eq.")
			if !ok {
				return nil, fmt.Errorf("localstore: unsupported filter %q=%q", key, val)
			}
			clauses = append(clauses, key+" = ?")
			args = append(args, rest)
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += limit

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("localstore: select %s: %w", table, err)
	}
	defer rows.Close()

	out := []rowstore.Row{}
	for rows.Next() {
		m := map[string]any{}
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("localstore: scan %s: %w", table, err)
		}
		for k, v := range m {
			if b, ok := v.([]byte); ok {
				m[k] = string(b)
			}
		}
		out = append(out, rowstore.Row(m))
	}
	return out, rows.Err()
}

// Submission is one completed questionnaire headed for storage.
type Submission struct {
	AssessmentID string
	Company      string
	Email        string
	AssessedAt   time.Time
	// Scores keyed by question id; values go through the same loose
	// coercion as remote rows when read back.
	Scores map[string]float64
}

// InsertAssessment stores the submission and its answer rows in one
// transaction. A resubmission for the same assessment id replaces the
// previous answers.
func (s *Store) InsertAssessment(ctx context.Context, sub Submission) error {
	if strings.TrimSpace(sub.AssessmentID) == "" {
		return fmt.Errorf("localstore: assessment id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localstore: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assessments (id, company, user_email, assessed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET company=excluded.company, user_email=excluded.user_email, assessed_at=excluded.assessed_at`,
		sub.AssessmentID, sub.Company, sub.Email, sub.AssessedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("localstore: upsert assessment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM assessment_answers WHERE assessment_id = ?`, sub.AssessmentID); err != nil {
		return fmt.Errorf("localstore: clear answers: %w", err)
	}
	for qid, score := range sub.Scores {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assessment_answers (assessment_id, question_id, score) VALUES (?, ?, ?)`,
			sub.AssessmentID, qid, score); err != nil {
			return fmt.Errorf("localstore: insert answer %s: %w", qid, err)
		}
	}
	return tx.Commit()
}

// SeedCatalog loads the question and category catalogs, replacing any
// previous rows. Meant for dev/demo setups and tests.
func (s *Store) SeedCatalog(ctx context.Context, questions []report.Question, categories []report.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localstore: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return err
	}
	for _, q := range questions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, text, category_key) VALUES (?, ?, ?)`,
			q.ID, q.Text, q.CategoryKey); err != nil {
			return fmt.Errorf("localstore: seed question %s: %w", q.ID, err)
		}
	}
	for _, c := range categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (key, name) VALUES (?, ?)`,
			c.Key, c.Name); err != nil {
			return fmt.Errorf("localstore: seed category %s: %w", c.Key, err)
		}
	}
	return tx.Commit()
}

func atoiOr(s string, def int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	if s == "" {
		return def
	}
	return n
}
