// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/staffdrill/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps SQLite access for learner profiles and answer history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS answers (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			profile_key TEXT NOT NULL,
			stage_id INTEGER NOT NULL,
			mode TEXT NOT NULL,
			note TEXT NOT NULL,
			chosen TEXT NOT NULL,
			correct INTEGER NOT NULL,
			timed_out INTEGER NOT NULL,
			reaction_ms INTEGER NOT NULL,
			mastery REAL NOT NULL,
			answered_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_answers_profile_answered ON answers(profile_key, answered_at);`,
		`CREATE INDEX IF NOT EXISTS idx_answers_session ON answers(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadProfile returns the raw record stored under key. The bool is false when
// nothing has been stored yet.
func (s *Store) LoadProfile(ctx context.Context, key string) ([]byte, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(data), true, nil
}

// SaveProfile replaces the record stored under key.
func (s *Store) SaveProfile(ctx context.Context, key string, data []byte) error {
	return saveProfile(ctx, s.db, key, data)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveProfile(ctx context.Context, db execer, key string, data []byte) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO profiles (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC().Format(timeLayout))
	return err
}

// RecordAnswer stores the updated profile and the answer that produced it in
// one transaction.
func (s *Store) RecordAnswer(ctx context.Context, key string, data []byte, ans model.Answer) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if err = saveProfile(ctx, tx, key, data); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO answers (session_id, profile_key, stage_id, mode, note, chosen, correct, timed_out, reaction_ms, mastery, answered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ans.SessionID,
		key,
		ans.StageID,
		ans.Mode.String(),
		ans.Note,
		ans.Chosen,
		boolInt(ans.Correct),
		boolInt(ans.TimedOut),
		ans.ReactionMs,
		ans.Mastery,
		ans.AnsweredAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteProfile removes the record and answer history stored under key.
func (s *Store) DeleteProfile(ctx context.Context, key string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM profiles WHERE key = ?`, key); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM answers WHERE profile_key = ?`, key); err != nil {
		return err
	}
	return tx.Commit()
}

// ListAnswers returns answers for the configured profile in chronological order.
func (s *Store) ListAnswers(ctx context.Context, cfg model.StatsConfig) ([]model.Answer, error) {
	where, args := answerFilter(cfg)
	query := fmt.Sprintf(`SELECT session_id, profile_key, stage_id, mode, note, chosen, correct, timed_out, reaction_ms, mastery, answered_at
		FROM answers
		WHERE %s
		ORDER BY answered_at ASC, id ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var answers []model.Answer
	for rows.Next() {
		var (
			ans               model.Answer
			mode, answeredAt  string
			correct, timedOut int
		)
		if err := rows.Scan(&ans.SessionID, &ans.ProfileKey, &ans.StageID, &mode, &ans.Note, &ans.Chosen,
			&correct, &timedOut, &ans.ReactionMs, &ans.Mastery, &answeredAt); err != nil {
			return nil, err
		}
		if ans.Mode, err = model.ParseMode(mode); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, answeredAt)
		if err != nil {
			return nil, err
		}
		ans.AnsweredAt = parsed
		ans.Correct = correct != 0
		ans.TimedOut = timedOut != 0
		answers = append(answers, ans)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return answers, nil
}

// ListDailySummaries aggregates answers per local calendar day, oldest first.
// cfg.Last limits the result to the most recent N days.
func (s *Store) ListDailySummaries(ctx context.Context, cfg model.StatsConfig) ([]model.DailySummary, error) {
	answers, err := s.ListAnswers(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var days []model.DailySummary
	sessionsSeen := map[string]struct{}{}
	for _, ans := range answers {
		local := ans.AnsweredAt.In(time.Local)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
		if len(days) == 0 || !days[len(days)-1].Day.Equal(day) {
			days = append(days, model.DailySummary{Day: day})
			sessionsSeen = map[string]struct{}{}
		}
		cur := &days[len(days)-1]
		cur.Attempts++
		if ans.Correct {
			cur.Correct++
			cur.ReactionMs += ans.ReactionMs
		}
		if _, ok := sessionsSeen[ans.SessionID]; !ok {
			sessionsSeen[ans.SessionID] = struct{}{}
			cur.Sessions++
		}
	}
	if cfg.Last > 0 && len(days) > cfg.Last {
		days = days[len(days)-cfg.Last:]
	}
	return days, nil
}

func answerFilter(cfg model.StatsConfig) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.ProfileKey != "" {
		clauses = append(clauses, "profile_key = ?")
		args = append(args, cfg.ProfileKey)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "answered_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	return strings.Join(clauses, " AND "), args
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
