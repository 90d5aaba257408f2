package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/factlens/factlens/internal/investigation"
)

// Record is one persisted investigation or text analysis.
type Record struct {
	ID        string                `json:"id"`
	UserID    string                `json:"userId,omitempty"`
	Kind      string                `json:"kind"` // "investigation" or "analysis"
	Input     string                `json:"input"`
	Result    *investigation.Result `json:"result,omitempty"`
	Spans     json.RawMessage       `json:"spans,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}

// PersistenceError wraps storage failures so the HTTP layer can map them
// uniformly. The store does not retry beyond what the driver does.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = sql.ErrNoRows

// Store persists investigation history and user accounts in Postgres.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// New opens the database and ensures the schema exists.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{db: db, logger: log.New(log.Writer(), "[STORE] ", log.LstdFlags)}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection, for tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, logger: log.New(log.Writer(), "[STORE] ", log.LstdFlags)}
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			kind TEXT NOT NULL,
			input TEXT NOT NULL,
			result JSONB,
			spans JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_user_created ON records (user_id, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveRecord writes one finished investigation or analysis.
func (s *Store) SaveRecord(ctx context.Context, r Record) error {
	var resultJSON []byte
	if r.Result != nil {
		b, err := json.Marshal(r.Result)
		if err != nil {
			return &PersistenceError{Op: "save", Err: err}
		}
		resultJSON = b
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, user_id, kind, input, result, spans, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, nullable(r.UserID), r.Kind, r.Input, nullableBytes(resultJSON), nullableBytes(r.Spans), r.CreatedAt)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// ListRecords returns a user's records sorted by recency.
func (s *Store) ListRecords(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, input, result, spans, created_at FROM records WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r          Record
			resultJSON []byte
			spansJSON  []byte
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.Input, &resultJSON, &spansJSON, &r.CreatedAt); err != nil {
			return nil, &PersistenceError{Op: "list", Err: err}
		}
		r.UserID = userID
		if len(resultJSON) > 0 {
			var res investigation.Result
			if err := json.Unmarshal(resultJSON, &res); err == nil {
				r.Result = &res
			}
		}
		r.Spans = spansJSON
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRecord fetches one record, scoped to its owner.
func (s *Store) GetRecord(ctx context.Context, userID, id string) (Record, error) {
	var (
		r          Record
		resultJSON []byte
		spansJSON  []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, input, result, spans, created_at FROM records WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&r.ID, &r.Kind, &r.Input, &resultJSON, &spansJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, &PersistenceError{Op: "get", Err: err}
	}
	r.UserID = userID
	if len(resultJSON) > 0 {
		var res investigation.Result
		if err := json.Unmarshal(resultJSON, &res); err == nil {
			r.Result = &res
		}
	}
	r.Spans = spansJSON
	return r, nil
}

// DeleteRecord removes one record, scoped to its owner.
func (s *Store) DeleteRecord(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeOlderThan deletes records older than the cutoff and returns their ids
// so the caller can drop them from the search index as well.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `DELETE FROM records WHERE created_at < $1 RETURNING id`, cutoff)
	if err != nil {
		return nil, &PersistenceError{Op: "purge", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &PersistenceError{Op: "purge", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "purge", Err: err}
	}
	return ids, nil
}

// AllRecords returns every stored record, for rebuilding the search index at
// startup. Spans are skipped; the index does not use them.
func (s *Store) AllRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, kind, input, result, created_at FROM records`)
	if err != nil {
		return nil, &PersistenceError{Op: "list all", Err: err}
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r          Record
			userID     sql.NullString
			resultJSON []byte
		)
		if err := rows.Scan(&r.ID, &userID, &r.Kind, &r.Input, &resultJSON, &r.CreatedAt); err != nil {
			return nil, &PersistenceError{Op: "list all", Err: err}
		}
		r.UserID = userID.String
		if len(resultJSON) > 0 {
			var res investigation.Result
			if err := json.Unmarshal(resultJSON, &res); err == nil {
				r.Result = &res
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list all", Err: err}
	}
	return out, nil
}

// User is one account row.
type User struct {
	ID           string
	Email        string
	PasswordHash string
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		u.ID, u.Email, u.PasswordHash)
	if err != nil {
		return &PersistenceError{Op: "create user", Err: err}
	}
	return nil
}

// UserByEmail fetches an account by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, &PersistenceError{Op: "get user", Err: err}
	}
	return u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
