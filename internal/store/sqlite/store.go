// Package sqlite is the embedded, single-node implementation of the workflow
// store. It backs the test suite and small deployments that run without
// PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ewaste-backend/internal/models"
	"ewaste-backend/internal/workflow"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

//go:embed schema.sql
var schemaSQL string

var _ workflow.Store = (*Store)(nil)

// Store is a workflow.Store over a single SQLite database file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
//
// SQLite has a single writer, so the pool is limited to one connection:
// transactions queue for it and every conditional status update observes the
// previous writer's commit.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "ewaste.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// DB returns the underlying handle for tests and diagnostics.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// WithinTx runs fn in a transaction, rolling back on any error.
func (s *Store) WithinTx(ctx context.Context, fn func(tx workflow.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&txStore{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Snapshot reads every request and its history inside one transaction, so
// no transition lands between the two reads.
func (s *Store) Snapshot(ctx context.Context) ([]models.RequestSnapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	requests, err := listRequests(ctx, tx, "", nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.RequestSnapshot, 0, len(requests))
	for _, req := range requests {
		history, err := listHistory(ctx, tx, req.ID)
		if err != nil {
			return nil, fmt.Errorf("history for request %d: %w", req.ID, err)
		}
		out = append(out, models.RequestSnapshot{Request: req, History: history})
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return insertUser(ctx, s.db, u)
}

func (s *Store) GetUser(ctx context.Context, id int) (*models.User, error) {
	return getUser(ctx, s.db, "id = ?", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return getUser(ctx, s.db, "email = ?", email)
}

func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return listUsersByRole(ctx, s.db, role)
}

func (s *Store) GetRequest(ctx context.Context, id int) (*models.DonationRequest, error) {
	return getRequest(ctx, s.db, id)
}

func (s *Store) ListRequests(ctx context.Context) ([]models.DonationRequest, error) {
	return listRequests(ctx, s.db, "", nil)
}

func (s *Store) ListRequestsByDonor(ctx context.Context, donorID int) ([]models.DonationRequest, error) {
	return listRequests(ctx, s.db, "WHERE donor_id = ?", []any{donorID})
}

func (s *Store) GetAssignmentByRequest(ctx context.Context, requestID int) (*models.RecyclerAssignment, error) {
	return getAssignment(ctx, s.db, "request_id = ?", requestID)
}

func (s *Store) ListAssignmentsByRecycler(ctx context.Context, recyclerID int) ([]models.AssignmentDetail, error) {
	return listAssignmentsByRecycler(ctx, s.db, recyclerID)
}

func (s *Store) ListHistory(ctx context.Context, requestID int) ([]models.StatusHistoryEntry, error) {
	return listHistory(ctx, s.db, requestID)
}

func (s *Store) ListVolunteerAssignments(ctx context.Context, requestID int) ([]models.VolunteerAssignment, error) {
	return listVolunteerAssignments(ctx, s.db, requestID)
}
