package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/kgchat/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	login      TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the account database at dbPath.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddAccount creates an account, optionally making it the active one.
func (s *SQLiteStore) AddAccount(ctx context.Context, userID, login, password string, setActive bool) (*store.Account, error) {
	if setActive {
		if _, err := s.db.ExecContext(ctx, `UPDATE accounts SET active = 0`); err != nil {
			return nil, fmt.Errorf("clear active: %w", err)
		}
	}

	active := 0
	if setActive {
		active = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, login, password, active) VALUES (?, ?, ?, ?)`,
		userID, login, password, active)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, store.ErrAccountExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return s.GetAccountByLogin(ctx, login)
}

// RemoveAccount deletes an account by login.
func (s *SQLiteStore) RemoveAccount(ctx context.Context, login string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE login = ?`, login)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrAccountNotFound
	}
	return nil
}

// GetAccountByLogin retrieves an account by login.
func (s *SQLiteStore) GetAccountByLogin(ctx context.Context, login string) (*store.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, login, password, active, created_at FROM accounts WHERE login = ?`, login)
	return scanAccount(row)
}

// ActiveAccount returns the active account, or the first stored one when
// none is marked active.
func (s *SQLiteStore) ActiveAccount(ctx context.Context) (*store.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, login, password, active, created_at FROM accounts WHERE active = 1 LIMIT 1`)
	acc, err := scanAccount(row)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, store.ErrAccountNotFound) {
		return nil, err
	}

	row = s.db.QueryRowContext(ctx,
		`SELECT id, user_id, login, password, active, created_at FROM accounts ORDER BY id LIMIT 1`)
	return scanAccount(row)
}

// ListAccounts lists all accounts in insertion order.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*store.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, login, password, active, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*store.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// SetActive marks the given login as the single active account.
func (s *SQLiteStore) SetActive(ctx context.Context, login string) error {
	if _, err := s.GetAccountByLogin(ctx, login); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE accounts SET active = 0`); err != nil {
		return fmt.Errorf("clear active: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE accounts SET active = 1 WHERE login = ?`, login); err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*store.Account, error) {
	var acc store.Account
	var active int
	err := row.Scan(&acc.ID, &acc.UserID, &acc.Login, &acc.Password, &active, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	acc.Active = active == 1
	return &acc, nil
}
