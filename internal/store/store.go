package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAccountExists means an account with the same login already exists.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound means no account matched.
	ErrAccountNotFound = errors.New("account not found")
)

// Account is a stored chat account. UserID is the numeric site id; the
// pair userID#login forms the authentication identity.
type Account struct {
	ID        int64
	UserID    string
	Login     string
	Password  string
	Active    bool
	CreatedAt time.Time
}

// AccountStore handles account persistence.
type AccountStore interface {
	// AddAccount creates an account. When setActive is true it becomes the
	// single active account.
	AddAccount(ctx context.Context, userID, login, password string, setActive bool) (*Account, error)

	// RemoveAccount deletes an account by login.
	RemoveAccount(ctx context.Context, login string) error

	// GetAccountByLogin retrieves an account by login.
	GetAccountByLogin(ctx context.Context, login string) (*Account, error)

	// ActiveAccount returns the active account, falling back to the first
	// stored account when none is marked active.
	ActiveAccount(ctx context.Context) (*Account, error)

	// ListAccounts lists all accounts in insertion order.
	ListAccounts(ctx context.Context) ([]*Account, error)

	// SetActive marks the given login as the single active account.
	SetActive(ctx context.Context, login string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	AccountStore

	// Close closes the underlying database connection.
	Close() error
}
