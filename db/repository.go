package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"caricature_studio/core"
)

// DefaultInitialCredits is granted to every new account.
const DefaultInitialCredits = 3

// DefaultHistoryLimit is used by ListHistory when limit is not positive.
const DefaultHistoryLimit = 50

var (
	ErrNotFound            = errors.New("db: record not found")
	ErrEmailTaken          = errors.New("db: email already registered")
	ErrInsufficientCredits = errors.New("db: insufficient credits")
)

// User is a row of the users table.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Credits      int
	CreatedAt    time.Time

	// LastLoginAt is zero until the first login.
	LastLoginAt time.Time
}

// HistoryItem is a finished caricature kept for the user.
type HistoryItem struct {
	ID     string
	UserID string

	// ImageData is the data URI of the generated image.
	ImageData string

	// ConfigJSON is the generation config the image was made with.
	ConfigJSON string

	Provider  string
	Model     string
	CreatedAt time.Time
}

// Repository reads and writes users and history.
type Repository struct {
	db             *Database
	initialCredits int
	now            func() time.Time
}

// NewRepository creates a Repository granting DefaultInitialCredits.
func NewRepository(db *Database) *Repository {
	return &Repository{
		db:             db,
		initialCredits: DefaultInitialCredits,
		now:            time.Now,
	}
}

// WithInitialCredits overrides the credits granted by CreateUser.
func (r *Repository) WithInitialCredits(credits int) *Repository {
	if credits >= 0 {
		r.initialCredits = credits
	}
	return r
}

// CreateUser inserts a new account. Emails are unique regardless of case.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	user := User{
		ID:           core.NewID(),
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		Credits:      r.initialCredits,
		CreatedAt:    r.now().UTC(),
	}
	if user.Email == "" {
		return User{}, fmt.Errorf("db: email is required")
	}

	err := r.db.withConn(func(conn *sql.DB) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO users (id, email, password_hash, credits, created_at) VALUES (?, ?, ?, ?, ?)`,
			user.ID, user.Email, user.PasswordHash, user.Credits, user.CreatedAt.UnixMilli())
		return err
	})
	if isUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, fmt.Errorf("db: insert user: %w", err)
	}
	return user, nil
}

const userColumns = `id, email, password_hash, credits, created_at, last_login_at`

func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
}

func (r *Repository) getUser(ctx context.Context, query string, arg string) (User, error) {
	var (
		user      User
		createdAt int64
		lastLogin sql.NullInt64
	)
	err := r.db.withConn(func(conn *sql.DB) error {
		return conn.QueryRowContext(ctx, query, arg).Scan(
			&user.ID, &user.Email, &user.PasswordHash, &user.Credits, &createdAt, &lastLogin)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("db: query user: %w", err)
	}
	user.CreatedAt = time.UnixMilli(createdAt).UTC()
	if lastLogin.Valid {
		user.LastLoginAt = time.UnixMilli(lastLogin.Int64).UTC()
	}
	return user, nil
}

// TouchLogin records a successful login.
func (r *Repository) TouchLogin(ctx context.Context, userID string) error {
	return r.execOne(ctx, "update last login",
		`UPDATE users SET last_login_at = ? WHERE id = ?`, r.now().UTC().UnixMilli(), userID)
}

// Credits returns the current balance.
func (r *Repository) Credits(ctx context.Context, userID string) (int, error) {
	user, err := r.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// AddCredits changes the balance by delta and returns the new balance. A
// negative delta that would take the balance below zero fails with
// ErrInsufficientCredits and changes nothing.
func (r *Repository) AddCredits(ctx context.Context, userID string, delta int) (int, error) {
	return r.updateCredits(ctx, userID,
		`UPDATE users SET credits = credits + ? WHERE id = ? AND credits + ? >= 0 RETURNING credits`,
		delta, userID, delta)
}

// ChargeCredit deducts one credit. The decrement is conditional, so the
// balance never goes below zero even under concurrent charges.
func (r *Repository) ChargeCredit(ctx context.Context, userID string) (int, error) {
	return r.updateCredits(ctx, userID,
		`UPDATE users SET credits = credits - 1 WHERE id = ? AND credits >= 1 RETURNING credits`,
		userID)
}

func (r *Repository) updateCredits(ctx context.Context, userID, query string, args ...any) (int, error) {
	var balance int
	err := r.db.withConn(func(conn *sql.DB) error {
		return conn.QueryRowContext(ctx, query, args...).Scan(&balance)
	})
	if errors.Is(err, sql.ErrNoRows) {
		// Either the user does not exist or the guard rejected the update.
		if _, getErr := r.GetUser(ctx, userID); getErr != nil {
			return 0, getErr
		}
		return 0, ErrInsufficientCredits
	}
	if err != nil {
		return 0, fmt.Errorf("db: update credits: %w", err)
	}
	return balance, nil
}

// SaveHistory inserts item. Empty ID and CreatedAt are filled in.
func (r *Repository) SaveHistory(ctx context.Context, item HistoryItem) (HistoryItem, error) {
	if item.ID == "" {
		item.ID = core.NewID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = r.now().UTC()
	}
	err := r.db.withConn(func(conn *sql.DB) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO history (id, user_id, image_data, config_json, provider, model, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.UserID, item.ImageData, item.ConfigJSON, item.Provider, item.Model,
			item.CreatedAt.UnixMilli())
		return err
	})
	if err != nil {
		return HistoryItem{}, fmt.Errorf("db: insert history: %w", err)
	}
	return item, nil
}

// ListHistory returns up to limit items of the user, newest first.
func (r *Repository) ListHistory(ctx context.Context, userID string, limit int) ([]HistoryItem, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	items := []HistoryItem{}
	err := r.db.withConn(func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, user_id, image_data, config_json, provider, model, created_at
			 FROM history
			 WHERE user_id = ?
			 ORDER BY created_at DESC, rowid DESC
			 LIMIT ?`, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				item      HistoryItem
				createdAt int64
			)
			if err := rows.Scan(&item.ID, &item.UserID, &item.ImageData, &item.ConfigJSON,
				&item.Provider, &item.Model, &createdAt); err != nil {
				return err
			}
			item.CreatedAt = time.UnixMilli(createdAt).UTC()
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("db: list history: %w", err)
	}
	return items, nil
}

// DeleteHistoryItem removes one item owned by userID. Items of other users
// report ErrNotFound.
func (r *Repository) DeleteHistoryItem(ctx context.Context, userID, id string) error {
	return r.execOne(ctx, "delete history item",
		`DELETE FROM history WHERE id = ? AND user_id = ?`, id, userID)
}

// execOne runs a statement that must affect exactly one row.
func (r *Repository) execOne(ctx context.Context, what, query string, args ...any) error {
	var affected int64
	err := r.db.withConn(func(conn *sql.DB) error {
		res, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("db: %s: %w", what, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// Older builds report the primary code only.
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
}
