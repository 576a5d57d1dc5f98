package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Store on a single SQLite database file.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

// DSN returns the connection string used for dbPath.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Transactions

const transactionColumns = `id, user_id, description, amount_cents, category, type, date, created_at`

func (r *SQLiteRepository) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.ID = uuid.New().String()
	tx.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Description, tx.Amount.Cents, tx.Category, string(tx.Type), tx.Date.String(), tx.CreatedAt.UnixNano(),
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, uid string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? ORDER BY date DESC, created_at DESC`,
		uid,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, uid, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`,
		id, uid,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return tx, err
}

func (r *SQLiteRepository) Update(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET description = ?, amount_cents = ?, category = ?, type = ?, date = ?
		 WHERE id = ? AND user_id = ?`,
		tx.Description, tx.Amount.Cents, tx.Category, string(tx.Type), tx.Date.String(), tx.ID, tx.UserID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOneRow(res, "transaction "+tx.ID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, uid, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, uid)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOneRow(res, "transaction "+id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		txType    string
		date      string
		createdAt int64
	)
	err := s.Scan(&tx.ID, &tx.UserID, &tx.Description, &tx.Amount.Cents, &tx.Category, &txType, &date, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TransactionType(txType)
	if tx.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s has corrupt date %q: %w", tx.ID, date, err)
	}
	tx.CreatedAt = time.Unix(0, createdAt).UTC()
	return tx, nil
}

// Profiles

func (r *SQLiteRepository) CreateProfile(ctx context.Context, p core.UserProfile) error {
	expense, income, err := encodeCustoms(p.CustomCategories)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (uid, email, name, photo_url, custom_expense, custom_income, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UID, p.Email, p.Name, nullString(p.PhotoURL), expense, income, r.now().UTC().UnixNano(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("profile %s: %w", p.UID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, uid string) (core.UserProfile, error) {
	var (
		p       core.UserProfile
		photo   sql.NullString
		expense string
		income  string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT uid, email, name, photo_url, custom_expense, custom_income FROM users WHERE uid = ?`,
		uid,
	).Scan(&p.UID, &p.Email, &p.Name, &photo, &expense, &income)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{}, fmt.Errorf("profile %s: %w", uid, ErrNotFound)
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}

	if photo.Valid {
		p.PhotoURL = photo.String
	}
	p.CustomCategories = core.CustomCategories{}
	for typ, raw := range map[core.TransactionType]string{core.Expense: expense, core.Income: income} {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return core.UserProfile{}, fmt.Errorf("decode %s categories of %s: %w", typ, uid, err)
		}
		if list == nil {
			list = []string{}
		}
		p.CustomCategories[typ] = list
	}
	return p, nil
}

func (r *SQLiteRepository) UpdateName(ctx context.Context, uid, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE uid = ?`, name, uid)
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	return expectOneRow(res, "profile "+uid)
}

func (r *SQLiteRepository) UpdatePhotoURL(ctx context.Context, uid, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET photo_url = ? WHERE uid = ?`, nullString(url), uid)
	if err != nil {
		return fmt.Errorf("update photo url: %w", err)
	}
	return expectOneRow(res, "profile "+uid)
}

func (r *SQLiteRepository) UpdateCustomCategories(ctx context.Context, uid string, t core.TransactionType, categories []string) error {
	column := "custom_expense"
	switch t {
	case core.Expense:
	case core.Income:
		column = "custom_income"
	default:
		return core.ErrInvalidType
	}
	if categories == nil {
		categories = []string{}
	}
	encoded, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+column+` = ? WHERE uid = ?`, string(encoded), uid)
	if err != nil {
		return fmt.Errorf("update custom categories: %w", err)
	}
	return expectOneRow(res, "profile "+uid)
}

func encodeCustoms(c core.CustomCategories) (string, string, error) {
	expense, err := json.Marshal(c.For(core.Expense))
	if err != nil {
		return "", "", fmt.Errorf("encode expense categories: %w", err)
	}
	income, err := json.Marshal(c.For(core.Income))
	if err != nil {
		return "", "", fmt.Errorf("encode income categories: %w", err)
	}
	return string(expense), string(income), nil
}

// Credentials

func (r *SQLiteRepository) CreateCredential(ctx context.Context, c Credential) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (user_id, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.Email, c.PasswordHash, c.CreatedAt.UnixNano(), c.CreatedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("credential %s: %w", c.Email, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCredentialByEmail(ctx context.Context, email string) (Credential, error) {
	var (
		c         Credential
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, email, password_hash, created_at FROM credentials WHERE email = ?`,
		email,
	).Scan(&c.UserID, &c.Email, &c.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, fmt.Errorf("credential %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return Credential{}, fmt.Errorf("get credential: %w", err)
	}
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	return c, nil
}

func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, uid, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET password_hash = ?, updated_at = ? WHERE user_id = ?`,
		hash, r.now().UTC().UnixNano(), uid,
	)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return expectOneRow(res, "credential "+uid)
}

// Sessions

func (r *SQLiteRepository) CreateSession(ctx context.Context, s SessionRecord) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.ExpiresAt.UnixNano(), s.CreatedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("session %s: %w", s.ID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SessionExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// helpers

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
