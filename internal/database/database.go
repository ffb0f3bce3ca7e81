package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/quotebot/quotebot/internal/logger"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	dayLayout = "2006-01-02"
)

var (
	ErrNotConfigured = errors.New("database not configured")
	ErrUserNotFound  = errors.New("user not found")
)

// DB is the analytics store. A nil *DB is valid and every method returns
// ErrNotConfigured.
type DB struct {
	conn   *sql.DB
	driver string
	loc    *time.Location
	now    func() time.Time
}

// NewDB opens the store for driver ("postgres" or "sqlite") and creates the
// tables. Action days are bucketed in loc.
func NewDB(driver, dsn string, loc *time.Location) (*DB, error) {
	if dsn == "" {
		return nil, nil // No database configured
	}
	if loc == nil {
		loc = time.Local
	}

	var (
		conn *sql.DB
		err  error
	)
	switch driver {
	case DriverPostgres:
		conn, err = sql.Open("postgres", dsn)
	case DriverSQLite:
		conn, err = openSQLite(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn:   conn,
		driver: driver,
		loc:    loc,
		now:    time.Now,
	}

	if err := db.initTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	logger.Info("Database connection established successfully", map[string]interface{}{
		"driver": driver,
	})
	return db, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}

	// Single connection for SQLite
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	return conn, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

func (db *DB) Driver() string {
	if db == nil {
		return ""
	}
	return db.driver
}

// initTables creates the analytics tables if they don't exist
func (db *DB) initTables() error {
	idColumn, tsType := "INTEGER PRIMARY KEY AUTOINCREMENT", "DATETIME"
	if db.driver == DriverPostgres {
		idColumn, tsType = "SERIAL PRIMARY KEY", "TIMESTAMP WITH TIME ZONE"
	}

	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id %[1]s,
			chat_id BIGINT UNIQUE NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			created_at %[2]s NOT NULL,
			last_activity %[2]s NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS actions (
			id %[1]s,
			user_id INTEGER NOT NULL REFERENCES users(id),
			action_type VARCHAR(64) NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			day VARCHAR(10) NOT NULL,
			created_at %[2]s NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quotes (
			id %[1]s,
			user_id INTEGER NOT NULL REFERENCES users(id),
			quote_text TEXT NOT NULL,
			source VARCHAR(16) NOT NULL DEFAULT '',
			has_image BOOLEAN NOT NULL DEFAULT FALSE,
			created_at %[2]s NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS errors (
			id %[1]s,
			user_id INTEGER REFERENCES users(id),
			step VARCHAR(32) NOT NULL DEFAULT '',
			error_message TEXT NOT NULL,
			created_at %[2]s NOT NULL
		)`,
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_users_chat_id ON users(chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_day ON actions(day)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_type ON actions(action_type)`,
	}

	// Only table templates carry the dialect placeholders.
	for _, stmt := range tables {
		if _, err := db.conn.Exec(fmt.Sprintf(stmt, idColumn, tsType)); err != nil {
			return err
		}
	}
	for _, stmt := range indexes {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(db.rebind(query), args...)
}

// AddUser registers a chat; existing users are left untouched.
func (db *DB) AddUser(u User) error {
	if db == nil {
		return ErrNotConfigured
	}

	now := db.now()
	_, err := db.exec(`
	INSERT INTO users (chat_id, username, first_name, last_name, created_at, last_activity)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (chat_id) DO NOTHING
	`, u.ChatID, u.Username, u.FirstName, u.LastName, now, now)
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	return nil
}

// TouchActivity bumps the user's last activity time.
func (db *DB) TouchActivity(chatID int64) error {
	if db == nil {
		return ErrNotConfigured
	}

	if _, err := db.exec(`UPDATE users SET last_activity = ? WHERE chat_id = ?`, db.now(), chatID); err != nil {
		return fmt.Errorf("failed to update user activity: %w", err)
	}
	return nil
}

// LogAction stores an action with optional details serialized as JSON. The
// user must exist.
func (db *DB) LogAction(chatID int64, action string, details map[string]interface{}) error {
	if db == nil {
		return ErrNotConfigured
	}

	payload := ""
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal action details: %w", err)
		}
		payload = string(raw)
	}

	userID, err := db.userID(chatID)
	if err != nil {
		return err
	}

	now := db.now()
	_, err = db.exec(`
	INSERT INTO actions (user_id, action_type, details, day, created_at)
	VALUES (?, ?, ?, ?, ?)
	`, userID, action, payload, now.In(db.loc).Format(dayLayout), now)
	if err != nil {
		return fmt.Errorf("failed to log action: %w", err)
	}
	return nil
}

// LogQuote stores a delivered quote.
func (db *DB) LogQuote(chatID int64, text, source string, hasImage bool) error {
	if db == nil {
		return ErrNotConfigured
	}

	userID, err := db.userID(chatID)
	if err != nil {
		return err
	}

	_, err = db.exec(`
	INSERT INTO quotes (user_id, quote_text, source, has_image, created_at)
	VALUES (?, ?, ?, ?, ?)
	`, userID, text, source, hasImage, db.now())
	if err != nil {
		return fmt.Errorf("failed to log quote: %w", err)
	}
	return nil
}

func (db *DB) userID(chatID int64) (int64, error) {
	var id int64
	err := db.conn.QueryRow(db.rebind(`SELECT id FROM users WHERE chat_id = ?`), chatID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: chat %d", ErrUserNotFound, chatID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	return id, nil
}

// LogError stores a failure. Unknown chats are stored without a user.
func (db *DB) LogError(chatID int64, step, message string) error {
	if db == nil {
		return ErrNotConfigured
	}

	_, err := db.exec(`
	INSERT INTO errors (user_id, step, error_message, created_at)
	VALUES ((SELECT id FROM users WHERE chat_id = ?), ?, ?, ?)
	`, chatID, step, message, db.now())
	if err != nil {
		return fmt.Errorf("failed to log error: %w", err)
	}
	return nil
}

func (db *DB) GetStats() (*Stats, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}

	query := `
	SELECT
		COUNT(DISTINCT users.chat_id) AS total_users,
		COUNT(*) AS total_actions,
		COUNT(DISTINCT actions.day) AS active_days
	FROM users
	JOIN actions ON users.id = actions.user_id
	`

	stats := &Stats{}
	if err := db.conn.QueryRow(query).Scan(&stats.TotalUsers, &stats.TotalActions, &stats.ActiveDays); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// GetPopularActions returns the most frequent action types, most frequent first.
func (db *DB) GetPopularActions(limit int) ([]ActionCount, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}

	rows, err := db.conn.Query(db.rebind(`
	SELECT action_type, COUNT(*) AS count
	FROM actions
	GROUP BY action_type
	ORDER BY count DESC, action_type ASC
	LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get popular actions: %w", err)
	}
	defer rows.Close()

	var result []ActionCount
	for rows.Next() {
		var ac ActionCount
		if err := rows.Scan(&ac.Action, &ac.Count); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		result = append(result, ac)
	}
	return result, rows.Err()
}

// GetDailyStats returns per-day totals for the last days calendar days,
// today included, newest first.
func (db *DB) GetDailyStats(days int) ([]DailyStat, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}
	if days < 1 {
		days = 1
	}

	cutoff := db.now().In(db.loc).AddDate(0, 0, -(days - 1)).Format(dayLayout)

	rows, err := db.conn.Query(db.rebind(`
	SELECT day, COUNT(*) AS actions_count, COUNT(DISTINCT user_id) AS unique_users
	FROM actions
	WHERE day >= ?
	GROUP BY day
	ORDER BY day DESC
	`), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	defer rows.Close()

	var result []DailyStat
	for rows.Next() {
		var ds DailyStat
		if err := rows.Scan(&ds.Day, &ds.Actions, &ds.UniqueUsers); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		result = append(result, ds)
	}
	return result, rows.Err()
}
