/*
Package sqlite provides the SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements ledger.Store (reads + WithTx) plus the read-side queries the
  API and report renderer need: the grouped conditional-sum listing,
  windowed event fetches, faculty search, and the users/departments
  tables backing the session gate.

KEY TABLES:
  faculty:       identity + denormalized balances (decimal strings)
  leaves:        one row per leave event
  leave_details: variant sub-record (time pair or half-day flag),
                 cascades with its event
  users:         login credentials (bcrypt hashes)
  departments:   department names for report headings
  sessions:      server-side session data (managed by scs)

CASCADES:
  Foreign keys are ON. Deleting a faculty row cascades to its leaves,
  and deleting a leave cascades to its detail row, so the delete-faculty
  transaction only touches one table directly.

TRANSACTIONS:
  WithTx hands the callback a transaction-scoped ledger.Tx; the policy
  engine performs every mutation through it so a request either fully
  commits or leaves nothing behind.

SEE ALSO:
  - ledger/engine.go: the interfaces implemented here
  - store/memory: in-memory implementation for fast tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/campus/leave-ledger/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) a SQLite store at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewWithDB wraps an existing connection without running migrations.
// Used by tests that need to inject failures.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for collaborators that manage
// their own table (the session store).
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS departments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		department_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS faculty (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		designation TEXT NOT NULL,
		department_id TEXT NOT NULL DEFAULT '',
		granted_leaves TEXT NOT NULL,
		total_leaves TEXT NOT NULL,
		remaining_leaves TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_faculty_department
		ON faculty(department_id);

	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		faculty_id TEXT NOT NULL REFERENCES faculty(id) ON DELETE CASCADE,
		leave_category TEXT NOT NULL,
		leave_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Hot path: the per-faculty short-leave count and the grouped
	-- per-category listing both hit (faculty_id, leave_category).
	CREATE INDEX IF NOT EXISTS idx_leaves_faculty_category
		ON leaves(faculty_id, leave_category);
	CREATE INDEX IF NOT EXISTS idx_leaves_faculty_date
		ON leaves(faculty_id, leave_date);

	CREATE TABLE IF NOT EXISTS leave_details (
		leave_id TEXT PRIMARY KEY REFERENCES leaves(id) ON DELETE CASCADE,
		short_leave_from TEXT,
		short_leave_to TEXT,
		half_leave_type TEXT
	);

	-- Session data, managed by the scs sqlite3store.
	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx so the row helpers
// below work inside and outside transactions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// LEDGER READER (ledger.Reader interface)
// =============================================================================

func (s *Store) GetFaculty(ctx context.Context, id ledger.FacultyID) (*ledger.Faculty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getFaculty(ctx, s.db, id)
}

func (s *Store) GetEvent(ctx context.Context, id ledger.EventID) (*ledger.LeaveEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEvent(ctx, s.db, id)
}

func (s *Store) ListEvents(ctx context.Context, facultyID ledger.FacultyID) ([]ledger.LeaveEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEvents(ctx, s.db, facultyID)
}

func (s *Store) CountByCategory(ctx context.Context, facultyID ledger.FacultyID, category ledger.Category) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countByCategory(ctx, s.db, facultyID, category)
}

// =============================================================================
// TRANSACTIONS (ledger.Store interface)
// =============================================================================

// WithTx executes fn within one database transaction. The ledger.Tx it
// receives shares this store's row helpers but runs them on the *sql.Tx.
func (s *Store) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetFaculty(ctx context.Context, id ledger.FacultyID) (*ledger.Faculty, error) {
	return getFaculty(ctx, ts.tx, id)
}

func (ts *txStore) GetEvent(ctx context.Context, id ledger.EventID) (*ledger.LeaveEvent, error) {
	return getEvent(ctx, ts.tx, id)
}

func (ts *txStore) ListEvents(ctx context.Context, facultyID ledger.FacultyID) ([]ledger.LeaveEvent, error) {
	return listEvents(ctx, ts.tx, facultyID)
}

func (ts *txStore) CountByCategory(ctx context.Context, facultyID ledger.FacultyID, category ledger.Category) (int, error) {
	return countByCategory(ctx, ts.tx, facultyID, category)
}

func (ts *txStore) InsertFaculty(ctx context.Context, f ledger.Faculty) error {
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO faculty
		(id, name, designation, department_id, granted_leaves, total_leaves, remaining_leaves, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Designation, f.DepartmentID,
		f.GrantedLeaves.String(), f.TotalLeaves.String(), f.RemainingLeaves.String(),
		f.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert faculty: %w", err)
	}
	return nil
}

func (ts *txStore) UpdateBalances(ctx context.Context, id ledger.FacultyID, granted, total, remaining decimal.Decimal) error {
	res, err := ts.tx.ExecContext(ctx, `
		UPDATE faculty
		SET granted_leaves = ?, total_leaves = ?, remaining_leaves = ?
		WHERE id = ?`,
		granted.String(), total.String(), remaining.String(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrFacultyNotFound
	}
	return nil
}

func (ts *txStore) DeleteFaculty(ctx context.Context, id ledger.FacultyID) error {
	// leaves and leave_details go with it via ON DELETE CASCADE.
	res, err := ts.tx.ExecContext(ctx, "DELETE FROM faculty WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete faculty: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrFacultyNotFound
	}
	return nil
}

func (ts *txStore) InsertEvent(ctx context.Context, ev ledger.LeaveEvent) error {
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO leaves (id, faculty_id, leave_category, leave_date, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.FacultyID, ev.Category, ev.Date.String(),
		ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert leave: %w", err)
	}

	switch d := ev.Detail.(type) {
	case nil:
		return nil
	case ledger.ShortLeaveDetail:
		_, err = ts.tx.ExecContext(ctx, `
			INSERT INTO leave_details (leave_id, short_leave_from, short_leave_to)
			VALUES (?, ?, ?)`,
			ev.ID, d.From.String(), d.To.String(),
		)
	case ledger.HalfDayDetail:
		_, err = ts.tx.ExecContext(ctx, `
			INSERT INTO leave_details (leave_id, half_leave_type)
			VALUES (?, ?)`,
			ev.ID, d.Type,
		)
	default:
		return fmt.Errorf("unknown leave detail type %T", ev.Detail)
	}
	if err != nil {
		return fmt.Errorf("failed to insert leave detail: %w", err)
	}
	return nil
}

func (ts *txStore) DeleteEvent(ctx context.Context, id ledger.EventID) error {
	res, err := ts.tx.ExecContext(ctx, "DELETE FROM leaves WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete leave: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrLeaveNotFound
	}
	return nil
}

// =============================================================================
// ROW HELPERS - shared between Store and txStore
// =============================================================================

type scanFn func(dest ...any) error

func getFaculty(ctx context.Context, q querier, id ledger.FacultyID) (*ledger.Faculty, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, designation, department_id,
		       granted_leaves, total_leaves, remaining_leaves, created_at
		FROM faculty WHERE id = ?`, id)

	f, err := scanFaculty(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func scanFaculty(scan scanFn) (*ledger.Faculty, error) {
	var (
		f                         ledger.Faculty
		granted, total, remaining string
		createdAt                 string
	)
	if err := scan(&f.ID, &f.Name, &f.Designation, &f.DepartmentID,
		&granted, &total, &remaining, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if f.GrantedLeaves, err = decimal.NewFromString(granted); err != nil {
		return nil, fmt.Errorf("corrupt granted_leaves %q: %w", granted, err)
	}
	if f.TotalLeaves, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("corrupt total_leaves %q: %w", total, err)
	}
	if f.RemainingLeaves, err = decimal.NewFromString(remaining); err != nil {
		return nil, fmt.Errorf("corrupt remaining_leaves %q: %w", remaining, err)
	}
	f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &f, nil
}

const eventColumns = `
	l.id, l.faculty_id, l.leave_category, l.leave_date, l.created_at,
	ld.short_leave_from, ld.short_leave_to, ld.half_leave_type`

func getEvent(ctx context.Context, q querier, id ledger.EventID) (*ledger.LeaveEvent, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM leaves l
		LEFT JOIN leave_details ld ON l.id = ld.leave_id
		WHERE l.id = ?`, id)

	ev, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func listEvents(ctx context.Context, q querier, facultyID ledger.FacultyID) ([]ledger.LeaveEvent, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM leaves l
		LEFT JOIN leave_details ld ON l.id = ld.leave_id
		WHERE l.faculty_id = ?
		ORDER BY l.created_at ASC, l.id ASC`, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func countByCategory(ctx context.Context, q querier, facultyID ledger.FacultyID, category ledger.Category) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM leaves WHERE faculty_id = ? AND leave_category = ?",
		facultyID, category,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count leaves: %w", err)
	}
	return count, nil
}

func collectEvents(rows *sql.Rows) ([]ledger.LeaveEvent, error) {
	var events []ledger.LeaveEvent
	for rows.Next() {
		ev, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func scanEvent(scan scanFn) (*ledger.LeaveEvent, error) {
	var (
		ev                 ledger.LeaveEvent
		dateStr, createdAt string
		shortFrom, shortTo sql.NullString
		halfType           sql.NullString
	)
	if err := scan(&ev.ID, &ev.FacultyID, &ev.Category, &dateStr, &createdAt,
		&shortFrom, &shortTo, &halfType); err != nil {
		return nil, err
	}

	date, err := ledger.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt leave_date: %w", err)
	}
	ev.Date = date
	ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	switch ev.Category {
	case ledger.CategoryShortLeave:
		if shortFrom.Valid && shortTo.Valid {
			from, err := ledger.ParseTimeOfDay(shortFrom.String)
			if err != nil {
				return nil, err
			}
			to, err := ledger.ParseTimeOfDay(shortTo.String)
			if err != nil {
				return nil, err
			}
			ev.Detail = ledger.ShortLeaveDetail{From: from, To: to}
		}
	case ledger.CategoryHalfDayLeave:
		if halfType.Valid {
			ev.Detail = ledger.HalfDayDetail{Type: ledger.HalfDayType(halfType.String)}
		}
	}
	return &ev, nil
}

// =============================================================================
// AGGREGATION - grouped conditional-sum listing
// =============================================================================

// ListFacultyWithCounts returns every faculty member (optionally scoped
// to one department) with per-category event counts. Faculty with no
// events get zero counts via the LEFT JOIN. Rows come back unsorted;
// callers apply ledger.SortFaculty.
func (s *Store) ListFacultyWithCounts(ctx context.Context, departmentID string) ([]ledger.FacultyWithCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT
			f.id, f.name, f.designation, f.department_id,
			f.granted_leaves, f.total_leaves, f.remaining_leaves, f.created_at,
			SUM(CASE WHEN l.leave_category = 'short_leaves' THEN 1 ELSE 0 END),
			SUM(CASE WHEN l.leave_category = 'half_day_leaves' THEN 1 ELSE 0 END),
			SUM(CASE WHEN l.leave_category = 'casual_leaves' THEN 1 ELSE 0 END),
			SUM(CASE WHEN l.leave_category = 'academic_leaves' THEN 1 ELSE 0 END),
			SUM(CASE WHEN l.leave_category = 'medical_leaves' THEN 1 ELSE 0 END),
			SUM(CASE WHEN l.leave_category = 'compensatory_leaves' THEN 1 ELSE 0 END),
			SUM(CASE WHEN l.leave_category = 'without_payment_leaves' THEN 1 ELSE 0 END),
			SUM(CASE WHEN l.leave_category = 'earned_leaves' THEN 1 ELSE 0 END)
		FROM faculty f
		LEFT JOIN leaves l ON f.id = l.faculty_id
	`
	var args []any
	if departmentID != "" {
		query += " WHERE f.department_id = ?"
		args = append(args, departmentID)
	}
	query += " GROUP BY f.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query faculty counts: %w", err)
	}
	defer rows.Close()

	var result []ledger.FacultyWithCounts
	for rows.Next() {
		var (
			f                         ledger.Faculty
			granted, total, remaining string
			createdAt                 string
			short, half, casual       int
			academic, medical, comp   int
			withoutPay, earned        int
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.Designation, &f.DepartmentID,
			&granted, &total, &remaining, &createdAt,
			&short, &half, &casual, &academic, &medical, &comp, &withoutPay, &earned); err != nil {
			return nil, err
		}
		if f.GrantedLeaves, err = decimal.NewFromString(granted); err != nil {
			return nil, err
		}
		if f.TotalLeaves, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		if f.RemainingLeaves, err = decimal.NewFromString(remaining); err != nil {
			return nil, err
		}
		f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		result = append(result, ledger.FacultyWithCounts{
			Faculty: f,
			Counts: map[ledger.Category]int{
				ledger.CategoryShortLeave:          short,
				ledger.CategoryHalfDayLeave:        half,
				ledger.CategoryCasualLeave:         casual,
				ledger.CategoryAcademicLeave:       academic,
				ledger.CategoryMedicalLeave:        medical,
				ledger.CategoryCompensatoryLeave:   comp,
				ledger.CategoryWithoutPaymentLeave: withoutPay,
				ledger.CategoryEarnedLeave:         earned,
			},
		})
	}
	return result, rows.Err()
}

// ListEventsInRange returns one faculty member's events with leave_date
// inside the inclusive [from, to] window, newest date first.
func (s *Store) ListEventsInRange(ctx context.Context, facultyID ledger.FacultyID, from, to ledger.Date) ([]ledger.LeaveEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM leaves l
		LEFT JOIN leave_details ld ON l.id = ld.leave_id
		WHERE l.faculty_id = ? AND l.leave_date >= ? AND l.leave_date <= ?
		ORDER BY l.leave_date DESC, l.created_at DESC`,
		facultyID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves in range: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// SearchFaculty matches the "Name (Designation)" display string against
// a substring query, for type-ahead suggestions.
func (s *Store) SearchFaculty(ctx context.Context, query string) ([]ledger.Faculty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, designation, department_id,
		       granted_leaves, total_leaves, remaining_leaves, created_at
		FROM faculty
		WHERE name || ' (' || designation || ')' LIKE ?
		ORDER BY designation, name`,
		"%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search faculty: %w", err)
	}
	defer rows.Close()

	var result []ledger.Faculty
	for rows.Next() {
		f, err := scanFaculty(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	return result, rows.Err()
}

// =============================================================================
// USERS & DEPARTMENTS - session gate backing
// =============================================================================

// User is a login account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	DepartmentID string
	CreatedAt    time.Time
}

// SaveUser inserts or updates a login account.
func (s *Store) SaveUser(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, department_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			password_hash = excluded.password_hash,
			department_id = excluded.department_id`,
		u.ID, u.Username, u.PasswordHash, u.DepartmentID,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetUserByUsername returns nil when the account does not exist.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u User
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, department_id, created_at
		FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DepartmentID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// Department names appear on report headings.
type Department struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// SaveDepartment inserts or renames a department.
func (s *Store) SaveDepartment(ctx context.Context, d Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO departments (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		d.ID, d.Name, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetDepartment returns nil when the department does not exist.
func (s *Store) GetDepartment(ctx context.Context, id string) (*Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d Department
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM departments WHERE id = ?", id,
	).Scan(&d.ID, &d.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &d, nil
}
