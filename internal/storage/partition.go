package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cashbook/internal/core"

	_ "modernc.org/sqlite"
)

// Store owns one SQLite file per calendar year. Partitions are created
// lazily on first access and their handles are cached for the process
// lifetime; no two live handles exist for the same year. SQLite's own
// locking serializes writers within a partition, and there is no
// cross-partition transaction.
type Store struct {
	dataDir string

	mu         sync.Mutex
	partitions map[int]*Partition
}

// Partition is the live handle for one year's entries.
type Partition struct {
	year int
	db   *sql.DB
}

func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{
		dataDir:    dataDir,
		partitions: make(map[int]*Partition),
	}, nil
}

// Partition returns the handle for the given year, creating the backing
// file and its schema if absent. Open failure is propagated; a missing file
// is not an error.
func (s *Store) Partition(year int) (*Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.partitions[year]; ok {
		return p, nil
	}

	dbPath := filepath.Join(s.dataDir, partitionFile(year))
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open partition %d: %w", year, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping partition %d: %w", year, err)
	}
	if err := runMigrations(dbPath, "ledger"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate partition %d: %w", year, err)
	}

	p := &Partition{year: year, db: db}
	s.partitions[year] = p
	return p, nil
}

// Years lists the partitions currently on disk, newest first.
func (s *Store) Years() ([]int, error) {
	return ListYears(s.dataDir)
}

// MoveEntry relocates an entry whose date changed into another year's
// partition, preserving its id. The delete and the insert run against two
// independent SQLite files, so this is NOT atomic: a crash in between can
// lose the entry, and a retry after a late failure can duplicate it.
func (s *Store) MoveEntry(ctx context.Context, fromYear int, id int64, e core.Entry) error {
	oldPart, err := s.Partition(fromYear)
	if err != nil {
		return err
	}
	newPart, err := s.Partition(e.Year())
	if err != nil {
		return err
	}

	deleted, err := oldPart.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete from partition %d: %w", fromYear, err)
	}
	if !deleted {
		return core.ErrEntryNotFound
	}

	if err := newPart.InsertWithID(ctx, id, e); err != nil {
		return fmt.Errorf("insert into partition %d: %w", e.Year(), err)
	}

	slog.InfoContext(ctx, "Entry moved across partitions",
		"id", id,
		"from_year", fromYear,
		"to_year", e.Year())
	return nil
}

// Close closes all cached partition handles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for year, p := range s.partitions {
		if err := p.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close partition %d: %w", year, err)
		}
		delete(s.partitions, year)
	}
	return firstErr
}

// Year returns the calendar year this partition holds.
func (p *Partition) Year() int {
	return p.year
}

// filterClause builds the WHERE fragment for a filter. Dates compare as ISO
// strings, which order correctly byte-wise.
func filterClause(f core.Filter) (string, []any) {
	var conds []string
	var args []any

	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if !f.StartDate.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, f.EndDate.String())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Insert adds an entry and returns its partition-assigned id.
func (p *Partition) Insert(ctx context.Context, e core.Entry) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO entries (credit_cents, debit_cents, description, date, category)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Credit.Cents(), e.Debit.Cents(), e.Description, e.Date.String(), e.Category)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert entry id: %w", err)
	}

	slog.DebugContext(ctx, "Entry saved",
		"id", id,
		"year", p.year,
		"date", e.Date.String(),
		"category", e.Category)
	return id, nil
}

// InsertWithID adds an entry under a caller-chosen id, used when moving an
// entry across partitions without reassigning its id.
func (p *Partition) InsertWithID(ctx context.Context, id int64, e core.Entry) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO entries (id, credit_cents, debit_cents, description, date, category)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, e.Credit.Cents(), e.Debit.Cents(), e.Description, e.Date.String(), e.Category)
	if err != nil {
		return fmt.Errorf("insert entry with id %d: %w", id, err)
	}
	return nil
}

// Update rewrites all mutable fields of an entry. Returns false when no row
// matched; the caller decides whether that is a user-facing not-found.
func (p *Partition) Update(ctx context.Context, id int64, e core.Entry) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE entries
		 SET credit_cents = ?, debit_cents = ?, description = ?, date = ?, category = ?
		 WHERE id = ?`,
		e.Credit.Cents(), e.Debit.Cents(), e.Description, e.Date.String(), e.Category, id)
	if err != nil {
		return false, fmt.Errorf("update entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update entry rows: %w", err)
	}
	return n > 0, nil
}

// Delete removes an entry. Returns false when no row matched.
func (p *Partition) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete entry rows: %w", err)
	}
	return n > 0, nil
}

// Get returns the entry with the given id, or nil when absent.
func (p *Partition) Get(ctx context.Context, id int64) (*core.Entry, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, credit_cents, debit_cents, description, date, category
		 FROM entries WHERE id = ?`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &e, nil
}

// List returns filtered entries ordered by date descending, the partition's
// native order. Equal dates order by id descending so LIMIT/OFFSET paging
// never depends on scan order. A negative limit returns all matching rows.
func (p *Partition) List(ctx context.Context, f core.Filter, limit, offset int) ([]core.Entry, error) {
	query := `SELECT id, credit_cents, debit_cents, description, date, category FROM entries`
	where, args := filterClause(f)
	query += where + ` ORDER BY date DESC, id DESC`
	if limit >= 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries matching the filter.
func (p *Partition) Count(ctx context.Context, f core.Filter) (int, error) {
	query := `SELECT COUNT(*) FROM entries`
	where, args := filterClause(f)

	var count int
	if err := p.db.QueryRowContext(ctx, query+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// SumTotals returns the filtered credit and debit sums in cents. A
// partition with no matching rows contributes zero, not NULL.
func (p *Partition) SumTotals(ctx context.Context, f core.Filter) (income, expenses int64, err error) {
	query := `SELECT COALESCE(SUM(credit_cents), 0), COALESCE(SUM(debit_cents), 0) FROM entries`
	where, args := filterClause(f)

	if err := p.db.QueryRowContext(ctx, query+where, args...).Scan(&income, &expenses); err != nil {
		return 0, 0, fmt.Errorf("sum totals: %w", err)
	}
	return income, expenses, nil
}

// SumDebitByCategory returns per-category debit sums in cents, restricted
// to rows with a positive debit. Credits are income, not spend, and stay
// out of the breakdown.
func (p *Partition) SumDebitByCategory(ctx context.Context, f core.Filter) (map[string]int64, error) {
	query := `SELECT category, SUM(debit_cents) FROM entries`
	where, args := filterClause(f)
	if where == "" {
		query += ` WHERE debit_cents > 0`
	} else {
		query += where + ` AND debit_cents > 0`
	}
	query += ` GROUP BY category`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]int64)
	for rows.Next() {
		var category string
		var cents int64
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums[category] = cents
	}
	return sums, rows.Err()
}

// HasDuplicate reports whether an entry with the exact same date,
// description, category and debit amount already exists. The recurrence
// engine uses this to make occurrence replay idempotent.
func (p *Partition) HasDuplicate(ctx context.Context, date core.Date, description, category string, debitCents int64) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx,
		`SELECT 1 FROM entries WHERE date = ? AND description = ? AND category = ? AND debit_cents = ? LIMIT 1`,
		date.String(), description, category, debitCents).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var e core.Entry
	var creditCents, debitCents int64
	var date string

	if err := row.Scan(&e.ID, &creditCents, &debitCents, &e.Description, &date, &e.Category); err != nil {
		return e, err
	}

	d, err := core.ParseDate(date)
	if err != nil {
		return e, fmt.Errorf("entry %d: %w", e.ID, err)
	}
	e.Credit = core.MoneyFromCents(creditCents)
	e.Debit = core.MoneyFromCents(debitCents)
	e.Date = d
	return e, nil
}
