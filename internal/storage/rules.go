package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cashbook/internal/core"
)

const rulesFile = "recurring.sqlite"

// Rules persists recurring-rule definitions in their own SQLite file,
// separate from the year partitions.
type Rules struct {
	db *sql.DB
}

// RuleUpdate is a partial update; nil fields are left untouched.
type RuleUpdate struct {
	Amount      *core.Money
	Description *string
	Category    *string
	Frequency   *core.Frequency
	NextDue     *core.Date
	Active      *bool
}

func OpenRules(dataDir string) (*Rules, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, rulesFile)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open rules database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping rules database: %w", err)
	}
	if err := runMigrations(dbPath, "recurring"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate rules database: %w", err)
	}

	return &Rules{db: db}, nil
}

func (r *Rules) Close() error {
	return r.db.Close()
}

// Add inserts a rule and returns its id.
func (r *Rules) Add(ctx context.Context, rule core.RecurringRule) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_rules (amount_cents, description, category, frequency, next_due_date, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rule.Amount.Cents(), rule.Description, rule.Category,
		string(rule.Frequency), rule.NextDue.String(), boolToInt(rule.Active))
	if err != nil {
		return 0, fmt.Errorf("add rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add rule id: %w", err)
	}

	slog.InfoContext(ctx, "Recurring rule added",
		"id", id,
		"description", rule.Description,
		"frequency", string(rule.Frequency),
		"next_due", rule.NextDue.String())
	return id, nil
}

// Get returns the rule with the given id, or nil when absent.
func (r *Rules) Get(ctx context.Context, id int64) (*core.RecurringRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents, description, category, frequency, next_due_date, active
		 FROM recurring_rules WHERE id = ?`, id)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return &rule, nil
}

// List returns all rules, active or not.
func (r *Rules) List(ctx context.Context) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, description, category, frequency, next_due_date, active
		 FROM recurring_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// Due returns the active rules whose next due date is on or before today.
func (r *Rules) Due(ctx context.Context, today core.Date) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, description, category, frequency, next_due_date, active
		 FROM recurring_rules WHERE active = 1 AND next_due_date <= ? ORDER BY id`,
		today.String())
	if err != nil {
		return nil, fmt.Errorf("due rules: %w", err)
	}
	defer rows.Close()

	var rules []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// Update applies the non-nil fields of u. Returns false when no row
// matched, or when u carries no fields at all.
func (r *Rules) Update(ctx context.Context, id int64, u RuleUpdate) (bool, error) {
	var fields []string
	var args []any

	if u.Amount != nil {
		fields = append(fields, "amount_cents = ?")
		args = append(args, u.Amount.Cents())
	}
	if u.Description != nil {
		fields = append(fields, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Category != nil {
		fields = append(fields, "category = ?")
		args = append(args, *u.Category)
	}
	if u.Frequency != nil {
		fields = append(fields, "frequency = ?")
		args = append(args, string(*u.Frequency))
	}
	if u.NextDue != nil {
		fields = append(fields, "next_due_date = ?")
		args = append(args, u.NextDue.String())
	}
	if u.Active != nil {
		fields = append(fields, "active = ?")
		args = append(args, boolToInt(*u.Active))
	}

	if len(fields) == 0 {
		return false, nil
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_rules SET `+strings.Join(fields, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return false, fmt.Errorf("update rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update rule rows: %w", err)
	}
	return n > 0, nil
}

// AdvanceNextDue moves a rule's schedule forward to the first date not yet
// processed. The recurrence engine calls this only after every occurrence
// up to today was attempted.
func (r *Rules) AdvanceNextDue(ctx context.Context, id int64, next core.Date) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurring_rules SET next_due_date = ? WHERE id = ?`,
		next.String(), id)
	if err != nil {
		return fmt.Errorf("advance rule %d: %w", id, err)
	}
	return nil
}

// Delete removes a rule outright. Returns false when no row matched.
func (r *Rules) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rule rows: %w", err)
	}
	return n > 0, nil
}

func scanRule(row rowScanner) (core.RecurringRule, error) {
	var rule core.RecurringRule
	var amountCents int64
	var frequency, nextDue string
	var active int

	if err := row.Scan(&rule.ID, &amountCents, &rule.Description, &rule.Category,
		&frequency, &nextDue, &active); err != nil {
		return rule, err
	}

	d, err := core.ParseDate(nextDue)
	if err != nil {
		return rule, fmt.Errorf("rule %d: %w", rule.ID, err)
	}
	rule.Amount = core.MoneyFromCents(amountCents)
	rule.Frequency = core.Frequency(frequency)
	rule.NextDue = d
	rule.Active = active != 0
	return rule, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
