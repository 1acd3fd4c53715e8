package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cashbook/internal/core"
)

func newTestRules(t *testing.T) (*Rules, string) {
	t.Helper()
	dir := t.TempDir()
	rules, err := OpenRules(dir)
	if err != nil {
		t.Fatalf("OpenRules: %v", err)
	}
	t.Cleanup(func() { rules.Close() })
	return rules, dir
}

func testRule(nextDue string) core.RecurringRule {
	d, _ := core.ParseDate(nextDue)
	return core.RecurringRule{
		Amount:      core.MoneyFromCents(2500),
		Description: "gym membership",
		Category:    "Health",
		Frequency:   core.Monthly,
		NextDue:     d,
		Active:      true,
	}
}

func TestRulesCRUD(t *testing.T) {
	ctx := context.Background()
	rules, _ := newTestRules(t)

	id, err := rules.Add(ctx, testRule("2025-02-01"))
	if err != nil || id == 0 {
		t.Fatalf("Add: id=%d err=%v", id, err)
	}

	got, err := rules.Get(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("Get: %v err=%v", got, err)
	}
	if got.Amount.Cents() != 2500 || got.Frequency != core.Monthly || !got.Active {
		t.Fatalf("unexpected rule %+v", got)
	}

	list, err := rules.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %d rules, err=%v", len(list), err)
	}

	changed, err := rules.Delete(ctx, id)
	if err != nil || !changed {
		t.Fatalf("Delete: changed=%v err=%v", changed, err)
	}
	if changed, _ := rules.Delete(ctx, id); changed {
		t.Fatal("expected changed=false for second delete")
	}
}

func TestRulesPartialUpdate(t *testing.T) {
	ctx := context.Background()
	rules, _ := newTestRules(t)

	id, _ := rules.Add(ctx, testRule("2025-02-01"))

	amount := core.MoneyFromCents(3000)
	inactive := false
	changed, err := rules.Update(ctx, id, RuleUpdate{Amount: &amount, Active: &inactive})
	if err != nil || !changed {
		t.Fatalf("Update: changed=%v err=%v", changed, err)
	}

	got, _ := rules.Get(ctx, id)
	if got.Amount.Cents() != 3000 {
		t.Fatalf("amount not updated: %d", got.Amount.Cents())
	}
	if got.Active {
		t.Fatal("expected rule deactivated")
	}
	// Untouched fields keep their values.
	if got.Description != "gym membership" || got.Frequency != core.Monthly {
		t.Fatalf("unrelated fields changed: %+v", got)
	}

	if changed, err := rules.Update(ctx, id, RuleUpdate{}); err != nil || changed {
		t.Fatalf("empty update: changed=%v err=%v", changed, err)
	}
	if changed, err := rules.Update(ctx, 999, RuleUpdate{Amount: &amount}); err != nil || changed {
		t.Fatalf("missing rule update: changed=%v err=%v", changed, err)
	}
}

func TestRulesDueSelection(t *testing.T) {
	ctx := context.Background()
	rules, _ := newTestRules(t)

	overdue := testRule("2025-01-01")
	dueToday := testRule("2025-03-09")
	future := testRule("2025-06-01")
	inactive := testRule("2025-01-01")
	inactive.Active = false

	overdueID, _ := rules.Add(ctx, overdue)
	dueTodayID, _ := rules.Add(ctx, dueToday)
	rules.Add(ctx, future)
	rules.Add(ctx, inactive)

	today, _ := core.ParseDate("2025-03-09")
	due, err := rules.Due(ctx, today)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due rules, got %d", len(due))
	}
	if due[0].ID != overdueID || due[1].ID != dueTodayID {
		t.Fatalf("unexpected due set %+v", due)
	}
}

func TestRulesAdvanceNextDue(t *testing.T) {
	ctx := context.Background()
	rules, _ := newTestRules(t)

	id, _ := rules.Add(ctx, testRule("2025-02-01"))
	next, _ := core.ParseDate("2025-03-01")
	if err := rules.AdvanceNextDue(ctx, id, next); err != nil {
		t.Fatalf("AdvanceNextDue: %v", err)
	}

	got, _ := rules.Get(ctx, id)
	if got.NextDue.String() != "2025-03-01" {
		t.Fatalf("expected 2025-03-01, got %s", got.NextDue.String())
	}
}

func TestDiscoveryIgnoresNonPartitionFiles(t *testing.T) {
	dir := t.TempDir()

	if _, err := OpenRules(dir); err != nil {
		t.Fatalf("OpenRules: %v", err)
	}
	if _, err := OpenSettings(dir); err != nil {
		t.Fatalf("OpenSettings: %v", err)
	}
	for _, name := range []string{"ledger-abc.sqlite", "ledger-25.sqlite", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	if _, err := store.Partition(2025); err != nil {
		t.Fatalf("Partition: %v", err)
	}

	years, err := ListYears(dir)
	if err != nil {
		t.Fatalf("ListYears: %v", err)
	}
	if len(years) != 1 || years[0] != 2025 {
		t.Fatalf("expected only 2025, got %v", years)
	}
}
