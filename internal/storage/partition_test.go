package storage

import (
	"context"
	"path/filepath"
	"testing"

	"cashbook/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustInsert(t *testing.T, p *Partition, e core.Entry) int64 {
	t.Helper()
	id, err := p.Insert(context.Background(), e)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return id
}

func entry(date string, creditCents, debitCents int64, description, category string) core.Entry {
	d, _ := core.ParseDate(date)
	return core.Entry{
		Credit:      core.MoneyFromCents(creditCents),
		Debit:       core.MoneyFromCents(debitCents),
		Description: description,
		Date:        d,
		Category:    category,
	}
}

func TestPartitionHandleIsCached(t *testing.T) {
	store := newTestStore(t)

	p1, err := store.Partition(2025)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	p2, err := store.Partition(2025)
	if err != nil {
		t.Fatalf("Partition second call: %v", err)
	}
	if p1 != p2 {
		t.Fatal("expected the same cached handle for one year")
	}
}

func TestPartitionCRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p, err := store.Partition(2025)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}

	id := mustInsert(t, p, entry("2025-03-09", 0, 550, "coffee", "Food"))
	if id == 0 {
		t.Fatal("expected a non-zero id")
	}

	got, err := p.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry")
	}
	if got.Debit.Cents() != 550 || got.Date.String() != "2025-03-09" || got.Category != "Food" {
		t.Fatalf("unexpected entry %+v", got)
	}

	changed, err := p.Update(ctx, id, entry("2025-03-10", 0, 600, "coffee beans", "Food"))
	if err != nil || !changed {
		t.Fatalf("Update: changed=%v err=%v", changed, err)
	}
	got, _ = p.Get(ctx, id)
	if got.Debit.Cents() != 600 || got.Date.String() != "2025-03-10" {
		t.Fatalf("update not applied: %+v", got)
	}

	changed, err = p.Update(ctx, 9999, entry("2025-01-01", 0, 1, "x", "y"))
	if err != nil {
		t.Fatalf("Update missing: %v", err)
	}
	if changed {
		t.Fatal("expected changed=false for missing row")
	}

	changed, err = p.Delete(ctx, id)
	if err != nil || !changed {
		t.Fatalf("Delete: changed=%v err=%v", changed, err)
	}
	if got, _ := p.Get(ctx, id); got != nil {
		t.Fatal("expected entry gone after delete")
	}
	if changed, _ := p.Delete(ctx, id); changed {
		t.Fatal("expected changed=false for second delete")
	}
}

func TestPartitionListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p, _ := store.Partition(2025)

	mustInsert(t, p, entry("2025-01-02", 0, 100, "a", "Food"))
	mustInsert(t, p, entry("2025-01-05", 0, 200, "b", "Travel"))
	mustInsert(t, p, entry("2025-01-04", 0, 300, "c", "Food"))

	all, err := p.List(ctx, core.Filter{}, -1, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	for i, want := range []string{"2025-01-05", "2025-01-04", "2025-01-02"} {
		if all[i].Date.String() != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, all[i].Date.String())
		}
	}

	food, err := p.List(ctx, core.Filter{Category: "Food"}, -1, 0)
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(food) != 2 {
		t.Fatalf("expected 2 Food entries, got %d", len(food))
	}

	start, _ := core.ParseDate("2025-01-04")
	ranged, err := p.List(ctx, core.Filter{StartDate: start}, -1, 0)
	if err != nil {
		t.Fatalf("List ranged: %v", err)
	}
	if len(ranged) != 2 {
		t.Fatalf("expected 2 entries from 01-04, got %d", len(ranged))
	}

	limited, err := p.List(ctx, core.Filter{}, 1, 1)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 1 || limited[0].Date.String() != "2025-01-04" {
		t.Fatalf("unexpected limited page %+v", limited)
	}

	n, err := p.Count(ctx, core.Filter{Category: "Food"})
	if err != nil || n != 2 {
		t.Fatalf("Count: n=%d err=%v", n, err)
	}
}

func TestPartitionListSameDateTieBreak(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p, _ := store.Partition(2025)

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, mustInsert(t, p, entry("2025-06-01", 0, 100, "same day", "Misc")))
	}

	all, err := p.List(ctx, core.Filter{}, -1, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(all))
	}
	// Equal dates must come back id descending.
	for i, want := 0, len(ids)-1; i < len(all); i, want = i+1, want-1 {
		if all[i].ID != ids[want] {
			t.Fatalf("position %d: expected id %d, got %d", i, ids[want], all[i].ID)
		}
	}

	// LIMIT/OFFSET pages over equal dates follow the same order.
	page, err := p.List(ctx, core.Filter{}, 2, 2)
	if err != nil {
		t.Fatalf("List paged: %v", err)
	}
	if len(page) != 2 || page[0].ID != all[2].ID || page[1].ID != all[3].ID {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestPartitionSums(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p, _ := store.Partition(2025)

	mustInsert(t, p, entry("2025-01-01", 100000, 0, "salary", "Salary"))
	mustInsert(t, p, entry("2025-01-02", 0, 5000, "groceries", "Food"))
	mustInsert(t, p, entry("2025-01-03", 0, 2000, "snacks", "Food"))

	income, expenses, err := p.SumTotals(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("SumTotals: %v", err)
	}
	if income != 100000 || expenses != 7000 {
		t.Fatalf("expected 100000/7000, got %d/%d", income, expenses)
	}

	// Empty result must sum to zero, not NULL.
	income, expenses, err = p.SumTotals(ctx, core.Filter{Category: "Nothing"})
	if err != nil || income != 0 || expenses != 0 {
		t.Fatalf("expected zero sums, got %d/%d err=%v", income, expenses, err)
	}

	byCat, err := p.SumDebitByCategory(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("SumDebitByCategory: %v", err)
	}
	if len(byCat) != 1 || byCat["Food"] != 7000 {
		t.Fatalf("unexpected breakdown %v", byCat)
	}
}

func TestPartitionHasDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p, _ := store.Partition(2025)

	mustInsert(t, p, entry("2025-02-01", 0, 999, "rent", "Housing"))

	date, _ := core.ParseDate("2025-02-01")
	dup, err := p.HasDuplicate(ctx, date, "rent", "Housing", 999)
	if err != nil || !dup {
		t.Fatalf("expected duplicate, got dup=%v err=%v", dup, err)
	}

	dup, err = p.HasDuplicate(ctx, date, "rent", "Housing", 1000)
	if err != nil || dup {
		t.Fatalf("expected no duplicate for different amount, got dup=%v err=%v", dup, err)
	}
}

func TestMoveEntryAcrossYears(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p2024, _ := store.Partition(2024)

	id := mustInsert(t, p2024, entry("2024-12-31", 0, 4200, "party", "Fun"))

	moved := entry("2025-01-01", 0, 4200, "party", "Fun")
	if err := store.MoveEntry(ctx, 2024, id, moved); err != nil {
		t.Fatalf("MoveEntry: %v", err)
	}

	if got, _ := p2024.Get(ctx, id); got != nil {
		t.Fatal("expected entry gone from old partition")
	}
	p2025, _ := store.Partition(2025)
	got, err := p2025.Get(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("expected entry in new partition under same id, got %v err=%v", got, err)
	}
	if got.Date.String() != "2025-01-01" {
		t.Fatalf("unexpected date %s", got.Date.String())
	}

	if err := store.MoveEntry(ctx, 2024, 12345, moved); err != core.ErrEntryNotFound {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestListYears(t *testing.T) {
	dir := t.TempDir()

	years, err := ListYears(filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("ListYears missing dir: %v", err)
	}
	if len(years) != 0 {
		t.Fatalf("expected no years, got %v", years)
	}

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	for _, y := range []int{2023, 2025, 2024} {
		if _, err := store.Partition(y); err != nil {
			t.Fatalf("Partition %d: %v", y, err)
		}
	}

	years, err = ListYears(dir)
	if err != nil {
		t.Fatalf("ListYears: %v", err)
	}
	want := []int{2025, 2024, 2023}
	if len(years) != len(want) {
		t.Fatalf("expected %v, got %v", want, years)
	}
	for i := range want {
		if years[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, years)
		}
	}
}
