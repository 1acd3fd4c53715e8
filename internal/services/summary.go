package services

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

// Partitions queried concurrently during a summary.
const summaryConcurrency = 4

// Summarizer computes income/expense totals and the per-category expense
// breakdown across partitions. Sums run in SQL over integer cents, so
// cross-partition accumulation is exact.
type Summarizer struct {
	query *Query
}

func NewSummarizer(store *storage.Store) *Summarizer {
	return &Summarizer{query: NewQuery(store)}
}

// Summarize aggregates all entries matching the filter. Partitions are
// independent files, so their sums run concurrently. An empty ledger
// yields zero totals and an empty breakdown.
func (s *Summarizer) Summarize(ctx context.Context, f core.Filter) (*core.Summary, error) {
	years, err := s.query.candidateYears(f)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var incomeCents, expenseCents int64
	byCategory := make(map[string]int64)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)

	for _, year := range years {
		p, err := s.query.store.Partition(year)
		if err != nil {
			return nil, err
		}

		g.Go(func() error {
			income, expenses, err := p.SumTotals(ctx, f)
			if err != nil {
				return err
			}
			sums, err := p.SumDebitByCategory(ctx, f)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			incomeCents += income
			expenseCents += expenses
			for category, cents := range sums {
				byCategory[category] += cents
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &core.Summary{
		Income:     core.MoneyFromCents(incomeCents),
		Expenses:   core.MoneyFromCents(expenseCents),
		ByCategory: make(map[string]core.Money, len(byCategory)),
	}
	for category, cents := range byCategory {
		summary.ByCategory[category] = core.MoneyFromCents(cents)
	}
	return summary, nil
}
