package services

import (
	"context"
	"fmt"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

// Query plans and executes ledger reads that span year partitions.
type Query struct {
	store *storage.Store
}

func NewQuery(store *storage.Store) *Query {
	return &Query{store: store}
}

// candidateYears returns the on-disk partition years relevant to the
// filter, newest first. A date range prunes whole years before any
// partition is opened.
func (q *Query) candidateYears(f core.Filter) ([]int, error) {
	years, err := q.store.Years()
	if err != nil {
		return nil, fmt.Errorf("list partition years: %w", err)
	}

	var candidates []int
	for _, year := range years {
		if !f.StartDate.IsZero() && year < f.StartDate.Year() {
			continue
		}
		if !f.EndDate.IsZero() && year > f.EndDate.Year() {
			continue
		}
		candidates = append(candidates, year)
	}
	return candidates, nil
}

// FetchAll returns every entry matching the filter across all candidate
// years. The concatenation of per-partition results is already globally
// date-descending; any other sort is applied in memory afterwards.
func (q *Query) FetchAll(ctx context.Context, params core.QueryParams) ([]core.Entry, error) {
	years, err := q.candidateYears(params.Filter())
	if err != nil {
		return nil, err
	}

	var all []core.Entry
	for _, year := range years {
		p, err := q.store.Partition(year)
		if err != nil {
			return nil, err
		}
		rows, err := p.List(ctx, params.Filter(), -1, 0)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}

	if !IsDefaultSort(params) {
		sortEntries(all, params.SortKey(), params.SortDirection())
	}
	return all, nil
}

// FetchPage returns one page of the filtered result together with the
// exact total count. The total is recomputed on every call; nothing is
// cached between calls.
func (q *Query) FetchPage(ctx context.Context, params core.QueryParams) (*core.PageResult, error) {
	if !params.Paged() {
		return nil, fmt.Errorf("paged query requires page and limit, got page=%d limit=%d", params.Page, params.Limit)
	}

	years, err := q.candidateYears(params.Filter())
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(years))
	total := 0
	for _, year := range years {
		p, err := q.store.Partition(year)
		if err != nil {
			return nil, err
		}
		n, err := p.Count(ctx, params.Filter())
		if err != nil {
			return nil, err
		}
		counts[year] = n
		total += n
	}

	return StrategyFor(params).FetchPage(ctx, q.store, years, counts, total, params)
}
