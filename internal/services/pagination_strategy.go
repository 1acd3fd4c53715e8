// Package services provides the ledger's business logic over the partition
// store: cross-partition querying, aggregation and recurrence processing.
//
// This file implements the Strategy Pattern for paged queries. The default
// sort (date descending) has an optimized strategy that never pulls more
// than one partial partition page into memory; every other sort falls back
// to a general fetch-sort-slice strategy.
package services

import (
	"context"
	"sort"
	"strings"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

// PageStrategy is the strategy interface for assembling one result page
// from a set of candidate year partitions. Years arrive in descending
// order with their per-year filtered counts already computed.
type PageStrategy interface {
	FetchPage(ctx context.Context, store *storage.Store, years []int, counts map[int]int, total int, params core.QueryParams) (*core.PageResult, error)
}

// IsDefaultSort reports whether the parameters request the default order,
// date descending. This predicate alone decides which strategy runs.
func IsDefaultSort(params core.QueryParams) bool {
	return params.SortKey() == core.SortByDate && params.SortDirection() == core.SortDesc
}

// StrategyFor selects the pagination strategy for the given parameters.
func StrategyFor(params core.QueryParams) PageStrategy {
	if IsDefaultSort(params) {
		return FastPathStrategy{}
	}
	return GeneralSortStrategy{}
}

// FastPathStrategy pages through partitions in descending year order
// without ever sorting. Partitions already return rows date-descending and
// years are visited newest first, so concatenation preserves the global
// order; whole years are skipped against a running offset budget and at
// most one LIMIT/OFFSET query runs per touched year.
type FastPathStrategy struct{}

func (FastPathStrategy) FetchPage(ctx context.Context, store *storage.Store, years []int, counts map[int]int, total int, params core.QueryParams) (*core.PageResult, error) {
	results := make([]core.Entry, 0, params.Limit)
	offset := (params.Page - 1) * params.Limit
	remaining := params.Limit

	for _, year := range years {
		count := counts[year]
		if count == 0 {
			continue
		}
		if offset >= count {
			offset -= count
			continue
		}

		p, err := store.Partition(year)
		if err != nil {
			return nil, err
		}
		rows, err := p.List(ctx, params.Filter(), remaining, offset)
		if err != nil {
			return nil, err
		}

		results = append(results, rows...)
		remaining -= len(rows)
		offset = 0
		if remaining <= 0 {
			break
		}
	}

	return &core.PageResult{
		Data:  results,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}, nil
}

// GeneralSortStrategy handles every non-default sort: fetch all filtered
// rows from every candidate year, sort in memory by the requested key and
// slice out the page. Memory use is O(matching rows), bounded in practice
// by the filter's date range.
type GeneralSortStrategy struct{}

func (GeneralSortStrategy) FetchPage(ctx context.Context, store *storage.Store, years []int, counts map[int]int, total int, params core.QueryParams) (*core.PageResult, error) {
	var all []core.Entry
	for _, year := range years {
		if counts[year] == 0 {
			continue
		}
		p, err := store.Partition(year)
		if err != nil {
			return nil, err
		}
		rows, err := p.List(ctx, params.Filter(), -1, 0)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}

	sortEntries(all, params.SortKey(), params.SortDirection())

	start := (params.Page - 1) * params.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + params.Limit
	if end > len(all) {
		end = len(all)
	}

	return &core.PageResult{
		Data:  all[start:end],
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}, nil
}

// sortEntries orders entries by the requested key and direction. Equal keys
// tie-break on date descending then id descending, independent of the
// requested direction, so the order stays deterministic across partitions.
func sortEntries(entries []core.Entry, key, order string) {
	sort.SliceStable(entries, func(i, j int) bool {
		c := compareByKey(entries[i], entries[j], key)
		if order == core.SortDesc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		if d := strings.Compare(entries[i].Date.String(), entries[j].Date.String()); d != 0 {
			return d > 0
		}
		return entries[i].ID > entries[j].ID
	})
}

func compareByKey(a, b core.Entry, key string) int {
	switch key {
	case core.SortByAmount:
		return a.Amount().Cmp(b.Amount())
	case core.SortByDescription:
		return strings.Compare(a.Description, b.Description)
	default:
		// ISO dates compare correctly as strings.
		return strings.Compare(a.Date.String(), b.Date.String())
	}
}
