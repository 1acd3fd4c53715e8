package core

const (
	SortByDate        = "date"
	SortByAmount      = "amount"
	SortByDescription = "description"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Filter restricts which entries a partition query sees. Zero dates and an
// empty category mean "no restriction".
type Filter struct {
	Category  string
	StartDate Date
	EndDate   Date
}

// QueryParams carries the filter, sort and page parameters of a ledger
// query. Page and Limit must both be set for a paged query; otherwise the
// full filtered result is returned.
type QueryParams struct {
	Page      int
	Limit     int
	StartDate Date
	EndDate   Date
	Category  string
	SortBy    string
	SortOrder string
}

// Paged reports whether both page and limit were supplied.
func (p QueryParams) Paged() bool {
	return p.Page > 0 && p.Limit > 0
}

// Filter returns the storage-level filter portion of the parameters.
func (p QueryParams) Filter() Filter {
	return Filter{
		Category:  p.Category,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
	}
}

// SortKey returns the requested sort column, defaulting to date.
func (p QueryParams) SortKey() string {
	if p.SortBy == "" {
		return SortByDate
	}
	return p.SortBy
}

// SortDirection returns the requested order, defaulting to descending.
func (p QueryParams) SortDirection() string {
	if p.SortOrder == "" {
		return SortDesc
	}
	return p.SortOrder
}

// PageResult is one page of a paged query plus the exact total row count
// under the active filters.
type PageResult struct {
	Data  []Entry
	Total int
	Page  int
	Limit int
}
