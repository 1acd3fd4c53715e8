package services

import (
	"context"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

// EntryService is the write-side API for ledger entries. It routes each
// operation to the partition the entry's date maps to and moves entries
// between partitions when an update changes the year.
type EntryService struct {
	store   *storage.Store
	tracker Tracker
}

func NewEntryService(store *storage.Store, tracker Tracker) *EntryService {
	if tracker == nil {
		tracker = NoopTracker{}
	}
	return &EntryService{store: store, tracker: tracker}
}

// Create validates and inserts an entry into the partition for its year,
// returning the assigned id.
func (s *EntryService) Create(ctx context.Context, e core.Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	p, err := s.store.Partition(e.Year())
	if err != nil {
		return 0, err
	}
	id, err := p.Insert(ctx, e)
	if err != nil {
		return 0, err
	}

	trackUsage(ctx, s.tracker, e.Description, e.Category)
	return id, nil
}

// Get returns the entry with the given id from the given year's partition.
func (s *EntryService) Get(ctx context.Context, year int, id int64) (*core.Entry, error) {
	p, err := s.store.Partition(year)
	if err != nil {
		return nil, err
	}

	e, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, core.ErrEntryNotFound
	}
	return e, nil
}

// Update rewrites the entry identified by year and id. When the new date
// falls in a different year the entry is moved to that year's partition,
// keeping its id.
func (s *EntryService) Update(ctx context.Context, year int, id int64, e core.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if e.Year() == year {
		p, err := s.store.Partition(year)
		if err != nil {
			return err
		}
		ok, err := p.Update(ctx, id, e)
		if err != nil {
			return err
		}
		if !ok {
			return core.ErrEntryNotFound
		}
	} else {
		if err := s.store.MoveEntry(ctx, year, id, e); err != nil {
			return err
		}
	}

	trackUsage(ctx, s.tracker, e.Description, e.Category)
	return nil
}

// Delete removes the entry identified by year and id.
func (s *EntryService) Delete(ctx context.Context, year int, id int64) error {
	p, err := s.store.Partition(year)
	if err != nil {
		return err
	}

	ok, err := p.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrEntryNotFound
	}
	return nil
}
