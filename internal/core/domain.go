package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// ISODate is the wire and storage format for all ledger dates. ISO dates
// sort correctly as plain strings, which the partition queries rely on.
const ISODate = "2006-01-02"

type (
	// Frequency is how often a recurring rule fires.
	Frequency string

	// Date is a calendar day. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	// Entry is a single ledger transaction. Credit and Debit are independent
	// fields that both default to zero; nothing forbids setting both.
	Entry struct {
		ID          int64
		Credit      Money
		Debit       Money
		Description string
		Date        Date
		Category    string
	}

	// RecurringRule is a template that generates one expense entry per
	// occurrence. NextDue is the first date not yet processed.
	RecurringRule struct {
		ID          int64
		Amount      Money
		Description string
		Category    string
		Frequency   Frequency
		NextDue     Date
		Active      bool
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrRuleNotFound     = errors.New("recurring rule not found")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar day.
func Today(now time.Time) Date {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	return d.Format(ISODate)
}

// Year returns the calendar year, which is also the entry's partition key.
func (d Date) Year() int {
	return d.Time.Year()
}

// After reports whether d is a later calendar day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// Next returns the following occurrence for the given frequency. Month and
// year advancement use time.AddDate, so a Jan 31 monthly rule overflows into
// early March rather than clamping to month end; this matches the behavior
// the schedule replay was built around.
func (d Date) Next(f Frequency) Date {
	switch f {
	case Weekly:
		return Date{Time: d.AddDate(0, 0, 7)}
	case Monthly:
		return Date{Time: d.AddDate(0, 1, 0)}
	case Yearly:
		return Date{Time: d.AddDate(1, 0, 0)}
	}
	return d
}

func (f Frequency) Validate() error {
	switch f {
	case Weekly, Monthly, Yearly:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidFrequency, string(f))
}

// Amount is the entry's signed value, credit minus debit. It is derived for
// sorting and summaries and never persisted.
func (e Entry) Amount() Money {
	return e.Credit.Sub(e.Debit)
}

// Year returns the partition the entry belongs to.
func (e Entry) Year() int {
	return e.Date.Year()
}

func (e Entry) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if e.Credit.IsNegative() || e.Debit.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(r.Description) == 0 {
		return ErrEmptyDescription
	}
	if err := r.Frequency.Validate(); err != nil {
		return err
	}
	if r.NextDue.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
