package core

// Summary aggregates the filtered ledger: total income (credits), total
// expenses (debits) and the per-category expense breakdown. Credits are
// excluded from ByCategory; they are income, not spend.
type Summary struct {
	Income     Money
	Expenses   Money
	ByCategory map[string]Money
}

// MigrationSchedule configures the description-usage housekeeping job. It
// is stored in the settings database and consumed by that job, not by the
// ledger core itself.
type MigrationSchedule struct {
	Enabled   bool   `json:"enabled"`
	Time      string `json:"time"`      // HH:MM
	Frequency string `json:"frequency"` // daily, weekly or monthly
}
