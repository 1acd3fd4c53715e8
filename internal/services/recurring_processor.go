package services

import (
	"context"
	"log/slog"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

// Processor replays recurring rules into the ledger. Each run catches the
// schedule up to today: a rule that was due several periods ago generates
// one entry per missed occurrence, not just one.
type Processor struct {
	rules   *storage.Rules
	store   *storage.Store
	tracker Tracker
}

func NewProcessor(rules *storage.Rules, store *storage.Store, tracker Tracker) *Processor {
	if tracker == nil {
		tracker = NoopTracker{}
	}
	return &Processor{rules: rules, store: store, tracker: tracker}
}

// ProcessDue materializes every pending occurrence of every active rule up
// to the calendar day of now. It returns the number of entries actually
// inserted; occurrences suppressed as duplicates are processed but not
// counted. One rule failing never blocks the others.
func (p *Processor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	today := core.Today(now)

	due, err := p.rules.Due(ctx, today)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, rule := range due {
		n, next, processed := p.replayRule(ctx, rule, today)
		inserted += n

		// Advance only when at least one occurrence went through, so a
		// failed rule is retried from the same date next run.
		if processed > 0 {
			if err := p.rules.AdvanceNextDue(ctx, rule.ID, next); err != nil {
				slog.ErrorContext(ctx, "Failed to advance recurring rule",
					"rule_id", rule.ID,
					"next_due", next.String(),
					"error", err)
			}
		}
	}

	slog.InfoContext(ctx, "Recurring rules processed",
		"due_rules", len(due),
		"entries_inserted", inserted)
	return inserted, nil
}

// replayRule walks the rule's schedule from its next due date through
// today. A storage failure stops this rule mid-replay and leaves the
// remaining occurrences for the next run.
func (p *Processor) replayRule(ctx context.Context, rule core.RecurringRule, today core.Date) (inserted int, next core.Date, processed int) {
	cursor := rule.NextDue

	for !cursor.After(today) {
		part, err := p.store.Partition(cursor.Year())
		if err != nil {
			slog.ErrorContext(ctx, "Failed to open partition for recurring rule",
				"rule_id", rule.ID,
				"date", cursor.String(),
				"error", err)
			break
		}

		dup, err := part.HasDuplicate(ctx, cursor, rule.Description, rule.Category, rule.Amount.Cents())
		if err != nil {
			slog.ErrorContext(ctx, "Duplicate check failed for recurring rule",
				"rule_id", rule.ID,
				"date", cursor.String(),
				"error", err)
			break
		}

		if !dup {
			entry := core.Entry{
				Debit:       rule.Amount,
				Description: rule.Description,
				Date:        cursor,
				Category:    rule.Category,
			}
			if _, err := part.Insert(ctx, entry); err != nil {
				slog.ErrorContext(ctx, "Failed to insert recurring entry",
					"rule_id", rule.ID,
					"date", cursor.String(),
					"error", err)
				break
			}
			inserted++
			trackUsage(ctx, p.tracker, rule.Description, rule.Category)
		}

		processed++
		cursor = cursor.Next(rule.Frequency)
	}

	return inserted, cursor, processed
}
