package services

import (
	"context"
	"log/slog"
)

// Tracker records description/category usage for the autocomplete
// collaborator. Tracking is always best-effort: implementations may fail,
// and callers must never let that abort the entry write that triggered it.
type Tracker interface {
	Track(ctx context.Context, description, category string) error
}

// NoopTracker is the Tracker used when no usage collaborator is configured.
type NoopTracker struct{}

func (NoopTracker) Track(context.Context, string, string) error { return nil }

// trackUsage notifies the tracker and swallows failures after logging.
func trackUsage(ctx context.Context, tracker Tracker, description, category string) {
	if tracker == nil || description == "" {
		return
	}
	if err := tracker.Track(ctx, description, category); err != nil {
		slog.WarnContext(ctx, "Description usage tracking failed",
			"description", description,
			"category", category,
			"error", err)
	}
}
