// Package checkpoint persists and restores production progress.
//
// Save is an upsert keyed by production ID; the in-memory state is
// authoritative at save time, so there is no merge. Saves for one production
// are serialized by a keyed mutex, which makes it safe to call Save after
// every segment mutation from concurrent fan-out workers. Save failures wrap
// services.ErrPersistence and are meant to be logged, not fatal.
//
// Load decodes and validates the stored documents and then recomputes the
// current step from the step statuses, ignoring the stored pointer. A missing
// checkpoint wraps services.ErrNotFound; LoadOrNew turns that into a fresh
// production positioned at news_fetch.
package checkpoint
