// Package notifications delivers production events via ntfy.
//
// The ntfy implementation posts to the topic URL configured in config.toml and
// degrades to a no-op when no topic is set. Per-event toggles in the
// notifications section decide which events are sent; the test event is always
// delivered so `newscast notify test` can verify the wiring.
package notifications
