// Package store persists production checkpoints.
//
// SQLite (modernc.org/sqlite) is the default backend and lives next to the
// other data files; PostgreSQL via pgxpool is available for studios that run
// several workstations against one database. Both backends expose the same
// method set and store one row per production keyed by its ID. The wizard,
// segment list, and segment statuses are stored as JSON documents; callers
// own their shape.
//
// Upserts are last-writer-wins with one exception: the aborted flag is sticky.
// A save never clears it, only SetAborted does, so an abort issued from another
// process survives the running pipeline's next checkpoint.
package store
