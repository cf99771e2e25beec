// Package production defines the data model shared by every newscast
// component: the ordered wizard steps and their progress records, the
// per-segment resource status, the frozen segment list, and the brief that
// carries a production's channel identity.
//
// Types here are plain tagged records with fixed enums. Validate runs
// struct-tag validation plus the cross-field invariants (a URL is present
// only for done resources, a completion time only for finished steps) and is
// applied whenever state is loaded from persistence.
package production
