// Package render submits timelines to a cloud render service and waits for
// the result.
//
// The Coordinator owns the polling loop: one blocking loop per job, polling at
// a fixed interval until the job reaches a terminal status or the maximum wait
// elapses. Running out of time yields services.ErrRenderTimeout, which is kept
// distinct from a provider-reported failure (services.ErrRenderFailed). When a
// job finishes, its estimated cost is recorded in a CostLedger; the ledger is
// advisory and never turns a successful render into a failure.
package render
