// Package main hosts the newscast CLI entrypoint and command graph.
//
// The Cobra command tree creates productions, runs them through the wizard
// steps, and exposes the recovery controls (abort, retry, regenerate) that
// operate on the checkpoint store. Configuration, logging, store selection and
// collaborator wiring are resolved once in commandContext so subcommands stay
// declarative.
//
// Add new behaviour to the internal packages first and surface it here.
package main
