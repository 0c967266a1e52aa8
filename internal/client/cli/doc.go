// Package cli provides the interactive chat client.
//
// It wires configuration, the local store, the sync engine and its
// scheduler, and an interactive REPL. Typical flow: start the background
// scheduler and connectivity watcher, request a startup sync, then execute
// user commands. Every edit lands in the local store first and schedules a
// background pass.
//
// The one-shot subcommands sync, status and reap run a single action
// against the local store and exit.
package cli
