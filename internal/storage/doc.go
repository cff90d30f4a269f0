// Package storage defines persistence contracts for plugin installations.
//
// The lifecycle orchestrator depends on these interfaces so install and
// uninstall sequencing stays testable without a concrete SQLite schema.
package storage
