// Package lifecycle orchestrates per-user plugin installation,
// uninstallation, update migration, and health checks.
//
// The orchestrator reconciles three pieces of state: shared
// version-scoped plugin files on disk, per-user installation and module
// rows in the relational store, and a health check that the two agree.
// Every public operation returns a structured result; failures surface
// as a *Fault with a machine-readable kind, never as a panic or a raw
// driver error.
package lifecycle
