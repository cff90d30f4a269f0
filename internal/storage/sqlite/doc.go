// Package sqlite provides the SQLite-backed installation store.
//
// The store owns the installations and installation_modules tables and
// applies its embedded migrations on open. All lifecycle writes go
// through an explicit transaction obtained from Begin.
package sqlite
