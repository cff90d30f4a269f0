// Package host defines the lifecycle contract the surrounding plugin
// manager provides to the orchestrator.
//
// The orchestrator depends on the Activations interface instead of a
// concrete host, so the same lifecycle code runs embedded in the host
// application or standalone (remote installs, tests). The implementation
// is chosen at construction time.
package host
