// Package descriptor defines the immutable plugin and module release data.
//
// A Plugin value describes exactly one released version. Descriptors are
// constructed once at startup and passed by reference into the lifecycle
// orchestrator; nothing mutates them at runtime.
package descriptor
