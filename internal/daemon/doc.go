// Package daemon assembles the configured components (job store, transform
// runner, HTTP API, retention sweeper) into a single lifecycle with
// flock-based locking to prevent multiple instances sharing the same state
// directory.
package daemon
