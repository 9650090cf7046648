// Package transform is the engine invocation layer. It turns a Spec (source,
// filter graph, optional background track, time window, output target) into a
// full ffmpeg argument list and runs the process.
//
// Two entry points on Runner:
//   - Stream encodes a preview fragment and writes it to an io.Writer as it
//     is produced.
//   - Run executes an export or extract asynchronously and reports progress
//     over an event channel that ends with exactly one terminal event.
//
// Progress comes from the engine's machine-readable key=value stream on
// stdout; percentages are clamped below 100 so completion can only be claimed
// by a successful exit.
package transform
