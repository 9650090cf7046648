// Package filtergraph translates user-facing transform options into ordered
// filter chains in the transcoding engine's filter mini-language.
//
// The builders are pure functions: equal option sets always produce
// byte-identical chains, and no option combination performs I/O. Stage order
// is part of the contract: color grading precedes crop/rescale, and the
// spectral denoiser precedes pitch/tempo resampling because resampling changes
// the sample rate the denoiser assumes.
//
// Background-audio mixing deliberately does not appear here; it requires
// graph-level wiring of a second input and lives in the transform package.
package filtergraph
