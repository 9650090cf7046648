package transform

import (
	"strings"

	"clipforge/internal/filtergraph"
)

// Mode selects the encoder profile for an invocation.
type Mode string

const (
	// ModePreview encodes a short fragment to a streamable fragmented mp4.
	ModePreview Mode = "preview"
	// ModeExport encodes the full source at delivery quality to a file.
	ModeExport Mode = "export"
	// ModeExtract stream-copies a time range without re-encoding.
	ModeExtract Mode = "extract"
)

// Spec describes one engine invocation. The filter graph is built before the
// spec is constructed; the invocation layer only wires it to inputs.
type Spec struct {
	Mode   Mode
	Source string

	Graph filtergraph.Graph

	// BgmPath mixes a second audio input under the main track when non-empty.
	// BgmVolume attenuates it.
	BgmPath   string
	BgmVolume float64

	// Preview window. Duration <= 0 means "until end of source".
	StartOffset float64
	Duration    float64

	// Extract range in seconds from the source timeline.
	Start float64
	End   float64

	// OutputPath receives the encoded file for export and extract modes.
	// Preview mode ignores it and streams to stdout.
	OutputPath string

	// SourceDuration, when known, lets the runner translate engine time
	// offsets into percentages.
	SourceDuration float64
}

// mixesBgm reports whether the dual-input mixing graph applies.
func (s Spec) mixesBgm() bool {
	return strings.TrimSpace(s.BgmPath) != ""
}
