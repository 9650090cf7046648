package transform

import (
	"fmt"
	"strconv"
	"strings"
)

// audioNormalizeStage pins the mixing graph's main branch to the layout amix
// expects regardless of what the source decodes to.
const audioNormalizeStage = "aformat=sample_fmts=fltp:sample_rates=44100:channel_layouts=stereo"

// BuildArgs assembles the full engine argument list for a spec. Global flags
// first, then inputs, then the filter wiring, then the mode's encoder profile.
func BuildArgs(spec Spec, profile EncoderProfile) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}

	if spec.Mode == ModePreview && spec.StartOffset > 0 {
		// Seeking before the input is fast; preview accuracy at keyframe
		// granularity is acceptable for a five second look.
		args = append(args, "-ss", formatSeconds(spec.StartOffset))
	}
	if spec.Mode == ModeExtract {
		args = append(args, "-ss", formatSeconds(spec.Start), "-to", formatSeconds(spec.End))
	}

	args = append(args, "-i", spec.Source)

	switch spec.Mode {
	case ModeExtract:
		args = append(args, "-c", "copy")
	default:
		if spec.mixesBgm() {
			args = append(args, "-i", spec.BgmPath)
			args = append(args, filterComplexArgs(spec)...)
		} else {
			args = append(args, singleInputFilterArgs(spec)...)
		}
		if spec.Mode == ModePreview && spec.Duration > 0 {
			args = append(args, "-t", formatSeconds(spec.Duration))
		}
		args = append(args, profile.Args()...)
	}

	if spec.Mode == ModePreview {
		// The fragment streams on stdout, so progress reporting stays off and
		// stdout carries nothing but the mp4 bytes.
		args = append(args, "-movflags", "frag_keyframe+empty_moov+faststart", "-f", "mp4", "pipe:1")
	} else {
		args = append(args, "-progress", "pipe:1")
		if spec.Mode == ModeExport {
			args = append(args, "-movflags", "+faststart")
		}
		args = append(args, spec.OutputPath)
	}

	return args
}

// singleInputFilterArgs attaches the per-stream chains when they are
// non-empty. Empty chains mean passthrough and add nothing.
func singleInputFilterArgs(spec Spec) []string {
	var args []string
	if vf := spec.Graph.VideoFilter(); vf != "" {
		args = append(args, "-vf", vf)
	}
	if af := spec.Graph.AudioFilter(); af != "" {
		args = append(args, "-af", af)
	}
	return args
}

// filterComplexArgs builds the dual-input mixing graph. The background track
// is attenuated, the main audio runs through its chain and is normalized, and
// the two are mixed so the output ends with the main input.
func filterComplexArgs(spec Spec) []string {
	var graph strings.Builder

	fmt.Fprintf(&graph, "[1:a]volume=%s[bg];", formatVolume(spec.BgmVolume))

	graph.WriteString("[0:a]")
	if af := spec.Graph.AudioFilter(); af != "" {
		graph.WriteString(af)
		graph.WriteString(",")
	}
	graph.WriteString(audioNormalizeStage)
	graph.WriteString("[main];")

	graph.WriteString("[main][bg]amix=inputs=2:duration=shortest:dropout_transition=2[aout]")

	videoMap := "0:v"
	if vf := spec.Graph.VideoFilter(); vf != "" {
		graph.WriteString(";[0:v]")
		graph.WriteString(vf)
		graph.WriteString("[vout]")
		videoMap = "[vout]"
	}

	return []string{
		"-filter_complex", graph.String(),
		"-map", videoMap,
		"-map", "[aout]",
		"-shortest",
	}
}

// EncoderProfile is a fixed encoder parameter set for one mode.
type EncoderProfile struct {
	VideoCodec   string
	Preset       string
	Tune         string
	CRF          int
	AudioCodec   string
	AudioBitrate string
}

// PreviewProfile trades quality for startup latency.
func PreviewProfile(crf int) EncoderProfile {
	return EncoderProfile{
		VideoCodec:   "libx264",
		Preset:       "ultrafast",
		Tune:         "zerolatency",
		CRF:          crf,
		AudioCodec:   "aac",
		AudioBitrate: "128k",
	}
}

// ExportProfile is the delivery-quality profile.
func ExportProfile(preset string, crf int) EncoderProfile {
	return EncoderProfile{
		VideoCodec:   "libx264",
		Preset:       preset,
		CRF:          crf,
		AudioCodec:   "aac",
		AudioBitrate: "192k",
	}
}

// Args renders the profile as engine flags.
func (p EncoderProfile) Args() []string {
	args := []string{"-c:v", p.VideoCodec, "-preset", p.Preset}
	if p.Tune != "" {
		args = append(args, "-tune", p.Tune)
	}
	args = append(args, "-crf", strconv.Itoa(p.CRF), "-c:a", p.AudioCodec, "-b:a", p.AudioBitrate)
	return args
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

func formatVolume(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
