package filtergraph

import (
	"strconv"
	"strings"
)

// Graph holds the ordered per-stream filter chains for one invocation. An
// empty chain means the stream passes through untouched.
type Graph struct {
	Video []string
	Audio []string
}

// Build assembles both chains from the same option set.
func Build(opts Options) Graph {
	return Graph{
		Video: BuildVideo(opts),
		Audio: BuildAudio(opts),
	}
}

// BuildVideo maps user options onto the video filter chain. Order is fixed:
// the color grade runs before the geometric crop/rescale so grading operates
// on the original sampling grid.
func BuildVideo(opts Options) []string {
	var chain []string

	if stage := colorStage(opts); stage != "" {
		chain = append(chain, stage)
	}

	if opts.CropResize {
		// Crop 2% from the edges, then rescale to the original size with
		// both dimensions rounded down to even values for 4:2:0 chroma.
		chain = append(chain,
			"crop=iw*0.98:ih*0.98",
			"scale=trunc(iw/0.98/2)*2:trunc(ih/0.98/2)*2",
		)
	}

	return chain
}

// BuildAudio maps user options onto the audio filter chain. The denoise stage
// precedes pitch/tempo resampling because the spectral denoiser assumes the
// source sample rate.
func BuildAudio(opts Options) []string {
	var chain []string

	if opts.NoiseReduction {
		chain = append(chain,
			"highpass=f=100",
			"lowpass=f=10000",
			"afftdn=nr=12",
		)
	}

	if opts.pitchTempoActive() {
		pitch := opts.EffectivePitchShift()
		tempo := opts.EffectiveTempo()
		// Resample-rate trick: raising the playback rate by the pitch factor
		// shifts pitch and speeds playback equally, so the tempo stretch is
		// divided by the same factor to leave duration change at exactly the
		// tempo value.
		chain = append(chain,
			"asetrate=44100*"+formatFactor(pitch),
			"aresample=44100",
			"atempo="+formatTempoRatio(tempo, pitch),
		)
	}

	return chain
}

// VideoFilter returns the comma-joined video chain, or "" for passthrough.
func (g Graph) VideoFilter() string {
	return strings.Join(g.Video, ",")
}

// AudioFilter returns the comma-joined audio chain, or "" for passthrough.
func (g Graph) AudioFilter() string {
	return strings.Join(g.Audio, ",")
}

// colorStage emits a single eq stage containing only the controls that
// deviate from identity, or "" when the whole stage would be a no-op. A no-op
// eq would still force a full re-encode pass for zero visual effect.
func colorStage(opts Options) string {
	var params []string

	if opts.Brightness != 0 {
		params = append(params, "brightness="+formatFactor(opts.Brightness))
	}
	if contrast := opts.EffectiveContrast(); contrast != 1 {
		params = append(params, "contrast="+formatFactor(contrast))
	}
	if opts.saturationActive() {
		if saturation := opts.EffectiveSaturation(); saturation != 1 {
			params = append(params, "saturation="+formatFactor(saturation))
		}
	}
	if opts.gammaActive() {
		if gamma := opts.EffectiveGamma(); gamma != 1 {
			params = append(params, "gamma="+formatFactor(gamma))
		}
	}

	if len(params) == 0 {
		return ""
	}
	return "eq=" + strings.Join(params, ":")
}

func formatFactor(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

func formatTempoRatio(tempo, pitch float64) string {
	return strconv.FormatFloat(tempo/pitch, 'f', 6, 64)
}
