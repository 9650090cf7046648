package filtergraph

// Default values applied when a numeric option is left at its zero value.
// Zero is never a meaningful setting for these fields (contrast 0 would be a
// black frame, pitch 0 is silence), so zero doubles as "not supplied".
const (
	DefaultContrast   = 1.0
	DefaultSaturation = 1.0
	DefaultGamma      = 1.0
	DefaultPitchShift = 1.03
	DefaultTempo      = 0.98
	DefaultBgmVolume  = 0.08
)

// Options is the single input contract to the filter graph builder. All
// numeric fields treat zero as "use the default".
type Options struct {
	// Brightness is an additive offset in [-1, 1]; 0 is identity.
	Brightness float64 `json:"brightness,omitempty"`
	// Contrast is a multiplier in [0, 2]; 1 is identity.
	Contrast float64 `json:"contrast,omitempty"`
	// Saturation is a multiplier in [0, 2]; considered only when ColorGrade
	// is set or an explicit value was supplied.
	Saturation float64 `json:"saturation,omitempty"`
	// Gamma is a correction factor in [0.5, 2]; same activation rule as
	// Saturation.
	Gamma float64 `json:"gamma,omitempty"`
	// ColorGrade opts the saturation and gamma controls in even without
	// explicit values.
	ColorGrade bool `json:"colorGrade,omitempty"`

	// NoiseReduction enables the audio denoise stage.
	NoiseReduction bool `json:"noiseReduction,omitempty"`
	// CropResize enables the crop-then-rescale stage.
	CropResize bool `json:"cropResize,omitempty"`

	// CopyrightAvoid enables the pitch/tempo stage with default factors.
	CopyrightAvoid bool `json:"copyrightAvoid,omitempty"`
	// PitchShift is the pitch factor; 1.03 when left unset.
	PitchShift float64 `json:"pitchShift,omitempty"`
	// Tempo is the duration factor; 0.98 when left unset.
	Tempo float64 `json:"tempo,omitempty"`

	// AddBgm requests background-audio mixing. It never influences the
	// filter chains; mixing is wired at the invocation layer.
	AddBgm bool `json:"addBgm,omitempty"`
	// BgmVolume attenuates the background track; 0.08 when left unset.
	BgmVolume float64 `json:"bgmVolume,omitempty"`
}

// EffectiveContrast returns the contrast multiplier with the default applied.
func (o Options) EffectiveContrast() float64 {
	return defaulted(o.Contrast, DefaultContrast)
}

// EffectiveSaturation returns the saturation multiplier with the default applied.
func (o Options) EffectiveSaturation() float64 {
	return defaulted(o.Saturation, DefaultSaturation)
}

// EffectiveGamma returns the gamma factor with the default applied.
func (o Options) EffectiveGamma() float64 {
	return defaulted(o.Gamma, DefaultGamma)
}

// EffectivePitchShift returns the pitch factor with the default applied.
func (o Options) EffectivePitchShift() float64 {
	return defaulted(o.PitchShift, DefaultPitchShift)
}

// EffectiveTempo returns the tempo factor with the default applied.
func (o Options) EffectiveTempo() float64 {
	return defaulted(o.Tempo, DefaultTempo)
}

// EffectiveBgmVolume returns the background attenuation with the default applied.
func (o Options) EffectiveBgmVolume() float64 {
	return defaulted(o.BgmVolume, DefaultBgmVolume)
}

// saturationActive reports whether the saturation control participates in the
// color stage. ColorGrade and an explicit value are independent opt-ins.
func (o Options) saturationActive() bool {
	return o.ColorGrade || o.Saturation != 0
}

func (o Options) gammaActive() bool {
	return o.ColorGrade || o.Gamma != 0
}

// pitchTempoActive reports whether the pitch/tempo stage is requested, either
// through the copyright-avoidance toggle or an explicit factor.
func (o Options) pitchTempoActive() bool {
	if o.CopyrightAvoid {
		return true
	}
	return o.EffectivePitchShift() != DefaultPitchShift || o.EffectiveTempo() != DefaultTempo
}

func defaulted(value, fallback float64) float64 {
	if value == 0 {
		return fallback
	}
	return value
}
