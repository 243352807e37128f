package harmonia

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type (
	// Settings is the complete configuration of the audio engine. It is a
	// value type: every With... method returns a validated copy and leaves
	// the receiver untouched, so a Settings can be shared freely between
	// goroutines.
	Settings struct {
		MasterVolume float64 `yaml:"masterVolume" json:"masterVolume"`

		// NoteDuration, ChordDuration and ProgressionChordDuration are in
		// seconds. ProgressionChordDuration is the time each chord of a
		// progression lasts before the next one starts.
		NoteDuration             float64 `yaml:"noteDuration" json:"noteDuration"`
		ChordDuration            float64 `yaml:"chordDuration" json:"chordDuration"`
		ProgressionChordDuration float64 `yaml:"progressionChordDuration" json:"progressionChordDuration"`

		Waveform Waveform `yaml:"waveform" json:"waveform"`

		MultiOscillator      bool    `yaml:"multiOscillator" json:"multiOscillator"`
		StereoEnhancement    bool    `yaml:"stereoEnhancement" json:"stereoEnhancement"`
		FilterEnvelope       bool    `yaml:"filterEnvelope" json:"filterEnvelope"`
		FilterEnvelopeAmount float64 `yaml:"filterEnvelopeAmount" json:"filterEnvelopeAmount"`
		Detune               float64 `yaml:"detune" json:"detune"` // cents
		SustainLevel         float64 `yaml:"sustainLevel" json:"sustainLevel"`
		ReleaseTime          float64 `yaml:"releaseTime" json:"releaseTime"`

		Effects    EffectsSettings    `yaml:"effects" json:"effects"`
		Percussion PercussionSettings `yaml:"percussion" json:"percussion"`
	}

	// EffectsSettings configures the master effects chain. Times are in
	// seconds, levels in decibels where noted.
	EffectsSettings struct {
		Enabled          bool    `yaml:"enabled" json:"enabled"`
		LowpassCutoff    float64 `yaml:"lowpassCutoff" json:"lowpassCutoff"` // Hz
		LowpassResonance float64 `yaml:"lowpassResonance" json:"lowpassResonance"`

		Reverb    ReverbPreset `yaml:"reverb" json:"reverb"`
		ReverbWet float64      `yaml:"reverbWet" json:"reverbWet"`

		DelayTime     float64 `yaml:"delayTime" json:"delayTime"`
		DelayFeedback float64 `yaml:"delayFeedback" json:"delayFeedback"`
		DelayWet      float64 `yaml:"delayWet" json:"delayWet"`

		CompressorThreshold float64 `yaml:"compressorThreshold" json:"compressorThreshold"` // dB
		CompressorKnee      float64 `yaml:"compressorKnee" json:"compressorKnee"`           // dB
		CompressorRatio     float64 `yaml:"compressorRatio" json:"compressorRatio"`
		CompressorAttack    float64 `yaml:"compressorAttack" json:"compressorAttack"`
		CompressorRelease   float64 `yaml:"compressorRelease" json:"compressorRelease"`
		MakeupGain          float64 `yaml:"makeupGain" json:"makeupGain"`
		Limiter             bool    `yaml:"limiter" json:"limiter"`
	}

	PercussionSettings struct {
		Enabled bool    `yaml:"enabled" json:"enabled"`
		Volume  float64 `yaml:"volume" json:"volume"`
	}

	// Waveform names the timbre of the synthesized notes. The four harmonic
	// waveforms (Piano, WarmSine, SoftSquare, Organ) need periodic wave
	// support from the audio context; the rest are the standard oscillator
	// shapes.
	Waveform string

	ReverbPreset string
)

const (
	Sine       Waveform = "sine"
	Square     Waveform = "square"
	Sawtooth   Waveform = "sawtooth"
	Triangle   Waveform = "triangle"
	Piano      Waveform = "piano"
	WarmSine   Waveform = "warm-sine"
	SoftSquare Waveform = "soft-square"
	Organ      Waveform = "organ"
)

const (
	Room  ReverbPreset = "room"
	Hall  ReverbPreset = "hall"
	Plate ReverbPreset = "plate"
)

// ErrInvalidSetting is wrapped by every validation error of Settings.
var ErrInvalidSetting = errors.New("invalid setting")

// Waveforms lists every known waveform, standard shapes first.
var Waveforms = []Waveform{Sine, Square, Sawtooth, Triangle, Piano, WarmSine, SoftSquare, Organ}

// IsHarmonic reports if the waveform is one of the precomputed harmonic
// waveforms rather than a standard oscillator shape.
func (w Waveform) IsHarmonic() bool {
	switch w {
	case Piano, WarmSine, SoftSquare, Organ:
		return true
	}
	return false
}

func (w Waveform) valid() bool {
	for _, v := range Waveforms {
		if v == w {
			return true
		}
	}
	return false
}

func (r ReverbPreset) valid() bool {
	return r == Room || r == Hall || r == Plate
}

// DefaultSettings returns the settings the engine starts with.
func DefaultSettings() Settings {
	return Settings{
		MasterVolume:             0.7,
		NoteDuration:             1.0,
		ChordDuration:            1.5,
		ProgressionChordDuration: 1.2,
		Waveform:                 Piano,
		MultiOscillator:          true,
		StereoEnhancement:        true,
		FilterEnvelope:           true,
		FilterEnvelopeAmount:     4,
		Detune:                   5,
		SustainLevel:             0.7,
		ReleaseTime:              0.3,
		Effects: EffectsSettings{
			Enabled:             true,
			LowpassCutoff:       8000,
			LowpassResonance:    0.7,
			Reverb:              Hall,
			ReverbWet:           0.2,
			DelayTime:           0.25,
			DelayFeedback:       0.25,
			DelayWet:            0.15,
			CompressorThreshold: -18,
			CompressorKnee:      12,
			CompressorRatio:     4,
			CompressorAttack:    0.003,
			CompressorRelease:   0.25,
			MakeupGain:          1.2,
			Limiter:             true,
		},
		Percussion: PercussionSettings{
			Enabled: false,
			Volume:  0.5,
		},
	}
}

// Validate checks every option against its documented range and returns the
// first violation, wrapping ErrInvalidSetting.
func (s Settings) Validate() error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"masterVolume", s.MasterVolume, 0, 1},
		{"noteDuration", s.NoteDuration, 0.05, 10},
		{"chordDuration", s.ChordDuration, 0.05, 10},
		{"progressionChordDuration", s.ProgressionChordDuration, 0.05, 10},
		{"filterEnvelopeAmount", s.FilterEnvelopeAmount, 1, 20},
		{"detune", s.Detune, 0, 100},
		{"sustainLevel", s.SustainLevel, 0.01, 1},
		{"releaseTime", s.ReleaseTime, 0.01, 5},
		{"effects.lowpassCutoff", s.Effects.LowpassCutoff, 20, 20000},
		{"effects.lowpassResonance", s.Effects.LowpassResonance, 0.0001, 30},
		{"effects.reverbWet", s.Effects.ReverbWet, 0, 1},
		{"effects.delayTime", s.Effects.DelayTime, 0, 2},
		{"effects.delayFeedback", s.Effects.DelayFeedback, 0, 0.95},
		{"effects.delayWet", s.Effects.DelayWet, 0, 1},
		{"effects.compressorThreshold", s.Effects.CompressorThreshold, -60, 0},
		{"effects.compressorKnee", s.Effects.CompressorKnee, 0, 40},
		{"effects.compressorRatio", s.Effects.CompressorRatio, 1, 20},
		{"effects.compressorAttack", s.Effects.CompressorAttack, 0, 1},
		{"effects.compressorRelease", s.Effects.CompressorRelease, 0, 1},
		{"effects.makeupGain", s.Effects.MakeupGain, 0, 4},
		{"percussion.volume", s.Percussion.Volume, 0, 1},
	}
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%w: %s = %v is outside [%v, %v]", ErrInvalidSetting, c.name, c.value, c.min, c.max)
		}
	}
	if !s.Waveform.valid() {
		return fmt.Errorf("%w: unknown waveform %q", ErrInvalidSetting, s.Waveform)
	}
	if !s.Effects.Reverb.valid() {
		return fmt.Errorf("%w: unknown reverb preset %q", ErrInvalidSetting, s.Effects.Reverb)
	}
	return nil
}

func (s Settings) with(modify func(*Settings)) (Settings, error) {
	ret := s
	modify(&ret)
	if err := ret.Validate(); err != nil {
		return s, err
	}
	return ret, nil
}

func (s Settings) WithMasterVolume(v float64) (Settings, error) {
	return s.with(func(r *Settings) { r.MasterVolume = v })
}

func (s Settings) WithWaveform(w Waveform) (Settings, error) {
	return s.with(func(r *Settings) { r.Waveform = w })
}

// WithDurations sets the note, chord and progression chord durations at once.
func (s Settings) WithDurations(note, chord, progressionChord float64) (Settings, error) {
	return s.with(func(r *Settings) {
		r.NoteDuration = note
		r.ChordDuration = chord
		r.ProgressionChordDuration = progressionChord
	})
}

func (s Settings) WithMultiOscillator(enabled bool) (Settings, error) {
	return s.with(func(r *Settings) { r.MultiOscillator = enabled })
}

func (s Settings) WithStereoEnhancement(enabled bool) (Settings, error) {
	return s.with(func(r *Settings) { r.StereoEnhancement = enabled })
}

func (s Settings) WithFilterEnvelope(enabled bool, amount float64) (Settings, error) {
	return s.with(func(r *Settings) {
		r.FilterEnvelope = enabled
		r.FilterEnvelopeAmount = amount
	})
}

func (s Settings) WithDetune(cents float64) (Settings, error) {
	return s.with(func(r *Settings) { r.Detune = cents })
}

func (s Settings) WithEffects(e EffectsSettings) (Settings, error) {
	return s.with(func(r *Settings) { r.Effects = e })
}

func (s Settings) WithPercussion(enabled bool, volume float64) (Settings, error) {
	return s.with(func(r *Settings) {
		r.Percussion.Enabled = enabled
		r.Percussion.Volume = volume
	})
}

// ReadSettings decodes YAML settings on top of the defaults, so a file only
// needs to list the options it changes.
func ReadSettings(r io.Reader) (Settings, error) {
	ret := DefaultSettings()
	if err := yaml.NewDecoder(r).Decode(&ret); err != nil && !errors.Is(err, io.EOF) {
		return DefaultSettings(), fmt.Errorf("could not decode settings: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return DefaultSettings(), err
	}
	return ret, nil
}

// Write encodes the settings as YAML.
func (s Settings) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("could not encode settings: %w", err)
	}
	return enc.Close()
}
