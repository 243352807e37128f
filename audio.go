package harmonia

import (
	"io"
	"math"

	"github.com/viterin/vek/vek32"
)

// SampleRate is the rate at which every graph is rendered, in Hz.
const SampleRate = 44100

type (
	// AudioBuffer is a buffer of stereo audio samples of variable length, each
	// sample represented by [2]float32. [0] is left channel, [1] is right.
	AudioBuffer [][2]float32

	// AudioSource is a function that fills the given buffer with audio. The
	// buffer should be filled completely; returning an error stops the
	// playback.
	AudioSource func(buf AudioBuffer) error

	// AudioContext represents the low-level audio drivers. There should be at
	// most one AudioContext at a time. The interface is implemented at least by
	// oto.OtoContext, but in future we could also mock it.
	AudioContext interface {
		Play(f AudioSource) CloserWaiter
	}

	// CloserWaiter is an io.Closer whose Wait blocks until the playback has
	// been stopped, either by Close or by the source returning an error.
	CloserWaiter interface {
		io.Closer
		Wait()
	}
)

// Fill fills the AudioBuffer using a Source. An existing slice is reused when
// its capacity allows.
func (buffer *AudioBuffer) Fill(source AudioSource, frames int) error {
	if cap(*buffer) < frames {
		*buffer = make(AudioBuffer, frames)
	}
	*buffer = (*buffer)[:frames]
	return source(*buffer)
}

// Duration returns the length of the buffer in seconds at SampleRate.
func (buffer AudioBuffer) Duration() float64 {
	return float64(len(buffer)) / SampleRate
}

// Peak returns the largest absolute sample value over both channels.
func (buffer AudioBuffer) Peak() float32 {
	if len(buffer) == 0 {
		return 0
	}
	var peak float32
	for _, ch := range buffer.channels() {
		vek32.Abs_Inplace(ch)
		peak = max(peak, vek32.Max(ch))
	}
	return peak
}

// RMS returns the root mean square level of the buffer, both channels
// averaged.
func (buffer AudioBuffer) RMS() float32 {
	if len(buffer) == 0 {
		return 0
	}
	var total float32
	for _, ch := range buffer.channels() {
		sq := vek32.Mul(ch, ch)
		total += vek32.Mean(sq)
	}
	return float32(math.Sqrt(float64(total / 2)))
}

// channels de-interleaves the buffer into two freshly allocated slices.
func (buffer AudioBuffer) channels() [2][]float32 {
	ret := [2][]float32{make([]float32, len(buffer)), make([]float32, len(buffer))}
	for i, s := range buffer {
		ret[0][i] = s[0]
		ret[1][i] = s[1]
	}
	return ret
}
