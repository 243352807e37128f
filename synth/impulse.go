package synth

import (
	"fmt"
	"math"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/graph"
)

type reverbShape struct {
	Duration float64 // seconds
	Decay    float64 // exponent of the decay curve
}

var reverbShapes = map[harmonia.ReverbPreset]reverbShape{
	harmonia.Room:  {Duration: 1.5, Decay: 3},
	harmonia.Hall:  {Duration: 3.5, Decay: 2},
	harmonia.Plate: {Duration: 2.0, Decay: 4},
}

const (
	earlyReflections = 0.05 // seconds
	earlyBoost       = 2
)

// Impulse generates the impulse response of a reverb preset: independent
// noise in the two channels shaped by (1-t/T)^decay, with the first 50 ms
// boosted. The same seed gives the same response.
func Impulse(preset harmonia.ReverbPreset, sampleRate float64, seed uint32) (harmonia.AudioBuffer, error) {
	shape, ok := reverbShapes[preset]
	if !ok {
		return nil, fmt.Errorf("unknown reverb preset %q", preset)
	}
	n := int(shape.Duration * sampleRate)
	early := int(earlyReflections * sampleRate)
	ret := make(harmonia.AudioBuffer, n)
	left, right := graph.Rand(seed|1), graph.Rand((seed*2654435761)|1)
	for i := range ret {
		env := float32(math.Pow(1-float64(i)/float64(n), shape.Decay))
		if i < early {
			env *= earlyBoost
		}
		ret[i] = [2]float32{left.Float32() * env, right.Float32() * env}
	}
	return ret, nil
}
