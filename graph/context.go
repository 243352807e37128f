// Package graph is a small sample-accurate audio graph: a clock, parameters
// with scheduled automation and the handful of processing nodes the
// synthesizer needs. Output is pulled one frame at a time from the
// destination node, either by a realtime audio driver or offline.
//
// All methods of the nodes and parameters, and the constructors on Context,
// expect the caller to hold the context lock (Context.Lock) when the context
// is being rendered from another goroutine. Render takes the lock itself.
package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/harmonia-audio/harmonia"
)

type (
	// Context owns the audio clock and the destination node of a graph.
	Context struct {
		mu          sync.Mutex
		sampleRate  float64
		frame       atomic.Int64
		state       State
		features    Features
		destination *Destination
		logger      *slog.Logger
	}

	// Options for NewContext. Zero values mean defaults.
	Options struct {
		SampleRate int
		// Features disables optional node types when set; nil means every
		// feature is supported.
		Features *Features
		Logger   *slog.Logger
	}

	// Features lists the optional capabilities of a context.
	Features struct {
		Convolution  bool
		PeriodicWave bool
	}

	State string
)

const (
	Suspended State = "suspended"
	Running   State = "running"
	Closed    State = "closed"
)

var (
	// ErrAlreadyStopped is returned when stopping a source whose stop time
	// has already passed.
	ErrAlreadyStopped = errors.New("source already stopped")
	// ErrInvalidState is returned when an operation is not allowed in the
	// current state, e.g. starting a source twice.
	ErrInvalidState = errors.New("invalid state")
	ErrClosed       = errors.New("audio context closed")
	ErrNotSupported = errors.New("not supported by the audio context")
)

// NewContext returns a suspended context.
func NewContext(opts Options) *Context {
	c := &Context{
		sampleRate: float64(opts.SampleRate),
		state:      Suspended,
		features:   Features{Convolution: true, PeriodicWave: true},
		logger:     opts.Logger,
	}
	if c.sampleRate <= 0 {
		c.sampleRate = harmonia.SampleRate
	}
	if opts.Features != nil {
		c.features = *opts.Features
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.destination = &Destination{}
	c.destination.init(c, c.destination)
	return c
}

// Lock acquires the graph lock. Hold it while building or scheduling nodes
// on a context that is being rendered.
func (c *Context) Lock()   { c.mu.Lock() }
func (c *Context) Unlock() { c.mu.Unlock() }

func (c *Context) SampleRate() float64 { return c.sampleRate }

func (c *Context) Features() Features { return c.features }

// CurrentTime returns the audio clock in seconds: the time of the next frame
// to be rendered. It does not need the lock.
func (c *Context) CurrentTime() float64 {
	return float64(c.frame.Load()) / c.sampleRate
}

func (c *Context) Destination() *Destination { return c.destination }

func (c *Context) State() State { return c.state }

// Resume starts the clock.
func (c *Context) Resume() error {
	if c.state == Closed {
		return fmt.Errorf("cannot resume: %w", ErrClosed)
	}
	if c.state != Running {
		c.logger.Debug("audio context running", "sampleRate", c.sampleRate)
	}
	c.state = Running
	return nil
}

// Suspend stops the clock; Render outputs silence until Resume.
func (c *Context) Suspend() error {
	if c.state == Closed {
		return fmt.Errorf("cannot suspend: %w", ErrClosed)
	}
	c.state = Suspended
	return nil
}

// Close stops the clock for good and detaches everything from the
// destination.
func (c *Context) Close() error {
	if c.state == Closed {
		return ErrClosed
	}
	c.state = Closed
	c.destination.clearInputs()
	c.logger.Debug("audio context closed", "time", c.CurrentTime())
	return nil
}

// Render fills buf with the next len(buf) frames and advances the clock. A
// context that is not running renders silence and keeps its clock still; a
// closed one also returns ErrClosed.
func (c *Context) Render(buf harmonia.AudioBuffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		clear(buf)
		if c.state == Closed {
			return ErrClosed
		}
		return nil
	}
	frame := c.frame.Load()
	for i := range buf {
		buf[i] = pull(c.destination, frame)
		frame++
	}
	c.frame.Store(frame)
	return nil
}

// RenderSeconds renders the given amount of audio into a new buffer. The
// buffer is silent if the context is not running; use Render to tell a
// closed context apart.
func (c *Context) RenderSeconds(seconds float64) harmonia.AudioBuffer {
	buf := make(harmonia.AudioBuffer, int(seconds*c.sampleRate+0.5))
	_ = c.Render(buf)
	return buf
}

// Source returns an AudioSource rendering this context, for use with a
// harmonia.AudioContext.
func (c *Context) Source() harmonia.AudioSource {
	return c.Render
}

func (c *Context) time(frame int64) float64 {
	return float64(frame) / c.sampleRate
}
