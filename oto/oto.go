// Package oto plays harmonia audio sources on the sound card through
// ebitengine/oto.
package oto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/harmonia-audio/harmonia"
)

type (
	OtoContext oto.Context

	// OtoPlayer is the CloserWaiter returned by Play.
	OtoPlayer struct {
		player *oto.Player
		reader *OtoReader
	}

	// OtoReader adapts an AudioSource into the io.Reader oto pulls float32
	// little-endian stereo samples from.
	OtoReader struct {
		source    harmonia.AudioSource
		tmpBuffer harmonia.AudioBuffer
		waitGroup sync.WaitGroup
		once      sync.Once
		err       error
		errMutex  sync.RWMutex
	}
)

// buffer of 4096 frames is ~93 ms at 44100 Hz
const otoBufferSize = 4096 * 2 * 4

var errClosed = errors.New("oto player closed")

// NewContext opens the default audio device. It blocks until the device is
// ready.
func NewContext() (*OtoContext, error) {
	op := oto.NewContextOptions{
		SampleRate:   harmonia.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	context, ready, err := oto.NewContext(&op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return (*OtoContext)(context), nil
}

// Play starts pulling audio from source until the source returns an error or
// the returned player is closed.
func (c *OtoContext) Play(source harmonia.AudioSource) harmonia.CloserWaiter {
	reader := &OtoReader{source: source}
	reader.waitGroup.Add(1)
	player := (*oto.Context)(c).NewPlayer(reader)
	player.SetBufferSize(otoBufferSize)
	player.Play()
	return OtoPlayer{player: player, reader: reader}
}

func (o OtoPlayer) Wait() {
	o.reader.waitGroup.Wait()
}

func (o OtoPlayer) Close() error {
	o.reader.closeWithError(errClosed)
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// Err returns the error that stopped the source, if any.
func (o *OtoReader) Err() error {
	o.errMutex.RLock()
	defer o.errMutex.RUnlock()
	return o.err
}

func (o *OtoReader) Read(b []byte) (n int, err error) {
	if err := o.Err(); err != nil {
		return 0, err
	}
	frames := len(b) / 8
	if err := o.tmpBuffer.Fill(o.source, frames); err != nil {
		o.closeWithError(err)
		return 0, err
	}
	for i, s := range o.tmpBuffer {
		binary.LittleEndian.PutUint32(b[i*8:], math.Float32bits(s[0]))
		binary.LittleEndian.PutUint32(b[i*8+4:], math.Float32bits(s[1]))
	}
	return frames * 8, nil
}

func (o *OtoReader) closeWithError(err error) {
	o.once.Do(func() {
		o.errMutex.Lock()
		o.err = err
		o.errMutex.Unlock()
		o.waitGroup.Done()
	})
}
