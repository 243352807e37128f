package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/graph"
	"github.com/harmonia-audio/harmonia/oto"
	"github.com/harmonia-audio/harmonia/player"
	"github.com/harmonia-audio/harmonia/theory"
)

type (
	// session is a player wired to an audio context, either streaming to the
	// sound card or rendered offline.
	session struct {
		ctx    *graph.Context
		player *player.Player
		output harmonia.CloserWaiter
	}

	// frozenClock never fires: offline renders release nothing before the
	// whole buffer has been rendered.
	frozenClock struct{}
	frozenTimer struct{}
)

func (frozenClock) AfterFunc(time.Duration, func()) player.Timer { return frozenTimer{} }
func (frozenTimer) Stop() bool { return true }

var errInitialize = errors.New("could not start the audio context")

// openSession starts a player. A realtime session streams to the default
// audio device until close.
func openSession(realtime bool) (*session, error) {
	ctx := graph.NewContext(graph.Options{SampleRate: harmonia.SampleRate, Logger: logger})
	opts := []player.Option{player.WithLogger(logger)}
	if !realtime {
		opts = append(opts, player.WithScheduler(frozenClock{}))
	}
	s := &session{ctx: ctx, player: player.New(ctx, theory.New(logger), settings, opts...)}
	if realtime {
		audio, err := oto.NewContext()
		if err != nil {
			return nil, err
		}
		s.output = audio.Play(ctx.Source())
	}
	if !s.player.Initialize() {
		s.close()
		return nil, errInitialize
	}
	return s, nil
}

// play runs f, which returns how long the sound it scheduled lasts, and
// waits until that has been heard or ctx is done.
func (s *session) play(ctx context.Context, f func(p *player.Player) (float64, error)) error {
	d, err := f(s.player)
	if err != nil {
		return err
	}
	tail := s.player.Settings().ReleaseTime + 0.5
	select {
	case <-time.After(time.Duration((d + tail) * float64(time.Second))):
	case <-ctx.Done():
	}
	return nil
}

func (s *session) close() {
	s.player.StopAll()
	if s.output != nil {
		if err := s.output.Close(); err != nil {
			logger.Error("closing audio output failed", "err", err)
		}
	}
	s.ctx.Lock()
	defer s.ctx.Unlock()
	if err := s.ctx.Close(); err != nil && !errors.Is(err, graph.ErrClosed) {
		logger.Error("closing audio context failed", "err", err)
	}
}

// checkProgression returns an error naming the available progressions when
// name is not one of them.
func checkProgression(th *theory.Theory, name, mode string) error {
	if _, ok := th.Progression(name, mode); ok {
		return nil
	}
	return fmt.Errorf("unknown progression %q in %s, try one of: %s", name, mode, strings.Join(th.ProgressionNames(mode), ", "))
}
