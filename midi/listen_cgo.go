//go:build cgo

package midi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Inputs lists the names of the MIDI input ports.
func Inputs() ([]string, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDriver, err)
	}
	defer driver.Close()
	ins, err := driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("cannot list MIDI inputs: %w", err)
	}
	ret := make([]string, len(ins))
	for i, in := range ins {
		ret[i] = in.String()
	}
	return ret, nil
}

// Listen plays every note started on the first input whose name begins with
// portPrefix, or the first input at all if portPrefix is empty, until ctx is
// done.
func Listen(ctx context.Context, portPrefix string, p NotePlayer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	driver, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoDriver, err)
	}
	defer driver.Close()
	ins, err := driver.Ins()
	if err != nil {
		return fmt.Errorf("cannot list MIDI inputs: %w", err)
	}
	var in drivers.In
	for _, i := range ins {
		if strings.HasPrefix(i.String(), portPrefix) {
			in = i
			break
		}
	}
	if in == nil {
		return fmt.Errorf("could not find a MIDI input starting with %q", portPrefix)
	}
	if err := in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	defer in.Close()
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		var channel, key, velocity uint8
		if !msg.GetNoteStart(&channel, &key, &velocity) {
			return
		}
		note, octave := KeyNote(key)
		if err := p.PlayNote(note, octave, 0); err != nil {
			logger.Error("cannot play MIDI note", "note", note, "octave", octave, "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cannot listen to %v: %w", in, err)
	}
	defer stop()
	logger.Info("listening to MIDI input", "port", in.String())
	<-ctx.Done()
	return nil
}
