//go:build !cgo

package midi

import (
	"context"
	"log/slog"
)

// without cgo there is no rtmidi driver, so there are no inputs either

func Inputs() ([]string, error) { return nil, ErrNoDriver }

func Listen(ctx context.Context, portPrefix string, p NotePlayer, logger *slog.Logger) error {
	return ErrNoDriver
}
