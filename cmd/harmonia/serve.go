package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/harmonia-audio/harmonia/config"
	"github.com/harmonia-audio/harmonia/midi"
	"github.com/harmonia-audio/harmonia/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	addr      string
	midiInput string
	origins   []string
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Control the synthesizer over HTTP",
	Long: `Start the HTTP control surface. Notes, chords, scales and progressions
are played on the sound card of the machine running the server, and note
events are streamed to clients from /api/events.

With --midi-input, notes played on a matching MIDI input are played too.
Settings changed through the server are saved to the settings file.`,
	Example: "  harmonia serve --addr :8080 --midi-input \"Arturia\"",
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

var inputsCmd = &cobra.Command{
	Use:   "midi-inputs",
	Short: "List the MIDI input ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ins, err := midi.Inputs()
		if err != nil {
			return err
		}
		for _, in := range ins {
			cmd.Println(in)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, inputsCmd)
	serveCmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Address to listen on.")
	serveCmd.Flags().StringVar(&midiInput, "midi-input", "", "Play notes from the first MIDI input whose name starts with this prefix.")
	serveCmd.Flags().StringSliceVar(&origins, "origin", nil, "Allowed CORS origins; any origin when not given.")
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()
	opts := []server.Option{server.WithLogger(logger), server.WithOrigins(origins...)}
	if configPath != "" {
		saver := config.NewSaver(configPath, config.SaveDelay, logger)
		defer func() {
			if err := saver.Flush(); err != nil {
				logger.Error("saving settings failed", "path", configPath, "err", err)
			}
		}()
		opts = append(opts, server.WithSaver(saver))
	}
	srv := server.New(s.player, opts...)
	httpServer := &http.Server{Addr: addr, Handler: srv}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// event streams never end on their own
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if cmd.Flags().Changed("midi-input") {
		g.Go(func() error {
			// the server keeps running without MIDI
			if err := midi.Listen(ctx, midiInput, s.player, logger); err != nil {
				logger.Warn("MIDI input disabled", "err", err)
			}
			return nil
		})
	}
	return g.Wait()
}
