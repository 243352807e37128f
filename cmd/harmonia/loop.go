package main

import (
	"github.com/harmonia-audio/harmonia"
	"github.com/spf13/cobra"
)

var loopCmd = &cobra.Command{
	Use:   "loop KEY NAME",
	Short: "Loop a chord progression until interrupted",
	Long: `Loop a chord progression until interrupted. Every iteration is voice-led
from the last chord of the one before, so the loop keeps moving smoothly.`,
	Example: "  harmonia loop A i-VI-III-VII --mode minor",
	Args:    cobra.ExactArgs(2),
	RunE:    runLoop,
}

var loopMode string

func init() {
	rootCmd.AddCommand(loopCmd)
	loopCmd.Flags().StringVarP(&loopMode, "mode", "m", "major", "Mode of the key.")
}

func runLoop(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()
	if err := checkProgression(s.player.Theory(), args[1], loopMode); err != nil {
		return err
	}
	id := s.player.AddNoteEventListener(func(e harmonia.NoteEvent) {
		if e.Type == harmonia.ProgressionChord {
			cmd.Println(e.Note)
		}
	})
	defer s.player.RemoveNoteEventListener(id)
	if err := s.player.PlayProgressionLoop(args[0], loopMode, args[1]); err != nil {
		return err
	}
	<-cmd.Context().Done()
	logger.Debug("loop interrupted", "iterations", s.player.LoopState().Iteration)
	return nil
}
