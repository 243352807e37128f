package main

import (
	"github.com/harmonia-audio/harmonia/player"
	"github.com/spf13/cobra"
)

var (
	octave   int
	duration float64
	mode     string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a note, chord, scale or progression on the sound card",
}

var playNoteCmd = &cobra.Command{
	Use:     "note NOTE",
	Short:   "Play a single note",
	Example: "  harmonia play note F# --octave 3",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, func(p *player.Player) (float64, error) {
			d := duration
			if d <= 0 {
				d = p.Settings().NoteDuration
			}
			return d, p.PlayNote(args[0], octave, d)
		})
	},
}

var playChordCmd = &cobra.Command{
	Use:     "chord NOTE...",
	Short:   "Play the notes voiced upwards from the first one",
	Example: "  harmonia play chord C E G Bb",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, func(p *player.Player) (float64, error) {
			d := duration
			if d <= 0 {
				d = p.Settings().ChordDuration
			}
			v, err := p.PlayChord(args, octave, d)
			if err == nil {
				cmd.Println(v)
			}
			return d, err
		})
	},
}

var playScaleCmd = &cobra.Command{
	Use:     "scale KEY",
	Short:   "Play a scale ascending to the octave",
	Example: "  harmonia play scale D --mode dorian",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, func(p *player.Player) (float64, error) {
			cmd.Println(p.Theory().ScaleNotes(args[0], mode))
			return 4 * p.Settings().NoteDuration, p.PlayScale(args[0], mode, octave)
		})
	},
}

var playProgressionCmd = &cobra.Command{
	Use:     "progression KEY NAME",
	Short:   "Play a voice-led chord progression",
	Example: "  harmonia play progression Eb ii-V-I",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, func(p *player.Player) (float64, error) {
			if err := checkProgression(p.Theory(), args[1], mode); err != nil {
				return 0, err
			}
			res, err := p.PlayProgression(args[0], mode, args[1], nil)
			return res.TotalDuration, err
		})
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.AddCommand(playNoteCmd, playChordCmd, playScaleCmd, playProgressionCmd)
	playCmd.PersistentFlags().IntVarP(&octave, "octave", "o", 4, "Octave of the lowest note.")
	playCmd.PersistentFlags().Float64VarP(&duration, "duration", "d", 0, "Duration in seconds; 0 uses the configured one.")
	playCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "major", "Mode of the key.")
}

// perform plays on the sound card and returns once it has been heard.
func perform(cmd *cobra.Command, f func(p *player.Player) (float64, error)) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()
	return s.play(cmd.Context(), f)
}
