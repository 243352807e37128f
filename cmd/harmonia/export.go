package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/harmonia-audio/harmonia/midi"
	"github.com/harmonia-audio/harmonia/theory"
	"github.com/spf13/cobra"
)

var (
	exportMode    string
	exportOutput  string
	exportOptions = midi.DefaultExportOptions()
)

var exportCmd = &cobra.Command{
	Use:     "export-midi KEY NAME",
	Short:   "Write a voice-led chord progression as a Standard MIDI File",
	Example: "  harmonia export-midi F ii7-V7-Imaj7 --bpm 90 -n 4 -o turnaround.mid",
	Args:    cobra.ExactArgs(2),
	RunE:    runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	f := exportCmd.Flags()
	f.StringVarP(&exportMode, "mode", "m", "major", "Mode of the key.")
	f.StringVarP(&exportOutput, "output", "o", "-", "Output file, - for standard output.")
	f.Float64Var(&exportOptions.BPM, "bpm", exportOptions.BPM, "Tempo in beats per minute.")
	f.IntVar(&exportOptions.ChordBeats, "beats", exportOptions.ChordBeats, "Length of every chord in beats.")
	f.IntVarP(&exportOptions.Iterations, "iterations", "n", exportOptions.Iterations, "How many times the progression is written.")
	f.IntVar(&exportOptions.BaseOctave, "octave", exportOptions.BaseOctave, "Octave the voicings gravitate around.")
	f.Uint8Var(&exportOptions.Velocity, "velocity", exportOptions.Velocity, "Note on velocity.")
	f.Uint8Var(&exportOptions.Channel, "channel", exportOptions.Channel, "MIDI channel, 0-15.")
}

func runExport(cmd *cobra.Command, args []string) error {
	th := theory.New(logger)
	if err := checkProgression(th, args[1], exportMode); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := midi.WriteProgression(&buf, th, args[0], exportMode, args[1], exportOptions); err != nil {
		return err
	}
	if exportOutput == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(exportOutput, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("could not write file %v: %w", exportOutput, err)
	}
	logger.Info("file written", "path", exportOutput, "bytes", buf.Len())
	return nil
}
