package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/voicing"
	"github.com/spf13/cobra"
)

var (
	renderMode       string
	renderOutput     string
	renderIterations int
	renderPCM        bool
)

var renderCmd = &cobra.Command{
	Use:   "render KEY NAME",
	Short: "Render a chord progression to a .wav or .raw file",
	Long: `Render a chord progression offline, as fast as possible, to a .wav file, or
to a headerless .raw file when the output name ends with .raw. Samples are
stereo 32-bit floats unless --pcm is given.`,
	Example: "  harmonia render C I-V-vi-IV -n 2 -o pop.wav",
	Args:    cobra.ExactArgs(2),
	RunE:    runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderMode, "mode", "m", "major", "Mode of the key.")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file, - for standard output. Defaults to KEY-NAME.wav.")
	renderCmd.Flags().IntVarP(&renderIterations, "iterations", "n", 1, "How many times the progression is played.")
	renderCmd.Flags().BoolVarP(&renderPCM, "pcm", "c", false, "Write 16-bit signed PCM samples.")
}

func runRender(cmd *cobra.Command, args []string) error {
	key, name := args[0], args[1]
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.close()
	if err := checkProgression(s.player.Theory(), name, renderMode); err != nil {
		return err
	}
	var buffer harmonia.AudioBuffer
	var previous voicing.Voicing
	for i := 0; i < max(renderIterations, 1); i++ {
		res, err := s.player.PlayProgression(key, renderMode, name, previous)
		if err != nil {
			return err
		}
		buffer = append(buffer, s.ctx.RenderSeconds(res.TotalDuration)...)
		previous = res.FinalVoicing
	}
	tail := s.player.Settings().ReleaseTime + 1
	buffer = append(buffer, s.ctx.RenderSeconds(tail)...)
	logger.Info("rendered", "seconds", buffer.Duration(), "peak", buffer.Peak(), "rms", buffer.RMS())

	output := renderOutput
	if output == "" {
		output = strings.ReplaceAll(fmt.Sprintf("%s-%s.wav", key, name), "/", "_")
	}
	var contents []byte
	if filepath.Ext(output) == ".raw" {
		contents, err = buffer.Raw(renderPCM)
	} else {
		contents, err = buffer.Wav(renderPCM)
	}
	if err != nil {
		return err
	}
	if output == "-" {
		_, err := os.Stdout.Write(contents)
		return err
	}
	if err := os.WriteFile(output, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %w", output, err)
	}
	logger.Info("file written", "path", output)
	return nil
}
