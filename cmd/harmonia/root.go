package main

import (
	"log/slog"
	"os"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/config"
	"github.com/harmonia-audio/harmonia/version"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string

	logger   = slog.Default()
	settings = harmonia.DefaultSettings()
)

var rootCmd = &cobra.Command{
	Use:   "harmonia",
	Short: "Play and explore chords, scales and progressions",
	Long: `Harmonia plays notes, chords, scales and voice-led chord progressions
through a synthesizer with a master effects chain. Progressions can loop
forever, be rendered to .wav, or exported as Standard MIDI Files.

Settings are read from settings.yml in the user configuration directory.`,
	Version:           version.VersionOrHash,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug messages.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file. Defaults to settings.yml in the user configuration directory.")
}

func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			logger.Warn("using default settings", "err", err)
			return nil
		}
		configPath = p
	}
	s, exists, err := config.Load(configPath)
	switch {
	case err != nil:
		logger.Warn("ignoring settings file", "path", configPath, "err", err)
	case exists:
		logger.Debug("settings loaded", "path", configPath)
	}
	settings = s
	return nil
}
