package main

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/harmonia-audio/harmonia/theory"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	// leadSheet is everything describe prints about a key.
	leadSheet struct {
		Key          string
		Mode         string
		Notes        []string
		Signature    theory.KeySignature
		Relative     string
		Chords       []theory.Chord
		Progressions []progressionSheet
	}

	progressionSheet struct {
		Name   string
		Chords []theory.Chord
	}
)

const leadSheetTemplate = `{{ .Key }} {{ title .Mode }}
{{ repeat (len (printf "%s %s" .Key .Mode)) "=" }}
Signature  {{ with .Signature }}{{ if .Sharps }}{{ .Sharps }} {{ plural .Sharps "sharp" }}{{ else if .Flats }}{{ .Flats }} {{ plural .Flats "flat" }}{{ else }}none{{ end }}{{ if .Accidentals }} ({{ join " " .Accidentals }}){{ end }}{{ end }}
Scale      {{ join " " .Notes }}
{{- if .Relative }}
Relative   {{ .Relative }}
{{- end }}

Chords
{{- range .Chords }}
  {{ .Numeral | printf "%-5s" }} {{ .Name | printf "%-7s" }} {{ title (toString .Quality) | printf "%-17s" }} {{ join " " .Notes }}
{{- end }}
{{ if .Progressions }}
Progressions
{{- range .Progressions }}
  {{ .Name | printf "%-14s" }} {{ range $i, $c := .Chords }}{{ if $i }} - {{ end }}{{ $c.Name }}{{ end }}
{{- end }}
{{ end -}}
`

var numerals = [7]string{"I", "II", "III", "IV", "V", "VI", "VII"}

var describeMode string

var describeCmd = &cobra.Command{
	Use:     "describe KEY",
	Short:   "Print the scale, diatonic chords and progressions of a key",
	Example: "  harmonia describe Bb --mode mixolydian",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return describe(cmd.OutOrStdout(), theory.New(logger), args[0], describeMode)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVarP(&describeMode, "mode", "m", "major", "Mode of the key.")
}

func describe(w io.Writer, th *theory.Theory, key, mode string) error {
	notes := th.ScaleNotes(key, mode)
	if len(notes) == 0 {
		return fmt.Errorf("unknown key %q in mode %q, modes are: %s", key, mode, strings.Join(theory.Modes(), ", "))
	}
	sheet := leadSheet{
		Key:       key,
		Mode:      mode,
		Notes:     notes,
		Signature: th.KeySignature(key, mode),
		Relative:  th.RelativeKey(key, mode),
	}
	for i, n := range notes {
		q := th.DiatonicQuality(i, mode)
		sheet.Chords = append(sheet.Chords, theory.Chord{Numeral: numeral(i, q), Root: n, Quality: q, Notes: th.ChordNotesInKey(n, q, key, mode)})
	}
	for _, p := range th.Progressions(mode) {
		sheet.Progressions = append(sheet.Progressions, progressionSheet{Name: p.Name, Chords: th.ResolveProgression(key, mode, p.Name)})
	}
	return leadSheetTmpl.Execute(w, sheet)
}

var leadSheetTmpl = template.Must(template.New("lead-sheet").Funcs(sprig.TxtFuncMap()).Funcs(template.FuncMap{
	"title": cases.Title(language.English).String,
	"plural": func(n int, word string) string {
		if n == 1 {
			return word
		}
		return word + "s"
	},
}).Parse(leadSheetTemplate))

// numeral writes the degree in upper case for major chords and lower case for
// minor ones, with ° for diminished and + for augmented.
func numeral(degree int, q theory.Quality) string {
	n := numerals[degree%7]
	switch q {
	case theory.Minor:
		return strings.ToLower(n)
	case theory.Diminished:
		return strings.ToLower(n) + "°"
	case theory.Augmented:
		return n + "+"
	}
	return n
}
