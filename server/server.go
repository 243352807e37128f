// Package server exposes a player over HTTP: JSON endpoints to play and
// configure, theory lookups, and a server-sent event stream of note events.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/config"
	"github.com/harmonia-audio/harmonia/player"
	"github.com/harmonia-audio/harmonia/theory"
	"github.com/harmonia-audio/harmonia/voicing"
	"github.com/rs/cors"
)

type (
	Server struct {
		player   *player.Player
		theory   *theory.Theory
		broker   *Broker
		saver    *config.Saver
		logger   *slog.Logger
		origins  []string
		listener player.ListenerID
		handler  http.Handler
	}

	Option func(*Server)

	noteRequest struct {
		Note     string  `json:"note"`
		Octave   int     `json:"octave"`
		Duration float64 `json:"duration"`
	}

	chordRequest struct {
		Notes    []string `json:"notes"`
		Octave   int      `json:"octave"`
		Duration float64  `json:"duration"`
	}

	scaleRequest struct {
		Key    string `json:"key"`
		Mode   string `json:"mode"`
		Octave int    `json:"octave"`
	}

	progressionRequest struct {
		Key      string          `json:"key"`
		Mode     string          `json:"mode"`
		Name     string          `json:"name"`
		Previous voicing.Voicing `json:"previous,omitempty"`
	}

	loopRequest struct {
		Key     string `json:"key"`
		Mode    string `json:"mode"`
		Name    string `json:"name"`
		Enabled *bool  `json:"enabled,omitempty"`
	}

	volumeRequest struct {
		Volume float64 `json:"volume"`
	}

	waveformRequest struct {
		Waveform harmonia.Waveform `json:"waveform"`
	}

	scaleResponse struct {
		Key       string              `json:"key"`
		Mode      string              `json:"mode"`
		Notes     []string            `json:"notes"`
		Signature theory.KeySignature `json:"signature"`
		Chords    []theory.Chord      `json:"chords,omitempty"`
		Relative  string              `json:"relative,omitempty"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

const defaultOctave = 4

// WithSaver makes the server persist settings changed through it.
func WithSaver(s *config.Saver) Option { return func(v *Server) { v.saver = s } }

func WithLogger(l *slog.Logger) Option { return func(v *Server) { v.logger = l } }

// WithOrigins limits the origins allowed by CORS; by default any origin is.
func WithOrigins(origins ...string) Option { return func(v *Server) { v.origins = origins } }

// New returns a server controlling p. It subscribes to the note events of p
// until Close.
func New(p *player.Player, opts ...Option) *Server {
	s := &Server{player: p, theory: p.Theory(), broker: NewBroker(), logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.listener = p.AddNoteEventListener(func(e harmonia.NoteEvent) { s.broker.Publish(e) })

	r := mux.NewRouter().StrictSlash(true)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/note", s.handleNote).Methods(http.MethodPost)
	api.HandleFunc("/chord", s.handleChord).Methods(http.MethodPost)
	api.HandleFunc("/scale", s.handleScale).Methods(http.MethodPost)
	api.HandleFunc("/progression", s.handleProgression).Methods(http.MethodPost)
	api.HandleFunc("/loop", s.handleLoop).Methods(http.MethodPost)
	api.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/volume", s.handleVolume).Methods(http.MethodPut)
	api.HandleFunc("/waveform", s.handleWaveform).Methods(http.MethodPut)
	api.HandleFunc("/settings", s.handleSettings).Methods(http.MethodGet, http.MethodPut)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/theory/scale", s.handleTheoryScale).Methods(http.MethodGet)
	api.HandleFunc("/theory/signature", s.handleTheorySignature).Methods(http.MethodGet)
	api.HandleFunc("/theory/progressions", s.handleTheoryProgressions).Methods(http.MethodGet)
	api.HandleFunc("/theory/circle", s.handleTheoryCircle).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = c.Handler(r)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops listening to the player and ends every event stream.
func (s *Server) Close() {
	s.player.RemoveNoteEventListener(s.listener)
	s.broker.Close()
}

func (s *Server) Broker() *Broker { return s.broker }

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	req := noteRequest{Octave: defaultOctave}
	if !s.decode(w, r, &req) {
		return
	}
	if _, ok := theory.ParseNote(req.Note); !ok {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("unknown note %q", req.Note))
		return
	}
	if err := s.player.PlayNote(req.Note, req.Octave, req.Duration); err != nil {
		s.playerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChord(w http.ResponseWriter, r *http.Request) {
	req := chordRequest{Octave: defaultOctave}
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Notes) == 0 {
		s.fail(w, http.StatusBadRequest, errors.New("no notes"))
		return
	}
	v, err := s.player.PlayChord(req.Notes, req.Octave, req.Duration)
	if err != nil {
		s.playerError(w, err)
		return
	}
	s.reply(w, v)
}

func (s *Server) handleScale(w http.ResponseWriter, r *http.Request) {
	req := scaleRequest{Octave: defaultOctave, Mode: "major"}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.player.PlayScale(req.Key, req.Mode, req.Octave); err != nil {
		s.playerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	req := progressionRequest{Mode: "major"}
	if !s.decode(w, r, &req) {
		return
	}
	if _, ok := s.theory.Progression(req.Name, req.Mode); !ok {
		s.fail(w, http.StatusNotFound, fmt.Errorf("unknown progression %q", req.Name))
		return
	}
	res, err := s.player.PlayProgression(req.Key, req.Mode, req.Name, req.Previous)
	if err != nil {
		s.playerError(w, err)
		return
	}
	s.reply(w, res)
}

func (s *Server) handleLoop(w http.ResponseWriter, r *http.Request) {
	req := loopRequest{Mode: "major"}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Enabled != nil && !*req.Enabled {
		s.player.SetLoopingEnabled(false)
		s.reply(w, s.player.LoopState())
		return
	}
	if req.Enabled != nil && req.Name == "" {
		s.player.SetLoopingEnabled(true)
		s.reply(w, s.player.LoopState())
		return
	}
	if _, ok := s.theory.Progression(req.Name, req.Mode); !ok {
		s.fail(w, http.StatusNotFound, fmt.Errorf("unknown progression %q", req.Name))
		return
	}
	if err := s.player.PlayProgressionLoop(req.Key, req.Mode, req.Name); err != nil {
		s.playerError(w, err)
		return
	}
	s.reply(w, s.player.LoopState())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.player.StopAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.player.SetVolume(req.Volume); err != nil {
		s.playerError(w, err)
		return
	}
	s.settingsChanged(w)
}

func (s *Server) handleWaveform(w http.ResponseWriter, r *http.Request) {
	var req waveformRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.player.SetWaveform(req.Waveform); err != nil {
		s.playerError(w, err)
		return
	}
	s.settingsChanged(w)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.reply(w, s.player.Settings())
		return
	}
	req := s.player.Settings()
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.player.UpdateSettings(req); err != nil {
		s.playerError(w, err)
		return
	}
	s.settingsChanged(w)
}

func (s *Server) settingsChanged(w http.ResponseWriter) {
	settings := s.player.Settings()
	if s.saver != nil {
		s.saver.Save(settings)
	}
	s.reply(w, settings)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.reply(w, s.player.State())
}

func (s *Server) handleTheoryScale(w http.ResponseWriter, r *http.Request) {
	key, mode := keyAndMode(r)
	notes := s.theory.ScaleNotes(key, mode)
	if len(notes) == 0 {
		s.fail(w, http.StatusNotFound, fmt.Errorf("unknown key %q %q", key, mode))
		return
	}
	res := scaleResponse{
		Key:       key,
		Mode:      mode,
		Notes:     notes,
		Signature: s.theory.KeySignature(key, mode),
		Relative:  s.theory.RelativeKey(key, mode),
	}
	for i, n := range notes {
		q := s.theory.DiatonicQuality(i, mode)
		res.Chords = append(res.Chords, theory.Chord{Root: n, Quality: q, Notes: s.theory.ChordNotesInKey(n, q, key, mode)})
	}
	s.reply(w, res)
}

func (s *Server) handleTheorySignature(w http.ResponseWriter, r *http.Request) {
	key, mode := keyAndMode(r)
	if len(s.theory.ScaleNotes(key, mode)) == 0 {
		s.fail(w, http.StatusNotFound, fmt.Errorf("unknown key %q %q", key, mode))
		return
	}
	s.reply(w, s.theory.KeySignature(key, mode))
}

func (s *Server) handleTheoryProgressions(w http.ResponseWriter, r *http.Request) {
	_, mode := keyAndMode(r)
	s.reply(w, s.theory.Progressions(mode))
}

func (s *Server) handleTheoryCircle(w http.ResponseWriter, r *http.Request) {
	s.reply(w, theory.CircleOfFifths())
}

// handleEvents streams note events as server-sent events until the client
// goes away or the server is closed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}
	id, events := s.broker.Subscribe()
	defer s.broker.Unsubscribe(id)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": subscribed %v\n\n", id)
	flusher.Flush()
	s.logger.Debug("event stream opened", "subscriber", id)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("event stream closed", "subscriber", id)
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			b, err := json.Marshal(e)
			if err != nil {
				s.logger.Error("cannot encode note event", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, b)
			flusher.Flush()
		}
	}
}

func keyAndMode(r *http.Request) (key, mode string) {
	q := r.URL.Query()
	key, mode = q.Get("key"), q.Get("mode")
	if mode == "" {
		mode = "major"
	}
	return key, mode
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("could not decode request body: %w", err))
		return false
	}
	return true
}

func (s *Server) reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("cannot encode response", "err", err)
	}
}

func (s *Server) playerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, harmonia.ErrInvalidSetting):
		s.fail(w, http.StatusBadRequest, err)
	case errors.Is(err, player.ErrNotInitialized):
		s.fail(w, http.StatusServiceUnavailable, err)
	default:
		s.fail(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.logger.Error("request failed", "status", status, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}
