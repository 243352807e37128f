package server_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/config"
	"github.com/harmonia-audio/harmonia/graph"
	"github.com/harmonia-audio/harmonia/player"
	"github.com/harmonia-audio/harmonia/server"
	"github.com/harmonia-audio/harmonia/theory"
	"github.com/harmonia-audio/harmonia/voicing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idleScheduler never fires; the tests only look at what was scheduled.
type idleScheduler struct{}

type idleTimer struct{}

func (idleScheduler) AfterFunc(time.Duration, func()) player.Timer { return idleTimer{} }

func (idleTimer) Stop() bool { return true }

func newServer(t *testing.T, initialize bool, opts ...server.Option) (*player.Player, *server.Server) {
	t.Helper()
	ctx := graph.NewContext(graph.Options{SampleRate: 44100})
	p := player.New(ctx, theory.New(nil), harmonia.DefaultSettings(), player.WithScheduler(idleScheduler{}))
	if initialize {
		require.True(t, p.Initialize())
	}
	s := server.New(p, opts...)
	t.Cleanup(s.Close)
	return p, s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlayChord(t *testing.T) {
	_, s := newServer(t, true)
	rec := do(t, s, http.MethodPost, "/api/chord", `{"notes":["C","E","G"],"octave":4,"duration":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v voicing.Voicing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, []string{"C", "E", "G"}, v.Notes())

	rec = do(t, s, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st player.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.IsInitialized)
	assert.Equal(t, 3, st.CurrentlyPlaying)
	assert.Equal(t, player.Scheduled, st.Primitives[player.ChordPrimitive])
}

func TestBadRequests(t *testing.T) {
	_, s := newServer(t, true)
	for _, c := range []struct {
		method, path, body string
		status             int
	}{
		{http.MethodPost, "/api/note", `{"note":`, http.StatusBadRequest},
		{http.MethodPost, "/api/note", `{"note":"H"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/chord", `{"notes":[]}`, http.StatusBadRequest},
		{http.MethodPost, "/api/progression", `{"key":"C","name":"nope"}`, http.StatusNotFound},
		{http.MethodPut, "/api/volume", `{"volume":2}`, http.StatusBadRequest},
		{http.MethodPut, "/api/waveform", `{"waveform":"noise"}`, http.StatusBadRequest},
		{http.MethodGet, "/api/theory/scale?key=H", "", http.StatusNotFound},
		{http.MethodGet, "/api/note", "", http.StatusMethodNotAllowed},
	} {
		rec := do(t, s, c.method, c.path, c.body)
		assert.Equal(t, c.status, rec.Code, "%s %s %s", c.method, c.path, c.body)
	}
}

func TestNotInitialized(t *testing.T) {
	_, s := newServer(t, false)
	rec := do(t, s, http.MethodPost, "/api/note", `{"note":"C","octave":4}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var e struct{ Error string }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Contains(t, e.Error, player.ErrNotInitialized.Error())
}

func TestProgression(t *testing.T) {
	_, s := newServer(t, true)
	rec := do(t, s, http.MethodPost, "/api/progression", `{"key":"C","mode":"major","name":"I-IV-V-I"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res player.ProgressionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.FinalVoicing, 3)
	assert.Greater(t, res.TotalDuration, 0.0)
}

func TestLoop(t *testing.T) {
	p, s := newServer(t, true)
	rec := do(t, s, http.MethodPost, "/api/loop", `{"key":"A","mode":"minor","name":"i-iv-V-i"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, p.LoopState().Enabled)
	rec = do(t, s, http.MethodPost, "/api/loop", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, p.LoopState().Enabled)
	rec = do(t, s, http.MethodPost, "/api/loop", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, p.LoopState().Enabled)
	assert.Equal(t, 2, p.LoopState().Iteration)
	rec = do(t, s, http.MethodPost, "/api/stop", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, p.Timers())
}

func TestSettingsArePersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	saver := config.NewSaver(path, time.Hour, nil)
	p, s := newServer(t, true, server.WithSaver(saver))

	rec := do(t, s, http.MethodPut, "/api/volume", `{"volume":0.4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, s, http.MethodPut, "/api/waveform", `{"waveform":"organ"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, harmonia.Organ, p.Settings().Waveform)

	require.NoError(t, saver.Flush())
	stored, exists, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, 0.4, stored.MasterVolume)
	assert.Equal(t, harmonia.Organ, stored.Waveform)

	rec = do(t, s, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got harmonia.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, p.Settings(), got)
}

func TestTheoryEndpoints(t *testing.T) {
	_, s := newServer(t, true)
	rec := do(t, s, http.MethodGet, "/api/theory/scale?key=G", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var scale struct {
		Notes     []string
		Signature theory.KeySignature
		Relative  string
		Chords    []theory.Chord
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scale))
	assert.Equal(t, []string{"G", "A", "B", "C", "D", "E", "F#"}, scale.Notes)
	assert.Equal(t, 1, scale.Signature.Sharps)
	assert.Equal(t, "E", scale.Relative)
	require.Len(t, scale.Chords, 7)
	assert.Equal(t, theory.Minor, scale.Chords[1].Quality)
	assert.Equal(t, []string{"F#", "A", "C"}, scale.Chords[6].Notes)

	rec = do(t, s, http.MethodGet, "/api/theory/circle", "")
	var circle []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &circle))
	assert.Equal(t, theory.CircleOfFifths(), circle)

	rec = do(t, s, http.MethodGet, "/api/theory/progressions?mode=minor", "")
	var progressions []theory.Progression
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progressions))
	assert.NotEmpty(t, progressions)
}

func TestCORS(t *testing.T) {
	_, s := newServer(t, true)
	req := httptest.NewRequest(http.MethodOptions, "/api/chord", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEventStream(t *testing.T) {
	_, s := newServer(t, true)
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, ": subscribed"), line)
	assert.Equal(t, 1, s.Broker().Len())

	post, err := http.Post(srv.URL+"/api/note", "application/json", bytes.NewBufferString(`{"note":"A","octave":4}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusNoContent, post.StatusCode)

	var lines []string
	for len(lines) < 2 {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	assert.Equal(t, "event: start", lines[0])
	var e harmonia.NoteEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &e))
	assert.Equal(t, "A", e.Note)

	s.Close()
	_, err = r.ReadString('\n')
	assert.Error(t, err)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := server.NewBroker()
	id, c := b.Subscribe()
	for i := 0; i < 300; i++ {
		b.Publish(harmonia.NoteEvent{Type: harmonia.NoteStart})
	}
	assert.Len(t, c, cap(c))
	assert.Equal(t, 0, b.Publish(harmonia.NoteEvent{}))
	b.Unsubscribe(id)
	_, ok := <-c
	assert.True(t, ok)
	b.Close()
	_, c = b.Subscribe()
	_, ok = <-c
	assert.False(t, ok)
}
