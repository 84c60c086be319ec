package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questionpooler"
)

func testContent() fstest.MapFS {
	return fstest.MapFS{
		"appearance.txt":         {Data: []byte("Does your date have [HAIR COLOR] hair?\nDoes your date wear glasses?")},
		"interests.txt":          {Data: []byte("Is your date a fan of {SPORTS TEAM}?\nDoes your date like to cook?\nHas your date lived abroad?")},
		"options/hair-color.txt": {Data: []byte("Black\nBrown")},
	}
}

type testServer struct {
	*Server
	handler http.Handler
	dir     string
}

func newTestServer(t *testing.T, withHistory bool) *testServer {
	t.Helper()
	dir := t.TempDir()

	cfg := questionpooler.DefaultConfig()
	cfg.Content.Seed = 42
	cfg.History.LogDir = filepath.Join(dir, "log")
	cfg.History.Database = filepath.Join(dir, "history.db")

	clock := quartz.NewMock(t)
	clock.Set(time.Date(2025, 3, 14, 20, 30, 0, 0, time.UTC))
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})

	var history *questionpooler.HistoryDB
	if withHistory {
		var err error
		history, err = questionpooler.OpenHistoryDB(cfg.History.Database, clock)
		require.NoError(t, err)
		require.NoError(t, history.CreateTables())
		t.Cleanup(func() { history.Close() })
	}

	s := NewServer(cfg, testContent(), history, logger, clock)
	t.Cleanup(s.Close)
	return &testServer{Server: s, handler: s.Handler(), dir: dir}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createSession(t *testing.T, players int) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/sessions", createSessionRequest{Players: players})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, players, resp.Players)
	return resp.ID
}

func decodeQuestions(t *testing.T, rec *httptest.ResponseRecorder) []questionpooler.Question {
	t.Helper()
	var resp struct {
		Questions []questionpooler.Question `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Questions
}

func TestCreateSessionWithEmptyBody(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, questionpooler.DefaultPlayers, resp.Players)
}

func TestCreateSessionRejectsBadPlayers(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name    string
		players int
	}{
		{"negative", -1},
		{"above cap", questionpooler.DefaultMaxPlayers + 1},
		{"huge", 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/sessions", createSessionRequest{Players: tt.players})
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	ts.mu.RLock()
	games := len(ts.games)
	ts.mu.RUnlock()
	assert.Zero(t, games)

	// The cap itself is allowed
	ts.createSession(t, questionpooler.DefaultMaxPlayers)
}

func TestDrawAndUseQuestions(t *testing.T) {
	ts := newTestServer(t, true)
	id := ts.createSession(t, 2)

	rec := ts.do(t, http.MethodGet, "/sessions/"+id+"/players/0/questions?category=interests&n=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	questions := decodeQuestions(t, rec)
	require.Len(t, questions, 2)

	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/players/0/use", useRequest{Text: questions[0].Text})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/sessions/"+id+"/players/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var set questionpooler.QuestionSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Interests, 3)
	for _, q := range set.Interests {
		assert.Equal(t, q.Text == questions[0].Text, q.Used, q.Text)
	}

	// Exhaust the category and expect the placeholder
	for i := 0; i < 2; i++ {
		rec = ts.do(t, http.MethodGet, "/sessions/"+id+"/players/0/questions?category=interests&n=1", nil)
		drawn := decodeQuestions(t, rec)
		require.Len(t, drawn, 1)
		ts.do(t, http.MethodPost, "/sessions/"+id+"/players/0/use", useRequest{Text: drawn[0].Text})
	}
	rec = ts.do(t, http.MethodGet, "/sessions/"+id+"/players/0/questions?category=interests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decodeQuestions(t, rec)
	require.Len(t, empty, 1)
	assert.Equal(t, questionpooler.NoQuestionText, empty[0].Text)

	// The other player still has a full pool
	rec = ts.do(t, http.MethodGet, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Len(t, info.Remaining, 2)
	assert.Equal(t, 0, info.Remaining[0]["interests"])
	assert.Equal(t, 3, info.Remaining[1]["interests"])
	assert.Equal(t, 2, info.Remaining[1]["appearance"])

	events, err := ts.history.GetEvents(id)
	require.NoError(t, err)
	assert.Len(t, events, 7, "four dealt and three used")

	data, err := os.ReadFile(filepath.Join(ts.dir, "log", id+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Player 0 used")
}

func TestErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t, false)
	id := ts.createSession(t, 2)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		kind   string
	}{
		{"player out of range", http.MethodGet, "/sessions/" + id + "/players/5/questions?category=appearance", nil, http.StatusNotFound, "out of range"},
		{"unknown category", http.MethodGet, "/sessions/" + id + "/players/0/questions?category=personality", nil, http.StatusBadRequest, "unknown category"},
		{"zero count", http.MethodGet, "/sessions/" + id + "/players/0/questions?category=appearance&n=0", nil, http.StatusBadRequest, "invalid argument"},
		{"bad count", http.MethodGet, "/sessions/" + id + "/players/0/questions?category=appearance&n=three", nil, http.StatusBadRequest, ""},
		{"bad player", http.MethodGet, "/sessions/" + id + "/players/one", nil, http.StatusBadRequest, ""},
		{"missing question", http.MethodPost, "/sessions/" + id + "/players/0/use", useRequest{}, http.StatusBadRequest, "invalid argument"},
		{"unknown session", http.MethodGet, "/sessions/nope", nil, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.kind, resp.Kind)
		})
	}
}

func TestJoinBindsSeatCookie(t *testing.T) {
	ts := newTestServer(t, false)
	id := ts.createSession(t, 2)

	rec := ts.do(t, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var cookies [][]*http.Cookie
	for want := 0; want < 2; want++ {
		rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/join", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Player int `json:"player"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, want, resp.Player)
		cookies = append(cookies, rec.Result().Cookies())
	}

	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/join", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A claimed seat only answers to its own cookie
	use := useRequest{Text: "Does your date wear glasses?"}
	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/players/1/use", use)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/players/1/use", use, cookies[0]...)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodGet, "/sessions/"+id+"/players/1/questions?category=appearance", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Player 1 uses a question; only their pool shows it through /me
	rec = ts.do(t, http.MethodPost, "/sessions/"+id+"/players/1/use", use, cookies[1]...)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/me", nil, cookies[1]...)
	require.Equal(t, http.StatusOK, rec.Code)
	var set questionpooler.QuestionSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	assert.True(t, set.Appearance[1].Used)
	assert.Equal(t, []string{"Black", "Brown"}, set.Appearance[0].Options)

	rec = ts.do(t, http.MethodGet, "/me", nil, cookies[0]...)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	assert.False(t, set.Appearance[1].Used)
}

func TestUseUnknownTextIsNotRecorded(t *testing.T) {
	ts := newTestServer(t, true)
	id := ts.createSession(t, 2)

	rec := ts.do(t, http.MethodPost, "/sessions/"+id+"/players/0/use", useRequest{Text: "Not in the pool"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	events, err := ts.history.GetEvents(id)
	require.NoError(t, err)
	assert.Empty(t, events)

	data, err := os.ReadFile(filepath.Join(ts.dir, "log", id+".log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Not in the pool")
}

func TestResumeSessionFromHistory(t *testing.T) {
	ts := newTestServer(t, true)
	id := ts.createSession(t, 2)

	rec := ts.do(t, http.MethodPost, "/sessions/"+id+"/players/1/use", useRequest{Text: "Does your date like to cook?"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Simulate a restart by dropping the in-memory game
	ts.Server.Close()

	rec = ts.do(t, http.MethodGet, "/sessions/"+id+"/players/1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var set questionpooler.QuestionSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	assert.True(t, set.Interests[1].Used)

	rec = ts.do(t, http.MethodDelete, "/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "closed sessions are not resumed")
}

func TestListSessions(t *testing.T) {
	ts := newTestServer(t, true)
	ts.createSession(t, 2)
	ts.createSession(t, 3)

	rec := ts.do(t, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), `"id"`))
}
