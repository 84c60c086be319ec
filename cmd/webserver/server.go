package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"questionpooler"
	"questionpooler/internal/randutil"
)

const cookieName = "question-session"

// Server hosts question pools for any number of concurrent games
type Server struct {
	cfg     *questionpooler.Config
	content fs.FS
	history *questionpooler.HistoryDB
	store   *sessions.CookieStore
	logger  *log.Logger
	clock   quartz.Clock

	mu    sync.RWMutex
	games map[string]*Game
}

// Game is one running session. Every access to its pool holds mu.
type Game struct {
	mu        sync.Mutex
	ID        string
	Players   int
	Seed      int64
	CreatedAt time.Time
	pool      *questionpooler.PoolManager
	log       *questionpooler.SessionLog
	seats     []bool
}

type createSessionRequest struct {
	Players int   `json:"players"`
	Seed    int64 `json:"seed"`
}

type sessionResponse struct {
	ID        string           `json:"id"`
	Players   int              `json:"players"`
	CreatedAt time.Time        `json:"created_at"`
	Remaining []map[string]int `json:"remaining,omitempty"`
}

type useRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// NewServer creates a server. history may be nil to run without persistence.
func NewServer(cfg *questionpooler.Config, content fs.FS, history *questionpooler.HistoryDB, logger *log.Logger, clock quartz.Clock) *Server {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Server{
		cfg:     cfg,
		content: content,
		history: history,
		store:   sessions.NewCookieStore([]byte(cfg.Server.SessionSecret)),
		logger:  logger,
		clock:   clock,
		games:   make(map[string]*Game),
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleCloseSession)
	mux.HandleFunc("POST /sessions/{id}/join", s.handleJoin)
	mux.HandleFunc("GET /sessions/{id}/players/{player}", s.handleGetAll)
	mux.HandleFunc("GET /sessions/{id}/players/{player}/questions", s.handleGetQuestions)
	mux.HandleFunc("POST /sessions/{id}/players/{player}/use", s.handleUseQuestion)
	mux.HandleFunc("GET /me", s.handleMe)
	return mux
}

// Close closes every open session log
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, game := range s.games {
		if game.log != nil {
			game.log.Close()
		}
		delete(s.games, id)
	}
}

func (s *Server) newGame(id string, players int, seed int64, createdAt time.Time) (*Game, error) {
	loader := questionpooler.NewLoader(s.content, s.logger)
	pool, err := questionpooler.NewPoolManager(loader, players,
		questionpooler.WithRand(randutil.FromSeed(seed)),
		questionpooler.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	game := &Game{
		ID:        id,
		Players:   players,
		Seed:      seed,
		CreatedAt: createdAt,
		pool:      pool,
		seats:     make([]bool, players),
	}

	sessionLog, err := questionpooler.NewSessionLog(s.cfg.History.LogDir, id, players, s.clock)
	if err != nil {
		s.logger.Warn("Session log unavailable", "session", id, "err", err)
	} else {
		game.log = sessionLog
	}
	return game, nil
}

// game finds a running game, resuming it from history when the server has
// restarted since it was created
func (s *Server) game(id string) (*Game, error) {
	s.mu.RLock()
	game, ok := s.games[id]
	s.mu.RUnlock()
	if ok {
		return game, nil
	}

	if s.history == nil {
		return nil, errSessionNotFound
	}
	stored, err := s.history.GetSession(id)
	if err != nil || stored.Status != "open" {
		return nil, errSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if game, ok := s.games[id]; ok {
		return game, nil
	}

	game, err = s.newGame(stored.ID, stored.Players, stored.Seed, stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	replayed, err := s.history.ReplayUsed(game.pool, id)
	if err != nil {
		return nil, err
	}
	s.games[id] = game

	s.logger.Info("Resumed session", "session", id, "players", stored.Players, "replayed", replayed)
	return game, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	req := createSessionRequest{
		Players: s.cfg.Content.Players,
		Seed:    s.cfg.Content.Seed,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Players == 0 {
		req.Players = s.cfg.Content.Players
	}
	if req.Players > s.cfg.Content.MaxPlayers {
		writeError(w, http.StatusBadRequest, fmt.Errorf("players must be at most %d, got %d", s.cfg.Content.MaxPlayers, req.Players))
		return
	}

	id := uuid.NewString()
	game, err := s.newGame(id, req.Players, req.Seed, s.clock.Now())
	if err != nil {
		s.logger.Error("Failed to create session", "err", err)
		writePoolError(w, err)
		return
	}

	if s.history != nil {
		err := s.history.CreateSession(&questionpooler.DBSession{
			ID:         id,
			Players:    req.Players,
			ContentDir: s.cfg.Content.Dir,
			Seed:       req.Seed,
			CreatedAt:  game.CreatedAt,
		})
		if err != nil {
			s.logger.Error("Failed to store session", "session", id, "err", err)
		}
	}

	s.mu.Lock()
	s.games[id] = game
	s.mu.Unlock()

	s.logger.Info("Created session", "session", id, "players", req.Players)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, Players: req.Players, CreatedAt: game.CreatedAt})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	if s.history != nil {
		stored, err := s.history.ListSessions(50)
		if err != nil {
			s.logger.Error("Failed to list sessions", "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, stored)
		return
	}

	s.mu.RLock()
	list := make([]sessionResponse, 0, len(s.games))
	for _, game := range s.games {
		list = append(list, sessionResponse{ID: game.ID, Players: game.Players, CreatedAt: game.CreatedAt})
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	game, err := s.game(r.PathValue("id"))
	if err != nil {
		writePoolError(w, err)
		return
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	resp := sessionResponse{ID: game.ID, Players: game.Players, CreatedAt: game.CreatedAt}
	for player := 0; player < game.Players; player++ {
		remaining := make(map[string]int, len(questionpooler.Categories))
		for _, category := range questionpooler.Categories {
			n, err := game.pool.Remaining(player, category)
			if err != nil {
				writePoolError(w, err)
				return
			}
			remaining[string(category)] = n
		}
		resp.Remaining = append(resp.Remaining, remaining)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	game, ok := s.games[id]
	delete(s.games, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, errSessionNotFound)
		return
	}
	if game.log != nil {
		game.log.Close()
	}
	if s.history != nil {
		if err := s.history.UpdateSessionStatus(id, "closed"); err != nil {
			s.logger.Error("Failed to close session", "session", id, "err", err)
		}
	}

	s.logger.Info("Closed session", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	game, err := s.game(r.PathValue("id"))
	if err != nil {
		writePoolError(w, err)
		return
	}

	game.mu.Lock()
	player := -1
	for i, taken := range game.seats {
		if !taken {
			game.seats[i] = true
			player = i
			break
		}
	}
	game.mu.Unlock()

	if player < 0 {
		writeError(w, http.StatusConflict, errors.New("session is full"))
		return
	}

	session, _ := s.store.Get(r, cookieName)
	session.Values["session_id"] = game.ID
	session.Values["player"] = player
	if err := session.Save(r, w); err != nil {
		s.logger.Error("Session save error", "err", err)
	}

	s.logger.Info("Player joined", "session", game.ID, "player", player)
	writeJSON(w, http.StatusOK, map[string]interface{}{"session_id": game.ID, "player": player})
}

func (s *Server) handleGetAll(w http.ResponseWriter, r *http.Request) {
	game, player, ok := s.gamePlayer(w, r)
	if !ok {
		return
	}
	s.writeAll(w, game, player)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session, _ := s.store.Get(r, cookieName)
	id, _ := session.Values["session_id"].(string)
	player, hasPlayer := session.Values["player"].(int)
	if id == "" || !hasPlayer {
		writeError(w, http.StatusUnauthorized, errors.New("no seat claimed"))
		return
	}

	game, err := s.game(id)
	if err != nil {
		writePoolError(w, err)
		return
	}
	s.writeAll(w, game, player)
}

func (s *Server) writeAll(w http.ResponseWriter, game *Game, player int) {
	game.mu.Lock()
	defer game.mu.Unlock()

	set, err := game.pool.GetAll(player)
	if err != nil {
		writePoolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleGetQuestions(w http.ResponseWriter, r *http.Request) {
	game, player, ok := s.gamePlayer(w, r)
	if !ok || !s.holdsSeat(w, r, game, player) {
		return
	}

	category := questionpooler.Category(r.URL.Query().Get("category"))
	n := s.cfg.Content.QuestionsPerDraw
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid n %q", raw))
			return
		}
		n = parsed
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	questions, err := game.pool.GetNewQuestions(player, category, n)
	if err != nil {
		if game.log != nil {
			game.log.LogError(player, "get new questions", err)
		}
		writePoolError(w, err)
		return
	}

	if game.log != nil {
		game.log.LogDraw(player, category, questions)
	}
	if s.history != nil {
		if err := s.history.RecordDraw(game.ID, player, category, questions); err != nil {
			s.logger.Error("Failed to record draw", "session", game.ID, "err", err)
		}
	}

	if len(questions) == 0 {
		questions = []*questionpooler.Question{questionpooler.NoQuestion()}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

func (s *Server) handleUseQuestion(w http.ResponseWriter, r *http.Request) {
	game, player, ok := s.gamePlayer(w, r)
	if !ok || !s.holdsSeat(w, r, game, player) {
		return
	}

	var req useRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	var question *questionpooler.Question
	if req.Text != "" {
		question = &questionpooler.Question{Text: req.Text}
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	marked, err := game.pool.UseQuestion(question, player)
	if err != nil {
		writePoolError(w, err)
		return
	}
	if !marked {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if game.log != nil {
		game.log.LogUse(player, req.Text)
	}
	if s.history != nil {
		err := s.history.RecordEvent(&questionpooler.Event{
			SessionID:   game.ID,
			PlayerIndex: player,
			Type:        questionpooler.EventUsed,
			Text:        req.Text,
		})
		if err != nil {
			s.logger.Error("Failed to record use", "session", game.ID, "err", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) gamePlayer(w http.ResponseWriter, r *http.Request) (*Game, int, bool) {
	game, err := s.game(r.PathValue("id"))
	if err != nil {
		writePoolError(w, err)
		return nil, 0, false
	}

	player, err := strconv.Atoi(r.PathValue("player"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid player index %q", r.PathValue("player")))
		return nil, 0, false
	}
	return game, player, true
}

// holdsSeat rejects requests for a claimed seat that do not carry the
// seat's cookie. Unclaimed seats stay open to any caller.
func (s *Server) holdsSeat(w http.ResponseWriter, r *http.Request, game *Game, player int) bool {
	game.mu.Lock()
	claimed := player >= 0 && player < len(game.seats) && game.seats[player]
	game.mu.Unlock()
	if !claimed {
		return true
	}

	session, _ := s.store.Get(r, cookieName)
	id, _ := session.Values["session_id"].(string)
	seat, hasSeat := session.Values["player"].(int)
	if id == game.ID && hasSeat && seat == player {
		return true
	}

	writeError(w, http.StatusForbidden, fmt.Errorf("seat %d is claimed by another player", player))
	return false
}

var errSessionNotFound = errors.New("session not found")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writePoolError maps pool failures onto HTTP status codes
func writePoolError(w http.ResponseWriter, err error) {
	if errors.Is(err, errSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}

	status := http.StatusInternalServerError
	kind := questionpooler.KindOf(err)
	switch kind {
	case questionpooler.KindInvalidArgument, questionpooler.KindUnknownCategory:
		status = http.StatusBadRequest
	case questionpooler.KindOutOfRange:
		status = http.StatusNotFound
	}

	resp := errorResponse{Error: err.Error()}
	if kind != 0 {
		resp.Kind = kind.String()
	}
	writeJSON(w, status, resp)
}
