// internal/httpserver/server.go
//
// Local HTTP bridge between the presentation layer and the game core.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Collection endpoints under /games (create, select, reset, clear).
//   - Round endpoints under /games/{id} (start, guess, reveal, mark, scale).
//   - Visibility signal (POST /visibility) and draft checks (POST /compose/check).
//   - Websocket feed of the store view at /ws.
//
// Notes:
//   - Invalid round operations are not errors: the response carries the
//     unchanged round, mirroring a disabled control.
//   - Unknown ids are JSON 404s.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessboard/internal/compose"
	"github.com/robalobadob/guessboard/internal/game"
	"github.com/robalobadob/guessboard/internal/store"
)

// Server bundles router, game store and websocket hub.
type Server struct {
	r           *chi.Mux
	store       *store.GameStore
	hub         *Hub
	unsubscribe func()
}

// New constructs a Server, installs middleware, registers routes and starts
// the websocket hub. clientOrigin is the browser origin allowed by CORS;
// empty selects http://localhost:5173.
func New(st *store.GameStore, clientOrigin string) *Server {
	if clientOrigin == "" {
		clientOrigin = "http://localhost:5173"
	}
	s := &Server{
		r:     chi.NewRouter(),
		store: st,
		hub:   NewHub(func() any { return st.View() }, clientOrigin),
	}
	s.unsubscribe = st.Bus().Subscribe(s.hub.Notify)
	go s.hub.Run()

	// --- middleware ---
	s.r.Use(chimw.RequestID)    // add X-Request-ID
	s.r.Use(chimw.RealIP)       // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)    // recover from panics
	s.r.Use(requestLogger)      // zerolog access log
	s.r.Use(cors(clientOrigin)) // single-origin CORS

	// long-lived, so outside the handler timeout
	s.r.Get("/ws", s.hub.ServeWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"guessboard","endpoints":["/health","/games","/games/{id}","/visibility","/compose/check","/ws"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Delete("/", s.handleClear)
			r.Post("/reset", s.handleResetAll)
			r.Get("/active", s.handleGetActive)
			r.Put("/active", s.handleSetActive)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.withGame(s.handleGet))
				r.Post("/guess", s.withGame(s.handleGuess))
				r.Put("/scale", s.withGame(s.handleScale))
				r.Post("/{action}", s.withGame(s.handleAction))
			})
		})

		r.Post("/visibility", s.handleVisibility)
		r.Post("/compose/check", s.handleComposeCheck)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not_found")
		})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the websocket feed.
func (s *Server) Close() {
	s.unsubscribe()
	s.hub.Close()
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one debug line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("requestId", chimw.GetReqID(r.Context())).
			Msg("http")
	})
}

// ----------------------------- collection ----------------------------------

type createReq struct {
	Texts []string `json:"texts"`
}
type createRes struct {
	ActiveGameID string `json:"activeGameId"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.View())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	id := s.store.CreateGames(req.Texts)
	writeJSON(w, http.StatusOK, createRes{ActiveGameID: id})
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	s.store.ResetAllGames()
	writeJSON(w, http.StatusOK, s.store.View())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAllGames(r.Context()); err != nil {
		// the in-memory clear already happened
		log.Warn().Err(err).Msg("erase snapshot")
	}
	writeJSON(w, http.StatusOK, s.store.View())
}

// setActiveReq selects by id or, when id is absent, by index.
type setActiveReq struct {
	ID    *string `json:"id"`
	Index *int    `json:"index"`
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	var ok bool
	switch {
	case req.ID != nil:
		ok = s.store.SetActiveGame(*req.ID)
	case req.Index != nil:
		ok = s.store.SetActiveGameByIndex(*req.Index)
	default:
		writeError(w, http.StatusBadRequest, "id_or_index_required")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, s.store.View())
}

func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	g := s.store.ActiveGame()
	if g == nil {
		writeError(w, http.StatusNotFound, "no_active_game")
		return
	}
	writeJSON(w, http.StatusOK, g.View())
}

// ------------------------------- rounds ------------------------------------

type gameHandler func(w http.ResponseWriter, r *http.Request, g *game.Game)

// withGame resolves {id} or answers 404.
func (s *Server) withGame(h gameHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := s.store.Game(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		h(w, r, g)
	}
}

var actions = map[string]func(*game.Game){
	"start":    (*game.Game).Start,
	"reveal":   (*game.Game).Reveal,
	"unreveal": (*game.Game).Unreveal,
	"won":      (*game.Game).MarkWon,
	"lost":     (*game.Game).MarkLost,
	"reset":    (*game.Game).Reset,
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, g *game.Game) {
	writeJSON(w, http.StatusOK, g.View())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, g *game.Game) {
	act, ok := actions[chi.URLParam(r, "action")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_action")
		return
	}
	act(g)
	writeJSON(w, http.StatusOK, g.View())
}

type guessReq struct {
	Letter string `json:"letter"`
}
type guessRes struct {
	Accepted bool      `json:"accepted"`
	Game     game.View `json:"game"`
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request, g *game.Game) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	accepted := g.GuessLetter(req.Letter)
	writeJSON(w, http.StatusOK, guessRes{Accepted: accepted, Game: g.View()})
}

type scaleReq struct {
	Scale float64 `json:"scale"`
}

func (s *Server) handleScale(w http.ResponseWriter, r *http.Request, g *game.Game) {
	var req scaleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	g.SetBoardScale(req.Scale)
	writeJSON(w, http.StatusOK, g.View())
}

// ------------------------------- ambient -----------------------------------

type visibilityReq struct {
	State string `json:"state"` // "visible" | "hidden"
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if req.State == "visible" {
		s.store.Resume()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type composeRes struct {
	CanSubmit bool            `json:"canSubmit"`
	Stats     []compose.Stats `json:"stats"`
}

func (s *Server) handleComposeCheck(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	d := compose.FromTexts(req.Texts)
	writeJSON(w, http.StatusOK, composeRes{CanSubmit: d.CanSubmit(), Stats: d.Stats()})
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
