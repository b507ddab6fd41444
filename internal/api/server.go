package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"naturedex/internal/game"
	"naturedex/internal/nature"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the operator-facing admin API. Every /v1 route requires the
// static bearer token the server was built with.
type Server struct {
	token string
	log   *slog.Logger
	game  *game.Service
	mux   *chi.Mux
}

func New(token string, logger *slog.Logger, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		token: strings.TrimSpace(token),
		log:   logger,
		game:  gameSvc,
		mux:   chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/natures", s.handleNatures)
		r.Get("/characters/{owner}", s.handleCharacter)
		r.Delete("/characters/{owner}", s.handleDelete)
		r.Post("/characters/{owner}/levelup", s.handleLevelUp)
		r.Post("/characters/{owner}/boost", s.handleBoost)
		r.Put("/characters/{owner}/level", s.handleSetLevel)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			writeError(w, http.StatusServiceUnavailable, "admin api token is not configured")
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleNatures(w http.ResponseWriter, _ *http.Request) {
	table := s.game.Natures()
	out := make([]nature.Nature, 0, nature.Count)
	for _, name := range table.Names() {
		n, err := table.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	writeJSON(w, http.StatusOK, map[string]any{"natures": out})
}

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	sheet, err := s.game.View(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

func (s *Server) handleLevelUp(w http.ResponseWriter, r *http.Request) {
	c, err := s.game.LevelUp(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleBoost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Resource string `json:"resource"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := game.ParseResource(in.Resource)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.game.BoostResource(r.Context(), chi.URLParam(r, "owner"), res)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Level int `json:"level"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.game.SetLevel(r.Context(), chi.URLParam(r, "owner"), in.Level)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	ok, err := s.game.Delete(r.Context(), owner)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, game.ErrNotRegistered.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "owner_id": owner})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotRegistered):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrOwnerBusy), errors.Is(err, game.ErrAlreadyRegistered), errors.Is(err, game.ErrMaxLevelReached):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInvalidLevel), errors.Is(err, game.ErrInvalidResource),
		errors.Is(err, game.ErrUnknownNature), errors.Is(err, game.ErrInvalidCharacter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrStorageUnavailable):
		s.log.Error("storage unavailable", "err", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		s.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
