package web

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"nihilism/server/internal/engine"
	apperrors "nihilism/server/internal/errors"
	"nihilism/server/internal/game"
	"nihilism/server/internal/models"
)

// Handlers serves the game API over a SessionStore
type Handlers struct {
	store    *engine.SessionStore
	hub      *SessionHub
	upgrader websocket.Upgrader
}

func NewHandlers(store *engine.SessionStore, hub *SessionHub, allowedOrigins []string) *Handlers {
	return &Handlers{
		store: store,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin(allowedOrigins, origin) != ""
			},
		},
	}
}

// NewGameRequest is the optional body of POST /api/game/new
type NewGameRequest struct {
	Name string `json:"name"`
}

// ChoiceRequest is the body of POST /api/game/{player_id}/choice
type ChoiceRequest struct {
	ChoiceID string `json:"choice_id"`
}

// GameState is returned by GET /api/game/{player_id}
type GameState struct {
	Player *models.Player          `json:"player"`
	Moment *models.NarrativeMoment `json:"moment"`
	Ending *game.EndingView        `json:"ending"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string               `json:"error"`
	Code   apperrors.Code       `json:"code"`
	Result *engine.ChoiceResult `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorWith(w, r, err, nil)
}

// writeErrorWith maps err onto its HTTP status. result carries a committed
// choice when only the follow-up narration failed
func writeErrorWith(w http.ResponseWriter, r *http.Request, err error, result *engine.ChoiceResult) {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()
	message := err.Error()
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Result: result})
}

// decodeBody decodes an optional JSON body. An empty body leaves v untouched
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err)
	}
	return nil
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var clients int64
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"service":           "nihilism",
		"stats":             h.store.Stats(),
		"websocket_clients": clients,
	})
}

func (h *Handlers) NewGame(w http.ResponseWriter, r *http.Request) {
	var req NewGameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.store.CreatePlayer(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"player": p})
}

func (h *Handlers) ListGames(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"player_ids": ids})
}

func (h *Handlers) LoadGame(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Load(r.Context(), chi.URLParam(r, "player_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"player": p})
}

func (h *Handlers) SaveGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "player_id")
	if err := h.store.Save(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"saved": true, "player_id": id})
}

func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context(), chi.URLParam(r, "player_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GameState{
		Player: p,
		Moment: p.CurrentMoment(),
		Ending: game.NewEndingView(p),
	})
}

func (h *Handlers) StartGame(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.Start(r.Context(), chi.URLParam(r, "player_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) MakeChoice(w http.ResponseWriter, r *http.Request) {
	var req ChoiceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ChoiceID == "" {
		writeError(w, r, apperrors.New(apperrors.CodeValidation, "choice_id is required"))
		return
	}

	res, err := h.store.MakeChoice(r.Context(), chi.URLParam(r, "player_id"), req.ChoiceID)
	if err != nil {
		writeErrorWith(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ResetLoop(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Reset(r.Context(), chi.URLParam(r, "player_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"player": p})
}

func (h *Handlers) GetEnding(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.Ending(r.Context(), chi.URLParam(r, "player_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"concluded": view != nil,
		"ending":    view,
	})
}

func (h *Handlers) DeleteGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "player_id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": true, "player_id": id})
}

// Events upgrades to a websocket that receives the player's session events
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "player_id")
	if _, err := h.store.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if h.hub == nil {
		writeError(w, r, apperrors.New(apperrors.CodeInvalidState, "event feed is disabled"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.Printf("[API] WebSocket upgrade failed for %s: %v", id, err)
		return
	}
	h.hub.Attach(id, conn)
}
