package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"arena-duel/internal/game"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers.
// Used by both the standalone router (for testing) and the full Server.

type matchRequest struct {
	MatchID string `json:"matchId"`
	Arena   string `json:"arena"`
	Players [2]struct {
		ID    string `json:"id"`
		Class string `json:"class"`
	} `json:"players"`
}

func (h *routerHandlers) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Players[0].ID == "" || req.Players[1].ID == "" {
		writeError(w, "Two players are required", http.StatusBadRequest)
		return
	}
	if req.Arena == "" {
		req.Arena = "colosseum"
	}
	if req.MatchID == "" {
		req.MatchID = fmt.Sprintf("match_%d", time.Now().UnixNano())
	}

	playerIDs := [2]string{req.Players[0].ID, req.Players[1].ID}
	classIDs := [2]string{req.Players[0].Class, req.Players[1].Class}

	m, err := h.registry.CreateMatch(req.MatchID, playerIDs, classIDs, req.Arena)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrRegistryFull):
			writeError(w, err.Error(), http.StatusServiceUnavailable)
		case errors.Is(err, game.ErrMatchExists):
			writeError(w, err.Error(), http.StatusConflict)
		default:
			writeError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, map[string]any{
		"matchId": m.ID,
		"arena":   m.Arena().ID,
		"players": playerIDs,
	})
}

func (h *routerHandlers) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.registry.Match(id)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	// The published read model is at most one tick stale and never races
	// the match's own goroutine.
	st := m.Status()
	writeJSON(w, map[string]any{
		"matchId":     m.ID,
		"arena":       m.Arena().ID,
		"status":      string(st.State),
		"round":       st.Round,
		"score":       st.Score,
		"timeLeft":    st.TimeLeft.Seconds(),
		"winnerId":    st.WinnerID,
		"endReason":   st.EndReason,
		"projectiles": st.Projectiles,
	})
}

func (h *routerHandlers) handleListMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"count":   h.registry.Count(),
		"matches": h.registry.MatchIDs(),
	})
}

func (h *routerHandlers) handleForfeit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" {
		writeError(w, "playerId is required", http.StatusBadRequest)
		return
	}

	if err := h.registry.Forfeit(req.PlayerID); err != nil {
		switch {
		case errors.Is(err, game.ErrPlayerNotFound):
			writeError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, game.ErrMatchCompleted):
			writeError(w, err.Error(), http.StatusConflict)
		default:
			writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetArenas(w http.ResponseWriter, r *http.Request) {
	arenas := make([]map[string]any, 0)
	for _, id := range game.ArenaIDs() {
		a, _ := game.GetArena(id)
		arenas = append(arenas, map[string]any{
			"id":     a.ID,
			"name":   a.Name,
			"width":  a.Width,
			"height": a.Height,
			"walls":  len(a.Walls),
		})
	}
	writeJSON(w, arenas)
}

func (h *routerHandlers) handleGetClasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, game.Classes)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"activeMatches": h.registry.Count(),
		"rateLimit":     h.rateLimiter.Stats(),
	})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
