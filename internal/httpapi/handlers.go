// Package httpapi is the admin control surface and read-only query
// endpoints, chi-routed.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/veto-ceremony/server/internal/admin"
	"github.com/veto-ceremony/server/internal/catalog"
	"github.com/veto-ceremony/server/internal/engine"
	"github.com/veto-ceremony/server/internal/store"
)

type API struct {
	admin   *admin.Surface
	catalog *catalog.Catalog
	store   *store.Store
	log     *zap.Logger
}

func NewAPI(a *admin.Surface, cat *catalog.Catalog, st *store.Store, log *zap.Logger) *API {
	return &API{admin: a, catalog: cat, store: st, log: log}
}

type createFPSRequest struct {
	GameType     string `json:"game_type"`
	Game         string `json:"game"`
	PoolSize     int    `json:"pool_size"`
	KnifeDecider bool   `json:"knife_decider"`
	CoinFlip     bool   `json:"coin_flip"`
	AdminLobby   bool   `json:"admin_lobby"`
}

func (a *API) CreateFPSLobby(w http.ResponseWriter, r *http.Request) {
	var req createFPSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	actor, id, err := a.admin.CreateFPSLobby(r.Context(), admin.CreateFPSLobbyRequest{
		GameType:     engine.FPSGameType(req.GameType),
		PoolSize:     req.PoolSize,
		Game:         req.Game,
		KnifeDecider: req.KnifeDecider,
		CoinFlip:     req.CoinFlip,
		Admin:        req.AdminLobby,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := a.admin.Token(id)
	if err != nil {
		http.Error(w, "failed to mint admin token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"lobby_id": actor.ID(), "admin_token": token})
}

type createSplatoonRequest struct {
	ModesSize   int      `json:"modes_size"`
	ActiveModes []string `json:"active_modes"`
	CoinFlip    bool     `json:"coin_flip"`
	AdminLobby  bool     `json:"admin_lobby"`
}

func (a *API) CreateSplatoonLobby(w http.ResponseWriter, r *http.Request) {
	var req createSplatoonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	actor, id, err := a.admin.CreateSplatoonLobby(r.Context(), admin.CreateSplatoonLobbyRequest{
		ModesSize:   req.ModesSize,
		ActiveModes: req.ActiveModes,
		CoinFlip:    req.CoinFlip,
		Admin:       req.AdminLobby,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := a.admin.Token(id)
	if err != nil {
		http.Error(w, "failed to mint admin token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"lobby_id": actor.ID(), "admin_token": token})
}

func (a *API) DeleteLobby(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("lobby_id")
	if !a.requireAdmin(w, r, id) {
		return
	}
	a.admin.DeleteLobby(id)
	w.WriteHeader(http.StatusNoContent)
}

type editMapPoolRequest struct {
	Game string   `json:"game"`
	Pool []string `json:"pool"` // nil resets to the built-in default
}

func (a *API) EditFPSMapPool(w http.ResponseWriter, r *http.Request) {
	var req editMapPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	a.admin.EditFPSMapPool(req.Game, req.Pool)
	w.WriteHeader(http.StatusNoContent)
}

type editCardColorsRequest struct {
	Colors []string `json:"colors"`
}

func (a *API) EditCardColors(w http.ResponseWriter, r *http.Request) {
	var req editCardColorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	a.admin.EditCardColors(req.Colors)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) SetObsLobby(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("lobby_id")
	if !a.requireAdmin(w, r, id) {
		return
	}
	if err := a.admin.SetObsLobby(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) ClearObsLobby(w http.ResponseWriter, r *http.Request) {
	a.admin.ClearObsLobby()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) StartLobby(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("lobby_id")
	if !a.requireAdmin(w, r, id) {
		return
	}
	if err := a.admin.Start(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) CoinFlip(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"coin_flip": a.admin.CoinFlipDefault()})
}

type coinFlipUpdateRequest struct {
	Flag bool `json:"flag"`
}

func (a *API) CoinFlipUpdate(w http.ResponseWriter, r *http.Request) {
	var req coinFlipUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	a.admin.CoinFlipUpdate(req.Flag)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) CardColors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.catalog.CardColors())
}

func (a *API) MapPool(w http.ResponseWriter, r *http.Request) {
	game := r.URL.Query().Get("game")
	pool, ok := a.catalog.FPSMapPool(game, 7)
	if !ok {
		http.Error(w, "unknown game", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// lobbySummary is one /api/lobbies entry. TeamNames is serialized in join
// order, preserving the priority ordering the ceremony itself depends on.
type lobbySummary struct {
	ID            string    `json:"id"`
	GameFamily    string    `json:"game_family"`
	GameType      string    `json:"game_type,omitempty"`
	TeamNames     []string  `json:"team_names"`
	MemberCount   int       `json:"member_count"`
	ObserverCount int       `json:"observer_count"`
	Started       bool      `json:"started"`
	CreatedAt     time.Time `json:"created_at"`
}

func (a *API) Lobbies(w http.ResponseWriter, r *http.Request) {
	actors := a.store.List()
	out := make([]lobbySummary, 0, len(actors))
	for _, act := range actors {
		l, err := act.Snapshot(r.Context())
		if err != nil {
			continue
		}
		out = append(out, lobbySummary{
			ID:            l.ID,
			GameFamily:    string(l.GameFamily),
			GameType:      string(l.Rules.GameType),
			TeamNames:     l.TeamNames.Names(),
			MemberCount:   len(l.Members),
			ObserverCount: len(l.Observers),
			Started:       l.Started,
			CreatedAt:     l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) RuntimeEnv(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"obs_lobby": a.store.ObsLobby()})
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request, lobbyID string) bool {
	if lobbyID == "" {
		http.Error(w, "missing lobby_id", http.StatusBadRequest)
		return false
	}
	token := r.Header.Get("X-Admin-Token")
	if !a.admin.Authorize(lobbyID, token) {
		http.Error(w, "invalid admin token", http.StatusUnauthorized)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
