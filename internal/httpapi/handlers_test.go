package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/veto-ceremony/server/internal/admin"
	"github.com/veto-ceremony/server/internal/bus"
	"github.com/veto-ceremony/server/internal/catalog"
	"github.com/veto-ceremony/server/internal/dispatch"
	"github.com/veto-ceremony/server/internal/store"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	st := store.New()
	cat := catalog.New()
	pub := dispatch.New(bus.New(), zap.NewNop())
	a, err := admin.New(st, cat, pub, zap.NewNop())
	if err != nil {
		t.Fatalf("admin.New: %v", err)
	}
	return NewAPI(a, cat, st, zap.NewNop())
}

func TestCreateFPSLobbyReturnsIDAndToken(t *testing.T) {
	api := newTestAPI(t)

	body, _ := json.Marshal(createFPSRequest{GameType: "bo1", Game: "cs2", PoolSize: 7})
	req := httptest.NewRequest(http.MethodPost, "/api/lobbies/fps", bytes.NewReader(body))
	w := httptest.NewRecorder()

	api.CreateFPSLobby(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["lobby_id"] == "" || resp["admin_token"] == "" {
		t.Fatalf("want lobby_id and admin_token populated, got %v", resp)
	}
}

func TestCreateFPSLobbyBadGameIsBadRequest(t *testing.T) {
	api := newTestAPI(t)

	body, _ := json.Marshal(createFPSRequest{GameType: "bo1", Game: "not-a-real-game", PoolSize: 7})
	req := httptest.NewRequest(http.MethodPost, "/api/lobbies/fps", bytes.NewReader(body))
	w := httptest.NewRecorder()

	api.CreateFPSLobby(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for an unknown game, got %d", w.Code)
	}
}

func TestDeleteLobbyRequiresAdminToken(t *testing.T) {
	api := newTestAPI(t)

	createBody, _ := json.Marshal(createFPSRequest{GameType: "bo1", Game: "cs2", PoolSize: 7})
	createReq := httptest.NewRequest(http.MethodPost, "/api/lobbies/fps", bytes.NewReader(createBody))
	createW := httptest.NewRecorder()
	api.CreateFPSLobby(createW, createReq)

	var created map[string]string
	json.Unmarshal(createW.Body.Bytes(), &created)

	deleteReq := httptest.NewRequest(http.MethodDelete, "/api/lobbies?lobby_id="+created["lobby_id"], nil)
	deleteW := httptest.NewRecorder()
	api.DeleteLobby(deleteW, deleteReq)
	if deleteW.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without an admin token, got %d", deleteW.Code)
	}

	deleteReq2 := httptest.NewRequest(http.MethodDelete, "/api/lobbies?lobby_id="+created["lobby_id"], nil)
	deleteReq2.Header.Set("X-Admin-Token", created["admin_token"])
	deleteW2 := httptest.NewRecorder()
	api.DeleteLobby(deleteW2, deleteReq2)
	if deleteW2.Code != http.StatusNoContent {
		t.Fatalf("want 204 with a valid admin token, got %d: %s", deleteW2.Code, deleteW2.Body.String())
	}
}

func TestMapPoolUnknownGameIsNotFound(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/mapPool?game=not-a-real-game", nil)
	w := httptest.NewRecorder()
	api.MapPool(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404 for an unknown game, got %d", w.Code)
	}
}

func TestCardColorsReturnsDefaults(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cardColors", nil)
	w := httptest.NewRecorder()
	api.CardColors(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var colors []string
	if err := json.Unmarshal(w.Body.Bytes(), &colors); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(colors) != 2 {
		t.Fatalf("want 2 default card colors, got %v", colors)
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	api.Healthz(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
}

func TestLobbiesListsCreatedLobbies(t *testing.T) {
	api := newTestAPI(t)

	body, _ := json.Marshal(createFPSRequest{GameType: "bo1", Game: "cs2", PoolSize: 7})
	createReq := httptest.NewRequest(http.MethodPost, "/api/lobbies/fps", bytes.NewReader(body))
	createW := httptest.NewRecorder()
	api.CreateFPSLobby(createW, createReq)

	req := httptest.NewRequest(http.MethodGet, "/api/lobbies", nil)
	w := httptest.NewRecorder()
	api.Lobbies(w, req)

	var lobbies []lobbySummary
	if err := json.Unmarshal(w.Body.Bytes(), &lobbies); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(lobbies) != 1 {
		t.Fatalf("want 1 lobby listed, got %v", lobbies)
	}
	if lobbies[0].GameFamily != "fps" || lobbies[0].GameType != "bo1" {
		t.Fatalf("want game family/type populated, got %+v", lobbies[0])
	}
	if lobbies[0].CreatedAt.IsZero() {
		t.Fatalf("want createdAt populated")
	}
}

func TestStartLobbyRequiresAdminToken(t *testing.T) {
	api := newTestAPI(t)

	createBody, _ := json.Marshal(createFPSRequest{GameType: "bo1", Game: "cs2", PoolSize: 7, AdminLobby: true})
	createReq := httptest.NewRequest(http.MethodPost, "/api/lobbies/fps", bytes.NewReader(createBody))
	createW := httptest.NewRecorder()
	api.CreateFPSLobby(createW, createReq)

	var created map[string]string
	json.Unmarshal(createW.Body.Bytes(), &created)

	startReq := httptest.NewRequest(http.MethodPost, "/api/lobbies/start?lobby_id="+created["lobby_id"], nil)
	startW := httptest.NewRecorder()
	api.StartLobby(startW, startReq)
	if startW.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without an admin token, got %d", startW.Code)
	}

	startReq2 := httptest.NewRequest(http.MethodPost, "/api/lobbies/start?lobby_id="+created["lobby_id"], nil)
	startReq2.Header.Set("X-Admin-Token", created["admin_token"])
	startW2 := httptest.NewRecorder()
	api.StartLobby(startW2, startReq2)
	if startW2.Code != http.StatusNoContent {
		t.Fatalf("want 204 with a valid admin token, got %d: %s", startW2.Code, startW2.Body.String())
	}
}

func TestSetObsLobbyPinsLobbyWithAdminToken(t *testing.T) {
	api := newTestAPI(t)

	createBody, _ := json.Marshal(createFPSRequest{GameType: "bo1", Game: "cs2", PoolSize: 7})
	createReq := httptest.NewRequest(http.MethodPost, "/api/lobbies/fps", bytes.NewReader(createBody))
	createW := httptest.NewRecorder()
	api.CreateFPSLobby(createW, createReq)

	var created map[string]string
	json.Unmarshal(createW.Body.Bytes(), &created)

	setReq := httptest.NewRequest(http.MethodPost, "/api/obsLobby?lobby_id="+created["lobby_id"], nil)
	setReq.Header.Set("X-Admin-Token", created["admin_token"])
	setW := httptest.NewRecorder()
	api.SetObsLobby(setW, setReq)
	if setW.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d: %s", setW.Code, setW.Body.String())
	}
	if api.store.ObsLobby() != created["lobby_id"] {
		t.Fatalf("want the lobby pinned as the obs lobby, got %q", api.store.ObsLobby())
	}
}

func TestCoinFlipDefaultReadAndUpdate(t *testing.T) {
	api := newTestAPI(t)

	getReq := httptest.NewRequest(http.MethodGet, "/api/coinFlip", nil)
	getW := httptest.NewRecorder()
	api.CoinFlip(getW, getReq)

	var resp map[string]bool
	json.Unmarshal(getW.Body.Bytes(), &resp)
	if !resp["coin_flip"] {
		t.Fatalf("want the default coin-flip flag to start true, got %v", resp)
	}

	updateBody, _ := json.Marshal(coinFlipUpdateRequest{Flag: false})
	updateReq := httptest.NewRequest(http.MethodPost, "/api/coinFlip", bytes.NewReader(updateBody))
	updateW := httptest.NewRecorder()
	api.CoinFlipUpdate(updateW, updateReq)
	if updateW.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", updateW.Code)
	}

	getReq2 := httptest.NewRequest(http.MethodGet, "/api/coinFlip", nil)
	getW2 := httptest.NewRecorder()
	api.CoinFlip(getW2, getReq2)
	json.Unmarshal(getW2.Body.Bytes(), &resp)
	if resp["coin_flip"] {
		t.Fatalf("want the coin-flip flag flipped to false, got %v", resp)
	}
}
