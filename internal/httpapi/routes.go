package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veto-ceremony/server/internal/ws"
)

func SetupRoutes(api *API, wsHandler *ws.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", api.Healthz)
	r.Get("/ws", wsHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Post("/lobbies/fps", api.CreateFPSLobby)
		r.Post("/lobbies/splatoon", api.CreateSplatoonLobby)
		r.Delete("/lobbies", api.DeleteLobby)
		r.Get("/lobbies", api.Lobbies)
		r.Post("/lobbies/start", api.StartLobby)

		r.Post("/mapPool", api.EditFPSMapPool)
		r.Get("/mapPool", api.MapPool)
		r.Post("/cardColors", api.EditCardColors)
		r.Get("/cardColors", api.CardColors)
		r.Post("/coinFlip", api.CoinFlipUpdate)
		r.Get("/coinFlip", api.CoinFlip)

		r.Post("/obsLobby", api.SetObsLobby)
		r.Delete("/obsLobby", api.ClearObsLobby)
		r.Get("/runtime-env", api.RuntimeEnv)
	})

	return r
}
