package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blackmagic-app/blackmagic/internal/api/handlers"
	"github.com/blackmagic-app/blackmagic/internal/api/response"
	"github.com/blackmagic-app/blackmagic/internal/version"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/metrics", s.getMetrics)

		shopHandler := handlers.NewShopHandler(s.shopFacade)
		r.Get("/sets", shopHandler.GetSets)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", shopHandler.GetProducts)
			r.Post("/{setCode}/buy", shopHandler.Buy)
		})

		boosterHandler := handlers.NewBoosterHandler(s.boosterFacade)
		r.Route("/boosters", func(r chi.Router) {
			r.Get("/", boosterHandler.GetBoosters)
			r.Post("/{boosterID}/open", boosterHandler.Open)
		})
		r.Route("/packs/{packID}", func(r chi.Router) {
			r.Get("/", boosterHandler.GetPack)
			r.Post("/replace/{cardID}", boosterHandler.ReplaceCard)
			r.Post("/sell", boosterHandler.Sell)
			r.Post("/sell-all", boosterHandler.SellAll)
			r.Post("/keep", boosterHandler.Keep)
		})

		collectionHandler := handlers.NewCollectionHandler(s.collectionFacade)
		r.Route("/collection", func(r chi.Router) {
			r.Get("/", collectionHandler.GetCollection)
			r.Get("/stats", collectionHandler.GetStats)
			r.Get("/value", collectionHandler.GetValue)
			r.Get("/search", collectionHandler.Search)
			r.Post("/refresh-prices", collectionHandler.RefreshPrices)
			r.Get("/{cardID}", collectionHandler.GetCard)
			r.Post("/{cardID}/sell", collectionHandler.Sell)
		})

		walletHandler := handlers.NewWalletHandler(s.walletFacade)
		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", walletHandler.GetWallet)
			r.Get("/history", walletHandler.GetHistory)
			r.Delete("/history", walletHandler.ClearHistory)
			r.Post("/daily-reward", walletHandler.ClaimDailyReward)
		})
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "blackmagic-api",
		"version": version.Version,
	})
}

// getMetrics returns economy counters and request latency.
func (s *Server) getMetrics(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.metrics.Snapshot())
}
