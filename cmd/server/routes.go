package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/handlers"
	auth "github.com/Sidbot007/StudentBidz/internal/middleware"
)

func (s *Server) routes() *chi.Mux {
	deps := s.Dependencies
	mux := chi.NewMux()

	// global middlewares
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)

	mux.Handle("/metrics", deps.Metrics.Handler())

	mux.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthCheck)
		r.Get("/ready", s.readyCheck)

		// browsing is public
		r.Get("/auctions", deps.AuctionHandler.ListActive)
		r.Get("/auctions/{auctionId}", deps.AuctionHandler.GetAuction)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.AuthMiddleware(deps.JWT, deps.Services.UserService, s.log))

			pr.Post("/auctions", deps.AuctionHandler.CreateAuction)
			pr.Get("/auctions/mine", deps.AuctionHandler.ListMine)

			pr.Delete("/auctions/{auctionId}", deps.AuctionHandler.DeleteAuction)
			pr.Post("/auctions/{auctionId}/relist", deps.AuctionHandler.Relist)
			pr.Put("/auctions/{auctionId}/end-time", deps.AuctionHandler.UpdateEndTime)
			pr.Post("/auctions/{auctionId}/restricted", deps.AuctionHandler.RestrictBidder)
			pr.Delete("/auctions/{auctionId}/restricted/{userId}", deps.AuctionHandler.UnrestrictBidder)
			pr.Post("/auctions/{auctionId}/winner", deps.AuctionHandler.DeclareWinner)
			pr.Get("/auctions/{auctionId}/highest-bid", deps.AuctionHandler.HighestBid)
			pr.Get("/auctions/{auctionId}/bids", deps.AuctionHandler.Bidders)
			pr.Post("/auctions/{auctionId}/bids", deps.BidHandler.PlaceBid)

			pr.Route("/dashboard", func(dr chi.Router) {
				dr.Get("/selling/active", deps.AuctionHandler.SellingActive)
				dr.Get("/selling/sold", deps.AuctionHandler.SellingSold)
				dr.Get("/bidding", deps.AuctionHandler.Bidding)
				dr.Get("/won", deps.AuctionHandler.Won)
			})

			pr.Route("/bids", func(br chi.Router) {
				br.Get("/mine", deps.BidHandler.ListMine)
				br.Delete("/{bidId}", deps.BidHandler.DeleteBid)
			})

			pr.Route("/notifications", func(nr chi.Router) {
				nr.Get("/", deps.NotificationHandler.List)
				nr.Get("/unread", deps.NotificationHandler.Unread)
				nr.Get("/unread/count", deps.NotificationHandler.UnreadCount)
				nr.Patch("/read-all", deps.NotificationHandler.MarkAllRead)
				nr.Patch("/{notificationId}/read", deps.NotificationHandler.MarkRead)
				nr.Delete("/{notificationId}", deps.NotificationHandler.Delete)
			})
		})
	})

	return mux
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	handlers.RespondSuccessJSON(w, r, http.StatusOK, "ok", map[string]any{
		"time": time.Now().Format(time.RFC3339),
	})
}

// readyCheck fails with 503 while the database or Redis is unreachable.
func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Dependencies.Ready(ctx); err != nil {
		s.log.Warn("[SERVER] not ready -> ", zap.Error(err))
		handlers.RespondErrorJSON(w, r, http.StatusServiceUnavailable, "NOT_READY", err.Error(), nil)
		return
	}
	handlers.RespondSuccessJSON[any](w, r, http.StatusOK, "ready", nil)
}
