package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Sidbot007/StudentBidz/internal/model"
)

// SellingActive godoc
//
//	@Summary	Caller's active listings
//	@Tags		Dashboard
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	401	{object}	map[string]any
//	@Router		/dashboard/selling/active [get]
func (h *AuctionHandler) SellingActive(w http.ResponseWriter, r *http.Request) {
	h.selling(w, r, model.AuctionActive)
}

// SellingSold lists the caller's sold auctions with the runner-up price.
func (h *AuctionHandler) SellingSold(w http.ResponseWriter, r *http.Request) {
	h.selling(w, r, model.AuctionSold)
}

func (h *AuctionHandler) selling(w http.ResponseWriter, r *http.Request, status model.AuctionStatus) {
	h.dashboardList(w, r, func(ctx context.Context, id uuid.UUID) ([]model.AuctionDetails, error) {
		return h.auctions.ListBySeller(ctx, id, &status)
	})
}

// Won godoc
//
//	@Summary	Auctions the caller won
//	@Tags		Dashboard
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	401	{object}	map[string]any
//	@Router		/dashboard/won [get]
func (h *AuctionHandler) Won(w http.ResponseWriter, r *http.Request) {
	h.dashboardList(w, r, h.auctions.ListWon)
}

func (h *AuctionHandler) Bidding(w http.ResponseWriter, r *http.Request) {
	h.dashboardList(w, r, h.auctions.ListBidding)
}

func (h *AuctionHandler) dashboardList(w http.ResponseWriter, r *http.Request, list func(context.Context, uuid.UUID) ([]model.AuctionDetails, error)) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	auctions, err := list(r.Context(), caller)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Auctions fetched successfully", auctions)
}
