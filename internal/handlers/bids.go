package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/model"
	"github.com/Sidbot007/StudentBidz/internal/service"
)

const bidParamKey string = "bidId"

type BidHandler struct {
	bids service.BidServicer
	log  *zap.Logger
	now  service.Clock
}

func NewBidHandler(bids service.BidServicer, log *zap.Logger, now service.Clock) (*BidHandler, error) {
	if bids == nil {
		return nil, errors.New("bid handler needs a bid service")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &BidHandler{bids: bids, log: log, now: now}, nil
}

// PlaceBid godoc
//
//	@Summary		Place a bid
//	@Description	Places or replaces the caller's bid on an active auction
//	@Tags			Bids
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string					true	"Auction ID"
//	@Param			bid			body		model.PlaceBidRequest	true	"Bid amount"
//	@Success		201			{object}	map[string]any
//	@Failure		400			{object}	map[string]any
//	@Failure		403			{object}	map[string]any
//	@Failure		409			{object}	map[string]any
//	@Failure		422			{object}	map[string]any
//	@Failure		429			{object}	map[string]any
//	@Router			/auctions/{auctionId}/bids [post]
func (h *BidHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := uuidParam(w, r, auctionParamKey)
	if !ok {
		return
	}
	var req model.PlaceBidRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	bidderID, ok := callerID(w, r)
	if !ok {
		return
	}

	bid, err := h.bids.PlaceBid(r.Context(), auctionID, bidderID, req.Amount, h.now())
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusCreated, "Bid placed successfully", bid)
}

// DeleteBid withdraws the caller's bid.
func (h *BidHandler) DeleteBid(w http.ResponseWriter, r *http.Request) {
	bidID, ok := uuidParam(w, r, bidParamKey)
	if !ok {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.bids.DeleteBid(r.Context(), bidID, caller); err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON[any](w, r, http.StatusOK, "Bid deleted successfully", nil)
}

func (h *BidHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	bids, err := h.bids.BidsByUser(r.Context(), caller)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Bids fetched successfully", bids)
}
