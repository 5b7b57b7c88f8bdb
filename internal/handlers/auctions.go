package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/model"
	"github.com/Sidbot007/StudentBidz/internal/service"
)

const (
	auctionParamKey string = "auctionId"
	userParamKey    string = "userId"
)

type AuctionHandler struct {
	auctions service.AuctionServicer
	bids     service.BidServicer
	log      *zap.Logger
}

func NewAuctionHandler(auctions service.AuctionServicer, bids service.BidServicer, log *zap.Logger) (*AuctionHandler, error) {
	if auctions == nil || bids == nil {
		return nil, errors.New("auction handler needs auction and bid services")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuctionHandler{auctions: auctions, bids: bids, log: log}, nil
}

// CreateAuction godoc
//
//	@Summary		Create a new auction
//	@Description	List an item for auction. The caller becomes the seller.
//	@Tags			Auctions
//	@Accept			json
//	@Produce		json
//	@Param			auction	body		model.CreateAuctionRequest	true	"Auction details"
//	@Success		201		{object}	map[string]any
//	@Failure		400		{object}	map[string]any
//	@Failure		401		{object}	map[string]any
//	@Failure		422		{object}	map[string]any
//	@Router			/auctions [post]
func (h *AuctionHandler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAuctionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sellerID, ok := callerID(w, r)
	if !ok {
		return
	}

	auction, err := h.auctions.CreateAuction(r.Context(), sellerID, req)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	RespondSuccessJSON(w, r, http.StatusCreated, "Auction created successfully", auction)
}

// ListActive godoc
//
//	@Summary		List active auctions
//	@Description	Active auctions ending soonest first, optionally filtered by type
//	@Tags			Auctions
//	@Produce		json
//	@Param			type	query		string	false	"Auction type"
//	@Success		200		{object}	map[string]any
//	@Router			/auctions [get]
func (h *AuctionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	auctions, err := h.auctions.ListActive(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Auctions fetched successfully", auctions)
}

// ListMine returns every auction the caller is selling, in any status.
func (h *AuctionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := callerID(w, r)
	if !ok {
		return
	}
	auctions, err := h.auctions.ListBySeller(r.Context(), sellerID, nil)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Auctions fetched successfully", auctions)
}

// GetAuction godoc
//
//	@Summary	Get an auction
//	@Tags		Auctions
//	@Produce	json
//	@Param		auctionId	path		string	true	"Auction ID"
//	@Success	200			{object}	map[string]any
//	@Failure	404			{object}	map[string]any
//	@Router		/auctions/{auctionId} [get]
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, auctionParamKey)
	if !ok {
		return
	}
	auction, err := h.auctions.GetAuction(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Auction fetched successfully", auction)
}

func (h *AuctionHandler) DeleteAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, auctionParamKey)
	if !ok {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.auctions.DeleteAuction(r.Context(), id, caller); err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON[any](w, r, http.StatusOK, "Auction deleted successfully", nil)
}

// Relist godoc
//
//	@Summary		Relist a sold auction
//	@Description	Drops the winning bid and reopens the auction with a new end time
//	@Tags			Auctions
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string					true	"Auction ID"
//	@Param			body		body		model.RelistRequest		true	"New end time"
//	@Success		200			{object}	map[string]any
//	@Failure		403			{object}	map[string]any
//	@Failure		409			{object}	map[string]any
//	@Router			/auctions/{auctionId}/relist [post]
func (h *AuctionHandler) Relist(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, auctionParamKey)
	if !ok {
		return
	}
	var req model.RelistRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	auction, err := h.auctions.Relist(r.Context(), id, req.NewEndTime, caller)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Auction relisted successfully", auction)
}

func (h *AuctionHandler) UpdateEndTime(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, auctionParamKey)
	if !ok {
		return
	}
	var req model.UpdateTimeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	auction, err := h.auctions.UpdateAuctionTime(r.Context(), id, req.NewEndTime, req.Reason, caller)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Auction time updated successfully", auction)
}

func (h *AuctionHandler) RestrictBidder(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, auctionParamKey)
	if !ok {
		return
	}
	var req model.RestrictRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.auctions.RestrictBidder(r.Context(), id, req.UserID, caller); err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON[any](w, r, http.StatusOK, "Bidder restricted", nil)
}

func (h *AuctionHandler) UnrestrictBidder(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, auctionParamKey)
	if !ok {
		return
	}
	userID, ok := uuidParam(w, r, userParamKey)
	if !ok {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.auctions.UnrestrictBidder(r.Context(), id, userID, caller); err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON[any](w, r, http.StatusOK, "Bidder unrestricted", nil)
}

// DeclareWinner godoc
//
//	@Summary		Declare a winner
//	@Description	Seller closes the auction early and picks the winning bidder
//	@Tags			Auctions
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string						true	"Auction ID"
//	@Param			body		body		model.DeclareWinnerRequest	true	"Winning bidder"
//	@Success		200			{object}	map[string]any
//	@Failure		403			{object}	map[string]any
//	@Failure		409			{object}	map[string]any
//	@Router			/auctions/{auctionId}/winner [post]
func (h *AuctionHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, auctionParamKey)
	if !ok {
		return
	}
	var req model.DeclareWinnerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.bids.DeclareWinner(r.Context(), id, req.BidderID, caller); err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON[any](w, r, http.StatusOK, "Winner declared", nil)
}

// HighestBid is the seller's view of the current top bid. Data is omitted
// when nobody has bid yet.
func (h *AuctionHandler) HighestBid(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, auctionParamKey)
	if !ok {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	bid, found, err := h.bids.GetHighestBid(r.Context(), id, caller)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	if !found {
		RespondSuccessJSON[*model.Bid](w, r, http.StatusOK, "No bids yet", nil)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Highest bid fetched successfully", &bid)
}

func (h *AuctionHandler) Bidders(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, auctionParamKey)
	if !ok {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	bids, err := h.bids.BiddersForAuction(r.Context(), id, caller)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Bids fetched successfully", bids)
}
