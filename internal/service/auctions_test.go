package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sidbot007/StudentBidz/internal/model"
)

func TestCreateAuction(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")

	tests := []struct {
		name string
		req  model.CreateAuctionRequest
		want error
	}{
		{
			name: "blank title",
			req:  model.CreateAuctionRequest{Title: "  ", StartingPrice: dec(10), EndTime: epoch.Add(time.Hour)},
			want: ErrValidation,
		},
		{
			name: "zero price",
			req:  model.CreateAuctionRequest{Title: "Desk lamp", StartingPrice: dec(0), EndTime: epoch.Add(time.Hour)},
			want: ErrInvalidPrice,
		},
		{
			name: "end time in the past",
			req:  model.CreateAuctionRequest{Title: "Desk lamp", StartingPrice: dec(10), EndTime: epoch.Add(-time.Minute)},
			want: ErrEndTimeNotFuture,
		},
		{
			name: "sub-cent price",
			req:  model.CreateAuctionRequest{Title: "Desk lamp", StartingPrice: decimal.RequireFromString("10.001"), EndTime: epoch.Add(time.Hour)},
			want: ErrAmountPrecision,
		},
		{
			name: "price wider than the column",
			req:  model.CreateAuctionRequest{Title: "Desk lamp", StartingPrice: decimal.RequireFromString("10000000000"), EndTime: epoch.Add(time.Hour)},
			want: ErrAmountTooLarge,
		},
		{
			name: "unknown type",
			req:  model.CreateAuctionRequest{Title: "Desk lamp", StartingPrice: dec(10), EndTime: epoch.Add(time.Hour), Type: "FURNITURE"},
			want: ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auctions.CreateAuction(f.ctx, seller, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("created", func(t *testing.T) {
		a, err := f.auctions.CreateAuction(f.ctx, seller, model.CreateAuctionRequest{
			Title:         " Desk lamp ",
			StartingPrice: dec(10),
			EndTime:       epoch.Add(time.Hour),
			Type:          "electronics",
		})
		require.NoError(t, err)
		assert.Equal(t, "Desk lamp", a.Title)
		assert.Equal(t, model.AuctionActive, a.Status)
		assert.Equal(t, model.TypeElectronics, a.Type)
		assert.True(t, a.OriginalStartingPrice.Equal(a.StartingPrice))
		assert.Nil(t, a.WinnerID)
	})
}

func TestGetAuction_Details(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	a := f.auction(t, seller, 10, time.Hour)

	d, err := f.auctions.GetAuction(f.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, d.CurrentBid.Equal(dec(10)))
	assert.Zero(t, d.BidCount)
	assert.Nil(t, d.SecondHighestBid)

	f.mustBid(t, a.ID, alice, 15)
	f.mustBid(t, a.ID, bob, 20)
	require.NoError(t, f.bids.DeclareWinner(f.ctx, a.ID, bob, seller))

	d, err = f.auctions.GetAuction(f.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, d.CurrentBid.Equal(dec(20)))
	assert.Equal(t, 2, d.BidCount)
	require.NotNil(t, d.SecondHighestBid)
	assert.True(t, d.SecondHighestBid.Equal(dec(15)))

	_, err = f.auctions.GetAuction(f.ctx, uuid.New())
	require.ErrorIs(t, err, ErrAuctionNotFound)
}

func TestListActive(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")

	late := f.auction(t, seller, 10, 3*time.Hour)
	early := f.auction(t, seller, 10, time.Hour)
	lamp, err := f.auctions.CreateAuction(f.ctx, seller, model.CreateAuctionRequest{
		Title:         "Desk lamp",
		StartingPrice: dec(5),
		EndTime:       epoch.Add(2 * time.Hour),
		Type:          "ELECTRONICS",
	})
	require.NoError(t, err)
	sold := f.auction(t, seller, 10, 30*time.Minute)
	require.NoError(t, f.bids.DeclareWinner(f.ctx, sold.ID, seller, seller))

	all, err := f.auctions.ListActive(f.ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{early.ID, lamp.ID, late.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	books, err := f.auctions.ListActive(f.ctx, "books")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, early.ID, books[0].ID)

	_, err = f.auctions.ListActive(f.ctx, "FURNITURE")
	require.ErrorIs(t, err, ErrValidation)

	mine, err := f.auctions.ListBySeller(f.ctx, seller, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 4)
}

func TestDashboardLists(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	won := f.auction(t, seller, 10, time.Hour)
	open := f.auction(t, seller, 10, 2*time.Hour)
	f.auction(t, seller, 10, 3*time.Hour)

	f.mustBid(t, won.ID, alice, 15)
	f.mustBid(t, won.ID, bob, 20)
	f.mustBid(t, open.ID, alice, 12)
	require.NoError(t, f.bids.DeclareWinner(f.ctx, won.ID, bob, seller))

	active, sold := model.AuctionActive, model.AuctionSold
	selling, err := f.auctions.ListBySeller(f.ctx, seller, &active)
	require.NoError(t, err)
	assert.Len(t, selling, 2)

	soldList, err := f.auctions.ListBySeller(f.ctx, seller, &sold)
	require.NoError(t, err)
	require.Len(t, soldList, 1)
	assert.Equal(t, won.ID, soldList[0].ID)
	require.NotNil(t, soldList[0].SecondHighestBid)
	assert.True(t, soldList[0].SecondHighestBid.Equal(dec(15)))

	bobWon, err := f.auctions.ListWon(f.ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobWon, 1)
	assert.Equal(t, won.ID, bobWon[0].ID)
	assert.True(t, bobWon[0].CurrentBid.Equal(dec(20)))

	aliceWon, err := f.auctions.ListWon(f.ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, aliceWon)

	bidding, err := f.auctions.ListBidding(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, bidding, 2)
	assert.Equal(t, []uuid.UUID{won.ID, open.ID}, []uuid.UUID{bidding[0].ID, bidding[1].ID})

	// withdrawing the only bid drops the auction from the list
	bids, err := f.bids.BidsByUser(f.ctx, alice)
	require.NoError(t, err)
	for _, b := range bids {
		if b.AuctionID == open.ID {
			require.NoError(t, f.bids.DeleteBid(f.ctx, b.ID, alice))
		}
	}
	bidding, err = f.auctions.ListBidding(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, bidding, 1)
	assert.Equal(t, won.ID, bidding[0].ID)

	none, err := f.auctions.ListBidding(f.ctx, seller)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteAuction(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")
	alice := f.user(t, "alice")
	a := f.auction(t, seller, 10, time.Hour)
	b := f.mustBid(t, a.ID, alice, 15)

	require.ErrorIs(t, f.auctions.DeleteAuction(f.ctx, a.ID, alice), ErrNotSeller)
	require.NoError(t, f.auctions.DeleteAuction(f.ctx, a.ID, seller))

	_, err := f.auctions.GetAuction(f.ctx, a.ID)
	require.ErrorIs(t, err, ErrAuctionNotFound)
	_, err = f.store.GetBid(f.ctx, b.ID)
	require.Error(t, err)

	require.ErrorIs(t, f.auctions.DeleteAuction(f.ctx, a.ID, seller), ErrAuctionNotFound)
}

func TestRelist_KeepsRunnerUp(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")
	a := f.auction(t, seller, 40, time.Hour)

	f.mustBid(t, a.ID, carol, 50)
	runnerUp := f.mustBid(t, a.ID, bob, 80)
	f.mustBid(t, a.ID, alice, 100)
	require.NoError(t, f.bids.DeclareWinner(f.ctx, a.ID, alice, seller))

	newEnd := f.clock.Now().Add(2 * time.Hour)
	got, err := f.auctions.Relist(f.ctx, a.ID, newEnd, seller)
	require.NoError(t, err)

	assert.True(t, got.StartingPrice.Equal(dec(80)))
	assert.True(t, got.OriginalStartingPrice.Equal(dec(40)))
	assert.Equal(t, model.AuctionActive, got.Status)
	assert.Nil(t, got.WinnerID)
	assert.True(t, got.EndTime.Equal(newEnd))

	bids := f.liveBids(t, a.ID)
	require.Len(t, bids, 1)
	assert.Equal(t, runnerUp.ID, bids[0].ID)

	assert.Len(t, f.notes(t, bob, model.NotificationProductRelisted), 1)
	assert.Empty(t, f.notes(t, alice, model.NotificationProductRelisted))
	assert.Empty(t, f.notes(t, carol, model.NotificationProductRelisted))

	relists := f.events.onTopic(model.RelistTopic(a.ID))
	require.Len(t, relists, 1)
	ev, ok := relists[0].(model.RelistEvent)
	require.True(t, ok)
	assert.True(t, ev.NewEndTime.Equal(newEnd))
}

func TestRelist_SingleBidResetsToOriginalPrice(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	a := f.auction(t, seller, 40, time.Hour)

	f.mustBid(t, a.ID, alice, 50)
	f.mustBid(t, a.ID, bob, 80)
	require.NoError(t, f.bids.DeclareWinner(f.ctx, a.ID, bob, seller))
	first, err := f.auctions.Relist(f.ctx, a.ID, f.clock.Now().Add(time.Hour), seller)
	require.NoError(t, err)
	require.True(t, first.StartingPrice.Equal(dec(50)))

	// only alice's carried-over bid is left
	require.NoError(t, f.bids.DeclareWinner(f.ctx, a.ID, alice, seller))
	second, err := f.auctions.Relist(f.ctx, a.ID, f.clock.Now().Add(time.Hour), seller)
	require.NoError(t, err)

	assert.True(t, second.StartingPrice.Equal(dec(40)))
	assert.Empty(t, f.liveBids(t, a.ID))
	assert.Len(t, f.notes(t, alice, model.NotificationProductRelisted), 1)
}

func TestRelist_NoBidsKeepsPrice(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")
	alice := f.user(t, "alice")
	a := f.auction(t, seller, 40, time.Hour)
	require.NoError(t, f.bids.DeclareWinner(f.ctx, a.ID, alice, seller))

	got, err := f.auctions.Relist(f.ctx, a.ID, f.clock.Now().Add(time.Hour), seller)
	require.NoError(t, err)
	assert.True(t, got.StartingPrice.Equal(dec(40)))
	assert.Equal(t, model.AuctionActive, got.Status)
}

func TestRelist_Rejections(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")
	alice := f.user(t, "alice")
	a := f.auction(t, seller, 40, time.Hour)
	future := f.clock.Now().Add(2 * time.Hour)

	_, err := f.auctions.Relist(f.ctx, a.ID, future, seller)
	require.ErrorIs(t, err, ErrAuctionNotSold)
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, f.bids.DeclareWinner(f.ctx, a.ID, alice, seller))

	_, err = f.auctions.Relist(f.ctx, a.ID, future, alice)
	require.ErrorIs(t, err, ErrNotSeller)

	_, err = f.auctions.Relist(f.ctx, a.ID, f.clock.Now(), seller)
	require.ErrorIs(t, err, ErrEndTimeNotFuture)

	_, err = f.auctions.Relist(f.ctx, uuid.New(), future, seller)
	require.ErrorIs(t, err, ErrAuctionNotFound)

	assert.Equal(t, model.AuctionSold, f.reload(t, a.ID).Status)
}

func TestUpdateAuctionTime(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	a := f.auction(t, seller, 10, time.Hour)
	f.mustBid(t, a.ID, alice, 15)
	f.mustBid(t, a.ID, bob, 20)

	newEnd := f.clock.Now().Add(3 * time.Hour)
	got, err := f.auctions.UpdateAuctionTime(f.ctx, a.ID, newEnd, "exam week", seller)
	require.NoError(t, err)
	assert.True(t, got.EndTime.Equal(newEnd))
	assert.True(t, f.reload(t, a.ID).EndTime.Equal(newEnd))

	for _, bidder := range []uuid.UUID{alice, bob} {
		updated := f.notes(t, bidder, model.NotificationTimeUpdated)
		require.Len(t, updated, 1)
		assert.Contains(t, updated[0].Body, "exam week")
	}

	updates := f.events.onTopic(model.TimeUpdateTopic(a.ID))
	require.Len(t, updates, 1)
	ev, ok := updates[0].(model.TimeUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, "exam week", ev.Reason)

	t.Run("rejections", func(t *testing.T) {
		_, err := f.auctions.UpdateAuctionTime(f.ctx, a.ID, newEnd, "", alice)
		require.ErrorIs(t, err, ErrNotSeller)

		_, err = f.auctions.UpdateAuctionTime(f.ctx, a.ID, f.clock.Now().Add(-time.Second), "", seller)
		require.ErrorIs(t, err, ErrEndTimeNotFuture)

		require.NoError(t, f.bids.DeclareWinner(f.ctx, a.ID, bob, seller))
		_, err = f.auctions.UpdateAuctionTime(f.ctx, a.ID, newEnd, "", seller)
		require.ErrorIs(t, err, ErrAuctionNotActive)
	})
}

func TestRestrictBidder(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller")
	alice := f.user(t, "alice")
	a := f.auction(t, seller, 10, time.Hour)
	f.mustBid(t, a.ID, alice, 15)

	require.NoError(t, f.auctions.RestrictBidder(f.ctx, a.ID, alice, seller))
	require.NoError(t, f.auctions.RestrictBidder(f.ctx, a.ID, alice, seller))
	assert.Equal(t, []uuid.UUID{alice}, f.reload(t, a.ID).RestrictedBidders)

	// the existing bid stays
	assert.Len(t, f.liveBids(t, a.ID), 1)
	_, err := f.bid(a.ID, alice, 20)
	require.ErrorIs(t, err, ErrBidderRestricted)

	require.NoError(t, f.auctions.UnrestrictBidder(f.ctx, a.ID, alice, seller))
	require.NoError(t, f.auctions.UnrestrictBidder(f.ctx, a.ID, alice, seller))
	assert.Empty(t, f.reload(t, a.ID).RestrictedBidders)
	_, err = f.bid(a.ID, alice, 20)
	require.NoError(t, err)

	t.Run("rejections", func(t *testing.T) {
		require.ErrorIs(t, f.auctions.RestrictBidder(f.ctx, a.ID, alice, alice), ErrNotSeller)
		require.ErrorIs(t, f.auctions.RestrictBidder(f.ctx, a.ID, seller, seller), ErrRestrictSeller)
		require.ErrorIs(t, f.auctions.RestrictBidder(f.ctx, a.ID, uuid.New(), seller), ErrUserNotFound)
		require.ErrorIs(t, f.auctions.RestrictBidder(f.ctx, uuid.New(), alice, seller), ErrAuctionNotFound)
	})
}
