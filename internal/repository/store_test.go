package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sidbot007/StudentBidz/internal/model"
)

// runStoreContract exercises behaviour every AuctionStore must share.
// newStore returns an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) AuctionStore) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("auctions", func(t *testing.T) { testAuctions(t, newStore(t)) })
	t.Run("auctions by status", func(t *testing.T) { testAuctionsByStatus(t, newStore(t)) })
	t.Run("transaction commit and rollback", func(t *testing.T) { testWithAuction(t, newStore(t)) })
	t.Run("bid replacement and history", func(t *testing.T) { testBidHistory(t, newStore(t)) })
	t.Run("delete bids except", func(t *testing.T) { testDeleteBidsExcept(t, newStore(t)) })
	t.Run("delete auction cascades", func(t *testing.T) { testDeleteAuction(t, newStore(t)) })
	t.Run("notifications", func(t *testing.T) { testNotifications(t, newStore(t)) })
	t.Run("serialized transactions", func(t *testing.T) { testSerializedTransactions(t, newStore(t)) })
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s AuctionStore, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, s.CreateUser(context.Background(), model.User{ID: id, Username: name, CreatedAt: base}))
	return id
}

func seedAuction(t *testing.T, s AuctionStore, seller uuid.UUID, endsIn time.Duration) model.Auction {
	t.Helper()
	a := model.Auction{
		ID:                    uuid.New(),
		Title:                 "Graphing calculator",
		StartingPrice:         decimal.NewFromInt(10),
		OriginalStartingPrice: decimal.NewFromInt(10),
		EndTime:               base.Add(endsIn),
		SellerID:              seller,
		Status:                model.AuctionActive,
		Type:                  model.TypeElectronics,
		RestrictedBidders:     []uuid.UUID{},
		CreatedAt:             base,
	}
	require.NoError(t, s.CreateAuction(context.Background(), a))
	return a
}

func putBid(t *testing.T, s AuctionStore, auctionID, bidder uuid.UUID, amount int64, at time.Time) model.Bid {
	t.Helper()
	b := model.Bid{ID: uuid.New(), AuctionID: auctionID, BidderID: bidder, Amount: decimal.NewFromInt(amount), Timestamp: at}
	err := s.WithAuction(context.Background(), auctionID, func(tx AuctionTx) error {
		return tx.PutBid(context.Background(), b)
	})
	require.NoError(t, err)
	return b
}

func testUsers(t *testing.T, s AuctionStore) {
	ctx := context.Background()
	id := seedUser(t, s, "alice")

	u, err := s.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	// upsert on the id
	require.NoError(t, s.CreateUser(ctx, model.User{ID: id, Username: "alice2", CreatedAt: base}))
	u, err = s.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)

	_, err = s.GetUser(ctx, uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func testAuctions(t *testing.T, s AuctionStore) {
	ctx := context.Background()
	seller := seedUser(t, s, "seller")
	other := seedUser(t, s, "other")
	a := seedAuction(t, s, seller, time.Hour)

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)
	assert.True(t, got.StartingPrice.Equal(a.StartingPrice))
	assert.True(t, got.EndTime.Equal(a.EndTime))
	assert.Equal(t, model.AuctionActive, got.Status)
	assert.Nil(t, got.WinnerID)
	assert.Empty(t, got.RestrictedBidders)

	require.ErrorIs(t, s.CreateAuction(ctx, a), ErrAuctionExists)

	_, err = s.GetAuction(ctx, uuid.New())
	require.ErrorIs(t, err, ErrAuctionNotFound)

	err = s.WithAuction(ctx, a.ID, func(tx AuctionTx) error {
		cur := tx.Auction()
		cur.Restrict(other)
		cur.MarkSold(other)
		return tx.UpdateAuction(ctx, cur)
	})
	require.NoError(t, err)

	got, err = s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{other}, got.RestrictedBidders)
	assert.Equal(t, model.AuctionSold, got.Status)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, other, *got.WinnerID)

	mine, err := s.AuctionsBySeller(ctx, seller, nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	active, sold := model.AuctionActive, model.AuctionSold
	mine, err = s.AuctionsBySeller(ctx, seller, &active)
	require.NoError(t, err)
	assert.Empty(t, mine)
	mine, err = s.AuctionsBySeller(ctx, seller, &sold)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	won, err := s.AuctionsByWinner(ctx, other)
	require.NoError(t, err)
	require.Len(t, won, 1)
	assert.Equal(t, a.ID, won[0].ID)
	won, err = s.AuctionsByWinner(ctx, seller)
	require.NoError(t, err)
	assert.Empty(t, won)
}

func testAuctionsByStatus(t *testing.T, s AuctionStore) {
	ctx := context.Background()
	seller := seedUser(t, s, "seller")
	soon := seedAuction(t, s, seller, 30*time.Minute)
	later := seedAuction(t, s, seller, 2*time.Hour)
	past := seedAuction(t, s, seller, -time.Minute)

	all, err := s.AuctionsByStatus(ctx, model.AuctionActive, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{past.ID, soon.ID, later.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	// from is inclusive and to exclusive
	window, err := s.AuctionsByStatus(ctx, model.AuctionActive, soon.EndTime, later.EndTime)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, soon.ID, window[0].ID)

	expired, err := s.AuctionsByStatus(ctx, model.AuctionActive, time.Time{}, base)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, past.ID, expired[0].ID)

	ended, err := s.AuctionsByStatus(ctx, model.AuctionEnded, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, ended)
}

var errAbort = errors.New("abort")

func testWithAuction(t *testing.T, s AuctionStore) {
	ctx := context.Background()
	seller := seedUser(t, s, "seller")
	bidder := seedUser(t, s, "bidder")
	a := seedAuction(t, s, seller, time.Hour)

	err := s.WithAuction(ctx, a.ID, func(tx AuctionTx) error {
		cur := tx.Auction()
		cur.EndTime = cur.EndTime.Add(2 * time.Minute)
		if err := tx.UpdateAuction(ctx, cur); err != nil {
			return err
		}
		err := tx.PutBid(ctx, model.Bid{ID: uuid.New(), AuctionID: a.ID, BidderID: bidder, Amount: decimal.NewFromInt(15), Timestamp: base})
		if err != nil {
			return err
		}
		top, ok, err := tx.HighestBid(ctx)
		require.NoError(t, err)
		require.True(t, ok, "staged bids are visible inside the transaction")
		assert.Equal(t, bidder, top.BidderID)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.EndTime.Equal(a.EndTime))
	_, ok, err := s.HighestBid(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.WithAuction(ctx, uuid.New(), func(AuctionTx) error { return nil })
	require.ErrorIs(t, err, ErrAuctionNotFound)

	b := putBid(t, s, a.ID, bidder, 15, base)
	top, ok, err := s.HighestBid(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b.ID, top.ID)
	assert.True(t, top.Amount.Equal(decimal.NewFromInt(15)))
}

func testBidHistory(t *testing.T, s AuctionStore) {
	ctx := context.Background()
	seller := seedUser(t, s, "seller")
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	a := seedAuction(t, s, seller, time.Hour)
	other := seedAuction(t, s, seller, time.Hour)

	putBid(t, s, a.ID, alice, 15, base)
	putBid(t, s, a.ID, bob, 20, base.Add(time.Minute))
	latest := putBid(t, s, a.ID, alice, 25, base.Add(2*time.Minute))
	putBid(t, s, other.ID, alice, 15, base.Add(3*time.Minute))

	bids, err := s.BidsByAmountDesc(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, latest.ID, bids[0].ID)
	assert.Equal(t, bob, bids[1].BidderID)

	mine, err := s.BidsByBidder(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	bidOn, err := s.AuctionsByBidder(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, bidOn, 2)
	bidOn, err = s.AuctionsByBidder(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bidOn, 1)
	assert.Equal(t, a.ID, bidOn[0].ID)
	bidOn, err = s.AuctionsByBidder(ctx, seller)
	require.NoError(t, err)
	assert.Empty(t, bidOn)

	got, err := s.GetBid(ctx, latest.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, got.BidderID)
	_, err = s.GetBid(ctx, uuid.New())
	require.ErrorIs(t, err, ErrBidNotFound)

	err = s.WithAuction(ctx, a.ID, func(tx AuctionTx) error {
		require.NoError(t, tx.LockBidder(ctx, alice))

		last, ok, err := tx.LastBidAt(ctx, alice)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, last.Equal(base.Add(2*time.Minute)))

		// replaced bids still count
		n, err := tx.CountAuctionBidsSince(ctx, alice, base)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = tx.CountBidsSince(ctx, alice, base)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = tx.CountBidsSince(ctx, alice, base.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		u, err := tx.GetUser(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, "bob", u.Username)
		_, err = tx.GetUser(ctx, uuid.New())
		require.ErrorIs(t, err, ErrUserNotFound)

		_, ok, err = tx.LastBidAt(ctx, seller)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func testDeleteBidsExcept(t *testing.T, s AuctionStore) {
	ctx := context.Background()
	seller := seedUser(t, s, "seller")
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	carol := seedUser(t, s, "carol")
	a := seedAuction(t, s, seller, time.Hour)

	putBid(t, s, a.ID, carol, 50, base)
	keep := putBid(t, s, a.ID, bob, 80, base.Add(time.Second))
	putBid(t, s, a.ID, alice, 100, base.Add(2*time.Second))

	err := s.WithAuction(ctx, a.ID, func(tx AuctionTx) error {
		return tx.DeleteBidsExcept(ctx, keep.ID)
	})
	require.NoError(t, err)

	bids, err := s.BidsByAmountDesc(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, keep.ID, bids[0].ID)

	err = s.WithAuction(ctx, a.ID, func(tx AuctionTx) error {
		return tx.DeleteBidsExcept(ctx, uuid.Nil)
	})
	require.NoError(t, err)
	bids, err = s.BidsByAmountDesc(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, bids)

	err = s.WithAuction(ctx, a.ID, func(tx AuctionTx) error {
		return tx.DeleteBid(ctx, keep.ID)
	})
	require.ErrorIs(t, err, ErrBidNotFound)
}

func testDeleteAuction(t *testing.T, s AuctionStore) {
	ctx := context.Background()
	seller := seedUser(t, s, "seller")
	alice := seedUser(t, s, "alice")
	a := seedAuction(t, s, seller, time.Hour)
	b := putBid(t, s, a.ID, alice, 15, base)

	require.NoError(t, s.DeleteAuction(ctx, a.ID))

	_, err := s.GetAuction(ctx, a.ID)
	require.ErrorIs(t, err, ErrAuctionNotFound)
	_, err = s.GetBid(ctx, b.ID)
	require.ErrorIs(t, err, ErrBidNotFound)
	require.ErrorIs(t, s.DeleteAuction(ctx, a.ID), ErrAuctionNotFound)
}

func testNotifications(t *testing.T, s AuctionStore) {
	ctx := context.Background()
	seller := seedUser(t, s, "seller")
	alice := seedUser(t, s, "alice")
	a := seedAuction(t, s, seller, time.Hour)

	msg := model.AuctionEndingMessage{AuctionTitle: a.Title, CurrentBid: decimal.NewFromInt(15)}
	tagged := model.NewNotification(alice, a, msg, base).WithDedupTag(model.EndingSoonTag)

	created, err := s.CreateNotificationOnce(ctx, tagged)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.CreateNotificationOnce(ctx, model.NewNotification(alice, a, msg, base).WithDedupTag(model.EndingSoonTag))
	require.NoError(t, err)
	assert.False(t, created)

	// untagged notifications never collide
	for range 2 {
		created, err = s.CreateNotificationOnce(ctx, model.NewNotification(alice, a, msg, base))
		require.NoError(t, err)
		assert.True(t, created)
	}
	newest := model.NewNotification(alice, a, model.RelistedMessage{AuctionTitle: a.Title}, base.Add(time.Minute))
	require.NoError(t, s.CreateNotification(ctx, newest))

	got, err := s.GetNotification(ctx, tagged.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationAuctionEnding, got.Type)
	assert.Equal(t, model.NotificationUnread, got.Status)
	assert.Equal(t, model.EndingSoonTag, got.Tag())
	require.NotNil(t, got.AuctionID)
	assert.Equal(t, a.ID, *got.AuctionID)

	all, err := s.NotificationsByUser(ctx, alice, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, newest.ID, all[0].ID)

	require.NoError(t, s.MarkNotificationRead(ctx, newest.ID))
	unread := model.NotificationUnread
	list, err := s.NotificationsByUser(ctx, alice, &unread)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	n, err := s.CountNotifications(ctx, alice, model.NotificationRead)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.MarkAllNotificationsRead(ctx, alice))
	n, err = s.CountNotifications(ctx, alice, model.NotificationUnread)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.DeleteNotification(ctx, tagged.ID))
	created, err = s.CreateNotificationOnce(ctx, model.NewNotification(alice, a, msg, base).WithDedupTag(model.EndingSoonTag))
	require.NoError(t, err)
	assert.True(t, created, "deleting a notification frees its dedup key")

	require.ErrorIs(t, s.DeleteNotification(ctx, tagged.ID), ErrNotificationNotFound)
	require.ErrorIs(t, s.MarkNotificationRead(ctx, uuid.New()), ErrNotificationNotFound)
	_, err = s.GetNotification(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotificationNotFound)
}

func testSerializedTransactions(t *testing.T, s AuctionStore) {
	ctx := context.Background()
	seller := seedUser(t, s, "seller")
	a := seedAuction(t, s, seller, time.Hour)

	const workers = 10
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithAuction(ctx, a.ID, func(tx AuctionTx) error {
				cur := tx.Auction()
				cur.EndTime = cur.EndTime.Add(time.Minute)
				return tx.UpdateAuction(ctx, cur)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.EndTime.Equal(a.EndTime.Add(workers*time.Minute)), "no update was lost")
}
