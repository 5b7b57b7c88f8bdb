package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sidbot007/StudentBidz/internal/model"
)

type dedupKey struct {
	recipient uuid.UUID
	typ       model.NotificationType
	auction   uuid.UUID
	tag       string
}

type storedNotification struct {
	model.Notification
	seq uint64
}

// MemoryStore is a concurrency-safe in-memory AuctionStore.
// mu guards the maps; auction and bidder mutexes serialize transactions.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]model.User
	auctions      map[uuid.UUID]model.Auction
	bids          map[uuid.UUID]model.Bid // key: bid id
	history       map[uuid.UUID][]model.Bid // key: bidder id -> every accepted bid
	notifications map[uuid.UUID]storedNotification
	dedup         map[dedupKey]uuid.UUID
	seq           uint64

	auctionLocks keyedMutex
	bidderLocks  keyedMutex
}

var _ AuctionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uuid.UUID]model.User),
		auctions:      make(map[uuid.UUID]model.Auction),
		bids:          make(map[uuid.UUID]model.Bid),
		history:       make(map[uuid.UUID][]model.Bid),
		notifications: make(map[uuid.UUID]storedNotification),
		dedup:         make(map[dedupKey]uuid.UUID),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", id, ErrUserNotFound)
	}
	return u, nil
}

func (s *MemoryStore) CreateAuction(_ context.Context, a model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[a.ID]; ok {
		return fmt.Errorf("create auction %s: %w", a.ID, ErrAuctionExists)
	}
	s.auctions[a.ID] = a.Clone()
	return nil
}

func (s *MemoryStore) GetAuction(_ context.Context, id uuid.UUID) (model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auctions[id]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", id, ErrAuctionNotFound)
	}
	return a.Clone(), nil
}

// DeleteAuction waits for in-flight transactions on the auction before removing it.
func (s *MemoryStore) DeleteAuction(_ context.Context, id uuid.UUID) error {
	unlock := s.auctionLocks.lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[id]; !ok {
		return fmt.Errorf("delete auction %s: %w", id, ErrAuctionNotFound)
	}
	delete(s.auctions, id)
	for bidID, b := range s.bids {
		if b.AuctionID == id {
			delete(s.bids, bidID)
		}
	}
	for bidder, hist := range s.history {
		s.history[bidder] = slices.DeleteFunc(hist, func(b model.Bid) bool { return b.AuctionID == id })
	}
	return nil
}

func (s *MemoryStore) AuctionsByStatus(_ context.Context, status model.AuctionStatus, from, to time.Time) ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Auction
	for _, a := range s.auctions {
		if a.Status != status {
			continue
		}
		if !from.IsZero() && a.EndTime.Before(from) {
			continue
		}
		if !to.IsZero() && !a.EndTime.Before(to) {
			continue
		}
		out = append(out, a.Clone())
	}
	sortAuctions(out)
	return out, nil
}

func (s *MemoryStore) AuctionsBySeller(_ context.Context, sellerID uuid.UUID, status *model.AuctionStatus) ([]model.Auction, error) {
	return s.auctionsWhere(func(a model.Auction) bool {
		return a.SellerID == sellerID && (status == nil || a.Status == *status)
	}), nil
}

func (s *MemoryStore) AuctionsByWinner(_ context.Context, winnerID uuid.UUID) ([]model.Auction, error) {
	return s.auctionsWhere(func(a model.Auction) bool {
		return a.WinnerID != nil && *a.WinnerID == winnerID
	}), nil
}

func (s *MemoryStore) AuctionsByBidder(_ context.Context, bidderID uuid.UUID) ([]model.Auction, error) {
	s.mu.RLock()
	bidOn := make(map[uuid.UUID]bool)
	for _, b := range s.bids {
		if b.BidderID == bidderID {
			bidOn[b.AuctionID] = true
		}
	}
	s.mu.RUnlock()
	return s.auctionsWhere(func(a model.Auction) bool { return bidOn[a.ID] }), nil
}

func (s *MemoryStore) auctionsWhere(keep func(model.Auction) bool) []model.Auction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Auction
	for _, a := range s.auctions {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sortAuctions(out)
	return out
}

func (s *MemoryStore) GetBid(_ context.Context, id uuid.UUID) (model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bids[id]
	if !ok {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", id, ErrBidNotFound)
	}
	return b, nil
}

func (s *MemoryStore) HighestBid(ctx context.Context, auctionID uuid.UUID) (model.Bid, bool, error) {
	bids, err := s.BidsByAmountDesc(ctx, auctionID)
	if err != nil || len(bids) == 0 {
		return model.Bid{}, false, err
	}
	return bids[0], true, nil
}

func (s *MemoryStore) BidsByAmountDesc(_ context.Context, auctionID uuid.UUID) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Bid
	for _, b := range s.bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	sortBidsDesc(out)
	return out, nil
}

func (s *MemoryStore) BidsByBidder(_ context.Context, bidderID uuid.UUID) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Bid
	for _, b := range s.bids {
		if b.BidderID == bidderID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(x, y model.Bid) int { return y.Timestamp.Compare(x.Timestamp) })
	return out, nil
}

func (s *MemoryStore) WithAuction(ctx context.Context, auctionID uuid.UUID, fn func(tx AuctionTx) error) error {
	unlock := s.auctionLocks.lock(auctionID)
	defer unlock()

	s.mu.RLock()
	a, ok := s.auctions[auctionID]
	var bids []model.Bid
	for _, b := range s.bids {
		if b.AuctionID == auctionID {
			bids = append(bids, b)
		}
	}
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("lock auction %s: %w", auctionID, ErrAuctionNotFound)
	}

	tx := &memoryTx{store: s, auction: a.Clone(), bids: bids}
	defer tx.releaseBidders()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *MemoryStore) commit(tx *memoryTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := tx.auction.ID
	s.auctions[id] = tx.auction
	for bidID, b := range s.bids {
		if b.AuctionID == id {
			delete(s.bids, bidID)
		}
	}
	for _, b := range tx.bids {
		s.bids[b.ID] = b
	}
	for _, b := range tx.appended {
		s.history[b.BidderID] = append(s.history[b.BidderID], b)
	}
}

func (s *MemoryStore) CreateNotification(_ context.Context, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertNotification(n)
	return nil
}

func (s *MemoryStore) CreateNotificationOnce(_ context.Context, n model.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.DedupTag != nil {
		if _, ok := s.dedup[keyOf(n)]; ok {
			return false, nil
		}
	}
	s.insertNotification(n)
	return true, nil
}

func (s *MemoryStore) insertNotification(n model.Notification) {
	s.seq++
	s.notifications[n.ID] = storedNotification{Notification: n, seq: s.seq}
	if n.DedupTag != nil {
		s.dedup[keyOf(n)] = n.ID
	}
}

func keyOf(n model.Notification) dedupKey {
	k := dedupKey{recipient: n.RecipientID, typ: n.Type, tag: n.Tag()}
	if n.AuctionID != nil {
		k.auction = *n.AuctionID
	}
	return k
}

func (s *MemoryStore) GetNotification(_ context.Context, id uuid.UUID) (model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return model.Notification{}, fmt.Errorf("get notification %s: %w", id, ErrNotificationNotFound)
	}
	return n.Notification, nil
}

// NotificationsByUser returns newest first. A nil status returns all of them.
func (s *MemoryStore) NotificationsByUser(_ context.Context, userID uuid.UUID, status *model.NotificationStatus) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stored []storedNotification
	for _, n := range s.notifications {
		if n.RecipientID != userID {
			continue
		}
		if status != nil && n.Status != *status {
			continue
		}
		stored = append(stored, n)
	}
	slices.SortFunc(stored, func(x, y storedNotification) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(y.seq, x.seq)
	})
	out := make([]model.Notification, len(stored))
	for i, n := range stored {
		out[i] = n.Notification
	}
	return out, nil
}

func (s *MemoryStore) CountNotifications(_ context.Context, userID uuid.UUID, status model.NotificationStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.RecipientID == userID && n.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MarkNotificationRead(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return fmt.Errorf("mark notification %s read: %w", id, ErrNotificationNotFound)
	}
	n.Status = model.NotificationRead
	s.notifications[id] = n
	return nil
}

func (s *MemoryStore) MarkAllNotificationsRead(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.notifications {
		if n.RecipientID == userID && n.Status == model.NotificationUnread {
			n.Status = model.NotificationRead
			s.notifications[id] = n
		}
	}
	return nil
}

// DeleteNotification also frees its dedup key.
func (s *MemoryStore) DeleteNotification(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return fmt.Errorf("delete notification %s: %w", id, ErrNotificationNotFound)
	}
	delete(s.notifications, id)
	if n.DedupTag != nil {
		delete(s.dedup, keyOf(n.Notification))
	}
	return nil
}

// memoryTx stages writes against a snapshot of one auction and its bids.
type memoryTx struct {
	store    *MemoryStore
	auction  model.Auction
	bids     []model.Bid
	appended []model.Bid
	unlocks  []func()
	locked   []uuid.UUID
}

func (tx *memoryTx) Auction() model.Auction {
	return tx.auction.Clone()
}

func (tx *memoryTx) UpdateAuction(_ context.Context, a model.Auction) error {
	if a.ID != tx.auction.ID {
		return fmt.Errorf("update auction %s: transaction holds %s", a.ID, tx.auction.ID)
	}
	tx.auction = a.Clone()
	return nil
}

func (tx *memoryTx) HighestBid(ctx context.Context) (model.Bid, bool, error) {
	bids, _ := tx.BidsByAmountDesc(ctx)
	if len(bids) == 0 {
		return model.Bid{}, false, nil
	}
	return bids[0], true, nil
}

func (tx *memoryTx) BidsByAmountDesc(context.Context) ([]model.Bid, error) {
	out := slices.Clone(tx.bids)
	sortBidsDesc(out)
	return out, nil
}

func (tx *memoryTx) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	return tx.store.GetUser(ctx, id)
}

func (tx *memoryTx) PutBid(_ context.Context, b model.Bid) error {
	if b.AuctionID != tx.auction.ID {
		return fmt.Errorf("put bid on %s: transaction holds %s", b.AuctionID, tx.auction.ID)
	}
	tx.bids = slices.DeleteFunc(tx.bids, func(x model.Bid) bool { return x.BidderID == b.BidderID })
	tx.bids = append(tx.bids, b)
	tx.appended = append(tx.appended, b)
	return nil
}

func (tx *memoryTx) DeleteBid(_ context.Context, bidID uuid.UUID) error {
	n := len(tx.bids)
	tx.bids = slices.DeleteFunc(tx.bids, func(x model.Bid) bool { return x.ID == bidID })
	if len(tx.bids) == n {
		return fmt.Errorf("delete bid %s: %w", bidID, ErrBidNotFound)
	}
	return nil
}

func (tx *memoryTx) DeleteBidsExcept(_ context.Context, keep uuid.UUID) error {
	tx.bids = slices.DeleteFunc(tx.bids, func(x model.Bid) bool { return x.ID != keep })
	return nil
}

func (tx *memoryTx) LockBidder(_ context.Context, bidderID uuid.UUID) error {
	if slices.Contains(tx.locked, bidderID) {
		return nil
	}
	tx.unlocks = append(tx.unlocks, tx.store.bidderLocks.lock(bidderID))
	tx.locked = append(tx.locked, bidderID)
	return nil
}

func (tx *memoryTx) releaseBidders() {
	for i := len(tx.unlocks) - 1; i >= 0; i-- {
		tx.unlocks[i]()
	}
}

func (tx *memoryTx) LastBidAt(_ context.Context, bidderID uuid.UUID) (time.Time, bool, error) {
	var last time.Time
	found := false
	tx.eachHistory(bidderID, func(b model.Bid) {
		if b.AuctionID == tx.auction.ID && (!found || b.Timestamp.After(last)) {
			last, found = b.Timestamp, true
		}
	})
	return last, found, nil
}

func (tx *memoryTx) CountBidsSince(_ context.Context, bidderID uuid.UUID, since time.Time) (int, error) {
	count := 0
	tx.eachHistory(bidderID, func(b model.Bid) {
		if !b.Timestamp.Before(since) {
			count++
		}
	})
	return count, nil
}

func (tx *memoryTx) CountAuctionBidsSince(_ context.Context, bidderID uuid.UUID, since time.Time) (int, error) {
	count := 0
	tx.eachHistory(bidderID, func(b model.Bid) {
		if b.AuctionID == tx.auction.ID && !b.Timestamp.Before(since) {
			count++
		}
	})
	return count, nil
}

// eachHistory visits committed history followed by this transaction's staged bids.
func (tx *memoryTx) eachHistory(bidderID uuid.UUID, fn func(model.Bid)) {
	tx.store.mu.RLock()
	for _, b := range tx.store.history[bidderID] {
		fn(b)
	}
	tx.store.mu.RUnlock()
	for _, b := range tx.appended {
		if b.BidderID == bidderID {
			fn(b)
		}
	}
}

// keyedMutex hands out one mutex per id. Entries are dropped once nobody holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id uuid.UUID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uuid.UUID]*refMutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func sortBidsDesc(bids []model.Bid) {
	slices.SortFunc(bids, func(x, y model.Bid) int {
		if c := y.Amount.Cmp(x.Amount); c != 0 {
			return c
		}
		return x.Timestamp.Compare(y.Timestamp)
	})
}

func sortAuctions(auctions []model.Auction) {
	slices.SortFunc(auctions, func(x, y model.Auction) int {
		if c := x.EndTime.Compare(y.EndTime); c != 0 {
			return c
		}
		return cmp.Compare(x.ID.String(), y.ID.String())
	})
}
