package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/db"
	"github.com/Sidbot007/StudentBidz/internal/model"
)

const auctionColumns = `id, title, description, starting_price, original_starting_price, end_time,
	seller_id, status, type, winner_id, created_at`

const bidColumns = `id, auction_id, bidder_id, amount, created_at`

const notificationColumns = `id, recipient_id, type, title, body, status, created_at, related_url, auction_id, dedup_tag`

// querier is satisfied by both the pool wrapper and a pgx transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the AuctionStore backed by Postgres. Transactions lock
// the auction row with SELECT ... FOR UPDATE.
type PostgresStore struct {
	db  *db.DB
	log *zap.Logger
}

var _ AuctionStore = (*PostgresStore)(nil)

func NewPostgresStore(d *db.DB, log *zap.Logger) *PostgresStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{db: d, log: log}
}

func (s *PostgresStore) CreateUser(ctx context.Context, u model.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, username, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username`,
		u.ID, u.Username, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, q querier, id uuid.UUID) (model.User, error) {
	var u model.User
	err := q.QueryRow(ctx, `SELECT id, username, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("get user %s: %w", id, ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *PostgresStore) CreateAuction(ctx context.Context, a model.Auction) error {
	return s.db.RunTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO auctions (`+auctionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			a.ID, a.Title, a.Description, a.StartingPrice, a.OriginalStartingPrice, a.EndTime.UTC(),
			a.SellerID, string(a.Status), string(a.Type), a.WinnerID, a.CreatedAt.UTC())
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("create auction %s: %w", a.ID, ErrAuctionExists)
		}
		if err != nil {
			return fmt.Errorf("create auction %s: %w", a.ID, err)
		}
		return syncRestricted(ctx, tx, a.ID, a.RestrictedBidders)
	})
}

func (s *PostgresStore) GetAuction(ctx context.Context, id uuid.UUID) (model.Auction, error) {
	a, err := scanAuction(s.db.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", id, ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", id, err)
	}
	if err := loadRestricted(ctx, s.db, []*model.Auction{&a}); err != nil {
		return model.Auction{}, err
	}
	return a, nil
}

// DeleteAuction relies on ON DELETE CASCADE for bids, history and restrictions.
func (s *PostgresStore) DeleteAuction(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM auctions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete auction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete auction %s: %w", id, ErrAuctionNotFound)
	}
	return nil
}

func (s *PostgresStore) AuctionsByStatus(ctx context.Context, status model.AuctionStatus, from, to time.Time) ([]model.Auction, error) {
	var fromArg, toArg *time.Time
	if !from.IsZero() {
		f := from.UTC()
		fromArg = &f
	}
	if !to.IsZero() {
		t := to.UTC()
		toArg = &t
	}
	return s.queryAuctions(ctx, `
		SELECT `+auctionColumns+` FROM auctions
		WHERE status = $1
		  AND ($2::timestamptz IS NULL OR end_time >= $2)
		  AND ($3::timestamptz IS NULL OR end_time < $3)
		ORDER BY end_time, id`, string(status), fromArg, toArg)
}

func (s *PostgresStore) AuctionsBySeller(ctx context.Context, sellerID uuid.UUID, status *model.AuctionStatus) ([]model.Auction, error) {
	var statusArg *string
	if status != nil {
		st := string(*status)
		statusArg = &st
	}
	return s.queryAuctions(ctx, `
		SELECT `+auctionColumns+` FROM auctions
		WHERE seller_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY end_time, id`, sellerID, statusArg)
}

func (s *PostgresStore) AuctionsByWinner(ctx context.Context, winnerID uuid.UUID) ([]model.Auction, error) {
	return s.queryAuctions(ctx, `
		SELECT `+auctionColumns+` FROM auctions WHERE winner_id = $1 ORDER BY end_time, id`, winnerID)
}

func (s *PostgresStore) AuctionsByBidder(ctx context.Context, bidderID uuid.UUID) ([]model.Auction, error) {
	return s.queryAuctions(ctx, `
		SELECT `+auctionColumns+` FROM auctions
		WHERE id IN (SELECT auction_id FROM bids WHERE bidder_id = $1)
		ORDER BY end_time, id`, bidderID)
}

func (s *PostgresStore) queryAuctions(ctx context.Context, query string, args ...any) ([]model.Auction, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query auctions: %w", err)
	}
	defer rows.Close()

	var out []model.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query auctions: %w", err)
	}

	ptrs := make([]*model.Auction, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := loadRestricted(ctx, s.db, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) GetBid(ctx context.Context, id uuid.UUID) (model.Bid, error) {
	b, err := scanBid(s.db.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", id, ErrBidNotFound)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) HighestBid(ctx context.Context, auctionID uuid.UUID) (model.Bid, bool, error) {
	return highestBid(ctx, s.db, auctionID)
}

func (s *PostgresStore) BidsByAmountDesc(ctx context.Context, auctionID uuid.UUID) ([]model.Bid, error) {
	return queryBids(ctx, s.db, `
		SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 ORDER BY amount DESC, created_at`, auctionID)
}

func (s *PostgresStore) BidsByBidder(ctx context.Context, bidderID uuid.UUID) ([]model.Bid, error) {
	return queryBids(ctx, s.db, `
		SELECT `+bidColumns+` FROM bids WHERE bidder_id = $1 ORDER BY created_at DESC`, bidderID)
}

func (s *PostgresStore) WithAuction(ctx context.Context, auctionID uuid.UUID, fn func(tx AuctionTx) error) error {
	return s.db.RunTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		a, err := scanAuction(tx.QueryRow(ctx,
			`SELECT `+auctionColumns+` FROM auctions WHERE id = $1 FOR UPDATE`, auctionID))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lock auction %s: %w", auctionID, ErrAuctionNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock auction %s: %w", auctionID, err)
		}
		if err := loadRestricted(ctx, tx, []*model.Auction{&a}); err != nil {
			return err
		}
		return fn(&pgTx{tx: tx, auction: a})
	})
}

func (s *PostgresStore) CreateNotification(ctx context.Context, n model.Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, notificationArgs(n)...)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateNotificationOnce(ctx context.Context, n model.Notification) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (recipient_id, type, auction_id, dedup_tag) WHERE dedup_tag IS NOT NULL DO NOTHING`,
		notificationArgs(n)...)
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.log.Debug("[PostgresStore] duplicate notification skipped -> ",
			zap.String("type", string(n.Type)),
			zap.Stringer("recipient_id", n.RecipientID),
			zap.String("tag", n.Tag()))
		return false, nil
	}
	return true, nil
}

func (s *PostgresStore) GetNotification(ctx context.Context, id uuid.UUID) (model.Notification, error) {
	n, err := scanNotification(s.db.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Notification{}, fmt.Errorf("get notification %s: %w", id, ErrNotificationNotFound)
	}
	if err != nil {
		return model.Notification{}, fmt.Errorf("get notification %s: %w", id, err)
	}
	return n, nil
}

func (s *PostgresStore) NotificationsByUser(ctx context.Context, userID uuid.UUID, status *model.NotificationStatus) ([]model.Notification, error) {
	var statusArg *string
	if status != nil {
		st := string(*status)
		statusArg = &st
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE recipient_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id`, userID, statusArg)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountNotifications(ctx context.Context, userID uuid.UUID, status model.NotificationStatus) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_id = $1 AND status = $2`,
		userID, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET status = 'READ' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark notification %s read: %w", id, ErrNotificationNotFound)
	}
	return nil
}

func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET status = 'READ' WHERE recipient_id = $1 AND status = 'UNREAD'`, userID)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete notification %s: %w", id, ErrNotificationNotFound)
	}
	return nil
}

// pgTx holds the row lock on one auction for the lifetime of the transaction.
type pgTx struct {
	tx      pgx.Tx
	auction model.Auction
}

func (t *pgTx) Auction() model.Auction {
	return t.auction.Clone()
}

func (t *pgTx) UpdateAuction(ctx context.Context, a model.Auction) error {
	if a.ID != t.auction.ID {
		return fmt.Errorf("update auction %s: transaction holds %s", a.ID, t.auction.ID)
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE auctions
		SET title = $2, description = $3, starting_price = $4, end_time = $5,
		    status = $6, type = $7, winner_id = $8
		WHERE id = $1`,
		a.ID, a.Title, a.Description, a.StartingPrice, a.EndTime.UTC(),
		string(a.Status), string(a.Type), a.WinnerID)
	if err != nil {
		return fmt.Errorf("update auction %s: %w", a.ID, err)
	}
	if !slices.Equal(sortedIDs(a.RestrictedBidders), sortedIDs(t.auction.RestrictedBidders)) {
		if err := syncRestricted(ctx, t.tx, a.ID, a.RestrictedBidders); err != nil {
			return err
		}
	}
	t.auction = a.Clone()
	return nil
}

func (t *pgTx) HighestBid(ctx context.Context) (model.Bid, bool, error) {
	return highestBid(ctx, t.tx, t.auction.ID)
}

func (t *pgTx) BidsByAmountDesc(ctx context.Context) ([]model.Bid, error) {
	return queryBids(ctx, t.tx, `
		SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 ORDER BY amount DESC, created_at`, t.auction.ID)
}

func (t *pgTx) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	return getUser(ctx, t.tx, id)
}

func (t *pgTx) PutBid(ctx context.Context, b model.Bid) error {
	if b.AuctionID != t.auction.ID {
		return fmt.Errorf("put bid on %s: transaction holds %s", b.AuctionID, t.auction.ID)
	}
	if _, err := t.tx.Exec(ctx,
		`DELETE FROM bids WHERE auction_id = $1 AND bidder_id = $2`, b.AuctionID, b.BidderID); err != nil {
		return fmt.Errorf("replace bid: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `INSERT INTO bids (`+bidColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.AuctionID, b.BidderID, b.Amount, b.Timestamp.UTC()); err != nil {
		return fmt.Errorf("insert bid: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `INSERT INTO bid_history (`+bidColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.AuctionID, b.BidderID, b.Amount, b.Timestamp.UTC()); err != nil {
		return fmt.Errorf("record bid history: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteBid(ctx context.Context, bidID uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM bids WHERE id = $1 AND auction_id = $2`, bidID, t.auction.ID)
	if err != nil {
		return fmt.Errorf("delete bid %s: %w", bidID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete bid %s: %w", bidID, ErrBidNotFound)
	}
	return nil
}

func (t *pgTx) DeleteBidsExcept(ctx context.Context, keep uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM bids WHERE auction_id = $1 AND id <> $2`, t.auction.ID, keep)
	if err != nil {
		return fmt.Errorf("delete bids: %w", err)
	}
	return nil
}

func (t *pgTx) LockBidder(ctx context.Context, bidderID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, bidderID.String())
	if err != nil {
		return fmt.Errorf("lock bidder %s: %w", bidderID, err)
	}
	return nil
}

func (t *pgTx) LastBidAt(ctx context.Context, bidderID uuid.UUID) (time.Time, bool, error) {
	var last *time.Time
	err := t.tx.QueryRow(ctx,
		`SELECT max(created_at) FROM bid_history WHERE auction_id = $1 AND bidder_id = $2`,
		t.auction.ID, bidderID).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last bid time: %w", err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

func (t *pgTx) CountBidsSince(ctx context.Context, bidderID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx,
		`SELECT count(*) FROM bid_history WHERE bidder_id = $1 AND created_at >= $2`,
		bidderID, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bids: %w", err)
	}
	return count, nil
}

func (t *pgTx) CountAuctionBidsSince(ctx context.Context, bidderID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx,
		`SELECT count(*) FROM bid_history WHERE bidder_id = $1 AND auction_id = $2 AND created_at >= $3`,
		bidderID, t.auction.ID, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count auction bids: %w", err)
	}
	return count, nil
}

func scanAuction(row pgx.Row) (model.Auction, error) {
	var (
		a            model.Auction
		status, kind string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.StartingPrice, &a.OriginalStartingPrice,
		&a.EndTime, &a.SellerID, &status, &kind, &a.WinnerID, &a.CreatedAt)
	if err != nil {
		return model.Auction{}, err
	}
	a.Status = model.AuctionStatus(status)
	a.Type = model.AuctionType(kind)
	return a, nil
}

func scanBid(row pgx.Row) (model.Bid, error) {
	var b model.Bid
	err := row.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.Timestamp)
	return b, err
}

func scanNotification(row pgx.Row) (model.Notification, error) {
	var (
		n            model.Notification
		kind, status string
	)
	err := row.Scan(&n.ID, &n.RecipientID, &kind, &n.Title, &n.Body, &status, &n.CreatedAt,
		&n.RelatedURL, &n.AuctionID, &n.DedupTag)
	if err != nil {
		return model.Notification{}, err
	}
	n.Type = model.NotificationType(kind)
	n.Status = model.NotificationStatus(status)
	return n, nil
}

func notificationArgs(n model.Notification) []any {
	status := n.Status
	if status == "" {
		status = model.NotificationUnread
	}
	return []any{n.ID, n.RecipientID, string(n.Type), n.Title, n.Body, string(status),
		n.CreatedAt.UTC(), n.RelatedURL, n.AuctionID, n.DedupTag}
}

func highestBid(ctx context.Context, q querier, auctionID uuid.UUID) (model.Bid, bool, error) {
	b, err := scanBid(q.QueryRow(ctx, `
		SELECT `+bidColumns+` FROM bids WHERE auction_id = $1
		ORDER BY amount DESC, created_at LIMIT 1`, auctionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bid{}, false, nil
	}
	if err != nil {
		return model.Bid{}, false, fmt.Errorf("highest bid: %w", err)
	}
	return b, true, nil
}

func queryBids(ctx context.Context, q querier, query string, args ...any) ([]model.Bid, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bids: %w", err)
	}
	defer rows.Close()

	var out []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func loadRestricted(ctx context.Context, q querier, auctions []*model.Auction) error {
	if len(auctions) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*model.Auction, len(auctions))
	ids := make([]string, len(auctions))
	for i, a := range auctions {
		a.RestrictedBidders = []uuid.UUID{}
		byID[a.ID] = a
		ids[i] = a.ID.String()
	}

	rows, err := q.Query(ctx, `
		SELECT auction_id, user_id FROM auction_restricted_bidders
		WHERE auction_id = ANY($1::uuid[]) ORDER BY user_id`, ids)
	if err != nil {
		return fmt.Errorf("load restricted bidders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var auctionID, userID uuid.UUID
		if err := rows.Scan(&auctionID, &userID); err != nil {
			return fmt.Errorf("scan restricted bidder: %w", err)
		}
		if a, ok := byID[auctionID]; ok {
			a.RestrictedBidders = append(a.RestrictedBidders, userID)
		}
	}
	return rows.Err()
}

func syncRestricted(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, users []uuid.UUID) error {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.String()
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM auction_restricted_bidders
		WHERE auction_id = $1 AND NOT (user_id = ANY($2::uuid[]))`, auctionID, ids); err != nil {
		return fmt.Errorf("sync restricted bidders: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO auction_restricted_bidders (auction_id, user_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING`, auctionID, ids); err != nil {
		return fmt.Errorf("sync restricted bidders: %w", err)
	}
	return nil
}

func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return out
}
