package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/broadcast"
	"github.com/Sidbot007/StudentBidz/internal/metrics"
	"github.com/Sidbot007/StudentBidz/internal/model"
	"github.com/Sidbot007/StudentBidz/internal/repository"
)

type NotificationServicer interface {
	Notify(ctx context.Context, n model.Notification) error
	NotifyOnce(ctx context.Context, n model.Notification) (bool, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
	Unread(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, callerID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, id, callerID uuid.UUID) error
}

// NotificationService persists notifications and pushes each new one to
// its recipient's topic.
type NotificationService struct {
	store   repository.AuctionStore
	bus     broadcast.Broadcaster
	log     *zap.Logger
	metrics *metrics.Recorder
}

var _ NotificationServicer = (*NotificationService)(nil)

func NewNotificationService(store repository.AuctionStore, bus broadcast.Broadcaster, opts ...Option) *NotificationService {
	o := newOptions(opts)
	return &NotificationService{store: store, bus: bus, log: o.log, metrics: o.metrics}
}

func (ns *NotificationService) Notify(ctx context.Context, n model.Notification) error {
	if err := ns.store.CreateNotification(ctx, n); err != nil {
		return err
	}
	ns.delivered(ctx, n)
	return nil
}

// NotifyOnce stores n unless its (recipient, type, auction, tag) already exists.
func (ns *NotificationService) NotifyOnce(ctx context.Context, n model.Notification) (bool, error) {
	created, err := ns.store.CreateNotificationOnce(ctx, n)
	if err != nil || !created {
		return false, err
	}
	ns.delivered(ctx, n)
	return true, nil
}

func (ns *NotificationService) delivered(ctx context.Context, n model.Notification) {
	ns.metrics.NotificationCreated(string(n.Type))
	ns.publish(ctx, model.NotificationEvent{Notification: n})
}

func (ns *NotificationService) publish(ctx context.Context, ev model.Event) {
	if err := ns.bus.Publish(ctx, ev.Topic(), ev); err != nil {
		ns.log.Warn("[NotificationService] broadcast failed -> ", zap.String("topic", ev.Topic()), zap.Error(err))
	}
}

// flush dispatches effects collected during a committed transaction.
// Failures are logged; the transaction already succeeded.
func (ns *NotificationService) flush(ctx context.Context, o *outbox) {
	for _, n := range o.notes {
		if err := ns.Notify(ctx, n); err != nil {
			ns.log.Error("[NotificationService] failed to store notification -> ",
				zap.String("type", string(n.Type)),
				zap.Stringer("recipient", n.RecipientID),
				zap.Error(err))
		}
	}
	for _, ev := range o.events {
		ns.publish(ctx, ev)
	}
}

func (ns *NotificationService) List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	return ns.store.NotificationsByUser(ctx, userID, nil)
}

func (ns *NotificationService) Unread(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	status := model.NotificationUnread
	return ns.store.NotificationsByUser(ctx, userID, &status)
}

func (ns *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return ns.store.CountNotifications(ctx, userID, model.NotificationUnread)
}

func (ns *NotificationService) MarkRead(ctx context.Context, id, callerID uuid.UUID) error {
	if _, err := ns.owned(ctx, id, callerID); err != nil {
		return err
	}
	return storeErr(ns.store.MarkNotificationRead(ctx, id))
}

func (ns *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return ns.store.MarkAllNotificationsRead(ctx, userID)
}

func (ns *NotificationService) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	if _, err := ns.owned(ctx, id, callerID); err != nil {
		return err
	}
	return storeErr(ns.store.DeleteNotification(ctx, id))
}

func (ns *NotificationService) owned(ctx context.Context, id, callerID uuid.UUID) (model.Notification, error) {
	n, err := ns.store.GetNotification(ctx, id)
	if err != nil {
		return model.Notification{}, storeErr(err)
	}
	if n.RecipientID != callerID {
		return model.Notification{}, ErrNotRecipient
	}
	return n, nil
}
