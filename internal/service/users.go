package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/model"
	"github.com/Sidbot007/StudentBidz/internal/repository"
)

type UserServicer interface {
	EnsureUser(ctx context.Context, id uuid.UUID, username string) error
	GetUser(ctx context.Context, id uuid.UUID) (model.User, error)
}

// UserService mirrors the user references issued by the identity provider.
type UserService struct {
	store repository.AuctionStore
	log   *zap.Logger
	now   Clock
	seen  sync.Map // uuid.UUID -> username
}

func NewUserService(store repository.AuctionStore, opts ...Option) *UserService {
	o := newOptions(opts)
	return &UserService{store: store, log: o.log, now: o.now}
}

// EnsureUser records the user once per process, or again when the name changes.
func (us *UserService) EnsureUser(ctx context.Context, id uuid.UUID, username string) error {
	if username == "" {
		username = id.String()
	}
	if name, ok := us.seen.Load(id); ok && name == username {
		return nil
	}
	if err := us.store.CreateUser(ctx, model.User{ID: id, Username: username, CreatedAt: us.now()}); err != nil {
		return err
	}
	us.seen.Store(id, username)
	return nil
}

func (us *UserService) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	u, err := us.store.GetUser(ctx, id)
	return u, storeErr(err)
}

type userReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (model.User, error)
}

// name resolves a display name through r, falling back to the id. Inside
// WithAuction, r must be the transaction.
func (us *UserService) name(ctx context.Context, r userReader, id uuid.UUID) string {
	if name, ok := us.seen.Load(id); ok {
		return name.(string)
	}
	u, err := r.GetUser(ctx, id)
	if err != nil {
		us.log.Debug("[UserService] username lookup failed -> ", zap.Stringer("user_id", id), zap.Error(err))
		return id.String()
	}
	return u.Username
}
