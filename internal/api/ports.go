package api

import (
	"context" // Request scoped calls

	"group_fund/internal/domain" // Importing domain models
	"group_fund/internal/wallet" // Transfer request types

	"github.com/shopspring/decimal" // Decimal amounts
)

// UserStore is the user persistence the handlers need
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id uint) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
}

// GroupStore manages groups and membership
type GroupStore interface {
	CreateGroup(ctx context.Context, g *domain.Group) error
	GetGroup(ctx context.Context, id uint) (*domain.Group, error)
	AddMember(ctx context.Context, groupID, userID uint) error
	ListMembers(ctx context.Context, groupID uint) ([]uint, error)
	IsMember(ctx context.Context, groupID, userID uint) (bool, error)
}

// NotificationStore reads and acknowledges in-app notifications
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uint) error
}

// WalletLedger is the wallet surface exposed over HTTP
type WalletLedger interface {
	wallet.Gateway
	CreateWallet(ctx context.Context, userID uint, currency string) (*domain.Wallet, error)
	GetWallet(ctx context.Context, userID uint) (*domain.Wallet, error)
	Deposit(ctx context.Context, userID uint, amount decimal.Decimal) (*domain.Transaction, error)
	History(ctx context.Context, userID uint, page, pageSize int) ([]domain.Transaction, int64, error)
}

// MemberCache is invalidated when a group's membership changes
type MemberCache interface {
	Invalidate(ctx context.Context, groupID uint) error
}
