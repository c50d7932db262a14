package notify

import (
	"context" // Context for blocking calls
	"errors"  // Sentinel errors
	"fmt"     // Error formatting

	"group_fund/internal/domain" // Importing domain models

	"github.com/go-telegram/bot"        // Telegram bot client
	"github.com/go-telegram/bot/models" // Telegram message options
)

// Sink delivers one message to one user.
type Sink interface {
	Deliver(ctx context.Context, userID uint, msg domain.NotificationMessage) error
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
}

// StoreSink writes a notification row per user.
type StoreSink struct {
	store NotificationStore
}

func NewStoreSink(store NotificationStore) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Deliver(ctx context.Context, userID uint, msg domain.NotificationMessage) error {
	severity := msg.Severity
	if severity == "" {
		severity = domain.SeverityInfo
	}
	return s.store.CreateNotification(ctx, &domain.Notification{
		UserID:    userID,
		Title:     msg.Title,
		Message:   msg.Message,
		Severity:  severity,
		RelatedID: msg.RelatedID,
	})
}

// UserLookup finds a user's Telegram chat.
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*domain.User, error)
}

// MessageSender is the part of *bot.Bot the sink uses.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramSink messages users that linked a Telegram chat. Users without
// one are skipped silently.
type TelegramSink struct {
	sender MessageSender
	users  UserLookup
}

func NewTelegramSink(sender MessageSender, users UserLookup) *TelegramSink {
	return &TelegramSink{sender: sender, users: users}
}

var severityIcon = map[domain.Severity]string{
	domain.SeverityInfo:    "ℹ️",
	domain.SeveritySuccess: "✅",
	domain.SeverityWarning: "⚠️",
	domain.SeverityError:   "❌",
}

// Text renders a message for chat delivery.
func Text(msg domain.NotificationMessage) string {
	icon, ok := severityIcon[msg.Severity]
	if !ok {
		icon = severityIcon[domain.SeverityInfo]
	}
	return fmt.Sprintf("%s %s\n\n%s", icon, msg.Title, msg.Message)
}

func (s *TelegramSink) Deliver(ctx context.Context, userID uint, msg domain.NotificationMessage) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.TelegramChatID == nil {
		return nil
	}
	_, err = s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *u.TelegramChatID,
		Text:   Text(msg),
	})
	if err != nil {
		return fmt.Errorf("telegram send to user %d: %w", userID, err)
	}
	return nil
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, userID uint, msg domain.NotificationMessage) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, userID, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
