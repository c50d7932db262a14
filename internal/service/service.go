// Package service holds the campaign, ledger, vote and payout workflows.
// Services own validation and lifecycle rules; stores are plain persistence.
package service

import (
	"context" // Context for blocking calls
	"time"    // Time handling

	"group_fund/internal/domain" // Importing domain models
	"group_fund/internal/events" // Domain events
	"group_fund/internal/wallet" // Wallet transfer gateway

	"github.com/google/uuid"     // UUID generation
	"github.com/sirupsen/logrus" // Structured logging
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Contributions ContributionStore
	Payouts       PayoutStore
	Votes         VoteStore
	Wallet        wallet.Gateway
	Notifier      Notifier
	Events        events.Publisher
	Logger        logrus.FieldLogger
	Now           func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) notifyGroup(ctx context.Context, groupID uint, msg domain.NotificationMessage) {
	if err := d.Notifier.NotifyGroup(ctx, groupID, msg); err != nil {
		d.Logger.WithFields(logrus.Fields{
			"group_id":   groupID,
			"title":      msg.Title,
			"related_id": msg.RelatedID,
			"error":      err.Error(),
		}).Warn("Group notification failed")
	}
}

func (d Deps) notifyUser(ctx context.Context, userID uint, msg domain.NotificationMessage) {
	if err := d.Notifier.NotifyUser(ctx, userID, msg); err != nil {
		d.Logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"title":      msg.Title,
			"related_id": msg.RelatedID,
			"error":      err.Error(),
		}).Warn("User notification failed")
	}
}

func (d Deps) publish(ctx context.Context, typ, key string, payload any) {
	ev := events.Event{ID: uuid.NewString(), Type: typ, Key: key, OccurredAt: d.Now().UTC(), Payload: payload}
	if err := d.Events.Publish(ctx, ev); err != nil {
		d.Logger.WithFields(logrus.Fields{
			"event": typ,
			"key":   key,
			"error": err.Error(),
		}).Warn("Event publish failed")
	}
}
