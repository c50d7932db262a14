package notify

import (
	"context" // Context for blocking calls
	"errors"  // Sentinel errors
	"fmt"     // Error formatting
	"time"    // Time handling

	"github.com/sirupsen/logrus" // Structured logging
)

// Dispatcher drains the queue and delivers each job to its recipients.
type Dispatcher struct {
	queue   Queue
	members MembershipResolver
	sink    Sink
	log     logrus.FieldLogger
}

func NewDispatcher(queue Queue, members MembershipResolver, sink Sink, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{queue: queue, members: members, sink: sink, log: log}
}

// Handle delivers one job. A failure for one member is logged and does not
// stop delivery to the others; Handle reports how many deliveries failed.
func (d *Dispatcher) Handle(ctx context.Context, job Job) error {
	var recipients []uint
	switch job.Target {
	case TargetUser:
		recipients = []uint{job.UserID}
	case TargetGroup:
		ids, err := d.members.ListMembers(ctx, job.GroupID)
		if err != nil {
			return fmt.Errorf("list members of group %d: %w", job.GroupID, err)
		}
		recipients = ids
	default:
		return fmt.Errorf("unknown notification target %q", job.Target)
	}

	failed := 0
	for _, userID := range recipients {
		if err := d.sink.Deliver(ctx, userID, job.Message); err != nil {
			failed++
			d.log.WithFields(logrus.Fields{
				"user_id":    userID,
				"group_id":   job.GroupID,
				"title":      job.Message.Title,
				"related_id": job.Message.RelatedID,
				"error":      err.Error(),
			}).Warn("Notification delivery failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d deliveries failed", failed, len(recipients))
	}
	return nil
}

// Run dequeues until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("Notification dispatcher started")
	for {
		job, err := d.queue.Dequeue(ctx)
		switch {
		case ctx.Err() != nil:
			d.log.Info("Notification dispatcher stopped")
			return nil
		case errors.Is(err, ErrEmpty):
			continue
		case err != nil:
			d.log.WithField("error", err.Error()).Error("Notification dequeue failed")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if err := d.Handle(ctx, job); err != nil {
			d.log.WithFields(logrus.Fields{
				"target": job.Target,
				"title":  job.Message.Title,
				"error":  err.Error(),
			}).Warn("Notification job incomplete")
		}
	}
}
