// Package worker holds the background loops run by cmd/worker.
package worker

import (
	"context" // Context for blocking calls
	"time"    // Time handling

	"github.com/sirupsen/logrus" // Structured logging
)

// every runs fn immediately and then on each tick until ctx is done.
// Iteration errors are logged; the loop keeps going.
func every(ctx context.Context, interval time.Duration, log logrus.FieldLogger, name string, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithFields(logrus.Fields{"worker": name, "interval": interval.String()}).Info("Worker started")
	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.WithFields(logrus.Fields{
				"worker": name,
				"error":  err.Error(),
			}).Error("Worker iteration failed")
		}

		select {
		case <-ctx.Done():
			log.WithField("worker", name).Info("Worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
