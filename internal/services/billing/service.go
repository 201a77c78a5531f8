// Package billing handles incoming billing webhook deliveries. Its only hard
// contract is idempotency: a retried delivery must not enqueue a second sync
// job.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
	"github.com/ternarybob/satchel/internal/queue"
)

// Enqueuer is the slice of the queue manager the webhook path needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName string, data interface{}, opts queue.EnqueueOptions) (string, error)
}

// Service turns webhook deliveries into sync jobs.
type Service struct {
	events   interfaces.WebhookStorage
	enqueuer Enqueuer
	logger   arbor.ILogger
}

// NewService creates the billing webhook service.
func NewService(events interfaces.WebhookStorage, enqueuer Enqueuer, logger arbor.ILogger) *Service {
	return &Service{events: events, enqueuer: enqueuer, logger: logger}
}

// HandleEvent records the delivery and, if the event id is new, enqueues a
// syncSubscription job keyed by the event id. A duplicate delivery is not an
// error: it returns wasNew=false and enqueues nothing.
func (s *Service) HandleEvent(ctx context.Context, eventID, eventType, customerID string) (bool, error) {
	wasNew, err := s.events.RecordEvent(ctx, &models.WebhookEvent{
		EventID:    eventID,
		EventType:  eventType,
		CustomerID: customerID,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event %s: %w", eventID, err)
	}
	if !wasNew {
		if s.logger != nil {
			s.logger.Debug().Str("event_id", eventID).Msg("Duplicate webhook delivery skipped")
		}
		return false, nil
	}

	_, err = s.enqueuer.Enqueue(ctx, models.QueueSyncSubscription, models.SyncSubscriptionData{
		CustomerID: customerID,
	}, queue.EnqueueOptions{SingletonKey: eventID})
	if err != nil {
		return true, fmt.Errorf("failed to enqueue subscription sync for event %s: %w", eventID, err)
	}

	if s.logger != nil {
		s.logger.Info().
			Str("event_id", eventID).
			Str("event_type", eventType).
			Str("customer_id", customerID).
			Msg("Webhook event accepted, sync job enqueued")
	}
	return true, nil
}
