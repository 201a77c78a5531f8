package workers

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/models"
)

// BillingClient is the external billing collaborator.
type BillingClient interface {
	SyncCustomer(ctx context.Context, customerID string) error
}

// SubscriptionWorker applies billing state for a customer. Failures re-raise
// so the job retries; the singleton key on enqueue keeps retried webhook
// deliveries from stacking duplicate jobs.
type SubscriptionWorker struct {
	billing BillingClient
	logger  arbor.ILogger
}

// NewSubscriptionWorker creates the subscription sync worker.
func NewSubscriptionWorker(billing BillingClient, logger arbor.ILogger) *SubscriptionWorker {
	return &SubscriptionWorker{billing: billing, logger: logger}
}

// Handle processes a batch of syncSubscription jobs.
func (w *SubscriptionWorker) Handle(ctx context.Context, jobs []*models.Job) error {
	for _, job := range jobs {
		var data models.SyncSubscriptionData
		if err := job.DecodeData(&data); err != nil {
			return err
		}
		if err := w.billing.SyncCustomer(ctx, data.CustomerID); err != nil {
			return fmt.Errorf("subscription sync for customer %s failed: %w", data.CustomerID, err)
		}
		if w.logger != nil {
			w.logger.Info().Str("customer_id", data.CustomerID).Msg("Subscription synced")
		}
	}
	return nil
}
