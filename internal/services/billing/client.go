package billing

import (
	"context"

	"github.com/ternarybob/arbor"
)

// LogClient is the default BillingClient when no billing backend is wired.
// It records the sync request and succeeds, keeping the queue contract
// exercisable without a live billing account.
type LogClient struct {
	logger arbor.ILogger
}

// NewLogClient creates a logging billing client.
func NewLogClient(logger arbor.ILogger) *LogClient {
	return &LogClient{logger: logger}
}

// SyncCustomer logs the sync request.
func (c *LogClient) SyncCustomer(ctx context.Context, customerID string) error {
	if c.logger != nil {
		c.logger.Info().Str("customer_id", customerID).Msg("Billing sync requested (no backend configured)")
	}
	return nil
}
