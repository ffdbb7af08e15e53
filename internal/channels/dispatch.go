package channels

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/herald-hq/herald/pkg/models"
)

const (
	// DefaultBatchSize bounds how many sends run concurrently.
	DefaultBatchSize = 10
	// DefaultBatchPause throttles channel load between batches.
	DefaultBatchPause = 100 * time.Millisecond
)

// SendOutcome is the per-recipient result of a bulk dispatch.
type SendOutcome struct {
	UserID    models.UserID `json:"user_id"`
	Delivered bool          `json:"delivered"`
}

// BulkResult aggregates the outcome of dispatching one alert to many
// recipients.
type BulkResult struct {
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Outcomes   []SendOutcome `json:"outcomes"`
}

// Dispatcher fans one alert out to many recipients through the registry.
// Sends run in fixed-size batches: parallel within a batch, serialized
// across batches with a throttling pause, trading latency for bounded
// burst load on downstream channels.
type Dispatcher struct {
	registry   *Registry
	log        *slog.Logger
	batchSize  int
	batchPause time.Duration
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Registry   *Registry
	Logger     *slog.Logger
	BatchSize  int
	BatchPause time.Duration
}

// NewDispatcher constructs a Dispatcher, applying defaults for unset
// batching options.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batchPause := opts.BatchPause
	if batchPause < 0 {
		batchPause = DefaultBatchPause
	}
	return &Dispatcher{
		registry:   opts.Registry,
		log:        opts.Logger.With("component", "dispatcher"),
		batchSize:  batchSize,
		batchPause: batchPause,
	}
}

// SendBulk delivers an alert to every recipient over the alert's
// configured channel. One recipient's failure never aborts the batch or
// the other recipients' sends, and nothing is raised past this boundary.
func (d *Dispatcher) SendBulk(ctx context.Context, alert *models.Alert, recipients []*models.User) BulkResult {
	result := BulkResult{Outcomes: make([]SendOutcome, len(recipients))}

	for start := 0; start < len(recipients); start += d.batchSize {
		end := start + d.batchSize
		if end > len(recipients) {
			end = len(recipients)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				user := recipients[i]
				result.Outcomes[i] = SendOutcome{
					UserID:    user.ID,
					Delivered: d.registry.SendNotification(ctx, alert, user),
				}
			}(i)
		}
		wg.Wait()

		if end < len(recipients) && d.batchPause > 0 {
			select {
			case <-time.After(d.batchPause):
			case <-ctx.Done():
				// Count the unsent remainder as failed and stop.
				for i := end; i < len(recipients); i++ {
					result.Outcomes[i] = SendOutcome{UserID: recipients[i].ID, Delivered: false}
				}
				return d.tally(alert, result)
			}
		}
	}
	return d.tally(alert, result)
}

func (d *Dispatcher) tally(alert *models.Alert, result BulkResult) BulkResult {
	for _, outcome := range result.Outcomes {
		if outcome.Delivered {
			result.Successful++
		} else {
			result.Failed++
		}
	}
	if result.Failed > 0 {
		d.log.Warn("bulk dispatch completed with failures",
			"alert_id", alert.ID, "successful", result.Successful, "failed", result.Failed)
	} else {
		d.log.Debug("bulk dispatch completed",
			"alert_id", alert.ID, "successful", result.Successful)
	}
	return result
}
