// Package jobs holds the durable queue integration: the campaign job type,
// its worker, the enqueue client, and the crash-recovery scan.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prospectgrid/prospectgrid/internal/notify"
	"github.com/prospectgrid/prospectgrid/internal/pipeline"
	"github.com/prospectgrid/prospectgrid/internal/store"
	"github.com/prospectgrid/prospectgrid/internal/store/model"
	"github.com/prospectgrid/prospectgrid/pkg/metrics"
)

// Runner processes one address to a terminal outcome.
type Runner interface {
	Run(ctx context.Context, address string) *pipeline.Outcome
}

// Processor executes one campaign job: it fans the campaign's pending
// properties out over a bounded worker pool and persists each completion in
// its own transaction. Because only pending properties are selected and the
// store's terminal transition is guarded, a re-delivered job resumes where
// the previous attempt stopped instead of redoing finished work.
type Processor struct {
	store    store.Store
	runner   Runner
	notifier notify.Notifier
	workers  int
	log      *zap.SugaredLogger
}

func NewProcessor(s store.Store, runner Runner, notifier notify.Notifier, workers int) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		store:    s,
		runner:   runner,
		notifier: notifier,
		workers:  workers,
		log:      zap.S().Named("processor"),
	}
}

// Process runs a campaign to completion. An error return means the job
// should be retried by the queue; per-property pipeline failures are
// persisted, not returned.
func (p *Processor) Process(ctx context.Context, campaignID uuid.UUID) error {
	campaign, err := p.store.Campaign().Get(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("loading campaign %s: %w", campaignID, err)
	}

	if campaign.Status != model.CampaignStatusProcessing {
		p.log.Infow("campaign already terminal, nothing to do", "campaign_id", campaignID, "status", campaign.Status)
		return nil
	}

	properties, err := p.store.Property().ListByCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("listing properties for %s: %w", campaignID, err)
	}

	// counters are rebuilt from the property rows, never from the persisted
	// campaign counters: those can lag behind after a crash or when the
	// queue delivered the same campaign to two workers
	counters := newProgressCounters(campaign.TotalProperties, properties)
	pending := make([]model.Property, 0, len(properties))
	for _, property := range properties {
		if !property.IsTerminal() {
			pending = append(pending, property)
		}
	}

	if len(pending) == 0 {
		return p.finalize(ctx, campaignID)
	}

	p.log.Infow("processing campaign",
		"campaign_id", campaignID,
		"total", campaign.TotalProperties,
		"pending", len(pending),
	)

	var persistFailures atomic.Int32
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range pending {
		property := pending[i]
		g.Go(func() error {
			outcome := p.runSafely(groupCtx, property.Address)
			if err := p.recordOutcome(groupCtx, campaignID, property.ID, outcome, counters); err != nil {
				persistFailures.Add(1)
				p.log.Errorw("failed to persist property outcome",
					"campaign_id", campaignID,
					"property_id", property.ID,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := persistFailures.Load(); n > 0 {
		// fail the job so the queue's retry picks the still-pending
		// properties up again instead of stranding them until restart
		return fmt.Errorf("campaign %s: %d property outcomes could not be persisted", campaignID, n)
	}

	remaining, err := p.store.Property().ListPending(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("listing pending properties for %s: %w", campaignID, err)
	}
	if len(remaining) > 0 {
		// a concurrent delivery of the same campaign holds these; whichever
		// run drains the pending list last finalizes
		p.log.Infow("leaving campaign to a concurrent run",
			"campaign_id", campaignID,
			"remaining", len(remaining),
		)
		return nil
	}

	return p.finalize(ctx, campaignID)
}

// runSafely converts a panic inside the pipeline into a failed outcome so a
// single bad address never takes down its siblings or the job.
func (p *Processor) runSafely(ctx context.Context, address string) (outcome *pipeline.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("pipeline panic", "address", address, "panic", r)
			outcome = &pipeline.Outcome{
				FailureReason: fmt.Sprintf("internal error: %v", r),
				Result:        pipeline.Result{Address: address},
			}
		}
	}()
	return p.runner.Run(ctx, address)
}

type progressCounters struct {
	mu        sync.Mutex
	total     int
	processed int
	succeeded int
	failed    int
}

// newProgressCounters derives the starting counters from the rows themselves.
func newProgressCounters(total int, properties model.PropertyList) *progressCounters {
	c := &progressCounters{total: total}
	for _, property := range properties {
		switch property.Status {
		case model.PropertyStatusCompleted:
			c.processed++
			c.succeeded++
		case model.PropertyStatusFailed:
			c.processed++
			c.failed++
		}
	}
	return c
}

// recordOutcome persists one property's terminal state and the campaign's
// aggregate counters in a single transaction. The counter lock serializes
// completions from this run; the store's guards protect against concurrent
// runs elsewhere.
func (p *Processor) recordOutcome(ctx context.Context, campaignID, propertyID uuid.UUID, outcome *pipeline.Outcome, counters *progressCounters) error {
	status := model.PropertyStatusCompleted
	var errMsg *string
	if !outcome.Completed {
		status = model.PropertyStatusFailed
		errMsg = &outcome.FailureReason
	}

	result, err := json.Marshal(outcome.Result)
	if err != nil {
		return fmt.Errorf("marshaling property result: %w", err)
	}

	counters.mu.Lock()
	defer counters.mu.Unlock()

	processed := counters.processed + 1
	succeeded := counters.succeeded
	failed := counters.failed
	if outcome.Completed {
		succeeded++
	} else {
		failed++
	}
	progress := math.Round(float64(processed)/float64(counters.total)*1000) / 10

	txCtx, err := p.store.NewTransactionContext(ctx)
	if err != nil {
		return fmt.Errorf("opening transaction: %w", err)
	}

	if err := p.store.Property().SetResult(txCtx, propertyID, status, outcome.Score, errMsg, result); err != nil {
		_, _ = store.Rollback(txCtx)
		if errors.Is(err, store.ErrRecordNotFound) {
			// already terminal, a concurrent run got here first
			return nil
		}
		return fmt.Errorf("recording property result: %w", err)
	}

	if err := p.store.Campaign().UpdateProgress(txCtx, campaignID, processed, succeeded, failed, progress); err != nil {
		_, _ = store.Rollback(txCtx)
		return fmt.Errorf("updating campaign progress: %w", err)
	}

	if _, err := store.Commit(txCtx); err != nil {
		return fmt.Errorf("committing property outcome: %w", err)
	}

	counters.processed = processed
	counters.succeeded = succeeded
	counters.failed = failed
	metrics.IncreasePropertiesProcessed(status)
	return nil
}

// finalize reconciles the campaign counters with its terminal property rows
// and marks the campaign completed. Safe under duplicate delivery: the
// completion transition fires once and only the winner notifies.
func (p *Processor) finalize(ctx context.Context, campaignID uuid.UUID) error {
	properties, err := p.store.Property().ListByCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("reloading properties for %s: %w", campaignID, err)
	}

	counters := newProgressCounters(len(properties), properties)
	progress := 100.0
	if counters.total > 0 {
		progress = math.Round(float64(counters.processed)/float64(counters.total)*1000) / 10
	}

	if err := p.store.Campaign().UpdateProgress(ctx, campaignID, counters.processed, counters.succeeded, counters.failed, progress); err != nil {
		return fmt.Errorf("reconciling campaign counters for %s: %w", campaignID, err)
	}

	if err := p.store.Campaign().SetCompleted(ctx, campaignID, time.Now()); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			// a concurrent delivery completed it first
			return nil
		}
		return fmt.Errorf("completing campaign %s: %w", campaignID, err)
	}
	metrics.IncreaseCampaignsProcessed(model.CampaignStatusCompleted)

	campaign, err := p.store.Campaign().Get(ctx, campaignID)
	if err != nil {
		p.log.Warnw("campaign completed but reload for notification failed", "campaign_id", campaignID, "error", err)
		return nil
	}

	// best effort, a failed notification never affects campaign state
	if err := p.notifier.CampaignCompleted(ctx, campaign); err != nil {
		p.log.Warnw("completion notification failed", "campaign_id", campaignID, "error", err)
	}

	p.log.Infow("campaign completed",
		"campaign_id", campaignID,
		"succeeded", campaign.SucceededCount,
		"failed", campaign.FailedCount,
	)
	return nil
}
