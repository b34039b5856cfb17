package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

const (
	CampaignQueue  = "campaigns"
	CampaignKind   = "campaign_process"
	MaxJobAttempts = 3

	defaultJobTimeout = time.Hour
)

// CampaignArgs is stored in river_job.args as JSON. The recovery scan
// matches on the campaign_id key, so its name is part of the contract.
type CampaignArgs struct {
	CampaignID uuid.UUID `json:"campaign_id"`
}

func (CampaignArgs) Kind() string {
	return CampaignKind
}

func (CampaignArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       CampaignQueue,
		MaxAttempts: MaxJobAttempts,
	}
}

type CampaignWorker struct {
	river.WorkerDefaults[CampaignArgs]
	processor *Processor
	timeout   time.Duration
}

func NewCampaignWorker(processor *Processor, timeout time.Duration) *CampaignWorker {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &CampaignWorker{processor: processor, timeout: timeout}
}

// Timeout is the deadline for the queue to consider the job abandoned. It is
// advisory: the pipeline is not cancelled mid-property.
func (w *CampaignWorker) Timeout(job *river.Job[CampaignArgs]) time.Duration {
	return w.timeout
}

func (w *CampaignWorker) Work(ctx context.Context, job *river.Job[CampaignArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.processor.Process(ctx, job.Args.CampaignID)
}
