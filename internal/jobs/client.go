package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

type Client struct {
	*river.Client[pgx.Tx]
}

// NewClient builds a working River client: it both enqueues campaign jobs
// and executes them with up to maxWorkers concurrent campaigns.
func NewClient(pool *pgxpool.Pool, processor *Processor, maxWorkers int, jobTimeout time.Duration) (*Client, error) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewCampaignWorker(processor, jobTimeout))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			CampaignQueue: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, err
	}

	return &Client{Client: riverClient}, nil
}

// NewInsertOnlyClient builds a client that can enqueue but never executes.
// The API process uses this, leaving execution to the worker processes.
func NewInsertOnlyClient(pool *pgxpool.Pool) (*Client, error) {
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{})
	if err != nil {
		return nil, err
	}
	return &Client{Client: riverClient}, nil
}

// EnqueueCampaign inserts a campaign job and returns its queue id.
func (c *Client) EnqueueCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	result, err := c.Insert(ctx, CampaignArgs{CampaignID: campaignID}, nil)
	if err != nil {
		return 0, err
	}
	return result.Job.ID, nil
}
