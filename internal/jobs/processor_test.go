package jobs_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectgrid/prospectgrid/internal/config"
	"github.com/prospectgrid/prospectgrid/internal/jobs"
	"github.com/prospectgrid/prospectgrid/internal/pipeline"
	"github.com/prospectgrid/prospectgrid/internal/store"
	"github.com/prospectgrid/prospectgrid/internal/store/model"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	cfg := config.NewDefault()
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	db, err := store.InitDB(cfg)
	require.NoError(t, err)

	s := store.NewStore(db)
	require.NoError(t, s.InitialMigration())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCampaign(t *testing.T, s store.Store, addresses []string) *model.Campaign {
	t.Helper()
	ctx := context.Background()

	campaign, err := s.Campaign().Create(ctx, model.Campaign{
		ID:              uuid.New(),
		Status:          model.CampaignStatusProcessing,
		TotalProperties: len(addresses),
	})
	require.NoError(t, err)

	properties := make([]model.Property, 0, len(addresses))
	for i, address := range addresses {
		properties = append(properties, model.Property{
			ID:         uuid.New(),
			CampaignID: campaign.ID,
			Position:   i + 1,
			Address:    address,
			Status:     model.PropertyStatusPending,
		})
	}
	require.NoError(t, s.Property().CreateBatch(ctx, properties))
	return campaign
}

// scriptedRunner completes every address except those listed in failWith.
type scriptedRunner struct {
	calls    atomic.Int32
	failWith map[string]string
}

func (r *scriptedRunner) Run(ctx context.Context, address string) *pipeline.Outcome {
	r.calls.Add(1)
	if reason, ok := r.failWith[address]; ok {
		return &pipeline.Outcome{
			FailureReason: reason,
			Result:        pipeline.Result{Address: address},
		}
	}
	score := 42.0
	return &pipeline.Outcome{
		Completed: true,
		Score:     &score,
		Result:    pipeline.Result{Address: address},
	}
}

type recordingNotifier struct {
	notified atomic.Int32
}

func (n *recordingNotifier) CampaignCompleted(ctx context.Context, campaign *model.Campaign) error {
	n.notified.Add(1)
	return nil
}

func TestProcessorCompletesCampaign(t *testing.T) {
	s := newTestStore(t)
	addresses := []string{"1 First St", "2 Second St", "3 Third St"}
	campaign := seedCampaign(t, s, addresses)

	runner := &scriptedRunner{failWith: map[string]string{
		"2 Second St": `geocoding found no match for "2 Second St"`,
	}}
	notifier := &recordingNotifier{}
	processor := jobs.NewProcessor(s, runner, notifier, 2)

	require.NoError(t, processor.Process(context.Background(), campaign.ID))

	reloaded, err := s.Campaign().Get(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCompleted, reloaded.Status)
	assert.Equal(t, 3, reloaded.ProcessedCount)
	assert.Equal(t, 2, reloaded.SucceededCount)
	assert.Equal(t, 1, reloaded.FailedCount)
	assert.Equal(t, 100.0, reloaded.ProgressPercent)
	assert.NotNil(t, reloaded.CompletedAt)
	assert.Equal(t, int32(1), notifier.notified.Load())

	properties, err := s.Property().ListByCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.Len(t, properties, 3)

	// ordinal 2 failed with a geocoding reason, its siblings are unaffected
	assert.Equal(t, model.PropertyStatusCompleted, properties[0].Status)
	assert.Equal(t, model.PropertyStatusFailed, properties[1].Status)
	assert.Equal(t, model.PropertyStatusCompleted, properties[2].Status)
	require.NotNil(t, properties[1].Error)
	assert.Contains(t, strings.ToLower(*properties[1].Error), "geocod")
}

func TestProcessorResumesWithoutRedoingTerminalWork(t *testing.T) {
	s := newTestStore(t)
	addresses := []string{"1 First St", "2 Second St", "3 Third St", "4 Fourth St"}
	campaign := seedCampaign(t, s, addresses)
	ctx := context.Background()

	// simulate a crashed prior run that finished the first two properties
	properties, err := s.Property().ListByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	score := 10.0
	require.NoError(t, s.Property().SetResult(ctx, properties[0].ID, model.PropertyStatusCompleted, &score, nil, nil))
	reason := "no imagery available for location"
	require.NoError(t, s.Property().SetResult(ctx, properties[1].ID, model.PropertyStatusFailed, nil, &reason, nil))
	require.NoError(t, s.Campaign().UpdateProgress(ctx, campaign.ID, 2, 1, 1, 50))

	runner := &scriptedRunner{}
	processor := jobs.NewProcessor(s, runner, &recordingNotifier{}, 2)
	require.NoError(t, processor.Process(ctx, campaign.ID))

	assert.Equal(t, int32(2), runner.calls.Load(), "only the pending properties are processed")

	reloaded, err := s.Campaign().Get(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCompleted, reloaded.Status)
	assert.Equal(t, 4, reloaded.ProcessedCount)
	assert.Equal(t, 3, reloaded.SucceededCount)
	assert.Equal(t, 1, reloaded.FailedCount)

	// the terminal records from the prior run are untouched
	properties, err = s.Property().ListByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, properties[0].Score)
	assert.Equal(t, 10.0, *properties[0].Score)
	require.NotNil(t, properties[1].Error)
	assert.Equal(t, reason, *properties[1].Error)
}

func TestProcessorNoOpOnTerminalCampaign(t *testing.T) {
	s := newTestStore(t)
	campaign := seedCampaign(t, s, []string{"1 First St"})
	ctx := context.Background()

	require.NoError(t, s.Campaign().SetCompleted(ctx, campaign.ID, time.Now()))

	runner := &scriptedRunner{}
	processor := jobs.NewProcessor(s, runner, &recordingNotifier{}, 2)
	require.NoError(t, processor.Process(ctx, campaign.ID))

	assert.Equal(t, int32(0), runner.calls.Load())
}

type panickingRunner struct{}

func (panickingRunner) Run(ctx context.Context, address string) *pipeline.Outcome {
	panic("boom: " + address)
}

func TestProcessorConvertsPanicsToFailedProperties(t *testing.T) {
	s := newTestStore(t)
	campaign := seedCampaign(t, s, []string{"1 First St", "2 Second St"})
	ctx := context.Background()

	processor := jobs.NewProcessor(s, panickingRunner{}, &recordingNotifier{}, 2)
	require.NoError(t, processor.Process(ctx, campaign.ID))

	reloaded, err := s.Campaign().Get(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCompleted, reloaded.Status)
	assert.Equal(t, 2, reloaded.FailedCount)

	properties, err := s.Property().ListByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	for _, property := range properties {
		assert.Equal(t, model.PropertyStatusFailed, property.Status)
		require.NotNil(t, property.Error)
		assert.Contains(t, *property.Error, "internal error")
	}
}

func TestProcessorMissingCampaignIsJobError(t *testing.T) {
	s := newTestStore(t)
	processor := jobs.NewProcessor(s, &scriptedRunner{}, &recordingNotifier{}, 1)
	err := processor.Process(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestProcessorFinalizesWhenCountersLagBehindRows(t *testing.T) {
	s := newTestStore(t)
	campaign := seedCampaign(t, s, []string{"1 First St", "2 Second St"})
	ctx := context.Background()

	// all properties already terminal, but the campaign counters only saw
	// one of them before the previous run died
	properties, err := s.Property().ListByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	score := 80.0
	require.NoError(t, s.Property().SetResult(ctx, properties[0].ID, model.PropertyStatusCompleted, &score, nil, nil))
	reason := "no imagery available for location"
	require.NoError(t, s.Property().SetResult(ctx, properties[1].ID, model.PropertyStatusFailed, nil, &reason, nil))
	require.NoError(t, s.Campaign().UpdateProgress(ctx, campaign.ID, 1, 1, 0, 50))

	runner := &scriptedRunner{}
	notifier := &recordingNotifier{}
	processor := jobs.NewProcessor(s, runner, notifier, 2)
	require.NoError(t, processor.Process(ctx, campaign.ID))

	assert.Equal(t, int32(0), runner.calls.Load(), "no property is re-run")

	reloaded, err := s.Campaign().Get(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCompleted, reloaded.Status)
	assert.Equal(t, 2, reloaded.ProcessedCount)
	assert.Equal(t, 1, reloaded.SucceededCount)
	assert.Equal(t, 1, reloaded.FailedCount)
	assert.Equal(t, 100.0, reloaded.ProgressPercent)
	assert.Equal(t, int32(1), notifier.notified.Load())
}

// gateRunner parks every pipeline run until released, signalling once the
// first run has started.
type gateRunner struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *gateRunner) Run(ctx context.Context, address string) *pipeline.Outcome {
	r.once.Do(func() { close(r.started) })
	<-r.release
	score := 42.0
	return &pipeline.Outcome{
		Completed: true,
		Score:     &score,
		Result:    pipeline.Result{Address: address},
	}
}

func TestProcessorDuplicateDeliveriesConverge(t *testing.T) {
	s := newTestStore(t)
	addresses := make([]string, 6)
	for i := range addresses {
		addresses[i] = fmt.Sprintf("%d Main St", i+1)
	}
	campaign := seedCampaign(t, s, addresses)
	ctx := context.Background()

	// run A lists the pending properties, then stalls inside the pipeline
	gate := &gateRunner{started: make(chan struct{}), release: make(chan struct{})}
	notifierA := &recordingNotifier{}
	a := jobs.NewProcessor(s, gate, notifierA, len(addresses))

	errCh := make(chan error, 1)
	go func() { errCh <- a.Process(ctx, campaign.ID) }()
	<-gate.started

	// run B receives the same campaign and drives it to completion
	notifierB := &recordingNotifier{}
	b := jobs.NewProcessor(s, &scriptedRunner{}, notifierB, 2)
	require.NoError(t, b.Process(ctx, campaign.ID))

	// run A resumes, loses every terminal transition, and steps aside
	close(gate.release)
	require.NoError(t, <-errCh)

	reloaded, err := s.Campaign().Get(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCompleted, reloaded.Status)
	assert.Equal(t, 6, reloaded.ProcessedCount)
	assert.Equal(t, 6, reloaded.SucceededCount)
	assert.Equal(t, 0, reloaded.FailedCount)
	assert.Equal(t, 100.0, reloaded.ProgressPercent)
	assert.Equal(t, int32(0), notifierA.notified.Load())
	assert.Equal(t, int32(1), notifierB.notified.Load(), "exactly one run notifies")
}

// sabotageRunner kills the store mid-run so outcomes cannot be persisted.
type sabotageRunner struct {
	s store.Store
}

func (r sabotageRunner) Run(ctx context.Context, address string) *pipeline.Outcome {
	_ = r.s.Close()
	score := 42.0
	return &pipeline.Outcome{
		Completed: true,
		Score:     &score,
		Result:    pipeline.Result{Address: address},
	}
}

func TestProcessorFailsJobWhenOutcomesCannotBePersisted(t *testing.T) {
	s := newTestStore(t)
	campaign := seedCampaign(t, s, []string{"1 First St"})

	processor := jobs.NewProcessor(s, sabotageRunner{s: s}, &recordingNotifier{}, 1)
	err := processor.Process(context.Background(), campaign.ID)
	require.Error(t, err, "unpersisted outcomes surface as a job error for the queue to retry")
	assert.Contains(t, err.Error(), "could not be persisted")
}
