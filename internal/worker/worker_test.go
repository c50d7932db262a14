package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"group_fund/internal/domain"
	"group_fund/internal/duration"
	"group_fund/internal/repository/memory"
	"group_fund/internal/service"
	"group_fund/internal/settlement"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSettler struct {
	mu      sync.Mutex
	results map[string]error
	calls   []settlement.Request
}

func (s *scriptedSettler) Settle(_ context.Context, req settlement.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	return s.results[req.ContributionID]
}

type env struct {
	store   *memory.Store
	now     time.Time
	log     logrus.FieldLogger
	contrib *service.ContributionService
	payouts *service.PayoutService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger, _ := test.NewNullLogger()
	e := &env{store: memory.New(), now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), log: logger}
	deps := service.Deps{
		Contributions: e.store,
		Payouts:       e.store,
		Votes:         e.store,
		Wallet:        memory.NewWallet(),
		Logger:        logger,
		Now:           func() time.Time { return e.now },
	}
	e.contrib = service.NewContributionService(deps)
	e.payouts = service.NewPayoutService(deps)
	return e
}

func (e *env) campaign(t *testing.T, title string) *domain.Contribution {
	t.Helper()
	c, err := e.contrib.CreateCampaign(context.Background(), 1, service.CreateContributionInput{
		GroupID:  1,
		Title:    title,
		Type:     domain.ContributionOpenEnded,
		Duration: &duration.Spec{Value: 1, Unit: duration.Days},
	})
	require.NoError(t, err)
	return c
}

func TestPayoutRunnerAndSettlement(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ok := e.campaign(t, "ok")
	rejected := e.campaign(t, "rejected")
	offline := e.campaign(t, "offline")
	e.now = e.now.Add(48 * time.Hour)

	require.NoError(t, NewPayoutRunner(e.payouts, time.Minute, e.log).RunOnce(ctx))
	pending, err := e.payouts.ListProcessing(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	settler := &scriptedSettler{results: map[string]error{
		rejected.ID: &settlement.RejectedError{Status: 422, Body: "account closed"},
		offline.ID:  errors.New("dial tcp: connection refused"),
	}}
	w := NewSettlementWorker(e.payouts, settler, 10, time.Minute, e.log)
	require.NoError(t, w.RunOnce(ctx))
	assert.Len(t, settler.calls, 3)

	got, err := e.payouts.GetPayout(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutCompleted, got.Status)

	got, err = e.payouts.GetPayout(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutFailed, got.Status)
	assert.Contains(t, got.FailureReason, "account closed")

	got, err = e.payouts.GetPayout(ctx, offline.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutProcessing, got.Status)

	// Only the unreachable payout is retried.
	require.NoError(t, w.RunOnce(ctx))
	assert.Len(t, settler.calls, 4)
	assert.Equal(t, offline.ID, settler.calls[3].ContributionID)
}

func TestSettlementSkippedWithoutEndpoint(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.campaign(t, "x")
	e.now = e.now.Add(48 * time.Hour)
	_, err := e.payouts.TriggerPayout(ctx, c.ID)
	require.NoError(t, err)

	w := NewSettlementWorker(e.payouts, settlement.NewHTTPSettler("", 0), 10, time.Minute, e.log)
	require.NoError(t, w.RunOnce(ctx))

	got, err := e.payouts.GetPayout(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutProcessing, got.Status)
}

type countingReconciler struct {
	mu    sync.Mutex
	calls int
}

func (c *countingReconciler) Run(context.Context, int) (service.ReconcileResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return service.ReconcileResult{Settled: 1}, nil
}

func (c *countingReconciler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestWorkerLoopStopsOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := &countingReconciler{}
	w := NewReconcileWorker(r, 10, 5*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return r.count() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
