package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"group_fund/internal/domain"
	"group_fund/internal/duration"
	"group_fund/internal/events"
	"group_fund/internal/repository/memory"
	"group_fund/internal/wallet"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	GroupID uint
	UserID  uint
	Msg     domain.NotificationMessage
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) NotifyGroup(_ context.Context, groupID uint, msg domain.NotificationMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{GroupID: groupID, Msg: msg})
	return nil
}

func (n *recordingNotifier) NotifyUser(_ context.Context, userID uint, msg domain.NotificationMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{UserID: userID, Msg: msg})
	return nil
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.Msg.Title
	}
	return out
}

func (n *recordingNotifier) toUser(userID uint) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		if s.UserID == userID {
			out = append(out, s.Msg.Title)
		}
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const (
	owner uint = 1
	alice uint = 2
	bob   uint = 3
)

type fixture struct {
	store         *memory.Store
	wallet        *memory.Wallet
	notifier      *recordingNotifier
	events        *events.Memory
	clock         *clock
	contributions *ContributionService
	votes         *VoteService
	payouts       *PayoutService
	reconcile     *ReconcileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.New().WithClock(clk.Now)
	wal := memory.NewWallet()
	for _, id := range []uint{owner, alice, bob} {
		_, err := wal.CreateWallet(ctx, id, "")
		require.NoError(t, err)
		_, err = wal.Deposit(ctx, id, decimal.NewFromInt(5000))
		require.NoError(t, err)
	}
	logger, _ := test.NewNullLogger()
	f := &fixture{store: store, wallet: wal, notifier: &recordingNotifier{}, events: events.NewMemory(), clock: clk}
	deps := Deps{
		Contributions: store,
		Payouts:       store,
		Votes:         store,
		Wallet:        wal,
		Notifier:      f.notifier,
		Events:        f.events,
		Logger:        logger,
		Now:           clk.Now,
	}
	f.contributions = NewContributionService(deps)
	f.votes = NewVoteService(deps)
	f.payouts = NewPayoutService(deps)
	f.reconcile = NewReconcileService(deps, 3)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptrDec(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func (f *fixture) campaign(t *testing.T, days int) *domain.Contribution {
	t.Helper()
	in := CreateContributionInput{
		GroupID:      10,
		Title:        "Trip fund",
		Type:         domain.ContributionFixedGoal,
		TargetAmount: ptrDec("1000"),
	}
	if days > 0 {
		in.Duration = &duration.Spec{Value: days, Unit: duration.Days}
	}
	c, err := f.contributions.CreateCampaign(context.Background(), owner, in)
	require.NoError(t, err)
	return c
}

func TestCreateCampaignDefaults(t *testing.T) {
	f := newFixture(t)
	c, err := f.contributions.CreateCampaign(context.Background(), owner, CreateContributionInput{
		GroupID:  10,
		Title:    "  Open pot ",
		Type:     domain.ContributionOpenEnded,
		Duration: &duration.Spec{Value: 1, Unit: duration.Weeks},
	})
	require.NoError(t, err)

	assert.Equal(t, "Open pot", c.Title)
	assert.Equal(t, domain.ContributionActive, c.Status)
	assert.Equal(t, domain.DefaultCurrency, c.Currency)
	assert.True(t, c.PlatformFee.Equal(dec("2.5")))
	assert.True(t, c.TotalContributed.IsZero())
	require.NotNil(t, c.EndDate)
	assert.Equal(t, f.clock.Now().AddDate(0, 0, 7), *c.EndDate)

	assert.Contains(t, f.notifier.titles(), "New Group Contribution")
	assert.Equal(t, []string{events.ContributionCreated}, f.events.Types())
}

func TestCreateCampaignValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := map[string]CreateContributionInput{
		"empty title":      {Title: " ", Type: domain.ContributionOpenEnded},
		"no target":        {Title: "x", Type: domain.ContributionFixedGoal},
		"zero target":      {Title: "x", Type: domain.ContributionFixedGoal, TargetAmount: ptrDec("0")},
		"unknown type":     {Title: "x", Type: "lottery"},
		"hours not valid":  {Title: "x", Type: domain.ContributionOpenEnded, Duration: &duration.Spec{Value: 3, Unit: duration.Hours}},
		"negative value":   {Title: "x", Type: domain.ContributionOpenEnded, Duration: &duration.Spec{Value: -1, Unit: duration.Days}},
		"zero value":       {Title: "x", Type: domain.ContributionOpenEnded, Duration: &duration.Spec{Value: 0, Unit: duration.Days}},
		"missing unit":     {Title: "x", Type: domain.ContributionOpenEnded, Duration: &duration.Spec{Value: 3}},
		"fee out of range": {Title: "x", Type: domain.ContributionOpenEnded, PlatformFee: ptrDec("100")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.contributions.CreateCampaign(ctx, owner, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Empty(t, f.events.Types())
}

func TestContributeAndPayout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 7)

	_, err := f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("600")})
	require.NoError(t, err)
	_, err = f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: bob, Amount: dec("500")})
	require.NoError(t, err)

	details, err := f.contributions.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, details.TotalContributed.Equal(dec("1100")))
	assert.Len(t, details.Contributors, 2)
	assert.False(t, details.Ended)
	for _, e := range details.Contributors {
		assert.NotNil(t, e.WalletTxID)
	}

	ownerWallet, err := f.wallet.GetWallet(ctx, owner)
	require.NoError(t, err)
	assert.True(t, ownerWallet.Balance.Equal(dec("6100")))

	_, err = f.payouts.TriggerPayout(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, "contribution is still active", domain.Message(err))

	f.clock.Advance(8 * 24 * time.Hour)

	p, err := f.payouts.TriggerPayout(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, p.TotalAmount.Equal(dec("1100")))
	assert.True(t, p.PlatformFee.Equal(dec("27.5")))
	assert.True(t, p.NetAmount.Equal(dec("1072.5")))
	assert.Equal(t, domain.PayoutProcessing, p.Status)

	got, err := f.contributions.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionPayoutPending, got.Status)
	assert.True(t, got.Ended)

	_, err = f.payouts.TriggerPayout(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestContributeRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 1)

	_, err := f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("0")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("-3")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.contributions.Contribute(ctx, ContributeInput{ContributionID: "missing", UserID: alice, Amount: dec("3")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.clock.Advance(25 * time.Hour)
	_, err = f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("3")})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	total, err := f.contributions.TotalFor(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestOwnerNotNotifiedOfOwnContribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 0)

	_, err := f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: owner, Amount: dec("10"), PaymentMethod: domain.PaymentExternal})
	require.NoError(t, err)
	assert.Equal(t, []string{"Contribution Successful"}, f.notifier.toUser(owner))

	_, err = f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Contribution Successful", "New Contribution Received"}, f.notifier.toUser(owner))
	assert.Equal(t, []string{"Contribution Successful"}, f.notifier.toUser(alice))
}

func TestUnsettledPledgeIsReconciled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 0)

	f.wallet.FailNext = 1
	f.wallet.FailErr = errors.New("ledger timeout")
	entry, err := f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("40")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsettled)
	assert.ErrorIs(t, err, domain.ErrDependency)
	require.NotNil(t, entry)
	assert.Nil(t, entry.WalletTxID)

	total, err := f.contributions.TotalFor(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("40")))
	assert.Contains(t, f.events.Types(), events.ContributionUnsettled)

	pending, err := f.reconcile.Unsettled(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].SettleAttempts)

	res, err := f.reconcile.Run(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Settled: 1}, res)

	res, err = f.reconcile.Run(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{}, res)
	assert.Equal(t, 1, f.wallet.Transfers())

	mine, err := f.contributions.UserContributions(ctx, c.ID, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.NotNil(t, mine[0].WalletTxID)
}

func TestReconcileDoesNotChargeTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 0)

	entry, err := f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("25")})
	require.NoError(t, err)

	// Transfer went through but the answer was lost: simulate by settling
	// a fresh entry whose transfer already exists under its reference.
	lost := &domain.Contributor{ContributionID: c.ID, UserID: bob, Amount: dec("15"), Currency: c.Currency, PaymentMethod: domain.PaymentWallet}
	require.NoError(t, f.store.AddContributor(ctx, lost))
	_, err = f.wallet.Transfer(ctx, walletRequest(c, lost))
	require.NoError(t, err)

	res, err := f.reconcile.Run(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Settled)
	assert.Equal(t, 2, f.wallet.Transfers())
	assert.NotNil(t, entry.WalletTxID)

	bobWallet, err := f.wallet.GetWallet(ctx, bob)
	require.NoError(t, err)
	assert.True(t, bobWallet.Balance.Equal(dec("4985")))
}

func TestReconcileStopsAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 0)

	f.wallet.FailNext = 10
	f.wallet.FailErr = errors.New("down")
	_, err := f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("5")})
	require.ErrorIs(t, err, ErrUnsettled)

	for i := 0; i < 4; i++ {
		_, err := f.reconcile.Run(ctx, 10)
		require.NoError(t, err)
	}
	pending, err := f.reconcile.Unsettled(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	// One attempt in Contribute, two more by reconciliation, then it stops.
	assert.Equal(t, 7, f.wallet.FailNext)
}

func TestConcurrentTriggerPayoutSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 1)
	_, err := f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("100")})
	require.NoError(t, err)
	f.clock.Advance(48 * time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, dup int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.payouts.TriggerPayout(ctx, c.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, domain.ErrAlreadyExists) {
				dup++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, dup)
}

func TestSettlementTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 1)
	f.clock.Advance(48 * time.Hour)

	p, err := f.payouts.TriggerPayout(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, p.TotalAmount.IsZero())

	done, err := f.payouts.CompleteSettlement(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutCompleted, done.Status)
	require.NotNil(t, done.ProcessedAt)

	got, err := f.contributions.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionCompleted, got.Status)

	_, err = f.payouts.FailSettlement(ctx, p.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Contains(t, f.events.Types(), events.PayoutCompleted)
}

func TestFailSettlementKeepsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 1)
	f.clock.Advance(48 * time.Hour)
	p, err := f.payouts.TriggerPayout(ctx, c.ID)
	require.NoError(t, err)

	failed, err := f.payouts.FailSettlement(ctx, p.ID, "bank rejected")
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutFailed, failed.Status)
	assert.Equal(t, "bank rejected", failed.FailureReason)
	assert.Nil(t, failed.ProcessedAt)

	got, err := f.payouts.GetPayout(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Contains(t, f.notifier.titles(), "Contribution Payout Failed")
}

func TestTriggerDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := f.campaign(t, 1)
	later := f.campaign(t, 30)
	open := f.campaign(t, 0)
	f.clock.Advance(48 * time.Hour)

	res, err := f.payouts.TriggerDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DueResult{Triggered: 1}, res)

	_, err = f.payouts.GetPayout(ctx, due.ID)
	assert.NoError(t, err)
	for _, id := range []string{later.ID, open.ID} {
		_, err = f.payouts.GetPayout(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}

	res, err = f.payouts.TriggerDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DueResult{}, res)
}

func TestTriggerPayoutOnCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 0)
	require.NoError(t, f.store.AdvanceContribution(ctx, c.ID, domain.ContributionActive, domain.ContributionCancelled))

	_, err := f.payouts.TriggerPayout(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestTriggerPayoutOnExplicitlyEnded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 0)
	require.NoError(t, f.store.AdvanceContribution(ctx, c.ID, domain.ContributionActive, domain.ContributionEnded))

	p, err := f.payouts.TriggerPayout(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, p.ContributionID)
}

func TestCloseCampaignAllowsEarlyPayout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 30)

	closed, err := f.contributions.CloseCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionEnded, closed.Status)

	_, err = f.contributions.CloseCampaign(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.payouts.TriggerPayout(ctx, c.ID)
	assert.NoError(t, err)
}

func TestListGroupCampaignsNewestFirst(t *testing.T) {
	f := newFixture(t)
	first := f.campaign(t, 0)
	f.clock.Advance(time.Hour)
	second := f.campaign(t, 3)

	list, err := f.contributions.ListGroupCampaigns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	other, err := f.contributions.ListGroupCampaigns(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestOwnerPledgeNeedsNoTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 0)

	entry, err := f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: owner, Amount: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentExternal, entry.PaymentMethod)
	assert.Zero(t, f.wallet.Transfers())

	_, err = f.contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: owner, Amount: dec("5"), PaymentMethod: domain.PaymentWallet})
	assert.ErrorIs(t, err, domain.ErrValidation)

	pending, err := f.reconcile.Unsettled(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	res, err := f.reconcile.Run(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{}, res)

	total, err := f.contributions.TotalFor(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("10")))
}

func TestUnsettledErrorNamesCauseOnce(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, 0)

	f.wallet.FailNext = 1
	f.wallet.FailErr = errors.New("ledger timeout")
	_, err := f.contributions.Contribute(context.Background(), ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("40")})
	require.ErrorIs(t, err, ErrUnsettled)
	assert.Equal(t, "contribute: pledge recorded but wallet transfer did not settle: ledger timeout", err.Error())
	assert.Equal(t, ErrUnsettled.Error(), domain.Message(err))
}

type droppedKeys struct {
	mu   sync.Mutex
	keys []string
}

func (d *droppedKeys) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, key)
	return nil
}

func (d *droppedKeys) has(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Contains(d.keys, key)
}

func TestSettledPledgeDropsCachedWallets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, 0)

	cache := &droppedKeys{}
	logger, _ := test.NewNullLogger()
	deps := Deps{
		Contributions: f.store,
		Payouts:       f.store,
		Votes:         f.store,
		Wallet:        wallet.NewInvalidatingGateway(f.wallet, cache),
		Notifier:      f.notifier,
		Events:        f.events,
		Logger:        logger,
		Now:           f.clock.Now,
	}
	contributions := NewContributionService(deps)
	reconcile := NewReconcileService(deps, 3)

	_, err := contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: alice, Amount: dec("600")})
	require.NoError(t, err)
	assert.True(t, cache.has(wallet.BalanceKey(alice)))
	assert.True(t, cache.has(wallet.BalanceKey(owner)))

	f.wallet.FailNext = 1
	f.wallet.FailErr = errors.New("ledger timeout")
	_, err = contributions.Contribute(ctx, ContributeInput{ContributionID: c.ID, UserID: bob, Amount: dec("50")})
	require.ErrorIs(t, err, ErrUnsettled)
	assert.False(t, cache.has(wallet.BalanceKey(bob)))

	res, err := reconcile.Run(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Settled)
	assert.True(t, cache.has(wallet.BalanceKey(bob)))
}
