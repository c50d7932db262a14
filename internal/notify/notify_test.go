package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"group_fund/internal/domain"
	"group_fund/internal/repository/memory"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*bot.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, p)
	return &models.Message{ID: len(f.sent)}, nil
}

type failingSink struct{ userID uint }

func (f failingSink) Deliver(_ context.Context, userID uint, _ domain.NotificationMessage) error {
	if userID == f.userID {
		return errors.New("mailbox closed")
	}
	return nil
}

type countingMembers struct {
	calls int
	ids   []uint
}

func (c *countingMembers) ListMembers(context.Context, uint) ([]uint, error) {
	c.calls++
	return c.ids, nil
}

func seedGroup(t *testing.T, store *memory.Store, users ...string) (uint, []uint) {
	t.Helper()
	ctx := context.Background()
	var ids []uint
	for _, name := range users {
		u := &domain.User{Username: name}
		require.NoError(t, store.CreateUser(ctx, u))
		ids = append(ids, u.ID)
	}
	g := &domain.Group{Name: "friends", CreatedBy: ids[0]}
	require.NoError(t, store.CreateGroup(ctx, g))
	for _, id := range ids[1:] {
		require.NoError(t, store.AddMember(ctx, g.ID, id))
	}
	return g.ID, ids
}

func TestQueueNotifierToDispatcher(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	groupID, ids := seedGroup(t, store, "ann", "ben", "cid")
	logger, _ := test.NewNullLogger()

	q := NewMemoryQueue(8, 10*time.Millisecond)
	notifier := NewQueueNotifier(q)
	msg := domain.NotificationMessage{Title: "New Group Vote", Message: "vote now", RelatedID: "v1"}
	require.NoError(t, notifier.NotifyGroup(ctx, groupID, msg))
	require.NoError(t, notifier.NotifyUser(ctx, ids[0], domain.NotificationMessage{Title: "Direct"}))
	assert.Equal(t, 2, q.Len())

	d := NewDispatcher(q, store, NewStoreSink(store), logger)
	for i := 0; i < 2; i++ {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.NoError(t, d.Handle(ctx, job))
	}

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrEmpty)

	for _, id := range ids {
		list, err := store.ListNotifications(ctx, id, false)
		require.NoError(t, err)
		if id == ids[0] {
			require.Len(t, list, 2)
			assert.Equal(t, "Direct", list[0].Title)
			assert.Equal(t, domain.SeverityInfo, list[0].Severity)
		} else {
			require.Len(t, list, 1)
		}
		assert.Equal(t, "v1", list[len(list)-1].RelatedID)
	}
}

func TestDispatcherContinuesAfterMemberFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	groupID, ids := seedGroup(t, store, "ann", "ben", "cid")
	logger, hook := test.NewNullLogger()

	sink := MultiSink{NewStoreSink(store), failingSink{userID: ids[1]}}
	d := NewDispatcher(NewMemoryQueue(1, 0), store, sink, logger)

	err := d.Handle(ctx, Job{Target: TargetGroup, GroupID: groupID, Message: domain.NotificationMessage{Title: "Payout"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")
	assert.Len(t, hook.AllEntries(), 1)

	for _, id := range ids {
		list, err := store.ListNotifications(ctx, id, false)
		require.NoError(t, err)
		assert.Len(t, list, 1, "user %d", id)
	}
}

func TestTelegramSink(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	chat := int64(555)
	linked := &domain.User{Username: "tg", TelegramChatID: &chat}
	plain := &domain.User{Username: "web"}
	require.NoError(t, store.CreateUser(ctx, linked))
	require.NoError(t, store.CreateUser(ctx, plain))

	sender := &fakeSender{}
	sink := NewTelegramSink(sender, store)
	msg := domain.NotificationMessage{Title: "Paid", Message: "done", Severity: domain.SeveritySuccess}

	require.NoError(t, sink.Deliver(ctx, linked.ID, msg))
	require.NoError(t, sink.Deliver(ctx, plain.ID, msg))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(555), sender.sent[0].ChatID)
	assert.Equal(t, "✅ Paid\n\ndone", sender.sent[0].Text)

	sender.err = errors.New("forbidden")
	assert.Error(t, sink.Deliver(ctx, linked.ID, msg))
	assert.ErrorIs(t, sink.Deliver(ctx, 999, msg), domain.ErrNotFound)
}

func TestCachedMembersWithoutRedis(t *testing.T) {
	inner := &countingMembers{ids: []uint{4, 5}}
	logger, _ := test.NewNullLogger()
	m := NewCachedMembers(inner, nil, time.Minute, logger)

	for i := 0; i < 2; i++ {
		ids, err := m.ListMembers(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, []uint{4, 5}, ids)
	}
	assert.Equal(t, 2, inner.calls)
	assert.NoError(t, m.Invalidate(context.Background(), 1))
}

func TestDispatcherRunStopsOnCancel(t *testing.T) {
	store := memory.New()
	_, ids := seedGroup(t, store, "ann")
	logger, _ := test.NewNullLogger()
	q := NewMemoryQueue(4, 5*time.Millisecond)
	require.NoError(t, NewQueueNotifier(q).NotifyUser(context.Background(), ids[0], domain.NotificationMessage{Title: "hi"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewDispatcher(q, store, NewStoreSink(store), logger).Run(ctx) }()

	assert.Eventually(t, func() bool {
		list, _ := store.ListNotifications(context.Background(), ids[0], false)
		return len(list) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(1, 0)
	require.NoError(t, q.Enqueue(context.Background(), Job{}))
	assert.Error(t, q.Enqueue(context.Background(), Job{}))
}
