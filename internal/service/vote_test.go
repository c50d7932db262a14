package service

import (
	"context"
	"testing"
	"time"

	"group_fund/internal/domain"
	"group_fund/internal/duration"
	"group_fund/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) vote(t *testing.T, options ...string) *domain.Vote {
	t.Helper()
	v, err := f.votes.CreateVote(context.Background(), owner, CreateVoteInput{
		GroupID:  10,
		Topic:    "Where to go",
		Options:  options,
		Duration: &duration.Spec{Value: 2, Unit: duration.Hours},
	})
	require.NoError(t, err)
	return v
}

func TestCreateVote(t *testing.T) {
	f := newFixture(t)
	v := f.vote(t, " Beach ", "Mountains")

	assert.Equal(t, []string{"Beach", "Mountains"}, v.Options)
	assert.Equal(t, domain.DefaultRequiredPercentage, v.RequiredPercentage)
	require.NotNil(t, v.EndDate)
	assert.Equal(t, f.clock.Now().Add(2*time.Hour), *v.EndDate)
	assert.Contains(t, f.notifier.titles(), "New Group Vote")
	assert.Equal(t, []string{events.VoteCreated}, f.events.Types())
}

func TestCreateVoteValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := map[string]CreateVoteInput{
		"single option":    {Topic: "x", Options: []string{"only"}},
		"duplicate option": {Topic: "x", Options: []string{"A", "A"}},
		"blank option":     {Topic: "x", Options: []string{"A", " "}},
		"no topic":         {Topic: "", Options: []string{"A", "B"}},
		"months":           {Topic: "x", Options: []string{"A", "B"}, Duration: &duration.Spec{Value: 1, Unit: duration.Months}},
		"percentage":       {Topic: "x", Options: []string{"A", "B"}, RequiredPercentage: 120},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.votes.CreateVote(ctx, owner, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestSubmitResponseLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vote(t, "A", "B")

	for _, choice := range []string{"A", "B", "A"} {
		_, err := f.votes.SubmitResponse(ctx, v.ID, alice, choice)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	d, err := f.votes.GetVote(ctx, v.ID, alice)
	require.NoError(t, err)
	require.Len(t, d.Responses, 1)
	assert.Equal(t, "A", d.Responses[0].Choice)
	assert.Equal(t, f.clock.Now().Add(-time.Minute), d.Responses[0].Timestamp)
	require.NotNil(t, d.UserChoice)
	assert.Equal(t, "A", *d.UserChoice)
	assert.Equal(t, 1, d.TotalVotes)
}

func TestSubmitResponseRejectsUnknownChoice(t *testing.T) {
	f := newFixture(t)
	v := f.vote(t, "A", "B")

	_, err := f.votes.SubmitResponse(context.Background(), v.ID, alice, "C")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.votes.SubmitResponse(context.Background(), "missing", alice, "A")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitResponseAfterEnd(t *testing.T) {
	f := newFixture(t)
	v := f.vote(t, "A", "B")
	f.clock.Advance(3 * time.Hour)

	_, err := f.votes.SubmitResponse(context.Background(), v.ID, alice, "A")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	d, err := f.votes.GetVote(context.Background(), v.ID, 0)
	require.NoError(t, err)
	assert.True(t, d.Ended)
	assert.Zero(t, d.TotalVotes)
	assert.False(t, d.Passed)
}

func TestGetVoteResolvesQuorum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vote(t, "A", "B")

	choices := map[uint]string{1: "A", 2: "A", 3: "A", 4: "B"}
	for user, choice := range choices {
		_, err := f.votes.SubmitResponse(ctx, v.ID, user, choice)
		require.NoError(t, err)
	}

	d, err := f.votes.GetVote(ctx, v.ID, 99)
	require.NoError(t, err)
	assert.Equal(t, 4, d.TotalVotes)
	assert.Equal(t, "A", d.Leader)
	assert.False(t, d.Tie)
	assert.Equal(t, 75.0, d.Percentage)
	assert.True(t, d.Passed)
	assert.Nil(t, d.UserChoice)
	assert.Equal(t, "A", d.Counts[0].Option)
	assert.Equal(t, 3, d.Counts[0].Count)

	// Switching one voter makes it a 50/50 tie that fails quorum.
	_, err = f.votes.SubmitResponse(ctx, v.ID, 1, "B")
	require.NoError(t, err)
	d, err = f.votes.GetVote(ctx, v.ID, 1)
	require.NoError(t, err)
	assert.True(t, d.Tie)
	assert.False(t, d.Passed)
	assert.Equal(t, "A", d.Leader)

	list, err := f.votes.ListGroupVotes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].TotalVotes)
}
