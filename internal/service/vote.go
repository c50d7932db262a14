package service

import (
	"context" // Context for blocking calls
	"fmt"     // Error formatting
	"strings" // String helpers

	"group_fund/internal/domain"   // Importing domain models
	"group_fund/internal/duration" // End date resolution
	"group_fund/internal/events"   // Domain events
	"group_fund/internal/tally"    // Vote counting

	"github.com/sirupsen/logrus" // Structured logging
)

// CreateVoteInput is the request to open a vote.
type CreateVoteInput struct {
	GroupID            uint
	Topic              string
	Description        string
	Options            []string
	RequiredPercentage float64 // 0 uses the default
	Duration           *duration.Spec
}

// VoteDetails is a vote resolved against its current responses.
type VoteDetails struct {
	domain.Vote
	Responses  []domain.VoteResponse `json:"responses"`
	Counts     tally.Counts          `json:"counts"`
	TotalVotes int                   `json:"total_votes"`
	Leader     string                `json:"leader,omitempty"`
	Tie        bool                  `json:"tie"`
	Percentage float64               `json:"percentage"`
	Passed     bool                  `json:"passed"`
	Ended      bool                  `json:"ended"`
	UserChoice *string               `json:"user_vote"`
}

// VoteService runs votes and their responses.
type VoteService struct {
	deps Deps
}

func NewVoteService(deps Deps) *VoteService {
	return &VoteService{deps: deps.withDefaults()}
}

// CreateVote validates and stores a new vote. Options must be at least two
// distinct non-empty strings; their order is kept and never changes.
func (s *VoteService) CreateVote(ctx context.Context, actorID uint, in CreateVoteInput) (*domain.Vote, error) {
	const op = "create vote"

	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, domain.Validation(op, "topic is required")
	}
	options := make([]string, 0, len(in.Options))
	seen := make(map[string]struct{}, len(in.Options))
	for _, o := range in.Options {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, domain.Validation(op, "options must not be empty")
		}
		if _, dup := seen[o]; dup {
			return nil, domain.Validation(op, "duplicate option %q", o)
		}
		seen[o] = struct{}{}
		options = append(options, o)
	}
	if len(options) < 2 {
		return nil, domain.Validation(op, "at least two options are required")
	}
	required := in.RequiredPercentage
	if required == 0 {
		required = domain.DefaultRequiredPercentage
	}
	if required <= 0 || required > 100 {
		return nil, domain.Validation(op, "required_percentage must be in (0, 100]")
	}
	end, err := duration.Resolve(s.deps.Now(), in.Duration, duration.VoteUnits)
	if err != nil {
		return nil, domain.Validation(op, "%s", err.Error())
	}

	v := &domain.Vote{
		GroupID:            in.GroupID,
		Topic:              topic,
		Description:        strings.TrimSpace(in.Description),
		Options:            options,
		RequiredPercentage: required,
		EndDate:            end,
		CreatedBy:          actorID,
	}
	if err := s.deps.Votes.CreateVote(ctx, v); err != nil {
		return nil, err
	}

	s.deps.Logger.WithFields(logrus.Fields{
		"vote_id":    v.ID,
		"group_id":   v.GroupID,
		"created_by": actorID,
		"options":    len(v.Options),
	}).Info("Vote created")

	s.deps.notifyGroup(ctx, v.GroupID, domain.NotificationMessage{
		Title:     "New Group Vote",
		Message:   fmt.Sprintf("A new vote %q has been created", v.Topic),
		Severity:  domain.SeverityInfo,
		RelatedID: v.ID,
	})
	s.deps.publish(ctx, events.VoteCreated, v.ID, v)
	return v, nil
}

// IsEnded evaluates expiry against the service clock.
func (s *VoteService) IsEnded(v *domain.Vote) bool {
	return v.IsEnded(s.deps.Now())
}

// SubmitResponse records or replaces userID's choice. Late submissions are
// rejected here; the store itself would accept them.
func (s *VoteService) SubmitResponse(ctx context.Context, voteID string, userID uint, choice string) (*domain.VoteResponse, error) {
	const op = "submit vote"

	v, err := s.deps.Votes.GetVote(ctx, voteID)
	if err != nil {
		return nil, err
	}
	if !v.HasOption(choice) {
		return nil, domain.Validation(op, "choice %q is not one of the vote options", choice)
	}
	if s.IsEnded(v) {
		return nil, domain.InvalidState(op, "vote has ended")
	}
	r, err := s.deps.Votes.UpsertResponse(ctx, &domain.VoteResponse{
		VoteID:    v.ID,
		UserID:    userID,
		Choice:    choice,
		Timestamp: s.deps.Now(),
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.WithFields(logrus.Fields{
		"vote_id": v.ID,
		"user_id": userID,
	}).Debug("Vote response recorded")
	s.deps.publish(ctx, events.VoteResponded, v.ID, r)
	return r, nil
}

// GetVote resolves a vote on read: counts, leader and quorum are computed
// from the responses stored right now. viewerID 0 skips the viewer's choice.
func (s *VoteService) GetVote(ctx context.Context, voteID string, viewerID uint) (*VoteDetails, error) {
	v, err := s.deps.Votes.GetVote(ctx, voteID)
	if err != nil {
		return nil, err
	}
	responses, err := s.deps.Votes.ListResponses(ctx, voteID)
	if err != nil {
		return nil, err
	}
	counts := tally.Count(v.Options, responses)
	leader, _, tie := tally.Leader(counts)
	d := &VoteDetails{
		Vote:       *v,
		Responses:  responses,
		Counts:     counts,
		TotalVotes: counts.Total(),
		Leader:     leader,
		Tie:        tie,
		Percentage: tally.Percentage(counts),
		Passed:     tally.HasPassed(v.RequiredPercentage, counts),
		Ended:      s.IsEnded(v),
	}
	if viewerID != 0 {
		for _, r := range responses {
			if r.UserID == viewerID {
				choice := r.Choice
				d.UserChoice = &choice
				break
			}
		}
	}
	return d, nil
}

// VoteSummary is a vote with its response count, as listed for a group.
type VoteSummary struct {
	domain.Vote
	TotalVotes int  `json:"total_votes"`
	Ended      bool `json:"ended"`
}

// ListGroupVotes returns the group's votes, newest first, with counts.
func (s *VoteService) ListGroupVotes(ctx context.Context, groupID uint) ([]VoteSummary, error) {
	votes, err := s.deps.Votes.ListVotesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]VoteSummary, 0, len(votes))
	for i := range votes {
		responses, err := s.deps.Votes.ListResponses(ctx, votes[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, VoteSummary{
			Vote:       votes[i],
			TotalVotes: tally.Count(votes[i].Options, responses).Total(),
			Ended:      s.IsEnded(&votes[i]),
		})
	}
	return out, nil
}
