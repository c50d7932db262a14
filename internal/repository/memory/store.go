// Package memory is an in-process implementation of every store, with the
// same uniqueness rules the SQL schema enforces. It backs tests and local runs.
package memory

import (
	"context" // Context for blocking calls
	"slices"  // Slice helpers
	"sort"    // Ordering
	"sync"    // Mutex
	"time"    // Time handling

	"group_fund/internal/domain" // Importing domain models

	"github.com/google/uuid" // UUID generation
)

type Store struct {
	mu sync.Mutex

	users         map[uint]domain.User
	nextUserID    uint
	groups        map[uint]domain.Group
	nextGroupID   uint
	members       map[uint][]uint
	notifications []domain.Notification

	contributions map[string]domain.Contribution
	contributors  []domain.Contributor
	payouts       map[string]domain.ContributionPayout
	votes         map[string]domain.Vote
	responses     map[string]map[uint]domain.VoteResponse

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:         map[uint]domain.User{},
		groups:        map[uint]domain.Group{},
		members:       map[uint][]uint{},
		contributions: map[string]domain.Contribution{},
		payouts:       map[string]domain.ContributionPayout{},
		votes:         map[string]domain.Vote{},
		responses:     map[string]map[uint]domain.VoteResponse{},
		now:           time.Now,
	}
}

// WithClock sets the clock used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Users

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return domain.AlreadyExists("create user", "username already exists")
		}
	}
	s.nextUserID++
	u.ID = s.nextUserID
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id uint) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.NotFound("get user", "user not found")
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.NotFound("get user", "user not found")
}

// ListUsers returns a page of users, newest first.
func (s *Store) ListUsers(_ context.Context, page, pageSize int) ([]domain.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start < 0 || start >= len(all) {
		return []domain.User{}, total, nil
	}
	end := min(start+pageSize, len(all))
	return all[start:end], total, nil
}

// Groups

func (s *Store) CreateGroup(_ context.Context, g *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGroupID++
	g.ID = s.nextGroupID
	g.CreatedAt = s.now()
	s.groups[g.ID] = *g
	s.members[g.ID] = append(s.members[g.ID], g.CreatedBy)
	return nil
}

func (s *Store) GetGroup(_ context.Context, id uint) (*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, domain.NotFound("get group", "group not found")
	}
	return &g, nil
}

func (s *Store) AddMember(_ context.Context, groupID, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return domain.NotFound("add member", "group not found")
	}
	if slices.Contains(s.members[groupID], userID) {
		return domain.AlreadyExists("add member", "user is already a member")
	}
	s.members[groupID] = append(s.members[groupID], userID)
	return nil
}

func (s *Store) ListMembers(_ context.Context, groupID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.members[groupID]), nil
}

func (s *Store) IsMember(_ context.Context, groupID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.members[groupID], userID), nil
}

// Notifications

func (s *Store) CreateNotification(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = uint(len(s.notifications) + 1)
	n.CreatedAt = s.now()
	if n.Severity == "" {
		n.Severity = domain.SeverityInfo
	}
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID uint, unreadOnly bool) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID == id && n.UserID == userID {
			if n.ReadAt == nil {
				at := s.now()
				n.ReadAt = &at
			}
			return nil
		}
	}
	return domain.NotFound("mark notification", "notification not found")
}

// Contributions

func (s *Store) CreateContribution(_ context.Context, c *domain.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := s.contributions[c.ID]; ok {
		return domain.AlreadyExists("create contribution", "contribution already exists")
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.contributions[c.ID] = *c
	return nil
}

func (s *Store) GetContribution(_ context.Context, id string) (*domain.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributions[id]
	if !ok {
		return nil, domain.NotFound("get contribution", "contribution not found")
	}
	return &c, nil
}

func (s *Store) ListContributionsByGroup(_ context.Context, groupID uint) ([]domain.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Contribution
	for _, c := range s.contributions {
		if c.GroupID == groupID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListDueContributions(_ context.Context, now time.Time) ([]domain.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Contribution
	for _, c := range s.contributions {
		if c.Status == domain.ContributionActive && c.EndDate != nil && !c.EndDate.After(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(*out[j].EndDate) })
	return out, nil
}

func (s *Store) AdvanceContribution(_ context.Context, id string, from, to domain.ContributionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked(id, from, to)
}

func (s *Store) advanceLocked(id string, from, to domain.ContributionStatus) error {
	c, ok := s.contributions[id]
	if !ok {
		return domain.NotFound("advance contribution", "contribution not found")
	}
	if c.Status != from || !from.CanAdvanceTo(to) {
		return domain.InvalidState("advance contribution", "contribution is %s", c.Status)
	}
	c.Status = to
	c.UpdatedAt = s.now()
	s.contributions[id] = c
	return nil
}

func (s *Store) AddContributor(_ context.Context, e *domain.Contributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributions[e.ContributionID]
	if !ok {
		return domain.NotFound("add contributor", "contribution not found")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = s.now()
	s.contributors = append(s.contributors, *e)
	c.TotalContributed = c.TotalContributed.Add(e.Amount)
	s.contributions[c.ID] = c
	return nil
}

func (s *Store) ListContributors(_ context.Context, contributionID string) ([]domain.Contributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Contributor
	for _, e := range s.contributors {
		if e.ContributionID == contributionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListUserContributors(_ context.Context, contributionID string, userID uint) ([]domain.Contributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Contributor
	for _, e := range s.contributors {
		if e.ContributionID == contributionID && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) MarkSettled(_ context.Context, entryID, walletTxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contributors {
		e := &s.contributors[i]
		if e.ID != entryID {
			continue
		}
		if e.WalletTxID != nil {
			return domain.InvalidState("mark settled", "entry already settled")
		}
		tx := walletTxID
		e.WalletTxID = &tx
		e.LastSettleError = ""
		return nil
	}
	return domain.NotFound("mark settled", "entry not found")
}

func (s *Store) RecordSettleFailure(_ context.Context, entryID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contributors {
		e := &s.contributors[i]
		if e.ID == entryID {
			e.SettleAttempts++
			e.LastSettleError = reason
			return nil
		}
	}
	return domain.NotFound("record settle failure", "entry not found")
}

func (s *Store) ListUnsettled(_ context.Context, maxAttempts, limit int) ([]domain.Contributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Contributor
	for _, e := range s.contributors {
		if !e.Unsettled() || (maxAttempts > 0 && e.SettleAttempts >= maxAttempts) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Payouts

func (s *Store) CreatePayout(_ context.Context, p *domain.ContributionPayout, from domain.ContributionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payouts {
		if existing.ContributionID == p.ContributionID {
			return domain.AlreadyExists("create payout", "payout already processed")
		}
	}
	if err := s.advanceLocked(p.ContributionID, from, domain.ContributionPayoutPending); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.payouts[p.ID] = *p
	return nil
}

func (s *Store) GetPayout(_ context.Context, id string) (*domain.ContributionPayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payouts[id]
	if !ok {
		return nil, domain.NotFound("get payout", "payout not found")
	}
	return &p, nil
}

func (s *Store) GetPayoutByContribution(_ context.Context, contributionID string) (*domain.ContributionPayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payouts {
		if p.ContributionID == contributionID {
			return &p, nil
		}
	}
	return nil, domain.NotFound("get payout", "payout not found")
}

func (s *Store) FinishPayout(_ context.Context, id string, status domain.PayoutStatus, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payouts[id]
	if !ok {
		return domain.NotFound("finish payout", "payout not found")
	}
	if p.Status != domain.PayoutProcessing {
		return domain.InvalidState("finish payout", "payout is %s", p.Status)
	}
	if status == domain.PayoutCompleted {
		if err := s.advanceLocked(p.ContributionID, domain.ContributionPayoutPending, domain.ContributionCompleted); err != nil {
			return err
		}
		processed := at
		p.ProcessedAt = &processed
	}
	p.Status = status
	p.FailureReason = reason
	p.UpdatedAt = at
	s.payouts[id] = p
	return nil
}

func (s *Store) ListPayoutsByStatus(_ context.Context, status domain.PayoutStatus, limit int) ([]domain.ContributionPayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ContributionPayout
	for _, p := range s.payouts {
		if p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Votes

func (s *Store) CreateVote(_ context.Context, v *domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = s.now()
	v.Options = slices.Clone(v.Options)
	s.votes[v.ID] = *v
	return nil
}

func (s *Store) GetVote(_ context.Context, id string) (*domain.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.votes[id]
	if !ok {
		return nil, domain.NotFound("get vote", "vote not found")
	}
	v.Options = slices.Clone(v.Options)
	return &v, nil
}

func (s *Store) ListVotesByGroup(_ context.Context, groupID uint) ([]domain.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Vote
	for _, v := range s.votes {
		if v.GroupID == groupID {
			v.Options = slices.Clone(v.Options)
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpsertResponse(_ context.Context, r *domain.VoteResponse) (*domain.VoteResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.votes[r.VoteID]; !ok {
		return nil, domain.NotFound("submit vote", "vote not found")
	}
	byUser, ok := s.responses[r.VoteID]
	if !ok {
		byUser = map[uint]domain.VoteResponse{}
		s.responses[r.VoteID] = byUser
	}
	stored, exists := byUser[r.UserID]
	if !exists {
		stored = *r
		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
	} else {
		stored.Choice = r.Choice
		stored.Timestamp = r.Timestamp
	}
	byUser[r.UserID] = stored
	return &stored, nil
}

func (s *Store) ListResponses(_ context.Context, voteID string) ([]domain.VoteResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.VoteResponse, 0, len(s.responses[voteID]))
	for _, r := range s.responses[voteID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
