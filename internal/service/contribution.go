package service

import (
	"context" // Context for blocking calls
	"errors"  // Sentinel errors
	"fmt"     // Error formatting
	"strings" // String helpers

	"group_fund/internal/domain"   // Importing domain models
	"group_fund/internal/duration" // End date resolution
	"group_fund/internal/events"   // Domain events
	"group_fund/internal/wallet"   // Wallet transfer gateway

	"github.com/shopspring/decimal" // Decimal amounts
	"github.com/sirupsen/logrus"    // Structured logging
)

// ErrUnsettled marks a pledge that was recorded but whose wallet transfer
// failed. It is returned wrapped in a Dependency error alongside the entry.
var ErrUnsettled = errors.New("pledge recorded but wallet transfer did not settle")

// unsettledError carries the transfer failure and matches ErrUnsettled.
type unsettledError struct{ cause error }

func (e unsettledError) Error() string        { return e.cause.Error() }
func (e unsettledError) Unwrap() error        { return e.cause }
func (e unsettledError) Is(target error) bool { return target == ErrUnsettled }

// CreateContributionInput is the request to open a campaign.
type CreateContributionInput struct {
	GroupID      uint
	Title        string
	Description  string
	Type         domain.ContributionType
	TargetAmount *decimal.Decimal
	Currency     string
	PlatformFee  *decimal.Decimal // Percent; nil uses the default
	Duration     *duration.Spec
}

// ContributeInput is one pledge toward a campaign.
type ContributeInput struct {
	ContributionID string
	UserID         uint
	Amount         decimal.Decimal
	Currency       string
	PaymentMethod  string
}

// ContributionService runs campaigns and their contributor ledger.
type ContributionService struct {
	deps Deps
}

func NewContributionService(deps Deps) *ContributionService {
	return &ContributionService{deps: deps.withDefaults()}
}

// CreateCampaign validates and stores a new active campaign.
func (s *ContributionService) CreateCampaign(ctx context.Context, actorID uint, in CreateContributionInput) (*domain.Contribution, error) {
	const op = "create contribution"

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.Validation(op, "title is required")
	}
	if !in.Type.Valid() {
		return nil, domain.Validation(op, "unknown contribution type %q", in.Type)
	}
	if in.Type == domain.ContributionFixedGoal {
		if in.TargetAmount == nil || !in.TargetAmount.IsPositive() {
			return nil, domain.Validation(op, "fixed_goal contribution requires a positive target_amount")
		}
	}
	fee := domain.DefaultPlatformFee
	if in.PlatformFee != nil {
		fee = *in.PlatformFee
		if fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			return nil, domain.Validation(op, "platform_fee must be in [0, 100)")
		}
	}
	now := s.deps.Now()
	end, err := duration.Resolve(now, in.Duration, duration.ContributionUnits)
	if err != nil {
		return nil, domain.Validation(op, "%s", err.Error())
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	c := &domain.Contribution{
		GroupID:          in.GroupID,
		Title:            title,
		Description:      strings.TrimSpace(in.Description),
		Type:             in.Type,
		Currency:         currency,
		Status:           domain.ContributionActive,
		TotalContributed: decimal.Zero,
		PlatformFee:      fee,
		CreatedBy:        actorID,
		EndDate:          end,
	}
	if in.Type == domain.ContributionFixedGoal {
		c.TargetAmount = in.TargetAmount
	}
	if err := s.deps.Contributions.CreateContribution(ctx, c); err != nil {
		return nil, err
	}

	s.deps.Logger.WithFields(logrus.Fields{
		"contribution_id": c.ID,
		"group_id":        c.GroupID,
		"created_by":      actorID,
		"type":            c.Type,
	}).Info("Contribution created")

	s.deps.notifyGroup(ctx, c.GroupID, domain.NotificationMessage{
		Title:     "New Group Contribution",
		Message:   fmt.Sprintf("A new contribution %q has been created", c.Title),
		Severity:  domain.SeverityInfo,
		RelatedID: c.ID,
	})
	s.deps.publish(ctx, events.ContributionCreated, c.ID, c)
	return c, nil
}

// GetCampaign returns a campaign with its full ledger. The total is always
// recomputed from the entries; the stored column is only a hint.
func (s *ContributionService) GetCampaign(ctx context.Context, id string) (*domain.ContributionDetails, error) {
	c, err := s.deps.Contributions.GetContribution(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.deps.Contributions.ListContributors(ctx, id)
	if err != nil {
		return nil, err
	}
	c.TotalContributed = domain.SumContributors(entries)
	return &domain.ContributionDetails{
		Contribution: *c,
		Contributors: entries,
		Ended:        s.IsEnded(c),
	}, nil
}

// IsEnded evaluates expiry against the service clock.
func (s *ContributionService) IsEnded(c *domain.Contribution) bool {
	return c.IsEnded(s.deps.Now())
}

// CloseCampaign ends an active campaign before its end date so it can be paid out.
func (s *ContributionService) CloseCampaign(ctx context.Context, id string) (*domain.Contribution, error) {
	c, err := s.deps.Contributions.GetContribution(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.ContributionActive {
		return nil, domain.InvalidState("close contribution", "contribution is %s", c.Status)
	}
	if err := s.deps.Contributions.AdvanceContribution(ctx, id, domain.ContributionActive, domain.ContributionEnded); err != nil {
		return nil, err
	}
	c.Status = domain.ContributionEnded
	s.deps.Logger.WithField("contribution_id", id).Info("Contribution closed")
	return c, nil
}

// ListGroupCampaigns returns the group's campaigns, newest first.
func (s *ContributionService) ListGroupCampaigns(ctx context.Context, groupID uint) ([]domain.Contribution, error) {
	return s.deps.Contributions.ListContributionsByGroup(ctx, groupID)
}

// UserContributions returns the entries a user made toward a campaign.
func (s *ContributionService) UserContributions(ctx context.Context, contributionID string, userID uint) ([]domain.Contributor, error) {
	if _, err := s.deps.Contributions.GetContribution(ctx, contributionID); err != nil {
		return nil, err
	}
	return s.deps.Contributions.ListUserContributors(ctx, contributionID, userID)
}

// TotalFor sums every entry of a campaign, settled or not.
func (s *ContributionService) TotalFor(ctx context.Context, contributionID string) (decimal.Decimal, error) {
	entries, err := s.deps.Contributions.ListContributors(ctx, contributionID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.SumContributors(entries), nil
}

// Contribute records a pledge and, for wallet payments, settles it with a
// transfer to the campaign owner. When the transfer fails the entry stays
// recorded and is returned together with an error wrapping ErrUnsettled.
// The campaign owner's pledges default to external payment.
func (s *ContributionService) Contribute(ctx context.Context, in ContributeInput) (*domain.Contributor, error) {
	const op = "contribute"

	if !in.Amount.IsPositive() {
		return nil, domain.Validation(op, "amount must be positive")
	}
	method := in.PaymentMethod
	if method != "" && method != domain.PaymentWallet && method != domain.PaymentExternal {
		return nil, domain.Validation(op, "unknown payment_method %q", method)
	}
	c, err := s.deps.Contributions.GetContribution(ctx, in.ContributionID)
	if err != nil {
		return nil, err
	}
	// The owner's wallet is the payout destination, so an owner pledge has
	// nothing to transfer.
	switch {
	case method == "" && in.UserID == c.CreatedBy:
		method = domain.PaymentExternal
	case method == "":
		method = domain.PaymentWallet
	case method == domain.PaymentWallet && in.UserID == c.CreatedBy:
		return nil, domain.Validation(op, "campaign owner cannot pay from their own wallet; use payment_method external")
	}
	if c.Status != domain.ContributionActive {
		return nil, domain.InvalidState(op, "contribution is %s", c.Status)
	}
	if s.IsEnded(c) {
		return nil, domain.InvalidState(op, "contribution has ended")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = c.Currency
	}
	if currency != c.Currency {
		return nil, domain.Validation(op, "currency must be %s", c.Currency)
	}

	entry := &domain.Contributor{
		ContributionID: c.ID,
		UserID:         in.UserID,
		Amount:         in.Amount,
		Currency:       currency,
		PaymentMethod:  method,
	}
	if err := s.deps.Contributions.AddContributor(ctx, entry); err != nil {
		return nil, err
	}

	log := s.deps.Logger.WithFields(logrus.Fields{
		"contribution_id": c.ID,
		"entry_id":        entry.ID,
		"user_id":         in.UserID,
		"amount":          in.Amount.String(),
		"payment_method":  method,
	})

	var settleErr error
	if method == domain.PaymentWallet {
		settleErr = s.settle(ctx, c, entry)
	}

	if settleErr != nil {
		log.WithField("error", settleErr.Error()).Warn("Contribution recorded without wallet settlement")
		s.deps.publish(ctx, events.ContributionUnsettled, c.ID, entry)
		s.deps.notifyUser(ctx, in.UserID, domain.NotificationMessage{
			Title:     "Contribution Pending",
			Message:   fmt.Sprintf("Your contribution of %s %s to %q is recorded but payment has not settled yet", in.Amount, currency, c.Title),
			Severity:  domain.SeverityWarning,
			RelatedID: c.ID,
		})
		return entry, domain.Dependency(op, ErrUnsettled.Error(), unsettledError{settleErr})
	}

	log.Info("Contribution recorded")
	s.deps.publish(ctx, events.ContributionPledged, c.ID, entry)
	if c.CreatedBy != in.UserID {
		s.deps.notifyUser(ctx, c.CreatedBy, domain.NotificationMessage{
			Title:     "New Contribution Received",
			Message:   fmt.Sprintf("%s %s was contributed to %q", in.Amount, currency, c.Title),
			Severity:  domain.SeveritySuccess,
			RelatedID: c.ID,
		})
	}
	s.deps.notifyUser(ctx, in.UserID, domain.NotificationMessage{
		Title:     "Contribution Successful",
		Message:   fmt.Sprintf("You contributed %s %s to %q", in.Amount, currency, c.Title),
		Severity:  domain.SeveritySuccess,
		RelatedID: c.ID,
	})
	return entry, nil
}

// settle transfers an entry's amount to the campaign owner and attaches the
// wallet transaction id. Failures are recorded on the entry.
func (s *ContributionService) settle(ctx context.Context, c *domain.Contribution, entry *domain.Contributor) error {
	if s.deps.Wallet == nil {
		err := errors.New("wallet gateway not configured")
		s.recordFailure(ctx, entry, err)
		return err
	}
	res, err := s.deps.Wallet.Transfer(ctx, wallet.TransferRequest{
		FromUserID: entry.UserID,
		ToUserID:   c.CreatedBy,
		Amount:     entry.Amount,
		Currency:   entry.Currency,
		Memo:       "Contribution to " + c.Title,
		Reference:  entry.TransferReference(),
	})
	if err == nil && (!res.Success || res.TransactionID == "") {
		err = errors.New("wallet transfer was not confirmed")
	}
	if err != nil {
		s.recordFailure(ctx, entry, err)
		return err
	}
	if err := s.deps.Contributions.MarkSettled(ctx, entry.ID, res.TransactionID); err != nil {
		return fmt.Errorf("attach wallet transaction %s: %w", res.TransactionID, err)
	}
	txID := res.TransactionID
	entry.WalletTxID = &txID
	return nil
}

func (s *ContributionService) recordFailure(ctx context.Context, entry *domain.Contributor, cause error) {
	entry.SettleAttempts++
	entry.LastSettleError = cause.Error()
	if err := s.deps.Contributions.RecordSettleFailure(ctx, entry.ID, cause.Error()); err != nil {
		s.deps.Logger.WithFields(logrus.Fields{
			"entry_id": entry.ID,
			"error":    err.Error(),
		}).Error("Recording settlement failure failed")
	}
}
