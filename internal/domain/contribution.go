package domain

import (
	"time" // Time handling

	"group_fund/internal/duration" // End date resolution

	"github.com/google/uuid"        // UUID generation
	"github.com/shopspring/decimal" // Decimal amounts
	"gorm.io/gorm"                  // GORM ORM library
)

// ContributionType tells whether a campaign works toward a target.
type ContributionType string

const (
	ContributionFixedGoal ContributionType = "fixed_goal"
	ContributionOpenEnded ContributionType = "open_ended"
)

// Valid reports whether t is a known campaign type.
func (t ContributionType) Valid() bool {
	return t == ContributionFixedGoal || t == ContributionOpenEnded
}

// ContributionStatus is the lifecycle phase of a campaign.
type ContributionStatus string

const (
	ContributionActive        ContributionStatus = "active"
	ContributionEnded         ContributionStatus = "ended"
	ContributionPayoutPending ContributionStatus = "payout_pending"
	ContributionCompleted     ContributionStatus = "completed"
	ContributionCancelled     ContributionStatus = "cancelled"
)

var contributionRank = map[ContributionStatus]int{
	ContributionActive:        0,
	ContributionEnded:         1,
	ContributionPayoutPending: 2,
	ContributionCompleted:     3,
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle
// moving forward. Cancelled is terminal and only reachable before payout.
func (s ContributionStatus) CanAdvanceTo(next ContributionStatus) bool {
	if next == ContributionCancelled {
		return s == ContributionActive || s == ContributionEnded
	}
	from, ok := contributionRank[s]
	if !ok {
		return false
	}
	to, ok := contributionRank[next]
	if !ok {
		return false
	}
	return to > from
}

// DefaultPlatformFee is the percentage withheld from a payout.
var DefaultPlatformFee = decimal.NewFromFloat(2.5)

// Contribution is a group campaign that pools funds toward a shared goal.
type Contribution struct {
	ID               string             `gorm:"primaryKey;size:36" json:"id"`
	GroupID          uint               `gorm:"index;not null" json:"group_id"`
	Title            string             `gorm:"size:255;not null" json:"title"`
	Description      string             `gorm:"type:text" json:"description"`
	Type             ContributionType   `gorm:"size:16;not null" json:"type"`
	TargetAmount     *decimal.Decimal   `gorm:"type:decimal(20,8)" json:"target_amount,omitempty"`
	Currency         string             `gorm:"size:16;not null" json:"currency"`
	Status           ContributionStatus `gorm:"size:16;index;not null;default:active" json:"status"`
	TotalContributed decimal.Decimal    `gorm:"type:decimal(20,8);not null;default:0" json:"total_contributed"` // Running hint; reads recompute from the ledger
	PlatformFee      decimal.Decimal    `gorm:"type:decimal(5,2);not null;default:2.5" json:"platform_fee"`    // Percent
	CreatedBy        uint               `gorm:"index;not null" json:"created_by"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	EndDate          *time.Time         `gorm:"index" json:"end_date"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (c *Contribution) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsEnded is true iff an end date is set and now is past it.
func (c *Contribution) IsEnded(now time.Time) bool {
	return duration.Ended(c.EndDate, now)
}

// Payment methods a contributor may use.
const (
	PaymentWallet   = "wallet"
	PaymentExternal = "external"
)

// Contributor is one pledge recorded against a contribution. Entries are
// never merged and never change once WalletTxID is set.
type Contributor struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	ContributionID  string          `gorm:"index;size:36;not null" json:"contribution_id"`
	UserID          uint            `gorm:"index;not null" json:"user_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
	Currency        string          `gorm:"size:16;not null" json:"currency"`
	PaymentMethod   string          `gorm:"size:16;not null;default:external" json:"payment_method"`
	WalletTxID      *string         `gorm:"size:64;index" json:"wallet_tx_id"`
	SettleAttempts  int             `gorm:"not null;default:0" json:"settle_attempts"`
	LastSettleError string          `gorm:"size:512" json:"last_settle_error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (c *Contributor) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Unsettled reports whether a wallet pledge still lacks a wallet transaction.
func (c *Contributor) Unsettled() bool {
	return c.PaymentMethod == PaymentWallet && c.WalletTxID == nil
}

// TransferReference is the idempotency key used for the pledge's wallet transfer.
func (c *Contributor) TransferReference() string {
	return "contribution:" + c.ID
}

// SumContributors adds up every entry amount, settled or not.
func SumContributors(entries []Contributor) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// ContributionDetails is a campaign assembled with its ledger.
type ContributionDetails struct {
	Contribution
	Contributors []Contributor `json:"contributors"`
	Ended        bool          `json:"ended"`
}
