package domain

import (
	"time" // Time handling

	"github.com/google/uuid"        // UUID generation
	"github.com/shopspring/decimal" // Decimal amounts
	"gorm.io/gorm"                  // GORM ORM library
)

// PayoutStatus tracks settlement of a payout.
type PayoutStatus string

const (
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// ContributionPayout is the one-time, fee-adjusted disbursement of a campaign.
// ContributionID is unique: the insert is what prevents a double payout.
type ContributionPayout struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	ContributionID string          `gorm:"uniqueIndex;size:36;not null" json:"contribution_id"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"total_amount"`
	PlatformFee    decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"platform_fee"`
	NetAmount      decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"net_amount"`
	Currency       string          `gorm:"size:16;not null" json:"currency"`
	Status         PayoutStatus    `gorm:"size:16;index;not null" json:"status"`
	FailureReason  string          `gorm:"size:512" json:"failure_reason,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (p *ContributionPayout) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// ComputePayout splits total into the platform fee and the net amount.
// feePercent is expressed in percent, e.g. 2.5.
func ComputePayout(total, feePercent decimal.Decimal) (fee, net decimal.Decimal) {
	fee = total.Mul(feePercent).Div(hundred)
	net = total.Sub(fee)
	return fee, net
}
