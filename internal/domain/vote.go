package domain

import (
	"slices" // Slice helpers
	"time"   // Time handling

	"group_fund/internal/duration" // End date resolution

	"github.com/google/uuid" // UUID generation
	"gorm.io/gorm"           // GORM ORM library
)

// DefaultRequiredPercentage is the quorum used when a vote does not set one.
const DefaultRequiredPercentage = 60.0

// Vote is a time-boxed group decision over a fixed, ordered option set.
type Vote struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	GroupID            uint       `gorm:"index;not null" json:"group_id"`
	Topic              string     `gorm:"size:255;not null" json:"topic"`
	Description        string     `gorm:"type:text" json:"description"`
	Options            []string   `gorm:"serializer:json;type:text;not null" json:"options"`
	RequiredPercentage float64    `gorm:"not null;default:60" json:"required_percentage"`
	EndDate            *time.Time `gorm:"index" json:"end_date"`
	CreatedBy          uint       `gorm:"index;not null" json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (v *Vote) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// IsEnded is true iff an end date is set and now is past it.
func (v *Vote) IsEnded(now time.Time) bool {
	return duration.Ended(v.EndDate, now)
}

// HasOption reports whether choice is one of the declared options.
func (v *Vote) HasOption(choice string) bool {
	return slices.Contains(v.Options, choice)
}

// VoteResponse is a user's current choice on a vote, unique per (vote, user).
type VoteResponse struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	VoteID    string    `gorm:"uniqueIndex:idx_vote_user;size:36;not null" json:"vote_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_vote_user;not null" json:"user_id"`
	Choice    string    `gorm:"size:255;not null" json:"choice"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (r *VoteResponse) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
