package domain

import "time" // Timestamps

// Group is a set of users that pool funds and vote together.
type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	CreatedBy uint      `gorm:"index;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupMember links a user to a group. The pair is unique.
type GroupMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	GroupID  uint      `gorm:"uniqueIndex:idx_group_member;not null" json:"group_id"`
	UserID   uint      `gorm:"uniqueIndex:idx_group_member;index;not null" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
