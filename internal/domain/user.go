package domain

// User Model
type User struct {
	ID             uint   `gorm:"primaryKey" json:"id"`                                     // Primary key
	Username       string `gorm:"unique;not null;size:64" json:"username"`                  // Unique username
	Password       string `gorm:"not null" json:"-"`                                        // Hashed password
	Role           string `gorm:"default:user;size:16" json:"role"`                         // Role: user or admin
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`                               // Optional Telegram chat for notifications
	Wallet         Wallet `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"` // One-to-one relationship with Wallet
}

// Roles a user may hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
