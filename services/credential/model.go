package credential

import (
	"time"

	"ftc-platform/pkg/security"
)

// TelegramSession is a user's stored Telegram authorization. The encrypted
// fields share one salt/IV pair and are always written together.
type TelegramSession struct {
	ID               string     `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	UserID           string     `gorm:"column:user_id;uniqueIndex;type:varchar(32);not null" json:"userId"`
	TelegramUserID   string     `gorm:"column:telegram_user_id;type:varchar(32)" json:"telegramUserId"`
	PhoneHint        string     `gorm:"column:phone_hint;type:varchar(16)" json:"phoneHint"`
	EncryptedSession string     `gorm:"column:encrypted_session;type:text;not null" json:"-"`
	EncryptedAPIHash string     `gorm:"column:encrypted_api_hash;type:text;not null" json:"-"`
	EncryptedAPIID   string     `gorm:"column:encrypted_api_id;type:text" json:"-"`
	Salt             string     `gorm:"column:salt;type:varchar(64);not null" json:"-"`
	IV               string     `gorm:"column:iv;type:varchar(24);not null" json:"-"`
	IsActive         bool       `gorm:"column:is_active;index" json:"isActive"`
	ExpiresAt        time.Time  `gorm:"column:expires_at;index;not null" json:"expiresAt"`
	LastUsedAt       *time.Time `gorm:"column:last_used_at" json:"lastUsedAt,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (TelegramSession) TableName() string { return "telegram_sessions" }

func (s *TelegramSession) Bundle() *security.EncryptedBundle {
	return &security.EncryptedBundle{
		EncryptedSession: s.EncryptedSession,
		EncryptedAPIHash: s.EncryptedAPIHash,
		EncryptedAPIID:   s.EncryptedAPIID,
		Salt:             s.Salt,
		IV:               s.IV,
	}
}

func (s *TelegramSession) setBundle(b *security.EncryptedBundle) {
	s.EncryptedSession = b.EncryptedSession
	s.EncryptedAPIHash = b.EncryptedAPIHash
	s.EncryptedAPIID = b.EncryptedAPIID
	s.Salt = b.Salt
	s.IV = b.IV
}

// Contact is a Telegram contact imported by a user.
type Contact struct {
	ID             string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	UserID         string    `gorm:"column:user_id;type:varchar(32);not null;uniqueIndex:idx_contact_owner,priority:1" json:"userId"`
	TelegramUserID string    `gorm:"column:telegram_user_id;type:varchar(32);not null;uniqueIndex:idx_contact_owner,priority:2" json:"telegramUserId"`
	FirstName      string    `gorm:"column:first_name;type:varchar(255)" json:"firstName"`
	LastName       string    `gorm:"column:last_name;type:varchar(255)" json:"lastName"`
	Username       string    `gorm:"column:username;type:varchar(255)" json:"username"`
	Phone          string    `gorm:"column:phone;type:varchar(32)" json:"phone"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Contact) TableName() string { return "telegram_contacts" }

func Models() []any {
	return []any{&TelegramSession{}, &Contact{}}
}
