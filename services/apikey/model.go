package apikey

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Scopes is a text[] column on postgres and its array literal in a text
// column elsewhere.
type Scopes pq.StringArray

func (Scopes) GormDataType() string { return "text" }

func (s Scopes) Value() (driver.Value, error) {
	return pq.StringArray(s).Value()
}

func (s *Scopes) Scan(src any) error {
	return (*pq.StringArray)(s).Scan(src)
}

func (Scopes) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

type APIKey struct {
	ID         string     `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Name       string     `gorm:"column:name;type:varchar(100);not null" json:"name"`
	KeyID      string     `gorm:"column:key_id;uniqueIndex;type:varchar(64);not null" json:"keyId"`
	SecretHash string     `gorm:"column:secret_hash;not null" json:"-"` // argon2id, never the plaintext
	Scopes     Scopes     `gorm:"column:scopes;not null" json:"scopes"`
	Status     Status     `gorm:"column:status;type:varchar(16);not null" json:"status"`
	CreatedBy  *string    `gorm:"column:created_by" json:"createdBy,omitempty"`
	LastUsedAt *time.Time `gorm:"column:last_used_at" json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	ExpiresAt  *time.Time `gorm:"column:expires_at" json:"expiresAt,omitempty"`
}

func (APIKey) TableName() string { return "api_keys" }
