package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coffee represents a coffee in the catalog database
type Coffee struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName specifies the table name for Coffee model
func (Coffee) TableName() string {
	return "coffees"
}

// BeforeCreate hook to set timestamps
func (c *Coffee) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}

// Session holds the form state a browser session retains between requests.
type Session struct {
	ID           string          `gorm:"column:session_id;primaryKey;type:varchar(36)"`
	PendingName  string          `gorm:"column:pending_name;type:varchar(255);not null;default:''"`
	PendingPrice decimal.Decimal `gorm:"column:pending_price;type:decimal(10,2);not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for Session model
func (Session) TableName() string {
	return "sessions"
}
