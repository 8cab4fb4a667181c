package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BillingEvent records a processed billing-provider webhook event. The
// provider event id is unique so replayed deliveries are idempotent.
type BillingEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	EventID   string         `gorm:"column:event_id;not null;uniqueIndex" json:"event_id"`
	EventType string         `gorm:"column:event_type;not null" json:"event_type"`
	OrgID     uuid.UUID      `gorm:"column:org_id;type:uuid;not null" json:"org_id"`
	Seats     int            `gorm:"column:seats;not null" json:"seats"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (BillingEvent) TableName() string {
	return "BillingEvents"
}
