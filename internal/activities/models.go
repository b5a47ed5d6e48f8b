package activities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Activity is a ledger record for a single hosted fitness event.
// The booking system owns these rows; the statistics engine only reads them.
type Activity struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	HostID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"host_id"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Capacity    int             `gorm:"not null;check:capacity >= 0" json:"capacity"`
	Price       decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"price"`
	StartTime   time.Time       `gorm:"index;not null" json:"start_time"`
	Status      Status          `gorm:"type:varchar(20);default:'scheduled'" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Status represents the lifecycle state of an activity
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// TableName sets the table name for Activity
func (Activity) TableName() string {
	return "activities"
}

// BeforeCreate assigns the id when the caller didn't
func (a *Activity) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsUpcoming reports whether the activity starts in the future
func (a *Activity) IsUpcoming(now time.Time) bool {
	return a.Status == StatusScheduled && a.StartTime.After(now)
}

// IsCancelled reports whether the activity was cancelled
func (a *Activity) IsCancelled() bool {
	return a.Status == StatusCancelled
}
