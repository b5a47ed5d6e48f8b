package views

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityView is an append-only ledger record of one activity page view.
// ViewerID is nil for anonymous traffic.
type ActivityView struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID uuid.UUID  `gorm:"type:uuid;index;not null" json:"activity_id"`
	ViewerID   *uuid.UUID `gorm:"type:uuid;index" json:"viewer_id,omitempty"`
	Source     string     `gorm:"type:varchar(50)" json:"source,omitempty"`
	DeviceType string     `gorm:"type:varchar(50)" json:"device_type,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

// TableName sets the table name for ActivityView
func (ActivityView) TableName() string {
	return "activity_views"
}

// BeforeCreate assigns the id when the caller didn't
func (v *ActivityView) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
