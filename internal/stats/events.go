package stats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fitspot/internal/activities"
)

// BookingEvent carries the booking fields the engine needs from a booking
// lifecycle event. AmountPaid is zero when no payment was captured yet.
type BookingEvent struct {
	BookingID  uuid.UUID       `json:"booking_id"`
	AttendeeID uuid.UUID       `json:"attendee_id"`
	ActivityID uuid.UUID       `json:"activity_id"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

// ActivityEvent carries the owning activity's fields for booking and
// activity lifecycle events.
type ActivityEvent struct {
	ID        uuid.UUID         `json:"id"`
	HostID    uuid.UUID         `json:"host_id"`
	Capacity  int               `json:"capacity"`
	StartTime time.Time         `json:"start_time"`
	Status    activities.Status `json:"status"`
}

// ViewEvent carries one recorded activity view. ViewerID is nil for
// anonymous traffic.
type ViewEvent struct {
	ActivityID uuid.UUID  `json:"activity_id"`
	ViewerID   *uuid.UUID `json:"viewer_id,omitempty"`
	Source     string     `json:"source,omitempty"`
	DeviceType string     `json:"device_type,omitempty"`
}

// BatchResult reports the outcome of a batch aggregation run.
type BatchResult struct {
	Processed  int           `json:"processed"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
}
