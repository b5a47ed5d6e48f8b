package stats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HostMetrics is the current-state rollup row for one host. Counts and sums
// are maintained incrementally and overwritten wholesale by batch recompute;
// rate fields are always derived from the counts, never incremented directly.
type HostMetrics struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HostID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"host_id"`

	// Event counts
	TotalEvents     int `gorm:"default:0" json:"total_events"`
	EventsThisMonth int `gorm:"default:0" json:"events_this_month"`
	EventsThisYear  int `gorm:"default:0" json:"events_this_year"`
	UpcomingEvents  int `gorm:"default:0" json:"upcoming_events"`
	CompletedEvents int `gorm:"default:0" json:"completed_events"`
	CancelledEvents int `gorm:"default:0" json:"cancelled_events"`

	// Booking counts
	TotalBookings     int `gorm:"default:0" json:"total_bookings"`
	BookingsThisMonth int `gorm:"default:0" json:"bookings_this_month"`

	// Attendee counts. UniqueAttendeesThisMonth is an acquisition counter:
	// it is incremented for each novel attendee but never decremented when
	// a same-month booking is cancelled.
	TotalUniqueAttendees     int `gorm:"default:0" json:"total_unique_attendees"`
	UniqueAttendeesThisMonth int `gorm:"default:0" json:"unique_attendees_this_month"`
	RepeatAttendees          int `gorm:"default:0" json:"repeat_attendees"`

	// Capacity. Overselling is representable (filled may exceed offered
	// when the source ledger oversold), so no check constraint here.
	TotalSpotsOffered int `gorm:"default:0" json:"total_spots_offered"`
	TotalSpotsFilled  int `gorm:"default:0" json:"total_spots_filled"`

	// Derived rates, percentages rounded to 2 decimal places
	AttendanceRate        float64 `gorm:"default:0" json:"attendance_rate"`
	AvgAttendeesPerEvent  float64 `gorm:"default:0" json:"avg_attendees_per_event"`
	RepeatAttendeeRate    float64 `gorm:"default:0" json:"repeat_attendee_rate"`
	AvgRevenuePerEvent    float64 `gorm:"default:0" json:"avg_revenue_per_event"`
	BookingConversionRate float64 `gorm:"default:0" json:"booking_conversion_rate"`

	// Revenue in the smallest currency unit, exact decimal arithmetic
	TotalRevenue     decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"total_revenue"`
	RevenueThisMonth decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"revenue_this_month"`
	RevenueThisYear  decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"revenue_this_year"`

	TotalActivityViews int `gorm:"default:0" json:"total_activity_views"`

	LastAggregatedAt time.Time `json:"last_aggregated_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName sets the table name for HostMetrics
func (HostMetrics) TableName() string {
	return "host_metrics"
}

// ActivityMetrics is the current-state rollup row for one activity.
// Invariant: SpotsFilled + SpotsRemaining == TotalSpots after every
// incremental mutation; remaining moves in lock-step with filled.
type ActivityMetrics struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"activity_id"`
	HostID     uuid.UUID `gorm:"type:uuid;index;not null" json:"host_id"`

	TotalSpots     int     `gorm:"default:0" json:"total_spots"`
	SpotsFilled    int     `gorm:"default:0" json:"spots_filled"`
	SpotsRemaining int     `gorm:"default:0" json:"spots_remaining"`
	FillRate       float64 `gorm:"default:0" json:"fill_rate"`

	TotalBookings     int `gorm:"default:0" json:"total_bookings"`
	ConfirmedBookings int `gorm:"default:0" json:"confirmed_bookings"`
	CancelledBookings int `gorm:"default:0" json:"cancelled_bookings"`

	ViewCount         int     `gorm:"default:0" json:"view_count"`
	UniqueViewerCount int     `gorm:"default:0" json:"unique_viewer_count"`
	ViewToBookingRate float64 `gorm:"default:0" json:"view_to_booking_rate"`

	TotalRevenue decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"total_revenue"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for ActivityMetrics
func (ActivityMetrics) TableName() string {
	return "activity_metrics"
}

// AttendeeRelationship tracks the lifetime relationship between one host and
// one attendee. Rows are created on the first confirmed booking and persist
// as history even when every booking is cancelled.
type AttendeeRelationship struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HostID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_host_attendee;not null" json:"host_id"`
	AttendeeID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_host_attendee;not null" json:"attendee_id"`

	EventsAttended  int             `gorm:"default:0" json:"events_attended"`
	FirstAttendedAt time.Time       `json:"first_attended_at"`
	LastAttendedAt  time.Time       `json:"last_attended_at"`
	TotalSpent      decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"total_spent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for AttendeeRelationship
func (AttendeeRelationship) TableName() string {
	return "attendee_relationships"
}

// HostDailySnapshot is an immutable point-in-time record of one host's ledger
// activity for one calendar day. Re-running the builder for the same day
// overwrites the row instead of double-counting.
type HostDailySnapshot struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HostID       uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_host_day;not null" json:"host_id"`
	SnapshotDate time.Time `gorm:"type:date;uniqueIndex:idx_host_day;not null" json:"snapshot_date"`

	EventsHosted  int             `gorm:"default:0" json:"events_hosted"`
	NewBookings   int             `gorm:"default:0" json:"new_bookings"`
	Cancellations int             `gorm:"default:0" json:"cancellations"`
	Revenue       decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"revenue"`
	Views         int             `gorm:"default:0" json:"views"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for HostDailySnapshot
func (HostDailySnapshot) TableName() string {
	return "host_daily_snapshots"
}

// HostMonthlySnapshot is the month-granularity counterpart of
// HostDailySnapshot, with month-level averages added.
type HostMonthlySnapshot struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HostID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_host_month;not null" json:"host_id"`
	Year   int       `gorm:"uniqueIndex:idx_host_month;not null" json:"year"`
	Month  int       `gorm:"uniqueIndex:idx_host_month;not null" json:"month"`

	EventsHosted       int             `gorm:"default:0" json:"events_hosted"`
	NewBookings        int             `gorm:"default:0" json:"new_bookings"`
	Cancellations      int             `gorm:"default:0" json:"cancellations"`
	Revenue            decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"revenue"`
	Views              int             `gorm:"default:0" json:"views"`
	AvgFillRate        float64         `gorm:"default:0" json:"avg_fill_rate"`
	AvgRevenuePerEvent float64         `gorm:"default:0" json:"avg_revenue_per_event"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for HostMonthlySnapshot
func (HostMonthlySnapshot) TableName() string {
	return "host_monthly_snapshots"
}

// Id assignment hooks, so callers and upsert paths never insert a zero key.

func (m *HostMetrics) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *ActivityMetrics) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (r *AttendeeRelationship) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (s *HostDailySnapshot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *HostMonthlySnapshot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
