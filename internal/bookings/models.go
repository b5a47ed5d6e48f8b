package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Booking is a ledger record for one attendee spot on one activity.
// A confirmed booking always occupies exactly one spot.
type Booking struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AttendeeID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"attendee_id"`
	ActivityID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"activity_id"`
	Status        Status          `gorm:"type:varchar(20);check:status IN ('CONFIRMED', 'CANCELLED');default:'CONFIRMED'" json:"status"`
	AmountPaid    decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"amount_paid"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(20);check:payment_status IN ('PENDING', 'PAID', 'REFUNDED');default:'PENDING'" json:"payment_status"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// BeforeCreate assigns the id when the caller didn't
func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsConfirmed reports whether the booking currently occupies a spot
func (b *Booking) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

// IsCancelled reports whether the booking was cancelled
func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

// IsPaid reports whether the booking's payment was captured
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentPaid
}

// Cancel marks the booking cancelled in-memory
func (b *Booking) Cancel() {
	b.Status = StatusCancelled
	now := time.Now()
	b.CancelledAt = &now
	b.UpdatedAt = now
}

// MarkPaid records a captured payment in-memory
func (b *Booking) MarkPaid(amount decimal.Decimal) {
	b.PaymentStatus = PaymentPaid
	b.AmountPaid = amount
	now := time.Now()
	b.PaidAt = &now
	b.UpdatedAt = now
}
