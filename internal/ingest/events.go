package ingest

import (
	"time"

	"github.com/shopspring/decimal"

	"fitspot/internal/stats"
)

// Event types carried on the booking, activity, and view topics.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingPaid      = "booking.paid"
	EventBookingCancelled = "booking.cancelled"

	EventActivityCreated   = "activity.created"
	EventActivityCancelled = "activity.cancelled"
	EventActivityCompleted = "activity.completed"

	EventViewTracked = "view.tracked"
)

// Envelope is the wire format shared by all three topics. Exactly one of
// the payload fields is set, according to EventType.
type Envelope struct {
	EventType  string           `json:"event_type"`
	OccurredAt time.Time        `json:"occurred_at"`
	Booking    *BookingPayload  `json:"booking,omitempty"`
	Activity   *ActivityPayload `json:"activity,omitempty"`
	View       *ViewPayload     `json:"view,omitempty"`
}

// BookingPayload pairs a booking event with its owning activity, so the
// consumer never has to look the activity up before applying deltas.
type BookingPayload struct {
	Booking  stats.BookingEvent  `json:"booking"`
	Activity stats.ActivityEvent `json:"activity"`

	// Amount for paid events; refund for cancellations with a refund.
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Refund *decimal.Decimal `json:"refund,omitempty"`
}

// ActivityPayload carries one activity lifecycle event.
type ActivityPayload struct {
	Activity stats.ActivityEvent `json:"activity"`
}

// ViewPayload carries one tracked view.
type ViewPayload struct {
	View stats.ViewEvent `json:"view"`
}
