package ingest

import (
	"context"

	"github.com/shopspring/decimal"

	"fitspot/internal/stats"
)

// applier is the slice of the statistics service the replayer needs for the
// in-process path.
type applier interface {
	ApplyActivityCreated(ctx context.Context, activity stats.ActivityEvent)
	ApplyBookingConfirmed(ctx context.Context, booking stats.BookingEvent, activity stats.ActivityEvent)
	ApplyBookingPaid(ctx context.Context, booking stats.BookingEvent, activity stats.ActivityEvent, amount decimal.Decimal)
	ApplyBookingCancelled(ctx context.Context, booking stats.BookingEvent, activity stats.ActivityEvent, refund *decimal.Decimal)
	RecordView(ctx context.Context, view stats.ViewEvent)
}

// Replayer feeds lifecycle events into the statistics engine. With a
// producer it publishes onto the topics, so a running consumer applies them
// and the full ingestion path gets exercised; without one it applies the
// events in-process.
type Replayer struct {
	service  applier
	producer *Producer
}

// NewReplayer creates a replayer. producer may be nil.
func NewReplayer(service applier, producer *Producer) *Replayer {
	return &Replayer{service: service, producer: producer}
}

func (r *Replayer) ActivityCreated(ctx context.Context, activity stats.ActivityEvent) error {
	if r.producer != nil {
		return r.producer.PublishActivity(EventActivityCreated, ActivityPayload{Activity: activity})
	}
	r.service.ApplyActivityCreated(ctx, activity)
	return nil
}

func (r *Replayer) BookingConfirmed(ctx context.Context, booking stats.BookingEvent, activity stats.ActivityEvent) error {
	if r.producer != nil {
		return r.producer.PublishBooking(EventBookingConfirmed, BookingPayload{Booking: booking, Activity: activity})
	}
	r.service.ApplyBookingConfirmed(ctx, booking, activity)
	return nil
}

func (r *Replayer) BookingPaid(ctx context.Context, booking stats.BookingEvent, activity stats.ActivityEvent, amount decimal.Decimal) error {
	if r.producer != nil {
		return r.producer.PublishBooking(EventBookingPaid, BookingPayload{Booking: booking, Activity: activity, Amount: &amount})
	}
	r.service.ApplyBookingPaid(ctx, booking, activity, amount)
	return nil
}

func (r *Replayer) BookingCancelled(ctx context.Context, booking stats.BookingEvent, activity stats.ActivityEvent, refund *decimal.Decimal) error {
	if r.producer != nil {
		return r.producer.PublishBooking(EventBookingCancelled, BookingPayload{Booking: booking, Activity: activity, Refund: refund})
	}
	r.service.ApplyBookingCancelled(ctx, booking, activity, refund)
	return nil
}

func (r *Replayer) View(ctx context.Context, view stats.ViewEvent) error {
	if r.producer != nil {
		return r.producer.PublishView(ViewPayload{View: view})
	}
	r.service.RecordView(ctx, view)
	return nil
}
