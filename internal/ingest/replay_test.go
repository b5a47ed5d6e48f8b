package ingest

import (
	"context"
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitspot/internal/stats"
)

// recordingApplier captures which events reached the in-process path.
type recordingApplier struct {
	events []string
}

func (r *recordingApplier) ApplyActivityCreated(context.Context, stats.ActivityEvent) {
	r.events = append(r.events, EventActivityCreated)
}

func (r *recordingApplier) ApplyBookingConfirmed(context.Context, stats.BookingEvent, stats.ActivityEvent) {
	r.events = append(r.events, EventBookingConfirmed)
}

func (r *recordingApplier) ApplyBookingPaid(context.Context, stats.BookingEvent, stats.ActivityEvent, decimal.Decimal) {
	r.events = append(r.events, EventBookingPaid)
}

func (r *recordingApplier) ApplyBookingCancelled(context.Context, stats.BookingEvent, stats.ActivityEvent, *decimal.Decimal) {
	r.events = append(r.events, EventBookingCancelled)
}

func (r *recordingApplier) RecordView(context.Context, stats.ViewEvent) {
	r.events = append(r.events, EventViewTracked)
}

func TestReplayerAppliesInProcessWithoutProducer(t *testing.T) {
	ctx := context.Background()
	rec := &recordingApplier{}
	replay := NewReplayer(rec, nil)

	activity := stats.ActivityEvent{ID: uuid.New(), HostID: uuid.New(), Capacity: 10}
	booking := stats.BookingEvent{BookingID: uuid.New(), AttendeeID: uuid.New(), ActivityID: activity.ID}
	amount := decimal.NewFromInt(1000)

	require.NoError(t, replay.ActivityCreated(ctx, activity))
	require.NoError(t, replay.BookingConfirmed(ctx, booking, activity))
	require.NoError(t, replay.BookingPaid(ctx, booking, activity, amount))
	require.NoError(t, replay.BookingCancelled(ctx, booking, activity, &amount))
	require.NoError(t, replay.View(ctx, stats.ViewEvent{ActivityID: activity.ID}))

	assert.Equal(t, []string{
		EventActivityCreated,
		EventBookingConfirmed,
		EventBookingPaid,
		EventBookingCancelled,
		EventViewTracked,
	}, rec.events)
}

func TestReplayerPublishesWhenProducerPresent(t *testing.T) {
	ctx := context.Background()
	rec := &recordingApplier{}

	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndSucceed()

	replay := NewReplayer(rec, &Producer{producer: mock, cfg: testKafkaConfig()})
	activity := stats.ActivityEvent{ID: uuid.New(), HostID: uuid.New(), Capacity: 10}
	booking := stats.BookingEvent{BookingID: uuid.New(), AttendeeID: uuid.New(), ActivityID: activity.ID}

	require.NoError(t, replay.BookingConfirmed(ctx, booking, activity))
	assert.Empty(t, rec.events)
}
