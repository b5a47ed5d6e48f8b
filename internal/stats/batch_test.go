package stats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fitspot/internal/bookings"
)

func TestRecomputeHostFromLedger(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	hostID := uuid.New()

	// Ledger only: no incremental updates were ever applied.
	act1, _ := e.createActivity(hostID, 10, 1500, time.Now().AddDate(0, 0, 7))
	act2, _ := e.createActivity(hostID, 20, 2000, time.Now().AddDate(0, 0, 14))

	attendee := uuid.New()
	for _, act := range []uuid.UUID{act1.ID, act2.ID} {
		bookingFixture(t, e, attendee, act, true, 1500)
	}
	bookingFixture(t, e, uuid.New(), act1.ID, false, 0)

	require.NoError(t, e.aggregator.RecomputeHost(ctx, hostID))

	host := e.hostMetrics(hostID)
	assert.Equal(t, 2, host.TotalEvents)
	assert.Equal(t, 30, host.TotalSpotsOffered)
	assert.Equal(t, 3, host.TotalBookings)
	assert.Equal(t, 3, host.TotalSpotsFilled)
	assert.Equal(t, 2, host.TotalUniqueAttendees)
	assert.Equal(t, 1, host.RepeatAttendees, "attendee with bookings on two activities")
	assert.True(t, host.TotalRevenue.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, 10.0, host.AttendanceRate)
	assert.False(t, host.LastAggregatedAt.IsZero())
}

func TestRecomputeIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	hostID := uuid.New()

	act, _ := e.createActivity(hostID, 10, 1500, time.Now().AddDate(0, 0, 7))
	bookingFixture(t, e, uuid.New(), act.ID, true, 1500)
	bookingFixture(t, e, uuid.New(), act.ID, true, 1500)

	require.NoError(t, e.aggregator.RecomputeHost(ctx, hostID))
	first := e.hostMetrics(hostID)

	require.NoError(t, e.aggregator.RecomputeHost(ctx, hostID))
	second := e.hostMetrics(hostID)

	assert.Equal(t, first.TotalBookings, second.TotalBookings)
	assert.Equal(t, first.TotalUniqueAttendees, second.TotalUniqueAttendees)
	assert.Equal(t, first.TotalSpotsFilled, second.TotalSpotsFilled)
	assert.True(t, first.TotalRevenue.Equal(second.TotalRevenue))
	assert.Equal(t, first.ID, second.ID, "recompute overwrites the row, never duplicates it")
}

func TestRecomputeRepairsIncrementalDrift(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	hostID := uuid.New()

	act, event := e.createActivity(hostID, 10, 1500, time.Now().AddDate(0, 0, 7))
	require.NoError(t, e.updater.ActivityCreated(ctx, event))
	b := e.confirmBooking(uuid.New(), act, event)
	e.payBooking(&b, event, 1500)

	// Inject drift the way a dropped event would: counters out of sync
	// with the ledger.
	require.NoError(t, e.db.Model(&HostMetrics{}).
		Where("host_id = ?", hostID).
		Updates(map[string]interface{}{
			"total_bookings": gorm.Expr("total_bookings + 5"),
			"total_revenue":  gorm.Expr("total_revenue + 9999"),
		}).Error)

	require.NoError(t, e.aggregator.RecomputeHost(ctx, hostID))

	host := e.hostMetrics(hostID)
	assert.Equal(t, 1, host.TotalBookings)
	assert.True(t, host.TotalRevenue.Equal(decimal.NewFromInt(1500)),
		"expected ledger truth 1500, got %s", host.TotalRevenue)
}

func TestIncrementalAndBatchConverge(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	hostID := uuid.New()

	act, event := e.createActivity(hostID, 10, 1500, time.Now().AddDate(0, 0, 7))
	require.NoError(t, e.updater.ActivityCreated(ctx, event))

	attendee := uuid.New()
	b1 := e.confirmBooking(attendee, act, event)
	e.payBooking(&b1, event, 1500)
	b2 := e.confirmBooking(uuid.New(), act, event)
	e.payBooking(&b2, event, 1500)
	b3 := e.confirmBooking(attendee, act, event)
	e.cancelBooking(&b3, event, nil)

	incremental := e.hostMetrics(hostID)

	require.NoError(t, e.aggregator.RecomputeHost(ctx, hostID))
	recomputed := e.hostMetrics(hostID)

	assert.Equal(t, incremental.TotalBookings, recomputed.TotalBookings)
	assert.Equal(t, incremental.TotalUniqueAttendees, recomputed.TotalUniqueAttendees)
	assert.Equal(t, incremental.RepeatAttendees, recomputed.RepeatAttendees)
	assert.True(t, incremental.TotalRevenue.Equal(recomputed.TotalRevenue))
}

func TestRecomputeActivity(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	hostID := uuid.New()

	act, _ := e.createActivity(hostID, 10, 1500, time.Now().AddDate(0, 0, 7))
	bookingFixture(t, e, uuid.New(), act.ID, true, 1500)
	bookingFixture(t, e, uuid.New(), act.ID, true, 1500)
	cancelled := bookingFixture(t, e, uuid.New(), act.ID, false, 0)
	cancelled.Cancel()
	require.NoError(t, e.db.Save(&cancelled).Error)

	viewer := uuid.New()
	e.trackView(act.ID, &viewer)
	e.trackView(act.ID, nil)

	require.NoError(t, e.aggregator.RecomputeActivity(ctx, act.ID))

	am := e.activityMetrics(act.ID)
	assert.Equal(t, 10, am.TotalSpots)
	assert.Equal(t, 2, am.ConfirmedBookings)
	assert.Equal(t, 1, am.CancelledBookings)
	assert.Equal(t, 3, am.TotalBookings)
	assert.Equal(t, 8, am.SpotsRemaining)
	assert.Equal(t, 20.00, am.FillRate)
	assert.Equal(t, 2, am.ViewCount)
	assert.Equal(t, 1, am.UniqueViewerCount)
	assert.True(t, am.TotalRevenue.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, 100.00, am.ViewToBookingRate)
}

func TestRecomputeActivityUnknownID(t *testing.T) {
	e := newTestEngine(t)
	err := e.aggregator.RecomputeActivity(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecomputeAllHostsSweepsEveryHost(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	hostA, hostB := uuid.New(), uuid.New()
	actA, _ := e.createActivity(hostA, 10, 1000, time.Now().AddDate(0, 0, 5))
	actB, _ := e.createActivity(hostB, 5, 2000, time.Now().AddDate(0, 0, 5))
	bookingFixture(t, e, uuid.New(), actA.ID, true, 1000)
	bookingFixture(t, e, uuid.New(), actB.ID, true, 2000)

	result, err := e.aggregator.RecomputeAllHosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))

	assert.Equal(t, 1, e.hostMetrics(hostA).TotalBookings)
	assert.Equal(t, 1, e.hostMetrics(hostB).TotalBookings)
}

// bookingFixture writes a ledger booking without driving the incremental
// path, for batch-only scenarios.
func bookingFixture(t *testing.T, e *testEngine, attendeeID, activityID uuid.UUID, paid bool, amount int64) bookings.Booking {
	t.Helper()

	b := bookings.Booking{
		ID:         uuid.New(),
		AttendeeID: attendeeID,
		ActivityID: activityID,
		Status:     bookings.StatusConfirmed,
		AmountPaid: decimal.Zero,
	}
	if paid {
		b.MarkPaid(decimal.NewFromInt(amount))
	}
	require.NoError(t, e.db.Create(&b).Error)
	return b
}
