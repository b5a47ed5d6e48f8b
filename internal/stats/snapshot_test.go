package stats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitspot/internal/activities"
	"fitspot/internal/bookings"
	"fitspot/internal/views"
)

// ledgerDay writes a ledger slice for one host on one day: an activity
// starting that day, confirmed+paid bookings, one cancellation, and views,
// all timestamped inside the day.
func ledgerDay(t *testing.T, e *testEngine, hostID uuid.UUID, day time.Time, bookingCount int, price int64) uuid.UUID {
	t.Helper()
	at := day.Add(10 * time.Hour)

	act := activities.Activity{
		ID:        uuid.New(),
		HostID:    hostID,
		Title:     "Snapshot session",
		Capacity:  10,
		Price:     decimal.NewFromInt(price),
		StartTime: at,
		Status:    activities.StatusScheduled,
		CreatedAt: at,
	}
	require.NoError(t, e.db.Create(&act).Error)

	for i := 0; i < bookingCount; i++ {
		paidAt := at.Add(time.Duration(i) * time.Minute)
		b := bookings.Booking{
			ID:            uuid.New(),
			AttendeeID:    uuid.New(),
			ActivityID:    act.ID,
			Status:        bookings.StatusConfirmed,
			AmountPaid:    decimal.NewFromInt(price),
			PaymentStatus: bookings.PaymentPaid,
			PaidAt:        &paidAt,
			CreatedAt:     paidAt,
		}
		require.NoError(t, e.db.Create(&b).Error)
	}

	cancelledAt := at.Add(2 * time.Hour)
	cancelled := bookings.Booking{
		ID:          uuid.New(),
		AttendeeID:  uuid.New(),
		ActivityID:  act.ID,
		Status:      bookings.StatusCancelled,
		AmountPaid:  decimal.Zero,
		CreatedAt:   at,
		CancelledAt: &cancelledAt,
	}
	require.NoError(t, e.db.Create(&cancelled).Error)

	for i := 0; i < 3; i++ {
		v := views.ActivityView{
			ID:         uuid.New(),
			ActivityID: act.ID,
			Source:     "search",
			CreatedAt:  at.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, e.db.Create(&v).Error)
	}

	return act.ID
}

func TestBuildDailySnapshot(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	day := time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC)

	hostA, hostB := uuid.New(), uuid.New()
	ledgerDay(t, e, hostA, day, 4, 1500)
	ledgerDay(t, e, hostB, day, 2, 1000)
	// Activity on another day stays out of the window.
	ledgerDay(t, e, hostA, day.AddDate(0, 0, 3), 5, 1500)

	hosts, err := e.snapshots.BuildDaily(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, hosts)

	var snapA HostDailySnapshot
	require.NoError(t, e.db.
		Where("host_id = ?", hostA).
		First(&snapA).Error)

	assert.Equal(t, 1, snapA.EventsHosted)
	assert.Equal(t, 4, snapA.NewBookings, "cancelled booking is not a new confirmed booking")
	assert.Equal(t, 1, snapA.Cancellations)
	assert.True(t, snapA.Revenue.Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, 3, snapA.Views)

	var snapB HostDailySnapshot
	require.NoError(t, e.db.
		Where("host_id = ?", hostB).
		First(&snapB).Error)
	assert.Equal(t, 2, snapB.NewBookings)
	assert.True(t, snapB.Revenue.Equal(decimal.NewFromInt(2000)))
}

func TestBuildDailySnapshotIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	day := time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC)
	hostID := uuid.New()
	ledgerDay(t, e, hostID, day, 3, 1200)

	_, err := e.snapshots.BuildDaily(ctx, day)
	require.NoError(t, err)
	_, err = e.snapshots.BuildDaily(ctx, day)
	require.NoError(t, err)

	var count int64
	require.NoError(t, e.db.Model(&HostDailySnapshot{}).
		Where("host_id = ?", hostID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count, "rebuilding a day overwrites, never double-counts")

	var snap HostDailySnapshot
	require.NoError(t, e.db.Where("host_id = ?", hostID).First(&snap).Error)
	assert.Equal(t, 3, snap.NewBookings)
}

func TestBuildMonthlySnapshot(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	hostID := uuid.New()

	// Two activity days inside August, one outside.
	ledgerDay(t, e, hostID, time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC), 3, 1000)
	ledgerDay(t, e, hostID, time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC), 1, 1000)
	ledgerDay(t, e, hostID, time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC), 5, 1000)

	hosts, err := e.snapshots.BuildMonthly(ctx, 2026, time.August)
	require.NoError(t, err)
	assert.Equal(t, 1, hosts)

	var snap HostMonthlySnapshot
	require.NoError(t, e.db.
		Where("host_id = ? AND year = ? AND month = ?", hostID, 2026, 8).
		First(&snap).Error)

	assert.Equal(t, 2, snap.EventsHosted)
	assert.Equal(t, 4, snap.NewBookings)
	assert.Equal(t, 2, snap.Cancellations)
	assert.True(t, snap.Revenue.Equal(decimal.NewFromInt(4000)))
	assert.Equal(t, 6, snap.Views)
	// 4 bookings over 20 offered spots across the month's two activities.
	assert.Equal(t, 20.00, snap.AvgFillRate)
	assert.Equal(t, 2000.00, snap.AvgRevenuePerEvent)
}

func TestBuildMonthlySnapshotIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	hostID := uuid.New()
	ledgerDay(t, e, hostID, time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC), 2, 800)

	_, err := e.snapshots.BuildMonthly(ctx, 2026, time.July)
	require.NoError(t, err)
	_, err = e.snapshots.BuildMonthly(ctx, 2026, time.July)
	require.NoError(t, err)

	var count int64
	require.NoError(t, e.db.Model(&HostMonthlySnapshot{}).
		Where("host_id = ?", hostID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDailySnapshotEmptyWindow(t *testing.T) {
	e := newTestEngine(t)
	hosts, err := e.snapshots.BuildDaily(context.Background(), time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, hosts)
}
