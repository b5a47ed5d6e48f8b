package stats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fitspot/internal/activities"
	"fitspot/internal/bookings"
	"fitspot/internal/views"
	"fitspot/pkg/cache"
)

// testEngine wires the whole engine over an in-memory store.
type testEngine struct {
	t          *testing.T
	db         *gorm.DB
	updater    *Updater
	repo       Repository
	aggregator *Aggregator
	snapshots  *SnapshotBuilder
	service    Service
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&activities.Activity{},
		&bookings.Booking{},
		&views.ActivityView{},
		&HostMetrics{},
		&ActivityMetrics{},
		&AttendeeRelationship{},
		&HostDailySnapshot{},
		&HostMonthlySnapshot{},
	))

	repo := NewRepository(db)
	return &testEngine{
		t:          t,
		db:         db,
		updater:    NewUpdater(db),
		repo:       repo,
		aggregator: NewAggregator(repo),
		snapshots:  NewSnapshotBuilder(repo),
		service:    NewService(db, cache.NewService(nil)),
	}
}

// createActivity writes a ledger activity and returns the event describing
// it. It does not touch the metric store.
func (e *testEngine) createActivity(hostID uuid.UUID, capacity int, price int64, start time.Time) (activities.Activity, ActivityEvent) {
	e.t.Helper()

	act := activities.Activity{
		ID:        uuid.New(),
		HostID:    hostID,
		Title:     "Morning session",
		Capacity:  capacity,
		Price:     decimal.NewFromInt(price),
		StartTime: start,
		Status:    activities.StatusScheduled,
	}
	require.NoError(e.t, e.db.Create(&act).Error)

	return act, ActivityEvent{
		ID:        act.ID,
		HostID:    hostID,
		Capacity:  capacity,
		StartTime: start,
		Status:    act.Status,
	}
}

// confirmBooking writes a confirmed ledger booking and applies the
// incremental update, the way the consumer would.
func (e *testEngine) confirmBooking(attendeeID uuid.UUID, act activities.Activity, event ActivityEvent) bookings.Booking {
	e.t.Helper()

	b := bookings.Booking{
		ID:         uuid.New(),
		AttendeeID: attendeeID,
		ActivityID: act.ID,
		Status:     bookings.StatusConfirmed,
		AmountPaid: decimal.Zero,
	}
	require.NoError(e.t, e.db.Create(&b).Error)

	err := e.updater.BookingConfirmed(context.Background(), bookingEventOf(b), event)
	require.NoError(e.t, err)
	return b
}

// payBooking captures a payment on the ledger booking and applies the
// incremental update.
func (e *testEngine) payBooking(b *bookings.Booking, event ActivityEvent, amount int64) {
	e.t.Helper()

	b.MarkPaid(decimal.NewFromInt(amount))
	require.NoError(e.t, e.db.Save(b).Error)

	err := e.updater.BookingPaid(context.Background(), bookingEventOf(*b), event, decimal.NewFromInt(amount))
	require.NoError(e.t, err)
}

// cancelBooking cancels the ledger booking and applies the incremental
// update, optionally with a refund.
func (e *testEngine) cancelBooking(b *bookings.Booking, event ActivityEvent, refund *int64) {
	e.t.Helper()

	b.Cancel()
	if refund != nil {
		b.PaymentStatus = bookings.PaymentRefunded
	}
	require.NoError(e.t, e.db.Save(b).Error)

	var refundAmount *decimal.Decimal
	if refund != nil {
		d := decimal.NewFromInt(*refund)
		refundAmount = &d
	}
	err := e.updater.BookingCancelled(context.Background(), bookingEventOf(*b), event, refundAmount)
	require.NoError(e.t, err)
}

// trackView records one view through the incremental path.
func (e *testEngine) trackView(activityID uuid.UUID, viewerID *uuid.UUID) {
	e.t.Helper()
	err := e.updater.TrackView(context.Background(), ViewEvent{
		ActivityID: activityID,
		ViewerID:   viewerID,
		Source:     "search",
		DeviceType: "web",
	})
	require.NoError(e.t, err)
}

func (e *testEngine) hostMetrics(hostID uuid.UUID) HostMetrics {
	e.t.Helper()
	m, err := e.repo.GetHostMetrics(context.Background(), hostID)
	require.NoError(e.t, err)
	return *m
}

func (e *testEngine) activityMetrics(activityID uuid.UUID) ActivityMetrics {
	e.t.Helper()
	m, err := e.repo.GetActivityMetrics(context.Background(), activityID)
	require.NoError(e.t, err)
	return *m
}

func bookingEventOf(b bookings.Booking) BookingEvent {
	return BookingEvent{
		BookingID:  b.ID,
		AttendeeID: b.AttendeeID,
		ActivityID: b.ActivityID,
		AmountPaid: b.AmountPaid,
	}
}

func int64Ptr(v int64) *int64 { return &v }
