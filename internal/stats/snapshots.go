package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fitspot/pkg/logger"
)

// SnapshotBuilder materializes per-host daily and monthly snapshot rows from
// the ledger. It never reads the rollup tables: snapshots must stay correct
// even when the current-state rows have drifted.
//
// Each build runs a fixed set of grouped queries over the window and folds
// the per-activity groups into hosts with one in-memory lookup, so the cost
// is independent of the number of hosts.
type SnapshotBuilder struct {
	repo Repository
	log  *logger.Logger
}

// NewSnapshotBuilder creates a new snapshot builder instance
func NewSnapshotBuilder(repo Repository) *SnapshotBuilder {
	return &SnapshotBuilder{
		repo: repo,
		log:  logger.Get(),
	}
}

// hostWindow accumulates one host's ledger activity over a snapshot window.
type hostWindow struct {
	eventsHosted  int
	newBookings   int
	cancellations int
	revenue       decimal.Decimal
	views         int

	// monthly-only fields
	capacityOffered int
}

// BuildDaily writes one snapshot row per host with any ledger activity on
// the given calendar day. Re-running for the same day overwrites the
// existing rows.
func (b *SnapshotBuilder) BuildDaily(ctx context.Context, day time.Time) (int, error) {
	from := startOfDay(day)
	to := from.AddDate(0, 0, 1)

	windows, err := b.collectWindows(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to build daily snapshots: %w", err)
	}

	snapshots := make([]HostDailySnapshot, 0, len(windows))
	for hostID, w := range windows {
		snapshots = append(snapshots, HostDailySnapshot{
			ID:            uuid.New(),
			HostID:        hostID,
			SnapshotDate:  from,
			EventsHosted:  w.eventsHosted,
			NewBookings:   w.newBookings,
			Cancellations: w.cancellations,
			Revenue:       w.revenue,
			Views:         w.views,
		})
	}

	if err := b.repo.UpsertDailySnapshots(ctx, snapshots); err != nil {
		return 0, fmt.Errorf("failed to build daily snapshots: %w", err)
	}

	b.log.LogSnapshotBuilt("daily", from.Format("2006-01-02"), len(snapshots))
	return len(snapshots), nil
}

// BuildMonthly writes one snapshot row per host with any ledger activity in
// the given calendar month, including the month-level averages.
func (b *SnapshotBuilder) BuildMonthly(ctx context.Context, year int, month time.Month) (int, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	windows, err := b.collectWindows(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to build monthly snapshots: %w", err)
	}

	// Capacity offered in the month feeds avg_fill_rate.
	monthActivities, err := b.repo.ActivityCapacitiesStarting(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to build monthly snapshots: %w", err)
	}
	for _, act := range monthActivities {
		w := ensureWindow(windows, act.HostID)
		w.capacityOffered += act.Capacity
	}

	snapshots := make([]HostMonthlySnapshot, 0, len(windows))
	for hostID, w := range windows {
		snapshots = append(snapshots, HostMonthlySnapshot{
			ID:                 uuid.New(),
			HostID:             hostID,
			Year:               year,
			Month:              int(month),
			EventsHosted:       w.eventsHosted,
			NewBookings:        w.newBookings,
			Cancellations:      w.cancellations,
			Revenue:            w.revenue,
			Views:              w.views,
			AvgFillRate:        percentage(int64(w.newBookings), int64(w.capacityOffered)),
			AvgRevenuePerEvent: averageAmount(w.revenue, int64(w.eventsHosted)),
		})
	}

	if err := b.repo.UpsertMonthlySnapshots(ctx, snapshots); err != nil {
		return 0, fmt.Errorf("failed to build monthly snapshots: %w", err)
	}

	b.log.LogSnapshotBuilt("monthly", from.Format("2006-01"), len(snapshots))
	return len(snapshots), nil
}

// collectWindows runs the grouped window queries and folds the per-activity
// rows into per-host accumulators.
func (b *SnapshotBuilder) collectWindows(ctx context.Context, from, to time.Time) (map[uuid.UUID]*hostWindow, error) {
	windows := make(map[uuid.UUID]*hostWindow)

	hosted, err := b.repo.EventsHostedByHost(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, row := range hosted {
		w := ensureWindow(windows, row.HostID)
		w.eventsHosted = int(row.Count)
	}

	newBookings, err := b.repo.BookingsCreatedByActivity(ctx, from, to)
	if err != nil {
		return nil, err
	}
	cancellations, err := b.repo.CancellationsByActivity(ctx, from, to)
	if err != nil {
		return nil, err
	}
	revenue, err := b.repo.RevenuePaidByActivity(ctx, from, to)
	if err != nil {
		return nil, err
	}
	views, err := b.repo.ViewsByActivity(ctx, from, to)
	if err != nil {
		return nil, err
	}

	activityIDs := make([]uuid.UUID, 0, len(newBookings)+len(cancellations)+len(revenue)+len(views))
	for _, row := range newBookings {
		activityIDs = append(activityIDs, row.ActivityID)
	}
	for _, row := range cancellations {
		activityIDs = append(activityIDs, row.ActivityID)
	}
	for _, row := range revenue {
		activityIDs = append(activityIDs, row.ActivityID)
	}
	for _, row := range views {
		activityIDs = append(activityIDs, row.ActivityID)
	}

	hostOf, err := b.repo.ActivityHostLookup(ctx, activityIDs)
	if err != nil {
		return nil, err
	}

	for _, row := range newBookings {
		if hostID, ok := hostOf[row.ActivityID]; ok {
			ensureWindow(windows, hostID).newBookings += int(row.Count)
		}
	}
	for _, row := range cancellations {
		if hostID, ok := hostOf[row.ActivityID]; ok {
			ensureWindow(windows, hostID).cancellations += int(row.Count)
		}
	}
	for _, row := range revenue {
		if hostID, ok := hostOf[row.ActivityID]; ok {
			w := ensureWindow(windows, hostID)
			w.revenue = w.revenue.Add(row.Amount)
		}
	}
	for _, row := range views {
		if hostID, ok := hostOf[row.ActivityID]; ok {
			ensureWindow(windows, hostID).views += int(row.Count)
		}
	}

	return windows, nil
}

func ensureWindow(windows map[uuid.UUID]*hostWindow, hostID uuid.UUID) *hostWindow {
	w, ok := windows[hostID]
	if !ok {
		w = &hostWindow{revenue: decimal.Zero}
		windows[hostID] = w
	}
	return w
}
