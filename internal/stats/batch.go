package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fitspot/internal/activities"
	"fitspot/internal/bookings"
	"fitspot/pkg/logger"
)

// Aggregator recomputes metric rows from the ledger, replacing whatever the
// incremental path accumulated. A recompute is the source of truth: it
// repairs any drift left behind by dropped or double-applied events.
type Aggregator struct {
	repo Repository
	log  *logger.Logger
}

// NewAggregator creates a new batch aggregator instance
func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{
		repo: repo,
		log:  logger.Get(),
	}
}

// RecomputeHost rebuilds one host's metrics row and attendee relationships
// from scratch. The write is a single upsert, so readers never observe a
// half-recomputed row.
func (a *Aggregator) RecomputeHost(ctx context.Context, hostID uuid.UUID) error {
	started := time.Now()
	now := time.Now()
	monthStart := startOfMonth(now)
	yearStart := startOfYear(now)

	acts, err := a.repo.GetHostActivities(ctx, hostID)
	if err != nil {
		return fmt.Errorf("failed to recompute host %s: %w", hostID, err)
	}

	m := HostMetrics{
		ID:               uuid.New(),
		HostID:           hostID,
		LastAggregatedAt: now,
	}

	activityIDs := make([]uuid.UUID, 0, len(acts))
	for _, act := range acts {
		activityIDs = append(activityIDs, act.ID)

		m.TotalEvents++
		if !act.CreatedAt.Before(monthStart) {
			m.EventsThisMonth++
		}
		if !act.CreatedAt.Before(yearStart) {
			m.EventsThisYear++
		}
		switch {
		case act.IsCancelled():
			m.CancelledEvents++
		case act.Status == activities.StatusCompleted ||
			(act.Status == activities.StatusScheduled && !act.StartTime.After(now)):
			// Past-dated scheduled activities count as completed until the
			// booking system transitions them
			m.CompletedEvents++
		default:
			m.UpcomingEvents++
		}
		m.TotalSpotsOffered += act.Capacity
	}

	confirmed, err := a.repo.GetConfirmedBookings(ctx, activityIDs)
	if err != nil {
		return fmt.Errorf("failed to recompute host %s: %w", hostID, err)
	}

	relationships := foldRelationships(hostID, confirmed)
	for _, b := range confirmed {
		m.TotalBookings++
		if !b.CreatedAt.Before(monthStart) {
			m.BookingsThisMonth++
		}
		m.TotalSpotsFilled++
	}
	for _, rel := range relationships {
		m.TotalUniqueAttendees++
		if !rel.FirstAttendedAt.Before(monthStart) {
			m.UniqueAttendeesThisMonth++
		}
		if rel.EventsAttended >= 2 {
			m.RepeatAttendees++
		}
	}

	m.TotalRevenue, err = a.repo.SumPaidRevenue(ctx, activityIDs, nil)
	if err != nil {
		return fmt.Errorf("failed to recompute host %s: %w", hostID, err)
	}
	m.RevenueThisMonth, err = a.repo.SumPaidRevenue(ctx, activityIDs, &monthStart)
	if err != nil {
		return fmt.Errorf("failed to recompute host %s: %w", hostID, err)
	}
	m.RevenueThisYear, err = a.repo.SumPaidRevenue(ctx, activityIDs, &yearStart)
	if err != nil {
		return fmt.Errorf("failed to recompute host %s: %w", hostID, err)
	}

	views, err := a.repo.CountViews(ctx, activityIDs)
	if err != nil {
		return fmt.Errorf("failed to recompute host %s: %w", hostID, err)
	}
	m.TotalActivityViews = int(views)

	m.AttendanceRate = percentage(int64(m.TotalSpotsFilled), int64(m.TotalSpotsOffered))
	m.AvgAttendeesPerEvent = average(int64(m.TotalSpotsFilled), int64(m.TotalEvents))
	m.RepeatAttendeeRate = percentage(int64(m.RepeatAttendees), int64(m.TotalUniqueAttendees))
	m.AvgRevenuePerEvent = averageAmount(m.TotalRevenue, int64(m.TotalEvents))
	m.BookingConversionRate = percentage(int64(m.TotalBookings), int64(m.TotalActivityViews))

	if err := a.repo.UpsertAttendeeRelationships(ctx, relationships); err != nil {
		return fmt.Errorf("failed to recompute host %s: %w", hostID, err)
	}
	if err := a.repo.UpsertHostMetrics(ctx, &m); err != nil {
		return fmt.Errorf("failed to recompute host %s: %w", hostID, err)
	}

	a.log.LogHostRecomputed(hostID, time.Since(started))
	return nil
}

// RecomputeActivity rebuilds one activity's metrics row from the ledger.
func (a *Aggregator) RecomputeActivity(ctx context.Context, activityID uuid.UUID) error {
	act, err := a.repo.GetActivity(ctx, activityID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("activity %s not found", activityID)
		}
		return fmt.Errorf("failed to recompute activity %s: %w", activityID, err)
	}

	statusCounts, err := a.repo.CountBookingsByStatus(ctx, activityID)
	if err != nil {
		return fmt.Errorf("failed to recompute activity %s: %w", activityID, err)
	}
	confirmedCount := statusCounts[bookings.StatusConfirmed]
	cancelledCount := statusCounts[bookings.StatusCancelled]

	revenue, err := a.repo.SumPaidRevenue(ctx, []uuid.UUID{activityID}, nil)
	if err != nil {
		return fmt.Errorf("failed to recompute activity %s: %w", activityID, err)
	}
	views, err := a.repo.CountViews(ctx, []uuid.UUID{activityID})
	if err != nil {
		return fmt.Errorf("failed to recompute activity %s: %w", activityID, err)
	}
	uniqueViewers, err := a.repo.CountUniqueViewers(ctx, activityID)
	if err != nil {
		return fmt.Errorf("failed to recompute activity %s: %w", activityID, err)
	}

	m := ActivityMetrics{
		ID:                uuid.New(),
		ActivityID:        activityID,
		HostID:            act.HostID,
		TotalSpots:        act.Capacity,
		SpotsFilled:       int(confirmedCount),
		SpotsRemaining:    act.Capacity - int(confirmedCount),
		TotalBookings:     int(confirmedCount + cancelledCount),
		ConfirmedBookings: int(confirmedCount),
		CancelledBookings: int(cancelledCount),
		ViewCount:         int(views),
		UniqueViewerCount: int(uniqueViewers),
		TotalRevenue:      revenue,
	}
	m.FillRate = percentage(confirmedCount, int64(act.Capacity))
	m.ViewToBookingRate = percentage(confirmedCount, views)

	if err := a.repo.UpsertActivityMetrics(ctx, &m); err != nil {
		return fmt.Errorf("failed to recompute activity %s: %w", activityID, err)
	}
	return nil
}

// RecomputeAllHosts sweeps every host known to the ledger. One host failing
// does not stop the sweep; failures are logged and counted.
func (a *Aggregator) RecomputeAllHosts(ctx context.Context) (*BatchResult, error) {
	started := time.Now()

	hostIDs, err := a.repo.ListHostIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts for recompute: %w", err)
	}

	processed, failed := 0, 0
	for _, hostID := range hostIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.RecomputeHost(ctx, hostID); err != nil {
			failed++
			a.log.Error("host recompute failed",
				"host_id", hostID.String(),
				"error", err.Error(),
			)
			continue
		}
		processed++
	}

	duration := time.Since(started)
	a.log.LogBatchRun("hosts", processed, failed, duration)

	return &BatchResult{
		Processed:  processed,
		Duration:   duration,
		DurationMs: duration.Milliseconds(),
	}, nil
}

// RecomputeAllActivities sweeps every activity in the ledger.
func (a *Aggregator) RecomputeAllActivities(ctx context.Context) (*BatchResult, error) {
	started := time.Now()

	activityIDs, err := a.repo.ListActivityIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities for recompute: %w", err)
	}

	processed, failed := 0, 0
	for _, activityID := range activityIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.RecomputeActivity(ctx, activityID); err != nil {
			failed++
			a.log.Error("activity recompute failed",
				"activity_id", activityID.String(),
				"error", err.Error(),
			)
			continue
		}
		processed++
	}

	duration := time.Since(started)
	a.log.LogBatchRun("activities", processed, failed, duration)

	return &BatchResult{
		Processed:  processed,
		Duration:   duration,
		DurationMs: duration.Milliseconds(),
	}, nil
}

// foldRelationships rebuilds a host's attendee relationships from their
// confirmed bookings. Spend only counts captured payments.
func foldRelationships(hostID uuid.UUID, confirmed []bookings.Booking) []AttendeeRelationship {
	byAttendee := make(map[uuid.UUID]*AttendeeRelationship)
	for _, b := range confirmed {
		rel, ok := byAttendee[b.AttendeeID]
		if !ok {
			rel = &AttendeeRelationship{
				ID:              uuid.New(),
				HostID:          hostID,
				AttendeeID:      b.AttendeeID,
				FirstAttendedAt: b.CreatedAt,
				LastAttendedAt:  b.CreatedAt,
				TotalSpent:      decimal.Zero,
			}
			byAttendee[b.AttendeeID] = rel
		}
		rel.EventsAttended++
		if b.CreatedAt.Before(rel.FirstAttendedAt) {
			rel.FirstAttendedAt = b.CreatedAt
		}
		if b.CreatedAt.After(rel.LastAttendedAt) {
			rel.LastAttendedAt = b.CreatedAt
		}
		if b.IsPaid() {
			rel.TotalSpent = rel.TotalSpent.Add(b.AmountPaid)
		}
	}

	relationships := make([]AttendeeRelationship, 0, len(byAttendee))
	for _, rel := range byAttendee {
		relationships = append(relationships, *rel)
	}
	return relationships
}
