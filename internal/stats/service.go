package stats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fitspot/internal/shared/constants"
	"fitspot/pkg/cache"
	"fitspot/pkg/logger"
)

// Service is the public face of the statistics engine. It exposes two call
// conventions:
//
//   - Apply* methods are best-effort. They return nothing; a failed update
//     is logged and dropped, because statistics must never break the booking
//     flow. The periodic recompute repairs whatever was dropped.
//   - Recompute* and Build* methods are must-succeed and return errors;
//     they are the source of truth.
//
// Reads go through the cache; recomputes invalidate it.
type Service interface {
	// Best-effort incremental updates
	ApplyBookingConfirmed(ctx context.Context, booking BookingEvent, activity ActivityEvent)
	ApplyBookingPaid(ctx context.Context, booking BookingEvent, activity ActivityEvent, amount decimal.Decimal)
	ApplyBookingCancelled(ctx context.Context, booking BookingEvent, activity ActivityEvent, refund *decimal.Decimal)
	ApplyActivityCreated(ctx context.Context, activity ActivityEvent)
	ApplyActivityCancelled(ctx context.Context, activity ActivityEvent)
	ApplyActivityCompleted(ctx context.Context, activity ActivityEvent)
	RecordView(ctx context.Context, view ViewEvent)

	// Must-succeed batch paths
	RecomputeHost(ctx context.Context, hostID uuid.UUID) (*BatchResult, error)
	RecomputeAllHosts(ctx context.Context) (*BatchResult, error)
	RecomputeActivities(ctx context.Context, activityID *uuid.UUID) (*BatchResult, error)
	BuildDailySnapshot(ctx context.Context, day *time.Time) (int, error)
	BuildMonthlySnapshot(ctx context.Context, year *int, month *int) (int, error)

	// Cached reads
	GetHostMetrics(ctx context.Context, hostID uuid.UUID) (*HostMetrics, error)
	GetActivityMetrics(ctx context.Context, activityID uuid.UUID) (*ActivityMetrics, error)
	GetHostDailySnapshot(ctx context.Context, hostID uuid.UUID, day *time.Time) (*HostDailySnapshot, error)
	GetHostMonthlySnapshot(ctx context.Context, hostID uuid.UUID, year, month *int) (*HostMonthlySnapshot, error)
}

type service struct {
	updater    *Updater
	aggregator *Aggregator
	snapshots  *SnapshotBuilder
	repo       Repository
	cache      cache.Service
	log        *logger.Logger
}

// NewService wires the engine together over one database handle.
func NewService(db *gorm.DB, cacheService cache.Service) Service {
	repo := NewRepository(db)
	return &service{
		updater:    NewUpdater(db),
		aggregator: NewAggregator(repo),
		snapshots:  NewSnapshotBuilder(repo),
		repo:       repo,
		cache:      cacheService,
		log:        logger.Get(),
	}
}

// Best-effort incremental updates

func (s *service) ApplyBookingConfirmed(ctx context.Context, booking BookingEvent, activity ActivityEvent) {
	s.apply(ctx, "booking_confirmed", activity, func() error {
		return s.updater.BookingConfirmed(ctx, booking, activity)
	})
}

func (s *service) ApplyBookingPaid(ctx context.Context, booking BookingEvent, activity ActivityEvent, amount decimal.Decimal) {
	s.apply(ctx, "booking_paid", activity, func() error {
		return s.updater.BookingPaid(ctx, booking, activity, amount)
	})
}

func (s *service) ApplyBookingCancelled(ctx context.Context, booking BookingEvent, activity ActivityEvent, refund *decimal.Decimal) {
	s.apply(ctx, "booking_cancelled", activity, func() error {
		return s.updater.BookingCancelled(ctx, booking, activity, refund)
	})
}

func (s *service) ApplyActivityCreated(ctx context.Context, activity ActivityEvent) {
	s.apply(ctx, "activity_created", activity, func() error {
		return s.updater.ActivityCreated(ctx, activity)
	})
}

func (s *service) ApplyActivityCancelled(ctx context.Context, activity ActivityEvent) {
	s.apply(ctx, "activity_cancelled", activity, func() error {
		return s.updater.ActivityCancelled(ctx, activity)
	})
}

func (s *service) ApplyActivityCompleted(ctx context.Context, activity ActivityEvent) {
	s.apply(ctx, "activity_completed", activity, func() error {
		return s.updater.ActivityCompleted(ctx, activity)
	})
}

func (s *service) RecordView(ctx context.Context, view ViewEvent) {
	if err := s.updater.TrackView(ctx, view); err != nil {
		s.log.LogEventDropped("view_tracked", err)
		return
	}
	s.invalidateActivity(ctx, view.ActivityID)
}

// apply runs one incremental update, swallowing failures after logging them.
func (s *service) apply(ctx context.Context, eventType string, activity ActivityEvent, fn func() error) {
	if err := fn(); err != nil {
		s.log.LogEventDropped(eventType, err)
		return
	}
	s.log.LogEventApplied(eventType, activity.HostID)
	s.invalidateHost(ctx, activity.HostID)
	s.invalidateActivity(ctx, activity.ID)
}

// Must-succeed batch paths

func (s *service) RecomputeHost(ctx context.Context, hostID uuid.UUID) (*BatchResult, error) {
	started := time.Now()
	if err := s.aggregator.RecomputeHost(ctx, hostID); err != nil {
		return nil, err
	}
	// A targeted recompute wipes everything cached for the host, cached
	// snapshots included.
	if err := s.cache.DeletePattern(ctx, constants.HostStatsPattern(hostID.String())); err != nil {
		s.log.Warn("cache invalidation failed after recompute", "host_id", hostID.String(), "error", err.Error())
	}

	duration := time.Since(started)
	return &BatchResult{Processed: 1, Duration: duration, DurationMs: duration.Milliseconds()}, nil
}

func (s *service) RecomputeAllHosts(ctx context.Context) (*BatchResult, error) {
	result, err := s.aggregator.RecomputeAllHosts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.DeletePattern(ctx, constants.CachePrefix+":stats:*"); err != nil {
		s.log.Warn("cache invalidation failed after recompute", "error", err.Error())
	}
	return result, nil
}

func (s *service) RecomputeActivities(ctx context.Context, activityID *uuid.UUID) (*BatchResult, error) {
	if activityID != nil {
		started := time.Now()
		if err := s.aggregator.RecomputeActivity(ctx, *activityID); err != nil {
			return nil, err
		}
		s.invalidateActivity(ctx, *activityID)
		duration := time.Since(started)
		return &BatchResult{Processed: 1, Duration: duration, DurationMs: duration.Milliseconds()}, nil
	}

	result, err := s.aggregator.RecomputeAllActivities(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.DeletePattern(ctx, constants.CacheKeyActivityMetrics+"*"); err != nil {
		s.log.Warn("cache invalidation failed after recompute", "error", err.Error())
	}
	return result, nil
}

// BuildDailySnapshot builds snapshots for the given day, defaulting to
// today at midnight. Scheduled runs that want the previous completed day
// pass it explicitly.
func (s *service) BuildDailySnapshot(ctx context.Context, day *time.Time) (int, error) {
	target := time.Now()
	if day != nil {
		target = *day
	}
	hosts, err := s.snapshots.BuildDaily(ctx, target)
	if err != nil {
		return 0, err
	}
	if err := s.cache.DeletePattern(ctx, constants.CacheKeyHostDaily+"*"); err != nil {
		s.log.Warn("cache invalidation failed after snapshot build", "error", err.Error())
	}
	return hosts, nil
}

// BuildMonthlySnapshot builds snapshots for the given month, defaulting to
// the current one.
func (s *service) BuildMonthlySnapshot(ctx context.Context, year *int, month *int) (int, error) {
	now := time.Now()
	y, m := now.Year(), now.Month()
	if year != nil {
		y = *year
	}
	if month != nil {
		m = time.Month(*month)
	}
	hosts, err := s.snapshots.BuildMonthly(ctx, y, m)
	if err != nil {
		return 0, err
	}
	if err := s.cache.DeletePattern(ctx, constants.CacheKeyHostMonthly+"*"); err != nil {
		s.log.Warn("cache invalidation failed after snapshot build", "error", err.Error())
	}
	return hosts, nil
}

// Cached reads

// GetHostMetrics returns the host's rollup row, or a zeroed row when the
// host has no recorded activity yet.
func (s *service) GetHostMetrics(ctx context.Context, hostID uuid.UUID) (*HostMetrics, error) {
	var m HostMetrics
	err := s.cache.GetOrSet(ctx, constants.HostMetricsKey(hostID.String()), constants.TTLHostMetrics,
		func() (interface{}, error) {
			found, err := s.repo.GetHostMetrics(ctx, hostID)
			if err == gorm.ErrRecordNotFound {
				return &HostMetrics{HostID: hostID}, nil
			}
			if err != nil {
				return nil, err
			}
			return found, nil
		}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *service) GetActivityMetrics(ctx context.Context, activityID uuid.UUID) (*ActivityMetrics, error) {
	var m ActivityMetrics
	err := s.cache.GetOrSet(ctx, constants.ActivityMetricsKey(activityID.String()), constants.TTLActivityMetrics,
		func() (interface{}, error) {
			return s.repo.GetActivityMetrics(ctx, activityID)
		}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetHostDailySnapshot returns one host's snapshot for a day, defaulting to
// today. Snapshot rows only change when a build overwrites them, so they
// cache much longer than the live rollups.
func (s *service) GetHostDailySnapshot(ctx context.Context, hostID uuid.UUID, day *time.Time) (*HostDailySnapshot, error) {
	target := time.Now()
	if day != nil {
		target = *day
	}
	target = startOfDay(target)

	var snapshot HostDailySnapshot
	err := s.cache.GetOrSet(ctx, constants.HostDailyKey(hostID.String(), target.Format("2006-01-02")), constants.TTLDailySnapshots,
		func() (interface{}, error) {
			return s.repo.GetDailySnapshot(ctx, hostID, target)
		}, &snapshot)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// GetHostMonthlySnapshot returns one host's snapshot for a month, defaulting
// to the current one.
func (s *service) GetHostMonthlySnapshot(ctx context.Context, hostID uuid.UUID, year, month *int) (*HostMonthlySnapshot, error) {
	now := time.Now()
	y, m := now.Year(), int(now.Month())
	if year != nil {
		y = *year
	}
	if month != nil {
		m = *month
	}

	var snapshot HostMonthlySnapshot
	err := s.cache.GetOrSet(ctx, constants.HostMonthlyKey(hostID.String(), y, m), constants.TTLMonthlyHistory,
		func() (interface{}, error) {
			return s.repo.GetMonthlySnapshot(ctx, hostID, y, m)
		}, &snapshot)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Cache invalidation

func (s *service) invalidateHost(ctx context.Context, hostID uuid.UUID) {
	if err := s.cache.Delete(ctx, constants.HostMetricsKey(hostID.String())); err != nil {
		s.log.Warn("host cache invalidation failed", "host_id", hostID.String(), "error", err.Error())
	}
}

func (s *service) invalidateActivity(ctx context.Context, activityID uuid.UUID) {
	if err := s.cache.Delete(ctx, constants.ActivityMetricsKey(activityID.String())); err != nil {
		s.log.Warn("activity cache invalidation failed", "activity_id", activityID.String(), "error", err.Error())
	}
}
