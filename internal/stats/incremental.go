package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fitspot/internal/activities"
	"fitspot/internal/bookings"
	"fitspot/internal/views"
)

// Updater applies the smallest correct delta to the rollup rows in response
// to a single lifecycle event. Every operation runs its whole cascade —
// ensure rows, count, increment, recompute rates — inside one database
// transaction, so a concurrent confirm/cancel for the same attendee+host
// pair resolves under the store's isolation rather than an engine lock.
//
// Operations return an error for the Service facade to log; callers outside
// this package go through the best-effort Service methods instead.
type Updater struct {
	db *gorm.DB
}

// NewUpdater creates a new incremental updater instance
func NewUpdater(db *gorm.DB) *Updater {
	return &Updater{db: db}
}

// BookingConfirmed applies the rollup deltas for one confirmed booking.
func (u *Updater) BookingConfirmed(ctx context.Context, booking BookingEvent, activity ActivityEvent) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureHostMetrics(tx, activity.HostID); err != nil {
			return err
		}
		if err := ensureActivityMetrics(tx, activity); err != nil {
			return err
		}

		// Novelty classification: count the attendee's other confirmed
		// bookings with this host, excluding the booking being applied.
		prior, err := countOtherConfirmedBookings(tx, activity.HostID, booking.AttendeeID, booking.BookingID)
		if err != nil {
			return err
		}

		hostUpdates := map[string]interface{}{
			"total_bookings":      gorm.Expr("total_bookings + 1"),
			"bookings_this_month": gorm.Expr("bookings_this_month + 1"),
			"total_spots_filled":  gorm.Expr("total_spots_filled + 1"),
			"updated_at":          time.Now(),
		}
		switch prior {
		case 0:
			hostUpdates["total_unique_attendees"] = gorm.Expr("total_unique_attendees + 1")
			hostUpdates["unique_attendees_this_month"] = gorm.Expr("unique_attendees_this_month + 1")
		case 1:
			// Their second booking with this host: they just became a repeat
			hostUpdates["repeat_attendees"] = gorm.Expr("repeat_attendees + 1")
		}

		err = tx.Model(&HostMetrics{}).
			Where("host_id = ?", activity.HostID).
			Updates(hostUpdates).Error
		if err != nil {
			return fmt.Errorf("failed to update host metrics: %w", err)
		}

		err = tx.Model(&ActivityMetrics{}).
			Where("activity_id = ?", activity.ID).
			Updates(map[string]interface{}{
				"total_bookings":     gorm.Expr("total_bookings + 1"),
				"confirmed_bookings": gorm.Expr("confirmed_bookings + 1"),
				"spots_filled":       gorm.Expr("spots_filled + 1"),
				"spots_remaining":    gorm.Expr("spots_remaining - 1"),
				"updated_at":         time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update activity metrics: %w", err)
		}

		if err := upsertRelationship(tx, activity.HostID, booking.AttendeeID, booking.AmountPaid); err != nil {
			return err
		}

		if err := refreshHostRates(tx, activity.HostID); err != nil {
			return err
		}
		return refreshActivityRates(tx, activity.ID)
	})
}

// BookingPaid applies a captured payment to the revenue rollups. Booking
// counts were already handled at confirmation time.
func (u *Updater) BookingPaid(ctx context.Context, booking BookingEvent, activity ActivityEvent, amount decimal.Decimal) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureHostMetrics(tx, activity.HostID); err != nil {
			return err
		}
		if err := ensureActivityMetrics(tx, activity); err != nil {
			return err
		}

		err := tx.Model(&HostMetrics{}).
			Where("host_id = ?", activity.HostID).
			Updates(map[string]interface{}{
				"total_revenue":      gorm.Expr("total_revenue + ?", amount),
				"revenue_this_month": gorm.Expr("revenue_this_month + ?", amount),
				"revenue_this_year":  gorm.Expr("revenue_this_year + ?", amount),
				"updated_at":         time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update host revenue: %w", err)
		}

		err = tx.Model(&ActivityMetrics{}).
			Where("activity_id = ?", activity.ID).
			Updates(map[string]interface{}{
				"total_revenue": gorm.Expr("total_revenue + ?", amount),
				"updated_at":    time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update activity revenue: %w", err)
		}

		err = tx.Model(&AttendeeRelationship{}).
			Where("host_id = ? AND attendee_id = ?", activity.HostID, booking.AttendeeID).
			Updates(map[string]interface{}{
				"total_spent": gorm.Expr("total_spent + ?", amount),
				"updated_at":  time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update relationship spend: %w", err)
		}

		return refreshHostRates(tx, activity.HostID)
	})
}

// BookingCancelled reverses the count deltas of a confirmed booking and,
// when a refund was issued, the refunded revenue — all in one transaction so
// a partial refund failure cannot leave revenue and counts out of sync.
func (u *Updater) BookingCancelled(ctx context.Context, booking BookingEvent, activity ActivityEvent, refundAmount *decimal.Decimal) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureHostMetrics(tx, activity.HostID); err != nil {
			return err
		}
		if err := ensureActivityMetrics(tx, activity); err != nil {
			return err
		}

		remaining, err := countOtherConfirmedBookings(tx, activity.HostID, booking.AttendeeID, booking.BookingID)
		if err != nil {
			return err
		}

		hostUpdates := map[string]interface{}{
			"total_bookings": gorm.Expr("total_bookings - 1"),
			"updated_at":     time.Now(),
		}
		switch remaining {
		case 0:
			// The cancellation undid their only booking with this host
			hostUpdates["total_unique_attendees"] = gorm.Expr("total_unique_attendees - 1")
		case 1:
			// Back down to a single booking: no longer a repeat attendee
			hostUpdates["repeat_attendees"] = gorm.Expr("repeat_attendees - 1")
		}

		if refundAmount != nil && refundAmount.IsPositive() {
			hostUpdates["total_revenue"] = gorm.Expr("total_revenue - ?", *refundAmount)
		}

		err = tx.Model(&HostMetrics{}).
			Where("host_id = ?", activity.HostID).
			Updates(hostUpdates).Error
		if err != nil {
			return fmt.Errorf("failed to update host metrics: %w", err)
		}

		activityUpdates := map[string]interface{}{
			"spots_filled":       gorm.Expr("spots_filled - 1"),
			"spots_remaining":    gorm.Expr("spots_remaining + 1"),
			"confirmed_bookings": gorm.Expr("confirmed_bookings - 1"),
			"cancelled_bookings": gorm.Expr("cancelled_bookings + 1"),
			"updated_at":         time.Now(),
		}
		if refundAmount != nil && refundAmount.IsPositive() {
			activityUpdates["total_revenue"] = gorm.Expr("total_revenue - ?", *refundAmount)
		}

		err = tx.Model(&ActivityMetrics{}).
			Where("activity_id = ?", activity.ID).
			Updates(activityUpdates).Error
		if err != nil {
			return fmt.Errorf("failed to update activity metrics: %w", err)
		}

		relationshipUpdates := map[string]interface{}{
			"events_attended": gorm.Expr("events_attended - 1"),
			"updated_at":      time.Now(),
		}
		if refundAmount != nil && refundAmount.IsPositive() {
			relationshipUpdates["total_spent"] = gorm.Expr("total_spent - ?", *refundAmount)
		}

		err = tx.Model(&AttendeeRelationship{}).
			Where("host_id = ? AND attendee_id = ?", activity.HostID, booking.AttendeeID).
			Updates(relationshipUpdates).Error
		if err != nil {
			return fmt.Errorf("failed to update attendee relationship: %w", err)
		}

		if err := refreshHostRates(tx, activity.HostID); err != nil {
			return err
		}
		return refreshActivityRates(tx, activity.ID)
	})
}

// ActivityCreated registers a new activity in the host's event counters and
// creates its metrics row with all spots remaining.
func (u *Updater) ActivityCreated(ctx context.Context, activity ActivityEvent) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureHostMetrics(tx, activity.HostID); err != nil {
			return err
		}
		if err := ensureActivityMetrics(tx, activity); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"total_events":        gorm.Expr("total_events + 1"),
			"events_this_month":   gorm.Expr("events_this_month + 1"),
			"events_this_year":    gorm.Expr("events_this_year + 1"),
			"total_spots_offered": gorm.Expr("total_spots_offered + ?", activity.Capacity),
			"updated_at":          time.Now(),
		}
		if activity.StartTime.After(time.Now()) {
			updates["upcoming_events"] = gorm.Expr("upcoming_events + 1")
		}

		err := tx.Model(&HostMetrics{}).
			Where("host_id = ?", activity.HostID).
			Updates(updates).Error
		if err != nil {
			return fmt.Errorf("failed to update host event counts: %w", err)
		}

		return refreshHostRates(tx, activity.HostID)
	})
}

// ActivityCancelled applies the upcoming → cancelled transition.
func (u *Updater) ActivityCancelled(ctx context.Context, activity ActivityEvent) error {
	return u.activityTransition(ctx, activity, "cancelled_events")
}

// ActivityCompleted applies the upcoming → completed transition.
func (u *Updater) ActivityCompleted(ctx context.Context, activity ActivityEvent) error {
	return u.activityTransition(ctx, activity, "completed_events")
}

func (u *Updater) activityTransition(ctx context.Context, activity ActivityEvent, targetColumn string) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureHostMetrics(tx, activity.HostID); err != nil {
			return err
		}

		err := tx.Model(&HostMetrics{}).
			Where("host_id = ?", activity.HostID).
			Updates(map[string]interface{}{
				targetColumn:      gorm.Expr(targetColumn + " + 1"),
				"upcoming_events": gorm.Expr("upcoming_events - 1"),
				"updated_at":      time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to apply activity transition: %w", err)
		}
		return nil
	})
}

// TrackView appends a view record to the ledger and bumps the view rollups.
// Unique-viewer detection is a lookback excluding the just-inserted row;
// concurrent duplicate submissions can overcount by one until the next batch
// run corrects it.
func (u *Updater) TrackView(ctx context.Context, view ViewEvent) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := views.ActivityView{
			ID:         uuid.New(),
			ActivityID: view.ActivityID,
			ViewerID:   view.ViewerID,
			Source:     view.Source,
			DeviceType: view.DeviceType,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to append view record: %w", err)
		}

		hostID, capacity, err := resolveActivity(tx, view.ActivityID)
		if err != nil {
			return err
		}

		// Seed the row with the ledger capacity, so a view arriving before
		// any booking event doesn't leave it with zero spots.
		err = ensureActivityMetrics(tx, ActivityEvent{ID: view.ActivityID, HostID: hostID, Capacity: capacity})
		if err != nil {
			return err
		}

		firstView := false
		if view.ViewerID != nil {
			var priorViews int64
			err = tx.Model(&views.ActivityView{}).
				Where("activity_id = ? AND viewer_id = ? AND id <> ?", view.ActivityID, *view.ViewerID, record.ID).
				Count(&priorViews).Error
			if err != nil {
				return fmt.Errorf("failed to look back for prior views: %w", err)
			}
			firstView = priorViews == 0
		}

		activityUpdates := map[string]interface{}{
			"view_count": gorm.Expr("view_count + 1"),
			"updated_at": time.Now(),
		}
		if firstView {
			activityUpdates["unique_viewer_count"] = gorm.Expr("unique_viewer_count + 1")
		}

		err = tx.Model(&ActivityMetrics{}).
			Where("activity_id = ?", view.ActivityID).
			Updates(activityUpdates).Error
		if err != nil {
			return fmt.Errorf("failed to update activity view counts: %w", err)
		}

		if hostID != uuid.Nil {
			if err := ensureHostMetrics(tx, hostID); err != nil {
				return err
			}
			err = tx.Model(&HostMetrics{}).
				Where("host_id = ?", hostID).
				Updates(map[string]interface{}{
					"total_activity_views": gorm.Expr("total_activity_views + 1"),
					"updated_at":           time.Now(),
				}).Error
			if err != nil {
				return fmt.Errorf("failed to update host view count: %w", err)
			}
			if err := refreshHostRates(tx, hostID); err != nil {
				return err
			}
		}

		return refreshActivityRates(tx, view.ActivityID)
	})
}

// Shared transaction helpers

// ensureHostMetrics makes the idempotent "create row if absent" step of every
// incremental operation explicit, so deltas never hit a missing row.
func ensureHostMetrics(tx *gorm.DB, hostID uuid.UUID) error {
	m := HostMetrics{
		ID:               uuid.New(),
		HostID:           hostID,
		LastAggregatedAt: time.Now(),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "host_id"}},
		DoNothing: true,
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("failed to ensure host metrics row: %w", err)
	}
	return nil
}

func ensureActivityMetrics(tx *gorm.DB, activity ActivityEvent) error {
	m := ActivityMetrics{
		ID:             uuid.New(),
		ActivityID:     activity.ID,
		HostID:         activity.HostID,
		TotalSpots:     activity.Capacity,
		SpotsRemaining: activity.Capacity,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "activity_id"}},
		DoNothing: true,
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("failed to ensure activity metrics row: %w", err)
	}
	return nil
}

func countOtherConfirmedBookings(tx *gorm.DB, hostID, attendeeID, excludeBookingID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&bookings.Booking{}).
		Joins("JOIN activities ON activities.id = bookings.activity_id").
		Where("activities.host_id = ? AND bookings.attendee_id = ? AND bookings.status = ? AND bookings.id <> ?",
			hostID, attendeeID, bookings.StatusConfirmed, excludeBookingID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attendee bookings: %w", err)
	}
	return count, nil
}

func upsertRelationship(tx *gorm.DB, hostID, attendeeID uuid.UUID, amountPaid decimal.Decimal) error {
	now := time.Now()
	var rel AttendeeRelationship
	err := tx.Where("host_id = ? AND attendee_id = ?", hostID, attendeeID).First(&rel).Error
	if err == gorm.ErrRecordNotFound {
		rel = AttendeeRelationship{
			ID:              uuid.New(),
			HostID:          hostID,
			AttendeeID:      attendeeID,
			EventsAttended:  1,
			FirstAttendedAt: now,
			LastAttendedAt:  now,
			TotalSpent:      amountPaid,
		}
		if err := tx.Create(&rel).Error; err != nil {
			return fmt.Errorf("failed to create attendee relationship: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load attendee relationship: %w", err)
	}

	err = tx.Model(&AttendeeRelationship{}).
		Where("id = ?", rel.ID).
		Updates(map[string]interface{}{
			"events_attended":  gorm.Expr("events_attended + 1"),
			"last_attended_at": now,
			"total_spent":      gorm.Expr("total_spent + ?", amountPaid),
			"updated_at":       now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update attendee relationship: %w", err)
	}
	return nil
}

// resolveActivity finds the host and capacity of an activity, via the ledger
// first and the metrics row as fallback. Returns uuid.Nil when neither knows
// the activity; the view is still recorded and batch repair fills the gap.
func resolveActivity(tx *gorm.DB, activityID uuid.UUID) (uuid.UUID, int, error) {
	var act activities.Activity
	err := tx.Unscoped().Select("id, host_id, capacity").Where("id = ?", activityID).First(&act).Error
	if err == nil {
		return act.HostID, act.Capacity, nil
	}
	if err != gorm.ErrRecordNotFound {
		return uuid.Nil, 0, fmt.Errorf("failed to resolve activity host: %w", err)
	}

	var m ActivityMetrics
	err = tx.Select("host_id, total_spots").Where("activity_id = ?", activityID).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return uuid.Nil, 0, nil
	}
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("failed to resolve activity host: %w", err)
	}
	return m.HostID, m.TotalSpots, nil
}

// refreshHostRates rederives every rate on the host row from its freshly
// updated counts, inside the same transaction that changed them. Rates are
// never incremented directly.
func refreshHostRates(tx *gorm.DB, hostID uuid.UUID) error {
	var m HostMetrics
	if err := tx.Where("host_id = ?", hostID).First(&m).Error; err != nil {
		return fmt.Errorf("failed to reload host metrics for rates: %w", err)
	}

	err := tx.Model(&HostMetrics{}).
		Where("host_id = ?", hostID).
		Updates(map[string]interface{}{
			"attendance_rate":         percentage(int64(m.TotalSpotsFilled), int64(m.TotalSpotsOffered)),
			"avg_attendees_per_event": average(int64(m.TotalSpotsFilled), int64(m.TotalEvents)),
			"repeat_attendee_rate":    percentage(int64(m.RepeatAttendees), int64(m.TotalUniqueAttendees)),
			"avg_revenue_per_event":   averageAmount(m.TotalRevenue, int64(m.TotalEvents)),
			"booking_conversion_rate": percentage(int64(m.TotalBookings), int64(m.TotalActivityViews)),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to refresh host rates: %w", err)
	}
	return nil
}

func refreshActivityRates(tx *gorm.DB, activityID uuid.UUID) error {
	var m ActivityMetrics
	if err := tx.Where("activity_id = ?", activityID).First(&m).Error; err != nil {
		return fmt.Errorf("failed to reload activity metrics for rates: %w", err)
	}

	err := tx.Model(&ActivityMetrics{}).
		Where("activity_id = ?", activityID).
		Updates(map[string]interface{}{
			"fill_rate":            percentage(int64(m.SpotsFilled), int64(m.TotalSpots)),
			"view_to_booking_rate": percentage(int64(m.ConfirmedBookings), int64(m.ViewCount)),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to refresh activity rates: %w", err)
	}
	return nil
}
