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
)

// ActivityCount is one row of a grouped-by-activity count query.
type ActivityCount struct {
	ActivityID uuid.UUID `gorm:"column:activity_id"`
	Count      int64     `gorm:"column:count"`
}

// ActivityAmount is one row of a grouped-by-activity currency sum query.
type ActivityAmount struct {
	ActivityID uuid.UUID       `gorm:"column:activity_id"`
	Amount     decimal.Decimal `gorm:"column:amount"`
}

// HostCount is one row of a grouped-by-host count query.
type HostCount struct {
	HostID uuid.UUID `gorm:"column:host_id"`
	Count  int64     `gorm:"column:count"`
}

// Repository defines the metric store plus the ledger read queries the batch
// paths need. Incremental deltas live in Updater because they must share one
// transaction per event.
type Repository interface {
	// Metric store reads
	GetHostMetrics(ctx context.Context, hostID uuid.UUID) (*HostMetrics, error)
	GetActivityMetrics(ctx context.Context, activityID uuid.UUID) (*ActivityMetrics, error)
	GetAttendeeRelationship(ctx context.Context, hostID, attendeeID uuid.UUID) (*AttendeeRelationship, error)
	GetDailySnapshot(ctx context.Context, hostID uuid.UUID, day time.Time) (*HostDailySnapshot, error)
	GetMonthlySnapshot(ctx context.Context, hostID uuid.UUID, year, month int) (*HostMonthlySnapshot, error)

	// Metric store overwrites (batch path)
	UpsertHostMetrics(ctx context.Context, m *HostMetrics) error
	UpsertActivityMetrics(ctx context.Context, m *ActivityMetrics) error
	UpsertAttendeeRelationships(ctx context.Context, relationships []AttendeeRelationship) error
	UpsertDailySnapshots(ctx context.Context, snapshots []HostDailySnapshot) error
	UpsertMonthlySnapshots(ctx context.Context, snapshots []HostMonthlySnapshot) error

	// Ledger reads
	ListHostIDs(ctx context.Context) ([]uuid.UUID, error)
	ListActivityIDs(ctx context.Context) ([]uuid.UUID, error)
	GetActivity(ctx context.Context, activityID uuid.UUID) (*activities.Activity, error)
	GetHostActivities(ctx context.Context, hostID uuid.UUID) ([]activities.Activity, error)
	GetConfirmedBookings(ctx context.Context, activityIDs []uuid.UUID) ([]bookings.Booking, error)
	CountBookingsByStatus(ctx context.Context, activityID uuid.UUID) (map[bookings.Status]int64, error)
	SumPaidRevenue(ctx context.Context, activityIDs []uuid.UUID, paidSince *time.Time) (decimal.Decimal, error)
	CountViews(ctx context.Context, activityIDs []uuid.UUID) (int64, error)
	CountUniqueViewers(ctx context.Context, activityID uuid.UUID) (int64, error)

	// Grouped snapshot-window reads (grouped by the many-side key so the
	// builder can fold into hosts without per-host query loops)
	EventsHostedByHost(ctx context.Context, from, to time.Time) ([]HostCount, error)
	BookingsCreatedByActivity(ctx context.Context, from, to time.Time) ([]ActivityCount, error)
	CancellationsByActivity(ctx context.Context, from, to time.Time) ([]ActivityCount, error)
	RevenuePaidByActivity(ctx context.Context, from, to time.Time) ([]ActivityAmount, error)
	ViewsByActivity(ctx context.Context, from, to time.Time) ([]ActivityCount, error)
	ActivityHostLookup(ctx context.Context, activityIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	ActivityCapacitiesStarting(ctx context.Context, from, to time.Time) ([]activities.Activity, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new stats repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Metric store reads

func (r *repository) GetHostMetrics(ctx context.Context, hostID uuid.UUID) (*HostMetrics, error) {
	var m HostMetrics
	err := r.db.WithContext(ctx).Where("host_id = ?", hostID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) GetActivityMetrics(ctx context.Context, activityID uuid.UUID) (*ActivityMetrics, error) {
	var m ActivityMetrics
	err := r.db.WithContext(ctx).Where("activity_id = ?", activityID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) GetAttendeeRelationship(ctx context.Context, hostID, attendeeID uuid.UUID) (*AttendeeRelationship, error) {
	var rel AttendeeRelationship
	err := r.db.WithContext(ctx).
		Where("host_id = ? AND attendee_id = ?", hostID, attendeeID).
		First(&rel).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// GetDailySnapshot loads one host's snapshot for a calendar day. The date
// column is matched by range so the comparison works the same on postgres
// and sqlite.
func (r *repository) GetDailySnapshot(ctx context.Context, hostID uuid.UUID, day time.Time) (*HostDailySnapshot, error) {
	start := startOfDay(day)
	var s HostDailySnapshot
	err := r.db.WithContext(ctx).
		Where("host_id = ? AND snapshot_date >= ? AND snapshot_date < ?", hostID, start, start.AddDate(0, 0, 1)).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) GetMonthlySnapshot(ctx context.Context, hostID uuid.UUID, year, month int) (*HostMonthlySnapshot, error) {
	var s HostMonthlySnapshot
	err := r.db.WithContext(ctx).
		Where("host_id = ? AND year = ? AND month = ?", hostID, year, month).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Metric store overwrites

func (r *repository) UpsertHostMetrics(ctx context.Context, m *HostMetrics) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "host_id"}},
		UpdateAll: true,
	}).Create(m).Error
}

func (r *repository) UpsertActivityMetrics(ctx context.Context, m *ActivityMetrics) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "activity_id"}},
		UpdateAll: true,
	}).Create(m).Error
}

func (r *repository) UpsertAttendeeRelationships(ctx context.Context, relationships []AttendeeRelationship) error {
	if len(relationships) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "host_id"}, {Name: "attendee_id"}},
		UpdateAll: true,
	}).Create(&relationships).Error
}

func (r *repository) UpsertDailySnapshots(ctx context.Context, snapshots []HostDailySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "host_id"}, {Name: "snapshot_date"}},
		UpdateAll: true,
	}).Create(&snapshots).Error
}

func (r *repository) UpsertMonthlySnapshots(ctx context.Context, snapshots []HostMonthlySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "host_id"}, {Name: "year"}, {Name: "month"}},
		UpdateAll: true,
	}).Create(&snapshots).Error
}

// Ledger reads

func (r *repository) ListHostIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&activities.Activity{}).
		Distinct("host_id").
		Pluck("host_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list host ids: %w", err)
	}
	return ids, nil
}

func (r *repository) ListActivityIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&activities.Activity{}).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity ids: %w", err)
	}
	return ids, nil
}

func (r *repository) GetActivity(ctx context.Context, activityID uuid.UUID) (*activities.Activity, error) {
	var a activities.Activity
	err := r.db.WithContext(ctx).Where("id = ?", activityID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) GetHostActivities(ctx context.Context, hostID uuid.UUID) ([]activities.Activity, error) {
	var acts []activities.Activity
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Find(&acts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load host activities: %w", err)
	}
	return acts, nil
}

func (r *repository) GetConfirmedBookings(ctx context.Context, activityIDs []uuid.UUID) ([]bookings.Booking, error) {
	if len(activityIDs) == 0 {
		return nil, nil
	}
	var list []bookings.Booking
	err := r.db.WithContext(ctx).
		Where("activity_id IN ? AND status = ?", activityIDs, bookings.StatusConfirmed).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmed bookings: %w", err)
	}
	return list, nil
}

func (r *repository) CountBookingsByStatus(ctx context.Context, activityID uuid.UUID) (map[bookings.Status]int64, error) {
	var rows []struct {
		Status bookings.Status `gorm:"column:status"`
		Count  int64           `gorm:"column:count"`
	}
	err := r.db.WithContext(ctx).
		Model(&bookings.Booking{}).
		Select("status, COUNT(*) as count").
		Where("activity_id = ?", activityID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings by status: %w", err)
	}

	counts := make(map[bookings.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) SumPaidRevenue(ctx context.Context, activityIDs []uuid.UUID, paidSince *time.Time) (decimal.Decimal, error) {
	if len(activityIDs) == 0 {
		return decimal.Zero, nil
	}

	query := r.db.WithContext(ctx).
		Model(&bookings.Booking{}).
		Where("activity_id IN ? AND payment_status = ?", activityIDs, bookings.PaymentPaid)
	if paidSince != nil {
		query = query.Where("paid_at >= ?", *paidSince)
	}

	var row struct {
		Amount decimal.Decimal `gorm:"column:amount"`
	}
	err := query.Select("COALESCE(SUM(amount_paid), 0) as amount").Scan(&row).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum paid revenue: %w", err)
	}
	return row.Amount, nil
}

func (r *repository) CountViews(ctx context.Context, activityIDs []uuid.UUID) (int64, error) {
	if len(activityIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Table("activity_views").
		Where("activity_id IN ?", activityIDs).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count views: %w", err)
	}
	return count, nil
}

func (r *repository) CountUniqueViewers(ctx context.Context, activityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("activity_views").
		Where("activity_id = ? AND viewer_id IS NOT NULL", activityID).
		Select("COUNT(DISTINCT viewer_id)").
		Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unique viewers: %w", err)
	}
	return count, nil
}

// Grouped snapshot-window reads

func (r *repository) EventsHostedByHost(ctx context.Context, from, to time.Time) ([]HostCount, error) {
	var rows []HostCount
	err := r.db.WithContext(ctx).
		Model(&activities.Activity{}).
		Select("host_id, COUNT(*) as count").
		Where("start_time >= ? AND start_time < ?", from, to).
		Group("host_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group hosted events: %w", err)
	}
	return rows, nil
}

func (r *repository) BookingsCreatedByActivity(ctx context.Context, from, to time.Time) ([]ActivityCount, error) {
	var rows []ActivityCount
	err := r.db.WithContext(ctx).
		Model(&bookings.Booking{}).
		Select("activity_id, COUNT(*) as count").
		Where("created_at >= ? AND created_at < ? AND status = ?", from, to, bookings.StatusConfirmed).
		Group("activity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group new bookings: %w", err)
	}
	return rows, nil
}

func (r *repository) CancellationsByActivity(ctx context.Context, from, to time.Time) ([]ActivityCount, error) {
	var rows []ActivityCount
	err := r.db.WithContext(ctx).
		Model(&bookings.Booking{}).
		Select("activity_id, COUNT(*) as count").
		Where("cancelled_at >= ? AND cancelled_at < ? AND status = ?", from, to, bookings.StatusCancelled).
		Group("activity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group cancellations: %w", err)
	}
	return rows, nil
}

func (r *repository) RevenuePaidByActivity(ctx context.Context, from, to time.Time) ([]ActivityAmount, error) {
	var rows []ActivityAmount
	err := r.db.WithContext(ctx).
		Model(&bookings.Booking{}).
		Select("activity_id, COALESCE(SUM(amount_paid), 0) as amount").
		Where("paid_at >= ? AND paid_at < ? AND payment_status = ?", from, to, bookings.PaymentPaid).
		Group("activity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group paid revenue: %w", err)
	}
	return rows, nil
}

func (r *repository) ViewsByActivity(ctx context.Context, from, to time.Time) ([]ActivityCount, error) {
	var rows []ActivityCount
	err := r.db.WithContext(ctx).
		Table("activity_views").
		Select("activity_id, COUNT(*) as count").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("activity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group views: %w", err)
	}
	return rows, nil
}

func (r *repository) ActivityHostLookup(ctx context.Context, activityIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	lookup := make(map[uuid.UUID]uuid.UUID, len(activityIDs))
	if len(activityIDs) == 0 {
		return lookup, nil
	}

	var rows []struct {
		ID     uuid.UUID `gorm:"column:id"`
		HostID uuid.UUID `gorm:"column:host_id"`
	}
	// Unscoped so views and bookings against since-deleted activities still
	// fold into their host's totals.
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&activities.Activity{}).
		Select("id, host_id").
		Where("id IN ?", activityIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build activity-host lookup: %w", err)
	}

	for _, row := range rows {
		lookup[row.ID] = row.HostID
	}
	return lookup, nil
}

func (r *repository) ActivityCapacitiesStarting(ctx context.Context, from, to time.Time) ([]activities.Activity, error) {
	var acts []activities.Activity
	err := r.db.WithContext(ctx).
		Select("id, host_id, capacity").
		Where("start_time >= ? AND start_time < ?", from, to).
		Find(&acts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load activity capacities: %w", err)
	}
	return acts, nil
}
