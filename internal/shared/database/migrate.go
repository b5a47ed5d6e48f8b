package database

import (
	"gorm.io/gorm"

	"fitspot/internal/activities"
	"fitspot/internal/bookings"
	"fitspot/internal/stats"
	"fitspot/internal/views"
)

// Migrate runs schema migrations for the ledger and metric store tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Ledger (owned by the booking system, mirrored here)
		&activities.Activity{},
		&bookings.Booking{},
		&views.ActivityView{},

		// Metric store
		&stats.HostMetrics{},
		&stats.ActivityMetrics{},
		&stats.AttendeeRelationship{},
		&stats.HostDailySnapshot{},
		&stats.HostMonthlySnapshot{},
	)
}
