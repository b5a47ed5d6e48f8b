package constants

import (
	"fmt"
	"time"
)

// Redis cache keys and TTLs.
// Key pattern: fitspot:{module}:{entity}:{identifier}

const CachePrefix = "fitspot"

// Metric rollups change on every booking, so their TTLs stay short. Snapshot
// rows are immutable history and can sit in cache much longer.
const (
	TTLHostMetrics     = 5 * time.Minute
	TTLActivityMetrics = 2 * time.Minute
	TTLDailySnapshots  = 1 * time.Hour
	TTLMonthlyHistory  = 6 * time.Hour
)

const (
	CacheKeyHostMetrics     = CachePrefix + ":stats:host:"     // + host-id
	CacheKeyActivityMetrics = CachePrefix + ":stats:activity:" // + activity-id
	CacheKeyHostDaily       = CachePrefix + ":stats:daily:"    // + host-id:date
	CacheKeyHostMonthly     = CachePrefix + ":stats:monthly:"  // + host-id:year-month
)

// HostMetricsKey builds the cache key for one host's metrics row.
func HostMetricsKey(hostID string) string {
	return CacheKeyHostMetrics + hostID
}

// ActivityMetricsKey builds the cache key for one activity's metrics row.
func ActivityMetricsKey(activityID string) string {
	return CacheKeyActivityMetrics + activityID
}

// HostDailyKey builds the cache key for one host's snapshot on one date.
func HostDailyKey(hostID string, date string) string {
	return fmt.Sprintf("%s%s:%s", CacheKeyHostDaily, hostID, date)
}

// HostMonthlyKey builds the cache key for one host's snapshot in one month.
func HostMonthlyKey(hostID string, year, month int) string {
	return fmt.Sprintf("%s%s:%04d-%02d", CacheKeyHostMonthly, hostID, year, month)
}

// HostStatsPattern matches every cached stats entry for one host.
func HostStatsPattern(hostID string) string {
	return fmt.Sprintf("%s:stats:*%s*", CachePrefix, hostID)
}
