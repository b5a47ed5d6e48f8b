package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"fitspot/internal/activities"
	"fitspot/internal/bookings"
	"fitspot/internal/ingest"
	"fitspot/internal/shared/config"
	"fitspot/internal/shared/database"
	"fitspot/internal/stats"
	"fitspot/pkg/cache"
	"fitspot/pkg/logger"
)

// Seeds the ledger with synthetic hosts, activities, bookings, and views,
// replays them through the statistics engine, and finishes with a full
// recompute so the rollups match the ledger exactly. With Kafka enabled the
// replay publishes onto the topics, so the running consumer gets exercised
// end to end; otherwise events apply in-process.
func main() {
	hosts := flag.Int("hosts", 5, "number of hosts to seed")
	activitiesPerHost := flag.Int("activities", 4, "activities per host")
	attendees := flag.Int("attendees", 30, "size of the shared attendee pool")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.Environment)
	log := logger.Get()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Error("failed to initialize database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	service := stats.NewService(db.Gorm, cache.NewService(nil))

	replay := ingest.NewReplayer(service, nil)
	if cfg.Kafka.Enabled {
		producer, err := ingest.NewProducer(cfg.Kafka)
		if err != nil {
			log.Error("failed to create producer", "error", err.Error())
			os.Exit(1)
		}
		defer producer.Close()
		replay = ingest.NewReplayer(service, producer)
		log.Info("seeding through kafka", "brokers", cfg.Kafka.Brokers)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	attendeePool := make([]uuid.UUID, *attendees)
	for i := range attendeePool {
		attendeePool[i] = uuid.New()
	}

	for h := 0; h < *hosts; h++ {
		hostID := uuid.New()
		for a := 0; a < *activitiesPerHost; a++ {
			act := activities.Activity{
				ID:        uuid.New(),
				HostID:    hostID,
				Title:     "Seeded session",
				Capacity:  10 + rng.Intn(20),
				Price:     decimal.NewFromInt(int64(500 + rng.Intn(20)*100)),
				StartTime: time.Now().AddDate(0, 0, rng.Intn(28)-14),
				Status:    activities.StatusScheduled,
			}
			if err := db.Gorm.Create(&act).Error; err != nil {
				log.Error("failed to seed activity", "error", err.Error())
				os.Exit(1)
			}

			event := stats.ActivityEvent{
				ID:        act.ID,
				HostID:    hostID,
				Capacity:  act.Capacity,
				StartTime: act.StartTime,
				Status:    act.Status,
			}
			if err := replay.ActivityCreated(ctx, event); err != nil {
				log.Error("failed to replay activity event", "error", err.Error())
				os.Exit(1)
			}

			seedBookings(ctx, db, replay, rng, act, event, attendeePool)
			seedViews(ctx, replay, rng, act.ID, attendeePool)
		}
		log.Info("seeded host", "host_id", hostID.String())
	}

	// The final recompute reads the ledger directly, so it squares the
	// rollups even when the published events are still in flight.
	result, err := service.RecomputeAllHosts(ctx)
	if err != nil {
		log.Error("final recompute failed", "error", err.Error())
		os.Exit(1)
	}
	if _, err := service.RecomputeActivities(ctx, nil); err != nil {
		log.Error("final activity recompute failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("seed complete", "hosts", result.Processed, "duration_ms", result.DurationMs)
}

func seedBookings(ctx context.Context, db *database.DB, replay *ingest.Replayer, rng *rand.Rand,
	act activities.Activity, event stats.ActivityEvent, attendeePool []uuid.UUID) {
	log := logger.Get()

	count := 1 + rng.Intn(act.Capacity/2+1)
	for i := 0; i < count; i++ {
		b := bookings.Booking{
			ID:         uuid.New(),
			AttendeeID: attendeePool[rng.Intn(len(attendeePool))],
			ActivityID: act.ID,
			Status:     bookings.StatusConfirmed,
			AmountPaid: decimal.Zero,
		}
		if err := db.Gorm.Create(&b).Error; err != nil {
			log.Error("failed to seed booking", "error", err.Error())
			os.Exit(1)
		}

		bookingEvent := stats.BookingEvent{
			BookingID:  b.ID,
			AttendeeID: b.AttendeeID,
			ActivityID: b.ActivityID,
		}
		if err := replay.BookingConfirmed(ctx, bookingEvent, event); err != nil {
			log.Error("failed to replay booking event", "error", err.Error())
			os.Exit(1)
		}

		// Most bookings pay; a few stay pending.
		if rng.Float64() < 0.8 {
			amount := act.Price
			b.MarkPaid(amount)
			if err := db.Gorm.Save(&b).Error; err != nil {
				log.Error("failed to mark booking paid", "error", err.Error())
				os.Exit(1)
			}
			bookingEvent.AmountPaid = amount
			if err := replay.BookingPaid(ctx, bookingEvent, event, amount); err != nil {
				log.Error("failed to replay payment event", "error", err.Error())
				os.Exit(1)
			}
		}
	}
}

func seedViews(ctx context.Context, replay *ingest.Replayer, rng *rand.Rand,
	activityID uuid.UUID, attendeePool []uuid.UUID) {
	log := logger.Get()

	count := 5 + rng.Intn(40)
	for i := 0; i < count; i++ {
		view := stats.ViewEvent{
			ActivityID: activityID,
			Source:     "seed",
			DeviceType: "web",
		}
		// Roughly two thirds of traffic is identified.
		if rng.Float64() < 0.66 {
			viewerID := attendeePool[rng.Intn(len(attendeePool))]
			view.ViewerID = &viewerID
		}
		if err := replay.View(ctx, view); err != nil {
			log.Error("failed to replay view event", "error", err.Error())
			os.Exit(1)
		}
	}
}
