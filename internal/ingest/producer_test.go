package ingest

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitspot/internal/shared/config"
	"fitspot/internal/stats"
)

func testKafkaConfig() config.KafkaConfig {
	return config.KafkaConfig{
		BookingTopic:  "fitspot.booking-events",
		ActivityTopic: "fitspot.activity-events",
		ViewTopic:     "fitspot.view-events",
	}
}

func TestPublishBookingKeysAndWraps(t *testing.T) {
	hostID := uuid.New()
	payload := BookingPayload{
		Booking:  stats.BookingEvent{BookingID: uuid.New(), AttendeeID: uuid.New(), ActivityID: uuid.New()},
		Activity: stats.ActivityEvent{ID: uuid.New(), HostID: hostID, Capacity: 10},
	}
	amount := decimal.NewFromInt(1500)
	payload.Amount = &amount

	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "fitspot.booking-events" {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		// Keyed by host, so one host's events stay ordered.
		if string(key) != hostID.String() {
			return fmt.Errorf("unexpected key %s", key)
		}

		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var env Envelope
		if err := json.Unmarshal(value, &env); err != nil {
			return err
		}
		if env.EventType != EventBookingPaid || env.Booking == nil || env.Booking.Amount == nil {
			return fmt.Errorf("malformed envelope: %+v", env)
		}
		return nil
	})

	p := &Producer{producer: mock, cfg: testKafkaConfig()}
	require.NoError(t, p.PublishBooking(EventBookingPaid, payload))
	require.NoError(t, p.Close())
}

func TestPublishViewKeyedByActivity(t *testing.T) {
	activityID := uuid.New()

	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != activityID.String() {
			return fmt.Errorf("unexpected key %s", key)
		}
		return nil
	})

	p := &Producer{producer: mock, cfg: testKafkaConfig()}
	err := p.PublishView(ViewPayload{View: stats.ViewEvent{ActivityID: activityID, Source: "search"}})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublishActivitySurfacesBrokerError(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := &Producer{producer: mock, cfg: testKafkaConfig()}
	err := p.PublishActivity(EventActivityCreated, ActivityPayload{
		Activity: stats.ActivityEvent{ID: uuid.New(), HostID: uuid.New()},
	})
	assert.Error(t, err)
	require.NoError(t, p.Close())
}
