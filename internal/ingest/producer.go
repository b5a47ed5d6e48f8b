package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"fitspot/internal/shared/config"
)

// Producer publishes lifecycle events onto the statistics topics. The
// booking system is the usual caller; the seeder uses it to replay
// synthetic history.
type Producer struct {
	producer sarama.SyncProducer
	cfg      config.KafkaConfig
}

// NewProducer creates an idempotent sync producer. Messages are keyed by
// host so one host's events stay ordered within a partition.
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Timeout = 10 * time.Second
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return &Producer{producer: producer, cfg: cfg}, nil
}

// PublishBooking publishes a booking lifecycle event.
func (p *Producer) PublishBooking(eventType string, payload BookingPayload) error {
	return p.publish(p.cfg.BookingTopic, eventType, payload.Activity.HostID.String(), Envelope{
		EventType:  eventType,
		OccurredAt: time.Now(),
		Booking:    &payload,
	})
}

// PublishActivity publishes an activity lifecycle event.
func (p *Producer) PublishActivity(eventType string, payload ActivityPayload) error {
	return p.publish(p.cfg.ActivityTopic, eventType, payload.Activity.HostID.String(), Envelope{
		EventType:  eventType,
		OccurredAt: time.Now(),
		Activity:   &payload,
	})
}

// PublishView publishes a tracked view.
func (p *Producer) PublishView(payload ViewPayload) error {
	return p.publish(p.cfg.ViewTopic, EventViewTracked, payload.View.ActivityID.String(), Envelope{
		EventType:  EventViewTracked,
		OccurredAt: time.Now(),
		View:       &payload,
	})
}

func (p *Producer) publish(topic, eventType, key string, envelope Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

// Close shuts the producer down.
func (p *Producer) Close() error {
	return p.producer.Close()
}
