package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"

	"fitspot/internal/shared/config"
	"fitspot/internal/stats"
	"fitspot/pkg/logger"
)

// Consumer reads lifecycle events from the booking system's topics and feeds
// them to the statistics service. Every message is marked consumed whether
// or not the update succeeded: the service's apply path is best-effort and
// the batch recompute repairs drops, so a bad message must never wedge a
// partition.
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	service stats.Service
	log     *logger.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewConsumer creates a consumer group over the configured topics.
func NewConsumer(cfg config.KafkaConfig, service stats.Service) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = 30 * time.Second
	saramaConfig.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		group:   group,
		topics:  []string{cfg.BookingTopic, cfg.ActivityTopic, cfg.ViewTopic},
		service: service,
		log:     logger.Get(),
		done:    make(chan struct{}),
	}, nil
}

// Start launches the consume loop. It returns immediately; consumption runs
// until Stop or context cancellation.
func (c *Consumer) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.handleErrors()
	go func() {
		defer close(c.done)
		handler := &groupHandler{service: c.service, log: c.log}
		for {
			if err := c.group.Consume(runCtx, c.topics, handler); err != nil {
				if runCtx.Err() != nil {
					return
				}
				c.log.Error("consumer group session failed", "error", err.Error())
				time.Sleep(time.Second)
			}
			if runCtx.Err() != nil {
				return
			}
		}
	}()

	c.log.Info("event consumer started", "topics", fmt.Sprintf("%v", c.topics))
}

// Stop shuts the consumer down and waits for the consume loop to drain.
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	<-c.done
	return c.group.Close()
}

func (c *Consumer) handleErrors() {
	for err := range c.group.Errors() {
		c.log.Error("consumer error", "error", err.Error())
	}
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	service stats.Service
	log     *logger.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.dispatch(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *groupHandler) dispatch(ctx context.Context, message *sarama.ConsumerMessage) {
	var envelope Envelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		h.log.Warn("discarding malformed event",
			"topic", message.Topic,
			"offset", message.Offset,
			"error", err.Error(),
		)
		return
	}

	h.log.LogConsumerEvent(message.Topic, envelope.EventType, message.Partition, message.Offset)

	switch envelope.EventType {
	case EventBookingConfirmed:
		if p := envelope.Booking; p != nil {
			h.service.ApplyBookingConfirmed(ctx, p.Booking, p.Activity)
		}
	case EventBookingPaid:
		if p := envelope.Booking; p != nil {
			amount := decimal.Zero
			if p.Amount != nil {
				amount = *p.Amount
			}
			h.service.ApplyBookingPaid(ctx, p.Booking, p.Activity, amount)
		}
	case EventBookingCancelled:
		if p := envelope.Booking; p != nil {
			h.service.ApplyBookingCancelled(ctx, p.Booking, p.Activity, p.Refund)
		}
	case EventActivityCreated:
		if p := envelope.Activity; p != nil {
			h.service.ApplyActivityCreated(ctx, p.Activity)
		}
	case EventActivityCancelled:
		if p := envelope.Activity; p != nil {
			h.service.ApplyActivityCancelled(ctx, p.Activity)
		}
	case EventActivityCompleted:
		if p := envelope.Activity; p != nil {
			h.service.ApplyActivityCompleted(ctx, p.Activity)
		}
	case EventViewTracked:
		if p := envelope.View; p != nil {
			h.service.RecordView(ctx, p.View)
		}
	default:
		h.log.Warn("discarding event with unknown type",
			"topic", message.Topic,
			"event_type", envelope.EventType,
		)
	}
}
