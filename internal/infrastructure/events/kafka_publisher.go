package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/logger"
)

// MessageWriter — часть kafka-go Writer, которая нужна публикатору.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type BreakerSettings struct {
	MaxFailures uint32
	Timeout     time.Duration
}

// KafkaPublisher пишет события модерации в топик Kafka через circuit breaker.
type KafkaPublisher struct {
	writer MessageWriter
	cb     *gobreaker.CircuitBreaker
}

func NewKafkaWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Async:        false,
		WriteTimeout: 5 * time.Second,
	}
}

func NewKafkaPublisher(writer MessageWriter, settings BreakerSettings) *KafkaPublisher {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        "kafka-moderation-events",
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Get().WithFields(logrus.Fields{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			}).Warn("circuit breaker state")
		},
	}
	return &KafkaPublisher{writer: writer, cb: gobreaker.NewCircuitBreaker(st)}
}

// Publish сериализует событие в JSON; ключ сообщения — id копии, чтобы события одной копии шли по порядку.
func (p *KafkaPublisher) Publish(ctx context.Context, ev entity.ModerationEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: не удалось сериализовать событие: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(ev.CopyID.String()),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "tenant_id", Value: []byte(ev.TenantID.String())},
		},
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("kafka: не удалось опубликовать событие: %w", err)
	}
	return nil
}

// State возвращает состояние circuit breaker (для health).
func (p *KafkaPublisher) State() gobreaker.State {
	return p.cb.State()
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
