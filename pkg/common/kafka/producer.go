package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// PartitionKeyField names the data field that keys a message. Events that
// share it land on one partition and keep their order; experiment runs use
// the experiment name.
const PartitionKeyField = "experiment"

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

func (p *Producer) Topic() string {
	return p.writer.Topic
}

func (p *Producer) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	message, err := newMessage(event)
	if err != nil {
		return err
	}

	log := logger.Log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": eventType,
		"topic":      p.writer.Topic,
	})
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		log.WithError(err).Error("Failed to publish event")
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	log.Debug("Event published")
	return nil
}

func newMessage(event models.Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	key := event.ID
	if k, ok := event.Data[PartitionKeyField].(string); ok && k != "" {
		key = k
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
