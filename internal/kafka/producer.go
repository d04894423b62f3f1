package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishFinancialsComputed publishes a computed report keyed by symbol
func (p *Producer) PublishFinancialsComputed(ctx context.Context, report *models.FinancialsReport) error {
	event := models.FinancialsEvent{
		EventID:   uuid.NewString(),
		EventType: models.EventFinancialsComputed,
		Symbol:    report.Symbol,
		Source:    report.Source,
		TTMLabel:  report.FiscalInfo.TTMLabel,
		Degraded:  report.Degraded(),
		Report:    report,
		Timestamp: time.Now().UTC(),
	}
	return p.publish(ctx, report.Symbol, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.FinancialsEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
