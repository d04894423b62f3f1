package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/cache"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Repository defines the storage operations the ingest consumer needs
type Repository interface {
	UpsertCompany(c *models.CompanyInfo) error
	UpsertLineItems(items []*models.LineItem) error
	CreatePriceDataBatch(prices []*models.PriceDataDaily) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer stores ingested statements, prices and company metadata. Every
// write is an upsert, so redelivered messages are harmless. Cached reports
// for the symbol are dropped after a successful write.
type Consumer struct {
	reader messageReader
	repo   Repository
	cache  cache.Cache
	log    zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for ingest events. cache may be nil.
func NewConsumer(brokers []string, topic, groupID string, repo Repository, c cache.Cache, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		repo:   repo,
		cache:  c,
		log:    log.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start begins consuming messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.log.Info().Msg("kafka consumer shutting down")
					return c.reader.Close()
				}
				c.log.Error().Err(err).Msg("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("error processing message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.IngestEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal ingest event: %w", err)
	}

	symbol := strings.ToUpper(strings.TrimSpace(event.Symbol))
	if symbol == "" {
		return errors.New("ingest event has no symbol")
	}

	var err error
	switch event.EventType {
	case models.EventCompanyUpdated:
		err = c.storeCompany(symbol, event.Company)
	case models.EventStatementsIngested:
		err = c.storeStatements(symbol, event.Statements)
	case models.EventPricesIngested:
		err = c.storePrices(symbol, event.Prices)
	default:
		c.log.Debug().Str("event_type", event.EventType).Msg("ignoring event type")
		return nil
	}
	if err != nil {
		return err
	}

	c.log.Info().
		Str("symbol", symbol).
		Str("event_type", event.EventType).
		Str("event_id", event.EventID).
		Msg("stored ingest event")

	c.invalidate(ctx, symbol)
	return nil
}

func (c *Consumer) storeCompany(symbol string, company *models.CompanyInfo) error {
	if company == nil {
		return fmt.Errorf("company event for %s has no company", symbol)
	}
	company.Symbol = symbol
	if err := c.repo.UpsertCompany(company); err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

func (c *Consumer) storeStatements(symbol string, payloads []models.StatementPayload) error {
	var items []*models.LineItem
	for i := range payloads {
		payloadItems, err := payloads[i].LineItems(symbol)
		if err != nil {
			return fmt.Errorf("invalid statement payload for %s: %w", symbol, err)
		}
		items = append(items, payloadItems...)
	}
	if len(items) == 0 {
		return fmt.Errorf("statements event for %s has no statements", symbol)
	}
	if err := c.repo.UpsertLineItems(items); err != nil {
		return fmt.Errorf("failed to save line items: %w", err)
	}
	return nil
}

func (c *Consumer) storePrices(symbol string, bars []models.PriceBar) error {
	if len(bars) == 0 {
		return fmt.Errorf("prices event for %s has no prices", symbol)
	}
	prices := make([]*models.PriceDataDaily, 0, len(bars))
	for _, b := range bars {
		p, err := b.ToPriceData(symbol)
		if err != nil {
			return fmt.Errorf("invalid price bar for %s: %w", symbol, err)
		}
		prices = append(prices, p)
	}
	if err := c.repo.CreatePriceDataBatch(prices); err != nil {
		return fmt.Errorf("failed to save price data: %w", err)
	}
	return nil
}

func (c *Consumer) invalidate(ctx context.Context, symbol string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, cache.SymbolKeys(symbol)...); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to invalidate cached report")
	}
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
