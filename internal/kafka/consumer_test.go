package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/cache"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRepository implements the Repository interface for testing
type MockRepository struct {
	mu        sync.Mutex
	companies map[string]*models.CompanyInfo
	lineItems []*models.LineItem
	prices    []*models.PriceDataDaily
	err       error

	UpsertCompanyCalls   int
	UpsertLineItemsCalls int
	CreatePricesCalls    int

	called chan struct{}
}

func NewMockRepository() *MockRepository {
	return &MockRepository{companies: make(map[string]*models.CompanyInfo)}
}

func (m *MockRepository) notify() {
	if m.called != nil {
		select {
		case m.called <- struct{}{}:
		default:
		}
	}
}

func (m *MockRepository) UpsertCompany(c *models.CompanyInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCompanyCalls++
	if m.err != nil {
		return m.err
	}
	m.companies[c.Symbol] = c
	m.notify()
	return nil
}

func (m *MockRepository) UpsertLineItems(items []*models.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertLineItemsCalls++
	if m.err != nil {
		return m.err
	}
	m.lineItems = append(m.lineItems, items...)
	m.notify()
	return nil
}

func (m *MockRepository) CreatePriceDataBatch(prices []*models.PriceDataDaily) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatePricesCalls++
	if m.err != nil {
		return m.err
	}
	m.prices = append(m.prices, prices...)
	m.notify()
	return nil
}

type mockReader struct {
	cfg  kafka.ReaderConfig
	msgs chan kafka.Message

	mu         sync.Mutex
	closeCalls int
}

func newMockReader(topic string, buffer int) *mockReader {
	return &mockReader{
		cfg:  kafka.ReaderConfig{Topic: topic},
		msgs: make(chan kafka.Message, buffer),
	}
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.mu.Lock()
	r.closeCalls++
	r.mu.Unlock()
	return nil
}

func (r *mockReader) Config() kafka.ReaderConfig {
	return r.cfg
}

func newTestConsumer(repo Repository, c cache.Cache) *Consumer {
	return &Consumer{repo: repo, cache: c, log: zerolog.Nop()}
}

func message(t *testing.T, event models.IngestEvent) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.Symbol), Value: payload}
}

func TestConsumer_processMessage_storesStatements(t *testing.T) {
	repo := NewMockRepository()
	consumer := newTestConsumer(repo, nil)

	event := models.IngestEvent{
		EventID:   "evt-1",
		EventType: models.EventStatementsIngested,
		Symbol:    "aapl",
		Statements: []models.StatementPayload{
			{
				Statement: models.StatementIncome,
				Frequency: models.FrequencyQuarterly,
				Rows: map[string]map[string]any{
					"Total Revenue": {"2024-12-28": 124300000000.0, "2024-09-28": "94930000000"},
					"EBITDA":        {"2024-12-28": "n/a"},
				},
			},
			{
				Statement: models.StatementCashFlow,
				Frequency: models.FrequencyQuarterly,
				Rows: map[string]map[string]any{
					"Free Cash Flow": {"2024-12-28": 26995000000.0},
				},
			},
		},
	}

	err := consumer.processMessage(context.Background(), message(t, event))
	require.NoError(t, err)

	assert.Equal(t, 1, repo.UpsertLineItemsCalls)
	require.Len(t, repo.lineItems, 4)

	byLabel := map[string]int{}
	for _, item := range repo.lineItems {
		assert.Equal(t, "AAPL", item.Symbol)
		byLabel[item.Label]++
		if item.Label == "EBITDA" {
			assert.False(t, item.Value.Valid, "junk cell should be stored as missing")
		}
	}
	assert.Equal(t, 2, byLabel["Total Revenue"])
}

func TestConsumer_processMessage_rejectsInvalidStatementKind(t *testing.T) {
	repo := NewMockRepository()
	consumer := newTestConsumer(repo, nil)

	event := models.IngestEvent{
		EventType: models.EventStatementsIngested,
		Symbol:    "AAPL",
		Statements: []models.StatementPayload{
			{Statement: "equity", Frequency: models.FrequencyAnnual, Rows: map[string]map[string]any{"X": {"2024-09-28": 1.0}}},
		},
	}

	err := consumer.processMessage(context.Background(), message(t, event))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid statement payload")
	assert.Equal(t, 0, repo.UpsertLineItemsCalls)
}

func TestConsumer_processMessage_storesPrices(t *testing.T) {
	repo := NewMockRepository()
	consumer := newTestConsumer(repo, nil)

	event := models.IngestEvent{
		EventType: models.EventPricesIngested,
		Symbol:    "NOVO",
		Prices: []models.PriceBar{
			{Date: "2024-03-26", Open: decimal.NewFromFloat(869), High: decimal.NewFromFloat(872), Low: decimal.NewFromFloat(865), Close: decimal.NewFromFloat(870), Volume: 1000},
			{Date: "2024-03-27", Open: decimal.NewFromFloat(870), High: decimal.NewFromFloat(878), Low: decimal.NewFromFloat(869), Close: decimal.NewFromFloat(875.25), Volume: 1200},
		},
	}

	err := consumer.processMessage(context.Background(), message(t, event))
	require.NoError(t, err)

	require.Len(t, repo.prices, 2)
	assert.Equal(t, "NOVO", repo.prices[0].Symbol)
	assert.Equal(t, time.Date(2024, 3, 26, 0, 0, 0, 0, time.UTC), repo.prices[0].Date)
	assert.True(t, decimal.NewFromFloat(875.25).Equal(repo.prices[1].Close))
}

func TestConsumer_processMessage_rejectsNonPositiveClose(t *testing.T) {
	repo := NewMockRepository()
	consumer := newTestConsumer(repo, nil)

	event := models.IngestEvent{
		EventType: models.EventPricesIngested,
		Symbol:    "NOVO",
		Prices:    []models.PriceBar{{Date: "2024-03-26", Close: decimal.Zero}},
	}

	err := consumer.processMessage(context.Background(), message(t, event))
	require.Error(t, err)
	assert.Equal(t, 0, repo.CreatePricesCalls)
}

func TestConsumer_processMessage_storesCompany(t *testing.T) {
	repo := NewMockRepository()
	consumer := newTestConsumer(repo, nil)

	event := models.IngestEvent{
		EventType: models.EventCompanyUpdated,
		Symbol:    "ing",
		Company:   &models.CompanyInfo{LongName: "ING Groep N.V.", Country: "Netherlands"},
	}

	err := consumer.processMessage(context.Background(), message(t, event))
	require.NoError(t, err)

	stored, ok := repo.companies["ING"]
	require.True(t, ok)
	assert.Equal(t, "ING Groep N.V.", stored.LongName)
}

func TestConsumer_processMessage_errors(t *testing.T) {
	consumer := newTestConsumer(NewMockRepository(), nil)

	t.Run("malformed json", func(t *testing.T) {
		err := consumer.processMessage(context.Background(), kafka.Message{Value: []byte("{")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal")
	})

	t.Run("missing symbol", func(t *testing.T) {
		err := consumer.processMessage(context.Background(), message(t, models.IngestEvent{EventType: models.EventCompanyUpdated}))
		require.Error(t, err)
	})

	t.Run("company event without company", func(t *testing.T) {
		err := consumer.processMessage(context.Background(), message(t, models.IngestEvent{EventType: models.EventCompanyUpdated, Symbol: "AAPL"}))
		require.Error(t, err)
	})

	t.Run("unknown event type is ignored", func(t *testing.T) {
		err := consumer.processMessage(context.Background(), message(t, models.IngestEvent{EventType: "SOMETHING_ELSE", Symbol: "AAPL"}))
		require.NoError(t, err)
	})
}

func TestConsumer_processMessage_repositoryErrorKeepsCache(t *testing.T) {
	repo := NewMockRepository()
	repo.err = errors.New("db down")
	mem := cache.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, cache.ReportKey("AAPL"), []byte("{}"), time.Hour))

	consumer := newTestConsumer(repo, mem)
	err := consumer.processMessage(ctx, message(t, models.IngestEvent{
		EventType: models.EventCompanyUpdated,
		Symbol:    "AAPL",
		Company:   &models.CompanyInfo{LongName: "Apple Inc."},
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save company")

	_, err = mem.Get(ctx, cache.ReportKey("AAPL"))
	assert.NoError(t, err)
}

func TestConsumer_processMessage_invalidatesCache(t *testing.T) {
	repo := NewMockRepository()
	mem := cache.NewMemory()
	ctx := context.Background()
	for _, key := range cache.SymbolKeys("AAPL") {
		require.NoError(t, mem.Set(ctx, key, []byte("{}"), time.Hour))
	}
	require.NoError(t, mem.Set(ctx, cache.ReportKey("MSFT"), []byte("{}"), time.Hour))

	consumer := newTestConsumer(repo, mem)
	err := consumer.processMessage(ctx, message(t, models.IngestEvent{
		EventType: models.EventCompanyUpdated,
		Symbol:    "aapl",
		Company:   &models.CompanyInfo{LongName: "Apple Inc."},
	}))
	require.NoError(t, err)

	for _, key := range cache.SymbolKeys("AAPL") {
		_, err := mem.Get(ctx, key)
		assert.ErrorIs(t, err, cache.ErrMiss, key)
	}
	_, err = mem.Get(ctx, cache.ReportKey("MSFT"))
	assert.NoError(t, err)
}

func TestConsumer_Start_consumesAndProcessesMessages(t *testing.T) {
	repo := NewMockRepository()
	repo.called = make(chan struct{}, 1)
	reader := newMockReader("fincast-ingest", 1)
	consumer := &Consumer{reader: reader, repo: repo, log: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx)
	}()

	reader.msgs <- message(t, models.IngestEvent{
		EventType: models.EventCompanyUpdated,
		Symbol:    "AAPL",
		Company:   &models.CompanyInfo{LongName: "Apple Inc."},
	})

	select {
	case <-repo.called:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event to be processed")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for consumer to shut down")
	}

	reader.mu.Lock()
	assert.Equal(t, 1, reader.closeCalls)
	reader.mu.Unlock()
}
