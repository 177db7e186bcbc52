package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

const quoteKeyPrefix = "shipping:quote:"

// QuoteStore keeps shipping quotes in redis; the key expires with the quote.
type QuoteStore struct {
	client goredis.UniversalClient
	logger *slog.Logger
}

// NewQuoteStore builds QuoteStore on top of client.
func NewQuoteStore(client goredis.UniversalClient, logger *slog.Logger) *QuoteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteStore{client: client, logger: logger}
}

func (s *QuoteStore) Save(ctx context.Context, quote *model.ShippingQuote, ttl time.Duration) error {
	if quote == nil || quote.ID == "" {
		return fmt.Errorf("save quote: missing id")
	}
	if ttl <= 0 {
		return fmt.Errorf("save quote %s: non-positive ttl", quote.ID)
	}
	payload, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("marshal quote failed: %w", err)
	}
	if err := s.client.Set(ctx, quoteKey(quote.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get returns domain ErrNotFound when the quote is unknown or already expired.
func (s *QuoteStore) Get(ctx context.Context, id string) (*model.ShippingQuote, error) {
	data, err := s.client.Get(ctx, quoteKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domainErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var quote model.ShippingQuote
	if err := json.Unmarshal(data, &quote); err != nil {
		s.logger.Warn("dropping unreadable shipping quote", slog.String("quote_id", id), slog.Any("error", err))
		return nil, domainErrors.ErrNotFound
	}
	return &quote, nil
}

// HealthCheck pings redis.
func (s *QuoteStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func quoteKey(id string) string {
	return quoteKeyPrefix + id
}

var _ repository.QuoteStore = (*QuoteStore)(nil)
