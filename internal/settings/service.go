// Package settings exposes the company configuration (VAT, currency, rates)
// as a flat string-keyed map read from the company_settings table. Values
// change rarely and are safe to cache, unlike rental rows.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/lagerhof/lagerhof/internal/platform/rowstore"
)

const (
	table    = "company_settings"
	cacheKey = "lagerhof:settings"

	// KeyVATEnabled toggles VAT on invoices.
	KeyVATEnabled = "vat_enabled"
	// KeyVATRate is the VAT percentage, e.g. "19".
	KeyVATRate = "vat_rate"
	// KeyCurrency is the ISO currency code for invoices.
	KeyCurrency = "currency"
)

// DefaultCurrency applies when no currency is configured.
const DefaultCurrency = "EUR"

// RowStore is the subset of the row store the service needs.
type RowStore interface {
	Select(ctx context.Context, table string, filters []rowstore.Filter) ([]string, []rowstore.Row, error)
}

// Service loads and caches company settings. The Redis client may be nil, in
// which case every read goes to the database; concurrent reads are collapsed
// either way.
type Service struct {
	store  RowStore
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(store RowStore, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, ttl: ttl, logger: logger}
}

// All returns every configured setting.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var cached map[string]string
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("settings cache read failed", slog.Any("error", err))
		}
	}

	v, err, _ := s.group.Do(cacheKey, func() (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

func (s *Service) load(ctx context.Context) (map[string]string, error) {
	_, rows, err := s.store.Select(ctx, table, nil)
	if err != nil {
		if rowstore.UndefinedTable(err) {
			s.logger.Warn("company settings table missing, using defaults")
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("settings: load: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		key := firstCell(row, "key", "setting_key", "name")
		if key == "" {
			continue
		}
		out[key] = firstCell(row, "value", "setting_value")
	}

	if s.cache != nil {
		raw, err := json.Marshal(out)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("settings cache write failed", slog.Any("error", err))
			}
		}
	}
	return out, nil
}

// Invalidate drops the cached settings, forcing the next read to hit the
// database.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cacheKey).Err()
}

// VATEnabled reports whether invoices carry VAT. When the flag is absent,
// VAT is considered enabled iff a positive rate is configured.
func (s *Service) VATEnabled(ctx context.Context) (bool, error) {
	all, err := s.All(ctx)
	if err != nil {
		return false, err
	}
	if v, ok := all[KeyVATEnabled]; ok {
		return truthy(v), nil
	}
	rate, _ := parseRate(all[KeyVATRate])
	return rate > 0, nil
}

// VATRate returns the configured VAT percentage, 0 when unset.
func (s *Service) VATRate(ctx context.Context) (float64, error) {
	all, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	rate, _ := parseRate(all[KeyVATRate])
	return rate, nil
}

// Currency returns the invoice currency code.
func (s *Service) Currency(ctx context.Context) (string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return "", err
	}
	if c := strings.TrimSpace(all[KeyCurrency]); c != "" {
		return c, nil
	}
	return DefaultCurrency, nil
}

func firstCell(row rowstore.Row, candidates ...string) string {
	for _, c := range candidates {
		if v := strings.TrimSpace(row[c]); v != "" {
			return v
		}
	}
	return ""
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "1", "yes", "y", "on":
		return true
	}
	return false
}

func parseRate(v string) (float64, bool) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}
