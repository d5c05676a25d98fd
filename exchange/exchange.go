// Package exchange implements the currency conversion service. Canonical
// rates are always fetched pegged to a fixed reference currency and cached in
// the database; rates for any other base are derived arithmetically from the
// canonical row. Lookups degrade gracefully: live fetch, then stale cache,
// then a static table.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/internal/log"
)

// ReferenceCurrency is the base every canonical rate row is pegged to.
const ReferenceCurrency = "CAD"

// DefaultCacheTTL is how long a cached canonical row is considered fresh.
const DefaultCacheTTL = 12 * time.Hour

// Result sources, reported so callers can tell how fresh the data is.
const (
	SourceCache      = "cache"
	SourceProvider   = "provider"
	SourceStaleCache = "stale_cache"
	SourceStatic     = "static"
)

// ErrUnknownCurrency is returned when no rate is known for the requested
// base currency.
var ErrUnknownCurrency = errors.New("unknown base currency")

// Config holds the exchange service configuration.
type Config struct {
	DB *db.MongoStorage
	// Provider is the rates API name, one of ProviderNames().
	Provider string
	APIKey   string
	// Endpoint overrides the provider's default API endpoint. Used by tests.
	Endpoint string
	// CacheTTL overrides DefaultCacheTTL when positive.
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Service resolves conversion rates for arbitrary base currencies.
type Service struct {
	db           *db.MongoStorage
	client       *http.Client
	provider     provider
	providerName string
	apiKey       string
	endpoint     string
	cacheTTL     time.Duration
}

// Result is a resolved rate set for one base currency.
type Result struct {
	Base          string             `json:"base"`
	Rates         map[string]float64 `json:"rates"`
	LastUpdatedAt time.Time          `json:"lastUpdatedAt"`
	Source        string             `json:"source"`
}

// New creates the exchange service. The provider name must be one of the
// registered providers.
func New(conf *Config) (*Service, error) {
	if conf == nil || conf.DB == nil {
		return nil, fmt.Errorf("invalid exchange service configuration")
	}
	prov, ok := providers[conf.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown exchange rate provider %q, supported: %s",
			conf.Provider, strings.Join(ProviderNames(), ", "))
	}
	endpoint := conf.Endpoint
	if endpoint == "" {
		endpoint = prov.endpoint
	}
	cacheTTL := conf.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	client := conf.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Service{
		db:           conf.DB,
		client:       client,
		provider:     prov,
		providerName: conf.Provider,
		apiKey:       conf.APIKey,
		endpoint:     endpoint,
		cacheTTL:     cacheTTL,
	}, nil
}

// Rates returns the conversion rates for the given base currency. The
// canonical reference row is reused while younger than the cache TTL,
// refreshed from the provider otherwise, and replaced by the stale row or the
// static table when the provider is unreachable. The returned rates always
// satisfy rates[base] == 1.
func (s *Service) Rates(ctx context.Context, base string) (*Result, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = ReferenceCurrency
	}
	canonical, updatedAt, source := s.canonicalRates(ctx)
	rateLookupsTotal.WithLabelValues(source).Inc()
	rebased, err := Rebase(canonical, base)
	if err != nil {
		return nil, err
	}
	return &Result{
		Base:          base,
		Rates:         rebased,
		LastUpdatedAt: updatedAt,
		Source:        source,
	}, nil
}

// Refresh deletes the canonical cache row and fetches fresh rates regardless
// of how recent the cached row was.
func (s *Service) Refresh(ctx context.Context, base string) (*Result, error) {
	if err := s.db.DelExchangeRate(ReferenceCurrency); err != nil {
		return nil, fmt.Errorf("could not invalidate rate cache: %w", err)
	}
	return s.Rates(ctx, base)
}

// canonicalRates returns the reference-pegged rate table, its timestamp and
// the source it came from. It never fails; the static table is the floor.
func (s *Service) canonicalRates(ctx context.Context) (map[string]float64, time.Time, string) {
	cached, err := s.db.ExchangeRate(ReferenceCurrency)
	if err != nil && err != db.ErrNotFound {
		log.Warnw("failed to read exchange rate cache", "error", err)
	}
	if cached != nil && time.Since(cached.LastUpdatedAt) < s.cacheTTL {
		return cached.Rates, cached.LastUpdatedAt, SourceCache
	}
	fetched, err := s.fetch(ctx)
	if err == nil {
		now := time.Now()
		if err := s.db.SetExchangeRate(&db.ExchangeRate{
			BaseCurrency:  ReferenceCurrency,
			Rates:         fetched,
			LastUpdatedAt: now,
		}); err != nil {
			log.Warnw("failed to store fetched exchange rates", "error", err)
		}
		return fetched, now, SourceProvider
	}
	log.Warnw("exchange rate fetch failed",
		"provider", s.providerName,
		"error", err)
	if cached != nil {
		return cached.Rates, cached.LastUpdatedAt, SourceStaleCache
	}
	return staticRates, time.Time{}, SourceStatic
}

// fetch performs a single provider request for canonical rates.
func (s *Service) fetch(ctx context.Context) (map[string]float64, error) {
	req, err := s.provider.request(ctx, s.endpoint, ReferenceCurrency, s.apiKey)
	if err != nil {
		providerFetchesTotal.WithLabelValues(s.providerName, "error").Inc()
		return nil, fmt.Errorf("could not build provider request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		providerFetchesTotal.WithLabelValues(s.providerName, "error").Inc()
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close provider response body", "error", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		providerFetchesTotal.WithLabelValues(s.providerName, "error").Inc()
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		providerFetchesTotal.WithLabelValues(s.providerName, "error").Inc()
		return nil, fmt.Errorf("could not read provider response: %w", err)
	}
	rates, err := s.provider.parse(ReferenceCurrency, body)
	if err != nil {
		providerFetchesTotal.WithLabelValues(s.providerName, "error").Inc()
		return nil, err
	}
	// the reference currency is always present with rate 1
	rates[ReferenceCurrency] = 1.0
	providerFetchesTotal.WithLabelValues(s.providerName, "ok").Inc()
	return rates, nil
}

// Rebase re-derives a canonical rate table for another base currency by
// dividing every rate by the canonical rate of the requested base. The
// requested base ends up with rate 1.
func Rebase(canonical map[string]float64, base string) (map[string]float64, error) {
	pivot, ok := canonical[base]
	if !ok || pivot <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, base)
	}
	rebased := make(map[string]float64, len(canonical))
	for currency, rate := range canonical {
		rebased[currency] = rate / pivot
	}
	rebased[base] = 1.0
	return rebased, nil
}
