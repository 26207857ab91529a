package currency

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Rates maps a currency to how many of its units one base unit buys.
type Rates map[Code]decimal.Decimal

// Convert multiplies amount by the target's rate and rounds once, half away
// from zero, to the target's minor unit.
func (r Rates) Convert(amount decimal.Decimal, to Currency) (decimal.Decimal, error) {
	rate, ok := r[to.Code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no rate for %s", ErrUnsupportedCurrency, to.Code)
	}
	return amount.Mul(rate).Round(to.MinorUnits), nil
}

type RateFetcher interface {
	FetchRates(ctx context.Context, base string) (map[string]float64, error)
}

// Converter serves conversions from a rate table that starts from static
// configuration and is refreshed lazily from a RateFetcher once older than
// the TTL. A failed refresh keeps the previous table.
type Converter struct {
	base    Currency
	fetcher RateFetcher
	ttl     time.Duration
	log     *slog.Logger
	now     func() time.Time

	// concurrent callers that find the table stale share one fetch
	refresh singleflight.Group

	mu        sync.RWMutex
	rates     Rates
	fetchedAt time.Time
}

func NewConverter(base string, static map[string]float64, fetcher RateFetcher, ttl time.Duration, log *slog.Logger) (*Converter, error) {
	baseCurrency, err := Lookup(base)
	if err != nil {
		return nil, fmt.Errorf("base currency: %w", err)
	}

	c := &Converter{
		base:    baseCurrency,
		fetcher: fetcher,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
	}
	c.rates = c.buildRates(static)
	return c, nil
}

func (c *Converter) Base() Currency {
	return c.base
}

// Convert converts a base-currency amount into the currency named by code.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, code string) (decimal.Decimal, Currency, error) {
	target, err := Lookup(code)
	if err != nil {
		return decimal.Zero, Currency{}, err
	}

	c.refreshIfStale(ctx)

	converted, err := c.Snapshot().Convert(amount, target)
	if err != nil {
		return decimal.Zero, Currency{}, err
	}
	return converted, target, nil
}

// Snapshot returns a copy of the current rate table.
func (c *Converter) Snapshot() Rates {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(Rates, len(c.rates))
	for k, v := range c.rates {
		out[k] = v
	}
	return out
}

// Refresh replaces the rate table with freshly fetched rates.
func (c *Converter) Refresh(ctx context.Context) error {
	if c.fetcher == nil {
		return nil
	}

	fetched, err := c.fetcher.FetchRates(ctx, string(c.base.Code))
	if err != nil {
		return fmt.Errorf("fetch rates: %w", err)
	}

	rates := c.buildRates(fetched)

	c.mu.Lock()
	defer c.mu.Unlock()
	// keep previously known rates for currencies the feed omitted
	for code, rate := range c.rates {
		if _, ok := rates[code]; !ok {
			rates[code] = rate
		}
	}
	c.rates = rates
	c.fetchedAt = c.now()
	return nil
}

func (c *Converter) refreshIfStale(ctx context.Context) {
	if c.fetcher == nil || c.fresh() {
		return
	}

	c.refresh.Do("rates", func() (any, error) {
		// a flight that just finished may have refreshed already
		if c.fresh() {
			return nil, nil
		}
		if err := c.Refresh(ctx); err != nil {
			c.log.WarnContext(ctx, "currency rates refresh failed, using last known rates", "error", err)
			// next attempt after a full TTL
			c.mu.Lock()
			c.fetchedAt = c.now()
			c.mu.Unlock()
		}
		return nil, nil
	})
}

func (c *Converter) fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl
}

func (c *Converter) buildRates(raw map[string]float64) Rates {
	rates := Rates{c.base.Code: decimal.NewFromInt(1)}
	for code, rate := range raw {
		cur, err := Lookup(code)
		if err != nil || cur.Code == c.base.Code || rate <= 0 {
			continue
		}
		rates[cur.Code] = decimal.NewFromFloat(rate)
	}
	return rates
}
