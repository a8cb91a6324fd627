// Package oracle quotes spot prices for the revenue report.
//
// Every implementation returns a fresh quote per call. Nothing is cached
// across calls; Dedup only collapses requests that are in flight together.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/franco-grobler/phoenix-revenue/internal/parsing"
	"github.com/franco-grobler/phoenix-revenue/pkg/coinbase"
)

// ErrNoPrice is returned when a source has no quote for a pair.
var ErrNoPrice = errors.New("no price for pair")

// Oracle quotes one unit of base in units of quote.
type Oracle interface {
	SpotPrice(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

var (
	_ Oracle = (*HTTPSpot)(nil)
	_ Oracle = (*WSTicker)(nil)
	_ Oracle = (*Dedup)(nil)
	_ Oracle = Static(nil)
)

// HTTPSpot reads the Coinbase REST spot price.
type HTTPSpot struct {
	client *coinbase.Client
	log    *zap.Logger
}

// NewHTTPSpot creates an HTTPSpot. A nil logger disables logging.
func NewHTTPSpot(client *coinbase.Client, log *zap.Logger) *HTTPSpot {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPSpot{client: client, log: log}
}

// SpotPrice implements [Oracle].
func (o *HTTPSpot) SpotPrice(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	body, err := o.client.SpotPrice(ctx, base, quote)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := parsing.ParseSpotPrice(body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", coinbase.ProductID(base, quote), err)
	}
	o.log.Debug("spot price",
		zap.String("pair", coinbase.ProductID(base, quote)),
		zap.Stringer("price", price),
	)
	return price, nil
}

// WSTicker takes the first ticker frame of a pair from the Coinbase feed and
// closes the connection.
type WSTicker struct {
	client *coinbase.Client
	log    *zap.Logger
	// Timeout bounds dial, subscribe and the wait for the first ticker.
	// Zero leaves the deadline to the caller's context.
	Timeout time.Duration
}

// NewWSTicker creates a WSTicker. A nil logger disables logging.
func NewWSTicker(client *coinbase.Client, timeout time.Duration, log *zap.Logger) *WSTicker {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSTicker{client: client, log: log, Timeout: timeout}
}

// SpotPrice implements [Oracle].
func (o *WSTicker) SpotPrice(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	product := coinbase.ProductID(base, quote)
	conn, err := o.client.OpenTicker(ctx, product)
	if err != nil {
		return decimal.Zero, err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to read %s ticker: %w", product, err)
		}

		t, err := parsing.ParseTicker(msg)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", product, err)
		}

		switch t.Type {
		case "ticker":
			if t.ProductID != product {
				continue
			}
			o.log.Debug("ticker price", zap.String("pair", product), zap.Stringer("price", t.Price))
			return t.Price, nil
		case "error":
			return decimal.Zero, fmt.Errorf("%s: feed error: %s %s", product, t.Message, t.Reason)
		default:
			o.log.Debug("skipping feed message", zap.String("type", t.Type))
		}
	}
}

// Dedup collapses concurrent requests for the same pair into one call to
// the wrapped oracle.
type Dedup struct {
	next  Oracle
	group singleflight.Group
}

// NewDedup wraps next.
func NewDedup(next Oracle) *Dedup {
	return &Dedup{next: next}
}

// SpotPrice implements [Oracle].
func (d *Dedup) SpotPrice(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	key := coinbase.ProductID(base, quote)
	v, err, _ := d.group.Do(key, func() (any, error) {
		return d.next.SpotPrice(ctx, base, quote)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// Static quotes from a fixed table keyed by "BASE-QUOTE".
type Static map[string]decimal.Decimal

// NewStatic builds a Static table from decimal strings.
func NewStatic(prices map[string]string) (Static, error) {
	s := make(Static, len(prices))
	for pair, raw := range prices {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", pair, err)
		}
		if !p.IsPositive() {
			return nil, fmt.Errorf("price for %s must be positive, got %s", pair, raw)
		}
		s[strings.ToUpper(pair)] = p
	}
	return s, nil
}

// SpotPrice implements [Oracle].
func (s Static) SpotPrice(_ context.Context, base, quote string) (decimal.Decimal, error) {
	key := coinbase.ProductID(base, quote)
	p, ok := s[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoPrice, key)
	}
	return p, nil
}
