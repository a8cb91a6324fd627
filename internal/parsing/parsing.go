// Package parsing decodes the JSON payloads the tool consumes: Coinbase price
// bodies and ticker frames, and the ladder and event snapshots written by the
// external book reader.
package parsing

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fastjson"

	"github.com/franco-grobler/phoenix-revenue/internal/events"
	"github.com/franco-grobler/phoenix-revenue/internal/orderbook"
)

var (
	// ErrMalformedBody is returned when a payload is not the expected JSON shape.
	ErrMalformedBody = errors.New("malformed body")
	// ErrMissingPrice is returned when a price body carries no amount.
	ErrMissingPrice = errors.New("missing price")
	// ErrInvalidPrice is returned for amounts that are not positive decimals.
	ErrInvalidPrice = errors.New("invalid price")
)

// parserPool is a pool of fastjson.Parser instances to reduce allocations.
// Values returned by a parser are only valid until it is reused, so callers
// copy everything they keep before putting it back.
var parserPool = sync.Pool{
	New: func() any {
		return &fastjson.Parser{}
	},
}

func withParser[T any](data []byte, fn func(v *fastjson.Value) (T, error)) (T, error) {
	p := parserPool.Get().(*fastjson.Parser)
	defer parserPool.Put(p)

	var zero T
	v, err := p.ParseBytes(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return fn(v)
}

// ParseSpotPrice reads data.amount from a Coinbase spot price body:
//
//	{"data":{"base":"SOL","currency":"USDC","amount":"150.01"}}
func ParseSpotPrice(body []byte) (decimal.Decimal, error) {
	return withParser(body, func(v *fastjson.Value) (decimal.Decimal, error) {
		if v.Type() != fastjson.TypeObject {
			return decimal.Zero, fmt.Errorf("%w: expected object, got %s", ErrMalformedBody, v.Type())
		}
		amount := v.Get("data", "amount")
		if amount == nil {
			return decimal.Zero, ErrMissingPrice
		}
		return parsePrice(amount)
	})
}

// Ticker is one frame of the Coinbase ticker channel.
type Ticker struct {
	Type      string
	ProductID string
	// Price is set for frames of type "ticker".
	Price decimal.Decimal
	// Message and Reason are set for frames of type "error".
	Message string
	Reason  string
}

// ParseTicker decodes a websocket frame from the Coinbase feed.
func ParseTicker(msg []byte) (Ticker, error) {
	return withParser(msg, func(v *fastjson.Value) (Ticker, error) {
		if v.Type() != fastjson.TypeObject {
			return Ticker{}, fmt.Errorf("%w: expected object, got %s", ErrMalformedBody, v.Type())
		}
		t := Ticker{
			Type:      string(v.GetStringBytes("type")),
			ProductID: string(v.GetStringBytes("product_id")),
			Message:   string(v.GetStringBytes("message")),
			Reason:    string(v.GetStringBytes("reason")),
		}
		if t.Type != "ticker" {
			return t, nil
		}
		price := v.Get("price")
		if price == nil {
			return t, ErrMissingPrice
		}
		p, err := parsePrice(price)
		if err != nil {
			return t, err
		}
		t.Price = p
		return t, nil
	})
}

func parsePrice(v *fastjson.Value) (decimal.Decimal, error) {
	var raw string
	switch v.Type() {
	case fastjson.TypeString:
		raw = string(v.GetStringBytes())
	case fastjson.TypeNumber:
		raw = v.String()
	default:
		return decimal.Zero, fmt.Errorf("%w: amount is %s", ErrInvalidPrice, v.Type())
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s is not positive", ErrInvalidPrice, raw)
	}
	return d, nil
}

// ParseLadder decodes a ladder snapshot:
//
//	{"market":"<pubkey>",
//	 "bids":[{"price_in_ticks":1,"size_in_base_lots":2}],
//	 "asks":[...]}
//
// The market is optional; a ladder without one has a zero Market.
func ParseLadder(data []byte) (*orderbook.Ladder, error) {
	return withParser(data, func(v *fastjson.Value) (*orderbook.Ladder, error) {
		if v.Type() != fastjson.TypeObject {
			return nil, fmt.Errorf("%w: expected object, got %s", ErrMalformedBody, v.Type())
		}
		market, err := pubkeyField(v, "market")
		if err != nil {
			return nil, err
		}
		bids, err := levels(v, "bids")
		if err != nil {
			return nil, err
		}
		asks, err := levels(v, "asks")
		if err != nil {
			return nil, err
		}

		l := orderbook.NewLadder(market)
		l.Update(bids, asks)
		return l, nil
	})
}

func levels(v *fastjson.Value, key string) ([]orderbook.Level, error) {
	side := v.Get(key)
	if side == nil || side.Type() == fastjson.TypeNull {
		return nil, nil
	}
	arr, err := side.Array()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedBody, key, err)
	}

	out := make([]orderbook.Level, 0, len(arr))
	for i, item := range arr {
		price, err := uintField(item, "price_in_ticks")
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		size, err := uintField(item, "size_in_base_lots")
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, orderbook.Level{PriceInTicks: price, SizeInBaseLots: size})
	}
	return out, nil
}

// ParseEvents decodes an event snapshot, either a bare array of events or an
// object with an "events" array.
func ParseEvents(data []byte) ([]events.Event, error) {
	return withParser(data, func(v *fastjson.Value) ([]events.Event, error) {
		if v.Type() == fastjson.TypeObject {
			v = v.Get("events")
			if v == nil {
				return nil, fmt.Errorf("%w: missing events", ErrMalformedBody)
			}
		}
		arr, err := v.Array()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}

		out := make([]events.Event, 0, len(arr))
		for i, item := range arr {
			ev, err := event(item)
			if err != nil {
				return nil, fmt.Errorf("events[%d]: %w", i, err)
			}
			out = append(out, ev)
		}
		return out, nil
	})
}

func event(v *fastjson.Value) (events.Event, error) {
	var (
		ev  events.Event
		err error
	)
	if v.Type() != fastjson.TypeObject {
		return ev, fmt.Errorf("%w: expected object, got %s", ErrMalformedBody, v.Type())
	}

	ev.Kind = events.ParseKind(string(v.GetStringBytes("kind")))
	if ev.Market, err = pubkeyField(v, "market"); err != nil {
		return ev, err
	}
	if ev.Maker, err = pubkeyField(v, "maker"); err != nil {
		return ev, err
	}
	if ev.Taker, err = pubkeyField(v, "taker"); err != nil {
		return ev, err
	}
	if s := v.GetStringBytes("signature"); len(s) > 0 {
		if ev.Signature, err = solana.SignatureFromBase58(string(s)); err != nil {
			return ev, fmt.Errorf("%w: signature: %v", ErrMalformedBody, err)
		}
	}

	ts, err := uintField(v, "timestamp")
	if err != nil {
		return ev, err
	}
	ev.Timestamp = int64(ts)

	for _, f := range []struct {
		key string
		dst *uint64
	}{
		{"slot", &ev.Slot},
		{"sequence_number", &ev.SequenceNumber},
		{"event_index", &ev.EventIndex},
		{"price_in_ticks", &ev.PriceInTicks},
		{"order_sequence_number", &ev.OrderSequenceNumber},
		{"total_quote_fees", &ev.TotalQuoteFees},
	} {
		if *f.dst, err = uintField(v, f.key); err != nil {
			return ev, err
		}
	}

	lotsKey := ""
	switch ev.Kind {
	case events.KindFill:
		lotsKey = "base_lots_filled"
	case events.KindPlace:
		lotsKey = "base_lots_placed"
	case events.KindReduce:
		lotsKey = "base_lots_removed"
	}
	if lotsKey != "" {
		if ev.BaseLots, err = uintField(v, lotsKey); err != nil {
			return ev, err
		}
	}

	switch side := string(v.GetStringBytes("side_filled")); side {
	case "", "Bid":
		ev.SideFilled = events.SideBid
	case "Ask":
		ev.SideFilled = events.SideAsk
	default:
		return ev, fmt.Errorf("%w: side_filled %q", ErrMalformedBody, side)
	}
	return ev, nil
}

// uintField reads an unsigned integer stored as a JSON number or a decimal
// string. Missing fields read as zero.
func uintField(v *fastjson.Value, key string) (uint64, error) {
	f := v.Get(key)
	if f == nil || f.Type() == fastjson.TypeNull {
		return 0, nil
	}
	switch f.Type() {
	case fastjson.TypeNumber:
		n, err := f.Uint64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrMalformedBody, key, err)
		}
		return n, nil
	case fastjson.TypeString:
		n, err := strconv.ParseUint(string(f.GetStringBytes()), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrMalformedBody, key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s is %s", ErrMalformedBody, key, f.Type())
	}
}

func pubkeyField(v *fastjson.Value, key string) (solana.PublicKey, error) {
	s := v.GetStringBytes(key)
	if len(s) == 0 {
		return solana.PublicKey{}, nil
	}
	pk, err := solana.PublicKeyFromBase58(string(s))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s: %v", ErrMalformedBody, key, err)
	}
	return pk, nil
}
