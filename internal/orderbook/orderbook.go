// Package orderbook maintains a price ladder in raw exchange units (ticks and
// base lots) and converts it to display quantities.
package orderbook

import (
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/franco-grobler/phoenix-revenue/internal/phoenix"
	"github.com/franco-grobler/phoenix-revenue/internal/units"
)

// Level is one price level of the ladder.
type Level struct {
	PriceInTicks   uint64
	SizeInBaseLots uint64
}

// Ladder maintains the current state of Bids and Asks for one market.
// It uses sorted slices for cache locality.
type Ladder struct {
	Market solana.PublicKey
	Bids   []Level // Sorted DESC (High to Low)
	Asks   []Level // Sorted ASC (Low to High)
}

// DefaultCapacity is the initial capacity for Bids/Asks slices.
const DefaultCapacity = 64

// NewLadder creates a new empty ladder for market.
func NewLadder(market solana.PublicKey) *Ladder {
	return &Ladder{
		Market: market,
		Bids:   make([]Level, 0, DefaultCapacity),
		Asks:   make([]Level, 0, DefaultCapacity),
	}
}

// Update applies a batch of level changes. A level with zero size removes
// the price from its side.
func (l *Ladder) Update(bids, asks []Level) {
	for _, lvl := range bids {
		updateLevel(&l.Bids, lvl, true)
	}
	for _, lvl := range asks {
		updateLevel(&l.Asks, lvl, false)
	}
}

// updateLevel handles the insertion, update, or deletion of a price level.
func updateLevel(levels *[]Level, lvl Level, desc bool) {
	n := len(*levels)
	idx := sort.Search(n, func(i int) bool {
		if desc {
			return (*levels)[i].PriceInTicks <= lvl.PriceInTicks
		}
		return (*levels)[i].PriceInTicks >= lvl.PriceInTicks
	})

	found := idx < n && (*levels)[idx].PriceInTicks == lvl.PriceInTicks

	if lvl.SizeInBaseLots == 0 {
		if found {
			*levels = append((*levels)[:idx], (*levels)[idx+1:]...)
		}
		return
	}

	if found {
		(*levels)[idx].SizeInBaseLots = lvl.SizeInBaseLots
		return
	}

	*levels = append(*levels, Level{})
	copy((*levels)[idx+1:], (*levels)[idx:])
	(*levels)[idx] = lvl
}

// BestBid returns the highest bid.
func (l *Ladder) BestBid() (Level, bool) {
	if len(l.Bids) == 0 {
		return Level{}, false
	}
	return l.Bids[0], true
}

// BestAsk returns the lowest ask.
func (l *Ladder) BestAsk() (Level, bool) {
	if len(l.Asks) == 0 {
		return Level{}, false
	}
	return l.Asks[0], true
}

// Truncate keeps at most depth levels per side. Zero disables trimming.
func (l *Ladder) Truncate(depth int) {
	if depth <= 0 {
		return
	}
	if len(l.Bids) > depth {
		l.Bids = l.Bids[:depth]
	}
	if len(l.Asks) > depth {
		l.Asks = l.Asks[:depth]
	}
}

// DisplayLevel is a level in quote units per base unit and base units.
type DisplayLevel struct {
	Price float64
	Size  float64
}

// Display converts both sides using the market's metadata, preserving order.
func (l *Ladder) Display(md phoenix.MarketMetadata) (bids, asks []DisplayLevel, err error) {
	if bids, err = convert(l.Bids, md); err != nil {
		return nil, nil, err
	}
	if asks, err = convert(l.Asks, md); err != nil {
		return nil, nil, err
	}
	return bids, asks, nil
}

func convert(levels []Level, md phoenix.MarketMetadata) ([]DisplayLevel, error) {
	out := make([]DisplayLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := units.TicksToPrice(lvl.PriceInTicks, md.TickSizeInQuoteAtomsPerBaseUnit, md.QuoteDecimals)
		if err != nil {
			return nil, err
		}
		atoms, err := units.LotsToAmount(lvl.SizeInBaseLots, md.BaseLotSize)
		if err != nil {
			return nil, err
		}
		size, err := units.ToDecimal(atoms, md.BaseDecimals)
		if err != nil {
			return nil, err
		}
		out = append(out, DisplayLevel{Price: price, Size: size.InexactFloat64()})
	}
	return out, nil
}
