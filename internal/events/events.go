// Package events renders Phoenix market events as fixed-schema log lines.
package events

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/franco-grobler/phoenix-revenue/internal/phoenix"
	"github.com/franco-grobler/phoenix-revenue/internal/units"
)

// Kind is the event variant.
type Kind uint8

// Event kinds. Only Fill, Place, Reduce and FillSummary are rendered.
const (
	KindOther Kind = iota
	KindFill
	KindPlace
	KindReduce
	KindFillSummary
)

func (k Kind) String() string {
	switch k {
	case KindFill:
		return "Fill"
	case KindPlace:
		return "Place"
	case KindReduce:
		return "Reduce"
	case KindFillSummary:
		return "FillSummary"
	default:
		return "Other"
	}
}

// ParseKind maps a kind name to a Kind, KindOther when unrecognised.
func ParseKind(s string) Kind {
	switch s {
	case "Fill":
		return KindFill
	case "Place":
		return KindPlace
	case "Reduce":
		return KindReduce
	case "FillSummary":
		return KindFillSummary
	default:
		return KindOther
	}
}

// Side of the book.
type Side uint8

// Sides.
const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	if s == SideBid {
		return "Bid"
	}
	return "Ask"
}

// SideFromOrderSequenceNumber recovers the side encoded in an order sequence
// number: bids carry the top bit.
func SideFromOrderSequenceNumber(n uint64) Side {
	if n>>63 == 1 {
		return SideBid
	}
	return SideAsk
}

// Event is a decoded market event. Fields not used by Kind are zero.
type Event struct {
	Market         solana.PublicKey
	Kind           Kind
	Timestamp      int64
	Signature      solana.Signature
	Slot           uint64
	SequenceNumber uint64
	EventIndex     uint64

	Maker               solana.PublicKey
	Taker               solana.PublicKey
	PriceInTicks        uint64
	BaseLots            uint64
	OrderSequenceNumber uint64
	// SideFilled is set on fills; other kinds derive the side from
	// OrderSequenceNumber.
	SideFilled Side
	// TotalQuoteFees is set on fill summaries, in quote atoms.
	TotalQuoteFees uint64
}

// Side returns the side the event applies to.
func (e Event) Side() Side {
	if e.Kind == KindFill {
		return e.SideFilled
	}
	return SideFromOrderSequenceNumber(e.OrderSequenceNumber)
}

// Schema is the ordered field list of a rendered event line.
var Schema = []string{
	"market", "event_type", "timestamp", "signature", "slot", "sequence_number", "event_index",
	"maker", "taker", "price", "side", "quantity",
}

// Formatter renders the events of one market.
type Formatter struct {
	Market   solana.PublicKey
	Metadata phoenix.MarketMetadata
}

// Format renders ev. ok is false for events of other markets and for kinds
// that are not logged.
func (f Formatter) Format(ev Event) (line string, ok bool, err error) {
	if ev.Market != f.Market {
		return "", false, nil
	}

	switch ev.Kind {
	case KindFill, KindPlace, KindReduce:
	case KindFillSummary:
		fees, err := units.ToDecimalString(ev.TotalQuoteFees, f.Metadata.QuoteDecimals)
		if err != nil {
			return "", false, err
		}
		return "Total quote token fees paid: " + fees, true, nil
	default:
		return "", false, nil
	}

	price, err := units.TicksToPrice(
		ev.PriceInTicks, f.Metadata.TickSizeInQuoteAtomsPerBaseUnit, f.Metadata.QuoteDecimals,
	)
	if err != nil {
		return "", false, err
	}
	qty, err := units.LotsToDecimalString(ev.BaseLots, f.Metadata.BaseLotSize, f.Metadata.BaseDecimals)
	if err != nil {
		return "", false, err
	}

	taker := ""
	if ev.Kind == KindFill {
		taker = ev.Taker.String()
	}

	values := []string{
		ev.Market.String(),
		ev.Kind.String(),
		strconv.FormatInt(ev.Timestamp, 10),
		ev.Signature.String(),
		strconv.FormatUint(ev.Slot, 10),
		strconv.FormatUint(ev.SequenceNumber, 10),
		strconv.FormatUint(ev.EventIndex, 10),
		ev.Maker.String(),
		taker,
		strconv.FormatFloat(price, 'f', -1, 64),
		ev.Side().String(),
		qty,
	}
	return joinFields(values), true, nil
}

// Lines renders every loggable event of the formatter's market, in order.
func (f Formatter) Lines(evs []Event) ([]string, error) {
	lines := make([]string, 0, len(evs))
	for _, ev := range evs {
		line, ok, err := f.Format(ev)
		if err != nil {
			return nil, fmt.Errorf("event %d of %s: %w", ev.EventIndex, ev.Signature, err)
		}
		if ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func joinFields(values []string) string {
	var b strings.Builder
	for i, k := range Schema {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(values[i])
	}
	return b.String()
}
