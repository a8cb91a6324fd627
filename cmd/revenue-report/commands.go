package main

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/franco-grobler/phoenix-revenue/internal/events"
	"github.com/franco-grobler/phoenix-revenue/internal/orderbook"
	"github.com/franco-grobler/phoenix-revenue/internal/parsing"
	"github.com/franco-grobler/phoenix-revenue/internal/revenue"
	"github.com/franco-grobler/phoenix-revenue/internal/units"
	"github.com/franco-grobler/phoenix-revenue/pkg/printer"
)

// revenueSummary lists every supported currency, priced or not, in
// reporting order.
func revenueSummary(r *revenue.Report) printer.RevenueSummary {
	s := printer.RevenueSummary{
		Reference:  string(r.Reference),
		Totals:     make([]printer.CurrencyTotal, 0, len(revenue.Supported)),
		GrandTotal: r.GrandTotal.String(),
	}
	for _, sym := range revenue.Supported {
		t := printer.CurrencyTotal{Symbol: string(sym), Amount: r.Total(sym).String()}
		if rate, ok := r.Rates[sym]; ok {
			t.Rate = rate.String()
		}
		s.Totals = append(s.Totals, t)
	}
	for _, m := range r.Markets {
		s.Markets = append(s.Markets, printer.MarketFee{
			Market: m.Market.String(),
			Symbol: string(m.Symbol),
			Amount: m.Amount.String(),
		})
	}
	return s
}

func runMarket(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	market, err := marketArg(fs)
	if err != nil {
		return err
	}

	st, err := a.ledger.MarketState(ctx, market)
	if err != nil {
		return err
	}
	md, err := st.Header.Metadata()
	if err != nil {
		return err
	}

	baseVault, err := a.ledger.TokenBalance(ctx, solana.PublicKeyFromBytes(st.Header.BaseParams.VaultKey[:]))
	if err != nil {
		return fmt.Errorf("base vault: %w", err)
	}
	quoteVault, err := a.ledger.TokenBalance(ctx, solana.PublicKeyFromBytes(st.Header.QuoteParams.VaultKey[:]))
	if err != nil {
		return fmt.Errorf("quote vault: %w", err)
	}

	baseLot, err := units.ToDecimalString(md.BaseLotSize, md.BaseDecimals)
	if err != nil {
		return err
	}
	quoteLot, err := units.ToDecimalString(md.QuoteLotSize, md.QuoteDecimals)
	if err != nil {
		return err
	}
	tick, err := units.ToDecimalString(md.TickSizeInQuoteAtomsPerBaseUnit, md.QuoteDecimals)
	if err != nil {
		return err
	}
	fees, err := units.LotsToDecimalString(st.Counters.UnclaimedQuoteLotFees, md.QuoteLotSize, md.QuoteDecimals)
	if err != nil {
		return err
	}

	return a.out.MarketDetails(printer.MarketDetails{
		Market:            market.String(),
		Status:            st.Header.MarketStatus().String(),
		BaseMint:          md.BaseMint.String(),
		QuoteMint:         md.QuoteMint.String(),
		Authority:         solana.PublicKeyFromBytes(st.Header.Authority[:]).String(),
		FeeRecipient:      solana.PublicKeyFromBytes(st.Header.FeeRecipient[:]).String(),
		BaseVaultBalance:  baseVault.StringFixed(3),
		QuoteVaultBalance: quoteVault.StringFixed(3),
		BaseLotSize:       baseLot,
		QuoteLotSize:      quoteLot,
		TickSize:          tick,
		TakerFeeBps:       st.Counters.TakerFeeBps,
		UncollectedFees:   fees,
	})
}

func runBook(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	market, err := marketArg(fs)
	if err != nil {
		return err
	}
	data, err := snapshotArg(fs)
	if err != nil {
		return err
	}

	ladder, err := parsing.ParseLadder(data)
	if err != nil {
		return fmt.Errorf("ladder snapshot: %w", err)
	}
	if !ladder.Market.IsZero() && ladder.Market != market {
		return fmt.Errorf("ladder snapshot is for market %s, not %s", ladder.Market, market)
	}
	if depth, _ := fs.GetInt("depth"); depth > 0 {
		ladder.Truncate(depth)
	}

	md, err := a.ledger.MarketMetadata(ctx, market)
	if err != nil {
		return err
	}
	bids, asks, err := ladder.Display(md)
	if err != nil {
		return err
	}

	a.log.Debug("rendering ladder",
		zap.Stringer("market", market),
		zap.Int("bids", len(bids)),
		zap.Int("asks", len(asks)),
	)
	return a.out.Book(bookLevels(bids), bookLevels(asks))
}

func bookLevels(levels []orderbook.DisplayLevel) []printer.BookLevel {
	out := make([]printer.BookLevel, len(levels))
	for i, l := range levels {
		out[i] = printer.BookLevel(l)
	}
	return out
}

func runEvents(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	market, err := marketArg(fs)
	if err != nil {
		return err
	}
	data, err := snapshotArg(fs)
	if err != nil {
		return err
	}

	evs, err := parsing.ParseEvents(data)
	if err != nil {
		return fmt.Errorf("event snapshot: %w", err)
	}

	md, err := a.ledger.MarketMetadata(ctx, market)
	if err != nil {
		return err
	}
	lines, err := events.Formatter{Market: market, Metadata: md}.Lines(evs)
	if err != nil {
		return err
	}

	a.log.Debug("rendering events",
		zap.Stringer("market", market),
		zap.Int("events", len(evs)),
		zap.Int("lines", len(lines)),
	)
	return a.out.Lines(lines)
}
