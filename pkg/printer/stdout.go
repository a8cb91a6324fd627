package printer

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/segmentio/encoding/json"
)

var _ Printer = (*Stdout)(nil)

// Stdout implements [Printer] for standard output, or for Out when set.
type Stdout struct {
	Out     io.Writer
	Format  string
	NoColor bool
}

func (s *Stdout) out() io.Writer {
	if s.Out != nil {
		return s.Out
	}
	return os.Stdout
}

func (s *Stdout) json() bool {
	return s.Format == FormatJSON
}

// Write implements [Printer].
func (s *Stdout) Write(data ...any) error {
	_, err := fmt.Fprint(s.out(), data...)
	return err
}

func (s *Stdout) writeJSON(v any) error {
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not encode output: %w", err)
	}
	return s.Write(fmt.Sprintf("%s\n", out))
}

// Revenue implements [Printer]. Text output is one "SYMBOL: amount" line per
// currency followed by the converted total.
func (s *Stdout) Revenue(summary RevenueSummary) error {
	if s.json() {
		return s.writeJSON(summary)
	}

	var b strings.Builder
	for _, t := range summary.Totals {
		fmt.Fprintf(&b, "%s: %s\n", t.Symbol, t.Amount)
	}
	fmt.Fprintf(&b, "Total (%s): %s\n", summary.Reference, summary.GrandTotal)
	return s.Write(b.String())
}

type bookJSON struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}

// Book implements [Printer]. Asks are printed from the highest price down to
// the best ask, then bids from the best bid down.
func (s *Stdout) Book(bids, asks []BookLevel) error {
	if s.json() {
		if bids == nil {
			bids = []BookLevel{}
		}
		if asks == nil {
			asks = []BookLevel{}
		}
		return s.writeJSON(bookJSON{Bids: bids, Asks: asks})
	}

	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	if s.NoColor {
		red.DisableColor()
		green.DisableColor()
	}

	var b strings.Builder
	for i := len(asks) - 1; i >= 0; i-- {
		line := fmt.Sprintf("%*s %s %-*s",
			BookWidth, "", center(formatBook(asks[i].Price), BookWidth), BookWidth, formatBook(asks[i].Size))
		b.WriteString(red.Sprint(line))
		b.WriteByte('\n')
	}
	for _, lvl := range bids {
		line := fmt.Sprintf("%*s %s %-*s",
			BookWidth, formatBook(lvl.Size), center(formatBook(lvl.Price), BookWidth), BookWidth, "")
		b.WriteString(green.Sprint(line))
		b.WriteByte('\n')
	}
	return s.Write(b.String())
}

func formatBook(v float64) string {
	return strconv.FormatFloat(v, 'f', BookPrecision, 64)
}

// center pads s to width, putting any odd space on the right.
func center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

// Lines implements [Printer].
func (s *Stdout) Lines(lines []string) error {
	if s.json() {
		if lines == nil {
			lines = []string{}
		}
		return s.writeJSON(struct {
			Lines []string `json:"lines"`
		}{lines})
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return s.Write(b.String())
}

// MarketDetails implements [Printer].
func (s *Stdout) MarketDetails(d MarketDetails) error {
	if s.json() {
		return s.writeJSON(d)
	}

	var b strings.Builder
	b.WriteString("--------------------------------------------\n")
	for _, kv := range [][2]string{
		{"Market", d.Market},
		{"Status", d.Status},
		{"Base Token", d.BaseMint},
		{"Quote Token", d.QuoteMint},
		{"Authority", d.Authority},
		{"Fee Recipient", d.FeeRecipient},
		{"Base Vault balance", d.BaseVaultBalance},
		{"Quote Vault balance", d.QuoteVaultBalance},
		{"Base Lot Size", d.BaseLotSize},
		{"Quote Lot Size", d.QuoteLotSize},
		{"Tick size", d.TickSize},
		{"Taker fees in basis points", strconv.FormatUint(d.TakerFeeBps, 10)},
		{"Uncollected fees", d.UncollectedFees},
	} {
		fmt.Fprintf(&b, "%s: %s\n", kv[0], kv[1])
	}
	return s.Write(b.String())
}
