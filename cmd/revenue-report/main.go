// Package main serves as the entry-point for the Phoenix revenue report.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/franco-grobler/phoenix-revenue/internal/config"
	"github.com/franco-grobler/phoenix-revenue/internal/ledger"
	"github.com/franco-grobler/phoenix-revenue/internal/logger"
	"github.com/franco-grobler/phoenix-revenue/internal/oracle"
	"github.com/franco-grobler/phoenix-revenue/internal/revenue"
	"github.com/franco-grobler/phoenix-revenue/internal/symbols"
	"github.com/franco-grobler/phoenix-revenue/pkg/coinbase"
	"github.com/franco-grobler/phoenix-revenue/pkg/printer"
)

const usage = `usage: revenue-report <command> [flags] [args]

commands:
  revenue [market...]                     uncollected fees across markets, converted to USDC
  market <market>                         summary of one market
  book --snapshot <file> <market>         render a ladder snapshot
  events --snapshot <file> <market>       render an event snapshot
`

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

func main() {
	// Setup Context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds the collaborators shared by every command.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	ledger *ledger.Client
	out    printer.Printer
}

type command struct {
	flags func(fs *pflag.FlagSet)
	run   func(ctx context.Context, a *app, fs *pflag.FlagSet) error
}

var commands = map[string]command{
	"revenue": {run: runRevenue},
	"market":  {run: runMarket},
	"book": {
		flags: func(fs *pflag.FlagSet) {
			fs.String("snapshot", "", "ladder snapshot file (JSON)")
			fs.Int("depth", 0, "levels per side, 0 for all")
		},
		run: runBook,
	},
	"events": {
		flags: func(fs *pflag.FlagSet) {
			fs.String("snapshot", "", "event snapshot file (JSON)")
		},
		run: runEvents,
	},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, zapcore.AddSync(stderr))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	defer func() { _ = log.Sync() }()

	a := &app{
		cfg: cfg,
		log: log,
		ledger: ledger.New(
			cfg.RPC.URL, rpc.CommitmentType(cfg.RPC.Commitment),
			cfg.RPC.RatePerSecond, cfg.RPC.Burst, log.Named("ledger"),
		),
		out: &printer.Stdout{Out: stdout, Format: cfg.Output.Format, NoColor: cfg.Output.NoColor},
	}

	if err := cmd.run(ctx, a, fs); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%v\n\n%s", err, usage)
			return exitUsage
		}
		log.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		return exitError
	}
	return exitOK
}

func newOracle(cfg *config.Config, log *zap.Logger) (oracle.Oracle, error) {
	if cfg.Price.Source == config.SourceStatic {
		return oracle.NewStatic(cfg.Price.Static)
	}

	client := coinbase.NewClient(
		cfg.Price.HTTPURL, cfg.Price.WSURL,
		coinbase.NewHTTPClient(cfg.Price.Timeout), coinbase.NewCoderClient(),
	)
	if cfg.Price.Source == config.SourceWS {
		return oracle.NewDedup(oracle.NewWSTicker(client, cfg.Price.Timeout, log)), nil
	}
	return oracle.NewDedup(oracle.NewHTTPSpot(client, log)), nil
}

func runRevenue(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	markets, err := a.cfg.MarketKeys()
	if err != nil {
		return err
	}
	if fs.NArg() > 0 {
		if markets, err = parseMarkets(fs.Args()); err != nil {
			return err
		}
	}

	resolver, err := symbols.NewTableWithOverrides(a.cfg.SymbolOverrides())
	if err != nil {
		return err
	}
	o, err := newOracle(a.cfg, a.log.Named("oracle"))
	if err != nil {
		return err
	}

	agg := revenue.NewAggregator(a.ledger, resolver, o, a.log.Named("revenue"))
	report, err := agg.Aggregate(ctx, markets)
	if err != nil {
		return err
	}
	return a.out.Revenue(revenueSummary(report))
}

func parseMarkets(args []string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(args))
	for _, arg := range args {
		pk, err := solana.PublicKeyFromBase58(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid market %q: %v", errUsage, arg, err)
		}
		keys = append(keys, pk)
	}
	return keys, nil
}

// marketArg returns the single market named on the command line.
func marketArg(fs *pflag.FlagSet) (solana.PublicKey, error) {
	if fs.NArg() != 1 {
		return solana.PublicKey{}, fmt.Errorf("%w: %s needs exactly one market", errUsage, fs.Name())
	}
	keys, err := parseMarkets(fs.Args())
	if err != nil {
		return solana.PublicKey{}, err
	}
	return keys[0], nil
}

func snapshotArg(fs *pflag.FlagSet) ([]byte, error) {
	path, _ := fs.GetString("snapshot")
	if path == "" {
		return nil, fmt.Errorf("%w: %s needs --snapshot", errUsage, fs.Name())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}
