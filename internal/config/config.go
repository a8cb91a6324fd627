// Package config loads the revenue-report configuration from
// config/revenue-report.yaml, REVENUE_REPORT_* environment variables and
// command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Name is the config file base name and the environment prefix.
const Name = "revenue-report"

// Price sources.
const (
	SourceHTTP   = "http"
	SourceWS     = "ws"
	SourceStatic = "static"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the full tool configuration.
type Config struct {
	RPC     RPCConfig        `mapstructure:"rpc"`
	Markets []string         `mapstructure:"markets"`
	Symbols []SymbolOverride `mapstructure:"symbols"`
	Price   PriceConfig      `mapstructure:"price"`
	Output  OutputConfig     `mapstructure:"output"`
	Log     LogConfig        `mapstructure:"log"`
}

// RPCConfig configures the Solana JSON-RPC client.
type RPCConfig struct {
	URL           string  `mapstructure:"url"`
	Commitment    string  `mapstructure:"commitment"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// SymbolOverride maps a quote mint to a ticker. Overrides are a list because
// viper lower-cases map keys, which would corrupt base58 mints.
type SymbolOverride struct {
	Mint   string `mapstructure:"mint"`
	Symbol string `mapstructure:"symbol"`
}

// PriceConfig selects and configures the price oracle.
type PriceConfig struct {
	Source  string        `mapstructure:"source"`
	HTTPURL string        `mapstructure:"http_url"`
	WSURL   string        `mapstructure:"ws_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Static holds "BASE-QUOTE" -> price for the static source.
	Static map[string]string `mapstructure:"static"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc.url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.commitment", "confirmed")
	v.SetDefault("rpc.rate_per_second", 5.0)
	v.SetDefault("rpc.burst", 5)
	v.SetDefault("markets", []string{})
	v.SetDefault("price.source", SourceHTTP)
	v.SetDefault("price.http_url", "https://api.coinbase.com")
	v.SetDefault("price.ws_url", "wss://ws-feed.exchange.coinbase.com")
	v.SetDefault("price.timeout", 10*time.Second)
	v.SetDefault("price.static", map[string]string{})
	v.SetDefault("output.format", FormatText)
	v.SetDefault("output.no_color", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"rpc-url":      "rpc.url",
	"commitment":   "rpc.commitment",
	"market":       "markets",
	"price-source": "price.source",
	"format":       "output.format",
	"no-color":     "output.no_color",
	"log-level":    "log.level",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to the config file")
	fs.String("rpc-url", "", "Solana JSON-RPC endpoint")
	fs.String("commitment", "", "commitment level: processed, confirmed or finalized")
	fs.StringSlice("market", nil, "market address, repeatable")
	fs.String("price-source", "", "price source: http, ws or static")
	fs.String("format", "", "output format: text or json")
	fs.Bool("no-color", false, "disable coloured output")
	fs.String("log-level", "", "log level")
}

// Load reads the configuration. fs may be nil; otherwise flags registered
// with RegisterFlags override file and environment values when set.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(Name)
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// REVENUE_REPORT_RPC_URL overrides rpc.url.
	v.SetEnvPrefix(strings.ReplaceAll(strings.ToUpper(Name), "-", "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := false
	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			explicit = true
		}
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if c.RPC.URL == "" {
		errs = append(errs, errors.New("rpc.url is required"))
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("rpc.commitment %q is not one of processed, confirmed, finalized", c.RPC.Commitment))
	}
	if c.RPC.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("rpc.rate_per_second must not be negative, got %v", c.RPC.RatePerSecond))
	}
	if c.RPC.RatePerSecond > 0 && c.RPC.Burst < 1 {
		errs = append(errs, fmt.Errorf("rpc.burst must be at least 1, got %d", c.RPC.Burst))
	}

	if _, err := c.MarketKeys(); err != nil {
		errs = append(errs, err)
	}
	for i, o := range c.Symbols {
		if _, err := solana.PublicKeyFromBase58(o.Mint); err != nil {
			errs = append(errs, fmt.Errorf("symbols[%d].mint %q: %w", i, o.Mint, err))
		}
		if strings.TrimSpace(o.Symbol) == "" {
			errs = append(errs, fmt.Errorf("symbols[%d].symbol is empty", i))
		}
	}

	switch c.Price.Source {
	case SourceHTTP:
		if c.Price.HTTPURL == "" {
			errs = append(errs, errors.New("price.http_url is required for the http source"))
		}
	case SourceWS:
		if c.Price.WSURL == "" {
			errs = append(errs, errors.New("price.ws_url is required for the ws source"))
		}
	case SourceStatic:
		if len(c.Price.Static) == 0 {
			errs = append(errs, errors.New("price.static must list at least one pair for the static source"))
		}
	default:
		errs = append(errs, fmt.Errorf("price.source %q is not one of http, ws, static", c.Price.Source))
	}
	if c.Price.Timeout < 0 {
		errs = append(errs, fmt.Errorf("price.timeout must not be negative, got %s", c.Price.Timeout))
	}

	switch c.Output.Format {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("output.format %q is not one of text, json", c.Output.Format))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, console", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// MarketKeys parses the configured market addresses.
func (c *Config) MarketKeys() ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(c.Markets))
	for i, m := range c.Markets {
		pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(m))
		if err != nil {
			return nil, fmt.Errorf("markets[%d] %q: %w", i, m, err)
		}
		keys = append(keys, pk)
	}
	return keys, nil
}

// SymbolOverrides returns the overrides keyed by mint.
func (c *Config) SymbolOverrides() map[string]string {
	out := make(map[string]string, len(c.Symbols))
	for _, o := range c.Symbols {
		out[o.Mint] = o.Symbol
	}
	return out
}
