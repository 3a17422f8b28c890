package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/JamieWells1/solstice/internal/instrument"
)

// Config drives a whole simulation run. Defaults are overridable from
// the environment (optionally seeded from a .env file).
type Config struct {
	// sim log level
	LogLevel zerolog.Level

	// asset class to use in sim
	AssetClass instrument.AssetClass

	// number of orders to generate in sim, -1 for infinite
	OrdersToGenerate int

	// how many variations of the underlying asset class to use in sim
	UnderlyingPoolCount int

	// bounds for randomly generated orders (only applicable if UsePricer is false)
	MinQnty  int
	MaxQnty  int
	MinPrice float64
	MaxPrice float64

	// expiry bounds for randomly generated options, in days
	MinExpiryDays int
	MaxExpiryDays int

	// enable use of the pricer when generating orders
	UsePricer bool

	// outbound websocket broadcaster
	EnableBroadcaster bool

	// broadcast 1 book frame per BroadcastInterval orders that come in
	BroadcastInterval int
	BroadcastPort     int
}

func Default() Config {
	return Config{
		LogLevel:            zerolog.DebugLevel,
		AssetClass:          instrument.Equity,
		OrdersToGenerate:    10000,
		UnderlyingPoolCount: 10,
		MinQnty:             1,
		MaxQnty:             20,
		MinPrice:            9.0,
		MaxPrice:            10.0,
		MinExpiryDays:       30,
		MaxExpiryDays:       365,
		UsePricer:           true,
		EnableBroadcaster:   false,
		BroadcastInterval:   10,
		BroadcastPort:       8080,
	}
}

// Load reads the optional .env file, applies environment overrides on
// top of the defaults and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = level
	}
	if v := os.Getenv("ASSET_CLASS"); v != "" {
		class, err := parseAssetClass(v)
		if err != nil {
			return Config{}, err
		}
		cfg.AssetClass = class
	}

	intVars := map[string]*int{
		"ORDERS_TO_GENERATE":    &cfg.OrdersToGenerate,
		"UNDERLYING_POOL_COUNT": &cfg.UnderlyingPoolCount,
		"MIN_QNTY":              &cfg.MinQnty,
		"MAX_QNTY":              &cfg.MaxQnty,
		"MIN_EXPIRY_DAYS":       &cfg.MinExpiryDays,
		"MAX_EXPIRY_DAYS":       &cfg.MaxExpiryDays,
		"BROADCAST_INTERVAL":    &cfg.BroadcastInterval,
		"BROADCAST_PORT":        &cfg.BroadcastPort,
	}
	for key, target := range intVars {
		if v := os.Getenv(key); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s value %q: %w", key, v, err)
			}
			*target = parsed
		}
	}

	floatVars := map[string]*float64{
		"MIN_PRICE": &cfg.MinPrice,
		"MAX_PRICE": &cfg.MaxPrice,
	}
	for key, target := range floatVars {
		if v := os.Getenv(key); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s value %q: %w", key, v, err)
			}
			*target = parsed
		}
	}

	boolVars := map[string]*bool{
		"USE_PRICER":         &cfg.UsePricer,
		"ENABLE_BROADCASTER": &cfg.EnableBroadcaster,
	}
	for key, target := range boolVars {
		if v := os.Getenv(key); v != "" {
			*target = strings.EqualFold(v, "true")
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects negative numeric fields; OrdersToGenerate may be -1
// to run forever.
func (c Config) Validate() error {
	if c.OrdersToGenerate != -1 && c.OrdersToGenerate < 0 {
		return fmt.Errorf("invalid config value for orders to generate: %d", c.OrdersToGenerate)
	}

	positives := map[string]float64{
		"underlying pool count": float64(c.UnderlyingPoolCount),
		"broadcast interval":    float64(c.BroadcastInterval),
		"broadcast port":        float64(c.BroadcastPort),
	}
	for name, value := range positives {
		if value <= 0 {
			return fmt.Errorf("invalid config value for %s: %v", name, value)
		}
	}

	nonNegatives := map[string]float64{
		"min quantity":    float64(c.MinQnty),
		"max quantity":    float64(c.MaxQnty),
		"min price":       c.MinPrice,
		"max price":       c.MaxPrice,
		"min expiry days": float64(c.MinExpiryDays),
		"max expiry days": float64(c.MaxExpiryDays),
	}
	for name, value := range nonNegatives {
		if value < 0 {
			return fmt.Errorf("invalid config value for %s: %v", name, value)
		}
	}

	return nil
}

func parseLogLevel(value string) (zerolog.Level, error) {
	switch strings.ToUpper(value) {
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "INFO":
		return zerolog.InfoLevel, nil
	case "WARN":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	}
	return 0, fmt.Errorf("unknown log level %q", value)
}

func parseAssetClass(value string) (instrument.AssetClass, error) {
	switch strings.ToUpper(value) {
	case "EQUITY":
		return instrument.Equity, nil
	case "FUTURE":
		return instrument.Future, nil
	case "OPTION":
		return instrument.Option, nil
	}
	return 0, fmt.Errorf("unknown asset class %q", value)
}
