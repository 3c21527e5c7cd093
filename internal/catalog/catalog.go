// Package catalog holds the fixed entitlement exchange configuration:
// per-dimension rates, step sizes, and minimums. The catalog is loaded once
// at boot and never mutated at runtime.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Dimension is one tradable entitlement axis.
type Dimension string

const (
	DimensionSeats    Dimension = "seats"
	DimensionProjects Dimension = "projects"
	DimensionStorage  Dimension = "storage"
)

// Dimensions returns all tradable dimensions in stable order.
func Dimensions() []Dimension {
	return []Dimension{DimensionSeats, DimensionProjects, DimensionStorage}
}

// Rate prices one dimension. SellRate is points gained per unit given up,
// BuyRate points spent per unit gained. BuyRate > SellRate so every round
// trip loses value.
type Rate struct {
	SellRate float64
	BuyRate  float64
	Step     int64
	Minimum  int64
}

// Catalog maps every dimension to its rate configuration.
type Catalog struct {
	rates map[Dimension]Rate
}

var (
	ErrUnknownDimension = errors.New("unknown_dimension")
	ErrInvalidRate      = errors.New("invalid_rate")
)

// Default returns the built-in rate table.
func Default() Catalog {
	return Catalog{rates: map[Dimension]Rate{
		DimensionSeats:    {SellRate: 3.0, BuyRate: 7.0, Step: 1, Minimum: 1},
		DimensionProjects: {SellRate: 0.8, BuyRate: 2.5, Step: 5, Minimum: 0},
		DimensionStorage:  {SellRate: 0.3, BuyRate: 1.0, Step: 1, Minimum: 0},
	}}
}

// Load builds the catalog from defaults plus environment overrides of the
// form EXCHANGE_<DIMENSION>_{SELL_RATE,BUY_RATE,STEP,MINIMUM}. An invalid
// catalog is a startup error.
func Load() (Catalog, error) {
	cat := Default()
	for _, d := range Dimensions() {
		rate := cat.rates[d]
		prefix := "EXCHANGE_" + strings.ToUpper(string(d)) + "_"

		rate.SellRate = getenvFloat(prefix+"SELL_RATE", rate.SellRate)
		rate.BuyRate = getenvFloat(prefix+"BUY_RATE", rate.BuyRate)
		rate.Step = getenvInt(prefix+"STEP", rate.Step)
		rate.Minimum = getenvInt(prefix+"MINIMUM", rate.Minimum)

		cat.rates[d] = rate
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// Rate returns the configuration for d.
func (c Catalog) Rate(d Dimension) (Rate, error) {
	rate, ok := c.rates[d]
	if !ok {
		return Rate{}, fmt.Errorf("%w: %s", ErrUnknownDimension, d)
	}
	return rate, nil
}

// MustRate is Rate for dimensions known to exist.
func (c Catalog) MustRate(d Dimension) Rate {
	rate, err := c.Rate(d)
	if err != nil {
		panic(err)
	}
	return rate
}

// Validate checks the economic invariants of the rate table.
func (c Catalog) Validate() error {
	for _, d := range Dimensions() {
		rate, ok := c.rates[d]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDimension, d)
		}
		if rate.SellRate <= 0 {
			return fmt.Errorf("%w: %s sell rate must be positive", ErrInvalidRate, d)
		}
		if rate.BuyRate <= rate.SellRate {
			return fmt.Errorf("%w: %s buy rate must exceed sell rate", ErrInvalidRate, d)
		}
		if rate.Step < 1 {
			return fmt.Errorf("%w: %s step must be at least 1", ErrInvalidRate, d)
		}
		if rate.Minimum < 0 {
			return fmt.Errorf("%w: %s minimum must not be negative", ErrInvalidRate, d)
		}
	}
	return nil
}

func getenvFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt(key string, fallback int64) int64 {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
