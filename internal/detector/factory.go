package detector

import (
	"errors"

	"mev-competition-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyKind   = errors.New("unknown strategy kind")
	ErrInvalidBidPercentage  = errors.New("bid percentage must be in (0, 100]")
	ErrMissingDeviationGate  = errors.New("BACKRUN_ONLY requires MonitorPriceDeviation")
	ErrNegativeProfitFloor   = errors.New("MinProfitThreshold must not be negative")
	ErrNegativeGasCost       = errors.New("GasCostPerTrade must not be negative")
	ErrMissingLatencyProfile = errors.New("strategy requires a latency profile")
)

// FromConfig creates a Detector from domain.StrategyConfig.
// Validates required parameters per strategy kind.
func FromConfig(cfg domain.StrategyConfig) (Detector, error) {
	if err := validateCommon(cfg); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case domain.StrategyAggressive:
		return NewSandwichDetector(cfg.Kind, 0.8, nil), nil
	case domain.StrategyConservative:
		return NewSandwichDetector(cfg.Kind, 0.3, nil), nil
	case domain.StrategySlow:
		return NewSandwichDetector(cfg.Kind, 0.5, nil), nil
	case domain.StrategyAdaptive:
		return NewSandwichDetector(cfg.Kind, 0, DefaultAdaptRule), nil
	case domain.StrategyBackrunOnly:
		if cfg.MonitorPriceDeviation <= 0 {
			return nil, ErrMissingDeviationGate
		}
		return NewBackrunDetector(cfg.MonitorPriceDeviation), nil
	default:
		return nil, ErrUnknownStrategyKind
	}
}

func validateCommon(cfg domain.StrategyConfig) error {
	if cfg.BidPercentage <= 0 || cfg.BidPercentage > 100 {
		return ErrInvalidBidPercentage
	}
	if cfg.MinProfitThreshold.Sign() < 0 {
		return ErrNegativeProfitFloor
	}
	if cfg.GasCostPerTrade.Sign() < 0 {
		return ErrNegativeGasCost
	}
	if cfg.LatencyProfile == "" {
		return ErrMissingLatencyProfile
	}
	return nil
}
