package router

import (
	"fmt"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/asset"
)

// routeResponse is one candidate route as returned by GET /swap.
// Amounts are native integer strings.
type routeResponse struct {
	InAmount       string  `json:"inAmount"`
	OutAmount      string  `json:"outAmount"`
	PriceImpactPct float64 `json:"priceImpactPct,omitempty"`
	Label          string  `json:"label,omitempty"`
}

// toRoute parses the native amounts into typed asset amounts.
func (r routeResponse) toRoute(in, out *asset.Asset) (domain.Route, error) {
	inAmt, err := asset.ParseNative(in, r.InAmount)
	if err != nil {
		return domain.Route{}, fmt.Errorf("inAmount %q: %w", r.InAmount, err)
	}
	outAmt, err := asset.ParseNative(out, r.OutAmount)
	if err != nil {
		return domain.Route{}, fmt.Errorf("outAmount %q: %w", r.OutAmount, err)
	}
	return domain.Route{In: inAmt, Out: outAmt}, nil
}

// apiError is the router's error body.
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
