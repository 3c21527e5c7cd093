// Package calc computes entitlement exchange bounds and point economics.
// Everything here is a pure function over its inputs; nothing touches
// storage, which is what keeps the engine property-testable.
package calc

import (
	"github.com/agencyhub/entitlex/internal/catalog"
	"github.com/agencyhub/entitlex/internal/exchange/domain"
)

// Epsilon absorbs floating point rounding when checking the point balance.
const Epsilon = 1e-3

// Limits is the calculator input: base limits and live usage per dimension,
// both in whole units (storage in GB). A nil base means the dimension is
// unbounded and excluded from exchange.
type Limits struct {
	Base  map[catalog.Dimension]*int64
	Usage map[catalog.Dimension]int64
}

// Floor returns the minimum legal value for d: the most a tenant may sell
// down to. Never below live consumption.
func Floor(cat catalog.Catalog, limits Limits, d catalog.Dimension) int64 {
	rate := cat.MustRate(d)
	floor := rate.Minimum
	if usage := limits.Usage[d]; usage > floor {
		floor = usage
	}
	return floor
}

// Ceiling returns the maximum legal value for d under the cross-funding
// rule: growth in d is bounded by the points raisable from selling surplus
// in the other dimensions only. A dimension never funds its own expansion.
func Ceiling(cat catalog.Catalog, limits Limits, d catalog.Dimension) int64 {
	base := limits.Base[d]
	if base == nil {
		return 0
	}

	var budget float64
	for _, other := range catalog.Dimensions() {
		if other == d {
			continue
		}
		otherBase := limits.Base[other]
		if otherBase == nil {
			continue
		}
		surplus := *otherBase - Floor(cat, limits, other)
		if surplus <= 0 {
			continue
		}
		budget += float64(surplus) * cat.MustRate(other).SellRate
	}

	rate := cat.MustRate(d)
	extra := int64(budget / rate.BuyRate)
	extra -= extra % rate.Step
	return *base + extra
}

// Points returns the earned/spent totals for a proposal. Deltas on unbounded
// dimensions contribute nothing; they are rejected separately.
func Points(cat catalog.Catalog, limits Limits, proposal domain.Proposal) (earned, spent float64) {
	for _, d := range catalog.Dimensions() {
		if limits.Base[d] == nil {
			continue
		}
		delta := proposal.Delta(d)
		rate := cat.MustRate(d)
		switch {
		case delta < 0:
			earned += float64(-delta) * rate.SellRate
		case delta > 0:
			spent += float64(delta) * rate.BuyRate
		}
	}
	return earned, spent
}

// Bounds computes the admissible range for every bounded dimension.
func Bounds(cat catalog.Catalog, limits Limits) map[catalog.Dimension]domain.DimensionBounds {
	bounds := make(map[catalog.Dimension]domain.DimensionBounds, len(catalog.Dimensions()))
	for _, d := range catalog.Dimensions() {
		base := limits.Base[d]
		if base == nil {
			continue
		}
		bounds[d] = domain.DimensionBounds{
			Base:    *base,
			Floor:   Floor(cat, limits, d),
			Ceiling: Ceiling(cat, limits, d),
		}
	}
	return bounds
}

// Evaluate checks a proposal against bounds and point economics. Eligibility
// gating happens a layer up; by the time a proposal reaches the calculator
// the tenant is allowed to trade.
func Evaluate(cat catalog.Catalog, limits Limits, proposal domain.Proposal) domain.Evaluation {
	bounds := Bounds(cat, limits)

	var rejections []domain.Rejection
	for _, d := range catalog.Dimensions() {
		delta := proposal.Delta(d)
		if delta == 0 {
			continue
		}

		base := limits.Base[d]
		if base == nil {
			rejections = append(rejections, domain.Rejection{Dimension: d, Code: domain.CodeDimensionUnbounded})
			continue
		}

		rate := cat.MustRate(d)
		if delta%rate.Step != 0 {
			rejections = append(rejections, domain.Rejection{Dimension: d, Code: domain.CodeInvalidStep})
			continue
		}

		target := *base + delta
		b := bounds[d]
		if target < b.Floor {
			rejections = append(rejections, domain.Rejection{Dimension: d, Code: domain.CodeBelowFloor})
		} else if target > b.Ceiling {
			rejections = append(rejections, domain.Rejection{Dimension: d, Code: domain.CodeAboveCeiling})
		}
	}

	earned, spent := Points(cat, limits, proposal)
	balance := earned - spent
	if balance < -Epsilon {
		rejections = append(rejections, domain.Rejection{Code: domain.CodeInsufficientPoints})
	}

	return domain.Evaluation{
		Admissible:    len(rejections) == 0,
		PointsEarned:  earned,
		PointsSpent:   spent,
		PointsBalance: balance,
		Bounds:        bounds,
		Rejections:    rejections,
	}
}
