package relist

import (
	"math"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// NextPrice computes the scheduled price decrease for a rule given the
// listing's current price. The second return is false when the rule has no
// decrease policy or the price is already at (or below) the floor.
func NextPrice(rule *domain.RelistRule, current float64) (float64, bool) {
	if current <= 0 {
		return 0, false
	}

	var next float64
	switch rule.DecreaseType {
	case domain.DecreasePercent:
		next = current * (1 - rule.DecreaseAmount/100)
	case domain.DecreaseFixed:
		next = current - rule.DecreaseAmount
	default:
		return 0, false
	}

	next = math.Floor(next*100) / 100

	if rule.FloorPrice > 0 && next < rule.FloorPrice {
		next = rule.FloorPrice
	}
	if next <= 0 || next >= current {
		return 0, false
	}

	return next, true
}
