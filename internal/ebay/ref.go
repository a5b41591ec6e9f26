package ebay

import (
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// legacyMinDigits is the shortest reference the Trading API has ever issued.
// Modern offer ids mix letters and digits, so anything entirely numeric and
// at least this long is a legacy item id.
const legacyMinDigits = 10

// InferProtocol classifies a raw external listing reference by shape. It is
// a pure function with no I/O, used exactly once — when a rule is created —
// after which the decision is stored on the rule.
func InferProtocol(ref string) domain.Protocol {
	if len(ref) >= legacyMinDigits && allDigits(ref) {
		return domain.ProtocolTrading
	}
	return domain.ProtocolOffer
}

// NewListingRef builds a tagged listing reference from a raw external id.
func NewListingRef(raw string) domain.ListingRef {
	return domain.ListingRef{Protocol: InferProtocol(raw), ID: raw}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
