package relist

import (
	"context"
	"fmt"
)

// SaleRecords looks up fulfillment records tied to an external listing.
type SaleRecords interface {
	HasShippedSale(ctx context.Context, userID, listingID string) (bool, error)
}

// SaleDetector answers "did this listing already sell?" so upstream callers
// can deactivate a rule instead of relisting sold stock. The orchestrator
// itself never calls it — checking is a precondition of invoking Execute.
type SaleDetector struct {
	records SaleRecords
}

// NewSaleDetector creates a detector over the given fulfillment records.
func NewSaleDetector(r SaleRecords) *SaleDetector {
	return &SaleDetector{records: r}
}

// WasSold reports whether a fulfillment record with a shipped-or-delivered
// timestamp exists for the listing.
func (d *SaleDetector) WasSold(ctx context.Context, userID, listingID string) (bool, error) {
	sold, err := d.records.HasShippedSale(ctx, userID, listingID)
	if err != nil {
		return false, fmt.Errorf("checking fulfillment records for %s: %w", listingID, err)
	}
	return sold, nil
}
