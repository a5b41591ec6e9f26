package ebay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

const (
	defaultSellURL     = "https://api.ebay.com/sell/inventory/v1"
	defaultMarketplace = "EBAY_US"
)

// OfferAdapter drives one listing through the modern Sell APIs. Commercial
// terms (price, quantity) live on the offer resource; content (title,
// description, condition) lives on a separate inventory item resource keyed
// by SKU. Both updates are read-modify-write so fields we do not touch
// survive the round trip.
type OfferAdapter struct {
	api         *apiClient
	userID      string
	sku         string
	baseURL     string
	marketplace string
	log         *slog.Logger
}

// offerResource is the subset of the offer body we read into snapshots. Raw
// read-modify-write goes through map[string]any so unknown fields are kept.
type offerResource struct {
	OfferID           string `json:"offerId"`
	SKU               string `json:"sku"`
	AvailableQuantity int    `json:"availableQuantity"`
	Status            string `json:"status"`
	PricingSummary    struct {
		Price moneyAmount `json:"price"`
	} `json:"pricingSummary"`
	Listing struct {
		ListingID string `json:"listingId"`
	} `json:"listing"`
}

type moneyAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type offerErrorBody struct {
	Errors []struct {
		ErrorID int    `json:"errorId"`
		Message string `json:"message"`
	} `json:"errors"`
}

type publishResponse struct {
	ListingID string `json:"listingId"`
}

// Fetch retrieves the offer and maps it to a snapshot.
func (a *OfferAdapter) Fetch(ctx context.Context, ref domain.ListingRef) (*domain.ListingSnapshot, error) {
	body, err := a.do(ctx, http.MethodGet, a.offerURL(ref.ID), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching offer %s: %w", ref.ID, err)
	}

	var offer offerResource
	if err := json.Unmarshal(body, &offer); err != nil {
		return nil, fmt.Errorf("parsing offer %s: %w", ref.ID, err)
	}

	price, _ := strconv.ParseFloat(offer.PricingSummary.Price.Value, 64)

	return &domain.ListingSnapshot{
		Ref:      ref,
		SKU:      offer.SKU,
		Price:    price,
		Currency: offer.PricingSummary.Price.Currency,
		Quantity: offer.AvailableQuantity,
		Status:   offer.Status,
	}, nil
}

// Withdraw ends the live listing behind the offer. A 204 with an empty body
// is the success signal.
func (a *OfferAdapter) Withdraw(ctx context.Context, ref domain.ListingRef) error {
	if _, err := a.do(ctx, http.MethodPost, a.offerURL(ref.ID)+"/withdraw", nil); err != nil {
		return fmt.Errorf("withdrawing offer %s: %w", ref.ID, err)
	}
	return nil
}

// Update applies the ChangeSet. Price and quantity overlay the offer body;
// title, description and condition overlay the inventory item keyed by the
// rule's SKU. Each write is issued only when its half of the ChangeSet is
// populated.
func (a *OfferAdapter) Update(ctx context.Context, ref domain.ListingRef, cs *domain.ChangeSet) error {
	if cs.IsEmpty() {
		return nil
	}

	if cs.HasCommercial() {
		if err := a.updateOffer(ctx, ref, cs); err != nil {
			return fmt.Errorf("updating offer terms: %w", err)
		}
	}

	if cs.HasContent() {
		if err := a.updateInventoryItem(ctx, cs); err != nil {
			return fmt.Errorf("updating inventory item: %w", err)
		}
	}

	return nil
}

// Publish creates a new live listing from the offer and returns its id.
func (a *OfferAdapter) Publish(ctx context.Context, ref domain.ListingRef) (string, error) {
	body, err := a.do(ctx, http.MethodPost, a.offerURL(ref.ID)+"/publish", nil)
	if err != nil {
		return "", fmt.Errorf("publishing offer %s: %w", ref.ID, err)
	}

	var resp publishResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing publish response: %w", err)
	}
	if resp.ListingID == "" {
		return "", fmt.Errorf("publish response for offer %s carried no listing id", ref.ID)
	}

	return resp.ListingID, nil
}

func (a *OfferAdapter) updateOffer(ctx context.Context, ref domain.ListingRef, cs *domain.ChangeSet) error {
	raw, err := a.getRaw(ctx, a.offerURL(ref.ID))
	if err != nil {
		return err
	}

	if cs.Quantity != nil {
		raw["availableQuantity"] = *cs.Quantity
	}
	if cs.Price != nil {
		pricing, _ := raw["pricingSummary"].(map[string]any)
		if pricing == nil {
			pricing = map[string]any{}
		}
		price, _ := pricing["price"].(map[string]any)
		if price == nil {
			price = map[string]any{"currency": "USD"}
		}
		price["value"] = strconv.FormatFloat(*cs.Price, 'f', 2, 64)
		pricing["price"] = price
		raw["pricingSummary"] = pricing
	}

	if _, err := a.do(ctx, http.MethodPut, a.offerURL(ref.ID), raw); err != nil {
		return err
	}
	return nil
}

func (a *OfferAdapter) updateInventoryItem(ctx context.Context, cs *domain.ChangeSet) error {
	if a.sku == "" {
		return fmt.Errorf("rule has no SKU; content update needs the inventory item key")
	}

	itemURL := a.baseURL + "/inventory_item/" + a.sku
	raw, err := a.getRaw(ctx, itemURL)
	if err != nil {
		return err
	}

	product, _ := raw["product"].(map[string]any)
	if product == nil {
		product = map[string]any{}
	}
	if cs.Title != nil {
		product["title"] = *cs.Title
	}
	if cs.Description != nil {
		product["description"] = *cs.Description
	}
	raw["product"] = product
	if cs.Condition != nil {
		raw["condition"] = *cs.Condition
	}

	if _, err := a.do(ctx, http.MethodPut, itemURL, raw); err != nil {
		return err
	}
	return nil
}

func (a *OfferAdapter) getRaw(ctx context.Context, url string) (map[string]any, error) {
	body, err := a.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	return raw, nil
}

func (a *OfferAdapter) offerURL(offerID string) string {
	return a.baseURL + "/offer/" + offerID
}

// do executes one authenticated call and returns the response body. Non-2xx
// responses are mapped to *APIError with the first structured error parsed
// out of the body.
func (a *OfferAdapter) do(ctx context.Context, method, url string, payload any) ([]byte, error) {
	token, err := a.api.acquire(ctx, a.userID)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", a.marketplace)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.api.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(body)}
		var parsed offerErrorBody
		if json.Unmarshal(body, &parsed) == nil && len(parsed.Errors) > 0 {
			apiErr.Code = parsed.Errors[0].ErrorID
			apiErr.Message = parsed.Errors[0].Message
		}
		return nil, apiErr
	}

	return body, nil
}

var _ ListingAdapter = (*OfferAdapter)(nil)
