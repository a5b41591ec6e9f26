package ebay

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

const (
	defaultTradingURL    = "https://api.ebay.com/ws/api.dll"
	tradingSiteID        = "0" // US
	tradingCompatLevel   = "967"
	endingReasonNotAvail = "NotAvailable"
)

// TradingAdapter drives one listing through the legacy XML Trading API. The
// API has no separate update call: pending edits are staged by Update and
// folded into the RelistItem request, together with the seller's custom
// location tag, which the API would otherwise drop.
type TradingAdapter struct {
	api       *apiClient
	userID    string
	endpoint  string
	locations LocationSource
	log       *slog.Logger

	pending     *domain.ChangeSet
	locationTag string
}

// --- wire types ---

type tradingError struct {
	ShortMessage string `xml:"ShortMessage"`
	LongMessage  string `xml:"LongMessage"`
	ErrorCode    int    `xml:"ErrorCode"`
}

type endItemRequest struct {
	XMLName      xml.Name `xml:"urn:ebay:apis:eBLBaseComponents EndItemRequest"`
	ItemID       string   `xml:"ItemID"`
	EndingReason string   `xml:"EndingReason"`
}

type getItemRequest struct {
	XMLName xml.Name `xml:"urn:ebay:apis:eBLBaseComponents GetItemRequest"`
	ItemID  string   `xml:"ItemID"`
}

type relistItemRequest struct {
	XMLName xml.Name   `xml:"urn:ebay:apis:eBLBaseComponents RelistItemRequest"`
	Item    relistItem `xml:"Item"`
}

type relistItem struct {
	ItemID      string  `xml:"ItemID"`
	StartPrice  string  `xml:"StartPrice,omitempty"`
	Quantity    *int    `xml:"Quantity,omitempty"`
	Title       string  `xml:"Title,omitempty"`
	Description string  `xml:"Description,omitempty"`
	ConditionID int     `xml:"ConditionID,omitempty"`
	Location    string  `xml:"Location,omitempty"`
}

type tradingResponse struct {
	Ack    string         `xml:"Ack"`
	Errors []tradingError `xml:"Errors"`
	ItemID string         `xml:"ItemID"`
	Item   tradingItem    `xml:"Item"`
}

type tradingItem struct {
	ItemID        string `xml:"ItemID"`
	SKU           string `xml:"SKU"`
	Title         string `xml:"Title"`
	Quantity      int    `xml:"Quantity"`
	Location      string `xml:"Location"`
	SellingStatus struct {
		CurrentPrice struct {
			Value    string `xml:",chardata"`
			Currency string `xml:"currencyID,attr"`
		} `xml:"CurrentPrice"`
		QuantitySold  int    `xml:"QuantitySold"`
		ListingStatus string `xml:"ListingStatus"`
	} `xml:"SellingStatus"`
}

// Fetch issues GetItem and maps the response to a snapshot. The location
// tag is resolved from our inventory records first, falling back to the
// item's own Location field, and cached for the later relist.
func (a *TradingAdapter) Fetch(ctx context.Context, ref domain.ListingRef) (*domain.ListingSnapshot, error) {
	var resp tradingResponse
	if err := a.call(ctx, "GetItem", getItemRequest{ItemID: ref.ID}, &resp); err != nil {
		return nil, fmt.Errorf("fetching item %s: %w", ref.ID, err)
	}

	available := resp.Item.Quantity - resp.Item.SellingStatus.QuantitySold
	if available < 0 {
		available = 0
	}
	price, _ := strconv.ParseFloat(strings.TrimSpace(resp.Item.SellingStatus.CurrentPrice.Value), 64)

	tag, err := a.locations.FindLocationTag(ctx, a.userID, ref.ID)
	if err != nil || tag == "" {
		if err != nil {
			a.log.Warn("location tag lookup failed", "item_id", ref.ID, "error", err)
		}
		tag = resp.Item.Location
	}
	a.locationTag = tag

	return &domain.ListingSnapshot{
		Ref:         ref,
		SKU:         resp.Item.SKU,
		Title:       resp.Item.Title,
		Price:       price,
		Currency:    resp.Item.SellingStatus.CurrentPrice.Currency,
		Quantity:    available,
		LocationTag: tag,
		Status:      resp.Item.SellingStatus.ListingStatus,
	}, nil
}

// Withdraw issues EndItem with a NotAvailable reason code.
func (a *TradingAdapter) Withdraw(ctx context.Context, ref domain.ListingRef) error {
	req := endItemRequest{ItemID: ref.ID, EndingReason: endingReasonNotAvail}
	var resp tradingResponse
	if err := a.call(ctx, "EndItem", req, &resp); err != nil {
		return fmt.Errorf("ending item %s: %w", ref.ID, err)
	}
	return nil
}

// Update stages the ChangeSet for the relist call; the Trading API has no
// distinct update operation.
func (a *TradingAdapter) Update(_ context.Context, _ domain.ListingRef, cs *domain.ChangeSet) error {
	a.pending = cs
	return nil
}

// Publish issues RelistItem with any staged edits folded in and the location
// tag re-injected, returning the new item id.
func (a *TradingAdapter) Publish(ctx context.Context, ref domain.ListingRef) (string, error) {
	item := relistItem{ItemID: ref.ID}

	if cs := a.pending; cs != nil {
		if cs.Price != nil {
			item.StartPrice = strconv.FormatFloat(*cs.Price, 'f', 2, 64)
		}
		item.Quantity = cs.Quantity
		if cs.Title != nil {
			item.Title = *cs.Title
		}
		if cs.Description != nil {
			item.Description = *cs.Description
		}
		if cs.Condition != nil {
			item.ConditionID = conditionID(*cs.Condition)
		}
	}

	tag := a.locationTag
	if tag == "" {
		if found, err := a.locations.FindLocationTag(ctx, a.userID, ref.ID); err == nil {
			tag = found
		}
	}
	item.Location = tag

	var resp tradingResponse
	if err := a.call(ctx, "RelistItem", relistItemRequest{Item: item}, &resp); err != nil {
		return "", fmt.Errorf("relisting item %s: %w", ref.ID, err)
	}
	if resp.ItemID == "" {
		return "", fmt.Errorf("relist response for item %s carried no new item id", ref.ID)
	}

	return resp.ItemID, nil
}

// conditionID maps our normalized condition strings to Trading API condition
// ids. Unknown values fall back to 0, which omits the element.
func conditionID(cond string) int {
	switch cond {
	case "new":
		return 1000
	case "like_new":
		return 2750
	case "used":
		return 3000
	case "for_parts":
		return 7000
	}
	return 0
}

// call executes one Trading API envelope. The call name travels in a header;
// Ack=Failure on a 200 response is still a protocol error.
func (a *TradingAdapter) call(ctx context.Context, callName string, payload any, out *tradingResponse) error {
	token, err := a.api.acquire(ctx, a.userID)
	if err != nil {
		return err
	}

	data, err := xml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", callName, err)
	}
	body := append([]byte(xml.Header), data...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", callName, err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("X-EBAY-API-CALL-NAME", callName)
	req.Header.Set("X-EBAY-API-SITEID", tradingSiteID)
	req.Header.Set("X-EBAY-API-COMPATIBILITY-LEVEL", tradingCompatLevel)
	req.Header.Set("X-EBAY-API-IAF-TOKEN", token)

	resp, err := a.api.http.Do(req)
	if err != nil {
		return fmt.Errorf("executing %s request: %w", callName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", callName, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: string(respBody)}
	}

	if err := xml.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", callName, err)
	}

	if out.Ack == "Failure" {
		apiErr := &APIError{Ack: out.Ack}
		if len(out.Errors) > 0 {
			apiErr.Code = out.Errors[0].ErrorCode
			apiErr.Message = out.Errors[0].LongMessage
		}
		return apiErr
	}

	return nil
}

var _ ListingAdapter = (*TradingAdapter)(nil)
