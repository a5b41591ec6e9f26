package main

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(newMux(logger, seedState()))
	t.Cleanup(srv.Close)
	return srv
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestTokenEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/identity/v1/oauth2/token",
		strings.NewReader("grant_type=refresh_token&refresh_token=rt-1"))
	req.SetBasicAuth("app-id", "cert-id")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("token request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	if token, _ := body["access_token"].(string); !strings.HasPrefix(token, "mock-token-v1-") {
		t.Errorf("got access_token %q, want mock-token-v1- prefix", token)
	}
	if tt, _ := body["token_type"].(string); tt != "User Access Token" {
		t.Errorf("got token_type %q, want User Access Token", tt)
	}
}

func TestTokenEndpointRequiresBasicAuth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/identity/v1/oauth2/token",
		"application/x-www-form-urlencoded", strings.NewReader("grant_type=refresh_token"))
	if err != nil {
		t.Fatalf("token request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", resp.StatusCode)
	}
}

func TestGetOffer(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/sell/inventory/v1/offer/offer-1")
	if err != nil {
		t.Fatalf("get offer: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	if sku, _ := body["sku"].(string); sku != "SKU-001" {
		t.Errorf("got sku %q, want SKU-001", sku)
	}
	if status, _ := body["status"].(string); status != "PUBLISHED" {
		t.Errorf("got status %q, want PUBLISHED", status)
	}
	pricing := body["pricingSummary"].(map[string]any)
	price := pricing["price"].(map[string]any)
	if v, _ := price["value"].(string); v != "249.99" {
		t.Errorf("got price %q, want 249.99", v)
	}
}

func TestGetOfferNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/sell/inventory/v1/offer/no-such-offer")
	if err != nil {
		t.Fatalf("get offer: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", resp.StatusCode)
	}
}

func TestWithdrawOfferTwice(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/sell/inventory/v1/offer/offer-1/withdraw", "application/json", nil)
	if err != nil {
		t.Fatalf("first withdraw: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("first withdraw: got status %d, want 204", resp.StatusCode)
	}

	// A second withdraw reports the offer as already unpublished, the same
	// way the real API does.
	resp, err = http.Post(srv.URL+"/sell/inventory/v1/offer/offer-1/withdraw", "application/json", nil)
	if err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second withdraw: got status %d, want 400", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	errs := body["errors"].([]any)
	first := errs[0].(map[string]any)
	if code, _ := first["errorId"].(float64); int(code) != 25713 {
		t.Errorf("got errorId %v, want 25713", first["errorId"])
	}
}

func TestPublishOfferIssuesNewListingID(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/sell/inventory/v1/offer/offer-1/publish", "application/json", nil)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish: got status %d, want 200", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	listingID, _ := body["listingId"].(string)
	if listingID == "" {
		t.Fatal("publish response carried no listingId")
	}
	if listingID == "376500000001" {
		t.Error("publish reused the old listing id")
	}

	// The new listing id is reflected on subsequent reads.
	resp, err = http.Get(srv.URL + "/sell/inventory/v1/offer/offer-1")
	if err != nil {
		t.Fatalf("get offer: %v", err)
	}
	offer := decodeJSON(t, resp)
	listing := offer["listing"].(map[string]any)
	if got, _ := listing["listingId"].(string); got != listingID {
		t.Errorf("got listingId %q after publish, want %q", got, listingID)
	}
}

func TestUpdateOffer(t *testing.T) {
	srv := newTestServer(t)

	payload := `{"availableQuantity": 7, "pricingSummary": {"price": {"value": "199.99", "currency": "USD"}}}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/sell/inventory/v1/offer/offer-1", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("update offer: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update offer: got status %d, want 204", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/sell/inventory/v1/offer/offer-1")
	if err != nil {
		t.Fatalf("get offer: %v", err)
	}
	body := decodeJSON(t, resp)
	if qty, _ := body["availableQuantity"].(float64); int(qty) != 7 {
		t.Errorf("got availableQuantity %v, want 7", body["availableQuantity"])
	}
	price := body["pricingSummary"].(map[string]any)["price"].(map[string]any)
	if v, _ := price["value"].(string); v != "199.99" {
		t.Errorf("got price %q, want 199.99", v)
	}
}

func TestInventoryItemRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/sell/inventory/v1/inventory_item/SKU-001")
	if err != nil {
		t.Fatalf("get inventory item: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get inventory item: got status %d, want 200", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	product := body["product"].(map[string]any)
	if title, _ := product["title"].(string); title != "Dell PowerEdge R740 2U Server" {
		t.Errorf("got title %q", title)
	}

	payload := `{"product": {"title": "Dell PowerEdge R740 2U Server (Refurbished)"}, "condition": "USED_GOOD"}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/sell/inventory/v1/inventory_item/SKU-001", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("update inventory item: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update inventory item: got status %d, want 204", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/sell/inventory/v1/inventory_item/SKU-001")
	if err != nil {
		t.Fatalf("get inventory item: %v", err)
	}
	body = decodeJSON(t, resp)
	product = body["product"].(map[string]any)
	if title, _ := product["title"].(string); !strings.Contains(title, "Refurbished") {
		t.Errorf("got title %q, want updated title", title)
	}
	if cond, _ := body["condition"].(string); cond != "USED_GOOD" {
		t.Errorf("got condition %q, want USED_GOOD", cond)
	}
}

func callTrading(t *testing.T, srv *httptest.Server, callName, body string) string {
	t.Helper()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/ws/api.dll", strings.NewReader(body))
	req.Header.Set("X-EBAY-API-CALL-NAME", callName)
	req.Header.Set("Content-Type", "text/xml")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s request: %v", callName, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading %s response: %v", callName, err)
	}
	return string(raw)
}

func TestTradingGetItem(t *testing.T) {
	srv := newTestServer(t)

	body := callTrading(t, srv, "GetItem",
		`<?xml version="1.0"?><GetItemRequest><ItemID>376573575653</ItemID></GetItemRequest>`)

	var parsed struct {
		Ack  string `xml:"Ack"`
		Item struct {
			SKU           string `xml:"SKU"`
			Quantity      int    `xml:"Quantity"`
			Location      string `xml:"Location"`
			SellingStatus struct {
				CurrentPrice  string `xml:"CurrentPrice"`
				QuantitySold  int    `xml:"QuantitySold"`
				ListingStatus string `xml:"ListingStatus"`
			} `xml:"SellingStatus"`
		} `xml:"Item"`
	}
	if err := xml.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("parsing GetItem response: %v", err)
	}
	if parsed.Ack != "Success" {
		t.Fatalf("got Ack %q, want Success", parsed.Ack)
	}
	if parsed.Item.SKU != "SKU-002" {
		t.Errorf("got SKU %q, want SKU-002", parsed.Item.SKU)
	}
	if parsed.Item.Quantity != 5 || parsed.Item.SellingStatus.QuantitySold != 2 {
		t.Errorf("got quantity %d sold %d, want 5 and 2",
			parsed.Item.Quantity, parsed.Item.SellingStatus.QuantitySold)
	}
	if parsed.Item.SellingStatus.CurrentPrice != "189.99" {
		t.Errorf("got price %q, want 189.99", parsed.Item.SellingStatus.CurrentPrice)
	}
	if parsed.Item.SellingStatus.ListingStatus != "Active" {
		t.Errorf("got listing status %q, want Active", parsed.Item.SellingStatus.ListingStatus)
	}
}

func TestTradingEndItemTwice(t *testing.T) {
	srv := newTestServer(t)

	endReq := `<?xml version="1.0"?><EndItemRequest><ItemID>376573575653</ItemID><EndingReason>NotAvailable</EndingReason></EndItemRequest>`

	body := callTrading(t, srv, "EndItem", endReq)
	if !strings.Contains(body, "<Ack>Success</Ack>") {
		t.Fatalf("first EndItem: got %s", body)
	}

	// Ending an already-ended listing fails with the already-closed code.
	body = callTrading(t, srv, "EndItem", endReq)
	if !strings.Contains(body, "<Ack>Failure</Ack>") {
		t.Fatalf("second EndItem: got %s", body)
	}
	if !strings.Contains(body, "<ErrorCode>1047</ErrorCode>") {
		t.Errorf("second EndItem: want error code 1047, got %s", body)
	}
}

func TestTradingRelistItem(t *testing.T) {
	srv := newTestServer(t)

	callTrading(t, srv, "EndItem",
		`<?xml version="1.0"?><EndItemRequest><ItemID>376573575653</ItemID></EndItemRequest>`)

	body := callTrading(t, srv, "RelistItem",
		`<?xml version="1.0"?><RelistItemRequest><Item><ItemID>376573575653</ItemID><StartPrice>179.99</StartPrice></Item></RelistItemRequest>`)

	var parsed struct {
		Ack    string `xml:"Ack"`
		ItemID string `xml:"ItemID"`
	}
	if err := xml.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("parsing RelistItem response: %v", err)
	}
	if parsed.Ack != "Success" {
		t.Fatalf("got Ack %q, want Success", parsed.Ack)
	}
	if parsed.ItemID == "" || parsed.ItemID == "376573575653" {
		t.Fatalf("got ItemID %q, want a fresh item id", parsed.ItemID)
	}

	// The relisted item is live with the staged price applied.
	getBody := callTrading(t, srv, "GetItem",
		`<?xml version="1.0"?><GetItemRequest><ItemID>`+parsed.ItemID+`</ItemID></GetItemRequest>`)
	if !strings.Contains(getBody, `<CurrentPrice currencyID="USD">179.99</CurrentPrice>`) {
		t.Errorf("relisted item price not applied: %s", getBody)
	}
	if !strings.Contains(getBody, "<ListingStatus>Active</ListingStatus>") {
		t.Errorf("relisted item is not active: %s", getBody)
	}
}

func TestTradingUnknownCall(t *testing.T) {
	srv := newTestServer(t)

	body := callTrading(t, srv, "ReviseItem",
		`<?xml version="1.0"?><ReviseItemRequest><ItemID>376573575653</ItemID></ReviseItemRequest>`)
	if !strings.Contains(body, "<Ack>Failure</Ack>") {
		t.Fatalf("got %s, want Failure ack", body)
	}
}
