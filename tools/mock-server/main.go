// Package main implements a mock eBay API server for local development.
// It simulates the OAuth token endpoint, the Sell inventory offer API, and
// the legacy XML Trading API with in-memory listing state, so full relist
// cycles can run without real eBay credentials.
package main

import (
	"encoding/json"
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	state := seedState()
	logger.Info("seeded state", "offers", len(state.offers), "items", len(state.items))

	mux := newMux(logger, state)

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock eBay server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newMux(logger *slog.Logger, state *mockState) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /identity/v1/oauth2/token", tokenHandler(logger))
	mux.HandleFunc("GET /sell/inventory/v1/offer/{offerId}", getOfferHandler(logger, state))
	mux.HandleFunc("PUT /sell/inventory/v1/offer/{offerId}", updateOfferHandler(logger, state))
	mux.HandleFunc("POST /sell/inventory/v1/offer/{offerId}/withdraw", withdrawOfferHandler(logger, state))
	mux.HandleFunc("POST /sell/inventory/v1/offer/{offerId}/publish", publishOfferHandler(logger, state))
	mux.HandleFunc("GET /sell/inventory/v1/inventory_item/{sku}", getInventoryItemHandler(logger, state))
	mux.HandleFunc("PUT /sell/inventory/v1/inventory_item/{sku}", updateInventoryItemHandler(logger, state))
	mux.HandleFunc("POST /ws/api.dll", tradingHandler(logger, state))
	return mux
}

// mockState holds the in-memory listings behind both protocol families.
type mockState struct {
	mu     sync.Mutex
	offers map[string]*offerState
	items  map[string]*itemState
	nextID int64
}

type offerState struct {
	SKU       string
	Title     string
	Condition string
	Price     string
	Currency  string
	Quantity  int
	Published bool
	ListingID string
}

type itemState struct {
	SKU      string
	Title    string
	Location string
	Price    string
	Quantity int
	Sold     int
	Active   bool
}

func seedState() *mockState {
	return &mockState{
		offers: map[string]*offerState{
			"offer-1": {
				SKU:       "SKU-001",
				Title:     "Dell PowerEdge R740 2U Server",
				Condition: "USED_EXCELLENT",
				Price:     "249.99",
				Currency:  "USD",
				Quantity:  3,
				Published: true,
				ListingID: "376500000001",
			},
		},
		items: map[string]*itemState{
			"376573575653": {
				SKU:      "SKU-002",
				Title:    "HP ProLiant DL380 Gen10",
				Location: "San Juan, PR",
				Price:    "189.99",
				Quantity: 5,
				Sold:     2,
				Active:   true,
			},
		},
		nextID: 376900000000,
	}
}

func (s *mockState) newListingID() string {
	s.nextID++
	return strconv.FormatInt(s.nextID, 10)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"call", r.Header.Get("X-EBAY-API-CALL-NAME"))
		next.ServeHTTP(w, r)
	})
}

func tokenHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Validate Basic Auth header is present (don't verify creds).
		if _, _, ok := r.BasicAuth(); !ok {
			logger.Warn("token request missing Basic Auth header")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":             "invalid_client",
				"error_description": "client authentication failed",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "mock-token-v1-" + strconv.FormatInt(int64(os.Getpid()), 16),
			"expires_in":   7200,
			"token_type":   "User Access Token",
		})
		logger.Info("issued mock token")
	}
}

// --- Sell inventory API ---

type offerErrorBody struct {
	Errors []offerError `json:"errors"`
}

type offerError struct {
	ErrorID int    `json:"errorId"`
	Message string `json:"message"`
}

func offerJSON(id string, o *offerState) map[string]any {
	status := "UNPUBLISHED"
	if o.Published {
		status = "PUBLISHED"
	}
	return map[string]any{
		"offerId":           id,
		"sku":               o.SKU,
		"availableQuantity": o.Quantity,
		"status":            status,
		"pricingSummary": map[string]any{
			"price": map[string]any{"value": o.Price, "currency": o.Currency},
		},
		"listing": map[string]any{"listingId": o.ListingID},
	}
}

func getOfferHandler(logger *slog.Logger, state *mockState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()

		id := r.PathValue("offerId")
		offer, ok := state.offers[id]
		if !ok {
			writeOfferError(w, http.StatusNotFound, 25710, "This offer does not exist.")
			return
		}
		writeJSON(w, http.StatusOK, offerJSON(id, offer))
		logger.Info("get offer", "offer", id)
	}
}

func updateOfferHandler(logger *slog.Logger, state *mockState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()

		id := r.PathValue("offerId")
		offer, ok := state.offers[id]
		if !ok {
			writeOfferError(w, http.StatusNotFound, 25710, "This offer does not exist.")
			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeOfferError(w, http.StatusBadRequest, 2004, "Invalid request body.")
			return
		}
		if q, ok := body["availableQuantity"].(float64); ok {
			offer.Quantity = int(q)
		}
		if pricing, ok := body["pricingSummary"].(map[string]any); ok {
			if price, ok := pricing["price"].(map[string]any); ok {
				if v, ok := price["value"].(string); ok {
					offer.Price = v
				}
			}
		}

		w.WriteHeader(http.StatusNoContent)
		logger.Info("updated offer", "offer", id, "price", offer.Price, "quantity", offer.Quantity)
	}
}

func withdrawOfferHandler(logger *slog.Logger, state *mockState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()

		id := r.PathValue("offerId")
		offer, ok := state.offers[id]
		if !ok {
			writeOfferError(w, http.StatusNotFound, 25710, "This offer does not exist.")
			return
		}
		if !offer.Published {
			// Same signal the real API sends on a second withdraw.
			writeOfferError(w, http.StatusBadRequest, 25713, "This offer is not currently published.")
			return
		}

		offer.Published = false
		w.WriteHeader(http.StatusNoContent)
		logger.Info("withdrew offer", "offer", id)
	}
}

func publishOfferHandler(logger *slog.Logger, state *mockState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()

		id := r.PathValue("offerId")
		offer, ok := state.offers[id]
		if !ok {
			writeOfferError(w, http.StatusNotFound, 25710, "This offer does not exist.")
			return
		}

		offer.Published = true
		offer.ListingID = state.newListingID()
		writeJSON(w, http.StatusOK, map[string]string{"listingId": offer.ListingID})
		logger.Info("published offer", "offer", id, "listing", offer.ListingID)
	}
}

func getInventoryItemHandler(logger *slog.Logger, state *mockState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()

		sku := r.PathValue("sku")
		offer := findOfferBySKU(state, sku)
		if offer == nil {
			writeOfferError(w, http.StatusNotFound, 25702, "This inventory item does not exist.")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"sku":       sku,
			"product":   map[string]any{"title": offer.Title},
			"condition": offer.Condition,
		})
		logger.Info("get inventory item", "sku", sku)
	}
}

func updateInventoryItemHandler(logger *slog.Logger, state *mockState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()

		sku := r.PathValue("sku")
		offer := findOfferBySKU(state, sku)
		if offer == nil {
			writeOfferError(w, http.StatusNotFound, 25702, "This inventory item does not exist.")
			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeOfferError(w, http.StatusBadRequest, 2004, "Invalid request body.")
			return
		}
		if product, ok := body["product"].(map[string]any); ok {
			if title, ok := product["title"].(string); ok {
				offer.Title = title
			}
		}
		if cond, ok := body["condition"].(string); ok {
			offer.Condition = cond
		}

		w.WriteHeader(http.StatusNoContent)
		logger.Info("updated inventory item", "sku", sku)
	}
}

func findOfferBySKU(state *mockState, sku string) *offerState {
	for _, o := range state.offers {
		if o.SKU == sku {
			return o
		}
	}
	return nil
}

// --- Trading API ---

type tradingRequest struct {
	ItemID string `xml:"ItemID"`
	Item   struct {
		ItemID     string `xml:"ItemID"`
		StartPrice string `xml:"StartPrice"`
		Quantity   *int   `xml:"Quantity"`
		Title      string `xml:"Title"`
		Location   string `xml:"Location"`
	} `xml:"Item"`
}

func tradingHandler(logger *slog.Logger, state *mockState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "reading request", http.StatusBadRequest)
			return
		}

		var req tradingRequest
		if err := xml.Unmarshal(body, &req); err != nil {
			http.Error(w, "parsing request", http.StatusBadRequest)
			return
		}
		itemID := req.ItemID
		if itemID == "" {
			itemID = req.Item.ItemID
		}

		call := r.Header.Get("X-EBAY-API-CALL-NAME")
		switch call {
		case "GetItem":
			serveGetItem(w, logger, state, itemID)
		case "EndItem":
			serveEndItem(w, logger, state, itemID)
		case "RelistItem":
			serveRelistItem(w, logger, state, itemID, &req)
		default:
			writeTradingFailure(w, 2, fmt.Sprintf("Unsupported API call %q.", call))
		}
	}
}

func serveGetItem(w http.ResponseWriter, logger *slog.Logger, state *mockState, itemID string) {
	item, ok := state.items[itemID]
	if !ok {
		writeTradingFailure(w, 17, "The item cannot be accessed.")
		return
	}

	status := "Completed"
	if item.Active {
		status = "Active"
	}
	writeXML(w, fmt.Sprintf(`<GetItemResponse xmlns="urn:ebay:apis:eBLBaseComponents">
  <Ack>Success</Ack>
  <Item>
    <ItemID>%s</ItemID>
    <SKU>%s</SKU>
    <Title>%s</Title>
    <Quantity>%d</Quantity>
    <Location>%s</Location>
    <SellingStatus>
      <CurrentPrice currencyID="USD">%s</CurrentPrice>
      <QuantitySold>%d</QuantitySold>
      <ListingStatus>%s</ListingStatus>
    </SellingStatus>
  </Item>
</GetItemResponse>`, itemID, item.SKU, item.Title, item.Quantity, item.Location, item.Price, item.Sold, status))
	logger.Info("get item", "item", itemID, "status", status)
}

func serveEndItem(w http.ResponseWriter, logger *slog.Logger, state *mockState, itemID string) {
	item, ok := state.items[itemID]
	if !ok {
		writeTradingFailure(w, 17, "The item cannot be accessed.")
		return
	}
	if !item.Active {
		// Same code the real API sends on a second EndItem.
		writeTradingFailure(w, 1047, "The auction has already been closed.")
		return
	}

	item.Active = false
	writeXML(w, `<EndItemResponse xmlns="urn:ebay:apis:eBLBaseComponents"><Ack>Success</Ack></EndItemResponse>`)
	logger.Info("ended item", "item", itemID)
}

func serveRelistItem(w http.ResponseWriter, logger *slog.Logger, state *mockState, itemID string, req *tradingRequest) {
	item, ok := state.items[itemID]
	if !ok {
		writeTradingFailure(w, 17, "The item cannot be accessed.")
		return
	}

	newID := state.newListingID()
	relisted := *item
	relisted.Active = true
	relisted.Sold = 0
	if req.Item.StartPrice != "" {
		relisted.Price = req.Item.StartPrice
	}
	if req.Item.Quantity != nil {
		relisted.Quantity = *req.Item.Quantity
	}
	if req.Item.Title != "" {
		relisted.Title = req.Item.Title
	}
	if req.Item.Location != "" {
		relisted.Location = req.Item.Location
	}
	state.items[newID] = &relisted

	writeXML(w, fmt.Sprintf(`<RelistItemResponse xmlns="urn:ebay:apis:eBLBaseComponents"><Ack>Success</Ack><ItemID>%s</ItemID></RelistItemResponse>`, newID))
	logger.Info("relisted item", "old", itemID, "new", newID)
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func writeOfferError(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, offerErrorBody{Errors: []offerError{{ErrorID: code, Message: msg}}})
}

func writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/xml")
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	fmt.Fprint(w, xml.Header+body)
}

func writeTradingFailure(w http.ResponseWriter, code int, msg string) {
	writeXML(w, fmt.Sprintf(`<Response xmlns="urn:ebay:apis:eBLBaseComponents">
  <Ack>Failure</Ack>
  <Errors>
    <ShortMessage>%s</ShortMessage>
    <LongMessage>%s</LongMessage>
    <ErrorCode>%d</ErrorCode>
  </Errors>
</Response>`, msg, msg, code))
}
