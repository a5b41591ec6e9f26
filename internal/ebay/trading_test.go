package ebay_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noakmilo/qventory-backend/internal/ebay"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

func tradingRule() *domain.RelistRule {
	return &domain.RelistRule{
		ID:     "rule-1",
		UserID: "user-1",
		SKU:    "SKU-001",
		Listing: domain.ListingRef{
			Protocol: domain.ProtocolTrading,
			ID:       "376573575653",
		},
	}
}

func tradingAdapter(t *testing.T, srv *httptest.Server, locations ebay.LocationSource) ebay.ListingAdapter {
	t.Helper()
	factory := ebay.NewAdapterFactory(
		&fakeTokens{token: "tok-123"},
		locations,
		ebay.WithTradingURL(srv.URL),
	)
	return factory.ForRule(tradingRule())
}

const getItemResponse = `<?xml version="1.0" encoding="UTF-8"?>
<GetItemResponse xmlns="urn:ebay:apis:eBLBaseComponents">
  <Ack>Success</Ack>
  <Item>
    <ItemID>376573575653</ItemID>
    <SKU>SKU-001</SKU>
    <Title>Dell PowerEdge R740 2U Server</Title>
    <Quantity>5</Quantity>
    <Location>San Juan, PR</Location>
    <SellingStatus>
      <CurrentPrice currencyID="USD">249.99</CurrentPrice>
      <QuantitySold>2</QuantitySold>
      <ListingStatus>Active</ListingStatus>
    </SellingStatus>
  </Item>
</GetItemResponse>`

func TestTradingAdapter_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GetItem", r.Header.Get("X-EBAY-API-CALL-NAME"))
		assert.Equal(t, "tok-123", r.Header.Get("X-EBAY-API-IAF-TOKEN"))
		assert.Equal(t, "0", r.Header.Get("X-EBAY-API-SITEID"))

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "<ItemID>376573575653</ItemID>")

		_, _ = w.Write([]byte(getItemResponse))
	}))
	defer srv.Close()

	adapter := tradingAdapter(t, srv, &fakeLocations{tag: "A4-B2"})
	snap, err := adapter.Fetch(context.Background(), domain.ListingRef{
		Protocol: domain.ProtocolTrading, ID: "376573575653",
	})
	require.NoError(t, err)

	assert.Equal(t, "SKU-001", snap.SKU)
	assert.Equal(t, "Dell PowerEdge R740 2U Server", snap.Title)
	assert.InDelta(t, 249.99, snap.Price, 0.001)
	assert.Equal(t, "USD", snap.Currency)
	assert.Equal(t, 3, snap.Quantity, "available = quantity minus sold")
	assert.Equal(t, "Active", snap.Status)
	// Our own inventory record wins over the item's Location field.
	assert.Equal(t, "A4-B2", snap.LocationTag)
}

func TestTradingAdapter_FetchLocationFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(getItemResponse))
	}))
	defer srv.Close()

	adapter := tradingAdapter(t, srv, &fakeLocations{})
	snap, err := adapter.Fetch(context.Background(), domain.ListingRef{
		Protocol: domain.ProtocolTrading, ID: "376573575653",
	})
	require.NoError(t, err)
	assert.Equal(t, "San Juan, PR", snap.LocationTag)
}

func TestTradingAdapter_Withdraw(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EndItem", r.Header.Get("X-EBAY-API-CALL-NAME"))

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "<ItemID>376573575653</ItemID>")
		assert.Contains(t, string(body), "<EndingReason>NotAvailable</EndingReason>")

		_, _ = w.Write([]byte(`<EndItemResponse><Ack>Success</Ack></EndItemResponse>`))
	}))
	defer srv.Close()

	adapter := tradingAdapter(t, srv, &fakeLocations{})
	err := adapter.Withdraw(context.Background(), domain.ListingRef{
		Protocol: domain.ProtocolTrading, ID: "376573575653",
	})
	require.NoError(t, err)
}

func TestTradingAdapter_WithdrawAlreadyEnded(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<EndItemResponse>
			<Ack>Failure</Ack>
			<Errors>
				<ShortMessage>Auction ended.</ShortMessage>
				<LongMessage>The auction has already been closed.</LongMessage>
				<ErrorCode>1047</ErrorCode>
			</Errors>
		</EndItemResponse>`))
	}))
	defer srv.Close()

	adapter := tradingAdapter(t, srv, &fakeLocations{})
	err := adapter.Withdraw(context.Background(), domain.ListingRef{
		Protocol: domain.ProtocolTrading, ID: "376573575653",
	})
	require.Error(t, err)
	assert.True(t, ebay.IsAlreadyEnded(err))
}

func TestTradingAdapter_PublishFoldsStagedEdits(t *testing.T) {
	t.Parallel()

	var relistBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "RelistItem", r.Header.Get("X-EBAY-API-CALL-NAME"))
		body, _ := io.ReadAll(r.Body)
		relistBody = string(body)
		_, _ = w.Write([]byte(`<RelistItemResponse><Ack>Success</Ack><ItemID>376999999999</ItemID></RelistItemResponse>`))
	}))
	defer srv.Close()

	adapter := tradingAdapter(t, srv, &fakeLocations{tag: "A4-B2"})
	ref := domain.ListingRef{Protocol: domain.ProtocolTrading, ID: "376573575653"}

	// The Trading API has no update call; edits ride on the relist request.
	require.NoError(t, adapter.Update(context.Background(), ref, &domain.ChangeSet{
		Price:     ptr(19.99),
		Quantity:  ptr(2),
		Title:     ptr("Dell PowerEdge R740 - refurbished"),
		Condition: ptr("new"),
	}))

	newID, err := adapter.Publish(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "376999999999", newID)

	assert.Contains(t, relistBody, "<ItemID>376573575653</ItemID>")
	assert.Contains(t, relistBody, "<StartPrice>19.99</StartPrice>")
	assert.Contains(t, relistBody, "<Quantity>2</Quantity>")
	assert.Contains(t, relistBody, "<Title>Dell PowerEdge R740 - refurbished</Title>")
	assert.Contains(t, relistBody, "<ConditionID>1000</ConditionID>")
	assert.Contains(t, relistBody, "<Location>A4-B2</Location>")
}

func TestTradingAdapter_PublishWithoutEdits(t *testing.T) {
	t.Parallel()

	var relistBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		relistBody = string(body)
		_, _ = w.Write([]byte(`<RelistItemResponse><Ack>Success</Ack><ItemID>376999999999</ItemID></RelistItemResponse>`))
	}))
	defer srv.Close()

	adapter := tradingAdapter(t, srv, &fakeLocations{tag: "A4-B2"})
	newID, err := adapter.Publish(context.Background(), domain.ListingRef{
		Protocol: domain.ProtocolTrading, ID: "376573575653",
	})
	require.NoError(t, err)
	assert.Equal(t, "376999999999", newID)

	assert.NotContains(t, relistBody, "<StartPrice>")
	assert.NotContains(t, relistBody, "<Title>")
	assert.Contains(t, relistBody, "<Location>A4-B2</Location>")
}

func TestTradingAdapter_PublishWithoutNewItemID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<RelistItemResponse><Ack>Success</Ack></RelistItemResponse>`))
	}))
	defer srv.Close()

	adapter := tradingAdapter(t, srv, &fakeLocations{})
	_, err := adapter.Publish(context.Background(), domain.ListingRef{
		Protocol: domain.ProtocolTrading, ID: "376573575653",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no new item id")
}
