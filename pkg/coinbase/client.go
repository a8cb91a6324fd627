// Package coinbase is a thin transport for the public Coinbase price APIs:
// the REST spot price endpoint and the exchange websocket feed.
package coinbase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/segmentio/encoding/json"
)

// Default endpoints.
const (
	DefaultAPIURL = "https://api.coinbase.com"
	DefaultWSURL  = "wss://ws-feed.exchange.coinbase.com"
)

// SpotPriceEndpoint is formatted with the product pair, e.g. "SOL-USDC".
const SpotPriceEndpoint = "v2/prices/%s/spot"

// TickerChannel is the websocket channel carrying last-trade prices.
const TickerChannel = "ticker"

// Client issues raw requests; decoding is left to the caller.
type Client struct {
	apiURL     string
	wsURL      string
	HTTPClient HTTPClient
	WSClient   WSClient
}

// NewDefaultClient creates a client for the production endpoints.
func NewDefaultClient() *Client {
	return &Client{
		apiURL:     DefaultAPIURL,
		wsURL:      DefaultWSURL,
		HTTPClient: NewHTTPClient(10 * time.Second),
		WSClient:   NewCoderClient(),
	}
}

// NewClient creates a client for custom endpoints and transports.
func NewClient(apiURL, wsURL string, httpClient HTTPClient, wsClient WSClient) *Client {
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		wsURL:      wsURL,
		HTTPClient: httpClient,
		WSClient:   wsClient,
	}
}

// ProductID joins a pair the way Coinbase names products.
func ProductID(base, quote string) string {
	return strings.ToUpper(base) + "-" + strings.ToUpper(quote)
}

// SpotPrice fetches the raw spot price body for base quoted in quote.
func (c *Client) SpotPrice(ctx context.Context, base, quote string) ([]byte, error) {
	endpoint := fmt.Sprintf(
		"%s/"+SpotPriceEndpoint, c.apiURL, url.PathEscape(ProductID(base, quote)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spot price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read spot price body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"unexpected status code %d for %s: %s",
			resp.StatusCode, ProductID(base, quote), strings.TrimSpace(string(body)),
		)
	}
	return body, nil
}

type subscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// OpenTicker dials the websocket feed and subscribes to the ticker channel
// for the given products. The caller reads messages and must Close the
// connection.
func (c *Client) OpenTicker(ctx context.Context, productIDs ...string) (WSConnection, error) {
	conn, _, err := c.WSClient.Dial(ctx, c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	msg, err := json.Marshal(subscribeRequest{
		Type:       "subscribe",
		ProductIDs: productIDs,
		Channels:   []string{TickerChannel},
	})
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "encode subscribe")
		return nil, err
	}

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return conn, nil
}
