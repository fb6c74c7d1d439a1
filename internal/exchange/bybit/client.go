// Package bybit is a thin typed wrapper over the Bybit v5 REST API,
// narrowed to the spot operations the trading pipeline needs: klines,
// ticker price, wallet balances, market orders, order status, and
// instrument lot-size constraints.
package bybit

import (
	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Client wraps the underlying HTTP client together with a cached
// instrument-info manager.
type Client struct {
	httpClient  *bybit_api.Client
	testnet     bool
	instruments *InstrumentManager
}

// Config holds the connection settings for a Client.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// NewClient builds a Client against mainnet or testnet.
func NewClient(config Config) *Client {
	baseURL := bybit_api.MAINNET
	if config.Testnet {
		baseURL = bybit_api.TESTNET
	}

	c := &Client{
		httpClient: bybit_api.NewBybitHttpClient(
			config.APIKey,
			config.APISecret,
			bybit_api.WithBaseURL(baseURL),
		),
		testnet: config.Testnet,
	}
	c.instruments = NewInstrumentManager(c)
	return c
}

// IsTestnet reports whether the client targets the testnet environment.
func (c *Client) IsTestnet() bool { return c.testnet }

// GetInstrumentManager returns the client's cached instrument-info manager.
func (c *Client) GetInstrumentManager() *InstrumentManager { return c.instruments }
