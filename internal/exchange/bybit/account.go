package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AccountType selects which Bybit wallet to query.
type AccountType string

const (
	AccountTypeUnified AccountType = "UNIFIED"
	AccountTypeSpot    AccountType = "SPOT"
)

// Balance is one asset's wallet state.
type Balance struct {
	Coin             string
	WalletBalance    float64
	AvailableToTrade float64
}

// AccountInfo is the wallet snapshot GetAccountBalance returns.
type AccountInfo struct {
	AccountType        string
	TotalEquity        string
	TotalWalletBalance string
	Coin               []Balance
}

// GetAccountBalance retrieves wallet balances, optionally restricted to the
// named coins.
func (c *Client) GetAccountBalance(ctx context.Context, accountType AccountType, coins ...string) (*AccountInfo, error) {
	params := map[string]interface{}{
		"accountType": string(accountType),
	}
	if len(coins) > 0 {
		params["coin"] = strings.Join(coins, ",")
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("get account balance: %w", err)
	}
	return parseAccountBalance(result)
}

func parseAccountBalance(response interface{}) (*AccountInfo, error) {
	resultBytes, err := decodeResult(response)
	if err != nil {
		return nil, err
	}

	var walletResult struct {
		List []struct {
			AccountType        string `json:"accountType"`
			TotalEquity        string `json:"totalEquity"`
			TotalWalletBalance string `json:"totalWalletBalance"`
			Coin               []struct {
				Coin             string `json:"coin"`
				WalletBalance    string `json:"walletBalance"`
				AvailableToTrade string `json:"availableToTrade"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &walletResult); err != nil {
		return nil, fmt.Errorf("unmarshal wallet result: %w", err)
	}
	if len(walletResult.List) == 0 {
		return nil, fmt.Errorf("no account data in wallet response")
	}

	account := walletResult.List[0]
	info := &AccountInfo{
		AccountType:        account.AccountType,
		TotalEquity:        account.TotalEquity,
		TotalWalletBalance: account.TotalWalletBalance,
		Coin:               make([]Balance, len(account.Coin)),
	}
	for i, coin := range account.Coin {
		info.Coin[i] = Balance{
			Coin:             coin.Coin,
			WalletBalance:    parseFloat64(coin.WalletBalance),
			AvailableToTrade: parseFloat64(coin.AvailableToTrade),
		}
	}
	return info, nil
}
