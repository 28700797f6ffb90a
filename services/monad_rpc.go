// services/monad_rpc.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"monad-feedback-system/utils"
	"monad-feedback-system/workflow"
)

// receiptStatusSuccess is the EVM receipt status sentinel for successful
// execution; "0x0" means the transaction was mined but reverted.
const receiptStatusSuccess = "0x1"

// RPCClient talks JSON-RPC 2.0 to a Monad node. It only ever issues two
// read-only calls: eth_getBalance and eth_getTransactionReceipt.
type RPCClient struct {
	URL        string
	HTTPClient *http.Client
}

func NewRPCClient(url string) *RPCClient {
	return &RPCClient{
		URL:        url,
		HTTPClient: utils.RPCHTTPClient,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call RPC node: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("RPC request failed: status %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode RPC response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("RPC error: %s", rpcResp.Error.Message)
	}

	return rpcResp.Result, nil
}

// GetBalance returns the address's native-token balance at the latest block,
// as the hex wei string the node reports.
func (c *RPCClient) GetBalance(ctx context.Context, address string) (string, error) {
	result, err := c.call(ctx, "eth_getBalance", address, "latest")
	if err != nil {
		return "", err
	}

	var balanceHex string
	if err := json.Unmarshal(result, &balanceHex); err != nil {
		return "", fmt.Errorf("failed to decode balance: %w", err)
	}
	return balanceHex, nil
}

// TransactionReceipt carries the receipt fields we decode plus the raw
// receipt object for pass-through to clients.
type TransactionReceipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	BlockNumber     string `json:"blockNumber"`
	GasUsed         string `json:"gasUsed"`

	Raw json.RawMessage `json:"-"`
}

// GetTransactionReceipt looks up the receipt for a hash. A nil receipt with
// a nil error means the transaction is not confirmed yet.
func (c *RPCClient) GetTransactionReceipt(ctx context.Context, txHash string) (*TransactionReceipt, error) {
	result, err := c.call(ctx, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}

	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}

	var receipt TransactionReceipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt: %w", err)
	}
	receipt.Raw = result
	return &receipt, nil
}

// ConfirmationResult is the point-in-time answer for /check-transaction.
type ConfirmationResult struct {
	Confirmed   bool
	Success     bool
	BlockNumber int64
	GasUsed     int64
	Status      string
	Receipt     json.RawMessage
}

// CheckConfirmation decodes a receipt into the confirmed/success shape plus
// block and gas metadata.
func (c *RPCClient) CheckConfirmation(ctx context.Context, txHash string) (*ConfirmationResult, error) {
	receipt, err := c.GetTransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return &ConfirmationResult{Confirmed: false}, nil
	}

	blockNumber, err := utils.ParseHexInt64(receipt.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("bad blockNumber in receipt: %w", err)
	}
	gasUsed, err := utils.ParseHexInt64(receipt.GasUsed)
	if err != nil {
		return nil, fmt.Errorf("bad gasUsed in receipt: %w", err)
	}

	return &ConfirmationResult{
		Confirmed:   true,
		Success:     receipt.Status == receiptStatusSuccess,
		BlockNumber: blockNumber,
		GasUsed:     gasUsed,
		Status:      receipt.Status,
		Receipt:     receipt.Raw,
	}, nil
}

// Check implements workflow.Checker for the confirmation poll loop.
func (c *RPCClient) Check(ctx context.Context, txHash string) (*workflow.Confirmation, error) {
	result, err := c.CheckConfirmation(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if !result.Confirmed {
		return nil, nil
	}
	return &workflow.Confirmation{
		Success:     result.Success,
		BlockNumber: result.BlockNumber,
		GasUsed:     result.GasUsed,
	}, nil
}
