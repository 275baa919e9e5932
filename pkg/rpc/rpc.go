package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

// interface guard ensures SolanaRPC implements clerk.AccountFetcher
var _ clerk.AccountFetcher = SolanaRPC{}

// NewSolanaRPC returns a clerk.AccountFetcher that uses a Solana node's
// JSON-RPC interface.
func NewSolanaRPC(config clerk.Config) (SolanaRPC, error) {
	node, err := config.Node()
	if err != nil {
		return SolanaRPC{}, err
	}
	return NewSolanaRPCFromURL(node.URL, node.Commitment, time.Duration(node.Timeout)*time.Second), nil
}

func NewSolanaRPCFromURL(url string, commitment string, timeout time.Duration) SolanaRPC {
	if commitment == "" {
		commitment = "confirmed"
	}
	return SolanaRPC{
		url:        url,
		commitment: commitment,
		client:     &http.Client{Timeout: timeout},
		id:         new(atomic.Uint64),
	}
}

type SolanaRPC struct {
	url        string
	commitment string
	client     *http.Client
	id         *atomic.Uint64
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	Id      uint64 `json:"id"`
}
type rpcResponse struct {
	Id     uint64           `json:"id"`
	Result *json.RawMessage `json:"result"`
	Error  *rpcError        `json:"error"`
}
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (l SolanaRPC) request(ctx context.Context, method string, params []any, result any) error {
	body := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		Id:      l.id.Add(1), // each request should use a unique ID
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("json-rpc marshal request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("json-rpc request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("json-rpc transport: %w", err)
	}
	// we MUST read all of res.Body and call res.Close,
	// otherwise the underlying connection cannot be re-used.
	defer res.Body.Close()
	res_bytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("json-rpc read response: %v", err)
	}
	if res.StatusCode != 200 {
		return fmt.Errorf("json-rpc status code: %s", res.Status)
	}
	var rpcres rpcResponse
	err = json.Unmarshal(res_bytes, &rpcres)
	if err != nil {
		return fmt.Errorf("json-rpc unmarshal response: %v", err)
	}
	if rpcres.Id != body.Id {
		return fmt.Errorf("json-rpc wrong ID returned: %v vs %v", rpcres.Id, body.Id)
	}
	if rpcres.Error != nil {
		return fmt.Errorf("json-rpc error returned: %d %s", rpcres.Error.Code, rpcres.Error.Message)
	}
	if rpcres.Result == nil {
		return fmt.Errorf("json-rpc missing result")
	}
	err = json.Unmarshal(*rpcres.Result, result)
	if err != nil {
		return fmt.Errorf("json-rpc unmarshal result: %v | %v", err, string(*rpcres.Result))
	}
	return nil
}

// account as returned with base64 encoding: data is ["<b64>", "base64"]
type rpcAccount struct {
	Data     []string `json:"data"`
	Owner    string   `json:"owner"`
	Lamports uint64   `json:"lamports"`
}

type rpcKeyedAccount struct {
	Pubkey  string     `json:"pubkey"`
	Account rpcAccount `json:"account"`
}

func (a rpcAccount) raw(address clerk.Address) (clerk.RawAccount, error) {
	if len(a.Data) != 2 || a.Data[1] != "base64" {
		return clerk.RawAccount{}, fmt.Errorf("account %s: unexpected data encoding %v", address, a.Data)
	}
	data, err := base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return clerk.RawAccount{}, fmt.Errorf("account %s: bad base64 data: %v", address, err)
	}
	owner, err := clerk.ParseAddress(a.Owner)
	if err != nil {
		return clerk.RawAccount{}, fmt.Errorf("account %s: bad owner %q: %v", address, a.Owner, err)
	}
	return clerk.RawAccount{Address: address, Owner: owner, Lamports: a.Lamports, Data: data}, nil
}

func (l SolanaRPC) config() map[string]any {
	return map[string]any{"encoding": "base64", "commitment": l.commitment}
}

// ProgramAccounts fetches every account owned by program. Any malformed
// entry fails the whole fetch: the node returned something we cannot
// trust as a complete listing.
func (l SolanaRPC) ProgramAccounts(ctx context.Context, program clerk.Address) ([]clerk.RawAccount, error) {
	var res []rpcKeyedAccount
	err := l.request(ctx, "getProgramAccounts", []any{program.String(), l.config()}, &res)
	if err != nil {
		return nil, err
	}
	accounts := make([]clerk.RawAccount, 0, len(res))
	for _, r := range res {
		address, err := clerk.ParseAddress(r.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("getProgramAccounts: bad pubkey %q: %v", r.Pubkey, err)
		}
		raw, err := r.Account.raw(address)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, raw)
	}
	return accounts, nil
}

// AccountInfo fetches one account (NotFound if it does not exist).
func (l SolanaRPC) AccountInfo(ctx context.Context, address clerk.Address) (clerk.RawAccount, error) {
	var res struct {
		Value *rpcAccount `json:"value"`
	}
	err := l.request(ctx, "getAccountInfo", []any{address.String(), l.config()}, &res)
	if err != nil {
		return clerk.RawAccount{}, err
	}
	if res.Value == nil {
		return clerk.RawAccount{}, clerk.NewErr(clerk.NotFound, "account not found: %s", address)
	}
	return res.Value.raw(address)
}

// Slot returns the node's current slot, used as a liveness check.
func (l SolanaRPC) Slot(ctx context.Context) (slot uint64, err error) {
	err = l.request(ctx, "getSlot", []any{map[string]any{"commitment": l.commitment}}, &slot)
	return
}
