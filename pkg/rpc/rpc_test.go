package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/solana"
)

var program = solana.MustParsePublicKey("DVxvMr8TyPWpnT4tQc56SCLXAiNr2VC4w22R6i7B1V9U")

// fakeNode answers JSON-RPC calls with handler(method, params).
func fakeNode(t *testing.T, handler func(method string, params []json.RawMessage) (any, any)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			Id     uint64            `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("fake node: bad request: %v", err)
			w.WriteHeader(400)
			return
		}
		result, rpcErr := handler(req.Method, req.Params)
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.Id, "result": result, "error": rpcErr})
	}))
}

func TestProgramAccounts(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	addr := solana.MustParsePublicKey("39u8T3b2x1862mfbuwLMmPphXgiecvY4T8kL6sD5PBCW")
	srv := fakeNode(t, func(method string, params []json.RawMessage) (any, any) {
		if method != "getProgramAccounts" {
			t.Errorf("unexpected method %s", method)
		}
		var p string
		json.Unmarshal(params[0], &p)
		if p != program.String() {
			t.Errorf("getProgramAccounts: wrong program %s", p)
		}
		var cfg map[string]string
		json.Unmarshal(params[1], &cfg)
		if cfg["encoding"] != "base64" || cfg["commitment"] != "finalized" {
			t.Errorf("getProgramAccounts: wrong config %v", cfg)
		}
		return []any{map[string]any{
			"pubkey": addr.String(),
			"account": map[string]any{
				"data":     []string{base64.StdEncoding.EncodeToString(data), "base64"},
				"owner":    program.String(),
				"lamports": 1_000_000,
			},
		}}, nil
	})
	defer srv.Close()

	l := NewSolanaRPCFromURL(srv.URL, "finalized", time.Second)
	accounts, err := l.ProgramAccounts(context.Background(), program)
	if err != nil {
		t.Fatalf("ProgramAccounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("ProgramAccounts: expected 1 account, got %d", len(accounts))
	}
	a := accounts[0]
	if a.Address != addr || a.Owner != program || a.Lamports != 1_000_000 || string(a.Data) != string(data) {
		t.Errorf("ProgramAccounts: wrong account: %+v", a)
	}
}

func TestAccountInfoMissing(t *testing.T) {
	srv := fakeNode(t, func(method string, params []json.RawMessage) (any, any) {
		return map[string]any{"context": map[string]any{"slot": 5}, "value": nil}, nil
	})
	defer srv.Close()
	l := NewSolanaRPCFromURL(srv.URL, "", time.Second)
	_, err := l.AccountInfo(context.Background(), program)
	if !clerk.IsNotFoundError(err) {
		t.Errorf("AccountInfo: expected NotFound, got %v", err)
	}
}

func TestRPCError(t *testing.T) {
	srv := fakeNode(t, func(method string, params []json.RawMessage) (any, any) {
		return nil, map[string]any{"code": -32600, "message": "Invalid request"}
	})
	defer srv.Close()
	l := NewSolanaRPCFromURL(srv.URL, "", time.Second)
	if _, err := l.ProgramAccounts(context.Background(), program); err == nil {
		t.Errorf("ProgramAccounts: expected an error from a json-rpc error response")
	}
}

func TestBadEncoding(t *testing.T) {
	srv := fakeNode(t, func(method string, params []json.RawMessage) (any, any) {
		return []any{map[string]any{
			"pubkey":  program.String(),
			"account": map[string]any{"data": []string{"AQID", "base58"}, "owner": program.String()},
		}}, nil
	})
	defer srv.Close()
	l := NewSolanaRPCFromURL(srv.URL, "", time.Second)
	if _, err := l.ProgramAccounts(context.Background(), program); err == nil {
		t.Errorf("ProgramAccounts: expected an error for non-base64 data")
	}
}

func TestRequestCancelled(t *testing.T) {
	srv := fakeNode(t, func(method string, params []json.RawMessage) (any, any) {
		return []any{}, nil
	})
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewSolanaRPCFromURL(srv.URL, "", time.Second)
	if _, err := l.ProgramAccounts(ctx, program); err == nil {
		t.Errorf("ProgramAccounts: expected an error with a cancelled context")
	}
}

func TestMockFetcher(t *testing.T) {
	a := clerk.RawAccount{Address: program, Data: []byte{1}}
	m := NewMockFetcher(a)
	got, err := m.ProgramAccounts(context.Background(), program)
	if err != nil || len(got) != 1 || m.Calls() != 1 {
		t.Errorf("MockFetcher: %v %v %d", got, err, m.Calls())
	}
	if _, err := m.AccountInfo(context.Background(), program); err != nil {
		t.Errorf("MockFetcher.AccountInfo: %v", err)
	}
	m.SetError(context.DeadlineExceeded)
	if _, err := m.ProgramAccounts(context.Background(), program); err == nil {
		t.Errorf("MockFetcher: injected error not returned")
	}
}
