package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/codec"
	"github.com/ledgerclerk/ledgerclerk/pkg/instruction"
	"github.com/ledgerclerk/ledgerclerk/pkg/rpc"
)

/*
	Offline tools work from config alone (derive, encode, inspect <hex>).
	Scan and inspect <address> call the configured RPC node, and rescan
	calls the admin REST API of a running server.
*/

type SubCommandArgs struct {
	RemoteAdminServer string
}

func printJSON(v any) error {
	o, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(o))
	return nil
}

type ScanReport struct {
	ScanID      string             `json:"scan_id"`
	Fetched     int                `json:"fetched"`
	Decoded     int                `json:"decoded"`
	Summary     clerk.Summary      `json:"summary"`
	Diagnostics []clerk.Diagnostic `json:"diagnostics"`
}

// Scan runs one scan against the configured node and prints the totals.
func Scan(conf clerk.Config) error {
	program, err := conf.Program()
	if err != nil {
		return err
	}
	fetcher, err := rpc.NewSolanaRPC(conf)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout(conf))
	defer cancel()
	snap, err := newScanner(conf, fetcher).Scan(ctx, program)
	if err != nil {
		return err
	}
	return printJSON(ScanReport{
		ScanID:      snap.ScanID,
		Fetched:     snap.Fetched,
		Decoded:     snap.Decoded(),
		Summary:     clerk.Summarize(snap, clerk.Address{}),
		Diagnostics: snap.Dropped,
	})
}

// Derive prints the address and bump of one account kind.
func Derive(conf clerk.Config, kind string, p clerk.DeriveParams) error {
	program, err := conf.Program()
	if err != nil {
		return err
	}
	d, err := clerk.DeriveKind(program, kind, p)
	if err != nil {
		return err
	}
	return printJSON(d)
}

// Encode prints the instruction for action built from JSON args.
func Encode(conf clerk.Config, action string, args string) error {
	program, err := conf.Program()
	if err != nil {
		return err
	}
	ix, err := instruction.NewBuilder(program).Encode(action, []byte(args))
	if err != nil {
		return err
	}
	return printJSON(struct {
		clerk.Instruction
		Hex string `json:"hex"`
	}{ix, ix.DataHex()})
}

type InspectReport struct {
	Address  string             `json:"address,omitempty"`
	Kind     clerk.Kind         `json:"kind"`
	Size     int                `json:"size"`
	Consumed int                `json:"consumed"`
	Fields   []codec.FieldValue `json:"fields"`
}

// Inspect walks one account blob field by field. target is either an
// account address to fetch or the hex encoded blob itself.
func Inspect(conf clerk.Config, target string) error {
	report := InspectReport{}
	var blob []byte
	if addr, err := clerk.ParseAddress(target); err == nil {
		fetcher, err := rpc.NewSolanaRPC(conf)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout(conf))
		defer cancel()
		raw, err := fetcher.AccountInfo(ctx, addr)
		if err != nil {
			return err
		}
		report.Address = addr.String()
		blob = raw.Data
	} else {
		blob, err = hex.DecodeString(strings.TrimPrefix(target, "0x"))
		if err != nil {
			return clerk.NewErr(clerk.BadRequest, "%q is neither an address nor hex", target)
		}
	}
	kind, fields, consumed, err := codec.Default.Walk(blob)
	if err != nil {
		return err
	}
	report.Kind, report.Size, report.Consumed, report.Fields = kind, len(blob), consumed, fields
	return printJSON(report)
}

// Rescan asks a running server to scan now.
func Rescan(c clerk.Config, s SubCommandArgs) error {
	url, err := adminAPIURL(c, s, "/admin/rescan")
	if err != nil {
		return err
	}
	fmt.Println("Calling", url)
	return postURL(url, struct{}{})
}

// work out the remote admin URL from args or config and return
// a complete path with our best guess
func adminAPIURL(c clerk.Config, s SubCommandArgs, path string) (string, error) {
	base := ""
	if s.RemoteAdminServer != "" {
		base = s.RemoteAdminServer
	} else {
		host := c.WebAPI.AdminBind
		if host == "" {
			host = "localhost"
		}
		base = fmt.Sprintf("http://%s:%s/", host, c.WebAPI.AdminPort)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	p, err := url.Parse(path)
	if err != nil {
		return "", err
	}

	return u.ResolveReference(p).String(), nil
}

// post a command to a remote admin API
func postURL(url string, body interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to serialize request body: %v", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status code: %d", resp.StatusCode)
	}

	return nil
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
