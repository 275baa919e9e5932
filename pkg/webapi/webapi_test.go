package webapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/store"
)

var (
	program   = mustAddress("DVxvMr8TyPWpnT4tQc56SCLXAiNr2VC4w22R6i7B1V9U")
	authority = mustAddress("Af2Y56WUFQuTTTYHMCjMozYsDxvTvSM6YQnyv8E6EK3v")
	orgPDA    = mustAddress("39u8T3b2x1862mfbuwLMmPphXgiecvY4T8kL6sD5PBCW")
	vendorPDA = mustAddress("7wX28QQcFuhhbP8Ro2Fg4yhyxFnBBopSTiUe42dau3YE")
	invoice   = mustAddress("BKU7fWtpG7TEDoZAwDrzD6YihoFjy9CQ11XXbfTS9gcc")
	queuePDA  = mustAddress("FfXkr1zxgjc7DsB88wyrPkSXh83dtAzkT6jRpLQzHpUg")
)

func mustAddress(s string) clerk.Address {
	a, err := clerk.ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func key(b byte) clerk.Address {
	var a clerk.Address
	for i := range a {
		a[i] = b
	}
	return a
}

type rescanCounter struct{ n int }

func (r *rescanCounter) Rescan() { r.n++ }

func testSnapshot() clerk.Snapshot {
	return clerk.Snapshot{
		ScanID:    "scan-1",
		Program:   program,
		ScannedAt: time.Unix(1700000000, 0).UTC(),
		Fetched:   6,
		Orgs:      []clerk.Account[clerk.OrgConfig]{{Address: orgPDA, Data: clerk.OrgConfig{Authority: authority, Mint: key(7), PerInvoiceCap: 1_000_000_000, DailyCap: 10_000_000_000, AuditRateBps: 500}}},
		Vendors:   []clerk.Account[clerk.Vendor]{{Address: vendorPDA, Data: clerk.Vendor{Org: orgPDA, Name: "Acme Corp", Wallet: key(9), IsActive: true}}},
		Invoices: []clerk.Account[clerk.Invoice]{
			{Address: invoice, Data: clerk.Invoice{Requester: authority, Vendor: vendorPDA, VendorName: "Acme Corp", Amount: 125_500_000, Status: clerk.StatusAuditPending}},
			{Address: key(0x12), Data: clerk.Invoice{Requester: authority, Vendor: vendorPDA, VendorName: "Acme Corp", Amount: 1_000_000, Status: clerk.StatusPaid}},
		},
		Requests: []clerk.Account[clerk.InvoiceRequest]{{Address: key(0x21), Data: clerk.InvoiceRequest{Requester: authority, ContentRef: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", Status: clerk.RequestPending}}},
		Queues:    []clerk.Account[clerk.PaymentQueue]{{Address: queuePDA, Data: clerk.PaymentQueue{Org: orgPDA, Entries: []clerk.QueueEntry{{Invoice: invoice, Vendor: vendorPDA, Amount: 500}}, Count: 1}}},
		Dropped:   []clerk.Diagnostic{},
	}
}

func TestPublicAPI(t *testing.T) {
	_, pub, _ := newTestRig(t, true)

	var summary clerk.SummaryResponse
	request(t, pub, "/summary", "", &summary)
	if summary.Invoices != 2 || summary.AuditPending != 1 || summary.Symbol != "USDC" {
		t.Fatalf("Summary: unexpected %+v", summary)
	}
	if summary.TotalTokens.String() != "126.5" {
		t.Errorf("Summary: expected 126.5 tokens, got %s", summary.TotalTokens)
	}

	var orgs []clerk.Account[clerk.OrgConfig]
	request(t, pub, "/orgs/"+authority.String(), "", &orgs)
	if len(orgs) != 1 || orgs[0].Address != orgPDA || orgs[0].Data.AuditRatePercent() != 5.0 {
		t.Errorf("OrgsOf: unexpected %+v", orgs)
	}

	var vendors []clerk.Account[clerk.Vendor]
	request(t, pub, "/vendors?org="+orgPDA.String(), "", &vendors)
	if len(vendors) != 1 || vendors[0].Data.Name != "Acme Corp" || !vendors[0].Data.IsActive {
		t.Errorf("Vendors: unexpected %+v", vendors)
	}

	var invoices []clerk.Account[clerk.Invoice]
	request(t, pub, "/invoices?status=Paid", "", &invoices)
	if len(invoices) != 1 || invoices[0].Data.Status != clerk.StatusPaid {
		t.Errorf("Invoices: unexpected %+v", invoices)
	}
	request(t, pub, "/invoices/audit-pending", "", &invoices)
	if len(invoices) != 1 || invoices[0].Address != invoice {
		t.Errorf("AuditPending: unexpected %+v", invoices)
	}

	var inv clerk.Account[clerk.Invoice]
	request(t, pub, "/invoice/"+invoice.String(), "", &inv)
	if inv.Data.Amount != 125_500_000 {
		t.Errorf("GetInvoice: unexpected %+v", inv)
	}

	var requests []clerk.Account[clerk.InvoiceRequest]
	request(t, pub, "/requests/"+authority.String(), "", &requests)
	if len(requests) != 1 {
		t.Errorf("PendingRequests: expected 1, got %d", len(requests))
	}

	var q clerk.Account[clerk.PaymentQueue]
	request(t, pub, "/queue/"+orgPDA.String(), "", &q)
	if q.Address != queuePDA || len(q.Data.Entries) != 1 {
		t.Errorf("Queue: unexpected %+v", q)
	}
}

func TestInvoiceQR(t *testing.T) {
	_, pub, _ := newTestRig(t, true)
	res := httptest.NewRecorder()
	pub.ServeHTTP(res, httptest.NewRequest("GET", "/invoice/"+invoice.String()+"/qr.png", nil))
	if res.Code != 200 || res.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qr.png: %d %s", res.Code, res.Body)
	}
	if !strings.HasPrefix(res.Body.String(), "\x89PNG") {
		t.Errorf("qr.png: not a PNG")
	}
}

func TestErrorStatus(t *testing.T) {
	_, pub, _ := newTestRig(t, true)
	tests := []struct {
		path   string
		status int
		code   clerk.ErrorCode
	}{
		{"/invoice/" + key(0x55).String(), 404, clerk.NotFound},
		{"/invoice/not-base58-0OIl", 400, clerk.BadRequest},
		{"/invoices?status=Lost", 400, clerk.BadRequest},
		{"/queue/" + key(0x55).String(), 404, clerk.NotFound},
	}
	for _, tc := range tests {
		expectError(t, pub, "GET", tc.path, "", tc.status, tc.code)
	}

	// no scan stored yet
	_, empty, _ := newTestRig(t, false)
	expectError(t, empty, "GET", "/summary", "", 503, clerk.NotAvailable)
}

func TestHttpStatusForError(t *testing.T) {
	expect := map[clerk.ErrorCode]int{
		clerk.ValidationFailed: 400,
		clerk.BadRequest:       400,
		clerk.NotFound:         404,
		clerk.FetchFailed:      502,
		clerk.NotAvailable:     503,
		clerk.TruncatedBuffer:  500,
		clerk.UnknownError:     500,
	}
	for code, status := range expect {
		if got := HttpStatusForError(code); got != status {
			t.Errorf("HttpStatusForError(%s): expected %d, got %d", code, status, got)
		}
	}
}

func TestAdminAPI(t *testing.T) {
	admin, _, rescans := newTestRig(t, true)

	var status StatusResponse
	request(t, admin, "/admin/rescan", "{}", &status)
	if status.Status != "scheduled" || rescans.n != 1 {
		t.Errorf("Rescan: %+v after %d rescans", status, rescans.n)
	}

	var scans []clerk.ScanRecord
	request(t, admin, "/scans?limit=5", "", &scans)
	if len(scans) != 1 || scans[0].ScanID != "scan-1" || scans[0].Decoded != 6 {
		t.Errorf("ListScans: unexpected %+v", scans)
	}

	var d clerk.Derivation
	request(t, admin, "/derive/vendor", `{"org":"`+orgPDA.String()+`","vendor_name":"Acme Corp"}`, &d)
	if d.Address != vendorPDA || d.Bump != 254 {
		t.Errorf("Derive vendor: got %s/%d", d.Address, d.Bump)
	}
	request(t, admin, "/derive/payment_queue", `{"org":"`+orgPDA.String()+`"}`, &d)
	if d.Address != queuePDA || d.Bump != 255 {
		t.Errorf("Derive payment_queue: got %s/%d", d.Address, d.Bump)
	}
	expectError(t, admin, "POST", "/derive/vendor", `{"org":"`+orgPDA.String()+`"}`, 400, clerk.BadRequest)
	expectError(t, admin, "POST", "/derive/nonsense", `{}`, 400, clerk.BadRequest)

	var ix InstructionResponse
	request(t, admin, "/instruction/audit_decide", `{"signer":"`+authority.String()+`","org_authority":"`+authority.String()+`","invoice":"`+invoice.String()+`","approve":true}`, &ix)
	if ix.Hex != "14589661f4d2975a01" {
		t.Errorf("audit_decide: got %s", ix.Hex)
	}
	if len(ix.Data) != 9 || ix.Program != program || len(ix.Accounts) == 0 {
		t.Errorf("audit_decide: unexpected %+v", ix)
	}
	expectError(t, admin, "POST", "/instruction/register_vendor", `{"authority":"`+authority.String()+`","vendor_name":"","wallet":"`+key(9).String()+`"}`, 400, clerk.ValidationFailed)
	expectError(t, admin, "POST", "/instruction/self_destruct", `{}`, 400, clerk.BadRequest)

	res := httptest.NewRecorder()
	admin.ServeHTTP(res, httptest.NewRequest("GET", "/metrics", nil))
	if res.Code != 200 {
		t.Errorf("metrics: status %d", res.Code)
	}
}

// Helpers.

func request(t *testing.T, mux *httprouter.Router, path string, body string, out any) *http.Response {
	var reader *strings.Reader
	method := "GET"
	if body != "" {
		method = "POST"
	}
	reader = strings.NewReader(body)
	req := httptest.NewRequest(method, path, reader)
	res := httptest.NewRecorder()
	mux.ServeHTTP(res, req)
	result := res.Result()
	if result.StatusCode != 200 {
		t.Fatalf("%s request failed: %v %v", path, result.StatusCode, res.Body)
	}
	err := json.NewDecoder(res.Body).Decode(out)
	if err != nil {
		t.Fatalf("%s bad json: %v", path, res.Body)
	}
	return result
}

func expectError(t *testing.T, mux *httprouter.Router, method, path, body string, status int, code clerk.ErrorCode) {
	t.Helper()
	res := httptest.NewRecorder()
	mux.ServeHTTP(res, httptest.NewRequest(method, path, strings.NewReader(body)))
	if res.Code != status {
		t.Errorf("%s %s: expected status %d, got %d: %s", method, path, status, res.Code, res.Body)
		return
	}
	var e struct {
		Error struct {
			Code    clerk.ErrorCode `json:"code"`
			Message string          `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		t.Errorf("%s %s: bad error json: %v", method, path, err)
		return
	}
	if e.Error.Code != code {
		t.Errorf("%s %s: expected code %s, got %s", method, path, code, e.Error.Code)
	}
}

func newTestRig(t *testing.T, withSnapshot bool) (adminMux *httprouter.Router, pubMux *httprouter.Router, rescans *rescanCounter) {
	config, err := clerk.LoadConfig()
	if err != nil {
		t.Fatalf("Cannot load default config: %v", err)
	}
	s, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("Cannot create in-memory database: %v", err)
	}
	t.Cleanup(s.Close)
	if withSnapshot {
		if err := s.SaveSnapshot(testSnapshot()); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}
	rescans = &rescanCounter{}
	api := clerk.NewAPI(s, rescans, program, config)

	web, _ := NewWebAPI(config, api)
	adminMux, pubMux = web.createRouters()
	return
}
