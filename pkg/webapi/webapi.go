package webapi

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/conductor"
	"github.com/ledgerclerk/ledgerclerk/pkg/instruction"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// WebAPI implements conductor.Service
type WebAPI struct {
	api     clerk.API
	builder instruction.Builder
	config  clerk.Config
}

// interface guard ensures WebAPI implements conductor.Service
var _ conductor.Service = WebAPI{}

func NewWebAPI(config clerk.Config, api clerk.API) (WebAPI, error) {
	return WebAPI{api: api, builder: instruction.NewBuilder(api.Program), config: config}, nil
}

func (t WebAPI) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		logger := log.With().Str("component", "WebAPI").Logger()
		adminMux, pubMux := t.createRouters()

		// Start the admin server
		adminServer := &http.Server{Addr: t.config.WebAPI.AdminBind + ":" + t.config.WebAPI.AdminPort, Handler: adminMux}
		logger.Info().Str("addr", adminServer.Addr).Msg("Admin API listening")
		go func() {
			if err := adminServer.ListenAndServe(); err != http.ErrServerClosed {
				logger.Fatal().Err(err).Msg("HTTP server admin ListenAndServe")
			}
		}()

		// Start the public server
		pubServer := &http.Server{Addr: t.config.WebAPI.PubBind + ":" + t.config.WebAPI.PubPort, Handler: pubMux}
		logger.Info().Str("addr", pubServer.Addr).Msg("Public API listening")
		go func() {
			if err := pubServer.ListenAndServe(); err != http.ErrServerClosed {
				logger.Fatal().Err(err).Msg("HTTP server public ListenAndServe")
			}
		}()

		started <- true
		ctx := <-stop
		adminServer.Shutdown(ctx)
		pubServer.Shutdown(ctx)
		stopped <- true
	}()
	return nil
}

func (t WebAPI) createRouters() (adminMux *httprouter.Router, pubMux *httprouter.Router) {
	adminMux = httprouter.New() // Admin APIs
	pubMux = httprouter.New()   // Public APIs

	// Admin APIs

	// POST /admin/rescan -> { status } scan the program now
	adminMux.POST("/admin/rescan", t.rescan)

	// GET /scans?limit=n -> [ scan, .. ] recent scans, newest first
	adminMux.GET("/scans", t.listScans)

	// GET /metrics -> prometheus metrics
	adminMux.Handler("GET", "/metrics", promhttp.Handler())

	// POST { seeds } /derive/:kind -> { address, bump }
	adminMux.POST("/derive/:kind", t.derive)

	// POST { args } /instruction/:action -> { instruction } encode a program call
	adminMux.POST("/instruction/:action", t.encodeInstruction)

	// GET /actions -> [ name, .. ] actions accepted by /instruction/:action
	adminMux.GET("/actions", t.listActions)

	// Public APIs (read-only views over the latest snapshot)

	pubMux.GET("/summary", t.summary)
	pubMux.GET("/orgs/:authority", t.orgsOf)
	pubMux.GET("/vendors", t.vendors)
	pubMux.GET("/invoices", t.invoices)
	pubMux.GET("/invoices/audit-pending", t.auditPending)
	pubMux.GET("/invoice/:address", t.getInvoice)
	pubMux.GET("/invoice/:address/qr.png", t.getInvoiceQR)
	pubMux.GET("/requests/:requester", t.pendingRequests)
	pubMux.GET("/queue/:org", t.queue)

	return
}

type StatusResponse struct {
	Status string `json:"status"`
}

func (t WebAPI) rescan(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	t.api.Rescan()
	sendResponse(w, StatusResponse{Status: "scheduled"})
}

func (t WebAPI) listScans(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			sendBadRequest(w, "limit invalid, must be a positive integer")
			return
		}
		limit = n
	}
	scans, err := t.api.ListScans(limit)
	if err != nil {
		sendError(w, "ListScans", err)
		return
	}
	sendResponse(w, scans)
}

func (t WebAPI) derive(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var params clerk.DeriveParams
	if !decodeBody(w, r, &params) {
		return
	}
	d, err := t.api.Derive(p.ByName("kind"), params)
	if err != nil {
		sendError(w, "Derive", err)
		return
	}
	sendResponse(w, d)
}

type InstructionResponse struct {
	Action   string              `json:"action"`
	Program  clerk.Address       `json:"program"`
	Accounts []clerk.AccountMeta `json:"accounts"`
	Data     []byte              `json:"data"` // base64
	Hex      string              `json:"hex"`
}

func (t WebAPI) encodeInstruction(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		sendBadRequest(w, "cannot read request body")
		return
	}
	ix, err := t.builder.Encode(p.ByName("action"), body)
	if err != nil {
		sendError(w, "Encode", err)
		return
	}
	sendResponse(w, InstructionResponse{
		Action:   ix.Action,
		Program:  ix.ProgramID,
		Accounts: ix.Accounts,
		Data:     ix.Data,
		Hex:      ix.DataHex(),
	})
}

func (t WebAPI) listActions(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sendResponse(w, instruction.Actions())
}

func (t WebAPI) summary(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	org, err := parseAddress(r.URL.Query().Get("org"), true)
	if err != nil {
		sendError(w, "Summary", err)
		return
	}
	s, err := t.api.Summary(org)
	if err != nil {
		sendError(w, "Summary", err)
		return
	}
	sendResponse(w, s)
}

func (t WebAPI) orgsOf(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	authority, err := parseAddress(p.ByName("authority"), false)
	if err != nil {
		sendError(w, "OrgsOf", err)
		return
	}
	orgs, err := t.api.OrgsOf(authority)
	if err != nil {
		sendError(w, "OrgsOf", err)
		return
	}
	sendResponse(w, orgs)
}

func (t WebAPI) vendors(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	q := r.URL.Query()
	org, err := parseAddress(q.Get("org"), true)
	if err != nil {
		sendError(w, "Vendors", err)
		return
	}
	wallet, err := parseAddress(q.Get("wallet"), true)
	if err != nil {
		sendError(w, "Vendors", err)
		return
	}
	vendors, err := t.api.Vendors(clerk.VendorFilter{Org: org, Wallet: wallet})
	if err != nil {
		sendError(w, "Vendors", err)
		return
	}
	sendResponse(w, vendors)
}

// invoices accepts ?status=AuditPending,Paid or repeated status params.
func (t WebAPI) invoices(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	statuses := []clerk.InvoiceStatus{}
	for _, v := range r.URL.Query()["status"] {
		for _, name := range strings.Split(v, ",") {
			if name == "" {
				continue
			}
			s, err := clerk.ParseInvoiceStatus(name)
			if err != nil {
				sendBadRequest(w, err.Error())
				return
			}
			statuses = append(statuses, s)
		}
	}
	invoices, err := t.api.Invoices(statuses...)
	if err != nil {
		sendError(w, "Invoices", err)
		return
	}
	sendResponse(w, invoices)
}

func (t WebAPI) auditPending(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	invoices, err := t.api.AuditPending()
	if err != nil {
		sendError(w, "AuditPending", err)
		return
	}
	sendResponse(w, invoices)
}

func (t WebAPI) getInvoice(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	addr, err := parseAddress(p.ByName("address"), false)
	if err != nil {
		sendError(w, "GetInvoice", err)
		return
	}
	inv, err := t.api.GetInvoice(addr)
	if err != nil {
		sendError(w, "GetInvoice", err)
		return
	}
	sendResponse(w, inv)
}

// getInvoiceQR renders the invoice's payment link, ?size= in pixels.
func (t WebAPI) getInvoiceQR(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	addr, err := parseAddress(p.ByName("address"), false)
	if err != nil {
		sendError(w, "GetInvoiceQR", err)
		return
	}
	uri, err := t.api.PaymentURI(addr)
	if err != nil {
		sendError(w, "GetInvoiceQR", err)
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := GenerateQRCodePNG(uri, size)
	if err != nil {
		sendError(w, "GenerateQRCodePNG", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

func (t WebAPI) pendingRequests(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	requester, err := parseAddress(p.ByName("requester"), false)
	if err != nil {
		sendError(w, "PendingRequests", err)
		return
	}
	requests, err := t.api.PendingRequests(requester)
	if err != nil {
		sendError(w, "PendingRequests", err)
		return
	}
	sendResponse(w, requests)
}

func (t WebAPI) queue(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	org, err := parseAddress(p.ByName("org"), false)
	if err != nil {
		sendError(w, "Queue", err)
		return
	}
	q, err := t.api.Queue(org)
	if err != nil {
		sendError(w, "Queue", err)
		return
	}
	sendResponse(w, q)
}
