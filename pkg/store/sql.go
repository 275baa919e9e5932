package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

var SETUP_SQL string = `
CREATE TABLE IF NOT EXISTS scan (
	scan_id TEXT NOT NULL PRIMARY KEY,
	program TEXT NOT NULL,
	scanned_at BIGINT NOT NULL,
	fetched INTEGER NOT NULL,
	decoded INTEGER NOT NULL,
	dropped INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS scan_time_i ON scan (scanned_at);

CREATE TABLE IF NOT EXISTS account (
	scan_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	address TEXT NOT NULL,
	kind TEXT NOT NULL,
	data TEXT NOT NULL,
	PRIMARY KEY (scan_id, position)
);
CREATE INDEX IF NOT EXISTS account_address_i ON account (address);

CREATE TABLE IF NOT EXISTS diagnostic (
	scan_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	address TEXT NOT NULL,
	code TEXT NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (scan_id, position)
);
`

// sqlStore implements clerk.Store over database/sql. Only the latest
// snapshot's accounts are kept; the scan table keeps the history.
type sqlStore struct {
	db     *sql.DB
	rebind func(query string) string
	dbErr  func(err error, where string) error
}

// Defer this until shutdown
func (s sqlStore) Close() {
	s.db.Close()
}

func (s sqlStore) SaveSnapshot(snap clerk.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return s.dbErr(err, "SaveSnapshot: begin")
	}
	defer tx.Rollback()

	// the previous snapshot is replaced, never merged
	if _, err = tx.Exec("DELETE FROM account"); err != nil {
		return s.dbErr(err, "SaveSnapshot: clearing accounts")
	}
	if _, err = tx.Exec("DELETE FROM diagnostic"); err != nil {
		return s.dbErr(err, "SaveSnapshot: clearing diagnostics")
	}
	_, err = tx.Exec(s.rebind("INSERT INTO scan (scan_id, program, scanned_at, fetched, decoded, dropped) VALUES (?, ?, ?, ?, ?, ?)"),
		snap.ScanID, snap.Program.String(), snap.ScannedAt.UnixNano(), snap.Fetched, snap.Decoded(), len(snap.Dropped))
	if err != nil {
		return s.dbErr(err, "SaveSnapshot: insert scan")
	}

	stmt, err := tx.Prepare(s.rebind("INSERT INTO account (scan_id, position, address, kind, data) VALUES (?, ?, ?, ?, ?)"))
	if err != nil {
		return s.dbErr(err, "SaveSnapshot: tx.Prepare insert account")
	}
	defer stmt.Close()
	pos := 0
	insert := func(kind clerk.Kind, addr clerk.Address, data any) error {
		j, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("SaveSnapshot: json.Marshal %s %s: %v", kind, addr, err)
		}
		if _, err = stmt.Exec(snap.ScanID, pos, addr.String(), string(kind), string(j)); err != nil {
			return s.dbErr(err, "SaveSnapshot: insert account")
		}
		pos++
		return nil
	}
	for _, a := range snap.Orgs {
		if err = insert(clerk.KindOrgConfig, a.Address, a.Data); err != nil {
			return err
		}
	}
	for _, a := range snap.Vendors {
		if err = insert(clerk.KindVendor, a.Address, a.Data); err != nil {
			return err
		}
	}
	for _, a := range snap.Invoices {
		if err = insert(clerk.KindInvoice, a.Address, a.Data); err != nil {
			return err
		}
	}
	for _, a := range snap.Requests {
		if err = insert(clerk.KindInvoiceRequest, a.Address, a.Data); err != nil {
			return err
		}
	}
	for _, a := range snap.Queues {
		if err = insert(clerk.KindPaymentQueue, a.Address, a.Data); err != nil {
			return err
		}
	}

	for i, d := range snap.Dropped {
		_, err = tx.Exec(s.rebind("INSERT INTO diagnostic (scan_id, position, address, code, reason) VALUES (?, ?, ?, ?, ?)"),
			snap.ScanID, i, d.Address.String(), string(d.Code), d.Reason)
		if err != nil {
			return s.dbErr(err, "SaveSnapshot: insert diagnostic")
		}
	}

	if err = tx.Commit(); err != nil {
		return s.dbErr(err, "SaveSnapshot: commit")
	}
	return nil
}

func (s sqlStore) LatestSnapshot() (clerk.Snapshot, error) {
	row := s.db.QueryRow("SELECT scan_id, program, scanned_at, fetched FROM scan ORDER BY scanned_at DESC LIMIT 1")
	var snap clerk.Snapshot
	var program string
	var scannedAt int64
	err := row.Scan(&snap.ScanID, &program, &scannedAt, &snap.Fetched)
	if err == sql.ErrNoRows {
		return clerk.Snapshot{}, clerk.NewErr(clerk.NotFound, "no snapshot stored")
	}
	if err != nil {
		return clerk.Snapshot{}, s.dbErr(err, "LatestSnapshot: scan row")
	}
	if snap.Program, err = clerk.ParseAddress(program); err != nil {
		return clerk.Snapshot{}, clerk.NewErr(clerk.UnknownError, "LatestSnapshot: bad program %q: %v", program, err)
	}
	snap.ScannedAt = time.Unix(0, scannedAt).UTC()
	snap.Orgs = []clerk.Account[clerk.OrgConfig]{}
	snap.Vendors = []clerk.Account[clerk.Vendor]{}
	snap.Invoices = []clerk.Account[clerk.Invoice]{}
	snap.Requests = []clerk.Account[clerk.InvoiceRequest]{}
	snap.Queues = []clerk.Account[clerk.PaymentQueue]{}
	snap.Dropped = []clerk.Diagnostic{}

	rows, err := s.db.Query(s.rebind("SELECT address, kind, data FROM account WHERE scan_id = ? ORDER BY position"), snap.ScanID)
	if err != nil {
		return clerk.Snapshot{}, s.dbErr(err, "LatestSnapshot: querying accounts")
	}
	defer rows.Close()
	for rows.Next() {
		var address, kind, data string
		if err := rows.Scan(&address, &kind, &data); err != nil {
			return clerk.Snapshot{}, s.dbErr(err, "LatestSnapshot: scanning account row")
		}
		if err := addAccount(&snap, address, clerk.Kind(kind), []byte(data)); err != nil {
			return clerk.Snapshot{}, err
		}
	}
	if err = rows.Err(); err != nil { // docs say this check is required!
		return clerk.Snapshot{}, s.dbErr(err, "LatestSnapshot: querying accounts")
	}

	drows, err := s.db.Query(s.rebind("SELECT address, code, reason FROM diagnostic WHERE scan_id = ? ORDER BY position"), snap.ScanID)
	if err != nil {
		return clerk.Snapshot{}, s.dbErr(err, "LatestSnapshot: querying diagnostics")
	}
	defer drows.Close()
	for drows.Next() {
		var address, code, reason string
		if err := drows.Scan(&address, &code, &reason); err != nil {
			return clerk.Snapshot{}, s.dbErr(err, "LatestSnapshot: scanning diagnostic row")
		}
		addr, _ := clerk.ParseAddress(address)
		snap.Dropped = append(snap.Dropped, clerk.Diagnostic{Address: addr, Code: clerk.ErrorCode(code), Reason: reason})
	}
	if err = drows.Err(); err != nil {
		return clerk.Snapshot{}, s.dbErr(err, "LatestSnapshot: querying diagnostics")
	}
	return snap, nil
}

func addAccount(snap *clerk.Snapshot, address string, kind clerk.Kind, data []byte) error {
	addr, err := clerk.ParseAddress(address)
	if err != nil {
		return clerk.NewErr(clerk.UnknownError, "stored account has bad address %q: %v", address, err)
	}
	bad := func(err error) error {
		return clerk.WithAccount(clerk.NewErr(clerk.UnknownError, "stored %s does not decode: %v", kind, err), addr)
	}
	switch kind {
	case clerk.KindOrgConfig:
		var v clerk.OrgConfig
		if err := json.Unmarshal(data, &v); err != nil {
			return bad(err)
		}
		snap.Orgs = append(snap.Orgs, clerk.Account[clerk.OrgConfig]{Address: addr, Data: v})
	case clerk.KindVendor:
		var v clerk.Vendor
		if err := json.Unmarshal(data, &v); err != nil {
			return bad(err)
		}
		snap.Vendors = append(snap.Vendors, clerk.Account[clerk.Vendor]{Address: addr, Data: v})
	case clerk.KindInvoice:
		var v clerk.Invoice
		if err := json.Unmarshal(data, &v); err != nil {
			return bad(err)
		}
		snap.Invoices = append(snap.Invoices, clerk.Account[clerk.Invoice]{Address: addr, Data: v})
	case clerk.KindInvoiceRequest:
		var v clerk.InvoiceRequest
		if err := json.Unmarshal(data, &v); err != nil {
			return bad(err)
		}
		snap.Requests = append(snap.Requests, clerk.Account[clerk.InvoiceRequest]{Address: addr, Data: v})
	case clerk.KindPaymentQueue:
		var v clerk.PaymentQueue
		if err := json.Unmarshal(data, &v); err != nil {
			return bad(err)
		}
		snap.Queues = append(snap.Queues, clerk.Account[clerk.PaymentQueue]{Address: addr, Data: v})
	default:
		return clerk.WithAccount(clerk.NewErr(clerk.UnknownError, "stored account has unknown kind %q", kind), addr)
	}
	return nil
}

func (s sqlStore) ListScans(limit int) (result []clerk.ScanRecord, err error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(s.rebind("SELECT scan_id, program, scanned_at, fetched, decoded, dropped FROM scan ORDER BY scanned_at DESC LIMIT ?"), limit)
	if err != nil {
		return nil, s.dbErr(err, "ListScans: querying scans")
	}
	defer rows.Close()
	for rows.Next() {
		var r clerk.ScanRecord
		var program string
		var scannedAt int64
		if err := rows.Scan(&r.ScanID, &program, &scannedAt, &r.Fetched, &r.Decoded, &r.Dropped); err != nil {
			return nil, s.dbErr(err, "ListScans: scanning scan row")
		}
		r.Program, _ = clerk.ParseAddress(program)
		r.ScannedAt = time.Unix(0, scannedAt).UTC()
		result = append(result, r)
	}
	if err = rows.Err(); err != nil {
		return nil, s.dbErr(err, "ListScans: querying scans")
	}
	return result, nil
}

// rebindNumbered rewrites '?' placeholders as $1, $2 ... for postgres.
func rebindNumbered(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rebindNone(query string) string {
	return query
}
