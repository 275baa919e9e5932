package services

import (
	"fmt"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

// Event is one bus message produced by comparing two snapshots.
type Event struct {
	Type clerk.EventType
	Msg  any
	ID   string
}

// Diff compares the previous snapshot with the next one and returns the
// bus events describing what changed on-chain. Records are matched by
// address. Events are ordered orgs, vendors, requests, invoices, drops.
func Diff(prev, next clerk.Snapshot) []Event {
	var events []Event
	add := func(t clerk.EventType, msg any) {
		events = append(events, Event{t, msg, fmt.Sprintf("%s-%d", next.ScanID, len(events))})
	}

	orgs := index(prev.Orgs)
	for _, o := range next.Orgs {
		old, seen := orgs[o.Address]
		switch {
		case !seen:
			add(clerk.ORG_CREATED, clerk.OrgEvent{Org: o.Address, Config: o.Data})
		case old != o.Data:
			add(clerk.ORG_UPDATED, clerk.OrgEvent{Org: o.Address, Config: o.Data})
		}
	}

	vendors := index(prev.Vendors)
	for _, v := range next.Vendors {
		old, seen := vendors[v.Address]
		msg := clerk.VendorEvent{Vendor: v.Address, Org: v.Data.Org, Name: v.Data.Name, Wallet: v.Data.Wallet, IsActive: v.Data.IsActive}
		switch {
		case !seen:
			add(clerk.VEN_REGISTERED, msg)
		case old != v.Data:
			add(clerk.VEN_UPDATED, msg)
		}
	}

	requests := index(prev.Requests)
	for _, r := range next.Requests {
		old, seen := requests[r.Address]
		msg := clerk.RequestEvent{Request: r.Address, Requester: r.Data.Requester, Status: r.Data.Status, ContentRef: r.Data.ContentRef}
		switch {
		case !seen:
			add(clerk.REQ_CREATED, msg)
		case old.Status != r.Data.Status:
			prevStatus := old.Status
			msg.PrevStatus = &prevStatus
			add(clerk.REQ_STATUS_CHANGED, msg)
		}
	}

	invoices := index(prev.Invoices)
	for _, inv := range next.Invoices {
		old, seen := invoices[inv.Address]
		msg := invoiceEvent(inv)
		switch {
		case !seen:
			add(clerk.INV_DISCOVERED, msg)
		case old.Status != inv.Data.Status:
			prevStatus := old.Status
			msg.PrevStatus = &prevStatus
			add(clerk.INV_STATUS_CHANGED, msg)
		default:
			continue
		}
		if inv.Data.Status == clerk.StatusAuditPending {
			add(clerk.INV_AUDIT_PENDING, msg)
		}
	}
	current := index(next.Invoices)
	for _, inv := range prev.Invoices {
		if _, ok := current[inv.Address]; !ok {
			add(clerk.INV_REMOVED, invoiceEvent(inv))
		}
	}

	// only report an account the first time it is dropped
	dropped := map[clerk.Address]bool{}
	for _, d := range prev.Dropped {
		dropped[d.Address] = true
	}
	for _, d := range next.Dropped {
		if !dropped[d.Address] {
			add(clerk.SCAN_DROPPED, d)
		}
	}
	return events
}

func invoiceEvent(inv clerk.Account[clerk.Invoice]) clerk.InvoiceEvent {
	return clerk.InvoiceEvent{
		Invoice:    inv.Address,
		Status:     inv.Data.Status,
		Vendor:     inv.Data.Vendor,
		VendorName: inv.Data.VendorName,
		Amount:     inv.Data.Amount,
	}
}

func index[T any](accounts []clerk.Account[T]) map[clerk.Address]T {
	m := make(map[clerk.Address]T, len(accounts))
	for _, a := range accounts {
		m[a.Address] = a.Data
	}
	return m
}
