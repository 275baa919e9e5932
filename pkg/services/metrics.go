package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerclerk_scans_total",
		Help: "Program scans by result (ok, failed).",
	}, []string{"result"})

	accountsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerclerk_accounts_decoded_total",
		Help: "Accounts decoded by record kind.",
	}, []string{"kind"})

	accountsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerclerk_accounts_dropped_total",
		Help: "Accounts dropped from scans by error code.",
	}, []string{"code"})

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledgerclerk_scan_duration_seconds",
		Help:    "Time to fetch and decode all program accounts.",
		Buckets: prometheus.DefBuckets,
	})

	lastScanAccounts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledgerclerk_snapshot_accounts",
		Help: "Accounts in the latest snapshot by record kind.",
	}, []string{"kind"})
)
