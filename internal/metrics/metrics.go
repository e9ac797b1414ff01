package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FaultsTotal tracks classified faults per kind and severity
	FaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardrail_faults_total",
			Help: "Total number of classified faults",
		},
		[]string{"kind", "severity"},
	)

	// RetriesTotal tracks honored retry attempts per boundary
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardrail_retries_total",
			Help: "Total number of honored retry attempts",
		},
		[]string{"boundary"},
	)

	// RecoveriesTotal tracks executed recovery actions per strategy
	RecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardrail_recoveries_total",
			Help: "Total number of executed recovery actions",
		},
		[]string{"strategy"},
	)

	// ReportsTotal tracks remote fault report delivery outcomes
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardrail_reports_total",
			Help: "Total number of remote fault report attempts",
		},
		[]string{"status"},
	)

	// ReportQueueDepth tracks fault reports waiting for connectivity
	ReportQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guardrail_report_queue_depth",
			Help: "Fault reports queued while offline",
		},
	)

	// PreservedWritesTotal tracks writes into the preservation store
	PreservedWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardrail_preserved_writes_total",
			Help: "Total number of preservation store writes",
		},
		[]string{"partition"},
	)
)
