// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the process.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full health report.
type Report struct {
	Status          SystemStatus `json:"status"`
	ReportingOnline bool         `json:"reporting_online"`
	ReportQueue     int          `json:"report_queue"`
	StoreReachable  bool         `json:"store_reachable"`
	RecoveryPending bool         `json:"recovery_pending"`
}
