package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Authorization metrics
var (
	// PermissionChecksTotal tracks permission decisions by resource and outcome
	PermissionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kpiboard_permission_checks_total",
			Help: "Total number of permission decisions by resource and result",
		},
		[]string{"resource", "result"},
	)
)

// Share link metrics
var (
	// ShareLinksGeneratedTotal tracks issued share links
	ShareLinksGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kpiboard_share_links_generated_total",
			Help: "Total number of share links generated",
		},
	)

	// ShareLinkRedemptionsTotal tracks redemption attempts by result
	ShareLinkRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kpiboard_share_link_redemptions_total",
			Help: "Total number of share link redemption attempts by result",
		},
		[]string{"result"},
	)

	// ShareLinksExpiredTotal tracks tokens removed by the expiry cleanup
	ShareLinksExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kpiboard_share_links_expired_total",
			Help: "Total number of expired share links removed by cleanup",
		},
	)

	// ShareLinkCleanupErrorsTotal tracks failed cleanup runs
	ShareLinkCleanupErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kpiboard_share_link_cleanup_errors_total",
			Help: "Total number of failed share link cleanup runs",
		},
	)
)

// Result label values
const (
	ResultAllowed = "allowed"
	ResultDenied  = "denied"
	ResultError   = "error"
	ResultSuccess = "success"
	ResultInvalid = "invalid"
)
