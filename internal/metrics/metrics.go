package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OTP lifecycle metrics
	OTPRequestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_requested_total",
		Help: "Total number of OTP send requests.",
	}, []string{"channel"}) // channel: "email" or "phone"
	OTPDeliveryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_delivery_failures_total",
		Help: "Total number of OTP delivery failures by channel error kind.",
	}, []string{"channel", "kind"})
	OTPVerifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_verified_total",
		Help: "Total number of OTP verification attempts.",
	}, []string{"status"}) // status: "accepted" or "rejected"
	OTPSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otp_swept_total",
		Help: "Total number of expired OTP records reclaimed by the sweeper.",
	})
	AccountsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accounts_created_total",
		Help: "Total number of accounts created after first verification.",
	})
)

// Database metrics
var DBQueryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "db_query_duration_seconds",
	Help:    "Duration of database queries in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"query_type", "repository", "status"})

var DBQueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "db_query_errors_total",
	Help: "Total number of failed database queries.",
}, []string{"query_type", "repository"})
