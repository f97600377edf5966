package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheErrors counts Redis errors by command.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapfeed_cache_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// AuthEvents counts authentication outcomes.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapfeed_auth_events_total",
		Help: "Authentication events by type",
	}, []string{"event"})

	// PostMutations counts post mutations by operation.
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapfeed_post_mutations_total",
		Help: "Post mutations by operation",
	}, []string{"operation"})

	// UploadedBytes records the size of stored uploads.
	UploadedBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapfeed_uploaded_bytes",
		Help:    "Size of stored uploads in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
	})
)

// Auth event labels.
const (
	AuthLoginSuccess = "login_success"
	AuthLoginFailure = "login_failure"
	AuthRegister     = "register"
	AuthLogout       = "logout"
	AuthInvalidToken = "invalid_token"
)
