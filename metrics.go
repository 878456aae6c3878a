package authloop

import internalmetrics "github.com/mkellner/authloop/internal/metrics"

// MetricID identifies one engine counter.
type MetricID = internalmetrics.ID

const (
	MetricLoginSuccess         = internalmetrics.LoginSuccess
	MetricLoginFailure         = internalmetrics.LoginFailure
	MetricRegisterSuccess      = internalmetrics.RegisterSuccess
	MetricRegisterFailure      = internalmetrics.RegisterFailure
	MetricRefreshSuccess       = internalmetrics.RefreshSuccess
	MetricRefreshFailure       = internalmetrics.RefreshFailure
	MetricRefreshReuseDetected = internalmetrics.RefreshReuseDetected
	MetricLogout               = internalmetrics.Logout
)

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot
