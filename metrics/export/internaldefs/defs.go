package internaldefs

import (
	"github.com/MrEthical07/notees/backend"
)

// CounterDef maps a backend counter onto an exported metric name.
type CounterDef struct {
	ID   backend.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   backend.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: backend.MetricSignUpSuccess, Name: "notees_signup_success_total", Help: "Accounts created."},
	{ID: backend.MetricSignUpDuplicate, Name: "notees_signup_duplicate_total", Help: "Sign-ups rejected because the email is registered."},
	{ID: backend.MetricLoginSuccess, Name: "notees_login_success_total", Help: "Successful password sign-ins."},
	{ID: backend.MetricLoginFailure, Name: "notees_login_failure_total", Help: "Rejected password sign-ins."},
	{ID: backend.MetricLoginThrottled, Name: "notees_login_throttled_total", Help: "Password sign-ins refused by the attempt limit."},
	{ID: backend.MetricRefreshSuccess, Name: "notees_refresh_success_total", Help: "Refresh token rotations."},
	{ID: backend.MetricRefreshFailure, Name: "notees_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: backend.MetricRefreshReuseDetected, Name: "notees_refresh_reuse_detected_total", Help: "Sessions revoked after refresh token reuse."},
	{ID: backend.MetricLogout, Name: "notees_logout_total", Help: "Sign-outs."},
	{ID: backend.MetricPostCreated, Name: "notees_post_created_total", Help: "Posts created."},
	{ID: backend.MetricPostUpdated, Name: "notees_post_updated_total", Help: "Posts updated."},
	{ID: backend.MetricPostDeleted, Name: "notees_post_deleted_total", Help: "Posts deleted."},
	{ID: backend.MetricPostForbidden, Name: "notees_post_forbidden_total", Help: "Post writes rejected for a foreign owner."},
	{ID: backend.MetricMediaUploaded, Name: "notees_media_uploaded_total", Help: "Media objects stored."},
	{ID: backend.MetricMediaRejected, Name: "notees_media_rejected_total", Help: "Media uploads rejected."},
}

var HistogramDefs = []HistogramDef{
	{ID: backend.MetricRequestLatency, Name: "notees_request_latency_seconds", Help: "Dev server request latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the eight buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds for use inside metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
