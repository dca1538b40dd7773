package internaldefs

import (
	"github.com/gotg/authflow"
)

// CounterDef names one controller counter for export.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// HistogramDef names one controller histogram for export.
type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// DroppedNotificationsName is the counter for notifications lost to a full
// dispatcher buffer.
const (
	DroppedNotificationsName = "authflow_notifications_dropped_total"
	DroppedNotificationsHelp = "Notifications dropped due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricSignInSuccess, Name: "authflow_sign_in_success_total", Help: "Successful sign-in submissions."},
	{ID: authflow.MetricSignInFailure, Name: "authflow_sign_in_failure_total", Help: "Sign-in submissions rejected by the gateway."},
	{ID: authflow.MetricSignUpSuccess, Name: "authflow_sign_up_success_total", Help: "Successful sign-up submissions."},
	{ID: authflow.MetricSignUpFailure, Name: "authflow_sign_up_failure_total", Help: "Sign-up submissions rejected by the gateway."},
	{ID: authflow.MetricVerificationPending, Name: "authflow_verification_pending_total", Help: "Sign-ups parked awaiting email verification."},
	{ID: authflow.MetricPendingPersistFailure, Name: "authflow_pending_persist_failure_total", Help: "Pending verification emails the credential store failed to save."},
	{ID: authflow.MetricResendSuccess, Name: "authflow_resend_success_total", Help: "Verification emails resent."},
	{ID: authflow.MetricResendFailure, Name: "authflow_resend_failure_total", Help: "Verification resends rejected by the gateway."},
	{ID: authflow.MetricResendMissingEmail, Name: "authflow_resend_missing_email_total", Help: "Resends refused because no pending email was known."},
	{ID: authflow.MetricSignOut, Name: "authflow_sign_out_total", Help: "Sign-out operations."},
	{ID: authflow.MetricSignOutGatewayFailure, Name: "authflow_sign_out_gateway_failure_total", Help: "Sign-outs whose gateway call failed."},
	{ID: authflow.MetricSubmitRejectedInvalid, Name: "authflow_submit_rejected_invalid_total", Help: "Form submissions blocked by validation."},
	{ID: authflow.MetricSubmitRejectedBusy, Name: "authflow_submit_rejected_busy_total", Help: "Form submissions rejected while another was in flight."},
	{ID: authflow.MetricSessionActivated, Name: "authflow_session_activated_total", Help: "Sessions that became active."},
	{ID: authflow.MetricSessionCleared, Name: "authflow_session_cleared_total", Help: "Sessions cleared by sign-out or expiry."},
	{ID: authflow.MetricSessionRefreshed, Name: "authflow_session_refreshed_total", Help: "Session token refreshes."},
	{ID: authflow.MetricRestoreFailure, Name: "authflow_restore_failure_total", Help: "Startup session restores that failed."},
	{ID: authflow.MetricAuthStateChange, Name: "authflow_auth_state_change_total", Help: "Published auth-state transitions."},
	{ID: authflow.MetricRedirect, Name: "authflow_redirect_total", Help: "Route guard redirects."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricGatewayLatency, Name: "authflow_gateway_latency_seconds", Help: "Gateway round-trip latency."},
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

// HistogramBoundSuffix names each bucket for exporters that cannot use
// label values.
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

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
