package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/authflow"
)

// Def binds a controller metric to its exported name.
type Def struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// Counters lists every exported counter in render order.
var Counters = []Def{
	{authflow.MetricEmailLookup, "authflow_email_lookup_total", "Email-step lookups sent to the profile store."},
	{authflow.MetricSocialSignIn, "authflow_social_sign_in_total", "Social provider sign-ins."},
	{authflow.MetricSignInSuccess, "authflow_sign_in_success_total", "Accepted primary passwords."},
	{authflow.MetricSignInFailure, "authflow_sign_in_failure_total", "Rejected primary passwords."},
	{authflow.MetricSignUpSuccess, "authflow_sign_up_success_total", "Created profiles."},
	{authflow.MetricSignUpConflict, "authflow_sign_up_conflict_total", "Sign-ups redirected to sign-in because the email was taken."},
	{authflow.MetricTwoFactorSuccess, "authflow_two_factor_success_total", "Accepted second-factor codes."},
	{authflow.MetricTwoFactorFailure, "authflow_two_factor_failure_total", "Rejected second-factor codes."},
	{authflow.MetricTwoFactorSkipped, "authflow_two_factor_skipped_total", "Second-factor steps skipped."},
	{authflow.MetricCodeResent, "authflow_code_resent_total", "Second-factor code resends."},
	{authflow.MetricResetRequest, "authflow_password_reset_request_total", "Password reset codes issued."},
	{authflow.MetricResetSuccess, "authflow_password_reset_success_total", "Completed password resets."},
	{authflow.MetricResetFailure, "authflow_password_reset_failure_total", "Rejected or expired reset codes."},
	{authflow.MetricLogout, "authflow_logout_total", "Logouts."},
	{authflow.MetricEventRejected, "authflow_event_rejected_total", "Events not accepted by the current step."},
	{authflow.MetricTransitionInFlight, "authflow_transition_in_flight_total", "Dispatches refused while another transition was running."},
	{authflow.MetricEffectFailure, "authflow_effect_failure_total", "Store effects that failed after commit."},
}

// Histograms lists every exported histogram.
var Histograms = []Def{
	{authflow.MetricTransitionLatency, "authflow_transition_latency_seconds", "Session dispatch latency."},
}

// ActivityDropped is exported beside the snapshot counters.
var ActivityDropped = Def{
	Name: "authflow_activity_dropped_total",
	Help: "Activity records dropped due to dispatcher backpressure.",
}

// Bound is one histogram bucket edge in exporter form.
type Bound struct {
	// Le is the Prometheus "le" label value.
	Le string
	// Suffix is safe inside an instrument name.
	Suffix string
}

// Bounds returns one entry per latency bucket, ending with +Inf.
func Bounds() []Bound {
	out := make([]Bound, 0, authflow.LatencyBucketCount)
	for _, d := range authflow.LatencyBuckets {
		le := strconv.FormatFloat(d.Seconds(), 'g', -1, 64)
		out = append(out, Bound{Le: le, Suffix: strings.ReplaceAll(le, ".", "_")})
	}
	return append(out, Bound{Le: "+Inf", Suffix: "inf"})
}

// Cumulative returns running totals over raw, padded to the bucket count.
// A nil slice (latency disabled) yields all zeros.
func Cumulative(raw []uint64) []uint64 {
	out := make([]uint64, authflow.LatencyBucketCount)
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
