// Package authflow drives a multi-step sign-in wizard: email entry, sign-in
// or sign-up, two-factor verification, success and the dashboard handoff.
//
// A [Controller] is built once with [New] and shared. Each user gets a
// [Session], which holds the wizard [State] and accepts [Event] values through
// [Session.Dispatch]. Transitions are computed by a pure reducer; the
// side effects it requests (activity log entries, failed-attempt counting,
// last-login updates, the success timer) are run by the session after the
// new state is committed.
//
// # Architecture boundaries
//
// authflow is the public surface. It exposes [Controller], [Session],
// [Builder], [Config], the collaborator interfaces ([ProfileStore],
// [ActivitySink], [CodeVerifier], [ResetCodeIssuer]) and value types. The
// transition table lives in internal/flows, activity buffering in
// internal/audit and Redis challenge records in internal/stores.
//
// # What this package must NOT do
//
//   - Hold plaintext passwords beyond the call that received them.
//   - Let an effect failure change a committed transition.
//   - Queue overlapping transitions of one session; they are rejected.
//   - Import any sub-package that re-imports authflow.
package authflow
