// Package flows contains the pure transition function behind every wizard step.
//
// [Reduce] maps the current [State] and an [Event] to the next State plus a list
// of [Effect] values. Blocking collaborator calls (lookup, verify, create,
// update) are reached through closures in [MachineDeps]; fire-and-forget work
// (activity records, failed-attempt counters, last-login stamps, timers) is
// returned as effects for the caller to run.
//
// # Architecture boundaries
//
// Flow functions decide the next step and which effects to emit. They do NOT
// own the profile store, the activity dispatcher, timers or metrics; ownership
// stays with the Controller and Session in the root package.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authflow (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency closures.
package flows
