// Package security derives the read-only posture report of a configured
// controller: argon2id costs, which second factor is active, whether a
// degraded sign-in is possible and how activity records are handled.
//
// # What this package must NOT do
//
//   - Read configuration files or the environment; callers pass values in.
//   - Import authflow.
package security
