// Package stores provides Redis-backed, short-lived records for the wizard:
// password reset codes and per-subject notice state.
//
// Reset codes live in a Redis hash holding the SHA-256 digest of the code,
// an expiry in unix milliseconds and an attempt counter. The key also carries
// a Redis TTL. Consume runs as one Lua script so concurrent guesses cannot
// both succeed or both skip the attempt counter.
//
// Notice state keeps read and hidden notice ids in Redis sets and a capped
// tooltip counter guarded by WATCH.
//
// This package never generates codes or decides transitions, never imports
// authflow, and never logs a plaintext code.
package stores
