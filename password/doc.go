// Package password hashes and verifies passwords with argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// Verification always uses the parameters stored in the hash, so raising the
// configured costs never locks out existing profiles. [Argon2.NeedsUpgrade]
// tells a store when to rehash after a successful sign-in.
//
// Decoding failures wrap [ErrMalformedHash]; input limits are reported as
// [ErrEmptyPassword] and [ErrPasswordTooLong].
//
// This package never stores passwords, never logs them and imports no other
// authflow package. Strength rules belong to the sign-up and reset
// transitions, which run before hashing.
package password
