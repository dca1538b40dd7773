// Package password hashes and verifies account passwords for the in-process
// reference gateway with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password length rules belong
// to the validation package; the client never hashes passwords it sends to a
// real backend.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other authflow package.
//   - Log plaintext passwords.
package password
