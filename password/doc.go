// Package password hashes account passwords with argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// Verification reads the parameters from the stored string, so raising the
// configured cost does not invalidate existing hashes; [Hasher.NeedsRehash]
// tells the caller when to re-hash after a successful sign in.
package password
