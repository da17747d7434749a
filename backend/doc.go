// Package backend is a Redis-backed implementation of the parts of the
// Supabase platform notees depends on: password accounts, rotating refresh
// sessions with HS256 access tokens, the posts table and the media bucket.
//
// It is the storage layer behind the devserver package, so the client can be
// developed and tested without a hosted project.
//
// # Key layout
//
// All keys share Config.KeyPrefix:
//
//	<p>:email:<lower(email)>   user id (SETNX guards duplicate sign-ups)
//	<p>:user:<id>              JSON account (profile and argon2id hash)
//	<p>:sess:<sid>             binary session record, TTL = RefreshTTL
//	<p>:usess:<uid>            set of the user's session ids
//	<p>:post:<id>              JSON post
//	<p>:posts:<uid>            sorted set of post ids by creation time
//	<p>:obj:<bucket>/<path>    binary object record
//
// # Refresh rotation
//
// A refresh token is base64url(sid || secret); only SHA-256(secret) is
// stored. Rotation runs in a Lua script that compares the stored hash and
// swaps in the next one atomically. Presenting an already-rotated token
// deletes the session.
package backend
