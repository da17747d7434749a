// Package supabase is a small client for the parts of a Supabase project the
// app uses: password auth, one REST table and one public storage bucket.
//
// [Auth] is the app's identity provider. It implements [session.Provider],
// persists the session in a [Storage] under [StorageKey], and delivers auth
// changes on a single goroutine in the order they happened. With auto
// refresh enabled, access tokens are renewed shortly before they expire; a
// rejected refresh token signs the user out.
//
// [Table] and [Bucket] implement [posts.Repository] and [posts.MediaStore].
// Requests carry the anon key as apikey and the current access token as the
// bearer token, so the server's row policies see the signed-in user.
//
// Non-2xx responses are returned as *[Error].
package supabase
