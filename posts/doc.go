// Package posts implements the note flows: create with an optional image or
// video attachment, edit, delete, and the per-user feed.
//
// Storage is abstracted behind [Repository] and [MediaStore]; the supabase
// package provides the remote implementations and the backend package the
// Redis-backed ones used in development.
package posts
