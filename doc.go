// Package notees is the client core of a small social posting app: a session
// store that mirrors an external identity provider, a navigation guard that
// keeps the current screen consistent with the auth state, and a per-user post
// feed.
//
// An [App] is assembled with [Builder] (or [NewSupabaseApp] for the Supabase
// backed setup) and started once:
//
//	app, err := notees.NewSupabaseApp(cfg, logger)
//	if err != nil { ... }
//	defer app.Close()
//	app.Start(ctx)
//	state, _ := app.Wait(ctx)
//
// While the initial lookup is running the state is loading and the guard
// takes no action. Afterwards a signed-out user is kept out of the app area
// and a signed-in user is kept out of the auth area.
//
// Configuration comes from [LoadConfig]: defaults, then an optional YAML
// file, then NOTEES_* environment variables.
package notees
