// Package devserver serves the Supabase-compatible subset the notees client
// uses, backed by [backend.Backend]:
//
//	POST   /auth/v1/signup
//	POST   /auth/v1/token?grant_type=password|refresh_token
//	POST   /auth/v1/logout
//	GET    /auth/v1/user
//	GET    /rest/v1/{table}?user_id=eq.<id>&id=eq.<id>&order=created_at.desc
//	POST   /rest/v1/{table}
//	PATCH  /rest/v1/{table}?id=eq.<id>
//	DELETE /rest/v1/{table}?id=eq.<id>
//	POST   /storage/v1/object/{bucket}/{path}
//	GET    /storage/v1/object/public/{bucket}/{path}
//	GET    /healthz
//	GET    /metrics
//
// Every route except the public object, health and metrics routes requires
// the anon key in the apikey header. Error bodies follow the format of the
// service being imitated so the client parses them the same way.
//
// Row access mirrors a row-level policy of "owner only": rows of other users
// are invisible to reads, updates and deletes rather than reported as
// forbidden. Inserting a row for another user is rejected.
package devserver
