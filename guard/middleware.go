package guard

import (
	"net/http"
)

// Middleware applies [Decide] to request paths. While the session is loading
// requests get 503 with Retry-After instead of a redirect; redirects use
// 303 See Other.
func Middleware(source StateSource, routes Routes) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if source == nil {
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}

			state := source.Snapshot()
			if state.IsLoading {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session loading", http.StatusServiceUnavailable)
				return
			}

			action := Decide(state, r.URL.Path, routes)
			if action.Kind == Redirect {
				http.Redirect(w, r, action.Target, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
