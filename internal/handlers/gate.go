package handlers

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	adminPrefix        = "/admin"
	adminLoginPath     = "/admin/login"
	adminDashboardPath = "/admin/dashboard"
	userDashboardPath  = "/user/dashboard"
)

// Gate redirects page requests by session before they reach a handler:
// anonymous callers under /admin go to the login page, signed-in
// non-admins under /admin go to their dashboard, and "/" sends each
// signed-in caller to the matching dashboard.
func (g *Guard) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		protected := path == adminPrefix || strings.HasPrefix(path, adminPrefix+"/")
		if path != "/" && (!protected || path == adminLoginPath) {
			next.ServeHTTP(w, r)
			return
		}

		session, ok, err := g.sessionOf(r)
		if err != nil {
			g.log.Error(r.Context(), "gate session lookup", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load session")
			return
		}

		switch {
		case !ok && protected:
			target := adminLoginPath + "?redirect=" + url.QueryEscape(path)
			http.Redirect(w, r, target, http.StatusFound)
		case !ok:
			next.ServeHTTP(w, r)
		case path == "/" && session.IsAdmin:
			http.Redirect(w, r, adminDashboardPath, http.StatusFound)
		case path == "/" || !session.IsAdmin:
			http.Redirect(w, r, userDashboardPath, http.StatusFound)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
