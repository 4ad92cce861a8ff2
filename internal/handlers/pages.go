package handlers

import (
	"net/http"
	"strings"
)

// PageDescriptor is the JSON stand-in for a rendered page.
type PageDescriptor struct {
	Page     string            `json:"page"`
	Redirect string            `json:"redirect,omitempty"`
	Links    map[string]string `json:"links,omitempty"`
}

// Healthz reports service liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Home serves "/" for anonymous callers; signed-in callers are redirected
// by the gate before reaching it.
func Home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PageDescriptor{
		Page: "home",
		Links: map[string]string{
			"login":    adminLoginPath,
			"register": "/api/residents/register",
			"scan":     "/scan",
			"marquee":  "/api/ads/marquee",
		},
	})
}

// AdminLogin describes the login page and echoes a safe redirect target.
func AdminLogin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PageDescriptor{
		Page:     "admin-login",
		Redirect: safeRedirect(r.URL.Query().Get("redirect")),
		Links:    map[string]string{"login": "/api/auth/login"},
	})
}

func ScanPage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PageDescriptor{
		Page:  "scan",
		Links: map[string]string{"decode": "/api/scan/decode"},
	})
}

// safeRedirect keeps only same-site absolute paths.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return adminDashboardPath
	}
	return target
}
