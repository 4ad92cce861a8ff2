package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/qrgate/portal/config"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
	"github.com/qrgate/portal/internal/store"
)

const defaultTokenTTL = 24 * time.Hour

// SessionLoader resolves the account and role behind a token subject.
type SessionLoader interface {
	Session(ctx context.Context, accountID string) (services.Session, error)
}

// Guard authenticates requests from a bearer token or the session cookie.
type Guard struct {
	secret     []byte
	issuer     string
	cookieName string
	sessions   SessionLoader
	log        logging.Logger
}

func NewGuard(cfg config.AuthConfig, sessions SessionLoader, log logging.Logger) *Guard {
	if log == nil {
		log = logging.Nop()
	}
	return &Guard{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		cookieName: cfg.CookieName,
		sessions:   sessions,
		log:        log,
	}
}

// Optional injects the subject when the request carries a valid token and
// passes anonymous requests through untouched.
func (g *Guard) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subject, err := g.subject(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), contextSubjectKey, subject))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth enforces authentication and injects the subject into context.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := g.subject(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows accounts that have any admin row.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return g.RequireAuth(g.loadSession(func(s services.Session) bool { return s.IsAdmin }, next))
}

// RequireRole allows only the given admin roles.
func (g *Guard) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.RequireAuth(g.loadSession(func(s services.Session) bool {
			return s.IsAdmin && slices.Contains(roles, s.Role)
		}, next))
	}
}

func (g *Guard) loadSession(allow func(services.Session) bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := subjectFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		session, err := g.sessions.Session(r.Context(), subject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			g.log.Error(r.Context(), "load session", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load session")
			return
		}
		if !allow(session) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		ctx := context.WithValue(r.Context(), contextSessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionOf resolves the caller's session without writing a response.
// Anonymous callers and stale tokens return ok=false.
func (g *Guard) sessionOf(r *http.Request) (services.Session, bool, error) {
	if s, ok := sessionFromContext(r.Context()); ok {
		return s, true, nil
	}
	subject, err := g.subject(r)
	if err != nil {
		return services.Session{}, false, nil
	}
	s, err := g.sessions.Session(r.Context(), subject)
	if errors.Is(err, store.ErrNotFound) {
		return services.Session{}, false, nil
	}
	if err != nil {
		return services.Session{}, false, err
	}
	return s, true, nil
}

func (g *Guard) subject(r *http.Request) (string, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		cookie, cookieErr := r.Cookie(g.cookieName)
		if cookieErr != nil || strings.TrimSpace(cookie.Value) == "" {
			return "", err
		}
		tokenString = cookie.Value
	}
	return parseTokenSubject(tokenString, g.secret)
}

// AuthHandler provides login endpoints.
type AuthHandler struct {
	auth         *services.AuthService
	secret       []byte
	issuer       string
	tokenTTL     time.Duration
	cookieName   string
	cookieSecure bool
	log          logging.Logger
}

func NewAuthHandler(auth *services.AuthService, cfg config.AuthConfig, log logging.Logger) *AuthHandler {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if log == nil {
		log = logging.Nop()
	}
	return &AuthHandler{
		auth:         auth,
		secret:       []byte(cfg.JWTSecret),
		issuer:       cfg.JWTIssuer,
		tokenTTL:     ttl,
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		log:          log,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler, guard *Guard) {
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(guard.RequireAuth).Get("/me", handler.Me)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	services.Session
}

// Login verifies credentials, sets the session cookie and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to authenticate")
		return
	}

	token, err := issueToken(session.Account.ID, h.issuer, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, Session: session})
}

// Logout clears the session cookie. Bearer tokens simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeOK(w)
}

// Me returns the current authenticated account and role.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := h.auth.Session(r.Context(), subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeServiceError(w, r, h.log, err, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func issueToken(subject, issuer string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
