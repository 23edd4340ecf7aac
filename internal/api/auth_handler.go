package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/auth"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/biz"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/conf"
)

const (
	// HandshakeCookieName carries the encoded per-login handshake state.
	HandshakeCookieName = "oidc_handshake"
	// handshakeCookieMaxAge bounds how long a login attempt may take.
	handshakeCookieMaxAge = 600

	// genericLoginError is the only failure message users ever see.
	// Specific causes are logged server-side so probing the flow leaks
	// nothing.
	genericLoginError = "Authentication failed"
)

// OIDCClient is the handshake surface the orchestrators need; satisfied
// by *auth.Client.
type OIDCClient interface {
	Enabled() bool
	BuildAuthURL(ctx context.Context, hs *auth.HandshakeState) (string, error)
	Exchange(ctx context.Context, code, returnedState string, hs *auth.HandshakeState) (*auth.IdentityClaims, error)
	EndSessionURL(ctx context.Context, postLogoutRedirect string) (string, error)
}

// AuthHandler implements the login, callback and logout flows.
type AuthHandler struct {
	cfg       *conf.Config
	oidc      OIDCClient
	provision *biz.ProvisionUsecase
	sessions  *biz.SessionUsecase
	audit     biz.AuditRepo
	logger    *slog.Logger
}

// NewAuthHandler creates the auth orchestrator.
func NewAuthHandler(cfg *conf.Config, oidc OIDCClient, provision *biz.ProvisionUsecase, sessions *biz.SessionUsecase, audit biz.AuditRepo, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:       cfg,
		oidc:      oidc,
		provision: provision,
		sessions:  sessions,
		audit:     audit,
		logger:    logger,
	}
}

// RegisterRoutes registers the auth routes.
func (h *AuthHandler) RegisterRoutes(r *mux.Router, authMiddleware func(http.Handler) http.Handler) {
	r.HandleFunc("/login", h.login).Methods(http.MethodGet)
	r.HandleFunc("/auth/oidc/start", h.oidcStart).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", h.callback).Methods(http.MethodGet)
	r.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	r.Handle("/auth/userinfo", authMiddleware(http.HandlerFunc(h.userinfo))).Methods(http.MethodGet)
}

// login is the login-choice entry point. When OIDC is the only enabled
// method the choice is skipped and the handshake starts immediately. A
// failed attempt lands back here with an error annotation and does get
// the page, otherwise a persistently failing IdP would redirect-loop.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if h.oidc.Enabled() && !h.cfg.Auth.LocalEnabled && r.URL.Query().Get("error") == "" {
		target := "/auth/oidc/start"
		if redirectTo := r.URL.Query().Get("redirect_to"); redirectTo != "" {
			target += "?redirect_to=" + url.QueryEscape(redirectTo)
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	resp := LoginOptionsResponse{
		Methods: []string{},
		Error:   r.URL.Query().Get("error"),
	}
	if h.cfg.Auth.LocalEnabled {
		resp.Methods = append(resp.Methods, "local")
	}
	if h.oidc.Enabled() {
		resp.Methods = append(resp.Methods, "oidc")
		resp.ProviderName = h.cfg.Auth.OIDC.ProviderName
	}
	writeJSON(w, http.StatusOK, resp)
}

// oidcStart generates the handshake state, parks it in the browser
// cookie and redirects to the IdP authorization endpoint.
func (h *AuthHandler) oidcStart(w http.ResponseWriter, r *http.Request) {
	redirectTo := sanitizeRedirect(r.URL.Query().Get("redirect_to"))

	hs, err := auth.GenerateHandshakeState(redirectTo)
	if err != nil {
		h.failLogin(w, r, fmt.Errorf("failed to generate handshake state: %w", err))
		return
	}
	encoded, err := auth.EncodeHandshakeState(hs)
	if err != nil {
		h.failLogin(w, r, err)
		return
	}
	authURL, err := h.oidc.BuildAuthURL(r.Context(), hs)
	if err != nil {
		h.failLogin(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     HandshakeCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   handshakeCookieMaxAge,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// callback completes the handshake: any failure, whatever its cause,
// produces the same generic login redirect. The handshake cookie is
// cleared on every path.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	h.clearHandshakeCookie(w)

	query := r.URL.Query()
	if idpErr := query.Get("error"); idpErr != "" {
		h.failLogin(w, r, fmt.Errorf("IdP returned error %q: %s", idpErr, query.Get("error_description")))
		return
	}
	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		h.failLogin(w, r, fmt.Errorf("callback is missing code or state parameter"))
		return
	}

	cookie, err := r.Cookie(HandshakeCookieName)
	if err != nil {
		h.failLogin(w, r, fmt.Errorf("handshake cookie is missing: %w", err))
		return
	}
	hs, err := auth.DecodeHandshakeState(cookie.Value)
	if err != nil {
		h.failLogin(w, r, err)
		return
	}

	claims, err := h.oidc.Exchange(r.Context(), code, state, hs)
	if err != nil {
		h.failLogin(w, r, err)
		return
	}

	user, err := h.provision.FindOrCreate(r.Context(), claims)
	if err != nil {
		h.failLogin(w, r, err)
		return
	}

	session, err := h.sessions.Start(r.Context(), user.ID)
	if err != nil {
		h.failLogin(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessions.TTL().Seconds()),
	})

	h.recordAudit(r.Context(), user.ID, biz.AuditLoginSucceeded, user.Username)
	h.logger.Info("OIDC login succeeded", "username", user.Username, "role", user.Role)

	target := h.cfg.Server.FrontendURL
	if hs.RedirectTo != "" {
		target = hs.RedirectTo
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// logout destroys the local session first, then chains to the IdP
// end-session endpoint when one exists. The session-clearing Set-Cookie
// rides on the redirect response, so the local logout holds even though
// the browser lands on the IdP.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if session, err := h.sessions.Resolve(r.Context(), cookie.Value); err == nil {
			userID = session.UserID
		}
		if err := h.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			h.logger.Error("failed to destroy session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	if userID != 0 {
		h.recordAudit(r.Context(), userID, biz.AuditLogout, "")
	}

	endSessionURL, err := h.oidc.EndSessionURL(r.Context(), h.cfg.Server.FrontendURL)
	if err != nil {
		h.logger.Error("failed to resolve end-session endpoint", "error", err)
		endSessionURL = ""
	}
	if endSessionURL != "" {
		http.Redirect(w, r, endSessionURL, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// userinfo returns the current user (runs under the session middleware).
func (h *AuthHandler) userinfo(w http.ResponseWriter, r *http.Request) {
	user, err := CurrentUser(r.Context())
	if err != nil {
		writeUnauthorized(w, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, UserInfoResponse{
		ID:          user.PublicID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
	})
}

// failLogin logs the real cause, records it in the audit log and sends
// the browser back to the login choice with the generic message.
func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request, cause error) {
	h.logger.Error("OIDC login failed", "error", cause)
	h.recordAudit(r.Context(), 0, biz.AuditLoginFailed, cause.Error())
	http.Redirect(w, r, "/login?error="+url.QueryEscape(genericLoginError), http.StatusFound)
}

func (h *AuthHandler) clearHandshakeCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     HandshakeCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (h *AuthHandler) recordAudit(ctx context.Context, userID int64, action, detail string) {
	entry := &biz.AuditEntry{UserID: userID, Action: action, Detail: detail}
	if err := h.audit.Record(ctx, entry); err != nil {
		h.logger.Error("failed to record audit entry", "action", action, "error", err)
	}
}

// sanitizeRedirect keeps only local absolute paths so the post-login
// redirect cannot be abused as an open redirect.
func sanitizeRedirect(redirectTo string) string {
	if strings.HasPrefix(redirectTo, "/") && !strings.HasPrefix(redirectTo, "//") {
		return redirectTo
	}
	return ""
}
