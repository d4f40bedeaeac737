package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/logging"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/middleware"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/oauth"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/repo"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService

	// RedirectURI is the backend callback registered with Google;
	// FrontendRedirect is where the browser lands after login.
	RedirectURI      string
	FrontendRedirect string
}

type userInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
	Provider string `json:"provider"`
}

type authResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresAt    string   `json:"expiresAt"`
	User         userInfo `json:"user"`
}

func (h *AuthHTTP) authResponse(res *service.AuthResult) authResponse {
	return authResponse{
		Token:        res.Token,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt.UTC().Format(time.RFC3339),
		User: userInfo{
			ID:       claimID(res.User.ID),
			Email:    res.User.Email,
			Name:     res.User.DisplayName,
			Picture:  res.User.ProfileImageURL,
			Provider: res.User.OAuthProvider,
		},
	}
}

// GoogleLogin starts the OAuth flow. Browsers get a 302 to Google;
// API clients asking for JSON get the URL as data instead.
func (h *AuthHTTP) GoogleLogin(c echo.Context) error {
	authURL := h.Svc.LoginURL()

	accept := c.Request().Header.Get(echo.HeaderAccept)
	wantsJSON := strings.EqualFold(c.QueryParam("format"), "json") ||
		strings.Contains(strings.ToLower(accept), echo.MIMEApplicationJSON)

	if wantsJSON {
		return c.JSON(http.StatusOK, echo.Map{
			"oauthUrl":    authURL,
			"redirectUri": h.RedirectURI,
		})
	}
	return c.Redirect(http.StatusFound, authURL)
}

// GoogleCallback receives the provider redirect. It always completes the
// redirect back to the frontend; failures travel as an error query
// parameter, never as a bare server error page.
func (h *AuthHTTP) GoogleCallback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_google_callback")

	if errParam := c.QueryParam("error"); errParam != "" {
		l.Warn("provider returned error", "error", errParam)
		return h.redirectError(c, errParam)
	}

	code := c.QueryParam("code")
	if code == "" {
		return h.redirectError(c, "No authorization code received")
	}

	res, err := h.Svc.LoginWithCode(ctx, code)
	if err != nil {
		l.Error("code exchange failed", "error", err)
		return h.redirectError(c, loginErrorMessage(err))
	}

	return c.Redirect(http.StatusFound,
		h.FrontendRedirect+"?token="+url.QueryEscape(res.Token))
}

func (h *AuthHTTP) redirectError(c echo.Context, msg string) error {
	return c.Redirect(http.StatusFound,
		h.FrontendRedirect+"?error="+url.QueryEscape(msg))
}

// GoogleTokenLogin is the direct variant: the frontend already holds a
// Google ID token and posts it here.
func (h *AuthHTTP) GoogleTokenLogin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_google_token")

	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if strings.TrimSpace(req.IDToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "idToken is required"})
	}

	res, err := h.Svc.LoginWithIDToken(ctx, req.IDToken)
	if err != nil {
		l.Warn("id token login failed", "error", err)
		if isAuthError(err) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": loginErrorMessage(err)})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "login failed"})
	}

	return c.JSON(http.StatusOK, h.authResponse(res))
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "refreshToken is required"})
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, repo.ErrRefreshInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid refresh token"})
		}
		l.Error("refresh failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "refresh failed"})
	}

	return c.JSON(http.StatusOK, h.authResponse(res))
}

// Logout revokes the presented refresh token server-side. The client
// discards its access token; it expires on its own.
func (h *AuthHTTP) Logout(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err == nil && req.RefreshToken != "" {
		if err := h.Svc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
			logging.FromContext(c.Request().Context()).Error("logout failed", "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "logout failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the claims embedded in the caller's token. No storage access.
func (h *AuthHTTP) Me(c echo.Context) error {
	claims := middleware.ClaimsFromEcho(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing claims")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":       claims.UserID,
		"email":    claims.Email,
		"name":     claims.Name,
		"provider": claims.Provider,
	})
}

// isAuthError separates caller mistakes (bad code, forged token) from our
// own failures; only the former map to 4xx.
func isAuthError(err error) bool {
	var upstream *oauth.UpstreamError
	return errors.Is(err, oauth.ErrInvalidIDToken) || errors.As(err, &upstream)
}

func loginErrorMessage(err error) string {
	var upstream *oauth.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return "Google rejected the login"
	case errors.Is(err, oauth.ErrInvalidIDToken):
		return "invalid Google ID token"
	default:
		return "login failed"
	}
}
