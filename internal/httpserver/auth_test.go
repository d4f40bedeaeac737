package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/middleware"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/models"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/oauth"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/repo"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/service"
	"github.com/Radhikamangroliya/todo-timeline-api/pkg/tokens"
)

const (
	testIssuer       = "todo-timeline-api"
	testAudience     = "todo-timeline-frontend"
	testCallbackURI  = "http://localhost:8080/api/auth/google/callback"
	testFrontendURI  = "http://localhost:3000/auth/callback"
	testAuthCodeURL  = "https://accounts.example.com/o/oauth2/auth?client_id=fake-client"
	testGoogleEmail  = "user@example.com"
	testGoogleName   = "Test User"
	testGoogleSubj   = "108977346592"
)

var testSecret = []byte("handler-test-secret")

type fakeProvider struct {
	claims *oauth.Claims
	err    error
}

func (f *fakeProvider) AuthCodeURL(string) string { return testAuthCodeURL }

func (f *fakeProvider) Exchange(context.Context, string) (*oauth.Claims, error) {
	return f.claims, f.err
}

func (f *fakeProvider) VerifyIDToken(context.Context, string) (*oauth.Claims, error) {
	return f.claims, f.err
}

type testEnv struct {
	e        *echo.Echo
	repo     *repo.GormRepo
	provider *fakeProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.TimelineEntry{}))

	provider := &fakeProvider{claims: &oauth.Claims{
		Provider: oauth.ProviderGoogle,
		Subject:  testGoogleSubj,
		Email:    testGoogleEmail,
		Name:     testGoogleName,
		Picture:  "https://example.com/avatar.png",
	}}

	gormRepo := repo.New(db)
	authSvc := &service.AuthService{
		Provider: provider,
		Repo:     gormRepo,
		Secret:   testSecret,
		Issuer:   testIssuer,
		Audience: testAudience,
	}
	timelineSvc := &service.TimelineService{Repo: gormRepo}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{
			Svc:              authSvc,
			RedirectURI:      testCallbackURI,
			FrontendRedirect: testFrontendURI,
		},
		TimelineHandler: &TimelineHTTP{Svc: timelineSvc},
		AuthMW:          middleware.NewBearerAuth(testSecret, testIssuer, testAudience),
	})

	return &testEnv{e: e, repo: gormRepo, provider: provider}
}

func (env *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

type authResponseBody struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
	User         struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Provider string `json:"provider"`
	} `json:"user"`
}

// login runs the direct ID-token flow and returns the session pair.
func (env *testEnv) login(t *testing.T) authResponseBody {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/auth/google/token", `{"idToken":"raw-google-token"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body authResponseBody
	decodeJSON(t, rec, &body)
	require.NotEmpty(t, body.Token)
	require.NotEmpty(t, body.RefreshToken)
	return body
}

func TestGoogleLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t.Run("json for api clients", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/google?format=json", "", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			OAuthURL    string `json:"oauthUrl"`
			RedirectURI string `json:"redirectUri"`
		}
		decodeJSON(t, rec, &body)
		assert.Equal(t, testAuthCodeURL, body.OAuthURL)
		assert.Equal(t, testCallbackURI, body.RedirectURI)
	})

	t.Run("json via accept header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/google", nil)
		req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		env.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("redirect for browsers", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/google", "", "")
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, testAuthCodeURL, rec.Header().Get(echo.HeaderLocation))
	})
}

func TestGoogleCallback_Success(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/google/callback?code=abc123", "", "")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc.String(), testFrontendURI))

	token := loc.Query().Get("token")
	require.NotEmpty(t, token)

	claims, err := tokens.AccessClaimsFromToken(token, testSecret, testIssuer, testAudience)
	require.NoError(t, err)
	assert.Equal(t, testGoogleEmail, claims.Email)
}

func TestGoogleCallback_Failures(t *testing.T) {
	t.Parallel()

	t.Run("provider error param", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodGet, "/api/auth/google/callback?error=access_denied", "", "")
		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
		require.NoError(t, err)
		assert.Equal(t, "access_denied", loc.Query().Get("error"))
		assert.Empty(t, loc.Query().Get("token"))
	})

	t.Run("missing code", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodGet, "/api/auth/google/callback", "", "")
		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
		require.NoError(t, err)
		assert.Equal(t, "No authorization code received", loc.Query().Get("error"))
	})

	t.Run("exchange rejected upstream", func(t *testing.T) {
		env := newTestEnv(t)
		env.provider.claims = nil
		env.provider.err = &oauth.UpstreamError{Status: http.StatusBadRequest, Body: `{"error":"invalid_grant"}`}

		rec := env.do(t, http.MethodGet, "/api/auth/google/callback?code=expired", "", "")
		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
		require.NoError(t, err)
		assert.NotEmpty(t, loc.Query().Get("error"))

		count, err := env.repo.CountUsers(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestGoogleTokenLogin(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		body := env.login(t)

		assert.Equal(t, testGoogleEmail, body.User.Email)
		assert.Equal(t, testGoogleName, body.User.Name)
		assert.Equal(t, oauth.ProviderGoogle, body.User.Provider)
		assert.NotEmpty(t, body.User.ID)

		expires, err := time.Parse(time.RFC3339, body.ExpiresAt)
		require.NoError(t, err)
		assert.True(t, expires.After(time.Now()))
	})

	t.Run("missing id token writes nothing", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/auth/google/token", `{}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		decodeJSON(t, rec, &body)
		assert.Equal(t, "idToken is required", body["message"])

		count, err := env.repo.CountUsers(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("forged id token", func(t *testing.T) {
		env := newTestEnv(t)
		env.provider.claims = nil
		env.provider.err = oauth.ErrInvalidIDToken

		rec := env.do(t, http.MethodPost, "/api/auth/google/token", `{"idToken":"forged"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	login := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/auth/refresh",
		`{"refreshToken":"`+login.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var refreshed authResponseBody
	decodeJSON(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.Token)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, login.User.ID, refreshed.User.ID)

	// The spent token is rejected on reuse.
	rec = env.do(t, http.MethodPost, "/api/auth/refresh",
		`{"refreshToken":"`+login.RefreshToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/refresh", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	login := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/auth/logout",
		`{"refreshToken":"`+login.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/refresh",
		`{"refreshToken":"`+login.RefreshToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout without a body is still a 200; there is nothing to undo.
	rec = env.do(t, http.MethodPost, "/api/auth/logout", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t.Run("requires token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/me", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/auth/me", "", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("returns token claims", func(t *testing.T) {
		login := env.login(t)
		rec := env.do(t, http.MethodGet, "/api/auth/me", "", login.Token)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		decodeJSON(t, rec, &body)
		assert.Equal(t, login.User.ID, body["id"])
		assert.Equal(t, testGoogleEmail, body["email"])
		assert.Equal(t, testGoogleName, body["name"])
		assert.Equal(t, oauth.ProviderGoogle, body["provider"])
	})
}
