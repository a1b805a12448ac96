package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vehtrack/vehtrack/internal/authz"
	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
	"github.com/vehtrack/vehtrack/internal/token"
)

func init() { gin.SetMode(gin.TestMode) }

// stubFleets lets each test pin the service outcome per call.
type stubFleets struct {
	getFleet *model.Fleet
	err      error
}

func (s *stubFleets) List(context.Context, authz.Identity, repository.FleetFilter) ([]model.Fleet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []model.Fleet{{ID: 1, Name: "alpha"}}, nil
}

func (s *stubFleets) Get(context.Context, authz.Identity, int64) (*model.Fleet, error) {
	return s.getFleet, s.err
}

func (s *stubFleets) Create(context.Context, authz.Identity, *model.Fleet) error      { return s.err }
func (s *stubFleets) CreateBatch(context.Context, authz.Identity, []*model.Fleet) error {
	return s.err
}
func (s *stubFleets) Update(context.Context, authz.Identity, *model.Fleet) error { return s.err }
func (s *stubFleets) Delete(context.Context, authz.Identity, int64) error        { return s.err }
func (s *stubFleets) AddUser(context.Context, authz.Identity, int64, string) error {
	return s.err
}
func (s *stubFleets) RemoveUser(context.Context, authz.Identity, int64, string) error {
	return s.err
}
func (s *stubFleets) AddDevice(context.Context, authz.Identity, int64, string) error {
	return s.err
}
func (s *stubFleets) RemoveDevice(context.Context, authz.Identity, int64, string) error {
	return s.err
}

type stubAuth struct {
	registerErr error
	loginErr    error
	loggedOut   []string
}

func (s *stubAuth) Register(context.Context, string, string) error { return s.registerErr }

func (s *stubAuth) LoginWithIP(context.Context, string, string, string) (string, time.Time, error) {
	if s.loginErr != nil {
		return "", time.Time{}, s.loginErr
	}
	return "signed-token", time.Now().Add(time.Hour), nil
}

func (s *stubAuth) Logout(_ context.Context, jti string, _ time.Time) error {
	s.loggedOut = append(s.loggedOut, jti)
	return nil
}

func (s *stubAuth) EnsureAdmin(context.Context, string, string) (bool, error) { return false, nil }

type serverFixture struct {
	srv     *Server
	router  *gin.Engine
	tokens  *token.Manager
	revoked *token.RevokedSet
	fleets  *stubFleets
	auth    *stubAuth
}

func newServerFixture() *serverFixture {
	tokens := token.NewManager([]byte("test-secret"), time.Hour)
	revoked := token.NewRevokedSet(100)
	fleets := &stubFleets{}
	auth := &stubAuth{}
	srv := NewServer(zap.NewNop(), auth, fleets, nil, nil, nil, tokens, revoked)
	return &serverFixture{
		srv: srv, router: srv.Router(),
		tokens: tokens, revoked: revoked, fleets: fleets, auth: auth,
	}
}

func (f *serverFixture) do(method, path, bearer, body string) *httptest.ResponseRecorder {
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()
	f := newServerFixture()

	// No token, garbage token, wrong scheme.
	require.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/fleet", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/fleet", "garbage", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fleet", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// A valid token passes, a revoked one stops passing.
	signed, jti, exp, err := f.tokens.Issue("admin@test.com", model.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/fleet", signed, "").Code)

	f.revoked.Revoke(jti, exp)
	require.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/fleet", signed, "").Code)
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()
	f := newServerFixture()
	signed, _, _, err := f.tokens.Issue("owner@test.com", model.RoleFleetAdmin)
	require.NoError(t, err)

	cases := []struct {
		err    error
		status int
	}{
		{errs.ErrNotOwned, http.StatusBadRequest},
		{errs.ErrForbidden, http.StatusForbidden},
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.ErrAlreadyExists, http.StatusConflict},
		{errors.New("pg down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		f.fleets.err = tc.err
		rec := f.do(http.MethodGet, "/api/v1/fleet/1", signed, "")
		require.Equal(t, tc.status, rec.Code, "error %v", tc.err)
	}

	// The failed-ascent body carries the fixed message.
	f.fleets.err = errs.ErrNotOwned
	rec := f.do(http.MethodGet, "/api/v1/fleet/1", signed, "")
	require.Contains(t, rec.Body.String(), msgNotOwned)

	// A fault never leaks its cause.
	f.fleets.err = errors.New("pg down")
	rec = f.do(http.MethodGet, "/api/v1/fleet/1", signed, "")
	require.NotContains(t, rec.Body.String(), "pg down")
}

func TestAuthEndpoints(t *testing.T) {
	t.Parallel()
	f := newServerFixture()

	// Register.
	rec := f.do(http.MethodPost, "/auth/register", "", `{"email":"jane@test.com","password":"secret"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(http.MethodPost, "/auth/register", "", `{"email":"jane@test.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	f.auth.registerErr = errs.ErrAlreadyExists
	rec = f.do(http.MethodPost, "/auth/register", "", `{"email":"jane@test.com","password":"secret"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Login.
	rec = f.do(http.MethodPost, "/auth/login", "", `{"email":"jane@test.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "signed-token")
	f.auth.loginErr = errs.ErrRateLimited
	rec = f.do(http.MethodPost, "/auth/login", "", `{"email":"jane@test.com","password":"secret"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	f.auth.loginErr = errs.ErrUnauthorized
	rec = f.do(http.MethodPost, "/auth/login", "", `{"email":"jane@test.com","password":"bad"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout forwards the token id.
	signed, jti, _, err := f.tokens.Issue("jane@test.com", model.RoleUser)
	require.NoError(t, err)
	rec = f.do(http.MethodPost, "/auth/logout", signed, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{jti}, f.auth.loggedOut)
}

func TestFleetPayloads(t *testing.T) {
	t.Parallel()
	f := newServerFixture()
	signed, _, _, err := f.tokens.Issue("admin@test.com", model.RoleAdmin)
	require.NoError(t, err)

	// Bad id in the path.
	require.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/fleet/abc", signed, "").Code)

	// Single and bulk create both accepted.
	require.Equal(t, http.StatusCreated,
		f.do(http.MethodPost, "/api/v1/fleet", signed, `{"name":"alpha"}`).Code)
	require.Equal(t, http.StatusCreated,
		f.do(http.MethodPost, "/api/v1/fleet", signed, `[{"name":"a"},{"name":"b"}]`).Code)

	// Malformed JSON.
	require.Equal(t, http.StatusBadRequest,
		f.do(http.MethodPost, "/api/v1/fleet", signed, `{"name":`).Code)
}
