package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jewelflow/internal/apiclient"
	"jewelflow/internal/catalog"
	"jewelflow/internal/config"
	"jewelflow/internal/datatable"
	"jewelflow/internal/model"
	"jewelflow/internal/session"
	"jewelflow/pkg/apierror"
)

const (
	adminEmail    = "admin@jewelflow.test"
	adminPassword = "Admin123!"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                     "DEV",
		ServerPort:              "0",
		ServerReadHeaderTimeout: 5 * time.Second,
		ServerWriteTimeout:      5 * time.Second,
		ServerIdleTimeout:       5 * time.Second,
		RequestTimeout:          5 * time.Second,
		JWTSecret:               "test-secret",
		JWTAccessTTL:            time.Minute,
		JWTRefreshTTL:           time.Hour,
		CORSOrigins:             []string{"http://localhost:3000"},
		RateLimitRPM:            0,
		AuthRateLimitRPM:        1000,
		MaxFailedLogins:         3,
		LockoutDuration:         time.Minute,
		BcryptCost:              4,
		TokenCleanupInterval:    time.Hour,
		SeedAdminEmail:          adminEmail,
		SeedAdminPassword:       adminPassword,
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...apiclient.Option) *apiclient.Client {
	t.Helper()

	sess, err := session.NewManager(session.NewMemoryStore(), session.NewMemoryStore())
	require.NoError(t, err)

	opts = append([]apiclient.Option{apiclient.WithHTTPClient(srv.Client())}, opts...)
	client, err := apiclient.New(srv.URL, sess, opts...)
	require.NoError(t, err)
	return client
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestRegisterLoginAndProfile(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t, srv)
	ctx := context.Background()

	created, err := client.Register(ctx, model.RegisterRequest{
		FirstName: " Ana ",
		LastName:  "Reyes",
		Email:     "ana@jewelflow.test",
		Password:  "Sparkle42",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", created.FirstName)
	assert.Equal(t, "staff", created.Role)

	_, err = client.Register(ctx, model.RegisterRequest{
		FirstName: "Ana",
		LastName:  "Reyes",
		Email:     "ana@jewelflow.test",
		Password:  "Sparkle42",
	})
	require.Error(t, err)
	assert.NotEmpty(t, apierrorField(err, "email"))

	res, err := client.Login(ctx, "ana@jewelflow.test", "Sparkle42", false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, res.User.ID)

	sess := client.Session()
	assert.True(t, sess.Authenticated())
	assert.False(t, sess.Remember())

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana Reyes", me.FullName())
}

func TestLoginFailureKinds(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.Login(ctx, "nobody@jewelflow.test", "whatever1", false)
	assert.Equal(t, apierror.KindAccountNotFound, apierror.KindOf(err))

	for range 2 {
		_, err = client.Login(ctx, adminEmail, "wrong-password1", false)
		assert.Equal(t, apierror.KindInvalidCredentials, apierror.KindOf(err))
	}

	_, err = client.Login(ctx, adminEmail, "wrong-password1", false)
	assert.Equal(t, apierror.KindAccountLocked, apierror.KindOf(err))

	// Locked accounts stay locked even with the right password.
	_, err = client.Login(ctx, adminEmail, adminPassword, false)
	assert.Equal(t, apierror.KindAccountLocked, apierror.KindOf(err))
	assert.False(t, client.Session().Authenticated())
}

func TestProtectedRouteWithoutSession(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t, srv)

	_, err := catalog.NewCategories(client).List(context.Background())
	assert.Equal(t, apierror.KindUnauthorized, apierror.KindOf(err))
}

func TestInvalidAccessTokenIsRefreshed(t *testing.T) {
	srv := newTestServer(t)

	invalidated := 0
	client := newTestClient(t, srv, apiclient.WithSessionInvalidHandler(func(error) { invalidated++ }))
	ctx := context.Background()

	_, err := client.Login(ctx, adminEmail, adminPassword, true)
	require.NoError(t, err)

	sess := client.Session()
	refresh := sess.Refresh()
	require.NoError(t, sess.SetAccess("not-a-jwt"))

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, adminEmail, me.Email)
	assert.NotEqual(t, "not-a-jwt", sess.Access())
	assert.Equal(t, refresh, sess.Refresh())
	assert.True(t, sess.Remember())
	assert.Zero(t, invalidated)
}

func TestRevokedRefreshTokenEndsSession(t *testing.T) {
	srv := newTestServer(t)

	var reasons []error
	client := newTestClient(t, srv, apiclient.WithSessionInvalidHandler(func(err error) { reasons = append(reasons, err) }))
	ctx := context.Background()

	_, err := client.Login(ctx, adminEmail, adminPassword, false)
	require.NoError(t, err)

	sess := client.Session()
	require.NoError(t, sess.SetPair("not-a-jwt", "also-not-a-jwt", false))

	_, err = client.Me(ctx)
	require.Error(t, err)
	assert.True(t, apiclient.IsSessionInvalid(err))
	assert.False(t, sess.Authenticated())
	assert.Len(t, reasons, 1)
}

func TestCategoryLifecycle(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.Login(ctx, adminEmail, adminPassword, false)
	require.NoError(t, err)

	cats := catalog.NewCategories(client)
	desc := "Solitaire and halo settings"

	rings, err := cats.Create(ctx, model.CategoryRequest{Name: "Rings", Description: &desc})
	require.NoError(t, err)
	assert.True(t, rings.IsActive)

	_, err = cats.Create(ctx, model.CategoryRequest{Name: "rings"})
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	assert.NotEmpty(t, apierrorField(err, "name"))

	necklaces, err := cats.Create(ctx, model.CategoryRequest{Name: "Necklaces"})
	require.NoError(t, err)
	bracelets, err := cats.Create(ctx, model.CategoryRequest{Name: "Bracelets"})
	require.NoError(t, err)

	renamed, err := cats.Update(ctx, necklaces.ID, model.CategoryRequest{Name: "Pendants"})
	require.NoError(t, err)
	assert.Equal(t, "Pendants", renamed.Name)

	board := catalog.NewBoard(cats)
	require.NoError(t, board.Load(ctx))

	toggled, err := board.Toggle(ctx, rings.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	fetched, err := cats.Get(ctx, rings.ID)
	require.NoError(t, err)
	assert.False(t, fetched.IsActive)

	board.View(func(tbl *datatable.Table[model.Category]) {
		require.NoError(t, tbl.SetSort(catalog.ColumnName, datatable.Asc))
		names := []string{}
		for _, row := range tbl.Rows() {
			names = append(names, row.Name)
		}
		assert.Equal(t, []string{"Bracelets", "Pendants", "Rings"}, names)

		tbl.Toggle(catalog.CategoryID(*necklaces))
		tbl.Toggle(catalog.CategoryID(*bracelets))
	})

	n, err := board.RemoveSelected(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := cats.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, rings.ID, remaining[0].ID)

	require.NoError(t, cats.Delete(ctx, rings.ID))
	_, err = cats.Get(ctx, rings.ID)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

func apierrorField(err error, field string) string {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return ""
	}
	return apiErr.FieldError(field)
}
