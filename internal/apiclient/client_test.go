package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jewelflow/internal/model"
	"jewelflow/internal/session"
	"jewelflow/pkg/apierror"
)

type fakeAPI struct {
	mux *http.ServeMux

	refreshCalls atomic.Int32
	meCalls      atomic.Int32

	mu         sync.Mutex
	authHeader []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{mux: http.NewServeMux()}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.authHeader = append(f.authHeader, r.Header.Get("Authorization"))
	f.mu.Unlock()

	switch r.URL.Path {
	case PathTokenRefresh:
		f.refreshCalls.Add(1)
	case PathMe:
		f.meCalls.Add(1)
	}
	f.mux.ServeHTTP(w, r)
}

func (f *fakeAPI) headers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authHeader...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, api http.Handler, opts ...Option) (*Client, *session.Manager) {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	mgr, err := session.NewManager(nil, nil)
	require.NoError(t, err)

	client, err := New(srv.URL, mgr, opts...)
	require.NoError(t, err)
	return client, mgr
}

func TestNewRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	mgr, err := session.NewManager(nil, nil)
	require.NoError(t, err)

	_, err = New("localhost:8000", mgr)
	require.Error(t, err)

	_, err = New("http://localhost:8000/", nil)
	require.Error(t, err)

	client, err := New("http://localhost:8000/", mgr)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", client.BaseURL())
}

func TestDoWithoutCredentialSendsNoAuthHeader(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.mux.HandleFunc("GET "+PathCategories, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
	})

	client, _ := newTestClient(t, api)

	err := client.Do(context.Background(), http.MethodGet, PathCategories, nil, nil)
	require.Error(t, err)

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.KindUnauthorized, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus)
	assert.Equal(t, "Authentication credentials were not provided.", apiErr.Message)
	assert.Equal(t, []string{""}, api.headers())
	assert.Zero(t, api.refreshCalls.Load())
}

func TestDoSendsRequestID(t *testing.T) {
	t.Parallel()

	got := make(chan string, 1)
	api := newFakeAPI()
	api.mux.HandleFunc("GET "+PathCategories, func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get(HeaderRequestID)
		writeJSON(w, http.StatusOK, []model.Category{})
	})

	client, _ := newTestClient(t, api)

	var out []model.Category
	require.NoError(t, client.Do(context.Background(), http.MethodGet, PathCategories, nil, &out))

	_, err := uuid.Parse(<-got)
	require.NoError(t, err)
}

func TestDoRefreshesOnceAndRetries(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.mux.HandleFunc("GET "+PathMe, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
			return
		}
		writeJSON(w, http.StatusOK, model.User{ID: "7", Email: "ops@jewelflow.local"})
	})
	api.mux.HandleFunc("POST "+PathTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		var req model.RefreshRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "refresh-1", req.Refresh)
		writeJSON(w, http.StatusOK, model.AccessToken{Access: "fresh"})
	})

	client, mgr := newTestClient(t, api)
	require.NoError(t, mgr.SetPair("stale", "refresh-1", true))

	user, err := client.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ops@jewelflow.local", user.Email)

	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 2, api.meCalls.Load())
	assert.Equal(t, []string{"Bearer stale", "", "Bearer fresh"}, api.headers())
	assert.Equal(t, "fresh", mgr.Access())
	assert.Equal(t, "refresh-1", mgr.Refresh())
	assert.True(t, mgr.Remember())
}

func TestDoRetriesAtMostOnce(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.mux.HandleFunc("GET "+PathMe, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})
	api.mux.HandleFunc("POST "+PathTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.AccessToken{Access: "fresh"})
	})

	var invalidated atomic.Int32
	client, mgr := newTestClient(t, api, WithSessionInvalidHandler(func(error) { invalidated.Add(1) }))
	require.NoError(t, mgr.SetPair("stale", "refresh-1", false))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsSessionInvalid(err))
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 2, api.meCalls.Load())
	assert.Equal(t, []string{"Bearer stale", "", "Bearer fresh"}, api.headers())

	// A rejected fresh token ends the session like a failed refresh does.
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	var cause *apierror.APIError
	require.ErrorAs(t, apiErr.Err, &cause)
	assert.Equal(t, apierror.KindUnauthorized, cause.Kind)
	assert.EqualValues(t, 1, invalidated.Load())
	assert.False(t, mgr.Authenticated())
}

func TestLateUnauthorizedAfterFailedRefreshDoesNotTearDownTwice(t *testing.T) {
	t.Parallel()

	slowHit := make(chan struct{})
	releaseSlow := make(chan struct{})

	api := newFakeAPI()
	api.mux.HandleFunc("GET "+PathCategories, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})
	api.mux.HandleFunc("GET "+PathMe, func(w http.ResponseWriter, r *http.Request) {
		close(slowHit)
		<-releaseSlow
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})
	api.mux.HandleFunc("POST "+PathTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is blacklisted"})
	})

	var hookCalls atomic.Int32
	client, mgr := newTestClient(t, api, WithSessionInvalidHandler(func(error) { hookCalls.Add(1) }))
	require.NoError(t, mgr.SetPair("stale", "refresh-1", true))

	late := make(chan error, 1)
	go func() {
		_, err := client.Me(context.Background())
		late <- err
	}()
	<-slowHit

	// The first request's refresh fails and ends the session.
	err := client.Do(context.Background(), http.MethodGet, PathCategories, nil, nil)
	require.True(t, IsSessionInvalid(err))
	require.False(t, mgr.Authenticated())

	// The slow request's 401 arrives after the failed flight is over.
	close(releaseSlow)
	lateErr := <-late
	assert.True(t, IsSessionInvalid(lateErr))
	assert.EqualValues(t, 1, hookCalls.Load())
	assert.EqualValues(t, 1, api.refreshCalls.Load())
}

func TestRefreshAfterLogoutDoesNotRevive(t *testing.T) {
	t.Parallel()

	refreshHit := make(chan struct{})
	releaseRefresh := make(chan struct{})

	api := newFakeAPI()
	api.mux.HandleFunc("GET "+PathMe, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})
	api.mux.HandleFunc("POST "+PathTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		close(refreshHit)
		<-releaseRefresh
		writeJSON(w, http.StatusOK, model.AccessToken{Access: "fresh"})
	})

	var hookCalls atomic.Int32
	client, mgr := newTestClient(t, api, WithSessionInvalidHandler(func(error) { hookCalls.Add(1) }))
	require.NoError(t, mgr.SetPair("stale", "refresh-1", false))

	done := make(chan error, 1)
	go func() {
		_, err := client.Me(context.Background())
		done <- err
	}()

	<-refreshHit
	require.NoError(t, client.Logout())
	close(releaseRefresh)

	err := <-done
	assert.True(t, IsSessionInvalid(err))
	assert.ErrorIs(t, err, session.ErrSessionChanged)
	assert.False(t, mgr.Authenticated())
	assert.Empty(t, mgr.Access())
	assert.Zero(t, hookCalls.Load())
	assert.EqualValues(t, 1, api.meCalls.Load())
}

func TestRefreshFailureTearsDownSession(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.mux.HandleFunc("GET "+PathCategories, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})
	api.mux.HandleFunc("POST "+PathTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is blacklisted"})
	})

	var hookErr error
	var hookCalls atomic.Int32
	client, mgr := newTestClient(t, api, WithSessionInvalidHandler(func(err error) {
		hookCalls.Add(1)
		hookErr = err
	}))
	require.NoError(t, mgr.SetPair("stale", "refresh-1", true))
	require.NoError(t, mgr.SetProfile(model.User{ID: "7"}))

	err := client.Do(context.Background(), http.MethodGet, PathCategories, nil, nil)
	require.Error(t, err)
	require.True(t, IsSessionInvalid(err))

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	var cause *apierror.APIError
	require.ErrorAs(t, apiErr.Err, &cause)
	assert.Equal(t, "Token is blacklisted", cause.Message)

	assert.EqualValues(t, 1, hookCalls.Load())
	assert.True(t, IsSessionInvalid(hookErr))
	assert.False(t, mgr.Authenticated())
	_, ok := mgr.Profile()
	assert.False(t, ok)

	// Nothing else goes out with the old credentials.
	assert.Equal(t, []string{"Bearer stale", ""}, api.headers())
}

func TestRefreshWithoutRefreshTokenFailsFast(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.mux.HandleFunc("GET "+PathCategories, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})

	var hookCalls atomic.Int32
	client, mgr := newTestClient(t, api, WithSessionInvalidHandler(func(error) { hookCalls.Add(1) }))
	require.NoError(t, mgr.SetPair("stale", "", true))

	err := client.Do(context.Background(), http.MethodGet, PathCategories, nil, nil)
	require.True(t, IsSessionInvalid(err))
	assert.ErrorIs(t, err, errNoRefreshToken)
	assert.Zero(t, api.refreshCalls.Load())
	assert.EqualValues(t, 1, hookCalls.Load())
	assert.False(t, mgr.Authenticated())
}

func TestAuthEndpointsNeverRefresh(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	for _, path := range []string{PathToken, PathRegister, PathTokenRefresh} {
		api.mux.HandleFunc("POST "+path, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		})
	}

	var hookCalls atomic.Int32
	client, mgr := newTestClient(t, api, WithSessionInvalidHandler(func(error) { hookCalls.Add(1) }))
	require.NoError(t, mgr.SetPair("stale", "refresh-1", true))

	cases := []struct {
		path string
		kind apierror.Kind
	}{
		{PathToken, apierror.KindInvalidCredentials},
		{PathRegister, apierror.KindUnauthorized},
		{PathTokenRefresh, apierror.KindUnauthorized},
	}
	for _, tc := range cases {
		err := client.Do(context.Background(), http.MethodPost, tc.path, map[string]string{}, nil)
		require.Error(t, err, tc.path)
		assert.Equal(t, tc.kind, apierror.KindOf(err), tc.path)
	}

	assert.Equal(t, []string{"", "", ""}, api.headers())
	// Only the direct call to the refresh endpoint itself.
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.Zero(t, hookCalls.Load())
	assert.Equal(t, "stale", mgr.Access())
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	t.Parallel()

	const callers = 8

	api := newFakeAPI()
	api.mux.HandleFunc("GET "+PathCategories, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
			return
		}
		writeJSON(w, http.StatusOK, []model.Category{{ID: 1, Name: "Rings"}})
	})
	api.mux.HandleFunc("POST "+PathTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.AccessToken{Access: "fresh"})
	})

	client, mgr := newTestClient(t, api)
	require.NoError(t, mgr.SetPair("stale", "refresh-1", true))

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out []model.Category
			errs <- client.Do(context.Background(), http.MethodGet, PathCategories, nil, &out)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.Equal(t, "fresh", mgr.Access())
}

func TestLoginStoresPairPerRememberFlag(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.mux.HandleFunc("POST "+PathToken, func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Email != "user@example.com" || req.Password != "Passw0rd1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		writeJSON(w, http.StatusOK, model.TokenPair{Access: "a", Refresh: "r"})
	})
	api.mux.HandleFunc("GET "+PathMe, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		writeJSON(w, http.StatusOK, model.User{ID: "1", Email: "user@example.com", FirstName: "Ada"})
	})
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	t.Run("remember", func(t *testing.T) {
		durable := session.NewFileStore(t.TempDir() + "/session.json")
		ephemeral := session.NewMemoryStore()
		mgr, err := session.NewManager(durable, ephemeral)
		require.NoError(t, err)
		client, err := New(srv.URL, mgr)
		require.NoError(t, err)

		res, err := client.Login(context.Background(), "user@example.com", "Passw0rd1", true)
		require.NoError(t, err)
		assert.Equal(t, "a", res.Tokens.Access)
		assert.Equal(t, "Ada", res.User.FirstName)

		stored, err := durable.Load()
		require.NoError(t, err)
		assert.Equal(t, "a", stored.AccessToken)
		assert.Equal(t, "r", stored.RefreshToken)
		require.NotNil(t, stored.Profile)
		assert.Equal(t, "user@example.com", stored.Profile.Email)

		other, err := ephemeral.Load()
		require.NoError(t, err)
		assert.Empty(t, other.AccessToken)
	})

	t.Run("session only", func(t *testing.T) {
		durable := session.NewFileStore(t.TempDir() + "/session.json")
		ephemeral := session.NewMemoryStore()
		mgr, err := session.NewManager(durable, ephemeral)
		require.NoError(t, err)
		client, err := New(srv.URL, mgr)
		require.NoError(t, err)

		_, err = client.Login(context.Background(), "user@example.com", "Passw0rd1", false)
		require.NoError(t, err)

		stored, err := ephemeral.Load()
		require.NoError(t, err)
		assert.Equal(t, "a", stored.AccessToken)
		assert.Equal(t, "r", stored.RefreshToken)

		persisted, err := durable.Load()
		require.NoError(t, err)
		assert.Empty(t, persisted.AccessToken)
		assert.Empty(t, persisted.RefreshToken)
		require.NotNil(t, persisted.Profile)
	})

	t.Run("bad credentials", func(t *testing.T) {
		mgr, err := session.NewManager(nil, nil)
		require.NoError(t, err)
		client, err := New(srv.URL, mgr)
		require.NoError(t, err)

		_, err = client.Login(context.Background(), "user@example.com", "wrong", true)
		require.True(t, apierror.IsKind(err, apierror.KindInvalidCredentials))
		assert.False(t, mgr.Authenticated())
	})

	t.Run("blank fields", func(t *testing.T) {
		mgr, err := session.NewManager(nil, nil)
		require.NoError(t, err)
		client, err := New(srv.URL, mgr)
		require.NoError(t, err)

		_, err = client.Login(context.Background(), "  ", "", true)
		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, apierror.KindValidation, apiErr.Kind)
		assert.NotEmpty(t, apiErr.FieldError("email"))
		assert.NotEmpty(t, apiErr.FieldError("password"))
	})
}

func TestLoginClearsSessionWhenProfileFails(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.mux.HandleFunc("POST "+PathToken, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.TokenPair{Access: "a", Refresh: "r"})
	})
	api.mux.HandleFunc("GET "+PathMe, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})

	client, mgr := newTestClient(t, api)

	_, err := client.Login(context.Background(), "user@example.com", "Passw0rd1", true)
	require.True(t, apierror.IsKind(err, apierror.KindServer))
	assert.False(t, mgr.Authenticated())
}

func TestRegisterErrors(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.mux.HandleFunc("POST "+PathRegister, func(w http.ResponseWriter, r *http.Request) {
		var req model.RegisterRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Email {
		case "taken@example.com":
			writeJSON(w, http.StatusConflict, map[string][]string{"email": {"user with this email already exists."}})
		case "":
			writeJSON(w, http.StatusBadRequest, map[string][]string{
				"email":    {"This field may not be blank."},
				"password": {"This password is too short."},
			})
		default:
			writeJSON(w, http.StatusCreated, model.User{ID: "9", Email: req.Email, FirstName: req.FirstName, LastName: req.LastName})
		}
	})

	client, _ := newTestClient(t, api)
	ctx := context.Background()

	t.Run("created", func(t *testing.T) {
		user, err := client.Register(ctx, model.RegisterRequest{FirstName: " Grace ", LastName: "Hopper", Email: "grace@example.com", Password: "Passw0rd1"})
		require.NoError(t, err)
		assert.Equal(t, "9", user.ID)
		assert.Equal(t, "Grace", user.FirstName)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := client.Register(ctx, model.RegisterRequest{Email: "taken@example.com", Password: "Passw0rd1"})
		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, apierror.KindConflict, apiErr.Kind)
		assert.Equal(t, "user with this email already exists.", apiErr.FieldError("email"))
	})

	t.Run("field errors", func(t *testing.T) {
		_, err := client.Register(ctx, model.RegisterRequest{Password: "x"})
		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, apierror.KindValidation, apiErr.Kind)
		assert.Equal(t, "This field may not be blank.", apiErr.FieldError("email"))
		assert.Equal(t, "This password is too short.", apiErr.FieldError("password"))
		assert.Equal(t, "email: This field may not be blank.", apiErr.Message)
	})
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.mux.HandleFunc("GET /limited/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"detail": "Request was throttled."})
	})
	api.mux.HandleFunc("GET /broken/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html><body>Bad Gateway</body></html>"))
	})
	api.mux.HandleFunc("GET /missing/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	})
	api.mux.HandleFunc("POST "+PathToken, func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email == "locked@example.com" {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Account locked."})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No account with this email."})
	})

	client, _ := newTestClient(t, api)
	ctx := context.Background()

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		kind   apierror.Kind
		msg    string
	}{
		{"rate limited", http.MethodGet, "/limited/", nil, apierror.KindRateLimited, "Request was throttled."},
		{"server html", http.MethodGet, "/broken/", nil, apierror.KindServer, "server error"},
		{"not found", http.MethodGet, "/missing/", nil, apierror.KindNotFound, "Not found."},
		{"unknown account", http.MethodPost, PathToken, model.LoginRequest{Email: "nobody@example.com"}, apierror.KindAccountNotFound, "No account with this email."},
		{"locked account", http.MethodPost, PathToken, model.LoginRequest{Email: "locked@example.com"}, apierror.KindAccountLocked, "Account locked."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := client.Do(ctx, tc.method, tc.path, tc.body, nil)
			var apiErr *apierror.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.kind, apiErr.Kind)
			assert.Equal(t, tc.msg, apiErr.Message)
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	mgr, err := session.NewManager(nil, nil)
	require.NoError(t, err)
	client, err := New(url, mgr)
	require.NoError(t, err)

	err = client.Do(context.Background(), http.MethodGet, PathCategories, nil, nil)
	require.True(t, apierror.IsKind(err, apierror.KindNetwork))
}

func TestLogoutClearsWithoutHook(t *testing.T) {
	t.Parallel()

	var hookCalls atomic.Int32
	client, mgr := newTestClient(t, newFakeAPI(), WithSessionInvalidHandler(func(error) { hookCalls.Add(1) }))
	require.NoError(t, mgr.SetPair("a", "r", true))

	require.NoError(t, client.Logout())
	assert.False(t, mgr.Authenticated())
	assert.Zero(t, hookCalls.Load())
}
