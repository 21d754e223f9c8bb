package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"jewelflow/internal/model"
	"jewelflow/pkg/apierror"
)

type LoginResult struct {
	Tokens model.TokenPair `json:"tokens"`
	User   model.User      `json:"user"`
}

// Login exchanges credentials for a token pair, stores it in the scope picked
// by remember and caches the caller's profile.
func (c *Client) Login(ctx context.Context, email string, password string, remember bool) (*LoginResult, error) {
	req := model.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if fields := validateLogin(req); len(fields) > 0 {
		return nil, apierror.Validation("invalid login", fields)
	}

	var pair model.TokenPair
	if err := c.Do(ctx, http.MethodPost, PathToken, req, &pair); err != nil {
		return nil, err
	}
	if pair.Access == "" {
		return nil, &apierror.APIError{
			Kind:    apierror.KindServer,
			Code:    "INVALID_RESPONSE",
			Message: "login response carried no access token",
		}
	}

	if err := c.session.SetPair(pair.Access, pair.Refresh, remember); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	user, err := c.Me(ctx)
	if err != nil {
		if clearErr := c.session.Clear(); clearErr != nil {
			c.log.Error("clear session after failed login", "error", clearErr)
		}
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	c.log.Info("logged in", "email", user.Email, "remember", remember)
	return &LoginResult{Tokens: pair, User: *user}, nil
}

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	var user model.User
	if err := c.Do(ctx, http.MethodPost, PathRegister, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me fetches the current profile and refreshes the cached copy.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.Do(ctx, http.MethodGet, PathMe, nil, &user); err != nil {
		return nil, err
	}

	if err := c.session.SetProfile(user); err != nil {
		return nil, fmt.Errorf("cache profile: %w", err)
	}
	return &user, nil
}

// Logout forgets the local session. The server keeps no per-client state
// that needs revoking.
func (c *Client) Logout() error {
	if err := c.session.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func validateLogin(req model.LoginRequest) map[string][]string {
	fields := map[string][]string{}
	if req.Email == "" {
		fields["email"] = []string{"This field may not be blank."}
	}
	if req.Password == "" {
		fields["password"] = []string{"This field may not be blank."}
	}
	return fields
}

// IsSessionInvalid reports whether err means the caller must log in again.
func IsSessionInvalid(err error) bool {
	return apierror.IsKind(err, apierror.KindSessionExpired)
}
