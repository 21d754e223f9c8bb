package apiclient

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"jewelflow/internal/model"
	"jewelflow/internal/session"
	"jewelflow/pkg/apierror"
)

const sessionExpiredMessage = "session expired, please log in again"

var errNoRefreshToken = errors.New("no refresh token stored")

// refreshAccess obtains a new access token after rejected was refused.
// Concurrent callers share one exchange per refresh token.
func (c *Client) refreshAccess(ctx context.Context, rejected *oauth2.Token) error {
	if current := c.session.Access(); current != "" && current != rejected.AccessToken {
		// Another request already refreshed while this one was in flight.
		return nil
	}

	refresh := c.session.Refresh()
	if refresh == "" {
		// Either the session never had a refresh token or it has already
		// ended; expire only tears down the former.
		err := apierror.SessionExpired(sessionExpiredMessage, errNoRefreshToken)
		c.expire(refresh, err)
		return err
	}

	ch := c.refreshGroup.DoChan(refresh, func() (any, error) {
		return nil, c.exchangeRefresh(context.WithoutCancel(ctx), refresh)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exchangeRefresh runs at most once per flight. The new access token is
// stored only if refresh still belongs to the session.
func (c *Client) exchangeRefresh(ctx context.Context, refresh string) error {
	var out model.AccessToken
	err := c.Do(ctx, http.MethodPost, PathTokenRefresh, model.RefreshRequest{Refresh: refresh}, &out)
	if err == nil && out.Access == "" {
		err = errors.New("refresh response carried no access token")
	}
	if err != nil {
		expired := apierror.SessionExpired(sessionExpiredMessage, err)
		c.expire(refresh, expired)
		return expired
	}

	if err := c.session.SetAccessFor(refresh, out.Access); err != nil {
		if errors.Is(err, session.ErrSessionChanged) {
			c.log.Debug("session ended during refresh; new access token discarded")
			return apierror.SessionExpired(sessionExpiredMessage, err)
		}
		expired := apierror.SessionExpired(sessionExpiredMessage, err)
		c.expire(refresh, expired)
		return expired
	}

	c.log.Debug("access token refreshed")
	return nil
}

// expire tears down the session identified by refresh. Teardown and the
// invalid-session hook run once per session, however many requests fail
// against it.
func (c *Client) expire(refresh string, cause error) {
	cleared, err := c.session.ClearFor(refresh)
	if err != nil {
		c.log.Error("clear session", "error", err)
	}
	if !cleared {
		return
	}

	c.log.Warn("session invalidated", "error", cause)
	if c.onInvalid != nil {
		c.onInvalid(cause)
	}
}
