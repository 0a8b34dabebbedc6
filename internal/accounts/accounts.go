// Package accounts talks to the accounts collaborator that owns user identity.
// Its balance figure is informational; the ledger decides what a user can spend.
package accounts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fastprodman/wagerengine/internal/errs"
)

var ErrUserNotFound = fmt.Errorf("user: %w", errs.ErrNotFound)

type User struct {
	ID        string `json:"id"`
	Available int64  `json:"available"`
}

type Client interface {
	GetUser(ctx context.Context, userID string) (User, error)
}

type HTTPClient struct {
	rc *resty.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &HTTPClient{rc: rc}
}

func (c *HTTPClient) GetUser(ctx context.Context, userID string) (User, error) {
	var u User

	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&u).
		Get("/users/" + url.PathEscape(userID))
	if err != nil {
		return User{}, fmt.Errorf("get user %s: %w", userID, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return User{}, ErrUserNotFound
	case resp.IsError():
		return User{}, fmt.Errorf("get user %s: accounts returned %d", userID, resp.StatusCode())
	}

	if u.ID == "" {
		u.ID = userID
	}

	return u, nil
}

// Nop accepts every user and reports no balance. Used when no accounts
// service is configured.
type Nop struct{}

func (Nop) GetUser(_ context.Context, userID string) (User, error) {
	return User{ID: userID}, nil
}
